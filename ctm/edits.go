package ctm

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"
)

// EditOptions controls AppendEdits.
type EditOptions struct {
	// Special is the alignment symbol for a missing word.
	Special string
	// Silence words in the CTM are passed through untagged. Empty disables
	// silence handling.
	Silence string
}

// ErrMismatch is returned when a CTM and its evaluation disagree.
var ErrMismatch = errors.New("ctm and evaluation do not match")

func mismatch(utt, format string, args ...interface{}) error {
	return errors.Wrapf(ErrMismatch, "utterance %s: %s", utt, fmt.Sprintf(format, args...))
}

// AppendEdits tags every non-silence CTM word with its reference word and
// edit from eval. Deletions become zero-length entries. The result is
// sorted by utterance, channel and begin time.
func AppendEdits(entries []Entry, eval Evaluation, opts EditOptions) ([]Entry, error) {
	if opts.Special == "" {
		opts.Special = DefaultEpsilon
	}

	var utts []string
	byUtt := make(map[string][]Entry)
	for _, e := range entries {
		if _, ok := byUtt[e.Utt]; !ok {
			utts = append(utts, e.Utt)
		}
		byUtt[e.Utt] = append(byUtt[e.Utt], e)
	}

	var out []Entry
	for _, utt := range utts {
		pairs, ok := eval[utt]
		if !ok {
			return nil, errors.Wrapf(ErrMismatch, "utterance %s has no evaluation", utt)
		}
		words := byUtt[utt]
		sort.SliceStable(words, func(i, j int) bool { return words[i].Begin < words[j].Begin })

		p := &editProcessor{utt: utt, words: words, opts: opts}
		merged, err := p.run(pairs)
		if err != nil {
			return nil, err
		}
		out = append(out, merged...)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Utt != out[j].Utt {
			return out[i].Utt < out[j].Utt
		}
		if out[i].Channel != out[j].Channel {
			return out[i].Channel < out[j].Channel
		}
		return out[i].Begin < out[j].Begin
	})
	return out, nil
}

type editProcessor struct {
	utt   string
	words []Entry
	opts  EditOptions
	pos   int
	out   []Entry
}

func (p *editProcessor) isSilence(e Entry) bool {
	return p.opts.Silence != "" && e.Word == p.opts.Silence
}

// skipSilence passes silence words through until the next real word.
func (p *editProcessor) skipSilence() error {
	for p.pos < len(p.words) && p.isSilence(p.words[p.pos]) {
		p.out = append(p.out, p.words[p.pos])
		p.pos++
	}
	if p.pos >= len(p.words) {
		return mismatch(p.utt, "ran out of CTM words")
	}
	return nil
}

func (p *editProcessor) tag(e Entry, ref, edit string) Entry {
	e.Ref, e.Edit = ref, edit
	return e
}

func (p *editProcessor) run(pairs []Pair) ([]Entry, error) {
	for _, pair := range pairs {
		var err error
		switch pair.Op {
		case OpInsertion:
			err = p.insertion(pair)
		case OpSubstitution:
			err = p.substitution(pair)
		case OpDeletion:
			err = p.deletion(pair)
		case OpCorrect:
			err = p.correct(pair)
		default:
			err = mismatch(p.utt, "unknown edit %q", pair.Op)
		}
		if err != nil {
			return nil, err
		}
	}
	for ; p.pos < len(p.words); p.pos++ {
		if !p.isSilence(p.words[p.pos]) {
			return nil, mismatch(p.utt, "word %s left over after alignment", p.words[p.pos].Word)
		}
		p.out = append(p.out, p.words[p.pos])
	}
	return p.out, nil
}

func (p *editProcessor) insertion(pair Pair) error {
	if err := p.skipSilence(); err != nil {
		return err
	}
	w := p.words[p.pos]
	if w.Word != pair.Hyp {
		return mismatch(p.utt, "insertion of %s but CTM has %s", pair.Hyp, w.Word)
	}
	if pair.Ref != p.opts.Special {
		return mismatch(p.utt, "insertion with reference word %s", pair.Ref)
	}
	p.out = append(p.out, p.tag(w, p.silenceWord(), OpInsertion))
	p.pos++
	return nil
}

func (p *editProcessor) substitution(pair Pair) error {
	if err := p.skipSilence(); err != nil {
		return err
	}
	w := p.words[p.pos]
	if w.Word != pair.Hyp {
		return mismatch(p.utt, "substitution of %s but CTM has %s", pair.Hyp, w.Word)
	}
	p.out = append(p.out, p.tag(w, pair.Ref, OpSubstitution))
	p.pos++
	return nil
}

func (p *editProcessor) correct(pair Pair) error {
	if err := p.skipSilence(); err != nil {
		return err
	}
	w := p.words[p.pos]
	if w.Word != pair.Hyp || w.Word != pair.Ref {
		return mismatch(p.utt, "correct %s/%s but CTM has %s", pair.Ref, pair.Hyp, w.Word)
	}
	p.out = append(p.out, p.tag(w, pair.Ref, OpCorrect))
	p.pos++
	return nil
}

// deletion emits a zero-length word at the next CTM position, or reuses a
// silence word sitting there.
func (p *editProcessor) deletion(pair Pair) error {
	if pair.Hyp != p.opts.Special {
		return mismatch(p.utt, "deletion with hypothesis word %s", pair.Hyp)
	}
	switch {
	case p.pos == len(p.words):
		if p.pos == 0 {
			return mismatch(p.utt, "deletion in an utterance without CTM words")
		}
		last := p.words[p.pos-1]
		p.out = append(p.out, Entry{
			Utt: last.Utt, Channel: last.Channel, Begin: last.End(),
			Word: p.silenceWord(), Ref: pair.Ref, Edit: OpDeletion,
		})
	case p.isSilence(p.words[p.pos]):
		p.out = append(p.out, p.tag(p.words[p.pos], pair.Ref, OpDeletion))
		p.pos++
	default:
		next := p.words[p.pos]
		p.out = append(p.out, Entry{
			Utt: next.Utt, Channel: next.Channel, Begin: next.Begin,
			Word: p.silenceWord(), Ref: pair.Ref, Edit: OpDeletion,
		})
	}
	return nil
}

// silenceWord fills the word slot of deletions and the reference slot of
// insertions.
func (p *editProcessor) silenceWord() string {
	if p.opts.Silence != "" {
		return p.opts.Silence
	}
	return p.opts.Special
}
