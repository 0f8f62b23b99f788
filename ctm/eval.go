package ctm

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/ieee0824/speechdata-go/datadir"
)

// Evaluation maps an utterance to its aligned positions.
type Evaluation map[string][]Pair

var evalTags = [...]string{"ref", "hyp", "op"}

// ReadEvaluation parses per-utterance alignment details: blocks of four
// lines tagged ref, hyp, op and #csid. The fourth line is not interpreted.
func ReadEvaluation(r io.Reader, name string) (Evaluation, error) {
	eval := make(Evaluation)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 16*1024*1024)
	lineNum := 0

	var block [3][]string
	var utt string
	pos := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if pos == 3 {
			pos = 0
			continue
		}
		parts := strings.Fields(line)
		if len(parts) < 2 {
			return nil, &datadir.ParseError{File: name, Line: lineNum, Text: line, Msg: "expected <utt> <tag> ..."}
		}
		if parts[1] != evalTags[pos] {
			return nil, &datadir.ParseError{File: name, Line: lineNum, Text: line, Msg: "expected tag " + evalTags[pos]}
		}
		if pos == 0 {
			utt = parts[0]
			if _, dup := eval[utt]; dup {
				return nil, &datadir.ParseError{File: name, Line: lineNum, Text: line, Msg: "duplicate utterance " + utt}
			}
		} else if parts[0] != utt {
			return nil, &datadir.ParseError{File: name, Line: lineNum, Text: line, Msg: "utterance changed inside block"}
		}
		block[pos] = parts[2:]
		pos++
		if pos == 3 {
			eval[utt] = zipBlock(block)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "read %s", name)
	}
	if pos == 1 || pos == 2 {
		return nil, errors.Errorf("%s: truncated block for utterance %s", name, utt)
	}
	return eval, nil
}

// zipBlock pairs ref, hyp and op columns, truncating to the shortest.
func zipBlock(b [3][]string) []Pair {
	n := min(len(b[0]), len(b[1]), len(b[2]))
	pairs := make([]Pair, n)
	for i := 0; i < n; i++ {
		pairs[i] = Pair{Ref: b[0][i], Hyp: b[1][i], Op: b[2][i]}
	}
	return pairs
}

// ReadEvaluationFile opens and parses an alignment details file.
func ReadEvaluationFile(path string) (Evaluation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadEvaluation(f, path)
}

// WriteEvaluation writes one four-line block for utt.
func WriteEvaluation(w io.Writer, utt string, pairs []Pair) error {
	refs := make([]string, len(pairs))
	hyps := make([]string, len(pairs))
	ops := make([]string, len(pairs))
	for i, p := range pairs {
		refs[i], hyps[i], ops[i] = p.Ref, p.Hyp, p.Op
	}
	c := Count(pairs)
	_, err := fmt.Fprintf(w, "%s ref %s\n%s hyp %s\n%s op %s\n%s #csid %d %d %d %d\n",
		utt, strings.Join(refs, " "),
		utt, strings.Join(hyps, " "),
		utt, strings.Join(ops, " "),
		utt, c.Correct, c.Substitutions, c.Insertions, c.Deletions)
	return err
}
