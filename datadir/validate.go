package datadir

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// ValidationError collects every consistency problem found in a data directory.
type ValidationError struct {
	Dir      string
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %d problem(s):\n  %s", e.Dir, len(e.Problems), strings.Join(e.Problems, "\n  "))
}

// Validate checks that the data directory is self-consistent: utt2spk and
// spk2utt agree, every segment names a recording of wav.scp and belongs to
// an utterance of utt2spk.
func Validate(dir string) error {
	verr := &ValidationError{Dir: dir}

	utt2spk, err := ReadUtt2Spk(filepath.Join(dir, Utt2SpkFile))
	if err != nil {
		return errors.Wrap(err, "validate")
	}

	if fileExists(filepath.Join(dir, Spk2UttFile)) {
		spk2utt, err := ReadTable(filepath.Join(dir, Spk2UttFile))
		if err != nil {
			return errors.Wrap(err, "validate")
		}
		seen := make(map[string]bool, len(utt2spk))
		for _, spk := range spk2utt.Keys() {
			utts, _ := spk2utt.Get(spk)
			for _, u := range utts {
				if utt2spk[u] != spk {
					verr.Problems = append(verr.Problems, fmt.Sprintf("spk2utt lists %s under %s, utt2spk says %q", u, spk, utt2spk[u]))
				}
				seen[u] = true
			}
		}
		for _, u := range sortedKeys(utt2spk) {
			if !seen[u] {
				verr.Problems = append(verr.Problems, fmt.Sprintf("utterance %s missing from spk2utt", u))
			}
		}
	}

	var wav *Table
	if fileExists(filepath.Join(dir, WavScp)) {
		if wav, err = ReadWavScp(filepath.Join(dir, WavScp)); err != nil {
			return errors.Wrap(err, "validate")
		}
	}

	if fileExists(filepath.Join(dir, SegmentsFile)) {
		segs, err := ReadSegments(filepath.Join(dir, SegmentsFile))
		if err != nil {
			return errors.Wrap(err, "validate")
		}
		for _, s := range segs {
			if _, ok := utt2spk[s.Utt]; !ok {
				verr.Problems = append(verr.Problems, fmt.Sprintf("segment %s not in utt2spk", s.Utt))
			}
			if wav != nil {
				if _, ok := wav.Get(s.Reco); !ok {
					verr.Problems = append(verr.Problems, fmt.Sprintf("segment %s names recording %s absent from wav.scp", s.Utt, s.Reco))
				}
			}
		}
	} else if wav != nil {
		for _, u := range sortedKeys(utt2spk) {
			if _, ok := wav.Get(u); !ok {
				verr.Problems = append(verr.Problems, fmt.Sprintf("utterance %s absent from wav.scp", u))
			}
		}
	}

	if len(verr.Problems) > 0 {
		return verr
	}
	return nil
}
