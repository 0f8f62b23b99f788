package datadir

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// NewID returns the id of replica number copy (1-based). An empty prefix
// keeps the id unchanged.
func NewID(id, prefix string, copy int) string {
	if prefix == "" {
		return id
	}
	return fmt.Sprintf("%s%d_%s", prefix, copy, id)
}

// AddPrefix writes numReplicas copies of every line of r to w, renaming the
// listed zero-based fields with NewID. Comment lines (starting with ';')
// and blank lines are copied unchanged.
func AddPrefix(r io.Reader, w io.Writer, name string, numReplicas int, prefix string, fields []int) error {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 16*1024*1024)
	for scanner.Scan() {
		lines = append(lines, strings.TrimSpace(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "read %s", name)
	}

	bw := bufio.NewWriter(w)
	for i := 1; i <= numReplicas; i++ {
		for n, line := range lines {
			if line == "" || line[0] == ';' {
				fmt.Fprintln(bw, line)
				continue
			}
			parts := strings.Fields(line)
			for _, j := range fields {
				if j >= len(parts) {
					return &ParseError{File: name, Line: n + 1, Text: line, Msg: fmt.Sprintf("no field %d", j)}
				}
				parts[j] = NewID(parts[j], prefix, i)
			}
			fmt.Fprintln(bw, strings.Join(parts, " "))
		}
	}
	return bw.Flush()
}

// AddPrefixToFields is AddPrefix between two files.
func AddPrefixToFields(in, out string, numReplicas int, prefix string, fields []int) error {
	f, err := os.Open(in)
	if err != nil {
		return err
	}
	defer f.Close()
	return writeFile(out, func(w io.Writer) error {
		return AddPrefix(f, w, in, numReplicas, prefix, fields)
	})
}

// replicatedFiles lists optional data-dir files and the fields holding ids.
var replicatedFiles = []struct {
	name   string
	fields []int
}{
	{TextFile, []int{0}},
	{SegmentsFile, []int{0, 1}},
	{Reco2FileAndChannel, []int{0, 1}},
	{Reco2DurFile, []int{0}},
}

// ReplicateDataDir writes numReplicas renamed copies of the per-utterance
// files of in into out. spk2utt is regenerated and utt2uniq is created when
// the input has none. wav.scp is left to the caller.
func ReplicateDataDir(in, out string, numReplicas int, prefix string) error {
	if err := os.MkdirAll(out, 0755); err != nil {
		return err
	}

	if err := AddPrefixToFields(filepath.Join(in, Utt2SpkFile), filepath.Join(out, Utt2SpkFile), numReplicas, prefix, []int{0, 1}); err != nil {
		return err
	}
	utt2spk, err := ReadUtt2Spk(filepath.Join(out, Utt2SpkFile))
	if err != nil {
		return err
	}
	if err := writeFile(filepath.Join(out, Spk2UttFile), func(w io.Writer) error {
		return WriteSpk2Utt(w, utt2spk)
	}); err != nil {
		return err
	}

	if fileExists(filepath.Join(in, Utt2UniqFile)) {
		if err := AddPrefixToFields(filepath.Join(in, Utt2UniqFile), filepath.Join(out, Utt2UniqFile), numReplicas, prefix, []int{0}); err != nil {
			return err
		}
	} else if err := createUtt2Uniq(in, out, numReplicas, prefix); err != nil {
		return err
	}

	for _, rf := range replicatedFiles {
		src := filepath.Join(in, rf.name)
		if !fileExists(src) {
			continue
		}
		if err := AddPrefixToFields(src, filepath.Join(out, rf.name), numReplicas, prefix, rf.fields); err != nil {
			return err
		}
	}
	return nil
}

// createUtt2Uniq maps every replicated utterance back to its source id.
func createUtt2Uniq(in, out string, numReplicas int, prefix string) error {
	utt2spk, err := ReadUtt2Spk(filepath.Join(in, Utt2SpkFile))
	if err != nil {
		return err
	}
	uniq := make(map[string]string, len(utt2spk)*numReplicas)
	for i := 1; i <= numReplicas; i++ {
		for utt := range utt2spk {
			uniq[NewID(utt, prefix, i)] = utt
		}
	}
	return WritePairsFile(filepath.Join(out, Utt2UniqFile), uniq)
}
