package datadir

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Standard file names inside a data directory.
const (
	WavScp              = "wav.scp"
	Utt2SpkFile         = "utt2spk"
	Spk2UttFile         = "spk2utt"
	SegmentsFile        = "segments"
	Reco2DurFile        = "reco2dur"
	Reco2FileAndChannel = "reco2file_and_channel"
	Utt2UniqFile        = "utt2uniq"
	TextFile            = "text"
	Reco2UttFile        = "reco2utt"
)

// Segment is one line of a segments file:
// <utterance-id> <recording-id> <start> <end> [<channel>].
type Segment struct {
	Utt   string
	Reco  string
	Start float64
	End   float64
	Extra string
}

// Duration returns End - Start.
func (s Segment) Duration() float64 {
	return s.End - s.Start
}

func (s Segment) String() string {
	line := fmt.Sprintf("%s %s %.2f %.2f", s.Utt, s.Reco, s.Start, s.End)
	if s.Extra != "" {
		line += " " + s.Extra
	}
	return line
}

// FileAndChannel is the value side of reco2file_and_channel.
type FileAndChannel struct {
	File    string
	Channel string
}

// ParseSegments reads a segments file. Lines must have 4 or 5 fields and
// end must not precede start.
func ParseSegments(r io.Reader, name string) ([]Segment, error) {
	var segs []Segment
	err := scanLines(r, name, func(lineNum int, line string, parts []string) error {
		if len(parts) != 4 && len(parts) != 5 {
			return &ParseError{File: name, Line: lineNum, Text: line, Msg: "expected 4 or 5 fields"}
		}
		start, err1 := strconv.ParseFloat(parts[2], 64)
		end, err2 := strconv.ParseFloat(parts[3], 64)
		if err1 != nil || err2 != nil {
			return &ParseError{File: name, Line: lineNum, Text: line, Msg: "bad start/end time"}
		}
		if end < start {
			return &ParseError{File: name, Line: lineNum, Text: line, Msg: "end before start"}
		}
		seg := Segment{Utt: parts[0], Reco: parts[1], Start: start, End: end}
		if len(parts) == 5 {
			seg.Extra = parts[4]
		}
		segs = append(segs, seg)
		return nil
	})
	return segs, err
}

// ReadSegments opens and parses a segments file.
func ReadSegments(path string) ([]Segment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseSegments(f, path)
}

// WriteSegments writes segments in the given order.
func WriteSegments(w io.Writer, segs []Segment) error {
	bw := bufio.NewWriter(w)
	for _, s := range segs {
		fmt.Fprintln(bw, s.String())
	}
	return bw.Flush()
}

// WriteAlignedSegments writes segments with start and end right-aligned in
// seven columns, as segments converted from RTTM are written.
func WriteAlignedSegments(w io.Writer, segs []Segment) error {
	bw := bufio.NewWriter(w)
	for _, s := range segs {
		fmt.Fprintf(bw, "%s %s %7.2f %7.2f\n", s.Utt, s.Reco, s.Start, s.End)
	}
	return bw.Flush()
}

// WriteSubsegments writes segments relative to their parent utterance with
// millisecond times, the format subsegment_data_dir.sh reads.
func WriteSubsegments(w io.Writer, segs []Segment) error {
	bw := bufio.NewWriter(w)
	for _, s := range segs {
		fmt.Fprintf(bw, "%s %s %.3f %.3f\n", s.Utt, s.Reco, s.Start, s.End)
	}
	return bw.Flush()
}

// WriteSegmentsFile writes segments to path.
func WriteSegmentsFile(path string, segs []Segment) error {
	return writeFile(path, func(w io.Writer) error { return WriteSegments(w, segs) })
}

// ParseUtt2Spk reads a two-column utterance to speaker map.
func ParseUtt2Spk(r io.Reader, name string) (map[string]string, error) {
	return parsePairs(r, name)
}

// ReadUtt2Spk opens and parses an utt2spk file.
func ReadUtt2Spk(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseUtt2Spk(f, path)
}

// ParseReco2Dur reads recording durations in seconds.
func ParseReco2Dur(r io.Reader, name string) (map[string]float64, error) {
	out := make(map[string]float64)
	err := scanLines(r, name, func(lineNum int, line string, parts []string) error {
		if len(parts) != 2 {
			return &ParseError{File: name, Line: lineNum, Text: line, Msg: "expected 2 fields"}
		}
		d, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return &ParseError{File: name, Line: lineNum, Text: line, Msg: "bad duration"}
		}
		out[parts[0]] = d
		return nil
	})
	return out, err
}

// ReadReco2Dur opens and parses a reco2dur file.
func ReadReco2Dur(path string) (map[string]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseReco2Dur(f, path)
}

// WriteReco2Dur writes durations sorted by recording id.
func WriteReco2Dur(w io.Writer, durs map[string]float64) error {
	bw := bufio.NewWriter(w)
	for _, k := range sortedKeys(durs) {
		fmt.Fprintf(bw, "%s %s\n", k, strconv.FormatFloat(durs[k], 'f', -1, 64))
	}
	return bw.Flush()
}

// ParseReco2FileAndChannel reads <recording-id> <file-id> <channel> lines.
func ParseReco2FileAndChannel(r io.Reader, name string) (map[string]FileAndChannel, error) {
	out := make(map[string]FileAndChannel)
	err := scanLines(r, name, func(lineNum int, line string, parts []string) error {
		if len(parts) != 3 {
			return &ParseError{File: name, Line: lineNum, Text: line, Msg: "expected 3 fields"}
		}
		out[parts[0]] = FileAndChannel{File: parts[1], Channel: parts[2]}
		return nil
	})
	return out, err
}

// ReadReco2FileAndChannel opens and parses a reco2file_and_channel file.
func ReadReco2FileAndChannel(path string) (map[string]FileAndChannel, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseReco2FileAndChannel(f, path)
}

// ReadWavScp reads wav.scp, keeping the full value (a path or a pipe) per recording.
func ReadWavScp(path string) (*Table, error) {
	return ReadTable(path)
}

// WritePairs writes a two-column map sorted by key.
func WritePairs(w io.Writer, m map[string]string) error {
	bw := bufio.NewWriter(w)
	for _, k := range sortedKeys(m) {
		fmt.Fprintf(bw, "%s %s\n", k, m[k])
	}
	return bw.Flush()
}

// WritePairsFile writes a two-column map to path.
func WritePairsFile(path string, m map[string]string) error {
	return writeFile(path, func(w io.Writer) error { return WritePairs(w, m) })
}

// Spk2Utt inverts utt2spk. Speakers and their utterances are sorted.
func Spk2Utt(utt2spk map[string]string) map[string][]string {
	out := make(map[string][]string)
	for utt, spk := range utt2spk {
		out[spk] = append(out[spk], utt)
	}
	for _, utts := range out {
		sort.Strings(utts)
	}
	return out
}

// WriteSpk2Utt writes a spk2utt file derived from utt2spk.
func WriteSpk2Utt(w io.Writer, utt2spk map[string]string) error {
	spk2utt := Spk2Utt(utt2spk)
	bw := bufio.NewWriter(w)
	for _, spk := range sortedKeys(spk2utt) {
		fmt.Fprintf(bw, "%s %s\n", spk, strings.Join(spk2utt[spk], " "))
	}
	return bw.Flush()
}

// Reco2Utt groups segment utterances by recording, keeping file order.
func Reco2Utt(segs []Segment) (recos []string, utts map[string][]string) {
	utts = make(map[string][]string)
	for _, s := range segs {
		if _, ok := utts[s.Reco]; !ok {
			recos = append(recos, s.Reco)
		}
		utts[s.Reco] = append(utts[s.Reco], s.Utt)
	}
	return recos, utts
}

func parsePairs(r io.Reader, name string) (map[string]string, error) {
	out := make(map[string]string)
	err := scanLines(r, name, func(lineNum int, line string, parts []string) error {
		if len(parts) != 2 {
			return &ParseError{File: name, Line: lineNum, Text: line, Msg: "expected 2 fields"}
		}
		if _, dup := out[parts[0]]; dup {
			return &ParseError{File: name, Line: lineNum, Text: line, Msg: "duplicate key " + parts[0]}
		}
		out[parts[0]] = parts[1]
		return nil
	})
	return out, err
}

func scanLines(r io.Reader, name string, fn func(lineNum int, line string, parts []string) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 16*1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		if err := fn(lineNum, line, parts); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "read %s", name)
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
