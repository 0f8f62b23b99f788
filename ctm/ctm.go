// Package ctm reads and writes time-marked conversation files and tags
// their words with the edits of a reference alignment.
package ctm

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/ieee0824/speechdata-go/datadir"
)

// Entry is one CTM line. Ref and Edit are empty until the entry has been
// tagged by AppendEdits; Conf is nil when the line has no confidence.
type Entry struct {
	Utt      string
	Channel  string
	Begin    float64
	Duration float64
	Word     string
	Conf     *float64
	Ref      string
	Edit     string
}

// End returns Begin + Duration.
func (e Entry) End() float64 { return e.Begin + e.Duration }

// Tagged reports whether the entry carries an edit.
func (e Entry) Tagged() bool { return e.Edit != "" }

func (e Entry) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %.02f %.02f %s", e.Utt, e.Channel, e.Begin, e.Duration, e.Word)
	if e.Conf != nil {
		if e.Tagged() {
			fmt.Fprintf(&b, " %f", *e.Conf)
		} else {
			b.WriteString(" " + strconv.FormatFloat(*e.Conf, 'f', -1, 64))
		}
	}
	if e.Tagged() {
		fmt.Fprintf(&b, " %s %s", e.Ref, e.Edit)
	}
	return b.String()
}

// Read parses a CTM with 5 or 6 fields per line.
func Read(r io.Reader, name string) ([]Entry, error) {
	var out []Entry
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
		if len(parts) != 5 && len(parts) != 6 {
			return nil, &datadir.ParseError{File: name, Line: lineNum, Text: line, Msg: "expected 5 or 6 fields"}
		}
		begin, err1 := strconv.ParseFloat(parts[2], 64)
		dur, err2 := strconv.ParseFloat(parts[3], 64)
		if err1 != nil || err2 != nil {
			return nil, &datadir.ParseError{File: name, Line: lineNum, Text: line, Msg: "bad begin or duration"}
		}
		e := Entry{Utt: parts[0], Channel: parts[1], Begin: begin, Duration: dur, Word: parts[4]}
		if len(parts) == 6 {
			c, err := strconv.ParseFloat(parts[5], 64)
			if err != nil {
				return nil, &datadir.ParseError{File: name, Line: lineNum, Text: line, Msg: "bad confidence"}
			}
			e.Conf = &c
		}
		out = append(out, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "read %s", name)
	}
	return out, nil
}

// ReadFile opens and parses a CTM file.
func ReadFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f, path)
}

// Write writes entries one per line.
func Write(w io.Writer, entries []Entry) error {
	bw := bufio.NewWriter(w)
	for _, e := range entries {
		if _, err := fmt.Fprintln(bw, e.String()); err != nil {
			return err
		}
	}
	return bw.Flush()
}
