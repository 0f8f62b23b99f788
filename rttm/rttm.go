// Package rttm reads and writes RTTM speaker annotations and converts them
// to and from utt2spk / segments tables.
package rttm

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

// NA is the RTTM placeholder for an absent field.
const NA = "<NA>"

// Record is one RTTM line:
// TYPE FILE CHANNEL START DURATION ORTHO SUBTYPE SPEAKER CONF SLAT
type Record struct {
	Type       string
	File       string
	Channel    string
	Start      float64
	Duration   float64
	Ortho      string
	SubType    string
	Speaker    string
	Confidence string
	Slat       string
}

// End returns Start + Duration.
func (r Record) End() float64 {
	return r.Start + r.Duration
}

func (r Record) String() string {
	return fmt.Sprintf("%s %s %s %7.2f %7.2f %s %s %s %s %s",
		orNA(r.Type), r.File, r.Channel, r.Start, r.Duration,
		orNA(r.Ortho), orNA(r.SubType), r.Speaker, orNA(r.Confidence), orNA(r.Slat))
}

// Speaker builds a SPEAKER record with all optional fields set to <NA>.
func Speaker(file, channel string, start, dur float64, spk string) Record {
	return Record{
		Type: "SPEAKER", File: file, Channel: channel,
		Start: start, Duration: dur,
		Ortho: NA, SubType: NA, Speaker: spk, Confidence: NA, Slat: NA,
	}
}

// Parse reads SPEAKER records; other record types are skipped. name is
// used in error messages.
func Parse(r io.Reader, name string) ([]Record, error) {
	var recs []Record
	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 || parts[0] != "SPEAKER" {
			continue
		}
		if len(parts) < 8 {
			return nil, &datadir.ParseError{File: name, Line: lineNum, Text: line, Msg: "expected at least 8 fields"}
		}
		start, err1 := strconv.ParseFloat(parts[3], 64)
		dur, err2 := strconv.ParseFloat(parts[4], 64)
		if err1 != nil || err2 != nil {
			return nil, &datadir.ParseError{File: name, Line: lineNum, Text: line, Msg: "bad start/duration"}
		}
		rec := Record{
			Type: parts[0], File: parts[1], Channel: parts[2],
			Start: start, Duration: dur,
			Ortho: parts[5], SubType: parts[6], Speaker: parts[7],
			Confidence: NA, Slat: NA,
		}
		if len(parts) > 8 {
			rec.Confidence = parts[8]
		}
		if len(parts) > 9 {
			rec.Slat = parts[9]
		}
		recs = append(recs, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "read %s", name)
	}
	return recs, nil
}

// ReadFile opens and parses an RTTM file.
func ReadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f, path)
}

// Write writes records in order.
func Write(w io.Writer, recs []Record) error {
	bw := bufio.NewWriter(w)
	for _, r := range recs {
		fmt.Fprintln(bw, r.String())
	}
	return bw.Flush()
}

// WriteFile writes records to path.
func WriteFile(path string, recs []Record) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, recs); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func orNA(s string) string {
	if s == "" {
		return NA
	}
	return s
}
