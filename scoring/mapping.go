// Package scoring evaluates diarization clusterings from the speaker
// mapping produced by md-eval.
package scoring

import (
	"bufio"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
)

// MappingRow is one line of an md-eval speaker mapping CSV.
type MappingRow struct {
	File        string  `csv:"File"`
	Channel     string  `csv:"Channel"`
	RefSpeaker  string  `csv:"RefSpeaker"`
	SysSpeaker  string  `csv:"SysSpeaker"`
	IsMapped    string  `csv:"isMapped"`
	TimeOverlap float64 `csv:"timeOverlap"`
}

// ReadMapping parses a mapping CSV. The first line is a header and is
// skipped regardless of its column names.
func ReadMapping(r io.Reader) ([]MappingRow, error) {
	br := bufio.NewReader(r)
	if _, err := br.ReadString('\n'); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, errors.Wrap(err, "read mapping header")
	}

	var body strings.Builder
	if _, err := io.Copy(&body, br); err != nil {
		return nil, errors.Wrap(err, "read mapping")
	}
	if strings.TrimSpace(body.String()) == "" {
		return nil, nil
	}

	var rows []MappingRow
	if err := gocsv.UnmarshalWithoutHeaders(strings.NewReader(body.String()), &rows); err != nil {
		return nil, errors.Wrap(err, "parse mapping")
	}
	return rows, nil
}

// ReadMappingFile opens and parses a mapping CSV.
func ReadMappingFile(path string) ([]MappingRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	rows, err := ReadMapping(f)
	return rows, errors.Wrap(err, path)
}

type pair struct {
	ref, sys string
}

// overlapTable accumulates overlap time per (ref, sys) pair.
type overlapTable struct {
	refTime  map[string]float64
	refToSys map[string][]string
	pairTime map[pair]float64
}

func buildOverlaps(rows []MappingRow) *overlapTable {
	t := &overlapTable{
		refTime:  make(map[string]float64),
		refToSys: make(map[string][]string),
		pairTime: make(map[pair]float64),
	}
	for _, r := range rows {
		p := pair{r.RefSpeaker, r.SysSpeaker}
		if _, seen := t.pairTime[p]; !seen {
			t.refToSys[r.RefSpeaker] = append(t.refToSys[r.RefSpeaker], r.SysSpeaker)
		}
		t.refTime[r.RefSpeaker] += r.TimeOverlap
		t.pairTime[p] += r.TimeOverlap
	}
	return t
}

func (t *overlapTable) refs() []string {
	refs := make([]string, 0, len(t.refToSys))
	for ref := range t.refToSys {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	return refs
}

// best returns the system speaker with the most overlap with ref, the
// overlap itself and the total overlap over all system speakers. Ties go
// to the lexicographically larger speaker.
func (t *overlapTable) best(ref string) (sys string, max, total float64) {
	first := true
	for _, s := range t.refToSys[ref] {
		v := t.pairTime[pair{ref, s}]
		total += v
		if first || v > max || (v == max && s > sys) {
			sys, max, first = s, v, false
		}
	}
	return sys, max, total
}
