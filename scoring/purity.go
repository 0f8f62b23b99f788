package scoring

import (
	"fmt"
	"sort"

	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
)

// SilenceSpeaker is the system speaker assigned to reference speakers that
// no system cluster overlaps.
const SilenceSpeaker = "Silence"

// Purity of one reference speaker: the share of its time covered by the
// single best-matching system cluster.
type Purity struct {
	Ref     string
	Best    string
	Overlap float64
	RefTime float64
	Purity  float64
}

func (p Purity) String() string {
	return fmt.Sprintf("%s %.3f = %v / %v", p.Ref, p.Purity, p.Overlap, p.RefTime)
}

// ClusterPurity computes per-reference-speaker purity, sorted by speaker.
// Speakers with zero reference time get purity 0.
func ClusterPurity(rows []MappingRow) []Purity {
	t := buildOverlaps(rows)
	out := make([]Purity, 0, len(t.refToSys))
	for _, ref := range t.refs() {
		sys, max, _ := t.best(ref)
		p := Purity{Ref: ref, Best: sys, Overlap: max, RefTime: t.refTime[ref]}
		if p.RefTime > 0 {
			p.Purity = max / p.RefTime
		}
		out = append(out, p)
	}
	return out
}

// Summary aggregates purities over reference speakers.
type Summary struct {
	Speakers int
	Mean     float64
	Median   float64
	Min      float64
	// Weighted is total best overlap divided by total reference time.
	Weighted float64
}

// Summarize computes summary statistics of a purity list.
func Summarize(ps []Purity) (Summary, error) {
	if len(ps) == 0 {
		return Summary{}, errors.New("no speakers to summarize")
	}
	vals := make([]float64, len(ps))
	var overlap, refTime float64
	for i, p := range ps {
		vals[i] = p.Purity
		overlap += p.Overlap
		refTime += p.RefTime
	}

	s := Summary{Speakers: len(ps)}
	var err error
	if s.Mean, err = stats.Mean(vals); err != nil {
		return Summary{}, errors.Wrap(err, "mean purity")
	}
	if s.Median, err = stats.Median(vals); err != nil {
		return Summary{}, errors.Wrap(err, "median purity")
	}
	if s.Min, err = stats.Min(vals); err != nil {
		return Summary{}, errors.Wrap(err, "min purity")
	}
	if refTime > 0 {
		s.Weighted = overlap / refTime
	}
	return s, nil
}

// Mapping assigns a reference speaker to its best system speaker.
// OverlapFraction is the share of the reference speaker's mapped time that
// falls on other system speakers.
type Mapping struct {
	Ref             string
	Sys             string
	OverlapFraction float64
}

// BestMapping maps every reference speaker to the system speaker it
// overlaps most. Speakers listed in refSpeakers that never appear in rows
// map to SilenceSpeaker. The result is sorted by reference speaker.
func BestMapping(rows []MappingRow, refSpeakers []string) []Mapping {
	t := buildOverlaps(rows)
	byRef := make(map[string]Mapping)
	for _, ref := range refSpeakers {
		byRef[ref] = Mapping{Ref: ref, Sys: SilenceSpeaker}
	}
	for _, ref := range t.refs() {
		sys, max, total := t.best(ref)
		m := Mapping{Ref: ref, Sys: sys}
		if total > 0 {
			m.OverlapFraction = 1 - max/total
		}
		byRef[ref] = m
	}

	out := make([]Mapping, 0, len(byRef))
	for _, m := range byRef {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ref < out[j].Ref })
	return out
}
