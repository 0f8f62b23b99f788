package datadir

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/pkg/errors"
)

// PadSegments widens every segment by left and right seconds. Starts are
// clamped at zero and ends at the recording length when recoLengths has it.
func PadSegments(segs []Segment, left, right float64, recoLengths map[string]float64) []Segment {
	out := make([]Segment, len(segs))
	for i, s := range segs {
		limit := math.Inf(1)
		if l, ok := recoLengths[s.Reco]; ok {
			limit = l
		}
		s.Start = math.Max(0, s.Start-left)
		s.End = math.Min(s.End+right, limit)
		out[i] = s
	}
	return out
}

// ChunkOptions controls RandomChunks.
type ChunkOptions struct {
	MinDuration          float64
	MaxDuration          float64
	IntersegmentDuration float64
}

// DefaultChunkOptions returns 1-5 second chunks separated by 0.5 seconds.
func DefaultChunkOptions() ChunkOptions {
	return ChunkOptions{MinDuration: 1, MaxDuration: 5, IntersegmentDuration: 0.5}
}

// Validate checks the chunk duration bounds.
func (o ChunkOptions) Validate() error {
	if o.MinDuration < 0.1 {
		return errors.Errorf("min chunk duration %v must be >= 0.1", o.MinDuration)
	}
	if o.MaxDuration == 0 || o.MaxDuration < o.MinDuration {
		return errors.Errorf("max chunk duration %v must be > min chunk duration %v", o.MaxDuration, o.MinDuration)
	}
	if o.IntersegmentDuration < 0 {
		return errors.Errorf("intersegment duration %v is negative", o.IntersegmentDuration)
	}
	return nil
}

// RandomChunks cuts each segment into random sub-segments. The returned
// segments are relative to their parent utterance: Reco holds the parent
// utterance id and times are offsets into it. Chunk ids carry the times in
// truncated centiseconds; write chunks with WriteSubsegments.
func RandomChunks(r *rand.Rand, segs []Segment, opts ChunkOptions) ([]Segment, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	var out []Segment
	for _, s := range segs {
		dur := s.Duration()
		start := r.Float64() * dur * 0.1
		for start < dur-opts.MinDuration {
			extra := r.Float64() * (opts.MaxDuration - opts.MinDuration)
			end := start + math.Min(opts.MinDuration+extra, dur-start)
			out = append(out, Segment{
				Utt:   fmt.Sprintf("%s-%06d-%06d", s.Utt, int(start*100), int(end*100)),
				Reco:  s.Utt,
				Start: start,
				End:   end,
			})
			start = end + opts.IntersegmentDuration
		}
	}
	return out, nil
}
