package rttm

import (
	"fmt"
	"math"

	"github.com/pkg/errors"

	"github.com/ieee0824/speechdata-go/datadir"
)

// DefaultChannel is used when no reco2file_and_channel mapping is given.
const DefaultChannel = "1"

// FromSegments builds one SPEAKER record per segment. reco2fc may be nil,
// in which case the recording id is the file id on channel 1.
func FromSegments(utt2spk map[string]string, segs []datadir.Segment, reco2fc map[string]datadir.FileAndChannel) ([]Record, error) {
	recs := make([]Record, 0, len(segs))
	for _, s := range segs {
		spk, ok := utt2spk[s.Utt]
		if !ok {
			return nil, errors.Errorf("utterance %s not found in utt2spk", s.Utt)
		}
		file, channel, err := fileAndChannel(s.Reco, reco2fc)
		if err != nil {
			return nil, err
		}
		recs = append(recs, Speaker(file, channel, s.Start, s.End-s.Start, spk))
	}
	return recs, nil
}

// ToSegments turns records into utt2spk and segments. Utterance ids are
// <speaker>-<start centiseconds>-<end centiseconds>. reco2fc maps recordings
// to (file, channel); nil means the file id is the recording id.
func ToSegments(recs []Record, reco2fc map[string]datadir.FileAndChannel) (map[string]string, []datadir.Segment, error) {
	fc2reco := make(map[datadir.FileAndChannel]string, len(reco2fc))
	for reco, fc := range reco2fc {
		fc2reco[fc] = reco
	}

	utt2spk := make(map[string]string, len(recs))
	segs := make([]datadir.Segment, 0, len(recs))
	for _, r := range recs {
		reco := r.File
		if reco2fc != nil {
			var ok bool
			reco, ok = fc2reco[datadir.FileAndChannel{File: r.File, Channel: r.Channel}]
			if !ok {
				return nil, nil, errors.Errorf("no recording with (file_id, channel) = (%s, %s)", r.File, r.Channel)
			}
		}
		end := r.End()
		utt := fmt.Sprintf("%s-%06d-%06d", r.Speaker, centis(r.Start), centis(end))
		utt2spk[utt] = r.Speaker
		segs = append(segs, datadir.Segment{Utt: utt, Reco: reco, Start: r.Start, End: end})
	}
	return utt2spk, segs, nil
}

type labeled struct {
	start, end float64
	label      string
}

// FromLabels builds a diarization RTTM from segments and per-segment
// cluster labels. Within a recording, overlapping neighbours are split at
// the midpoint of the overlap and contiguous segments with the same label
// are merged.
func FromLabels(segs []datadir.Segment, labels map[string]string, reco2fc map[string]datadir.FileAndChannel) ([]Record, error) {
	var recos []string
	byReco := make(map[string][]labeled)
	for _, s := range segs {
		label, ok := labels[s.Utt]
		if !ok {
			return nil, errors.Errorf("segment %s has no label", s.Utt)
		}
		if _, seen := byReco[s.Reco]; !seen {
			recos = append(recos, s.Reco)
		}
		byReco[s.Reco] = append(byReco[s.Reco], labeled{start: s.Start, end: s.End, label: label})
	}

	var recs []Record
	for _, reco := range recos {
		file, channel, err := fileAndChannel(reco, reco2fc)
		if err != nil {
			return nil, err
		}
		for _, l := range mergeSameLabel(splitOverlaps(byReco[reco])) {
			recs = append(recs, Speaker(file, channel, l.start, math.Max(0, l.end-l.start), l.label))
		}
	}
	return recs, nil
}

func splitOverlaps(in []labeled) []labeled {
	out := make([]labeled, len(in))
	copy(out, in)
	for i := 0; i+1 < len(out); i++ {
		if out[i].end > out[i+1].start {
			mid := (out[i+1].start + out[i].end) / 2
			out[i].end = mid
			out[i+1].start = mid
		}
	}
	return out
}

func mergeSameLabel(in []labeled) []labeled {
	if len(in) == 0 {
		return nil
	}
	out := []labeled{in[0]}
	for _, l := range in[1:] {
		last := &out[len(out)-1]
		if last.end == l.start && last.label == l.label {
			last.end = l.end
			continue
		}
		out = append(out, l)
	}
	return out
}

func fileAndChannel(reco string, reco2fc map[string]datadir.FileAndChannel) (string, string, error) {
	if reco2fc == nil {
		return reco, DefaultChannel, nil
	}
	fc, ok := reco2fc[reco]
	if !ok {
		return "", "", errors.Errorf("recording %s not found in reco2file_and_channel", reco)
	}
	return fc.File, fc.Channel, nil
}

func centis(t float64) int {
	return int(math.Round(t * 100))
}
