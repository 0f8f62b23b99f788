package augment

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/ieee0824/speechdata-go/audio"
	"github.com/ieee0824/speechdata-go/datadir"
	"github.com/ieee0824/speechdata-go/sampler"
	"github.com/ieee0824/speechdata-go/toolkit"
)

// WavScps are the wav.scp tables of one corruption run. Reverb and Additive
// are nil unless the corresponding output directory was requested.
type WavScps struct {
	Corrupted *datadir.Table
	Reverb    *datadir.Table
	Additive  *datadir.Table
}

// GenerateWavScp plans every replica of every recording, in sorted
// recording order, and builds the wav-reverberate pipes.
func GenerateWavScp(p *Planner, wavScp *datadir.Table, durations map[string]float64, cfg Config) (*WavScps, error) {
	out := &WavScps{Corrupted: datadir.NewTable()}
	if cfg.OutputReverbDir != "" {
		out.Reverb = datadir.NewTable()
	}
	if cfg.OutputAdditiveNoiseDir != "" {
		out.Additive = datadir.NewTable()
	}
	shift := "false"
	if cfg.ShiftOutput {
		shift = "true"
	}

	recos := wavScp.SortedKeys()
	for i := 1; i <= cfg.NumReplicas; i++ {
		for _, reco := range recos {
			spec, _ := wavScp.Value(reco)
			pipe := datadir.AsPipe(spec)
			dur, ok := durations[reco]
			if !ok {
				return nil, errors.Errorf("no duration for recording %s", reco)
			}

			opts, err := p.Plan(dur, MaxNoises(cfg.MaxNoisesPerMinute, dur))
			if err != nil {
				return nil, errors.Wrapf(err, "plan %s", reco)
			}
			id := datadir.NewID(reco, cfg.Prefix, i)

			if opts.Empty() {
				out.Corrupted.Set(id, pipe)
			} else {
				out.Corrupted.Set(id, fmt.Sprintf("%s wav-reverberate --shift-output=%s %s - - |", pipe, shift, opts))
			}

			if out.Reverb != nil {
				if opts.ImpulseResponse == "" {
					out.Reverb.Set(id, pipe)
				} else {
					out.Reverb.Set(id, fmt.Sprintf("%s wav-reverberate --shift-output=%s --reverb-out-wxfilename=- %s - /dev/null |", pipe, shift, opts))
				}
			}
			if out.Additive != nil && len(opts.Noises) > 0 {
				out.Additive.Set(id, fmt.Sprintf("%s wav-reverberate --shift-output=%s --additive-noise-out-wxfilename=- %s - /dev/null |", pipe, shift, opts))
			}
		}
	}
	return out, nil
}

// CreateReverberatedCopy writes a corrupted copy of the data directory in
// to out, plus the optional reverberation-only and noise-only directories.
// Recording durations come from in/reco2dur; when it is missing they are
// measured and the file is written to in. tool runs wav-to-duration for
// sources that cannot be probed natively.
func CreateReverberatedCopy(ctx context.Context, cfg Config, in, out string, tool toolkit.Tool) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	for _, dir := range []string{out, cfg.OutputReverbDir, cfg.OutputAdditiveNoiseDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	rooms, pointSource, isotropic, err := loadLists(cfg)
	if err != nil {
		return err
	}

	wavScp, err := datadir.ReadWavScp(filepath.Join(in, datadir.WavScp))
	if err != nil {
		return err
	}
	durations, err := recordingDurations(ctx, in, wavScp, tool)
	if err != nil {
		return err
	}

	planner, err := NewPlanner(cfg, rand.New(rand.NewSource(cfg.RandomSeed)), rooms, pointSource, isotropic)
	if err != nil {
		return err
	}
	scps, err := GenerateWavScp(planner, wavScp, durations, cfg)
	if err != nil {
		return err
	}
	log.Infof("generated %s corrupted recordings", humanize.Comma(int64(scps.Corrupted.Len())))

	outputs := []struct {
		dir string
		scp *datadir.Table
	}{
		{out, scps.Corrupted},
		{cfg.OutputReverbDir, scps.Reverb},
		{cfg.OutputAdditiveNoiseDir, scps.Additive},
	}
	for _, o := range outputs {
		if o.dir == "" {
			continue
		}
		if err := o.scp.WriteFile(filepath.Join(o.dir, datadir.WavScp)); err != nil {
			return err
		}
		if err := datadir.ReplicateDataDir(in, o.dir, cfg.NumReplicas, cfg.Prefix); err != nil {
			return errors.Wrapf(err, "replicate %s into %s", in, o.dir)
		}
	}
	return datadir.Validate(out)
}

func loadLists(cfg Config) ([]sampler.Item[*Room], []sampler.Item[Noise], map[string][]Noise, error) {
	rirSets, err := ParseSetParameters(cfg.RIRSets)
	if err != nil {
		return nil, nil, nil, err
	}
	rirs, err := ParseRIRList(rirSets, cfg.RIRSmoothingWeight, cfg.SourceSamplingRate)
	if err != nil {
		return nil, nil, nil, err
	}
	log.Infof("number of RIRs is %d", len(rirs))

	var pointSource []sampler.Item[Noise]
	isotropic := map[string][]Noise{}
	if len(cfg.NoiseSets) > 0 {
		noiseSets, err := ParseSetParameters(cfg.NoiseSets)
		if err != nil {
			return nil, nil, nil, err
		}
		pointSource, isotropic, err = ParseNoiseList(noiseSets, cfg.NoiseSmoothingWeight, cfg.SourceSamplingRate)
		if err != nil {
			return nil, nil, nil, err
		}
		var numIso int
		for _, ns := range isotropic {
			numIso += len(ns)
		}
		log.Infof("number of point-source noises is %d", len(pointSource))
		log.Infof("number of isotropic noises is %d", numIso)
	}

	rooms, err := MakeRooms(rirs)
	if err != nil {
		return nil, nil, nil, err
	}
	return rooms, pointSource, isotropic, nil
}

func recordingDurations(ctx context.Context, in string, wavScp *datadir.Table, tool toolkit.Tool) (map[string]float64, error) {
	path := filepath.Join(in, datadir.Reco2DurFile)
	if _, err := os.Stat(path); err == nil {
		return datadir.ReadReco2Dur(path)
	}
	log.Info("getting the duration of the recordings")
	durs, err := audio.Durations(ctx, wavScp, tool)
	if err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	if err := datadir.WriteReco2Dur(f, durs); err != nil {
		f.Close()
		return nil, err
	}
	return durs, f.Close()
}

// NoiseListFromWavScp turns every wav.scp entry into a foreground
// point-source noise list line.
func NoiseListFromWavScp(wavScp *datadir.Table) []string {
	lines := make([]string, 0, wavScp.Len())
	for _, reco := range wavScp.Keys() {
		fields, _ := wavScp.Get(reco)
		lines = append(lines, fmt.Sprintf(`--noise-id %s --noise-type %s --bg-fg-type %s "%s"`,
			reco, PointSource, Foreground, strings.Join(fields, " ")))
	}
	return lines
}
