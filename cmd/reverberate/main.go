// Command reverberate makes a reverberated and noise-corrupted copy of a
// data directory.
package main

import (
	"context"

	"github.com/alexflint/go-arg"

	speechdata "github.com/ieee0824/speechdata-go"
	"github.com/ieee0824/speechdata-go/augment"
	"github.com/ieee0824/speechdata-go/internal/cmdutil"
)

// args overrides the YAML configuration; nil fields were not given.
type args struct {
	cmdutil.Common
	Config string `arg:"--config" help:"YAML file with the corruption parameters"`

	RIRSets            []string `arg:"--rir-set-parameters" help:"RIR lists as \"weight, file\" or \"file\""`
	NoiseSets          []string `arg:"--noise-set-parameters" help:"noise lists as \"weight, file\" or \"file\""`
	NumReplicas        *int     `arg:"--num-replications" help:"number of corrupted copies"`
	ForegroundSNRs     *string  `arg:"--foreground-snrs" help:"colon-separated SNRs for foreground noises"`
	BackgroundSNRs     *string  `arg:"--background-snrs" help:"colon-separated SNRs for background noises"`
	Prefix             *string  `arg:"--prefix" help:"prefix of the replica ids"`
	SpeechRvb          *float64 `arg:"--speech-rvb-probability" help:"probability of reverberating the speech"`
	PointSource        *float64 `arg:"--pointsource-noise-addition-probability" help:"probability of adding point-source noises"`
	Isotropic          *float64 `arg:"--isotropic-noise-addition-probability" help:"probability of adding isotropic noises"`
	RIRSmoothing       *float64 `arg:"--rir-smoothing-weight" help:"smoothing weight of the RIR probabilities"`
	NoiseSmoothing     *float64 `arg:"--noise-smoothing-weight" help:"smoothing weight of the noise probabilities"`
	MaxNoises          *int     `arg:"--max-noises-per-minute" help:"maximum point-source noises per minute"`
	RandomSeed         *int64   `arg:"--random-seed" help:"seed for the random choices"`
	ShiftOutput        *bool    `arg:"--shift-output" help:"shift the output by the RIR peak, --shift-output=false to disable"`
	SourceSamplingRate *int     `arg:"--source-sampling-rate" help:"resample RIRs and noises to this rate"`
	OutputAdditiveDir  *string  `arg:"--output-additive-noise-dir" help:"also write the additive-noise part here"`
	OutputReverbDir    *string  `arg:"--output-reverb-dir" help:"also write the reverberated part here"`

	InputDir  string `arg:"positional,required" help:"input data directory"`
	OutputDir string `arg:"positional,required" help:"output data directory"`
}

func (args) Description() string {
	return "Reverberates and adds noise to the recordings of a data directory."
}

func config(a args) (augment.Config, error) {
	cfg := augment.DefaultConfig()
	if a.Config != "" {
		var err error
		if cfg, err = augment.LoadConfig(a.Config); err != nil {
			return cfg, err
		}
	}
	if a.RIRSets != nil {
		cfg.RIRSets = a.RIRSets
	}
	if a.NoiseSets != nil {
		cfg.NoiseSets = a.NoiseSets
	}
	set(&cfg.NumReplicas, a.NumReplicas)
	set(&cfg.ForegroundSNRs, a.ForegroundSNRs)
	set(&cfg.BackgroundSNRs, a.BackgroundSNRs)
	set(&cfg.Prefix, a.Prefix)
	set(&cfg.SpeechRvbProbability, a.SpeechRvb)
	set(&cfg.PointSourceNoiseProbability, a.PointSource)
	set(&cfg.IsotropicNoiseProbability, a.Isotropic)
	set(&cfg.RIRSmoothingWeight, a.RIRSmoothing)
	set(&cfg.NoiseSmoothingWeight, a.NoiseSmoothing)
	set(&cfg.MaxNoisesPerMinute, a.MaxNoises)
	set(&cfg.RandomSeed, a.RandomSeed)
	set(&cfg.ShiftOutput, a.ShiftOutput)
	set(&cfg.SourceSamplingRate, a.SourceSamplingRate)
	set(&cfg.OutputAdditiveNoiseDir, a.OutputAdditiveDir)
	set(&cfg.OutputReverbDir, a.OutputReverbDir)
	return cfg, nil
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func main() {
	var a args
	arg.MustParse(&a)
	cmdutil.Init(a.Common)

	cfg, err := config(a)
	cmdutil.Fail(err)
	r, err := speechdata.NewReverberator(speechdata.WithConfig(cfg))
	cmdutil.Fail(err)
	cmdutil.Fail(r.CorruptDataDir(context.Background(), a.InputDir, a.OutputDir))
}
