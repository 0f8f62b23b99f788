package speechdata

import (
	"context"

	"github.com/pkg/errors"

	"github.com/ieee0824/speechdata-go/augment"
	"github.com/ieee0824/speechdata-go/diarize"
	"github.com/ieee0824/speechdata-go/toolkit"
)

// Reverberator makes corrupted copies of data directories.
type Reverberator struct {
	Config augment.Config
	// Tool runs wav-to-duration for recordings that cannot be probed natively.
	Tool toolkit.Tool
}

// Option configures a Reverberator.
type Option func(*Reverberator)

// WithConfig replaces the whole configuration.
func WithConfig(cfg augment.Config) Option {
	return func(r *Reverberator) {
		r.Config = cfg
	}
}

// WithRIRSets sets the RIR lists ("weight, file" or "file").
func WithRIRSets(sets ...string) Option {
	return func(r *Reverberator) {
		r.Config.RIRSets = sets
	}
}

// WithNoiseSets sets the noise lists ("weight, file" or "file").
func WithNoiseSets(sets ...string) Option {
	return func(r *Reverberator) {
		r.Config.NoiseSets = sets
	}
}

// WithReplicas makes n copies of every recording, with ids prefixed by
// prefix and the replica number.
func WithReplicas(n int, prefix string) Option {
	return func(r *Reverberator) {
		r.Config.NumReplicas = n
		r.Config.Prefix = prefix
	}
}

// WithSeed seeds the random choices.
func WithSeed(seed int64) Option {
	return func(r *Reverberator) {
		r.Config.RandomSeed = seed
	}
}

// WithTool sets the tool used for external commands.
func WithTool(tool toolkit.Tool) Option {
	return func(r *Reverberator) {
		r.Tool = tool
	}
}

// NewReverberator creates a Reverberator from the default configuration.
func NewReverberator(opts ...Option) (*Reverberator, error) {
	r := &Reverberator{
		Config: augment.DefaultConfig(),
		Tool:   toolkit.Exec{},
	}
	for _, opt := range opts {
		opt(r)
	}
	if err := r.Config.Validate(); err != nil {
		return nil, errors.Wrap(err, "reverberation config")
	}
	return r, nil
}

// NewReverberatorFromFile creates a Reverberator from a YAML configuration;
// opts are applied on top of it.
func NewReverberatorFromFile(path string, opts ...Option) (*Reverberator, error) {
	cfg, err := augment.LoadConfig(path)
	if err != nil {
		return nil, errors.Wrap(err, "load reverberation config")
	}
	return NewReverberator(append([]Option{WithConfig(cfg)}, opts...)...)
}

// CorruptDataDir writes a corrupted copy of the data directory in to out.
func (r *Reverberator) CorruptDataDir(ctx context.Context, in, out string) error {
	return augment.CreateReverberatedCopy(ctx, r.Config, in, out, r.Tool)
}

// RefineDiarization refines the clustering in cfg.Data into cfg.OutData,
// running the toolkit through a bash shell.
func RefineDiarization(ctx context.Context, cfg diarize.Config) error {
	refiner, err := diarize.NewRefiner(cfg, toolkit.Shell{})
	if err != nil {
		return err
	}
	return refiner.Run(ctx)
}
