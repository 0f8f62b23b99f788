// Package diarize refines a speaker clustering by training one HMM-GMM per
// recording, with one GMM per cluster, and Viterbi-resegmenting the
// recording with it.
package diarize

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Config holds the refinement options. The arg tags let a command parse it
// directly.
type Config struct {
	NumJobs            int     `arg:"--nj" help:"number of recordings to process in parallel"`
	UttJobs            int     `arg:"--utt-nj" help:"number of utterance jobs per recording"`
	Cmd                string  `arg:"--cmd" help:"job wrapper, e.g. run.pl or queue.pl"`
	Stage              int     `arg:"--stage" help:"run from this stage"`
	NumThreads         int     `arg:"--num-threads" help:"recordings refined concurrently"`
	NumIters           int     `arg:"--num-iters" help:"iterations of Viterbi resegmentation"`
	MaxIterInc         int     `arg:"--max-iter-inc" help:"iterations that increase the number of Gaussians"`
	NumGaussPerCluster float64 `arg:"--num-gauss-per-cluster" help:"average number of Gaussians per cluster"`
	Beam               int     `arg:"--beam" help:"decoding beam"`
	RetryBeam          int     `arg:"--retry-beam" help:"beam used when alignment fails"`
	MaxActive          int     `arg:"--max-active" help:"maximum active states in decoding"`
	Power              float64 `arg:"--power" help:"exponent for Gaussians per occupation count"`
	UpdateOpts         string  `arg:"--update-opts" help:"extra options for gmm-est"`
	TransitionScale    float64 `arg:"--transition-scale" help:"scale on transition probabilities"`
	SelfLoopScale      float64 `arg:"--self-loop-scale" help:"scale on self-loop probabilities"`
	AcousticScale      float64 `arg:"--acoustic-scale" help:"scale on acoustic likelihoods"`
	TransitionProb     float64 `arg:"--transition-prob" help:"HMM transition probability"`
	SelfLoopProb       float64 `arg:"--self-loop-prob" help:"HMM self-loop probability"`

	Data    string `arg:"--data,required" help:"clustered data directory"`
	Dir     string `arg:"--dir,required" help:"working directory for models"`
	OutData string `arg:"--out-data,required" help:"output data directory"`
}

// DefaultConfig returns the default options. Data, Dir and OutData are left
// empty.
func DefaultConfig() Config {
	return Config{
		NumJobs:            40,
		UttJobs:            80,
		Cmd:                "queue.pl",
		Stage:              -10,
		NumThreads:         8,
		NumIters:           5,
		MaxIterInc:         3,
		NumGaussPerCluster: 5,
		Beam:               10,
		RetryBeam:          40,
		MaxActive:          1000,
		Power:              0.25,
		TransitionScale:    1.0,
		SelfLoopScale:      0.1,
		AcousticScale:      0.1,
		TransitionProb:     0.9,
		SelfLoopProb:       0.1,
	}
}

// Validate checks the options. MaxIterInc is lowered to NumIters-2 when it
// is larger.
func (c *Config) Validate() error {
	if c.NumIters < 1 {
		return errors.Errorf("--num-iters must be at least 1, got %d", c.NumIters)
	}
	if c.MaxIterInc > c.NumIters-2 {
		log.Warnf("--max-iter-inc %d lowered to %d", c.MaxIterInc, c.NumIters-2)
		c.MaxIterInc = c.NumIters - 2
	}
	if c.NumThreads < 1 {
		return errors.Errorf("--num-threads must be at least 1, got %d", c.NumThreads)
	}
	if c.UttJobs < 1 {
		return errors.Errorf("--utt-nj must be at least 1, got %d", c.UttJobs)
	}
	if c.Cmd == "" {
		return errors.New("--cmd is required")
	}
	if c.Data == "" || c.Dir == "" || c.OutData == "" {
		return errors.New("--data, --dir and --out-data are required")
	}
	return nil
}
