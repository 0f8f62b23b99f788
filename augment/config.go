// Package augment plans reverberation and additive-noise corruption of a
// data directory. The signal processing itself is left to wav-reverberate;
// this package only decides which impulse responses and noises go where
// and writes the resulting wav.scp pipes.
package augment

import (
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// DefaultPrefix is used for replica ids when several replicas are made and
// no prefix was given.
const DefaultPrefix = "rvb"

// Config holds the parameters of a reverberation run.
type Config struct {
	// RIRSets and NoiseSets hold "weight, list-file" or "list-file" strings.
	RIRSets   []string `yaml:"rir_set_parameters"`
	NoiseSets []string `yaml:"noise_set_parameters"`

	NumReplicas    int    `yaml:"num_replications"`
	ForegroundSNRs string `yaml:"foreground_snrs"`
	BackgroundSNRs string `yaml:"background_snrs"`
	Prefix         string `yaml:"prefix"`

	SpeechRvbProbability        float64 `yaml:"speech_rvb_probability"`
	PointSourceNoiseProbability float64 `yaml:"pointsource_noise_addition_probability"`
	IsotropicNoiseProbability   float64 `yaml:"isotropic_noise_addition_probability"`
	RIRSmoothingWeight          float64 `yaml:"rir_smoothing_weight"`
	NoiseSmoothingWeight        float64 `yaml:"noise_smoothing_weight"`
	MaxNoisesPerMinute          int     `yaml:"max_noises_per_minute"`

	RandomSeed  int64 `yaml:"random_seed"`
	ShiftOutput bool  `yaml:"shift_output"`
	// SourceSamplingRate resamples RIRs and noises when positive; 0 leaves
	// them untouched.
	SourceSamplingRate int `yaml:"source_sampling_rate"`

	OutputAdditiveNoiseDir string `yaml:"output_additive_noise_dir"`
	OutputReverbDir        string `yaml:"output_reverb_dir"`
}

// DefaultConfig returns the stock parameters.
func DefaultConfig() Config {
	return Config{
		NumReplicas:                 1,
		ForegroundSNRs:              "20:10:0",
		BackgroundSNRs:              "20:10:0",
		SpeechRvbProbability:        1,
		PointSourceNoiseProbability: 1,
		IsotropicNoiseProbability:   1,
		RIRSmoothingWeight:          0.3,
		NoiseSmoothingWeight:        0.3,
		MaxNoisesPerMinute:          2,
		ShiftOutput:                 true,
	}
}

// LoadConfig reads a YAML file on top of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return cfg, errors.Wrapf(err, "decode %s", path)
	}
	return cfg, nil
}

// Validate checks ranges and fills the prefix when several replicas are
// requested without one.
func (c *Config) Validate() error {
	if len(c.RIRSets) == 0 {
		return errors.New("at least one RIR set is required")
	}
	if c.NumReplicas <= 0 {
		return errors.New("number of replications cannot be non-positive")
	}
	if c.NumReplicas > 1 && c.Prefix == "" {
		c.Prefix = DefaultPrefix
		log.Warnf("prefix is set to %q as the number of replications is larger than 1", DefaultPrefix)
	}
	probs := []struct {
		name string
		v    float64
	}{
		{"speech reverberation probability", c.SpeechRvbProbability},
		{"point-source noise addition probability", c.PointSourceNoiseProbability},
		{"isotropic noise addition probability", c.IsotropicNoiseProbability},
		{"RIR smoothing weight", c.RIRSmoothingWeight},
		{"noise smoothing weight", c.NoiseSmoothingWeight},
	}
	for _, p := range probs {
		if p.v < 0 || p.v > 1 {
			return errors.Errorf("%s must be between 0 and 1, got %v", p.name, p.v)
		}
	}
	if c.MaxNoisesPerMinute < 0 {
		return errors.New("max noises per minute cannot be negative")
	}
	if c.SourceSamplingRate < 0 {
		return errors.New("source sampling rate cannot be negative")
	}
	if _, err := ParseSNRs(c.ForegroundSNRs); err != nil {
		return errors.Wrap(err, "foreground SNRs")
	}
	if _, err := ParseSNRs(c.BackgroundSNRs); err != nil {
		return errors.Wrap(err, "background SNRs")
	}
	return nil
}

// ParseSNRs parses a colon-separated list such as "20:10:0".
func ParseSNRs(s string) ([]float64, error) {
	parts := strings.Split(s, ":")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, errors.Errorf("bad SNR %q in %q", p, s)
		}
		out = append(out, v)
	}
	return out, nil
}
