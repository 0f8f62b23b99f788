package augment

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/ieee0824/speechdata-go/datadir"
	"github.com/ieee0824/speechdata-go/sampler"
)

// AddedNoise is one additive signal for wav-reverberate.
type AddedNoise struct {
	// Signal is an rspecifier pipe producing the noise.
	Signal    string
	StartTime float64
	SNR       float64
}

// Opts is the corruption chosen for one recording.
type Opts struct {
	ImpulseResponse string
	Noises          []AddedNoise
}

// ImpulseResponseOpts renders the --impulse-response option, or "".
func (o Opts) ImpulseResponseOpts() string {
	if o.ImpulseResponse == "" {
		return ""
	}
	return fmt.Sprintf("--impulse-response=\"%s\"", o.ImpulseResponse)
}

// AdditiveNoiseOpts renders the additive-signal options, or "".
func (o Opts) AdditiveNoiseOpts() string {
	if len(o.Noises) == 0 {
		return ""
	}
	signals := make([]string, len(o.Noises))
	starts := make([]string, len(o.Noises))
	snrs := make([]string, len(o.Noises))
	for i, n := range o.Noises {
		signals[i] = n.Signal
		starts[i] = formatNumber(n.StartTime)
		snrs[i] = formatNumber(n.SNR)
	}
	return fmt.Sprintf("--additive-signals='%s' --start-times='%s' --snrs='%s'",
		strings.Join(signals, ","), strings.Join(starts, ","), strings.Join(snrs, ","))
}

// String renders all wav-reverberate options.
func (o Opts) String() string {
	ir, noise := o.ImpulseResponseOpts(), o.AdditiveNoiseOpts()
	switch {
	case ir == "":
		return noise
	case noise == "":
		return ir
	}
	return ir + " " + noise
}

// Empty reports whether the recording is left unchanged.
func (o Opts) Empty() bool {
	return o.ImpulseResponse == "" && len(o.Noises) == 0
}

// formatNumber prints whole numbers with a trailing ".0" so that option
// values always read as floats.
func formatNumber(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEn") {
		s += ".0"
	}
	return s
}

// Planner draws corruption options for recordings. It is not safe for
// concurrent use.
type Planner struct {
	rand        *rand.Rand
	rooms       []sampler.Item[*Room]
	pointSource []sampler.Item[Noise]
	isotropic   map[string][]Noise
	foreground  *sampler.Cycle[float64]
	background  *sampler.Cycle[float64]

	speechRvbProbability float64
	isotropicProbability float64
	pointSourceProb      float64
}

// NewPlanner creates a planner over rooms and noises. All randomness comes
// from r.
func NewPlanner(cfg Config, r *rand.Rand, rooms []sampler.Item[*Room], pointSource []sampler.Item[Noise], isotropic map[string][]Noise) (*Planner, error) {
	if len(rooms) == 0 {
		return nil, errors.Wrap(sampler.ErrEmptySet, "no rooms")
	}
	fgSNRs, err := ParseSNRs(cfg.ForegroundSNRs)
	if err != nil {
		return nil, err
	}
	bgSNRs, err := ParseSNRs(cfg.BackgroundSNRs)
	if err != nil {
		return nil, err
	}
	fg, err := sampler.NewCycle(fgSNRs)
	if err != nil {
		return nil, err
	}
	bg, err := sampler.NewCycle(bgSNRs)
	if err != nil {
		return nil, err
	}
	return &Planner{
		rand:                 r,
		rooms:                rooms,
		pointSource:          pointSource,
		isotropic:            isotropic,
		foreground:           fg,
		background:           bg,
		speechRvbProbability: cfg.SpeechRvbProbability,
		isotropicProbability: cfg.IsotropicNoiseProbability,
		pointSourceProb:      cfg.PointSourceNoiseProbability,
	}, nil
}

// MaxNoises is the number of point-source noises allowed in a recording of
// duration seconds.
func MaxNoises(perMinute int, duration float64) int {
	return int(math.Ceil(float64(perMinute) * duration / 60))
}

// Plan draws the corruption of one recording. A room is drawn first, then
// an RIR within it. The speech is reverberated with that RIR, the room's
// isotropic noises are added at background SNRs, and up to maxNoises
// point-source noises are reverberated with RIRs of the same room and
// added, each step subject to its probability.
func (p *Planner) Plan(duration float64, maxNoises int) (Opts, error) {
	var opts Opts
	room, err := sampler.Choose(p.rand, p.rooms)
	if err != nil {
		return opts, errors.Wrap(err, "choose room")
	}
	rir, err := sampler.Choose(p.rand, room.RIRs)
	if err != nil {
		return opts, errors.Wrapf(err, "choose RIR in room %s", room.ID)
	}
	if p.rand.Float64() < p.speechRvbProbability {
		opts.ImpulseResponse = rir.Rspecifier
	}

	dur := formatNumber(duration)
	if iso := p.isotropic[rir.RoomID]; len(iso) > 0 && p.rand.Float64() < p.isotropicProbability {
		for _, n := range iso {
			var signal string
			if datadir.IsPipe(n.Rspecifier) {
				signal = fmt.Sprintf("%s wav-reverberate --duration=%s - - |", n.Rspecifier, dur)
			} else {
				signal = fmt.Sprintf("wav-reverberate --duration=%s %s - |", dur, n.Rspecifier)
			}
			opts.Noises = append(opts.Noises, AddedNoise{Signal: signal, SNR: p.background.Next()})
		}
	}

	if len(p.pointSource) > 0 && p.rand.Float64() < p.pointSourceProb && maxNoises >= 1 {
		count := p.rand.Intn(maxNoises) + 1
		for k := 0; k < count; k++ {
			n, err := p.pointSourceNoise(room, duration, dur)
			if err != nil {
				return opts, err
			}
			opts.Noises = append(opts.Noises, n)
		}
	}
	return opts, nil
}

func (p *Planner) pointSourceNoise(room *Room, duration float64, dur string) (AddedNoise, error) {
	noise, err := sampler.Choose(p.rand, p.pointSource)
	if err != nil {
		return AddedNoise{}, errors.Wrap(err, "choose point-source noise")
	}
	noiseRIR, err := sampler.Choose(p.rand, room.RIRs)
	if err != nil {
		return AddedNoise{}, errors.Wrapf(err, "choose noise RIR in room %s", room.ID)
	}

	var added AddedNoise
	var command string
	if noise.BgFgType == Background {
		command = fmt.Sprintf("wav-reverberate --impulse-response=\"%s\" --duration=%s", noiseRIR.Rspecifier, dur)
		added.SNR = p.background.Next()
	} else {
		command = fmt.Sprintf("wav-reverberate --impulse-response=\"%s\"", noiseRIR.Rspecifier)
		added.StartTime = math.Round(p.rand.Float64()*duration*100) / 100
		added.SNR = p.foreground.Next()
	}
	if datadir.IsPipe(noise.Rspecifier) {
		added.Signal = fmt.Sprintf("%s %s - - |", noise.Rspecifier, command)
	} else {
		added.Signal = fmt.Sprintf("%s %s - |", command, noise.Rspecifier)
	}
	return added, nil
}
