package augment

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"github.com/alexflint/go-arg"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/ieee0824/speechdata-go/datadir"
	"github.com/ieee0824/speechdata-go/sampler"
)

// Noise types and placements accepted in noise lists.
const (
	Isotropic   = "isotropic"
	PointSource = "point-source"
	Background  = "background"
	Foreground  = "foreground"
)

// SetParameter is one RIR or noise list file with its mixture weight.
type SetParameter struct {
	Filename    string
	Probability *float64
}

// ParseSetParameters parses "0.3, rir_list" or "rir_list" strings, checks
// that the files exist and completes the mixture weights so they sum to 1.
func ParseSetParameters(params []string) ([]SetParameter, error) {
	items := make([]sampler.Item[string], 0, len(params))
	for _, p := range params {
		parts := strings.Split(p, ",")
		var it sampler.Item[string]
		if len(parts) == 2 {
			w, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
			if err != nil {
				return nil, errors.Errorf("bad mixture weight in set parameter %q", p)
			}
			it = sampler.Item[string]{Value: strings.TrimSpace(parts[1]), Probability: sampler.Prob(w)}
		} else {
			it = sampler.Item[string]{Value: strings.TrimSpace(parts[0])}
		}
		if st, err := os.Stat(it.Value); err != nil || st.IsDir() {
			return nil, errors.Errorf("%s not found", it.Value)
		}
		items = append(items, it)
	}

	smoothed, err := sampler.Smooth(items, 0, 1)
	if err != nil {
		return nil, errors.Wrap(err, "set parameters")
	}
	out := make([]SetParameter, len(smoothed))
	for i, it := range smoothed {
		out[i] = SetParameter{Filename: it.Value, Probability: it.Probability}
	}
	return out, nil
}

// RIR is a room impulse response from an RIR list.
type RIR struct {
	ID                 string
	RoomID             string
	ReceiverPositionID string
	SourcePositionID   string
	RT60               *float64
	DRR                *float64
	CTE                *float64
	Rspecifier         string
}

type rirArgs struct {
	RIRID              string `arg:"--rir-id,required" help:"unique id of the RIR"`
	RoomID             string `arg:"--room-id,required" help:"room where the RIR was generated"`
	ReceiverPositionID string `arg:"--receiver-position-id" help:"receiver position id"`
	SourcePositionID   string `arg:"--source-position-id" help:"source position id"`
	RT60               string `arg:"--rt60" help:"time for reflections to decay 60 dB"`
	DRR                string `arg:"--drr" help:"direct-to-reverberant ratio"`
	CTE                string `arg:"--cte" help:"early-to-late index"`
	Probability        string `arg:"--probability" help:"probability of the RIR"`
	Rspecifier         string `arg:"positional,required" help:"file name or piped command"`
}

// ParseRIRLine parses one RIR list line.
func ParseRIRLine(line string) (sampler.Item[RIR], error) {
	var a rirArgs
	if err := parseLine(line, &a); err != nil {
		return sampler.Item[RIR]{}, err
	}
	rir := RIR{
		ID:                 a.RIRID,
		RoomID:             a.RoomID,
		ReceiverPositionID: a.ReceiverPositionID,
		SourcePositionID:   a.SourcePositionID,
		Rspecifier:         a.Rspecifier,
	}
	var err error
	if rir.RT60, err = optFloat("--rt60", a.RT60); err != nil {
		return sampler.Item[RIR]{}, err
	}
	if rir.DRR, err = optFloat("--drr", a.DRR); err != nil {
		return sampler.Item[RIR]{}, err
	}
	if rir.CTE, err = optFloat("--cte", a.CTE); err != nil {
		return sampler.Item[RIR]{}, err
	}
	prob, err := optFloat("--probability", a.Probability)
	if err != nil {
		return sampler.Item[RIR]{}, err
	}
	return sampler.Item[RIR]{Value: rir, Probability: prob}, nil
}

// Noise is a noise recording from a noise list.
type Noise struct {
	ID          string
	Type        string
	BgFgType    string
	RoomLinkage string
	Rspecifier  string
}

type noiseArgs struct {
	NoiseID     string `arg:"--noise-id,required" help:"noise id"`
	NoiseType   string `arg:"--noise-type,required" help:"isotropic or point-source"`
	BgFgType    string `arg:"--bg-fg-type" help:"background (extended over the speech) or foreground (added at a random time)"`
	RoomLinkage string `arg:"--room-linkage" help:"room of an isotropic noise"`
	Probability string `arg:"--probability" help:"probability of the noise"`
	Rspecifier  string `arg:"positional,required" help:"file name or piped command"`
}

// ParseNoiseLine parses one noise list line.
func ParseNoiseLine(line string) (sampler.Item[Noise], error) {
	var a noiseArgs
	if err := parseLine(line, &a); err != nil {
		return sampler.Item[Noise]{}, err
	}
	n := Noise{
		ID:          a.NoiseID,
		Type:        a.NoiseType,
		BgFgType:    a.BgFgType,
		RoomLinkage: a.RoomLinkage,
		Rspecifier:  a.Rspecifier,
	}
	if n.Type != Isotropic && n.Type != PointSource {
		return sampler.Item[Noise]{}, errors.Errorf("--noise-type must be %s or %s, got %q", Isotropic, PointSource, n.Type)
	}
	if n.BgFgType == "" {
		n.BgFgType = Background
	}
	if n.BgFgType != Background && n.BgFgType != Foreground {
		return sampler.Item[Noise]{}, errors.Errorf("--bg-fg-type must be %s or %s, got %q", Background, Foreground, n.BgFgType)
	}
	if n.Type == Isotropic && n.RoomLinkage == "" {
		return sampler.Item[Noise]{}, errors.New("--room-linkage must be specified if --noise-type is isotropic")
	}
	prob, err := optFloat("--probability", a.Probability)
	if err != nil {
		return sampler.Item[Noise]{}, err
	}
	return sampler.Item[Noise]{Value: n, Probability: prob}, nil
}

func parseLine(line string, dest interface{}) error {
	args, err := splitArgs(strings.TrimSpace(line))
	if err != nil {
		return err
	}
	p, err := arg.NewParser(arg.Config{}, dest)
	if err != nil {
		return err
	}
	return p.Parse(attachNegativeValues(args))
}

// attachNegativeValues rewrites "--drr -4.8" as "--drr=-4.8"; go-arg would
// otherwise read the negative number as a flag.
func attachNegativeValues(args []string) []string {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		a := args[i]
		if strings.HasPrefix(a, "--") && !strings.Contains(a, "=") && i+1 < len(args) && isNegativeNumber(args[i+1]) {
			out = append(out, a+"="+args[i+1])
			i++
			continue
		}
		out = append(out, a)
	}
	return out
}

func isNegativeNumber(s string) bool {
	if !strings.HasPrefix(s, "-") {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

func optFloat(flag, s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, errors.Errorf("%s: bad number %q", flag, s)
	}
	return &v, nil
}

// readListFile applies parse to every non-blank line of path.
func readListFile[T any](path string, parse func(string) (sampler.Item[T], error)) ([]sampler.Item[T], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var items []sampler.Item[T]
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024*1024), 16*1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		it, err := parse(line)
		if err != nil {
			return nil, &datadir.ParseError{File: path, Line: lineNum, Text: line, Msg: err.Error()}
		}
		items = append(items, it)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return items, nil
}

// ParseRIRList reads every RIR list of sets. Within a list the RIR
// probabilities are smoothed with weight and scaled to the list's mixture
// weight. A positive rate resamples each RIR through sox.
func ParseRIRList(sets []SetParameter, weight float64, rate int) ([]sampler.Item[RIR], error) {
	var all []sampler.Item[RIR]
	for _, set := range sets {
		items, err := readListFile(set.Filename, ParseRIRLine)
		if err != nil {
			return nil, err
		}
		if len(items) == 0 {
			log.Warnf("RIR list %s is empty", set.Filename)
			continue
		}
		if rate > 0 {
			for i := range items {
				items[i].Value.Rspecifier = datadir.ResamplePipe(items[i].Value.Rspecifier, rate)
			}
		}
		smoothed, err := sampler.Smooth(items, weight, set.P())
		if err != nil {
			return nil, errors.Wrap(err, set.Filename)
		}
		all = append(all, smoothed...)
	}
	return all, nil
}

// P returns the set's mixture weight.
func (s SetParameter) P() float64 {
	if s.Probability == nil {
		return 0
	}
	return *s.Probability
}

// ParseNoiseList reads every noise list of sets. Point-source noises are
// smoothed per list like RIRs; isotropic noises are grouped by the room
// they are linked to and are not weighted.
func ParseNoiseList(sets []SetParameter, weight float64, rate int) ([]sampler.Item[Noise], map[string][]Noise, error) {
	var pointSource []sampler.Item[Noise]
	isotropic := make(map[string][]Noise)
	for _, set := range sets {
		items, err := readListFile(set.Filename, ParseNoiseLine)
		if err != nil {
			return nil, nil, err
		}
		var current []sampler.Item[Noise]
		for _, it := range items {
			if rate > 0 {
				it.Value.Rspecifier = datadir.ResamplePipe(it.Value.Rspecifier, rate)
			}
			if it.Value.Type == Isotropic {
				isotropic[it.Value.RoomLinkage] = append(isotropic[it.Value.RoomLinkage], it.Value)
				continue
			}
			current = append(current, it)
		}
		if len(current) == 0 {
			continue
		}
		smoothed, err := sampler.Smooth(current, weight, set.P())
		if err != nil {
			return nil, nil, errors.Wrap(err, set.Filename)
		}
		pointSource = append(pointSource, smoothed...)
	}
	return pointSource, isotropic, nil
}
