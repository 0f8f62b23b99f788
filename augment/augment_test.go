package augment

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ieee0824/speechdata-go/datadir"
	"github.com/ieee0824/speechdata-go/sampler"
)

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		line string
		want []string
	}{
		{`--rir-id 1 --room-id r "sox a.wav -t wav - |"`, []string{"--rir-id", "1", "--room-id", "r", "sox a.wav -t wav - |"}},
		{`a  'b c'	d`, []string{"a", "b c", "d"}},
		{`a\ b "x\"y" 'it''s'`, []string{"a b", `x"y`, "its"}},
		{`"" x`, []string{"", "x"}},
		{"   ", nil},
	}
	for _, tt := range tests {
		got, err := splitArgs(tt.line)
		require.NoError(t, err, tt.line)
		assert.Equal(t, tt.want, got, tt.line)
	}

	_, err := splitArgs(`"unterminated`)
	assert.Error(t, err)
	_, err = splitArgs(`trailing\`)
	assert.Error(t, err)
}

func TestParseRIRLine(t *testing.T) {
	it, err := ParseRIRLine(`--rir-id 00001 --room-id 001 --receiver-position-id 001 --source-position-id 00001 --rt60 0.58 --drr -4.885 "sox data/Room001-00001.wav -t wav - |"`)
	require.NoError(t, err)
	assert.Equal(t, "00001", it.Value.ID)
	assert.Equal(t, "001", it.Value.RoomID)
	require.NotNil(t, it.Value.RT60)
	assert.Equal(t, 0.58, *it.Value.RT60)
	require.NotNil(t, it.Value.DRR)
	assert.Equal(t, -4.885, *it.Value.DRR)
	assert.Nil(t, it.Value.CTE)
	assert.Nil(t, it.Probability)
	assert.Equal(t, "sox data/Room001-00001.wav -t wav - |", it.Value.Rspecifier)

	it, err = ParseRIRLine("--rir-id a --room-id r --probability 0.25 a.wav")
	require.NoError(t, err)
	assert.Equal(t, 0.25, it.P())

	_, err = ParseRIRLine("--rir-id a a.wav")
	assert.Error(t, err, "missing room id")
	_, err = ParseRIRLine("--rir-id a --room-id r --rt60 slow a.wav")
	assert.Error(t, err)
	_, err = ParseRIRLine("--rir-id a --room-id r")
	assert.Error(t, err, "missing rspecifier")
}

func TestParseNoiseLine(t *testing.T) {
	it, err := ParseNoiseLine("--noise-id n1 --noise-type point-source n1.wav")
	require.NoError(t, err)
	assert.Equal(t, Background, it.Value.BgFgType)
	assert.Equal(t, PointSource, it.Value.Type)

	it, err = ParseNoiseLine("--noise-id n2 --noise-type isotropic --room-linkage 001 --probability 0.5 iso.wav")
	require.NoError(t, err)
	assert.Equal(t, "001", it.Value.RoomLinkage)
	assert.Equal(t, 0.5, it.P())

	_, err = ParseNoiseLine("--noise-id n2 --noise-type isotropic iso.wav")
	assert.Error(t, err)
	_, err = ParseNoiseLine("--noise-id n3 --noise-type babble n.wav")
	assert.Error(t, err)
	_, err = ParseNoiseLine("--noise-id n3 --noise-type point-source --bg-fg-type middle n.wav")
	assert.Error(t, err)
}

func TestParseSetParameters(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, filepath.Join(dir, "a"), "")
	b := writeFile(t, filepath.Join(dir, "b"), "")

	sets, err := ParseSetParameters([]string{"0.3, " + a, b})
	require.NoError(t, err)
	require.Len(t, sets, 2)
	assert.Equal(t, a, sets[0].Filename)
	assert.InDelta(t, 0.3, sets[0].P(), 1e-12)
	assert.InDelta(t, 0.7, sets[1].P(), 1e-12)

	_, err = ParseSetParameters([]string{filepath.Join(dir, "missing")})
	assert.Error(t, err)
	_, err = ParseSetParameters([]string{"x, " + a})
	assert.Error(t, err)
	_, err = ParseSetParameters(nil)
	assert.True(t, errors.Is(err, sampler.ErrEmptySet))
}

func TestParseRIRList(t *testing.T) {
	dir := t.TempDir()
	list := writeFile(t, filepath.Join(dir, "rir_list"), `--rir-id 1 --room-id A --probability 0.6 a1.wav
--rir-id 2 --room-id A "cat a2.wav |"

--rir-id 3 --room-id B b1.wav
`)
	sets := []SetParameter{{Filename: list, Probability: sampler.Prob(1)}}

	rirs, err := ParseRIRList(sets, 0, 8000)
	require.NoError(t, err)
	require.Len(t, rirs, 3)
	assert.Equal(t, "sox a1.wav -r 8000 -t wav - |", rirs[0].Value.Rspecifier)
	assert.Equal(t, "cat a2.wav | sox -t wav - -r 8000 -t wav - |", rirs[1].Value.Rspecifier)
	assert.InDelta(t, 0.6, rirs[0].P(), 1e-12)
	assert.InDelta(t, 0.2, rirs[1].P(), 1e-12)
	assert.InDelta(t, 0.2, rirs[2].P(), 1e-12)

	rooms, err := MakeRooms(rirs)
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.Equal(t, "A", rooms[0].Value.ID)
	assert.InDelta(t, 0.8, rooms[0].P(), 1e-12)
	assert.Len(t, rooms[0].Value.RIRs, 2)
	assert.InDelta(t, 0.2, rooms[1].P(), 1e-12)

	bad := writeFile(t, filepath.Join(dir, "bad_list"), "--rir-id 1 a.wav\n")
	_, err = ParseRIRList([]SetParameter{{Filename: bad, Probability: sampler.Prob(1)}}, 0, 0)
	var perr *datadir.ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 1, perr.Line)
}

func TestParseRIRList_Smoothing(t *testing.T) {
	dir := t.TempDir()
	list := writeFile(t, filepath.Join(dir, "rir_list"), "--rir-id 1 --room-id A --probability 0.6 a1.wav\n--rir-id 2 --room-id A a2.wav\n")
	rirs, err := ParseRIRList([]SetParameter{{Filename: list, Probability: sampler.Prob(0.5)}}, 0.3, 0)
	require.NoError(t, err)
	assert.InDelta(t, 0.5*0.57, rirs[0].P(), 1e-12)
	assert.InDelta(t, 0.5*0.43, rirs[1].P(), 1e-12)
	assert.InDelta(t, 0.5, sampler.Total(rirs), 1e-12)
}

func TestMakeRooms_BadTotal(t *testing.T) {
	rirs := []sampler.Item[RIR]{
		{Value: RIR{ID: "1", RoomID: "A"}, Probability: sampler.Prob(0.5)},
		{Value: RIR{ID: "2", RoomID: "B"}, Probability: sampler.Prob(0.4)},
	}
	_, err := MakeRooms(rirs)
	assert.True(t, errors.Is(err, ErrRoomProbability))
}

func TestParseNoiseList(t *testing.T) {
	dir := t.TempDir()
	list := writeFile(t, filepath.Join(dir, "noise_list"), `--noise-id n1 --noise-type point-source --bg-fg-type foreground n1.wav
--noise-id n2 --noise-type point-source n2.wav
--noise-id i1 --noise-type isotropic --room-linkage A i1.wav
--noise-id i2 --noise-type isotropic --room-linkage A "cat i2.wav |"
`)
	isoOnly := writeFile(t, filepath.Join(dir, "iso_list"), "--noise-id i3 --noise-type isotropic --room-linkage B i3.wav\n")

	sets, err := ParseSetParameters([]string{list, isoOnly})
	require.NoError(t, err)
	ps, iso, err := ParseNoiseList(sets, 0, 0)
	require.NoError(t, err)
	require.Len(t, ps, 2)
	assert.InDelta(t, 0.5, sampler.Total(ps), 1e-12)
	assert.Len(t, iso["A"], 2)
	assert.Len(t, iso["B"], 1)
}

func testRooms(t *testing.T) []sampler.Item[*Room] {
	t.Helper()
	rooms, err := MakeRooms([]sampler.Item[RIR]{
		{Value: RIR{ID: "1", RoomID: "A", Rspecifier: "rir.wav"}, Probability: sampler.Prob(1)},
	})
	require.NoError(t, err)
	return rooms
}

func TestPlanner_Isotropic(t *testing.T) {
	cfg := DefaultConfig()
	iso := map[string][]Noise{"A": {
		{ID: "i1", Type: Isotropic, RoomLinkage: "A", Rspecifier: "iso.wav"},
		{ID: "i2", Type: Isotropic, RoomLinkage: "A", Rspecifier: "cat iso2.wav |"},
	}}
	p, err := NewPlanner(cfg, rand.New(rand.NewSource(1)), testRooms(t), nil, iso)
	require.NoError(t, err)

	opts, err := p.Plan(10, MaxNoises(cfg.MaxNoisesPerMinute, 10))
	require.NoError(t, err)
	assert.Equal(t, `--impulse-response="rir.wav" --additive-signals='wav-reverberate --duration=10.0 iso.wav - |,cat iso2.wav | wav-reverberate --duration=10.0 - - |' --start-times='0.0,0.0' --snrs='20.0,10.0'`, opts.String())
}

func TestPlanner_PointSource(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SpeechRvbProbability = 0
	ps := []sampler.Item[Noise]{
		{Value: Noise{ID: "n1", Type: PointSource, BgFgType: Foreground, Rspecifier: "n1.wav"}, Probability: sampler.Prob(1)},
	}
	p, err := NewPlanner(cfg, rand.New(rand.NewSource(7)), testRooms(t), ps, nil)
	require.NoError(t, err)

	opts, err := p.Plan(12.5, 1)
	require.NoError(t, err)
	assert.Empty(t, opts.ImpulseResponse)
	require.Len(t, opts.Noises, 1)
	n := opts.Noises[0]
	assert.Equal(t, `wav-reverberate --impulse-response="rir.wav" n1.wav - |`, n.Signal)
	assert.Equal(t, 20.0, n.SNR)
	assert.GreaterOrEqual(t, n.StartTime, 0.0)
	assert.LessOrEqual(t, n.StartTime, 12.5)

	ps[0].Value.BgFgType = Background
	ps[0].Value.Rspecifier = "cat n1.wav |"
	opts, err = p.Plan(12.5, 1)
	require.NoError(t, err)
	require.Len(t, opts.Noises, 1)
	assert.Equal(t, `cat n1.wav | wav-reverberate --impulse-response="rir.wav" --duration=12.5 - - |`, opts.Noises[0].Signal)
	assert.Equal(t, 0.0, opts.Noises[0].StartTime)

	opts, err = p.Plan(12.5, 0)
	require.NoError(t, err)
	assert.True(t, opts.Empty())
	assert.Equal(t, "", opts.String())
}

func TestPlanner_Deterministic(t *testing.T) {
	dir := t.TempDir()
	list := writeFile(t, filepath.Join(dir, "rir_list"), "--rir-id 1 --room-id A a.wav\n--rir-id 2 --room-id B b.wav\n--rir-id 3 --room-id B c.wav\n")
	noises := writeFile(t, filepath.Join(dir, "noise_list"), "--noise-id n1 --noise-type point-source --bg-fg-type foreground n1.wav\n--noise-id n2 --noise-type point-source n2.wav\n")

	cfg := DefaultConfig()
	cfg.RIRSets = []string{list}
	cfg.NoiseSets = []string{noises}
	cfg.SpeechRvbProbability = 0.5
	cfg.PointSourceNoiseProbability = 0.5

	plan := func(seed int64) []string {
		rooms, ps, iso, err := loadLists(cfg)
		require.NoError(t, err)
		p, err := NewPlanner(cfg, rand.New(rand.NewSource(seed)), rooms, ps, iso)
		require.NoError(t, err)
		var out []string
		for i := 0; i < 50; i++ {
			o, err := p.Plan(95, MaxNoises(cfg.MaxNoisesPerMinute, 95))
			require.NoError(t, err)
			out = append(out, o.String())
		}
		return out
	}
	first := plan(3)
	assert.Equal(t, first, plan(3))
	assert.NotEqual(t, first, plan(4))
}

func TestMaxNoises(t *testing.T) {
	assert.Equal(t, 0, MaxNoises(2, 0))
	assert.Equal(t, 1, MaxNoises(2, 10))
	assert.Equal(t, 3, MaxNoises(2, 61))
	assert.Equal(t, 0, MaxNoises(0, 600))
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "20.0", formatNumber(20))
	assert.Equal(t, "-5.0", formatNumber(-5))
	assert.Equal(t, "3.14", formatNumber(3.14))
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, cfg.Validate(), "no RIR sets")

	cfg.RIRSets = []string{"rir_list"}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "", cfg.Prefix)

	cfg.NumReplicas = 3
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultPrefix, cfg.Prefix)

	for _, mutate := range []func(*Config){
		func(c *Config) { c.NumReplicas = 0 },
		func(c *Config) { c.SpeechRvbProbability = 1.5 },
		func(c *Config) { c.IsotropicNoiseProbability = -0.1 },
		func(c *Config) { c.NoiseSmoothingWeight = 2 },
		func(c *Config) { c.MaxNoisesPerMinute = -1 },
		func(c *Config) { c.SourceSamplingRate = -8000 },
		func(c *Config) { c.ForegroundSNRs = "20:loud" },
	} {
		c := DefaultConfig()
		c.RIRSets = []string{"rir_list"}
		mutate(&c)
		assert.Error(t, c.Validate())
	}
}

func TestLoadConfig(t *testing.T) {
	path := writeFile(t, filepath.Join(t.TempDir(), "rvb.yaml"), `rir_set_parameters:
  - "0.5, rirs/small"
  - "0.5, rirs/medium"
num_replications: 2
foreground_snrs: "15:10"
shift_output: false
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"0.5, rirs/small", "0.5, rirs/medium"}, cfg.RIRSets)
	assert.Equal(t, 2, cfg.NumReplicas)
	assert.Equal(t, "15:10", cfg.ForegroundSNRs)
	assert.Equal(t, "20:10:0", cfg.BackgroundSNRs)
	assert.False(t, cfg.ShiftOutput)
	assert.Equal(t, 0.3, cfg.RIRSmoothingWeight)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func setupDataDir(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	in := filepath.Join(dir, "train")
	writeFile(t, filepath.Join(in, "wav.scp"), "r1 r1.wav\nr2 sox r2.flac -t wav - |\n")
	writeFile(t, filepath.Join(in, "reco2dur"), "r1 30\nr2 90\n")
	writeFile(t, filepath.Join(in, "utt2spk"), "r1-a s1\nr2-a s2\n")
	writeFile(t, filepath.Join(in, "segments"), "r1-a r1 0.00 5.00\nr2-a r2 1.00 7.50\n")
	writeFile(t, filepath.Join(in, "text"), "r1-a hello\nr2-a world\n")
	rirs := writeFile(t, filepath.Join(dir, "rir_list"), "--rir-id 1 --room-id A a.wav\n")
	return in, rirs
}

func TestGenerateWavScp(t *testing.T) {
	in, rirs := setupDataDir(t)
	cfg := DefaultConfig()
	cfg.RIRSets = []string{rirs}
	cfg.NumReplicas = 2
	cfg.OutputReverbDir = "reverb"
	cfg.OutputAdditiveNoiseDir = "noise"
	require.NoError(t, cfg.Validate())

	rooms, ps, iso, err := loadLists(cfg)
	require.NoError(t, err)
	p, err := NewPlanner(cfg, rand.New(rand.NewSource(0)), rooms, ps, iso)
	require.NoError(t, err)
	wav, err := datadir.ReadWavScp(filepath.Join(in, "wav.scp"))
	require.NoError(t, err)

	scps, err := GenerateWavScp(p, wav, map[string]float64{"r1": 30, "r2": 90}, cfg)
	require.NoError(t, err)

	assert.Equal(t, []string{"rvb1_r1", "rvb1_r2", "rvb2_r1", "rvb2_r2"}, scps.Corrupted.Keys())
	v, _ := scps.Corrupted.Value("rvb1_r1")
	assert.Equal(t, `cat r1.wav | wav-reverberate --shift-output=true --impulse-response="a.wav" - - |`, v)
	v, _ = scps.Reverb.Value("rvb2_r2")
	assert.Equal(t, `sox r2.flac -t wav - | wav-reverberate --shift-output=true --reverb-out-wxfilename=- --impulse-response="a.wav" - /dev/null |`, v)
	assert.Equal(t, 0, scps.Additive.Len(), "no noises were added")

	_, err = GenerateWavScp(p, wav, map[string]float64{"r1": 30}, cfg)
	assert.Error(t, err)
}

func TestCreateReverberatedCopy(t *testing.T) {
	in, rirs := setupDataDir(t)
	out := filepath.Join(filepath.Dir(in), "train_rvb")
	reverb := filepath.Join(filepath.Dir(in), "train_reverb")

	cfg := DefaultConfig()
	cfg.RIRSets = []string{rirs}
	cfg.NumReplicas = 2
	cfg.RandomSeed = 1
	cfg.OutputReverbDir = reverb

	require.NoError(t, CreateReverberatedCopy(context.Background(), cfg, in, out, nil))

	for _, dir := range []string{out, reverb} {
		for _, f := range []string{"wav.scp", "utt2spk", "spk2utt", "utt2uniq", "segments", "text", "reco2dur"} {
			assert.FileExists(t, filepath.Join(dir, f))
		}
		require.NoError(t, datadir.Validate(dir))
	}

	utt2spk, err := datadir.ReadUtt2Spk(filepath.Join(out, "utt2spk"))
	require.NoError(t, err)
	assert.Equal(t, "rvb2_s1", utt2spk["rvb2_r1-a"])

	b, err := os.ReadFile(filepath.Join(out, "wav.scp"))
	require.NoError(t, err)
	assert.Equal(t, 4, strings.Count(string(b), "wav-reverberate"))
}

func TestCreateReverberatedCopy_MissingDurations(t *testing.T) {
	in, rirs := setupDataDir(t)
	require.NoError(t, os.Remove(filepath.Join(in, "reco2dur")))
	cfg := DefaultConfig()
	cfg.RIRSets = []string{rirs}

	err := CreateReverberatedCopy(context.Background(), cfg, in, filepath.Join(t.TempDir(), "out"), nil)
	assert.Error(t, err, "pipes need wav-to-duration")
}

func TestNoiseListFromWavScp(t *testing.T) {
	wav := datadir.NewTable()
	wav.Set("n1", "noise1.wav")
	wav.Set("n2", "sox", "n2.flac", "-t", "wav", "-", "|")

	lines := NoiseListFromWavScp(wav)
	assert.Equal(t, []string{
		`--noise-id n1 --noise-type point-source --bg-fg-type foreground "noise1.wav"`,
		`--noise-id n2 --noise-type point-source --bg-fg-type foreground "sox n2.flac -t wav - |"`,
	}, lines)

	it, err := ParseNoiseLine(lines[1])
	require.NoError(t, err)
	assert.Equal(t, "sox n2.flac -t wav - |", it.Value.Rspecifier)
	assert.Equal(t, Foreground, it.Value.BgFgType)
}
