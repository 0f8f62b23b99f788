package diarize

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ieee0824/speechdata-go/datadir"
	"github.com/ieee0824/speechdata-go/toolkit"
)

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Data, cfg.Dir, cfg.OutData = "d", "e", "o"
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 3, cfg.MaxIterInc)

	cfg.NumIters = 3
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1, cfg.MaxIterInc)

	cfg.NumIters = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	assert.Error(t, cfg.Validate(), "directories are required")
}

func TestWriteTopo(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTopo(&buf, 3, DefaultConfig()))
	want := `<Topology>
<TopologyEntry>
<ForPhones>
1 2 3
</ForPhones>
<State> 0 <PdfClass> 0 <Transition> 0 0.1 <Transition> 1 0.9 </State>
<State> 1 </State>
</TopologyEntry>
</Topology>
`
	assert.Equal(t, want, buf.String())
}

func TestClusterIDs(t *testing.T) {
	utt2spk := map[string]string{"u1": "spkB", "u2": "spkA", "u3": "spkB"}
	ids, err := ClusterIDs([]string{"u1", "u2", "u3"}, utt2spk)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"spkA": 1, "spkB": 2}, ids)

	_, err = ClusterIDs([]string{"u4"}, utt2spk)
	assert.Error(t, err)
}

func TestSchedule(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NumIters = 7
	steps := Schedule(cfg, 2)
	want := []Step{
		{Iter: 0, Kind: Align, NumGauss: 2},
		{Iter: 1, Kind: Align, NumGauss: 5},
		{Iter: 2, Kind: Align, NumGauss: 7},
		{Iter: 3, Kind: Align, NumGauss: 10},
		{Iter: 4, Kind: Align, NumGauss: 0},
		{Iter: 5, Kind: Decode, NumGauss: 13},
		{Iter: 6, Kind: Decode, NumGauss: 13},
	}
	assert.Equal(t, want, steps)
	assert.Equal(t, "decode", steps[5].Kind.String())
}

func TestSchedule_NoIncrease(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NumIters = 2
	cfg.Data, cfg.Dir, cfg.OutData = "d", "e", "o"
	require.NoError(t, cfg.Validate())
	assert.Equal(t, []Step{
		{Iter: 0, Kind: Align, NumGauss: 3},
		{Iter: 1, Kind: Align, NumGauss: 0},
	}, Schedule(cfg, 3))
}

func TestSplitLines(t *testing.T) {
	dir := t.TempDir()
	name := func(k int) string { return filepath.Join(dir, "text."+string(rune('0'+k))) }
	require.NoError(t, splitLines([]string{"a", "b", "c", "d", "e"}, 3, name))
	assert.Equal(t, "a\nb\n", readFile(t, name(1)))
	assert.Equal(t, "c\nd\n", readFile(t, name(2)))
	assert.Equal(t, "e\n", readFile(t, name(3)))
}

// fakeKaldi answers feat-to-dim and writes the per-recording results when
// the final segmentation job runs.
func fakeKaldi(t *testing.T) func(args []string) (toolkit.Result, error) {
	outputs := map[string][2]string{
		"r1": {"r1-1 r1-1\nr1-2 r1-2\n", "r1-1 r1 0.00 1.00\nr1-2 r1 1.00 2.00\n"},
		"r2": {"r2-1 r2-1\n", "r2-1 r2 0.00 1.50\n"},
	}
	return func(args []string) (toolkit.Result, error) {
		if args[0] == "feat-to-dim" {
			return toolkit.Result{Stdout: "39\n"}, nil
		}
		for _, a := range args {
			if strings.HasSuffix(a, "get_final_segments.log") {
				d := filepath.Dir(filepath.Dir(a))
				out := outputs[strings.TrimPrefix(filepath.Base(d), "refine_")]
				writeTestFile(t, filepath.Join(d, datadir.Utt2SpkFile), out[0])
				writeTestFile(t, filepath.Join(d, datadir.SegmentsFile), out[1])
			}
		}
		return toolkit.Result{}, nil
	}
}

func setupData(t *testing.T) (Config, string) {
	root := t.TempDir()
	data := filepath.Join(root, "data")
	writeTestFile(t, filepath.Join(data, datadir.SegmentsFile), "u1 r1 0 1\nu2 r1 1 2\nu3 r2 0 1.5\n")
	writeTestFile(t, filepath.Join(data, datadir.Utt2SpkFile), "u1 a\nu2 b\nu3 a\n")
	writeTestFile(t, filepath.Join(data, datadir.Spk2UttFile), "a u1 u3\nb u2\n")
	writeTestFile(t, filepath.Join(data, datadir.WavScp), "r1 r1.wav\nr2 r2.wav\n")
	writeTestFile(t, filepath.Join(data, featsScp), "u1 feats.ark:10\n")

	cfg := DefaultConfig()
	cfg.Cmd = "run.pl"
	cfg.NumThreads = 2
	cfg.UttJobs = 2
	cfg.NumIters = 6
	cfg.Data = data
	cfg.Dir = filepath.Join(root, "exp")
	cfg.OutData = filepath.Join(root, "out")
	return cfg, root
}

func countLines(lines []string, substrs ...string) int {
	n := 0
	for _, l := range lines {
		match := true
		for _, s := range substrs {
			if !strings.Contains(l, s) {
				match = false
				break
			}
		}
		if match {
			n++
		}
	}
	return n
}

func TestRefinerRun(t *testing.T) {
	cfg, _ := setupData(t)
	rec := &toolkit.Recorder{Handler: fakeKaldi(t)}
	r, err := NewRefiner(cfg, rec)
	require.NoError(t, err)
	require.NoError(t, r.Run(context.Background()))

	assert.Equal(t, "r1 u1 u2\nr2 u3\n", readFile(t, filepath.Join(cfg.Data, datadir.Reco2UttFile)))

	d1 := filepath.Join(cfg.Dir, "refine_r1")
	assert.Contains(t, readFile(t, filepath.Join(d1, "topo")), "\n1 2\n")
	assert.Equal(t, "1 1\n2 2\n", readFile(t, filepath.Join(d1, "lexicon.txt")))
	assert.Equal(t, "u1 1\nu2 2\n", readFile(t, filepath.Join(d1, "text")))
	assert.Equal(t, "u1 1\n", readFile(t, filepath.Join(d1, "text.1.2")))
	assert.Equal(t, "u2 2\n", readFile(t, filepath.Join(d1, "text.2.2")))
	assert.FileExists(t, filepath.Join(d1, ".done"))
	link, err := os.Readlink(filepath.Join(d1, "final.mdl"))
	require.NoError(t, err)
	assert.Equal(t, "6.mdl", link)

	d2 := filepath.Join(cfg.Dir, "refine_r2")
	assert.Equal(t, "u3 1\n", readFile(t, filepath.Join(d2, "text.1.1")))

	lines := rec.Lines()
	assert.Equal(t, 1, countLines(lines, "feat-to-dim"))
	assert.Equal(t, 1, countLines(lines, "gmm-init-mono "+d1+"/topo 39 "))
	for _, g := range []string{"--mix-up=2 ", "--mix-up=5 ", "--mix-up=7 ", "--mix-up=10 ", "--mix-up=0 "} {
		assert.Equal(t, 1, countLines(lines, "gmm-est "+g, d1+"/"), g)
	}
	assert.Equal(t, 1, countLines(lines, "gmm-latgen-faster", d1+"/5.mdl"))
	assert.Equal(t, 1, countLines(lines, "JOB=1:2", "gmm-align-compiled", d1+"/0.mdl"))
	assert.Equal(t, 1, countLines(lines, "JOB=1:1", "gmm-align-compiled", d2+"/0.mdl"))
	assert.Equal(t, 2, countLines(lines, "segmentation-to-segments"))

	utt2spk, err := datadir.ReadUtt2Spk(filepath.Join(cfg.OutData, datadir.Utt2SpkFile))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"r1-1": "r1-1", "r1-2": "r1-2", "r2-1": "r2-1"}, utt2spk)
	segs, err := datadir.ReadSegments(filepath.Join(cfg.OutData, datadir.SegmentsFile))
	require.NoError(t, err)
	require.Len(t, segs, 3)
	assert.Equal(t, "r2-1", segs[2].Utt)
	assert.Equal(t, 1.5, segs[2].End)
	assert.Equal(t, "r1-1 r1-1\nr1-2 r1-2\nr2-1 r2-1\n", readFile(t, filepath.Join(cfg.OutData, datadir.Spk2UttFile)))
	assert.Equal(t, "r1 r1.wav\nr2 r2.wav\n", readFile(t, filepath.Join(cfg.OutData, datadir.WavScp)))
	assert.NoFileExists(t, filepath.Join(cfg.OutData, featsScp))
}

func TestRefinerRun_SkipsDone(t *testing.T) {
	cfg, _ := setupData(t)
	d1 := filepath.Join(cfg.Dir, "refine_r1")
	writeTestFile(t, filepath.Join(d1, ".done"), "")
	writeTestFile(t, filepath.Join(d1, datadir.Utt2SpkFile), "r1-1 r1-1\n")
	writeTestFile(t, filepath.Join(d1, datadir.SegmentsFile), "r1-1 r1 0.00 2.00\n")

	rec := &toolkit.Recorder{Handler: fakeKaldi(t)}
	r, err := NewRefiner(cfg, rec)
	require.NoError(t, err)
	require.NoError(t, r.Run(context.Background()))

	assert.Zero(t, countLines(rec.Lines(), d1+"/"))
	utt2spk, err := datadir.ReadUtt2Spk(filepath.Join(cfg.OutData, datadir.Utt2SpkFile))
	require.NoError(t, err)
	assert.Len(t, utt2spk, 2)
}

func TestRefinerRun_FirstErrorAborts(t *testing.T) {
	cfg, _ := setupData(t)
	cfg.NumThreads = 1
	failure := errors.New("gmm-init-mono failed")
	kaldi := fakeKaldi(t)
	rec := &toolkit.Recorder{Handler: func(args []string) (toolkit.Result, error) {
		if strings.Contains(strings.Join(args, " "), "refine_r1/log/init_gmm.log") {
			return toolkit.Result{ExitCode: 1}, failure
		}
		return kaldi(args)
	}}
	r, err := NewRefiner(cfg, rec)
	require.NoError(t, err)

	err = r.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, failure))
	assert.Contains(t, err.Error(), "recording r1")
	assert.Zero(t, countLines(rec.Lines(), "refine_r2"))
	assert.NoFileExists(t, filepath.Join(cfg.OutData, datadir.Utt2SpkFile))
}

func TestRefinerRun_MissingFeats(t *testing.T) {
	cfg, _ := setupData(t)
	require.NoError(t, os.Remove(filepath.Join(cfg.Data, featsScp)))
	r, err := NewRefiner(cfg, &toolkit.Recorder{})
	require.NoError(t, err)
	err = r.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), featsScp)
}

func TestRefinerRun_BadFeatDim(t *testing.T) {
	cfg, _ := setupData(t)
	rec := &toolkit.Recorder{Handler: func(args []string) (toolkit.Result, error) {
		return toolkit.Result{Stdout: "not a number"}, nil
	}}
	r, err := NewRefiner(cfg, rec)
	require.NoError(t, err)
	assert.Error(t, r.Run(context.Background()))
}

func TestRefinerRun_RecordingPerUtterance(t *testing.T) {
	cfg, _ := setupData(t)
	require.NoError(t, os.Remove(filepath.Join(cfg.Data, datadir.SegmentsFile)))
	r, err := NewRefiner(cfg, &toolkit.Recorder{})
	require.NoError(t, err)
	recos, reco2utt, err := r.recordings(map[string]string{"u2": "b", "u1": "a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2"}, recos)
	assert.Equal(t, []string{"u2"}, reco2utt["u2"])
	assert.Equal(t, "u1 u1\nu2 u2\n", readFile(t, filepath.Join(cfg.Data, datadir.Reco2UttFile)))
}
