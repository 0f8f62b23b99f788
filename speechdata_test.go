package speechdata

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ieee0824/speechdata-go/augment"
	"github.com/ieee0824/speechdata-go/datadir"
	"github.com/ieee0824/speechdata-go/diarize"
	"github.com/ieee0824/speechdata-go/toolkit"
)

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestNewReverberator_RequiresRIRs(t *testing.T) {
	_, err := NewReverberator()
	assert.Error(t, err)
}

func TestNewReverberator_Options(t *testing.T) {
	dir := t.TempDir()
	rirs := writeFile(t, filepath.Join(dir, "rir_list"), "--rir-id a --room-id r a.wav\n")
	rec := &toolkit.Recorder{}

	r, err := NewReverberator(WithRIRSets(rirs), WithReplicas(2, ""), WithSeed(7), WithTool(rec))
	require.NoError(t, err)
	assert.Equal(t, []string{rirs}, r.Config.RIRSets)
	assert.Equal(t, 2, r.Config.NumReplicas)
	assert.Equal(t, augment.DefaultPrefix, r.Config.Prefix)
	assert.Equal(t, int64(7), r.Config.RandomSeed)
	assert.Same(t, rec, r.Tool)
}

func TestNewReverberatorFromFile(t *testing.T) {
	dir := t.TempDir()
	rirs := writeFile(t, filepath.Join(dir, "rir_list"), "--rir-id a --room-id r a.wav\n")
	cfgPath := writeFile(t, filepath.Join(dir, "rvb.yaml"),
		"rir_set_parameters: ["+rirs+"]\nnum_replications: 3\nprefix: aug\n")

	r, err := NewReverberatorFromFile(cfgPath, WithSeed(3))
	require.NoError(t, err)
	assert.Equal(t, 3, r.Config.NumReplicas)
	assert.Equal(t, "aug", r.Config.Prefix)
	assert.Equal(t, int64(3), r.Config.RandomSeed)
	assert.Equal(t, 0.3, r.Config.RIRSmoothingWeight)

	_, err = NewReverberatorFromFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestCorruptDataDir(t *testing.T) {
	dir := t.TempDir()
	rirs := writeFile(t, filepath.Join(dir, "rir_list"), "--rir-id a --room-id r a.wav\n")
	in := filepath.Join(dir, "in")
	writeFile(t, filepath.Join(in, datadir.WavScp), "rec1 rec1.wav\n")
	writeFile(t, filepath.Join(in, datadir.Reco2DurFile), "rec1 3.5\n")
	writeFile(t, filepath.Join(in, datadir.Utt2SpkFile), "rec1 spk1\n")
	writeFile(t, filepath.Join(in, datadir.Spk2UttFile), "spk1 rec1\n")

	r, err := NewReverberator(WithRIRSets(rirs), WithTool(&toolkit.Recorder{}))
	require.NoError(t, err)
	out := filepath.Join(dir, "out")
	require.NoError(t, r.CorruptDataDir(context.Background(), in, out))

	b, err := os.ReadFile(filepath.Join(out, datadir.WavScp))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(b), `rec1 cat rec1.wav | wav-reverberate --shift-output=true --impulse-response="a.wav"`), string(b))
}

func TestRefineDiarization_InvalidConfig(t *testing.T) {
	cfg := diarize.DefaultConfig()
	cfg.NumIters = 0
	assert.Error(t, RefineDiarization(context.Background(), cfg))
}
