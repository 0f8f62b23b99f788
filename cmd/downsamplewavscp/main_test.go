package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "wav.scp")
	out := filepath.Join(dir, "out.scp")
	require.NoError(t, os.WriteFile(in, []byte("r1 a.wav\nr2 cat b.wav |\n"), 0644))

	require.NoError(t, run(args{Channel: 1, Frequency: 8000, ExtraOpts: "-b 16", InScp: in, OutScp: out}))
	b, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "r1 sox a.wav -t wav - -r 8000 -c 1 -b 16 -t wav - downsample |\n"+
		"r2 cat b.wav | sox -t wav - -r 8000 -c 1 -b 16 -t wav - downsample |\n", string(b))
}
