package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ieee0824/speechdata-go/ctm"
)

func TestRun(t *testing.T) {
	dir := t.TempDir()
	ref := filepath.Join(dir, "ref")
	hyp := filepath.Join(dir, "hyp")
	out := filepath.Join(dir, "eval")
	require.NoError(t, os.WriteFile(ref, []byte("u1 hello world again\nu2 a b\n"), 0644))
	require.NoError(t, os.WriteFile(hyp, []byte("u1 hello wrld extra\n"), 0644))

	require.NoError(t, run(args{Special: ctm.DefaultEpsilon, RefText: ref, HypText: hyp, EvalOut: out}))

	b, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, `u1 ref hello world again
u1 hyp hello wrld extra
u1 op C S S
u1 #csid 1 2 0 0
u2 ref a b
u2 hyp <eps> <eps>
u2 op D D
u2 #csid 0 0 0 2
`, string(b))

	eval, err := ctm.ReadEvaluationFile(out)
	require.NoError(t, err)
	assert.Len(t, eval, 2)
}
