package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ieee0824/speechdata-go/ctm"
)

func TestRun(t *testing.T) {
	dir := t.TempDir()
	eval := filepath.Join(dir, "eval")
	in := filepath.Join(dir, "in.ctm")
	out := filepath.Join(dir, "out.ctm")
	require.NoError(t, os.WriteFile(eval, []byte("u1 ref a b\nu1 hyp a c\nu1 op C S\nu1 #csid 1 1 0 0\n"), 0644))
	require.NoError(t, os.WriteFile(in, []byte("u1 1 0.5 0.5 c\nu1 1 0 0.5 a\n"), 0644))

	require.NoError(t, run(args{Special: ctm.DefaultEpsilon, EvalIn: eval, CTMIn: in, CTMOut: out}))
	b, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "u1 1 0.00 0.50 a a C\nu1 1 0.50 0.50 c b S\n", string(b))
}

func TestRun_Mismatch(t *testing.T) {
	dir := t.TempDir()
	eval := filepath.Join(dir, "eval")
	in := filepath.Join(dir, "in.ctm")
	require.NoError(t, os.WriteFile(eval, []byte("u1 ref a\nu1 hyp a\nu1 op C\nu1 #csid 1 0 0 0\n"), 0644))
	require.NoError(t, os.WriteFile(in, []byte("u1 1 0 0.5 x\n"), 0644))

	err := run(args{Special: ctm.DefaultEpsilon, EvalIn: eval, CTMIn: in, CTMOut: filepath.Join(dir, "out")})
	assert.True(t, errors.Is(err, ctm.ErrMismatch))
}
