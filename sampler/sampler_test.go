package sampler

import (
	"math"
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func items(probs ...*float64) []Item[string] {
	out := make([]Item[string], len(probs))
	for i, p := range probs {
		out[i] = Item[string]{Value: string(rune('a' + i)), Probability: p}
	}
	return out
}

func probsOf(items []Item[string]) []float64 {
	out := make([]float64, len(items))
	for i, it := range items {
		out[i] = it.P()
	}
	return out
}

func TestSmooth_SumsToTarget(t *testing.T) {
	tests := []struct {
		name   string
		in     []Item[string]
		weight float64
		target float64
	}{
		{"all unspecified", items(nil, nil, nil), 0.3, 1},
		{"mixed", items(Prob(0.2), nil, Prob(0.5), nil), 0.3, 1},
		{"over one", items(Prob(0.8), Prob(0.7), nil), 0.3, 1},
		{"target half", items(Prob(0.1), Prob(0.4)), 0, 0.5},
		{"single", items(nil), 0.5, 0.25},
		{"all zero", items(Prob(0), Prob(0)), 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Smooth(tt.in, tt.weight, tt.target)
			require.NoError(t, err)
			require.Len(t, out, len(tt.in))
			assert.InDelta(t, tt.target, Total(out), 1e-8)
			for i, it := range out {
				require.NotNil(t, it.Probability)
				assert.GreaterOrEqual(t, *it.Probability, 0.0, "item %d", i)
				assert.Equal(t, tt.in[i].Value, it.Value)
			}
		})
	}
}

func TestSmooth_ZeroWeightKeepsNormalizedOriginals(t *testing.T) {
	out, err := Smooth(items(Prob(0.1), Prob(0.3), Prob(0.4)), 0, 1)
	require.NoError(t, err)
	want := []float64{0.125, 0.375, 0.5}
	for i, p := range probsOf(out) {
		assert.InDelta(t, want[i], p, 1e-12)
	}
}

func TestSmooth_FullWeightIsUniform(t *testing.T) {
	out, err := Smooth(items(Prob(0.9), nil, Prob(0.01), Prob(0.05)), 1, 1)
	require.NoError(t, err)
	for _, p := range probsOf(out) {
		assert.InDelta(t, 0.25, p, 1e-12)
	}
}

func TestSmooth_FillsUnspecifiedUniformly(t *testing.T) {
	out, err := Smooth(items(Prob(0.4), nil, nil), 0, 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.4, 0.3, 0.3}, roundAll(probsOf(out)))
}

func TestSmooth_OverfullGivesUnspecifiedZero(t *testing.T) {
	out, err := Smooth(items(Prob(0.6), Prob(0.6), nil), 0, 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 0.5, 0}, roundAll(probsOf(out)))
}

func TestSmooth_DoesNotMutateInput(t *testing.T) {
	in := items(Prob(0.2), nil)
	_, err := Smooth(in, 0.5, 1)
	require.NoError(t, err)
	assert.Nil(t, in[1].Probability)
	assert.Equal(t, 0.2, *in[0].Probability)
}

func TestSmooth_Errors(t *testing.T) {
	_, err := Smooth[string](nil, 0, 1)
	assert.True(t, errors.Is(err, ErrEmptySet))

	_, err = Smooth(items(nil), 1.5, 1)
	assert.True(t, errors.Is(err, ErrInvalidWeight))

	_, err = Smooth(items(Prob(-0.1)), 0, 1)
	assert.True(t, errors.Is(err, ErrInvalidWeight))
}

func TestCycle_Wraps(t *testing.T) {
	c, err := NewCycle([]float64{20, 10, 0})
	require.NoError(t, err)
	first := c.Next()
	c.Next()
	c.Next()
	assert.Equal(t, first, c.Next(), "element N+1 equals element 1")
	assert.Equal(t, 10.0, c.Next())

	c.Reset()
	assert.Equal(t, 20.0, c.Next())
	assert.Equal(t, 3, c.Len())
}

func TestCycle_CopiesInput(t *testing.T) {
	src := []int{1, 2}
	c, err := NewCycle(src)
	require.NoError(t, err)
	src[0] = 9
	assert.Equal(t, 1, c.Next())
}

func TestCycle_Empty(t *testing.T) {
	_, err := NewCycle[int](nil)
	assert.True(t, errors.Is(err, ErrEmptyIterator))
}

func TestChoose_EmpiricalFrequency(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	set := []Item[string]{
		{Value: "a", Probability: Prob(0.3)},
		{Value: "b", Probability: Prob(0.7)},
	}
	const n = 100000
	counts := map[string]int{}
	for i := 0; i < n; i++ {
		v, err := Choose(r, set)
		require.NoError(t, err)
		counts[v]++
	}
	assert.InDelta(t, 0.3, float64(counts["a"])/n, 0.01)
	assert.InDelta(t, 0.7, float64(counts["b"])/n, 0.01)
}

func TestChoose_Deterministic(t *testing.T) {
	set := []Item[int]{{Value: 1, Probability: Prob(0.5)}, {Value: 2, Probability: Prob(0.5)}}
	draw := func() []int {
		r := rand.New(rand.NewSource(42))
		var out []int
		for i := 0; i < 20; i++ {
			v, err := Choose(r, set)
			require.NoError(t, err)
			out = append(out, v)
		}
		return out
	}
	assert.Equal(t, draw(), draw())
}

func TestChoose_SkipsZeroProbability(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	set := []Item[string]{{Value: "never", Probability: Prob(0)}, {Value: "always", Probability: Prob(1)}}
	for i := 0; i < 1000; i++ {
		v, err := Choose(r, set)
		require.NoError(t, err)
		require.Equal(t, "always", v)
	}
}

func TestChoose_Empty(t *testing.T) {
	_, err := Choose[string](rand.New(rand.NewSource(0)), nil)
	assert.True(t, errors.Is(err, ErrEmptySet))

	_, err = ChooseIndex(rand.New(rand.NewSource(0)), []float64{0, 0})
	assert.True(t, errors.Is(err, ErrEmptySet))
}

func roundAll(ps []float64) []float64 {
	out := make([]float64, len(ps))
	for i, p := range ps {
		out[i] = math.Round(p*1e9) / 1e9
	}
	return out
}
