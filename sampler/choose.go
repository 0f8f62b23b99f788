package sampler

import "math/rand"

// Choose draws one item by inverting the cumulative distribution of the
// set, walked in its fixed order. The set need not sum to 1; draws are
// scaled by its total. Items with zero probability are never returned.
func Choose[T any](r *rand.Rand, items []Item[T]) (T, error) {
	var zero T
	total := Total(items)
	if len(items) == 0 || total <= 0 {
		return zero, ErrEmptySet
	}

	u := r.Float64() * total
	var cum float64
	last := -1
	for i, it := range items {
		p := it.P()
		if p <= 0 {
			continue
		}
		cum += p
		last = i
		if cum > u {
			return it.Value, nil
		}
	}
	// rounding left u at or above the accumulated sum
	return items[last].Value, nil
}

// ChooseIndex is Choose over a plain probability vector.
func ChooseIndex(r *rand.Rand, probs []float64) (int, error) {
	items := make([]Item[int], len(probs))
	for i, p := range probs {
		items[i] = Item[int]{Value: i, Probability: Prob(p)}
	}
	return Choose(r, items)
}
