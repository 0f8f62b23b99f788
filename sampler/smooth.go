// Package sampler implements weighted sets with partially specified
// probabilities, a cyclic iterator and seeded weighted draws.
package sampler

import (
	"math"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

var (
	// ErrEmptySet is returned when smoothing or drawing from a set without items.
	ErrEmptySet = errors.New("sampler: empty weighted set")
	// ErrInvalidWeight is returned for smoothing weights or probabilities out of range.
	ErrInvalidWeight = errors.New("sampler: invalid weight")
)

// Item is one member of a weighted set. A nil Probability means the caller
// left it unspecified.
type Item[T any] struct {
	Value       T
	Probability *float64
}

// Prob returns a pointer to p, for filling Item.Probability inline.
func Prob(p float64) *float64 {
	return &p
}

// P returns the item's probability, or 0 when unspecified.
func (it Item[T]) P() float64 {
	if it.Probability == nil {
		return 0
	}
	return *it.Probability
}

// Smooth completes the distribution over items and returns a new slice in
// the same order with every probability set.
//
// Unspecified items share the mass left by the specified ones. Every item
// is then mixed with the uniform distribution 1/N by weight, and the set is
// rescaled so that its probabilities sum to target.
func Smooth[T any](items []Item[T], weight, target float64) ([]Item[T], error) {
	if len(items) == 0 {
		return nil, ErrEmptySet
	}
	if weight < 0 || weight > 1 || math.IsNaN(weight) {
		return nil, errors.Wrapf(ErrInvalidWeight, "smoothing weight %v not in [0,1]", weight)
	}
	if target < 0 || math.IsNaN(target) {
		return nil, errors.Wrapf(ErrInvalidWeight, "target sum %v is negative", target)
	}

	var (
		unspecified int
		accumulated float64
	)
	for i, it := range items {
		if it.Probability == nil {
			unspecified++
			continue
		}
		if *it.Probability < 0 || math.IsNaN(*it.Probability) {
			return nil, errors.Wrapf(ErrInvalidWeight, "item %d has probability %v", i, *it.Probability)
		}
		accumulated += *it.Probability
	}

	var fill float64
	if unspecified > 0 {
		if accumulated < 1 {
			fill = math.Max(0, (1-accumulated)/float64(unspecified))
		} else {
			log.Warnf("specified probabilities sum to %.4f >= 1; %d unspecified items get probability 0",
				accumulated, unspecified)
		}
	}

	n := float64(len(items))
	uniform := 1 / n
	out := make([]Item[T], len(items))
	var sum float64
	for i, it := range items {
		p := fill
		if it.Probability != nil {
			p = *it.Probability
		}
		p = (1-weight)*p + weight*uniform
		out[i] = Item[T]{Value: it.Value, Probability: Prob(p)}
		sum += p
	}

	if sum == 0 {
		for i := range out {
			*out[i].Probability = target / n
		}
		return out, nil
	}
	for i := range out {
		*out[i].Probability = *out[i].Probability / sum * target
	}
	return out, nil
}

// Total returns the sum of probabilities in the set.
func Total[T any](items []Item[T]) float64 {
	var s float64
	for _, it := range items {
		s += it.P()
	}
	return s
}
