package services

import (
	"math/rand/v2"
)

// SelectionPolicy picks exactly one provider from a non-empty candidate set.
// Callers must check the set size first; implementations may panic on empty input.
type SelectionPolicy interface {
	Select(candidates []string) string
}

// UniformRandomPolicy selects uniformly at random. IntN is injectable for
// deterministic tests and defaults to math/rand/v2.
type UniformRandomPolicy struct {
	IntN func(n int) int
}

func (p UniformRandomPolicy) Select(candidates []string) string {
	if len(candidates) == 0 {
		panic("selection policy called with no candidates")
	}
	intN := p.IntN
	if intN == nil {
		intN = rand.IntN
	}
	return candidates[intN(len(candidates))]
}

// SelectionPolicyFunc adapts a function to SelectionPolicy.
type SelectionPolicyFunc func(candidates []string) string

func (f SelectionPolicyFunc) Select(candidates []string) string {
	return f(candidates)
}
