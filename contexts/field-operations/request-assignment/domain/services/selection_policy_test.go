package services

import (
	"reflect"
	"testing"
)

func TestUniformRandomPolicyUsesInjectedSource(t *testing.T) {
	policy := UniformRandomPolicy{IntN: func(n int) int { return n - 1 }}
	if got := policy.Select([]string{"p1", "p2", "p3"}); got != "p3" {
		t.Fatalf("expected p3, got %s", got)
	}
}

func TestUniformRandomPolicyAlwaysReturnsMember(t *testing.T) {
	candidates := []string{"p1", "p2", "p3"}
	seen := map[string]int{}
	policy := UniformRandomPolicy{}
	for i := 0; i < 300; i++ {
		got := policy.Select(candidates)
		seen[got]++
	}
	for id := range seen {
		if id != "p1" && id != "p2" && id != "p3" {
			t.Fatalf("selected non-candidate %s", id)
		}
	}
	if len(seen) != len(candidates) {
		t.Fatalf("expected every candidate to be selected at least once in 300 draws, got %v", seen)
	}
}

func TestUniformRandomPolicyPanicsOnEmpty(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on empty candidate set")
		}
	}()
	UniformRandomPolicy{}.Select(nil)
}

func TestNormalizeAndExcludeCandidates(t *testing.T) {
	got := NormalizeCandidates([]string{" p2", "p1", "", "p2", "p3 "})
	if !reflect.DeepEqual(got, []string{"p2", "p1", "p3"}) {
		t.Fatalf("unexpected normalized candidates: %v", got)
	}
	got = ExcludeCandidates([]string{"p2", "p1", "p3"}, []string{"p1"})
	if !reflect.DeepEqual(got, []string{"p2", "p3"}) {
		t.Fatalf("unexpected remaining candidates: %v", got)
	}
}
