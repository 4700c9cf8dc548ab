package rag

import (
	"math"
	"testing"
)

func TestRank_ThresholdAndOrder(t *testing.T) {
	query := []float32{1, 0}
	candidates := []Candidate{
		{ID: 1, Vector: []float32{0.9, 0}},
		{ID: 2, Vector: []float32{0.5, 0}},
		{ID: 3, Vector: []float32{0.7, 0}},
		{ID: 4, Vector: []float32{0.3, 0}},
	}

	matches := Rank(query, candidates, 0.6, 2)
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].ID != 1 || matches[1].ID != 3 {
		t.Fatalf("wrong order: %+v", matches)
	}
	if math.Abs(matches[0].Score-0.9) > 1e-6 {
		t.Fatalf("score = %f, want 0.9", matches[0].Score)
	}
}

func TestRank_NothingAboveThreshold(t *testing.T) {
	matches := Rank([]float32{1, 0}, []Candidate{
		{ID: 1, Vector: []float32{0.1, 0}},
	}, 0.44, 5)
	if len(matches) != 0 {
		t.Fatalf("expected no matches, got %+v", matches)
	}
}

func TestRank_StableOnTies(t *testing.T) {
	query := []float32{1}
	candidates := []Candidate{
		{ID: 10, Vector: []float32{0.8}},
		{ID: 20, Vector: []float32{0.8}},
		{ID: 30, Vector: []float32{0.8}},
	}
	matches := Rank(query, candidates, 0.5, 0)
	if len(matches) != 3 {
		t.Fatalf("expected 3 matches, got %d", len(matches))
	}
	for i, want := range []int64{10, 20, 30} {
		if matches[i].ID != want {
			t.Fatalf("tie order broken: %+v", matches)
		}
	}
}

func TestDot_SharedPrefixOnly(t *testing.T) {
	got := Dot([]float32{1, 2, 3}, []float32{4, 5})
	if got != 14 {
		t.Fatalf("Dot = %f, want 14", got)
	}
}
