package rag

import "sort"

const (
	DefaultMatchThreshold = 0.44
	DefaultTopK           = 5
)

type Candidate struct {
	ID     int64
	Vector []float32
}

type Match struct {
	ID    int64
	Score float64
}

// Rank scores candidates against the query vector by dot product (vectors
// are unit-normalized at embedding time, so this is cosine similarity),
// drops scores below threshold, sorts descending and truncates to topK.
// Equal scores keep the original candidate order.
func Rank(query []float32, candidates []Candidate, threshold float64, topK int) []Match {
	matches := make([]Match, 0, len(candidates))
	for _, c := range candidates {
		score := Dot(query, c.Vector)
		if score >= threshold {
			matches = append(matches, Match{ID: c.ID, Score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}

// Dot returns the dot product over the shared prefix of a and b.
// Mismatched dimensionality is a caller invariant violation; the shorter
// length guards against a panic without hiding the bad score.
func Dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
