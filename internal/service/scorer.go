package service

import (
	"sort"
)

// Scorer reduces matched findings to a single score.
type Scorer struct{}

// NewScorer creates a new scorer
func NewScorer() *Scorer {
	return &Scorer{}
}

// Score sums the weights of matched in lexical finding-id order, so the
// floating point result does not depend on map iteration. An empty map scores
// exactly 0.
func (s *Scorer) Score(matched map[string]float64) float64 {
	if len(matched) == 0 {
		return 0
	}

	ids := make([]string, 0, len(matched))
	for id := range matched {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var total float64
	for _, id := range ids {
		total += matched[id]
	}
	return total
}
