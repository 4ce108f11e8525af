// Package selection picks a diverse top-K subset of scored moments.
package selection

import (
	"strings"

	"github.com/forPelevin/clipcut/internal/types"
)

// Options bounds what counts as a near-duplicate.
type Options struct {
	SimilarityThreshold float64 // word-set overlap above which two moments collide
	TimeWindow          float64 // seconds within which a collision is rejected
}

// Select greedily accepts moments in descending score order, rejecting any
// candidate that is both textually similar to and temporally close to an
// already accepted moment. Input must be pre-sorted descending by score;
// output keeps acceptance order. Callers that need chronological render
// order re-sort by start themselves.
func Select(sorted []types.Moment, k int, opts Options) []types.Moment {
	if len(sorted) <= k {
		return sorted
	}

	accepted := make([]types.Moment, 0, k)
	for _, cand := range sorted {
		if len(accepted) >= k {
			break
		}
		if collides(cand, accepted, opts) {
			continue
		}
		accepted = append(accepted, cand)
	}
	return accepted
}

func collides(cand types.Moment, accepted []types.Moment, opts Options) bool {
	candWords := wordSet(cand.Text)
	for _, a := range accepted {
		dist := cand.Start - a.Start
		if dist < 0 {
			dist = -dist
		}
		if dist >= opts.TimeWindow {
			continue
		}
		if similarity(candWords, wordSet(a.Text)) > opts.SimilarityThreshold {
			return true
		}
	}
	return false
}

// similarity is the share of the candidate's distinct words that also
// appear in the accepted moment.
func similarity(cand, accepted map[string]struct{}) float64 {
	if len(cand) == 0 {
		return 0
	}
	shared := 0
	for w := range cand {
		if _, ok := accepted[w]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(cand))
}

func wordSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, t := range strings.Fields(strings.ToLower(text)) {
		t = strings.Trim(t, ".,!?…;:\"'")
		if t != "" {
			set[t] = struct{}{}
		}
	}
	return set
}
