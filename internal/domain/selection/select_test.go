package selection

import (
	"testing"

	"github.com/forPelevin/clipcut/internal/types"
)

func opts() Options {
	return Options{SimilarityThreshold: 0.5, TimeWindow: 120}
}

func TestSelect_RejectsNearDuplicate(t *testing.T) {
	// Top two share most of their words and start within 30s; only the
	// higher scored one survives and the result still fills up to k.
	sorted := []types.Moment{
		{Start: 10, End: 40, Text: "the secret to growth is consistency every day", Score: 95},
		{Start: 35, End: 65, Text: "the secret to growth is consistency", Score: 90},
		{Start: 300, End: 330, Text: "a completely different topic entirely", Score: 80},
		{Start: 600, End: 630, Text: "yet another unrelated story here", Score: 70},
		{Start: 900, End: 930, Text: "closing thoughts on everything else", Score: 60},
	}
	got := Select(sorted, 3, opts())
	if len(got) != 3 {
		t.Fatalf("expected 3 moments, got %d", len(got))
	}
	if got[0].Score != 95 {
		t.Fatalf("expected highest scored moment first, got %v", got[0].Score)
	}
	for _, m := range got {
		if m.Score == 90 {
			t.Fatalf("near-duplicate should have been rejected")
		}
	}
}

func TestSelect_AllowsSimilarWhenFarApart(t *testing.T) {
	sorted := []types.Moment{
		{Start: 0, End: 30, Text: "same words again and again", Score: 9},
		{Start: 400, End: 430, Text: "same words again and again", Score: 8},
	}
	got := Select(sorted, 5, opts())
	if len(got) != 2 {
		t.Fatalf("expected both kept when temporally distant, got %d", len(got))
	}
}

func TestSelect_PairwiseDiversityProperty(t *testing.T) {
	sorted := []types.Moment{
		{Start: 0, End: 30, Text: "alpha beta gamma delta", Score: 10},
		{Start: 20, End: 50, Text: "alpha beta gamma epsilon", Score: 9},
		{Start: 40, End: 70, Text: "alpha beta zeta eta", Score: 8},
		{Start: 200, End: 230, Text: "alpha beta gamma delta", Score: 7},
	}
	got := Select(sorted, 3, opts())
	o := opts()
	for i := range got {
		for j := i + 1; j < len(got); j++ {
			dist := got[i].Start - got[j].Start
			if dist < 0 {
				dist = -dist
			}
			sim := similarity(wordSet(got[j].Text), wordSet(got[i].Text))
			if sim > o.SimilarityThreshold && dist < o.TimeWindow {
				t.Fatalf("accepted pair violates diversity: sim=%v dist=%v", sim, dist)
			}
		}
	}
}

func TestSelect_ShortInputUnchanged(t *testing.T) {
	sorted := []types.Moment{
		{Start: 0, End: 30, Text: "a", Score: 2},
		{Start: 50, End: 80, Text: "a", Score: 1},
	}
	got := Select(sorted, 5, opts())
	if len(got) != 2 {
		t.Fatalf("expected input returned unchanged, got %d", len(got))
	}
}

func TestSimilarity_Asymmetric(t *testing.T) {
	// The measure is relative to the candidate's own word count.
	cand := wordSet("one two")
	accepted := wordSet("one two three four five six")
	if got := similarity(cand, accepted); got != 1.0 {
		t.Fatalf("expected full overlap from candidate's view, got %v", got)
	}
	if got := similarity(accepted, cand); got >= 0.5 {
		t.Fatalf("expected partial overlap from the other view, got %v", got)
	}
}
