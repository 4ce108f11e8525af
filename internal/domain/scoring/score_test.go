package scoring

import (
	"math"
	"testing"

	"github.com/forPelevin/clipcut/internal/config"
	"github.com/forPelevin/clipcut/internal/types"
)

func testMoment() types.Moment {
	return types.Moment{
		Start: 10,
		End:   30,
		Text:  "Did you know this is the best part? It really is! But nobody checks.",
		Words: []types.Word{
			{Text: "Did", Start: 10.0, End: 10.2},
			{Text: "you", Start: 10.3, End: 10.5},
			{Text: "know", Start: 10.6, End: 11.1},
			{Text: "this", Start: 11.6, End: 11.8},
			{Text: "is", Start: 11.9, End: 12.0},
			{Text: "the", Start: 12.1, End: 12.3},
			{Text: "best", Start: 12.4, End: 13.0},
		},
	}
}

func TestScore_BreakdownCoversFeatureSet(t *testing.T) {
	s := New(config.Default().Weights)
	m := s.Score(testMoment(), 300, nil)

	if len(m.Breakdown) != len(types.Features()) {
		t.Fatalf("expected %d breakdown entries, got %d", len(types.Features()), len(m.Breakdown))
	}
	for _, f := range types.Features() {
		v, ok := m.Breakdown[f]
		if !ok {
			t.Fatalf("missing feature %q", f)
		}
		if v < 0 || v > 10 {
			t.Fatalf("feature %q out of range: %v", f, v)
		}
	}
}

func TestScore_Idempotent(t *testing.T) {
	s := New(config.Default().Weights)
	signal := &types.RelevanceSignal{Intervals: []types.RelevanceInterval{
		{Start: 5, End: 25, Score: 8, Reason: "strong hook"},
	}}
	a := s.Score(testMoment(), 300, signal)
	b := s.Score(testMoment(), 300, signal)
	if a.Score != b.Score {
		t.Fatalf("scores differ: %v vs %v", a.Score, b.Score)
	}
	for f, v := range a.Breakdown {
		if b.Breakdown[f] != v {
			t.Fatalf("feature %q differs: %v vs %v", f, v, b.Breakdown[f])
		}
	}
}

func TestScore_WeightedTotal(t *testing.T) {
	w := config.Weights{Energy: 1} // all other weights zero
	s := New(w)
	m := s.Score(testMoment(), 300, nil)
	if math.Abs(m.Score-m.Breakdown[types.FeatureEnergy]) > 1e-9 {
		t.Fatalf("expected total to equal energy subscore, got %v vs %v",
			m.Score, m.Breakdown[types.FeatureEnergy])
	}
}

func TestRelevance_OverlapAndMiss(t *testing.T) {
	s := New(config.Default().Weights)
	signal := &types.RelevanceSignal{Intervals: []types.RelevanceInterval{
		{Start: 100, End: 140, Score: 9, Reason: "peak"},
	}}

	hit := s.Score(types.Moment{Start: 130, End: 150, Text: "x y z"}, 300, signal)
	if hit.Breakdown[types.FeatureRelevance] != 9 {
		t.Fatalf("expected relevance 9, got %v", hit.Breakdown[types.FeatureRelevance])
	}
	if hit.RelevanceReason != "peak" {
		t.Fatalf("expected reason carried over, got %q", hit.RelevanceReason)
	}

	miss := s.Score(types.Moment{Start: 10, End: 30, Text: "x y z"}, 300, signal)
	if miss.Breakdown[types.FeatureRelevance] != 0 {
		t.Fatalf("expected relevance 0 for non-overlapping moment, got %v",
			miss.Breakdown[types.FeatureRelevance])
	}

	none := s.Score(types.Moment{Start: 10, End: 30, Text: "x y z"}, 300, nil)
	if none.Breakdown[types.FeatureRelevance] != 0 {
		t.Fatalf("expected relevance 0 without signal, got %v",
			none.Breakdown[types.FeatureRelevance])
	}
}

func TestStructureScore_Ramps(t *testing.T) {
	tests := []struct {
		name  string
		start float64
		total float64
		want  float64
	}{
		{"video open", 0, 1000, 10},
		{"middle", 500, 1000, 5},
		{"video close", 1000, 1000, 10},
		{"half into opening ramp", 50, 1000, 7.5},
		{"unknown total", 50, 0, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := structureScore(tt.start, tt.total)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("structureScore(%v,%v) = %v, want %v", tt.start, tt.total, got, tt.want)
			}
		})
	}
}

func TestSpeechPaceScore_PeaksAt160(t *testing.T) {
	moment := func(words int, dur float64) types.Moment {
		text := ""
		for i := 0; i < words; i++ {
			text += "w "
		}
		return types.Moment{Start: 0, End: dur, Text: text}
	}

	ideal := speechPaceScore(moment(160, 60)) // 160 wpm
	edge := speechPaceScore(moment(120, 60))  // 120 wpm
	slow := speechPaceScore(moment(40, 60))   // 40 wpm

	if math.Abs(ideal-10) > 1e-9 {
		t.Fatalf("expected 10 at 160wpm, got %v", ideal)
	}
	if math.Abs(edge-5) > 1e-9 {
		t.Fatalf("expected 5 at band edge, got %v", edge)
	}
	if slow >= edge {
		t.Fatalf("expected pace outside band to keep degrading: %v >= %v", slow, edge)
	}
}

func TestPunctuationScore(t *testing.T) {
	tests := []struct {
		name string
		text string
		want float64
	}{
		{"plain", "nothing here", 0},
		{"one question", "really?", 2.5},
		{"mixed", "wow! really? hm...", 6.0},
		{"many questions", "a? b? c? d?", 10}, // 4*2.5 + 3 bonus, capped
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := punctuationScore(tt.text); math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("punctuationScore(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestTempoVariation_NeutralWithFewWords(t *testing.T) {
	m := types.Moment{Words: []types.Word{
		{Start: 0, End: 0.2}, {Start: 0.3, End: 0.4},
	}}
	if got := tempoVariationScore(m); got != 5.0 {
		t.Fatalf("expected neutral 5.0 with <5 timed words, got %v", got)
	}
}

func TestHookScore_Patterns(t *testing.T) {
	question := hookScore("Did you know sharks are older than trees?")
	plain := hookScore("the weather was mild and unremarkable today")
	if question <= plain {
		t.Fatalf("expected question opener to outscore plain text: %v <= %v", question, plain)
	}
	if got := hookScore(""); got != 0 {
		t.Fatalf("expected 0 for empty text, got %v", got)
	}
}

func TestEnergyScore_RepetitionBonus(t *testing.T) {
	base := types.Moment{Start: 0, End: 10, Text: "this is fine and calm and slow"}
	repeated := types.Moment{Start: 0, End: 10, Text: "no no no this is really really wild"}
	if energyScore(repeated) <= energyScore(base) {
		t.Fatalf("expected repetition to raise energy: %v <= %v",
			energyScore(repeated), energyScore(base))
	}
}
