// Package scoring computes the multi-factor engagement score for a moment.
package scoring

import (
	"math"
	"regexp"
	"strings"

	"github.com/forPelevin/clipcut/internal/config"
	"github.com/forPelevin/clipcut/internal/types"
)

// Scorer fills Moment.Score and Moment.Breakdown. It is a pure function
// of the moment, the total source duration and the optional relevance
// signal: re-scoring the same moment yields the same result.
type Scorer struct {
	weights config.Weights
}

func New(weights config.Weights) Scorer { return Scorer{weights: weights} }

// Score computes every sub-score, records it in the breakdown and sets
// the weighted total. The weighted total is unbounded; only the relative
// ranking matters.
func (s Scorer) Score(m types.Moment, totalDuration float64, signal *types.RelevanceSignal) types.Moment {
	relevance, reason := signal.ScoreFor(m.Start, m.End)

	breakdown := map[types.Feature]float64{
		types.FeatureEnergy:         energyScore(m),
		types.FeatureTempoVariation: tempoVariationScore(m),
		types.FeaturePauses:         pauseScore(m),
		types.FeaturePunctuation:    punctuationScore(m.Text),
		types.FeatureSpeechPace:     speechPaceScore(m),
		types.FeatureStructure:      structureScore(m.Start, totalDuration),
		types.FeatureHook:           hookScore(m.Text),
		types.FeatureRelevance:      relevance,
	}

	m.Breakdown = breakdown
	m.RelevanceReason = reason
	m.Score = breakdown[types.FeatureEnergy]*s.weights.Energy +
		breakdown[types.FeatureTempoVariation]*s.weights.TempoVariation +
		breakdown[types.FeaturePauses]*s.weights.Pauses +
		breakdown[types.FeaturePunctuation]*s.weights.Punctuation +
		breakdown[types.FeatureSpeechPace]*s.weights.SpeechPace +
		breakdown[types.FeatureStructure]*s.weights.Structure +
		breakdown[types.FeatureHook]*s.weights.Hook +
		breakdown[types.FeatureRelevance]*s.weights.Relevance
	return m
}

// energyScore rewards dense, punchy delivery: words per second, characters
// per second, a flat bonus for predominantly short words and a bonus for
// immediate word repetitions.
func energyScore(m types.Moment) float64 {
	dur := m.Duration()
	if dur <= 0 {
		return 0
	}
	tokens := strings.Fields(m.Text)
	if len(tokens) == 0 {
		return 0
	}

	wordDensity := clamp(float64(len(tokens))/dur*3.0, 0, 10)
	charDensity := clamp(float64(len([]rune(m.Text)))/dur*0.7, 0, 10)

	short := 0
	for _, t := range tokens {
		if len([]rune(strings.Trim(t, ".,!?…"))) <= 4 {
			short++
		}
	}
	shortWordBonus := 0.0
	if float64(short)/float64(len(tokens)) > 0.6 {
		shortWordBonus = 2.0
	}

	repeats := 0
	for i := 1; i < len(tokens); i++ {
		if strings.EqualFold(normalizeToken(tokens[i]), normalizeToken(tokens[i-1])) {
			repeats++
		}
	}
	repetition := math.Min(float64(repeats)*1.5, 5)

	return clamp(0.4*wordDensity+0.3*charDensity+shortWordBonus+0.3*repetition, 0, 10)
}

// tempoVariationScore measures how much per-word durations deviate from
// their mean. Monotone delivery scores low; lively delivery scores high.
// With fewer than 5 timed words there is not enough signal, so the score
// is a neutral 5.
func tempoVariationScore(m types.Moment) float64 {
	var durs []float64
	for _, w := range m.Words {
		if w.End > w.Start {
			durs = append(durs, w.End-w.Start)
		}
	}
	if len(durs) < 5 {
		return 5.0
	}
	mean := 0.0
	for _, d := range durs {
		mean += d
	}
	mean /= float64(len(durs))

	mad := 0.0
	for _, d := range durs {
		mad += math.Abs(d - mean)
	}
	mad /= float64(len(durs))

	return clamp(mad*15, 0, 10)
}

// pauseScore counts dramatic inter-word gaps and the spread between the
// longest and shortest gap.
func pauseScore(m types.Moment) float64 {
	var gaps []float64
	for i := 1; i < len(m.Words); i++ {
		gap := m.Words[i].Start - m.Words[i-1].End
		if gap > 0 {
			gaps = append(gaps, gap)
		}
	}
	if len(gaps) == 0 {
		return 0
	}

	long := 0
	minGap, maxGap := gaps[0], gaps[0]
	for _, g := range gaps {
		if g > 0.3 {
			long++
		}
		if g < minGap {
			minGap = g
		}
		if g > maxGap {
			maxGap = g
		}
	}
	spread := math.Min((maxGap-minGap)*5, 5)
	return clamp(float64(long)*1.5+spread, 0, 10)
}

// punctuationScore rewards questions, exclamations and trailing thoughts.
func punctuationScore(text string) float64 {
	questions := strings.Count(text, "?")
	exclamations := strings.Count(text, "!")
	ellipses := strings.Count(text, "...") + strings.Count(text, "…")

	score := float64(questions)*2.5 + float64(exclamations)*2.0 + float64(ellipses)*1.5
	if questions > 2 || exclamations > 2 {
		score += 3
	}
	return clamp(score, 0, 10)
}

const (
	paceIdealWPM   = 160.0
	paceBandLowWPM = 120.0
	paceBandTopWPM = 200.0
)

// speechPaceScore maps words-per-minute onto a curve peaking at 160 wpm.
// Inside the 120-200 wpm band the score falls linearly from 10 to 5 at
// the band edges; outside the band it keeps degrading at the same slope.
func speechPaceScore(m types.Moment) float64 {
	dur := m.Duration()
	words := len(strings.Fields(m.Text))
	if dur <= 0 || words == 0 {
		return 0
	}
	wpm := float64(words) / dur * 60
	dist := math.Abs(wpm - paceIdealWPM)
	halfBand := paceIdealWPM - paceBandLowWPM
	return clamp(10-5*dist/halfBand, 0, 10)
}

// structureScore favors the opening and closing stretches of the video:
// a 10→5 ramp over the first 10%, flat 5 through the middle, a 5→10 ramp
// over the last 10%.
func structureScore(start, totalDuration float64) float64 {
	if totalDuration <= 0 {
		return 5.0
	}
	pos := start / totalDuration
	switch {
	case pos < 0:
		return 10.0
	case pos < 0.1:
		return 10 - (pos/0.1)*5
	case pos > 0.9:
		edge := (pos - 0.9) / 0.1
		if edge > 1 {
			edge = 1
		}
		return 5 + edge*5
	default:
		return 5.0
	}
}

var (
	reQuestionOpener = regexp.MustCompile(`(?i)^(what if|did you know|have you ever|why do|why does|how do|how does|what happens|guess what|can you)\b`)
	reStrongOpener   = regexp.MustCompile(`(?i)^(never|always|nobody|everyone|here'?s why|the truth|the biggest|the most|stop|listen)\b`)
	reNumber         = regexp.MustCompile(`\b\d+(?:[.,]\d+)?%?\b`)
	reContrast       = regexp.MustCompile(`(?i)\b(but|however|although|though|instead|actually|despite|yet)\b`)
	reFirstPerson    = regexp.MustCompile(`(?i)\b(i|me|my|mine|we|us|our)\b`)
)

// hookScore scans the opening words and the full text for lexical
// attention-grab patterns.
func hookScore(text string) float64 {
	t := strings.TrimSpace(text)
	if t == "" {
		return 0
	}
	tokens := strings.Fields(t)
	openerN := 5
	if len(tokens) < openerN {
		openerN = len(tokens)
	}
	opener := strings.Join(tokens[:openerN], " ")

	score := 0.0
	if reQuestionOpener.MatchString(opener) {
		score += 5
	}
	score += math.Min(float64(strings.Count(t, "?"))*1.5, 3)
	if reStrongOpener.MatchString(opener) {
		score += 3
	}

	switch n := len(reNumber.FindAllString(t, -1)); {
	case n >= 3:
		score += 2
	case n >= 1:
		score += 1
	}

	score += math.Min(float64(len(reContrast.FindAllString(t, -1)))*1.5, 3)

	switch n := len(reFirstPerson.FindAllString(t, -1)); {
	case n >= 5:
		score += 2
	case n >= 2:
		score += 1
	}

	return clamp(score, 0, 10)
}

func normalizeToken(t string) string {
	return strings.Trim(strings.ToLower(t), ".,!?…;:\"'")
}

func clamp(x, a, b float64) float64 {
	if x < a {
		return a
	}
	if x > b {
		return b
	}
	return x
}
