package types

// Word is a single transcribed word with timing in seconds from the start
// of the source video. Adapters convert whatever unit the transcription
// provider uses (AssemblyAI reports milliseconds) before a Word is built.
type Word struct {
	Text       string  `json:"text"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Confidence float64 `json:"confidence"`
}

// Segment is a contiguous unit of transcribed speech. Segments for one
// video are ordered by Start and non-overlapping.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
	Words []Word  `json:"words,omitempty"`
}

// Transcript is the full output of the speech-to-text collaborator.
type Transcript struct {
	Segments []Segment `json:"segments"`
	Words    []Word    `json:"words,omitempty"`
	Text     string    `json:"text,omitempty"`
}

// Duration returns the end time of the last segment, in seconds.
func (t Transcript) Duration() float64 {
	if len(t.Segments) == 0 {
		return 0
	}
	return t.Segments[len(t.Segments)-1].End
}

// Feature names a scoring sub-score. Every scored Moment carries exactly
// this set of keys in its Breakdown.
type Feature string

const (
	FeatureEnergy         Feature = "energy"
	FeatureTempoVariation Feature = "tempo_variation"
	FeaturePauses         Feature = "pauses"
	FeaturePunctuation    Feature = "punctuation"
	FeatureSpeechPace     Feature = "speech_pace"
	FeatureStructure      Feature = "structure"
	FeatureHook           Feature = "hook"
	FeatureRelevance      Feature = "relevance"
)

// Features lists every scoring feature in a stable order.
func Features() []Feature {
	return []Feature{
		FeatureEnergy,
		FeatureTempoVariation,
		FeaturePauses,
		FeaturePunctuation,
		FeatureSpeechPace,
		FeatureStructure,
		FeatureHook,
		FeatureRelevance,
	}
}

// Moment is a merged candidate clip built from one or more segments.
// It is created unscored by the merger, scored in place by the scorer,
// filtered by the selector and consumed read-only by the renderer.
type Moment struct {
	Start float64
	End   float64
	Text  string
	Words []Word

	Score     float64
	Breakdown map[Feature]float64

	// RelevanceReason is the externally supplied explanation when the
	// moment overlapped an interval flagged by the relevance collaborator.
	RelevanceReason string
}

// Duration returns the moment length in seconds.
func (m Moment) Duration() float64 { return m.End - m.Start }

// RelevanceInterval is one externally flagged span of the transcript with
// a 1..10 engagement score.
type RelevanceInterval struct {
	Start  float64 `json:"start"`
	End    float64 `json:"end"`
	Score  float64 `json:"score"`
	Reason string  `json:"reason"`
}

// RelevanceSignal is the whole-transcript relevance result, fetched once
// before per-moment scoring.
type RelevanceSignal struct {
	Intervals []RelevanceInterval
	Summary   string
}

// ScoreFor returns the clamped score of the first interval overlapping
// [start,end), or 0 if none overlaps.
func (s *RelevanceSignal) ScoreFor(start, end float64) (float64, string) {
	if s == nil {
		return 0, ""
	}
	for _, iv := range s.Intervals {
		if start < iv.End && end > iv.Start {
			score := iv.Score
			if score > 10 {
				score = 10
			}
			if score < 0 {
				score = 0
			}
			return score, iv.Reason
		}
	}
	return 0, ""
}

// RenderResult reports the outcome of one render job. Exactly one of
// OutputPath and FailureReason is set.
type RenderResult struct {
	MomentIndex   int
	OutputPath    string
	FailureReason string
}

// Rendered reports whether the job produced a clip.
func (r RenderResult) Rendered() bool { return r.FailureReason == "" }

// Settlement records the billing reconciliation for one pipeline run.
type Settlement struct {
	ReservedCost int64
	ActualCost   int64
	RefundAmount int64
}

// Manifest is the JSON summary written beside the produced clips.
type Manifest struct {
	Input string         `json:"input"`
	Clips []ManifestClip `json:"clips"`
}

type ManifestClip struct {
	ID        string             `json:"id"`
	StartSec  float64            `json:"start_sec"`
	EndSec    float64            `json:"end_sec"`
	Score     float64            `json:"score"`
	Breakdown map[string]float64 `json:"breakdown"`
	Text      string             `json:"text"`
	File      string             `json:"file"`
	Reason    string             `json:"reason,omitempty"`
}
