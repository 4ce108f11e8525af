// Package openai implements the optional LLM relevance collaborator over
// an OpenAI-compatible chat completions API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"github.com/tidwall/gjson"

	"github.com/forPelevin/clipcut/internal/types"
)

// ErrUnavailable wraps any provider failure. Callers decide whether that
// is fatal (relevance declared mandatory) or degrades to a zero signal.
var ErrUnavailable = errors.New("relevance unavailable")

type Adapter struct {
	client openai.Client
	model  string
}

func New(apiKey, baseURL, model string) *Adapter {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if strings.TrimSpace(baseURL) != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &Adapter{client: openai.NewClient(opts...), model: model}
}

const systemPrompt = "You rate video transcripts for short-form clip potential. " +
	"Given a timestamped transcript, return the most engaging intervals as JSON only."

// Analyze formats the whole transcript once, asks the model for flagged
// intervals and parses its JSON reply leniently.
func (a *Adapter) Analyze(ctx context.Context, tr types.Transcript, totalDuration float64) (*types.RelevanceSignal, error) {
	userPrompt := fmt.Sprintf(`Video duration: %.1f minutes.

Identify the 3-7 most engaging intervals for standalone clips. Look for hook
questions, strong statements, interesting facts, emotional peaks and clear
takeaways.

Reply with JSON only:
{"intervals":[{"start":12.5,"end":44.0,"score":8.5,"reason":"..."}],"summary":"..."}
Times are in seconds, score is 1-10.

Transcript:
%s`, totalDuration/60, formatTranscript(tr))

	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
		Model:       a.model,
		Temperature: openai.Float(0.2),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{Type: "json_object"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrUnavailable)
	}
	raw := strings.TrimSpace(resp.Choices[0].Message.Content)
	signal := parseSignal(raw)
	if signal == nil {
		return nil, fmt.Errorf("%w: unparseable reply", ErrUnavailable)
	}
	return signal, nil
}

// parseSignal tolerates replies wrapped in prose or code fences by
// extracting the first JSON object it can find.
func parseSignal(raw string) *types.RelevanceSignal {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil
	}
	doc := raw[start : end+1]
	if !gjson.Valid(doc) {
		return nil
	}

	signal := &types.RelevanceSignal{Summary: gjson.Get(doc, "summary").String()}
	for _, iv := range gjson.Get(doc, "intervals").Array() {
		s := iv.Get("start").Float()
		e := iv.Get("end").Float()
		if e <= s {
			continue
		}
		signal.Intervals = append(signal.Intervals, types.RelevanceInterval{
			Start:  s,
			End:    e,
			Score:  iv.Get("score").Float(),
			Reason: iv.Get("reason").String(),
		})
	}
	return signal
}

func formatTranscript(tr types.Transcript) string {
	var b strings.Builder
	for _, s := range tr.Segments {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		fmt.Fprintf(&b, "[%s - %s] %s\n", mmss(s.Start), mmss(s.End), text)
	}
	return b.String()
}

func mmss(sec float64) string {
	m := int(sec) / 60
	s := int(sec) % 60
	return fmt.Sprintf("%02d:%02d", m, s)
}
