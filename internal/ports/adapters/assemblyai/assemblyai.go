// Package assemblyai implements the speech-to-text collaborator against
// the AssemblyAI REST API.
//
// AssemblyAI reports every timestamp in milliseconds. This adapter is the
// unit boundary: everything it returns is float64 seconds.
package assemblyai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/forPelevin/clipcut/internal/types"
)

const (
	defaultBaseURL = "https://api.assemblyai.com"
	pollInterval   = 3 * time.Second
)

// ErrUnavailable wraps any transport or provider failure so callers can
// treat transcription outages as one fatal condition.
var ErrUnavailable = errors.New("transcription unavailable")

type Adapter struct {
	key     string
	baseURL string
	client  *http.Client

	// poll overrides the poll sleep in tests.
	poll time.Duration
}

func New(apiKey, baseURL string) *Adapter {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Adapter{
		key:     apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 5 * time.Minute},
		poll:    pollInterval,
	}
}

// Transcribe uploads the media, requests a transcript and polls until it
// completes. The parsed transcript is cached in cacheDir keyed by file
// name; a warm cache skips the provider entirely.
func (a *Adapter) Transcribe(ctx context.Context, mediaPath, cacheDir string) (types.Transcript, error) {
	cachePath := filepath.Join(cacheDir, "transcript.json")
	if tr, ok := readCache(cachePath); ok {
		return tr, nil
	}

	audioURL, err := a.upload(ctx, mediaPath)
	if err != nil {
		return types.Transcript{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	id, err := a.request(ctx, audioURL)
	if err != nil {
		return types.Transcript{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	raw, err := a.await(ctx, id)
	if err != nil {
		return types.Transcript{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	sentences, err := a.sentences(ctx, id)
	if err != nil {
		return types.Transcript{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	tr := parseTranscript(raw, sentences)
	writeCache(cachePath, tr)
	return tr, nil
}

func (a *Adapter) upload(ctx context.Context, mediaPath string) (string, error) {
	f, err := os.Open(mediaPath)
	if err != nil {
		return "", fmt.Errorf("open media: %w", err)
	}
	defer f.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v2/upload", f)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", a.key)
	req.Header.Set("Content-Type", "application/octet-stream")

	body, err := a.do(req)
	if err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}
	url := gjson.GetBytes(body, "upload_url").String()
	if url == "" {
		return "", errors.New("upload: empty upload_url")
	}
	return url, nil
}

func (a *Adapter) request(ctx context.Context, audioURL string) (string, error) {
	payload, _ := json.Marshal(map[string]any{
		"audio_url":          audioURL,
		"punctuate":          true,
		"format_text":        true,
		"language_detection": true,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v2/transcript", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", a.key)
	req.Header.Set("Content-Type", "application/json")

	body, err := a.do(req)
	if err != nil {
		return "", fmt.Errorf("create transcript: %w", err)
	}
	id := gjson.GetBytes(body, "id").String()
	if id == "" {
		return "", errors.New("create transcript: empty id")
	}
	return id, nil
}

func (a *Adapter) await(ctx context.Context, id string) ([]byte, error) {
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/v2/transcript/"+id, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", a.key)

		body, err := a.do(req)
		if err != nil {
			return nil, fmt.Errorf("poll transcript: %w", err)
		}
		switch gjson.GetBytes(body, "status").String() {
		case "completed":
			return body, nil
		case "error":
			return nil, fmt.Errorf("provider error: %s", gjson.GetBytes(body, "error").String())
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(a.poll):
		}
	}
}

func (a *Adapter) sentences(ctx context.Context, id string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/v2/transcript/"+id+"/sentences", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", a.key)
	body, err := a.do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch sentences: %w", err)
	}
	return body, nil
}

func (a *Adapter) do(req *http.Request) ([]byte, error) {
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, truncate(string(body), 200))
	}
	return body, nil
}

// parseTranscript converts the provider payloads into the engine types,
// dividing every millisecond timestamp by 1000 exactly once.
func parseTranscript(raw, sentences []byte) types.Transcript {
	var tr types.Transcript
	tr.Text = gjson.GetBytes(raw, "text").String()

	for _, w := range gjson.GetBytes(raw, "words").Array() {
		tr.Words = append(tr.Words, parseWord(w))
	}
	for _, s := range gjson.GetBytes(sentences, "sentences").Array() {
		seg := types.Segment{
			Start: s.Get("start").Float() / 1000,
			End:   s.Get("end").Float() / 1000,
			Text:  strings.TrimSpace(s.Get("text").String()),
		}
		for _, w := range s.Get("words").Array() {
			seg.Words = append(seg.Words, parseWord(w))
		}
		tr.Segments = append(tr.Segments, seg)
	}

	// Some responses carry words but no sentence units. Fall back to one
	// segment spanning the whole transcript so merging still works.
	if len(tr.Segments) == 0 && len(tr.Words) > 0 {
		tr.Segments = []types.Segment{{
			Start: tr.Words[0].Start,
			End:   tr.Words[len(tr.Words)-1].End,
			Text:  tr.Text,
			Words: tr.Words,
		}}
	}
	return tr
}

func parseWord(w gjson.Result) types.Word {
	conf := 1.0
	if c := w.Get("confidence"); c.Exists() {
		conf = c.Float()
	}
	return types.Word{
		Text:       strings.TrimSpace(w.Get("text").String()),
		Start:      w.Get("start").Float() / 1000,
		End:        w.Get("end").Float() / 1000,
		Confidence: conf,
	}
}

func readCache(path string) (types.Transcript, bool) {
	b, err := os.ReadFile(path)
	if err != nil {
		return types.Transcript{}, false
	}
	var tr types.Transcript
	if err := json.Unmarshal(b, &tr); err != nil {
		return types.Transcript{}, false
	}
	return tr, len(tr.Segments) > 0
}

func writeCache(path string, tr types.Transcript) {
	b, err := json.Marshal(tr)
	if err != nil {
		return
	}
	// Cache misses are cheap to retry; write errors are not worth failing
	// the run for.
	_ = os.WriteFile(path, b, 0o644)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
