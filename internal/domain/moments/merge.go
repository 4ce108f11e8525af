// Package moments merges raw transcript segments into continuous-speech
// candidate windows.
package moments

import (
	"strings"

	"github.com/forPelevin/clipcut/internal/types"
)

// Options controls how segments are folded into candidate moments.
type Options struct {
	MinDuration float64 // seconds
	MaxDuration float64 // seconds
	MaxPauseGap float64 // seconds
}

const (
	// maxDurationSafetyMargin keeps a window from growing right up to the
	// hard maximum so the closing segment still fits.
	maxDurationSafetyMargin = 2.0

	// thoughtBoundaryPause is the pause after terminal punctuation that
	// always closes a window, even a short one.
	thoughtBoundaryPause = 0.3

	// comfortableDuration is the window length past which any terminal
	// punctuation closes the window.
	comfortableDuration = 25.0
)

// Merge walks segments left to right and folds runs of continuous speech
// into candidate moments. The output is ordered by start time,
// non-overlapping, and every returned moment satisfies
// MinDuration <= duration <= MaxDuration. Windows that end up shorter
// than MinDuration are dropped.
func Merge(segments []types.Segment, opts Options) []types.Moment {
	if len(segments) == 0 || opts.MaxDuration < opts.MinDuration {
		return nil
	}

	var out []types.Moment
	i := 0
	for i < len(segments) {
		window := []types.Segment{segments[i]}
		j := i + 1
		for j < len(segments) {
			prev := segments[j-1]
			next := segments[j]
			if !canExtend(window[0].Start, prev, next, opts) {
				break
			}
			window = append(window, next)
			j++
		}
		if m, ok := build(window, opts); ok {
			out = append(out, m)
		}
		i = j
	}
	return out
}

func canExtend(windowStart float64, prev, next types.Segment, opts Options) bool {
	gap := next.Start - prev.End
	if gap > opts.MaxPauseGap {
		return false
	}
	if next.End-windowStart >= opts.MaxDuration-maxDurationSafetyMargin {
		return false
	}

	// Prefer closing at a natural thought boundary over running the
	// window to the hard maximum.
	if endsThought(prev.Text) {
		dur := prev.End - windowStart
		if gap > thoughtBoundaryPause {
			return false
		}
		if dur >= opts.MinDuration && gap > 0 {
			return false
		}
		if dur > comfortableDuration {
			return false
		}
	}
	return true
}

func endsThought(text string) bool {
	t := strings.TrimSpace(text)
	if t == "" {
		return false
	}
	switch {
	case strings.HasSuffix(t, "."), strings.HasSuffix(t, "!"),
		strings.HasSuffix(t, "?"), strings.HasSuffix(t, "…"):
		return true
	}
	return false
}

func build(window []types.Segment, opts Options) (types.Moment, bool) {
	start := window[0].Start
	end := window[len(window)-1].End
	// A single segment can already exceed the maximum; such windows have
	// no clean cut point and are dropped.
	if end-start < opts.MinDuration || end-start > opts.MaxDuration {
		return types.Moment{}, false
	}

	var parts []string
	var words []types.Word
	for _, s := range window {
		if t := strings.TrimSpace(s.Text); t != "" {
			parts = append(parts, t)
		}
		words = append(words, s.Words...)
	}
	return types.Moment{
		Start: start,
		End:   end,
		Text:  strings.Join(parts, " "),
		Words: words,
	}, true
}
