// Package subtitles renders burned-in caption tracks for portrait clips.
package subtitles

import (
	"fmt"
	"strings"

	"github.com/forPelevin/clipcut/internal/types"
)

// Render produces an ASS caption track for one moment. Word timings are
// normalized to clip-local offsets because the transcoder burns a per-clip
// subtitle file, not a full-timeline one. When the moment carries no usable
// word timing the whole text is shown for the clip duration.
func Render(m types.Moment) string {
	words := clipWords(m)
	if len(words) == 0 {
		return renderPlain(m.Text, m.Duration())
	}
	return renderKaraoke(packWords(words))
}

type cue struct {
	Start float64
	End   float64
	Text  string
}

type line struct {
	Start float64
	End   float64
	Words []cue
}

func clipWords(m types.Moment) []cue {
	var out []cue
	for _, w := range m.Words {
		if w.End <= m.Start || w.Start >= m.End {
			continue
		}
		text := strings.TrimSpace(w.Text)
		if text == "" {
			continue
		}
		ws, we := w.Start, w.End
		if ws < m.Start {
			ws = m.Start
		}
		if we > m.End {
			we = m.End
		}
		if we <= ws {
			continue
		}
		out = append(out, cue{Start: ws - m.Start, End: we - m.Start, Text: sanitize(text)})
	}
	return out
}

func packWords(words []cue) []line {
	// Hard budgets keep caption chunks readable on a 1080-wide portrait
	// frame.
	const (
		charBudget = 38
		wordBudget = 8
	)
	var out []line
	cur := line{Start: words[0].Start}
	curLen := 0
	for i, w := range words {
		wl := len([]rune(w.Text))
		nextLen := curLen + wl
		if curLen > 0 {
			nextLen++
		}
		// An over-budget single word still owns its own line; only a
		// non-empty line can be flushed.
		if len(cur.Words) > 0 && (len(cur.Words) >= wordBudget || nextLen > charBudget) {
			cur.End = cur.Words[len(cur.Words)-1].End
			out = append(out, cur)
			cur = line{Start: w.Start}
			curLen = 0
		}
		cur.Words = append(cur.Words, w)
		if curLen > 0 {
			curLen++
		}
		curLen += wl
		if i == len(words)-1 {
			cur.End = w.End
			out = append(out, cur)
		}
	}
	return out
}

func renderKaraoke(lines []line) string {
	var b strings.Builder
	b.WriteString(header())
	b.WriteString("\n[Events]\n")
	b.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")
	for _, ln := range lines {
		b.WriteString("Dialogue: 0,")
		b.WriteString(assTime(ln.Start))
		b.WriteString(",")
		b.WriteString(assTime(ln.End))
		b.WriteString(",Caption,,0,0,0,,")
		for _, w := range ln.Words {
			durCS := int((w.End - w.Start) * 100)
			if durCS < 1 {
				durCS = 1
			}
			b.WriteString(fmt.Sprintf("{\\k%d}%s ", durCS, w.Text))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func renderPlain(text string, dur float64) string {
	var b strings.Builder
	b.WriteString(header())
	b.WriteString("\n[Events]\n")
	b.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")
	b.WriteString("Dialogue: 0,0:00:00.00,")
	b.WriteString(assTime(dur))
	b.WriteString(",Caption,,0,0,0,,")
	b.WriteString(sanitize(text))
	b.WriteString("\n")
	return b.String()
}

// Caption style sits at lower-middle height on the 1080x1920 portrait
// canvas the transcoder outputs.
func header() string {
	return strings.TrimSpace(`
[Script Info]
ScriptType: v4.00+
PlayResX: 1080
PlayResY: 1920
ScaledBorderAndShadow: yes

[V4+ Styles]
Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding
Style: Caption, Inter, 72, &H00FFFFFF, &H00FFD200, &H00000000, &H64000000, 1,0,0,0,100,100,0,0,1,6,2,2, 60,60,480,1
`)
}

func assTime(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	total := int(sec * 100) // centiseconds
	cs := total % 100
	s := (total / 100) % 60
	m := (total / 6000) % 60
	h := total / 360000
	return fmt.Sprintf("%d:%02d:%02d.%02d", h, m, s, cs)
}

func sanitize(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "{", "(")
	s = strings.ReplaceAll(s, "}", ")")
	return strings.TrimSpace(s)
}
