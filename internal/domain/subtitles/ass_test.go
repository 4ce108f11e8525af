package subtitles

import (
	"strings"
	"testing"

	"github.com/forPelevin/clipcut/internal/types"
)

func TestRender_KaraokeWithWordTiming(t *testing.T) {
	m := types.Moment{
		Start: 10,
		End:   20,
		Text:  "hello world",
		Words: []types.Word{
			{Text: "hello", Start: 10.5, End: 11.0},
			{Text: "world", Start: 11.2, End: 12.0},
		},
	}
	out := Render(m)
	if !strings.Contains(out, "{\\k") {
		t.Fatalf("expected karaoke timing tags")
	}
	// Word at 10.5s absolute must appear at 0.5s clip-local.
	if !strings.Contains(out, "0:00:00.50") {
		t.Fatalf("expected clip-local event start, got:\n%s", out)
	}
	if !strings.Contains(out, "PlayResX: 1080") || !strings.Contains(out, "PlayResY: 1920") {
		t.Fatalf("expected portrait canvas dimensions")
	}
}

func TestRender_PlainFallbackWithoutWords(t *testing.T) {
	m := types.Moment{Start: 0, End: 8, Text: "no word timing here"}
	out := Render(m)
	if strings.Contains(out, "{\\k") {
		t.Fatalf("did not expect karaoke tags without word timing")
	}
	if !strings.Contains(out, "no word timing here") {
		t.Fatalf("expected full text in plain fallback")
	}
	if !strings.Contains(out, "0:00:08.00") {
		t.Fatalf("expected dialogue spanning clip duration, got:\n%s", out)
	}
}

func TestRender_SanitizesOverrideBlocks(t *testing.T) {
	m := types.Moment{Start: 0, End: 5, Text: "evil {\\b1}bold{\\b0} text"}
	out := Render(m)
	if strings.Contains(out, "{\\b1}") {
		t.Fatalf("override block should have been neutralized")
	}
}

func TestRender_OverlongWordOwnsItsLine(t *testing.T) {
	long := strings.Repeat("verylongtoken.", 4) // 56 runes, past any line budget
	m := types.Moment{
		Start: 0,
		End:   6,
		Text:  long + " short after",
		Words: []types.Word{
			{Text: long, Start: 0, End: 2},
			{Text: "short", Start: 2.5, End: 3},
			{Text: "after", Start: 3.2, End: 4},
		},
	}
	out := Render(m)
	if !strings.Contains(out, long) {
		t.Fatalf("expected the oversized word in the output:\n%s", out)
	}
	if strings.Count(out, "Dialogue:") != 2 {
		t.Fatalf("expected the oversized word on its own line plus one more, got:\n%s", out)
	}
}

func TestRender_FirstWordAtBudgetBoundary(t *testing.T) {
	// Exactly at the character budget the word must still start a line
	// rather than force an empty flush.
	word := strings.Repeat("x", 38)
	m := types.Moment{
		Start: 0,
		End:   3,
		Text:  word,
		Words: []types.Word{{Text: word, Start: 0, End: 1}},
	}
	out := Render(m)
	if strings.Count(out, "Dialogue:") != 1 {
		t.Fatalf("expected a single dialogue line:\n%s", out)
	}
}

func TestRender_ClampsWordsToClipBounds(t *testing.T) {
	m := types.Moment{
		Start: 10,
		End:   12,
		Text:  "a b c",
		Words: []types.Word{
			{Text: "a", Start: 8, End: 9},      // entirely before the clip
			{Text: "b", Start: 9.5, End: 10.5}, // straddles the cut
			{Text: "c", Start: 11, End: 13},    // runs past the end
		},
	}
	out := Render(m)
	if strings.Contains(out, "-") {
		t.Fatalf("expected no negative timestamps, got:\n%s", out)
	}
	if strings.Count(out, "{\\k") != 2 {
		t.Fatalf("expected 2 karaoke words inside the clip, got:\n%s", out)
	}
}
