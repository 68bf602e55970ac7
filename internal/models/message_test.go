package models

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

func TestMessage_RenderMarkdown(t *testing.T) {
	m := Message{
		Title: "Final sales 2024-01-02",
		Sections: []MessageSection{
			{Title: "Ranking", Lines: []string{"1. b $100.00", "2. a $50.00", " "}},
			{Title: "Empty", Lines: []string{""}},
		},
		Footer: "Total $150.00",
	}

	out := m.RenderMarkdown()
	if !strings.HasPrefix(out, "*Final sales 2024-01-02*") {
		t.Errorf("expected bold title, got %q", out)
	}
	if !strings.Contains(out, "```\nRanking\n1. b $100.00\n2. a $50.00\n```") {
		t.Errorf("expected ranking block, got %q", out)
	}
	if strings.Contains(out, "Empty") {
		t.Error("empty section should be omitted")
	}
	if !strings.Contains(out, "Total $150.00") {
		t.Error("missing footer")
	}
}

func TestMessage_RenderMarkdownTruncates(t *testing.T) {
	m := Message{Sections: []MessageSection{{Lines: []string{strings.Repeat("x", maxMessageLen+100)}}}}
	out := m.RenderMarkdown()
	if len(out) != maxMessageLen+3 {
		t.Errorf("expected truncated length %d, got %d", maxMessageLen+3, len(out))
	}
}

func TestMessage_RenderMarkdownTruncatesOnRuneBoundary(t *testing.T) {
	// The code fence plus "a" puts each two-byte "é" on an odd offset, so the
	// limit falls mid-rune.
	line := "a" + strings.Repeat("é", maxMessageLen)
	m := Message{Sections: []MessageSection{{Lines: []string{line}}}}
	out := m.RenderMarkdown()
	if !utf8.ValidString(out) {
		t.Fatalf("truncated message is not valid UTF-8")
	}
	if !strings.HasSuffix(out, "é...") {
		t.Errorf("expected whole rune before ellipsis, got suffix %q", out[len(out)-8:])
	}
	if len(out) > maxMessageLen+3 {
		t.Errorf("truncated length %d exceeds %d", len(out), maxMessageLen+3)
	}
}

func TestMessage_RenderText(t *testing.T) {
	m := Message{
		Title:     "Midday sales",
		Sections:  []MessageSection{{Title: "Failed", Lines: []string{"airport: login failed"}}},
		Timestamp: time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC),
	}

	out := m.RenderText()
	for _, want := range []string{"Midday sales", "Failed", "  airport: login failed", "Generated 2024-01-02 12:00 UTC"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in %q", want, out)
		}
	}
}
