package models

import (
	"strings"
	"time"
	"unicode/utf8"
)

const maxMessageLen = 3800

// MessageSection is one titled block of a notification.
type MessageSection struct {
	Title string
	Lines []string
}

// Message is a channel-neutral notification. Each notifier renders it in its own format.
type Message struct {
	Title     string
	Sections  []MessageSection
	Footer    string
	Timestamp time.Time
}

// RenderText renders the message as plain text for email bodies.
func (m Message) RenderText() string {
	var b strings.Builder
	if title := strings.TrimSpace(m.Title); title != "" {
		b.WriteString(title + "\n\n")
	}
	for _, sec := range m.Sections {
		lines := nonEmpty(sec.Lines)
		if len(lines) == 0 {
			continue
		}
		if t := strings.TrimSpace(sec.Title); t != "" {
			b.WriteString(t + "\n")
		}
		for _, line := range lines {
			b.WriteString("  " + line + "\n")
		}
		b.WriteString("\n")
	}
	if footer := strings.TrimSpace(m.Footer); footer != "" {
		b.WriteString(footer + "\n")
	}
	if !m.Timestamp.IsZero() {
		b.WriteString("Generated " + m.Timestamp.Format("2006-01-02 15:04 MST") + "\n")
	}
	return strings.TrimSpace(b.String())
}

// RenderMarkdown renders the message for chat channels, sections in a code
// block, trimmed to the chat size limit.
func (m Message) RenderMarkdown() string {
	var b strings.Builder
	if title := strings.TrimSpace(m.Title); title != "" {
		b.WriteString("*" + sanitize(title) + "*\n\n")
	}
	if block := renderSections(m.Sections); block != "" {
		b.WriteString(block)
	}
	if footer := strings.TrimSpace(m.Footer); footer != "" {
		b.WriteString(sanitize(footer) + "\n")
	}
	if !m.Timestamp.IsZero() {
		b.WriteString("_" + m.Timestamp.Format("2006-01-02 15:04 MST") + "_")
	}
	body := strings.TrimSpace(b.String())
	return truncate(body, maxMessageLen)
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}

func renderSections(secs []MessageSection) string {
	var b strings.Builder
	for _, sec := range secs {
		lines := nonEmpty(sec.Lines)
		if len(lines) == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		if t := strings.TrimSpace(sec.Title); t != "" {
			b.WriteString(sanitize(t) + "\n")
		}
		for _, line := range lines {
			b.WriteString(sanitize(line) + "\n")
		}
	}
	if b.Len() == 0 {
		return ""
	}
	return "```\n" + b.String() + "```\n\n"
}

func nonEmpty(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if text := strings.TrimSpace(line); text != "" {
			out = append(out, text)
		}
	}
	return out
}

func sanitize(s string) string {
	return strings.ReplaceAll(s, "```", "'''")
}
