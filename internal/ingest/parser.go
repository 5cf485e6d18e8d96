package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// previewSize caps how much section body is carried into an event. The
// encoder stores the preview as a deviation; full text stays in the log
// file.
const previewSize = 300

// maxMentions caps extracted **Name** mentions per section.
const maxMentions = 5

var (
	timeRe    = regexp.MustCompile(`(\d{1,2}:\d{2})\s*(PST|UTC)?`)
	mentionRe = regexp.MustCompile(`\*\*([A-Za-z_0-9]+)\*\*`)
)

// ParseFile reads a markdown daily log and returns one raw event per
// "## " section. The file stem (e.g. "2026-02-04") becomes the event
// date.
func ParseFile(path string) ([]map[string]any, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	date := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return ParseContent(date, string(content)), nil
}

// ParseContent splits log content on "## " section headers and extracts
// one event per section: header, timestamp, content preview, mentions,
// and a keyword topic. Content before the first header is skipped.
func ParseContent(date, content string) []map[string]any {
	sections := strings.Split(content, "\n## ")

	var events []map[string]any
	for _, section := range sections[1:] {
		lines := strings.Split(strings.TrimSpace(section), "\n")
		if len(lines) == 0 || lines[0] == "" {
			continue
		}

		header := strings.TrimSpace(lines[0])
		body := strings.TrimSpace(strings.Join(lines[1:], "\n"))

		event := map[string]any{
			"type":   Classify(header, body),
			"header": truncate(header, 100),
			"date":   date,
		}

		if m := timeRe.FindStringSubmatch(header); m != nil {
			event["timestamp"] = m[1]
		}
		if body != "" {
			event["content_preview"] = truncate(body, previewSize)
		}
		if mentions := extractMentions(body); len(mentions) > 0 {
			event["mentions"] = mentions
		}
		if topic := detectTopic(body); topic != "" {
			event["topic"] = topic
		}

		events = append(events, event)
	}
	return events
}

// Classify tags a section with a memory category from header and body
// keywords. Defaults to insight.
func Classify(header, body string) string {
	h := strings.ToLower(header)
	b := strings.ToLower(body)

	switch {
	case strings.Contains(h, "research") || strings.Contains(b, "papers"):
		return "insight"
	case strings.Contains(h, "built") || strings.Contains(b, "shipped") || strings.Contains(b, "pushed"):
		return "task"
	case strings.Contains(h, "post") || strings.Contains(b, "comment"):
		return "engagement"
	case strings.Contains(h, "human") || strings.Contains(b, "directive"):
		return "conversation"
	case strings.Contains(h, "critique") || strings.Contains(b, "doesn't hold"):
		return "critique"
	default:
		return "insight"
	}
}

// topicKeywords maps body keywords to a topic tag, checked in order.
var topicKeywords = []struct {
	topic string
	words []string
}{
	{"memory", []string{"memory"}},
	{"moltbook", []string{"moltbook"}},
	{"conservation", []string{"conservation", "pycnopodia"}},
	{"security", []string{"security", "credential"}},
}

func detectTopic(body string) string {
	b := strings.ToLower(body)
	for _, tk := range topicKeywords {
		for _, w := range tk.words {
			if strings.Contains(b, w) {
				return tk.topic
			}
		}
	}
	return ""
}

func extractMentions(body string) []string {
	var mentions []string
	for _, m := range mentionRe.FindAllStringSubmatch(body, -1) {
		mentions = append(mentions, m[1])
		if len(mentions) == maxMentions {
			break
		}
	}
	return mentions
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
