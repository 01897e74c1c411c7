package connectors

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/go-viper/mapstructure/v2"

	"github.com/bidpanel/bidpanel/internal/models"
)

const (
	genericMaxEntries  = 10
	genericValueLength = 120
)

// shapeMatcher recognizes one known connector response shape and formats it
// into role-scoped text. Matchers are tried in priority order; the generic
// key/value matcher always matches and terminates the cascade.
type shapeMatcher struct {
	name    string
	matches func(payload map[string]any) bool
	format  func(payload map[string]any, role models.Role) string
}

var shapeMatchers = []shapeMatcher{
	{name: "pages", matches: matchesPages, format: formatPages},
	{name: "insights", matches: matchesInsights, format: formatInsights},
	{name: "freetext", matches: matchesFreeText, format: formatFreeText},
	{name: "performance", matches: matchesPerformance, format: formatPerformance},
	{name: "generic", matches: func(map[string]any) bool { return true }, format: formatGeneric},
}

// normalize converts a raw connector response body into role-appropriate
// text. Accepts arbitrary nested JSON, SSE-framed JSON, or plain text.
func normalize(raw []byte, role models.Role) (string, error) {
	body := strings.TrimSpace(string(raw))
	if body == "" {
		return "", nil
	}

	if looksLikeSSE(body) {
		body = strings.TrimSpace(joinSSEData(body))
		if body == "" {
			return "", nil
		}
	}

	var decoded any
	if err := json.Unmarshal([]byte(body), &decoded); err != nil {
		// Plain text responses pass through as-is.
		return body, nil
	}

	switch v := decoded.(type) {
	case map[string]any:
		return applyMatchers(v, role), nil
	case []any:
		// A bare array is treated as a results list.
		return applyMatchers(map[string]any{"results": v}, role), nil
	case string:
		return v, nil
	default:
		return body, nil
	}
}

func applyMatchers(payload map[string]any, role models.Role) string {
	for _, m := range shapeMatchers {
		if m.matches(payload) {
			return strings.TrimSpace(m.format(payload, role))
		}
	}
	return "" // unreachable: the generic matcher always matches
}

// looksLikeSSE reports whether the body is server-sent-event framed.
func looksLikeSSE(body string) bool {
	return strings.HasPrefix(body, "data:") || strings.Contains(body, "\ndata:")
}

// joinSSEData concatenates the data payloads of an SSE stream. JSON frames
// carrying a "content" or "text" field contribute that field; other frames
// contribute their raw data.
func joinSSEData(body string) string {
	var parts []string
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" || data == "[DONE]" {
			continue
		}

		var frame map[string]any
		if err := json.Unmarshal([]byte(data), &frame); err == nil {
			if s, ok := frame["content"].(string); ok {
				parts = append(parts, s)
				continue
			}
			if s, ok := frame["text"].(string); ok {
				parts = append(parts, s)
				continue
			}
		}
		parts = append(parts, data)
	}
	return strings.Join(parts, "")
}

// pagesShape covers document-search style responses: an array of pages or
// results, each with a title and content.
type pagesShape struct {
	Pages   []pageEntry `mapstructure:"pages"`
	Results []pageEntry `mapstructure:"results"`
}

type pageEntry struct {
	Title   string `mapstructure:"title"`
	Name    string `mapstructure:"name"`
	Content string `mapstructure:"content"`
	Text    string `mapstructure:"text"`
	Snippet string `mapstructure:"snippet"`
}

func (p pageEntry) body() string {
	for _, s := range []string{p.Content, p.Text, p.Snippet} {
		if s != "" {
			return s
		}
	}
	return ""
}

func (p pageEntry) label() string {
	if p.Title != "" {
		return p.Title
	}
	return p.Name
}

func matchesPages(payload map[string]any) bool {
	var shape pagesShape
	if err := mapstructure.Decode(payload, &shape); err != nil {
		return false
	}
	for _, e := range append(shape.Pages, shape.Results...) {
		if e.body() != "" {
			return true
		}
	}
	return false
}

func formatPages(payload map[string]any, role models.Role) string {
	var shape pagesShape
	if err := mapstructure.Decode(payload, &shape); err != nil {
		return ""
	}

	entries := append(shape.Pages, shape.Results...)
	var sb strings.Builder
	for _, e := range entries {
		body := e.body()
		if body == "" {
			continue
		}
		if label := e.label(); label != "" {
			sb.WriteString(label)
			sb.WriteString(": ")
		}
		sb.WriteString(truncate(body, genericValueLength*4))
		sb.WriteString("\n")
	}
	return sb.String()
}

// insightsShape covers responses that already carry a list of insight
// strings.
type insightsShape struct {
	Insights []string `mapstructure:"insights"`
}

func matchesInsights(payload map[string]any) bool {
	var shape insightsShape
	return mapstructure.Decode(payload, &shape) == nil && len(shape.Insights) > 0
}

func formatInsights(payload map[string]any, _ models.Role) string {
	var shape insightsShape
	if err := mapstructure.Decode(payload, &shape); err != nil {
		return ""
	}
	var sb strings.Builder
	for _, insight := range shape.Insights {
		sb.WriteString("- ")
		sb.WriteString(insight)
		sb.WriteString("\n")
	}
	return sb.String()
}

// freeTextShape covers responses with a single free-text field.
type freeTextShape struct {
	Text    string `mapstructure:"text"`
	Content string `mapstructure:"content"`
	Summary string `mapstructure:"summary"`
	Answer  string `mapstructure:"answer"`
}

func (f freeTextShape) body() string {
	for _, s := range []string{f.Text, f.Content, f.Summary, f.Answer} {
		if s != "" {
			return s
		}
	}
	return ""
}

func matchesFreeText(payload map[string]any) bool {
	var shape freeTextShape
	return mapstructure.Decode(payload, &shape) == nil && shape.body() != ""
}

func formatFreeText(payload map[string]any, _ models.Role) string {
	var shape freeTextShape
	if err := mapstructure.Decode(payload, &shape); err != nil {
		return ""
	}
	return shape.body()
}

// performanceShape covers vendor performance-record responses.
type performanceShape struct {
	Vendor  string             `mapstructure:"vendor"`
	Metrics map[string]float64 `mapstructure:"metrics"`
}

func matchesPerformance(payload map[string]any) bool {
	var shape performanceShape
	return mapstructure.Decode(payload, &shape) == nil && len(shape.Metrics) > 0
}

func formatPerformance(payload map[string]any, _ models.Role) string {
	var shape performanceShape
	if err := mapstructure.Decode(payload, &shape); err != nil {
		return ""
	}

	keys := make([]string, 0, len(shape.Metrics))
	for k := range shape.Metrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	if shape.Vendor != "" {
		fmt.Fprintf(&sb, "Performance record for %s:\n", shape.Vendor)
	}
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s: %g\n", k, shape.Metrics[k])
	}
	return sb.String()
}

// formatGeneric is the fallback: a key/value listing of the first 10 entries
// in key order, each value truncated.
func formatGeneric(payload map[string]any, _ models.Role) string {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > genericMaxEntries {
		keys = keys[:genericMaxEntries]
	}

	var sb strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s: %s\n", k, truncate(stringify(payload[k]), genericValueLength))
	}
	return sb.String()
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return "null"
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
