package prompt

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// formatRequest renders the request section. Plain strings only receive
// locale substitution. Structured requests are rendered with a fixed field
// ordering (topic, details, platforms, then remaining fields sorted by key)
// so downstream caching or diffing of assembled prompts stays meaningful.
func formatRequest(req any, locale string, now time.Time) (string, error) {
	switch r := req.(type) {
	case nil:
		return "", nil
	case string:
		return localize(r, locale, now), nil
	case *StructuredRequest:
		if r == nil {
			return "", nil
		}
		return formatStructuredRequest(r, locale, now), nil
	case StructuredRequest:
		return formatStructuredRequest(&r, locale, now), nil
	default:
		return "", fmt.Errorf("prompt: unsupported request type %T", req)
	}
}

func formatStructuredRequest(r *StructuredRequest, locale string, now time.Time) string {
	var lines []string
	if r.Topic != "" {
		lines = append(lines, "Thema: "+localize(r.Topic, locale, now))
	}
	if r.Details != "" {
		lines = append(lines, "Details: "+localize(r.Details, locale, now))
	}
	if len(r.Platforms) > 0 {
		lines = append(lines, "Plattformen: "+strings.Join(r.Platforms, ", "))
	}
	keys := make([]string, 0, len(r.Fields))
	for k := range r.Fields {
		if strings.TrimSpace(r.Fields[k]) == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("%s: %s", k, localize(r.Fields[k], locale, now)))
	}
	return strings.Join(lines, "\n")
}
