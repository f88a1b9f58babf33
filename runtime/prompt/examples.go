package prompt

import (
	"fmt"
	"strings"
)

// exampleAllowedPlatforms is the product allow-list for stylistic examples.
// Examples are included only when every requested platform is on it. This is
// a product policy, not a technical limitation, and is re-checked on every
// assembly call because the platform set varies per call.
var exampleAllowedPlatforms = map[string]struct{}{
	"instagram": {},
	"facebook":  {},
}

// examplesAllowed reports whether the stylistic examples block may be
// included for the given platform set. An empty platform set requests no
// platform-specific output, so no examples are included either.
func examplesAllowed(platforms []string) bool {
	if len(platforms) == 0 {
		return false
	}
	for _, p := range platforms {
		key := strings.ToLower(strings.TrimSpace(p))
		if _, ok := exampleAllowedPlatforms[key]; !ok {
			return false
		}
	}
	return true
}

// formatExamples renders the stylistic examples block.
func formatExamples(examples []Example) string {
	var b strings.Builder
	b.WriteString("STILBEISPIELE (zur Orientierung, nicht kopieren):")
	n := 0
	for _, ex := range examples {
		text := strings.TrimSpace(ex.Content)
		if text == "" {
			continue
		}
		n++
		b.WriteString("\n\n")
		header := fmt.Sprintf("[Beispiel %d", n)
		if ex.Platform != "" {
			header += " | " + ex.Platform
		}
		if ex.Title != "" {
			header += " | " + ex.Title
		}
		header += "]"
		b.WriteString(header)
		b.WriteString("\n")
		b.WriteString(text)
	}
	if n == 0 {
		return ""
	}
	return b.String()
}
