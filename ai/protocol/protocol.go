// Package protocol knows the response grammar the LLM is instructed to emit.
package protocol

import (
	"regexp"
	"strings"
)

// RecommendationMarker is the first-line prefix of the recommendation grammar.
const RecommendationMarker = "Recommendation:"

var titlePattern = regexp.MustCompile(`(?im)^Recommendation:\s*(.+)$`)

// ExtractTitle returns the recommended title from a final response, or
// ("", false) when the text carries no recommendation line. It does not
// re-validate the rest of the grammar; the model's adherence is trusted.
func ExtractTitle(text string) (string, bool) {
	m := titlePattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	title := strings.TrimSpace(m[1])
	if title == "" {
		return "", false
	}
	return title, true
}

// IsRecommendation reports whether the final text opens with the
// recommendation marker. Used to gate speech synthesis.
func IsRecommendation(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), RecommendationMarker)
}
