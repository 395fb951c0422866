// Package safety screens user input against abusive-language patterns
// before it reaches retrieval or the LLM.
package safety

import (
	"encoding/json"
	"log/slog"
	"os"
	"regexp"
)

// Built-in patterns, applied case-insensitively and in order.
var defaultPatterns = []string{
	`\b(?:fuck|f\*?uck|f0ck)\b`,
	`\b(?:shit|s\*?hit)\b`,
	`\b(?:bitch|b1tch|bi?tc?h)\b`,
	`\b(?:asshole|a\*?shole)\b`,
	`\b(?:cunt)\b`,
	`\b(?:retard(?:ed)?)\b`,
	`\b(?:nigg(?:er|a))\b`,
}

// Screener matches user input against an ordered pattern list.
type Screener struct {
	patterns []*regexp.Regexp
	enabled  bool
}

// Config configures the screener.
type Config struct {
	// Enabled toggles screening entirely. When false, Screen never matches.
	Enabled bool

	// WordlistPath optionally names a JSON file {"patterns": ["..."]} with
	// extra patterns appended after the built-in list. A missing, unreadable
	// or malformed file is ignored: a broken extra wordlist must not take
	// the service down.
	WordlistPath string
}

type wordlist struct {
	Patterns []string `json:"patterns"`
}

// NewScreener compiles the built-in patterns plus any configured extras.
// Pattern loading happens once, at startup.
func NewScreener(cfg Config) *Screener {
	s := &Screener{enabled: cfg.Enabled}
	for _, p := range defaultPatterns {
		s.patterns = append(s.patterns, regexp.MustCompile(`(?i)`+p))
	}
	if cfg.WordlistPath != "" {
		s.loadWordlist(cfg.WordlistPath)
	}
	return s
}

func (s *Screener) loadWordlist(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("safety: extra wordlist unreadable, ignoring", "path", path, "error", err)
		return
	}
	var wl wordlist
	if err := json.Unmarshal(data, &wl); err != nil {
		slog.Warn("safety: extra wordlist malformed, ignoring", "path", path, "error", err)
		return
	}
	for _, p := range wl.Patterns {
		re, err := regexp.Compile(`(?i)` + p)
		if err != nil {
			slog.Warn("safety: skipping invalid extra pattern", "pattern", p, "error", err)
			continue
		}
		s.patterns = append(s.patterns, re)
	}
}

// Screen returns the first matching pattern and true when the text is
// inappropriate. Blank input never matches. No side effects on miss.
func (s *Screener) Screen(text string) (string, bool) {
	if !s.enabled {
		return "", false
	}
	if len(text) == 0 {
		return "", false
	}
	for _, re := range s.patterns {
		if re.MatchString(text) {
			return re.String(), true
		}
	}
	return "", false
}
