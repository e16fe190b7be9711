// Package cleanup normalizes raw model output before structural parsing:
// markdown fence stripping followed by the patch store's find/replace rules.
// The pass is deterministic for a fixed rule list, and rule order is applied
// exactly as stored.
package cleanup

import (
	"errors"
	"regexp"
	"strings"
)

// Sentinel errors for the cleanup stage. Check with errors.Is().
var (
	// ErrEmptyInput indicates the model returned no text at all.
	ErrEmptyInput = errors.New("empty response")

	// ErrEmptyAfterCleanup indicates cleanup reduced the response to nothing.
	ErrEmptyAfterCleanup = errors.New("response empty after cleanup")
)

// Rule is a single find/replace cleanup step. When Regex is set, Pattern is
// compiled as a regular expression; a pattern that fails to compile is
// skipped rather than aborting the whole pass.
type Rule struct {
	Pattern     string `json:"pattern"`
	Replacement string `json:"replacement"`
	Regex       bool   `json:"regex,omitempty"`
}

// Clean strips code fences and applies the cleanup rules in stored order.
// Order matters: later rules see the output of earlier ones.
func Clean(raw string, rules []Rule) (string, error) {
	if raw == "" {
		return "", ErrEmptyInput
	}

	text := StripFences(raw)

	for _, rule := range rules {
		if rule.Pattern == "" {
			// A pattern-less literal rule would insert the replacement
			// between every byte; drop it.
			continue
		}
		if rule.Regex {
			re, err := regexp.Compile(rule.Pattern)
			if err != nil {
				continue
			}
			text = re.ReplaceAllString(text, rule.Replacement)
		} else {
			text = strings.ReplaceAll(text, rule.Pattern, rule.Replacement)
		}
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyAfterCleanup
	}
	return text, nil
}

// StripFences trims the text and removes a leading ``` marker (bare or
// language-tagged, e.g. ```json) and a trailing ``` marker if present.
// The diagnosis path applies this same stripping independently of the
// cleanup rules.
func StripFences(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "```") {
		s = s[3:]
		i := 0
		for i < len(s) && isTagByte(s[i]) {
			i++
		}
		s = s[i:]
	}
	s = strings.TrimSpace(s)

	if strings.HasSuffix(s, "```") {
		s = s[:len(s)-3]
	}
	return strings.TrimSpace(s)
}

func isTagByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}
