// Package patches implements the durable patch overlay written by the repair
// loop and read by every extraction: a unit-alias mapping, an ordered list of
// cleanup rules, and a prompt addendum. Each part is independently optional
// and independently persisted; a missing part reads as its identity value.
package patches

import (
	"strings"

	"github.com/akoval/recipeflow/internal/cleanup"
)

// Snapshot is an immutable view of the three patch artifacts taken at the
// start of an extraction. Missing artifacts read as empty values.
type Snapshot struct {
	UnitMapping    map[string]string
	CleanupRules   []cleanup.Rule
	PromptAddendum string
}

// Set is a patch to merge into the store. All parts are optional.
type Set struct {
	UnitMapping  map[string]string `json:"unit_mapping,omitempty"`
	CleanupRules []cleanup.Rule    `json:"cleanup_rules,omitempty"`
	PromptAppend string            `json:"system_prompt_append,omitempty"`
}

// Empty reports whether the set carries nothing to merge.
func (s Set) Empty() bool {
	return len(s.UnitMapping) == 0 && len(s.CleanupRules) == 0 && strings.TrimSpace(s.PromptAppend) == ""
}

// Store is the patch persistence contract. Merge rules: unit mapping entries
// override by key, cleanup rules append in order, prompt addenda concatenate
// with a visible separator. Reads must stay cheap, since extractions snapshot
// on every call, and writes must be atomic per artifact.
type Store interface {
	Snapshot() (Snapshot, error)
	Apply(Set) error
}

// ParseSet extracts the advisory "patches" substructure from a diagnosis
// report. A missing or malformed substructure yields nil; malformed
// individual entries are dropped, never fatal.
func ParseSet(report map[string]any) *Set {
	raw, ok := report["patches"].(map[string]any)
	if !ok {
		return nil
	}

	set := &Set{}

	if mapping, ok := raw["unit_mapping"].(map[string]any); ok {
		for k, v := range mapping {
			if s, ok := v.(string); ok && k != "" {
				if set.UnitMapping == nil {
					set.UnitMapping = make(map[string]string)
				}
				set.UnitMapping[k] = s
			}
		}
	}

	if rules, ok := raw["cleanup_rules"].([]any); ok {
		for _, item := range rules {
			entry, ok := item.(map[string]any)
			if !ok {
				continue
			}
			pattern, ok := entry["pattern"].(string)
			if !ok || pattern == "" {
				continue
			}
			replacement, ok := entry["replacement"].(string)
			if !ok {
				continue
			}
			regex, _ := entry["regex"].(bool)
			set.CleanupRules = append(set.CleanupRules, cleanup.Rule{
				Pattern:     pattern,
				Replacement: replacement,
				Regex:       regex,
			})
		}
	}

	if text, ok := raw["system_prompt_append"].(string); ok {
		set.PromptAppend = strings.TrimSpace(text)
	}

	if set.Empty() {
		return nil
	}
	return set
}
