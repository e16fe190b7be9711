package patches

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"

	"github.com/akoval/recipeflow/internal/cleanup"
)

const (
	unitMappingFile  = "unit_mapping.json"
	cleanupRulesFile = "cleanup_rules.json"
	promptAppendFile = "system_prompt_append.txt"

	// Separator joins successive prompt addenda so the full history stays
	// visible in the assembled prompt.
	Separator = "\n\n---\n\n"
)

// DirStore persists the three patch artifacts as files in a directory.
// Reads tolerate missing or malformed artifacts (identity values). Writes
// take a file lock per artifact and replace the file atomically via rename,
// so concurrent repairers on the same directory cannot interleave partial
// writes. Cross-process races still resolve last-writer-wins per artifact;
// patches are advisory and idempotent to reapply, so that is accepted.
type DirStore struct {
	dir string
	mu  sync.Mutex
}

// NewDirStore returns a store rooted at dir. The directory is created on
// first write.
func NewDirStore(dir string) *DirStore {
	return &DirStore{dir: dir}
}

// Snapshot reads all three artifacts. Missing files read as empty values and
// never fail the caller.
func (s *DirStore) Snapshot() (Snapshot, error) {
	return Snapshot{
		UnitMapping:    s.readUnitMapping(),
		CleanupRules:   s.readCleanupRules(),
		PromptAddendum: s.readPromptAppend(),
	}, nil
}

// Apply merges the set into the stored artifacts, one artifact at a time.
func (s *DirStore) Apply(set Set) error {
	if set.Empty() {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create patches dir: %w", err)
	}

	if len(set.UnitMapping) > 0 {
		if err := s.mergeUnitMapping(set.UnitMapping); err != nil {
			return err
		}
	}
	if len(set.CleanupRules) > 0 {
		if err := s.appendCleanupRules(set.CleanupRules); err != nil {
			return err
		}
	}
	if text := strings.TrimSpace(set.PromptAppend); text != "" {
		if err := s.appendPrompt(text); err != nil {
			return err
		}
	}
	return nil
}

func (s *DirStore) readUnitMapping() map[string]string {
	data, err := os.ReadFile(filepath.Join(s.dir, unitMappingFile))
	if err != nil {
		return nil
	}
	var mapping map[string]string
	if err := json.Unmarshal(data, &mapping); err != nil {
		return nil
	}
	return mapping
}

func (s *DirStore) readCleanupRules() []cleanup.Rule {
	data, err := os.ReadFile(filepath.Join(s.dir, cleanupRulesFile))
	if err != nil {
		return nil
	}
	var raw []cleanup.Rule
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	rules := raw[:0]
	for _, r := range raw {
		if r.Pattern != "" {
			rules = append(rules, r)
		}
	}
	return rules
}

func (s *DirStore) readPromptAppend() string {
	data, err := os.ReadFile(filepath.Join(s.dir, promptAppendFile))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func (s *DirStore) mergeUnitMapping(overlay map[string]string) error {
	return s.withArtifactLock(unitMappingFile, func(path string) error {
		merged := s.readUnitMapping()
		if merged == nil {
			merged = make(map[string]string, len(overlay))
		}
		for k, v := range overlay {
			merged[k] = v
		}
		return writeJSONArtifact(path, merged)
	})
}

func (s *DirStore) appendCleanupRules(rules []cleanup.Rule) error {
	return s.withArtifactLock(cleanupRulesFile, func(path string) error {
		existing := s.readCleanupRules()
		extended := make([]cleanup.Rule, 0, len(existing)+len(rules))
		extended = append(extended, existing...)
		for _, r := range rules {
			if r.Pattern != "" {
				extended = append(extended, r)
			}
		}
		return writeJSONArtifact(path, extended)
	})
}

func (s *DirStore) appendPrompt(text string) error {
	return s.withArtifactLock(promptAppendFile, func(path string) error {
		existing := s.readPromptAppend()
		content := text
		if existing != "" {
			content = existing + Separator + text
		}
		return writeArtifact(path, []byte(content))
	})
}

// withArtifactLock serializes writers on one artifact across processes.
func (s *DirStore) withArtifactLock(name string, fn func(path string) error) error {
	path := filepath.Join(s.dir, name)
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock %s: %w", name, err)
	}
	defer func() { _ = lock.Unlock() }()
	return fn(path)
}

func writeJSONArtifact(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	return writeArtifact(path, data)
}

// writeArtifact replaces the artifact atomically: write a temp file in the
// same directory, then rename over the target.
func writeArtifact(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close artifact: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace artifact: %w", err)
	}
	return nil
}
