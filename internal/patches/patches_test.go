package patches

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akoval/recipeflow/internal/cleanup"
)

func TestParseSet(t *testing.T) {
	report := map[string]any{
		"summary": "unit alias missing",
		"patches": map[string]any{
			"unit_mapping": map[string]any{
				"пуч": "шт",
				"":    "dropped", // empty key is dropped
				"bad": 42.0,      // non-string value is dropped
			},
			"cleanup_rules": []any{
				map[string]any{"pattern": "```json", "replacement": ""},
				map[string]any{"pattern": "", "replacement": "x"},  // empty pattern dropped
				map[string]any{"replacement": "no pattern at all"}, // missing pattern dropped
				"not an object",
				map[string]any{"pattern": `\s+`, "replacement": " ", "regex": true},
			},
			"system_prompt_append": "  Always answer with bare JSON.  ",
		},
	}

	set := ParseSet(report)
	require.NotNil(t, set)

	assert.Equal(t, map[string]string{"пуч": "шт"}, set.UnitMapping)
	require.Len(t, set.CleanupRules, 2)
	assert.Equal(t, cleanup.Rule{Pattern: "```json", Replacement: ""}, set.CleanupRules[0])
	assert.True(t, set.CleanupRules[1].Regex)
	assert.Equal(t, "Always answer with bare JSON.", set.PromptAppend)
}

func TestParseSet_AbsentOrEmpty(t *testing.T) {
	assert.Nil(t, ParseSet(map[string]any{"summary": "nothing to do"}))
	assert.Nil(t, ParseSet(map[string]any{"patches": "not an object"}))
	assert.Nil(t, ParseSet(map[string]any{"patches": map[string]any{}}))
	assert.Nil(t, ParseSet(map[string]any{"patches": map[string]any{
		"system_prompt_append": "   ",
	}}))
}

func TestDirStore_MissingArtifactsReadAsIdentity(t *testing.T) {
	store := NewDirStore(filepath.Join(t.TempDir(), "does-not-exist"))

	snap, err := store.Snapshot()
	require.NoError(t, err)
	assert.Empty(t, snap.UnitMapping)
	assert.Empty(t, snap.CleanupRules)
	assert.Empty(t, snap.PromptAddendum)
}

func TestDirStore_MalformedArtifactsReadAsIdentity(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "unit_mapping.json"), []byte("{broken"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cleanup_rules.json"), []byte("not json"), 0o644))

	snap, err := NewDirStore(dir).Snapshot()
	require.NoError(t, err)
	assert.Empty(t, snap.UnitMapping)
	assert.Empty(t, snap.CleanupRules)
}

func TestDirStore_MergeSemantics(t *testing.T) {
	dir := t.TempDir()
	store := NewDirStore(dir)

	require.NoError(t, store.Apply(Set{
		UnitMapping:  map[string]string{"пуч": "шт"},
		CleanupRules: []cleanup.Rule{{Pattern: "a", Replacement: "b"}},
		PromptAppend: "first addendum",
	}))
	require.NoError(t, store.Apply(Set{
		UnitMapping:  map[string]string{"пуч": "кг", "зубчик": "шт"},
		CleanupRules: []cleanup.Rule{{Pattern: "c", Replacement: "d"}},
		PromptAppend: "second addendum",
	}))

	snap, err := store.Snapshot()
	require.NoError(t, err)

	// Later unit mappings override by key; untouched keys survive.
	assert.Equal(t, map[string]string{"пуч": "кг", "зубчик": "шт"}, snap.UnitMapping)

	// Cleanup rules append in order.
	require.Len(t, snap.CleanupRules, 2)
	assert.Equal(t, "a", snap.CleanupRules[0].Pattern)
	assert.Equal(t, "c", snap.CleanupRules[1].Pattern)

	// Prompt addenda concatenate with the separator.
	assert.Equal(t, "first addendum"+Separator+"second addendum", snap.PromptAddendum)
}

func TestDirStore_EmptySetIsNoOp(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "patches")
	store := NewDirStore(dir)

	require.NoError(t, store.Apply(Set{}))

	// An empty apply must not even create the directory.
	_, err := os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestDirStore_ArtifactsAreValidJSON(t *testing.T) {
	dir := t.TempDir()
	store := NewDirStore(dir)
	require.NoError(t, store.Apply(Set{
		UnitMapping:  map[string]string{"пуч": "шт"},
		CleanupRules: []cleanup.Rule{{Pattern: "x", Replacement: ""}},
	}))

	data, err := os.ReadFile(filepath.Join(dir, "unit_mapping.json"))
	require.NoError(t, err)
	var mapping map[string]string
	require.NoError(t, json.Unmarshal(data, &mapping))

	data, err = os.ReadFile(filepath.Join(dir, "cleanup_rules.json"))
	require.NoError(t, err)
	var rules []cleanup.Rule
	require.NoError(t, json.Unmarshal(data, &rules))
}

func TestMemStore_MatchesDirStoreSemantics(t *testing.T) {
	mem := NewMemStore()
	disk := NewDirStore(t.TempDir())

	sets := []Set{
		{UnitMapping: map[string]string{"пуч": "шт"}, PromptAppend: "one"},
		{UnitMapping: map[string]string{"пуч": "кг"},
			CleanupRules: []cleanup.Rule{{Pattern: "p", Replacement: "q"}},
			PromptAppend: "two"},
	}
	for _, set := range sets {
		require.NoError(t, mem.Apply(set))
		require.NoError(t, disk.Apply(set))
	}

	memSnap, err := mem.Snapshot()
	require.NoError(t, err)
	diskSnap, err := disk.Snapshot()
	require.NoError(t, err)

	assert.Equal(t, diskSnap.UnitMapping, memSnap.UnitMapping)
	assert.Equal(t, diskSnap.CleanupRules, memSnap.CleanupRules)
	assert.Equal(t, diskSnap.PromptAddendum, memSnap.PromptAddendum)
}
