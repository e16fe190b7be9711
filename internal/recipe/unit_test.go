package recipe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeUnit_ExactMatch(t *testing.T) {
	mapping := BaseUnitMapping()

	tests := []struct {
		in   string
		want string
	}{
		{"г", "г"},
		{"грамм", "г"},
		{"ГРАММ", "г"},
		{"  мл  ", "мл"},
		{"штук", "шт"},
		{"столовая ложка", "ст.л"},
		{"стакан", "чашка"},
		{"кг", "кг"},
	}
	for _, tt := range tests {
		got := NormalizeUnit(tt.in, mapping)
		assert.True(t, got.Known, "NormalizeUnit(%q) should be known", tt.in)
		assert.Equal(t, tt.want, got.Token, "NormalizeUnit(%q)", tt.in)
	}
}

func TestNormalizeUnit_Containment(t *testing.T) {
	mapping := BaseUnitMapping()

	// "ст. ложки разогретого масла" contains the key "ст. ложки".
	got := NormalizeUnit("ст. ложки разогретого масла", mapping)
	require.True(t, got.Known)
	assert.Equal(t, "ст.л", got.Token)

	// Two-rune keys never containment-match: "г" inside an unrelated word
	// must not turn it into grams.
	got = NormalizeUnit("пучок", mapping)
	assert.False(t, got.Known)
	assert.Equal(t, "пучок", got.Token)
}

func TestNormalizeUnit_Unrecognized(t *testing.T) {
	mapping := BaseUnitMapping()

	got := NormalizeUnit("  щепотка  ", mapping)
	assert.False(t, got.Known)
	assert.Equal(t, "щепотка", got.Token)
}

func TestNormalizeUnit_Idempotent(t *testing.T) {
	mapping := BaseUnitMapping()

	for _, in := range []string{"грамм", "ст. ложки", "щепотка", "стаканов"} {
		first := NormalizeUnit(in, mapping)
		second := NormalizeUnit(first.Token, mapping)
		assert.Equal(t, first.Token, second.Token, "normalizing %q twice", in)
	}
}

func TestUnitMapping_MergeOverride(t *testing.T) {
	mapping := BaseUnitMapping()
	before := mapping.Len()

	mapping.Merge(map[string]string{
		"пуч":   "шт", // new alias
		"грамм": "кг", // override of a base key
	})

	got, ok := mapping.Get("пуч")
	require.True(t, ok)
	assert.Equal(t, "шт", got)

	got, ok = mapping.Get("грамм")
	require.True(t, ok)
	assert.Equal(t, "кг", got, "overlay must override the base entry")

	// Overriding an existing key keeps its position, only new keys append.
	assert.Equal(t, before+1, mapping.Len())
}

func TestUnitMapping_LearnedAliasResolves(t *testing.T) {
	mapping := BaseUnitMapping()
	mapping.Merge(map[string]string{"пуч": "шт"})

	// Exact match on the learned alias.
	got := NormalizeUnit("пуч", mapping)
	require.True(t, got.Known)
	assert.Equal(t, "шт", got.Token)

	// Three-rune learned keys also containment-match.
	got = NormalizeUnit("пучок зелени", mapping)
	require.True(t, got.Known)
	assert.Equal(t, "шт", got.Token)
}
