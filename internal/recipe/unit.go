package recipe

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// UnitMapping maps unit spellings to canonical tokens. Iteration order is
// insertion order and must stay stable: the containment fallback in
// NormalizeUnit takes the first matching key, so reordering entries silently
// changes results. Plain Go maps cannot guarantee that.
type UnitMapping struct {
	keys   []string
	values map[string]string
}

// NewUnitMapping returns an empty mapping.
func NewUnitMapping() *UnitMapping {
	return &UnitMapping{values: make(map[string]string)}
}

// Set adds or overrides a mapping entry. New keys append to the iteration
// order; existing keys keep their position.
func (m *UnitMapping) Set(key, value string) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Get looks up the canonical token for an exact spelling.
func (m *UnitMapping) Get(key string) (string, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Keys returns the spellings in stable iteration order.
func (m *UnitMapping) Keys() []string { return m.keys }

// Len reports the number of entries.
func (m *UnitMapping) Len() int { return len(m.keys) }

// Merge overlays entries onto the mapping: matching keys are overridden in
// place, new keys are appended in sorted order so merges stay deterministic
// regardless of Go map iteration.
func (m *UnitMapping) Merge(overlay map[string]string) {
	keys := make([]string, 0, len(overlay))
	for k := range overlay {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		m.Set(k, overlay[k])
	}
}

// Flat returns the mapping as a plain map, for serialization into the
// diagnostic context.
func (m *UnitMapping) Flat() map[string]string {
	out := make(map[string]string, len(m.keys))
	for k, v := range m.values {
		out[k] = v
	}
	return out
}

// BaseUnitMapping returns the built-in unit vocabulary. Every canonical token
// maps to itself, which is what makes NormalizeUnit idempotent.
func BaseUnitMapping() *UnitMapping {
	m := NewUnitMapping()
	for _, e := range baseUnits {
		m.Set(e[0], e[1])
	}
	return m
}

var baseUnits = [][2]string{
	// grams
	{"г", "г"}, {"грамм", "г"}, {"грамма", "г"}, {"граммов", "г"}, {"гр", "г"},
	// milliliters
	{"мл", "мл"}, {"миллилитр", "мл"}, {"миллилитра", "мл"}, {"миллилитров", "мл"},
	// pieces
	{"шт", "шт"}, {"штук", "шт"}, {"штука", "шт"}, {"штуки", "шт"},
	// tablespoons
	{"ст.л", "ст.л"}, {"ст. ложка", "ст.л"}, {"ст. ложки", "ст.л"},
	{"ст ложка", "ст.л"}, {"ст ложки", "ст.л"}, {"столовых ложек", "ст.л"},
	{"столовые ложки", "ст.л"}, {"столовая ложка", "ст.л"}, {"ст. ложек", "ст.л"},
	{"ст. лож.", "ст.л"}, {"ст лож.", "ст.л"},
	// teaspoons
	{"ч.л", "ч.л"}, {"ч. ложка", "ч.л"}, {"ч. ложки", "ч.л"},
	{"ч ложка", "ч.л"}, {"ч ложки", "ч.л"}, {"чайных ложек", "ч.л"},
	{"чайные ложки", "ч.л"}, {"чайная ложка", "ч.л"}, {"ч. ложек", "ч.л"},
	{"ч. лож.", "ч.л"}, {"ч лож.", "ч.л"},
	// cups
	{"чашка", "чашка"}, {"чашки", "чашка"}, {"чашек", "чашка"},
	{"стакан", "чашка"}, {"стакана", "чашка"}, {"стаканов", "чашка"}, {"ст", "чашка"},
	// liters
	{"л", "л"}, {"литр", "л"}, {"литра", "л"}, {"литров", "л"},
	// kilograms
	{"кг", "кг"}, {"килограмм", "кг"}, {"килограмма", "кг"}, {"килограммов", "кг"},
}

// NormalizeUnit resolves a unit spelling against the mapping: case-folded
// exact match first, then substring containment against keys longer than two
// runes (first match in mapping order wins). Unmapped spellings pass through
// trimmed but otherwise unchanged. The function is idempotent: normalizing
// its own output is a no-op.
func NormalizeUnit(raw string, mapping *UnitMapping) Unit {
	trimmed := strings.TrimSpace(raw)
	lower := strings.ToLower(trimmed)

	if std, ok := mapping.Get(lower); ok {
		return KnownUnit(std)
	}

	for _, key := range mapping.Keys() {
		if utf8.RuneCountInString(key) > 2 && strings.Contains(lower, key) {
			std, _ := mapping.Get(key)
			return KnownUnit(std)
		}
	}

	return UnrecognizedUnit(trimmed)
}
