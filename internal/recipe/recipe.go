// Package recipe defines the structured recipe model and the deterministic
// field coercion applied to parsed model output: amount parsing and unit
// normalization against the merged unit vocabulary.
package recipe

// Recipe is the canonical extracted payload.
type Recipe struct {
	Title        string       `json:"title"`
	Ingredients  []Ingredient `json:"ingredients"`
	Instructions []string     `json:"instructions"`
	CookingTime  *int         `json:"cooking_time,omitempty"`
	Servings     *int         `json:"servings,omitempty"`
	SourceURL    string       `json:"source_url"`
}

// Ingredient is a single recipe ingredient with a normalized amount and unit.
// OriginalText keeps the source spelling for auditing against normalization.
type Ingredient struct {
	Name         string  `json:"name"`
	Amount       float64 `json:"amount"`
	Unit         Unit    `json:"unit"`
	OriginalText string  `json:"original_text,omitempty"`
}

// Unit is a measurement token. Known reports whether the token was resolved
// through the unit vocabulary; unrecognized units pass through unchanged so a
// vocabulary gap never blocks an extraction, and downstream consumers can
// still tell confidently-normalized data from pass-through data.
type Unit struct {
	Token string `json:"token"`
	Known bool   `json:"known"`
}

// KnownUnit returns a unit resolved through the vocabulary.
func KnownUnit(token string) Unit { return Unit{Token: token, Known: true} }

// UnrecognizedUnit returns a pass-through unit for an unmapped spelling.
func UnrecognizedUnit(original string) Unit { return Unit{Token: original} }

func (u Unit) String() string { return u.Token }
