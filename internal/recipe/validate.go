package recipe

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrSchema indicates a parseable document that violates the recipe schema.
var ErrSchema = errors.New("schema violation")

// FromDocument coerces a parsed JSON document into a validated Recipe.
// Field coercion uses the supplied unit mapping (base vocabulary merged with
// the patch overlay). The first unrecoverable violation aborts; amount errors
// wrap ErrUnparseableAmount / ErrNegativeAmount so callers can classify them.
func FromDocument(doc map[string]any, mapping *UnitMapping) (*Recipe, error) {
	title, _ := doc["title"].(string)
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrSchema)
	}

	rawIngredients, ok := doc["ingredients"].([]any)
	if !ok || len(rawIngredients) == 0 {
		return nil, fmt.Errorf("%w: ingredients are required", ErrSchema)
	}
	ingredients := make([]Ingredient, 0, len(rawIngredients))
	for i, item := range rawIngredients {
		entry, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: ingredient %d is not an object", ErrSchema, i)
		}
		name, _ := entry["name"].(string)
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("%w: ingredient %d has no name", ErrSchema, i)
		}
		amount, err := ParseAmount(entry["amount"])
		if err != nil {
			return nil, fmt.Errorf("ingredient %q: %w", name, err)
		}
		rawUnit, _ := entry["unit"].(string)
		original, _ := entry["original_text"].(string)
		ingredients = append(ingredients, Ingredient{
			Name:         name,
			Amount:       amount,
			Unit:         NormalizeUnit(rawUnit, mapping),
			OriginalText: original,
		})
	}

	rawInstructions, ok := doc["instructions"].([]any)
	if !ok || len(rawInstructions) == 0 {
		return nil, fmt.Errorf("%w: instructions are required", ErrSchema)
	}
	instructions := make([]string, 0, len(rawInstructions))
	for i, item := range rawInstructions {
		step, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("%w: instruction %d is not a string", ErrSchema, i)
		}
		instructions = append(instructions, step)
	}

	cookingTime, err := optionalCount(doc["cooking_time"], "cooking_time")
	if err != nil {
		return nil, err
	}
	servings, err := optionalCount(doc["servings"], "servings")
	if err != nil {
		return nil, err
	}

	sourceURL, _ := doc["source_url"].(string)

	return &Recipe{
		Title:        title,
		Ingredients:  ingredients,
		Instructions: instructions,
		CookingTime:  cookingTime,
		Servings:     servings,
		SourceURL:    strings.TrimSpace(sourceURL),
	}, nil
}

// optionalCount coerces an optional integer field (minutes, servings) that
// models emit as numbers or numeric strings.
func optionalCount(v any, field string) (*int, error) {
	switch n := v.(type) {
	case nil:
		return nil, nil
	case float64:
		if n != math.Trunc(n) {
			return nil, fmt.Errorf("%w: %s must be a whole number, got %v", ErrSchema, field, n)
		}
		i := int(n)
		return &i, nil
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return nil, nil
		}
		i, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %s is not a number: %q", ErrSchema, field, n)
		}
		return &i, nil
	default:
		return nil, fmt.Errorf("%w: %s has unsupported type %T", ErrSchema, field, v)
	}
}
