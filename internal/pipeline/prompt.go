package pipeline

import (
	"fmt"
	"strings"
)

// DefaultSystemPrompt instructs the extraction model. Recipes in the wild
// are mostly Russian, so the unit vocabulary is spelled out explicitly.
const DefaultSystemPrompt = `You are a recipe extraction assistant. You receive raw recipe text scraped
from a web page and return ONLY a JSON object with the recipe's structured
data. No prose, no markdown fences.

The JSON object must have this shape:
{
  "title": "dish name",
  "ingredients": [
    {"name": "ingredient name", "amount": 100, "unit": "г", "original_text": "the line as written in the source"}
  ],
  "instructions": ["step 1", "step 2"],
  "cooking_time": 30,
  "servings": 4,
  "source_url": "url of the source page"
}

Rules:
- "amount" is a number in the given unit. Use 0 for "по вкусу" (to taste).
- "unit" is one of: г, мл, шт, ст.л, ч.л, чашка, л, кг. Use the closest
  standard unit; keep the original spelling in "original_text".
- "instructions" are the preparation steps in order, one string per step.
- "cooking_time" is total minutes, "servings" is the portion count; omit
  either if the source does not state it.
- Keep ingredient names and instructions in the source language.`

// UserPromptSuffix reminds the model of the output contract at the end of
// every request; some providers ignore the JSON response format hint.
const userPromptSuffix = `Return the parsed recipe as a single valid JSON object matching the schema
from the system instructions. Do not wrap it in markdown.`

// Source is the raw material for one extraction attempt.
type Source struct {
	Title string
	URL   string
	Lines []string
}

// UserPrompt formats raw source text into the extraction request.
func UserPrompt(src Source) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Recipe Title: %s\n", src.Title)
	fmt.Fprintf(&b, "Source URL: %s\n\n", src.URL)
	b.WriteString("Recipe Content:\n")
	b.WriteString(strings.Join(src.Lines, "\n"))
	b.WriteString("\n\n")
	b.WriteString(userPromptSuffix)
	return b.String()
}

// joinPrompt appends the patch addendum to the base system prompt.
func joinPrompt(base, addendum string) string {
	if addendum == "" {
		return base
	}
	return base + "\n\n" + addendum
}
