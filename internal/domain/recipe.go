package domain

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var recipeTitler = cases.Title(language.English)

// RecipeLabel turns a recipe identifier like "rain_heavy" into the human
// label "Rain Heavy" used in ledger descriptions.
func RecipeLabel(recipe string) string {
	recipe = strings.TrimSpace(recipe)
	if recipe == "" {
		return ""
	}
	return recipeTitler.String(strings.ReplaceAll(recipe, "_", " "))
}
