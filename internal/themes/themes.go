// Package themes holds the portfolio theme registry.
package themes

import "github.com/portpilot/portpilot/internal/models"

// DefaultID is the theme assigned to new portfolios.
const DefaultID = "sleek"

// Theme describes one portfolio rendering theme.
type Theme struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	IsPro       bool   `json:"isPro"`
}

// All lists every available theme in display order.
var All = []Theme{
	{ID: "sleek", Name: "Sleek", Description: "Hero + grid cards with cover images and language badges"},
	{ID: "cardgrid", Name: "CardGrid", Description: "Pinterest-style masonry layout with hover details"},
	{ID: "terminal", Name: "Terminal", Description: "Monospace, command-prompt aesthetic with typing animation", IsPro: true},
	{ID: "magazine", Name: "Magazine", Description: "Large image lead-ins with editorial excerpt sections", IsPro: true},
}

// Get returns the theme with the given id, if it exists.
func Get(id string) (Theme, bool) {
	for _, t := range All {
		if t.ID == id {
			return t, true
		}
	}
	return Theme{}, false
}

// Allowed reports whether a plan may use the theme.
func Allowed(t Theme, plan models.Plan) bool {
	return !t.IsPro || plan == models.PlanPro
}

// Resolve returns the theme id to render for a portfolio: the configured
// theme when the owner's plan allows it, else the default theme. Keeps a
// downgraded Pro account rendering rather than failing.
func Resolve(id string, plan models.Plan) string {
	t, ok := Get(id)
	if !ok || !Allowed(t, plan) {
		return DefaultID
	}
	return t.ID
}
