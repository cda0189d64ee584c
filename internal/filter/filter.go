// Package filter reduces a catalog snapshot to the visible subset.
// Everything here is pure; it is safe to call on every keystroke.
package filter

import (
	"strings"

	"github.com/keshavthakur30/SweetShop/internal/domain"
)

// CategoryAll disables the category filter.
const CategoryAll = "all"

// PriceBracket is one of the fixed price intervals the shop offers.
// Every price belongs to exactly one non-all bracket: under150 is
// strictly below 150, mid150to250 covers [150, 250], above250 is
// strictly above 250.
type PriceBracket string

const (
	BracketAll         PriceBracket = "all"
	BracketUnder150    PriceBracket = "under150"
	BracketMid150To250 PriceBracket = "150to250"
	BracketAbove250    PriceBracket = "above250"
)

// Visible returns the sweets matching the query, category and price
// bracket, preserving the input order. The query matches
// case-insensitively as a substring of name or description. An empty
// query, CategoryAll (or empty category) and BracketAll (or empty
// bracket) each disable their filter.
func Visible(items []domain.Sweet, query, category string, bracket PriceBracket) []domain.Sweet {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]domain.Sweet, 0, len(items))
	for _, sw := range items {
		if q != "" && !matchesQuery(sw, q) {
			continue
		}
		if category != "" && category != CategoryAll && sw.Category != category {
			continue
		}
		if !matchesBracket(sw.Price, bracket) {
			continue
		}
		out = append(out, sw)
	}
	return out
}

func matchesQuery(sw domain.Sweet, q string) bool {
	return strings.Contains(strings.ToLower(sw.Name), q) ||
		strings.Contains(strings.ToLower(sw.Description), q)
}

func matchesBracket(price float64, bracket PriceBracket) bool {
	switch bracket {
	case BracketUnder150:
		return price < 150
	case BracketMid150To250:
		return price >= 150 && price <= 250
	case BracketAbove250:
		return price > 250
	default:
		return true
	}
}
