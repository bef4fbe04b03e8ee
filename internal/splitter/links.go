package splitter

import (
	"strings"

	"github.com/jonathan/interview-dispatch/internal/types"
)

// LinkRule maps round names containing any of Needles (lowercase) to a link category.
type LinkRule struct {
	Category types.LinkCategory
	Needles  []string
}

// DefaultLinkRules is evaluated in order; the first matching rule wins.
var DefaultLinkRules = []LinkRule{
	{Category: types.LinkCategoryHR, Needles: []string{"hr"}},
	{Category: types.LinkCategoryTech, Needles: []string{"tech"}},
	{Category: types.LinkCategoryHiringManager, Needles: []string{"hiring manager", "hm"}},
}

// ClassifyRound returns the category of the first rule whose needle appears in the
// lowercased round name, or LinkCategoryNone.
func ClassifyRound(round string, rules []LinkRule) types.LinkCategory {
	lower := strings.ToLower(round)
	for _, rule := range rules {
		for _, needle := range rule.Needles {
			if strings.Contains(lower, needle) {
				return rule.Category
			}
		}
	}
	return types.LinkCategoryNone
}

// ResolveLink picks the scheduling link for a round using DefaultLinkRules.
// A round that matches no rule resolves to an empty link.
func ResolveLink(round string, links types.Links) string {
	return links.For(ClassifyRound(round, DefaultLinkRules))
}
