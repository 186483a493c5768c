// Package classify assigns a category label to an expense description.
//
// Resolution is two-tier: a deterministic keyword table is always consulted
// first, and a naive-Bayes model trained on the user's own history handles
// descriptions the table does not know. The worst case is always the Others
// label, never an error.
package classify

import (
	"regexp"
	"strings"

	"kharcha/internal/core"
)

// rule pairs a category with the keywords that prove it. Rules are evaluated
// in table order, first whole-word hit wins.
type rule struct {
	category core.Category
	keywords []string
}

var ruleTable = []rule{
	{core.Travel, []string{
		"fuel", "petrol", "diesel", "uber", "ola", "taxi", "auto", "bus",
		"train", "metro", "flight", "cab", "parking", "toll",
	}},
	{core.Bills, []string{
		"emi", "insurance", "electricity", "recharge", "bill", "internet",
		"wifi", "broadband", "water", "gas", "rent", "phone",
	}},
	{core.Food, []string{
		"biryani", "dosa", "pizza", "burger", "curry", "sandwich", "ramen",
		"restaurant", "lunch", "dinner", "breakfast", "snack", "chips",
		"coffee", "tea", "swiggy", "zomato", "meal", "grocery", "groceries",
	}},
	{core.Shopping, []string{
		"shopping", "shop", "shirt", "tshirt", "shoe", "slipper", "dress",
		"jeans", "kurti", "bag", "watch", "myntra", "amazon", "flipkart",
		"clothes", "fashion",
	}},
}

var nonLetterPattern = regexp.MustCompile(`[^a-z\s]`)

// normalizeText lowercases and strips everything but letters and spaces.
func normalizeText(text string) string {
	return nonLetterPattern.ReplaceAllString(strings.ToLower(text), "")
}

// terms splits a description into classification tokens.
func terms(description string) []string {
	return strings.Fields(normalizeText(description))
}

// RuleCategory resolves a description against the keyword table. ok=false
// means no rule matched and the statistical fallback should run.
func RuleCategory(description string) (core.Category, bool) {
	words := make(map[string]struct{})
	for _, w := range terms(description) {
		words[w] = struct{}{}
	}
	if len(words) == 0 {
		return "", false
	}

	for _, r := range ruleTable {
		for _, k := range r.keywords {
			if _, ok := words[k]; ok {
				return r.category, true
			}
		}
	}
	return "", false
}
