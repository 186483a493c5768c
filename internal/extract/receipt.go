// Package extract pulls amounts and payment details out of OCR text.
//
// The heuristics here (keyword scores, value ceilings, candidate weights)
// were tuned against sample receipts and payment-app screenshots. Treat the
// constants as configuration: changing them without a labeled regression
// corpus will silently shift which candidate wins.
package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// ReceiptMaxAmount is the ceiling above which a receipt candidate is treated
// as OCR garbage (merged digits, identifiers misread as amounts).
const ReceiptMaxAmount = 100000

// Line score adjustments and the per-token decimal bonus.
const (
	priorityBonus   = 3
	lowPriorityCost = 2
	decimalBonus    = 1
)

var (
	// Date and time shapes are removed up front so they cannot be misread
	// as amounts.
	dateSlashPattern = regexp.MustCompile(`\b\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b`)
	dateISOPattern   = regexp.MustCompile(`\b\d{4}[/-]\d{1,2}[/-]\d{1,2}\b`)
	timePattern      = regexp.MustCompile(`\b\d{1,2}:\d{2}(?::\d{2})?\b`)
)

var priorityKeywords = []string{
	"grand total", "total amount", "net amount", "amount due", "payable", "total",
}

var lowPriorityKeywords = []string{
	"qty", "quantity", "item", "invoice no", "bill no", "gstin", "phone",
}

// candidate is one scored numeric guess found while scanning.
type candidate struct {
	value  float64
	weight int
}

// better reports whether c should win over best, comparing by weight first
// and by value on ties.
func (c candidate) better(best candidate) bool {
	if c.weight != best.weight {
		return c.weight > best.weight
	}
	return c.value > best.value
}

// ReceiptAmount returns the best-guess total from OCR'd receipt text,
// or 0.0 when no plausible candidate survives.
func ReceiptAmount(text string) float64 {
	if strings.TrimSpace(text) == "" {
		return 0.0
	}

	cleaned := strings.ToLower(text)
	cleaned = dateSlashPattern.ReplaceAllString(cleaned, " ")
	cleaned = dateISOPattern.ReplaceAllString(cleaned, " ")
	cleaned = timePattern.ReplaceAllString(cleaned, " ")

	var candidates []candidate
	for _, line := range strings.Split(cleaned, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		tokens := numberTokens(line)
		if len(tokens) == 0 {
			continue
		}

		lineScore := 0
		if containsAny(line, priorityKeywords) {
			lineScore += priorityBonus
		}
		if containsAny(line, lowPriorityKeywords) {
			lineScore -= lowPriorityCost
		}

		for _, raw := range tokens {
			value, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
			if err != nil {
				continue
			}
			if value <= 0 || value > ReceiptMaxAmount {
				continue
			}
			score := lineScore
			if strings.Contains(raw, ".") {
				score += decimalBonus
			}
			candidates = append(candidates, candidate{value: value, weight: score})
		}
	}

	return pickBest(candidates)
}

// numberTokens scans a line for grouped-decimal tokens: digits with optional
// ",ddd" thousands groups and up to two decimals, never starting or ending
// against another digit. A candidate that would run into a following digit
// gives back its decimal part, then its last thousands group, before being
// rejected, so "745.000" still yields "745" and "1,2345" yields "1".
func numberTokens(line string) []string {
	var tokens []string
	for i := 0; i < len(line); {
		if !isDigit(line[i]) || (i > 0 && isDigit(line[i-1])) {
			i++
			continue
		}
		token, end := matchNumberToken(line, i)
		if token == "" {
			i++
			continue
		}
		tokens = append(tokens, token)
		i = end
	}
	return tokens
}

// matchNumberToken matches one token starting at a digit. It extends
// greedily over thousands groups and decimals, then retreats segment by
// segment until the token ends clear of a following digit.
func matchNumberToken(line string, start int) (string, int) {
	intEnd := start
	for intEnd < len(line) && isDigit(line[intEnd]) {
		intEnd++
	}

	groupEnds := []int{intEnd}
	end := intEnd
	for end+3 < len(line) && line[end] == ',' &&
		isDigit(line[end+1]) && isDigit(line[end+2]) && isDigit(line[end+3]) {
		end += 4
		groupEnds = append(groupEnds, end)
	}

	for g := len(groupEnds) - 1; g >= 0; g-- {
		for _, e := range decimalEnds(line, groupEnds[g]) {
			if e == len(line) || !isDigit(line[e]) {
				return line[start:e], e
			}
		}
	}
	return "", start
}

// decimalEnds lists candidate token ends at p: two decimals, one, then none.
func decimalEnds(line string, p int) []int {
	var ends []int
	if p+1 < len(line) && line[p] == '.' && isDigit(line[p+1]) {
		if p+2 < len(line) && isDigit(line[p+2]) {
			ends = append(ends, p+3)
		}
		ends = append(ends, p+2)
	}
	return append(ends, p)
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func containsAny(line string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(line, k) {
			return true
		}
	}
	return false
}

// pickBest reduces the candidate pool to a single winner by (weight, value).
func pickBest(candidates []candidate) float64 {
	if len(candidates) == 0 {
		return 0.0
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.better(best) {
			best = c
		}
	}
	return best.value
}
