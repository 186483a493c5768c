package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// PaymentMaxAmount is the ceiling for peer-to-peer payment screenshots.
// Tighter than receipts: UPI transfers above this are assumed misreads.
const PaymentMaxAmount = 200000

// Candidate weights, highest first. Ties between equal weights break toward
// the larger value, same as the receipt scanner.
const (
	weightMarkedAmount   = 10 // currency marker glued to the amount
	weightSplitMarker    = 9  // marker and amount split into separate tokens
	weightGlyphLine      = 8  // line of one misread currency glyph + number
	weightLeadingTwoLine = 7  // short numeric line starting with a misread "2"
)

// Bounds for the weight-7 rule: a standalone numeric line shorter than
// leadingTwoMaxLen whose first digit is 2 and whose length is at least
// leadingTwoMinLen is read as a currency glyph misread as "2" prefixed to
// the true amount. Vendor-specific; keep as-is without a regression corpus.
const (
	leadingTwoMaxLen = 5
	leadingTwoMinLen = 3
)

var (
	// Currency marker glued to an amount within one match: ₹250, rs.120, inr 99.
	markedAmountPattern = regexp.MustCompile(`(?i)(?:₹|\b(?:rs\.?|inr))\s*([0-9oO][0-9oO,]*(?:\.[0-9oO]{1,2})?)`)

	// A repaired token must be plain digits with at most two decimals.
	amountShapePattern = regexp.MustCompile(`^\d+(?:\.\d{1,2})?$`)

	// Line of one non-alphanumeric leading character (a misread glyph)
	// followed by a number.
	glyphLinePattern = regexp.MustCompile(`^[^a-zA-Z0-9\s]\s*([0-9oO][0-9oO,]*(?:\.[0-9oO]{1,2})?)$`)

	digitsOnlyPattern = regexp.MustCompile(`^[0-9]+$`)
)

func isCurrencyMarker(token string) bool {
	switch strings.ToLower(token) {
	case "₹", "rs", "rs.", "inr":
		return true
	}
	return false
}

// repairToken normalizes one OCR amount token: thousands separators are
// dropped and an o/O next to a digit becomes the digit 0.
func repairToken(token string) string {
	token = strings.ReplaceAll(strings.TrimSpace(token), ",", "")
	runes := []rune(token)
	for i, r := range runes {
		if r != 'o' && r != 'O' {
			continue
		}
		prevDigit := i > 0 && runes[i-1] >= '0' && runes[i-1] <= '9'
		nextDigit := i+1 < len(runes) && runes[i+1] >= '0' && runes[i+1] <= '9'
		if prevDigit || nextDigit {
			runes[i] = '0'
		}
	}
	return string(runes)
}

// ParseAmountToken repairs and validates one OCR token. It returns ok=false
// when the cleaned token is not a plain decimal or the value falls outside
// (0, PaymentMaxAmount].
func ParseAmountToken(token string) (float64, bool) {
	cleaned := repairToken(token)
	if !amountShapePattern.MatchString(cleaned) {
		return 0, false
	}
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	if value <= 0 || value > PaymentMaxAmount {
		return 0, false
	}
	return value, true
}

// PaymentAmount returns the best-guess amount from a payment screenshot's
// OCR text, or 0.0 when nothing plausible is found. Candidates from every
// source are pooled and the maximum by (weight, value) wins.
func PaymentAmount(text string) float64 {
	if strings.TrimSpace(text) == "" {
		return 0.0
	}

	var candidates []candidate

	// Marker glued to the amount, anywhere in the text.
	for _, m := range markedAmountPattern.FindAllStringSubmatch(text, -1) {
		if value, ok := ParseAmountToken(m[1]); ok {
			candidates = append(candidates, candidate{value: value, weight: weightMarkedAmount})
		}
	}

	// OCR sometimes splits the marker and the number into separate tokens.
	tokens := strings.Fields(text)
	for i := 0; i+1 < len(tokens); i++ {
		if !isCurrencyMarker(tokens[i]) {
			continue
		}
		if value, ok := ParseAmountToken(tokens[i+1]); ok {
			candidates = append(candidates, candidate{value: value, weight: weightSplitMarker})
		}
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		// A lone non-alphanumeric character before a number is usually the
		// currency glyph that OCR could not identify.
		if m := glyphLinePattern.FindStringSubmatch(line); m != nil {
			if value, ok := ParseAmountToken(m[1]); ok {
				candidates = append(candidates, candidate{value: value, weight: weightGlyphLine})
			}
		}

		// Short all-digit line starting with 2: read the leading 2 as a
		// misread ₹ and parse the remainder.
		if digitsOnlyPattern.MatchString(line) &&
			len(line) < leadingTwoMaxLen && len(line) >= leadingTwoMinLen &&
			line[0] == '2' {
			if value, ok := ParseAmountToken(line[1:]); ok {
				candidates = append(candidates, candidate{value: value, weight: weightLeadingTwoLine})
			}
		}
	}

	return pickBest(candidates)
}
