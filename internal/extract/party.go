package extract

import (
	"regexp"
	"strings"

	"kharcha/internal/core"
)

// Defaults when a payment screenshot yields nothing usable.
const (
	UnknownCounterparty = "Unknown"
	ScreenshotNote      = "Payment Screenshot"
)

// counterpartyMaxLen caps extracted names; OCR run-ons past this are noise.
const counterpartyMaxLen = 60

var (
	receivedLinePattern = regexp.MustCompile(`(?i)^(?:received\s+from|from)\s+(.+)$`)
	sentLinePattern     = regexp.MustCompile(`(?i)^(?:paid\s+to|to)\s+(.+)$`)

	// Unanchored fallbacks over the whole joined text; "from" is preferred.
	receivedAnywherePattern = regexp.MustCompile(`(?i)\bfrom\s+([^\n]+)`)
	sentAnywherePattern     = regexp.MustCompile(`(?i)\bto\s+([^\n]+)`)

	// Transaction metadata that OCR glues onto names; the name is cut at the
	// first of these.
	metadataKeywordPattern = regexp.MustCompile(`(?i)\b(upi|utr|ref|txn|transaction|id)\b`)

	nameCharWhitelist   = regexp.MustCompile(`[^a-zA-Z0-9 .&_-]`)
	whitespaceCollapser = regexp.MustCompile(`\s+`)
)

// PaymentDetails parses a payment screenshot's OCR text into counterparty,
// direction and amount. Every field degrades independently to its default.
func PaymentDetails(text string) core.PaymentDetails {
	details := core.PaymentDetails{
		Counterparty: UnknownCounterparty,
		Description:  ScreenshotNote,
		Amount:       PaymentAmount(text),
		Direction:    core.Send,
	}

	name, direction, found := findCounterparty(text)
	if !found {
		return details
	}

	details.Direction = direction
	if cleaned := cleanCounterparty(name); cleaned != "" {
		details.Counterparty = cleaned
	}
	return details
}

// findCounterparty scans line by line for an anchored from/to phrase; the
// first matching line wins. Failing that, it searches the joined text.
func findCounterparty(text string) (string, core.Direction, bool) {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if m := receivedLinePattern.FindStringSubmatch(line); m != nil {
			return m[1], core.Received, true
		}
		if m := sentLinePattern.FindStringSubmatch(line); m != nil {
			return m[1], core.Send, true
		}
	}

	if m := receivedAnywherePattern.FindStringSubmatch(text); m != nil {
		return m[1], core.Received, true
	}
	if m := sentAnywherePattern.FindStringSubmatch(text); m != nil {
		return m[1], core.Send, true
	}
	return "", core.Send, false
}

// cleanCounterparty strips transaction metadata and OCR junk from a raw
// name capture. Returns "" when nothing readable remains.
func cleanCounterparty(name string) string {
	if loc := metadataKeywordPattern.FindStringIndex(name); loc != nil {
		name = name[:loc[0]]
	}

	name = nameCharWhitelist.ReplaceAllString(name, "")
	name = whitespaceCollapser.ReplaceAllString(name, " ")
	name = strings.Trim(name, " .&_-")

	if len(name) > counterpartyMaxLen {
		name = strings.TrimSpace(name[:counterpartyMaxLen])
	}
	return name
}
