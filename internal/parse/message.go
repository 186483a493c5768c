// Package parse turns chat-style expense commands into structured values.
package parse

import (
	"regexp"
	"strconv"
	"strings"

	"kharcha/internal/core"
)

// Anchored grammars tried in order; first match wins. Each captures the
// amount and the remaining description.
var grammars = []*regexp.Regexp{
	regexp.MustCompile(`^add\s+(\d+(?:\.\d+)?)\s+(.+)$`),
	regexp.MustCompile(`^spent\s+(\d+(?:\.\d+)?)\s+on\s+(.+)$`),
	regexp.MustCompile(`^i\s+spent\s+(\d+(?:\.\d+)?)\s+on\s+(.+)$`),
	regexp.MustCompile(`^pay(?:ed)?\s+(\d+(?:\.\d+)?)\s+for\s+(.+)$`),
}

var (
	numberPattern = regexp.MustCompile(`\d+(?:\.\d+)?`)
	leadingFiller = regexp.MustCompile(`^(on|for)\s+`)
	// Filler words common in voice commands, trimmed from fallback descriptions.
	fallbackFiller = regexp.MustCompile(`^(add|spent|i spent|pay|paid|on|for)\s+`)
)

// Message parses one line of user text into an amount and a description.
// It returns ok=false when no amount can be found or the description would
// be empty; the caller treats that as a no-op, not an error.
func Message(text string) (core.ParsedCommand, bool) {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return core.ParsedCommand{}, false
	}

	for _, g := range grammars {
		m := g.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		amount, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		desc := strings.TrimSpace(leadingFiller.ReplaceAllString(strings.TrimSpace(m[2]), ""))
		if desc == "" {
			continue
		}
		return core.ParsedCommand{Amount: amount, Description: desc}, true
	}

	// Fallback: first number anywhere is the amount, the rest is description.
	loc := numberPattern.FindStringIndex(text)
	if loc == nil {
		return core.ParsedCommand{}, false
	}

	amount, err := strconv.ParseFloat(text[loc[0]:loc[1]], 64)
	if err != nil {
		return core.ParsedCommand{}, false
	}

	before := strings.TrimSpace(text[:loc[0]])
	after := strings.TrimSpace(text[loc[1]:])
	desc := strings.TrimSpace(before + " " + after)
	desc = strings.TrimSpace(fallbackFiller.ReplaceAllString(desc, ""))
	if desc == "" {
		return core.ParsedCommand{}, false
	}

	return core.ParsedCommand{Amount: amount, Description: desc}, true
}
