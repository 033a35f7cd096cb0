package listing

import (
	"strconv"
	"strings"
)

type Bracket string

const (
	BracketLow  Bracket = "low"
	BracketMid  Bracket = "mid"
	BracketHigh Bracket = "high"
)

// ParseBracket accepts a bracket name as typed by a user.
func ParseBracket(s string) (Bracket, bool) {
	switch b := Bracket(strings.ToLower(strings.TrimSpace(s))); b {
	case BracketLow, BracketMid, BracketHigh:
		return b, true
	}
	return "", false
}

// ParsePrice extracts the leading amount of a display price such as "$1,299"
// or "€499.99 / month". Currency symbols before the amount and thousands
// separators are ignored. Anything unparseable yields 0.
func ParsePrice(s string) float64 {
	start := strings.IndexFunc(s, func(r rune) bool {
		return r >= '0' && r <= '9'
	})
	if start < 0 {
		return 0
	}
	if start > 0 && s[start-1] == '.' {
		start--
	}

	var b strings.Builder
	dot := false
scan:
	for _, r := range s[start:] {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ',' && !dot:
		case r == '.' && !dot:
			dot = true
			b.WriteRune(r)
		default:
			break scan
		}
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(b.String(), "."), 64)
	if err != nil {
		return 0
	}
	return v
}

// PriceBracket classifies a display price: low below 500, mid from 500 to
// 1000 inclusive, high above 1000.
func PriceBracket(price string) Bracket {
	v := ParsePrice(price)
	switch {
	case v < 500:
		return BracketLow
	case v <= 1000:
		return BracketMid
	default:
		return BracketHigh
	}
}
