// Package receipt turns raw extracted receipt text into line-item guesses.
// It is a best-effort keyword matcher feeding optional food entries; callers
// must treat every field as a guess, not a fact.
package receipt

import (
	"strconv"
	"strings"
)

// LineItem is one recognized receipt line. Price and Quantity are nil when
// the line carried none that parsed.
type LineItem struct {
	Item     string   `json:"item"`
	Price    *float64 `json:"price,omitempty"`
	Quantity *float64 `json:"quantity,omitempty"`
	Category string   `json:"category,omitempty"` // empty when no keyword matched
}

// categoryKeywords maps lowercase substrings to a food category guess.
// First match wins, scanned in the order below.
var categoryKeywords = []struct {
	keyword  string
	category string
}{
	{"beef", "meat"},
	{"steak", "meat"},
	{"pork", "meat"},
	{"bacon", "meat"},
	{"chicken", "poultry"},
	{"turkey", "poultry"},
	{"salmon", "seafood"},
	{"tuna", "seafood"},
	{"shrimp", "seafood"},
	{"fish", "seafood"},
	{"milk", "dairy"},
	{"cheese", "dairy"},
	{"yogurt", "dairy"},
	{"butter", "dairy"},
	{"egg", "dairy"},
	{"bread", "grains"},
	{"rice", "grains"},
	{"pasta", "grains"},
	{"cereal", "grains"},
	{"apple", "produce"},
	{"banana", "produce"},
	{"lettuce", "produce"},
	{"tomato", "produce"},
	{"onion", "produce"},
	{"potato", "produce"},
}

// Parse splits raw receipt text into line items. Lines without any usable
// item text are skipped; totals and payment lines are filtered out.
func Parse(text string) []LineItem {
	var items []LineItem
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || isNoise(line) {
			continue
		}
		if item, ok := parseLine(line); ok {
			items = append(items, item)
		}
	}
	return items
}

// noisePrefixes are receipt lines that are never products.
var noisePrefixes = []string{
	"total", "subtotal", "tax", "cash", "change", "credit", "debit",
	"visa", "mastercard", "balance", "thank", "store", "cashier",
}

func isNoise(line string) bool {
	lower := strings.ToLower(line)
	for _, p := range noisePrefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}

func parseLine(line string) (LineItem, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return LineItem{}, false
	}

	var item LineItem

	// Trailing price, with optional currency sign.
	if p, ok := parseAmount(fields[len(fields)-1]); ok {
		item.Price = &p
		fields = fields[:len(fields)-1]
	}

	// Leading "2 x" or bare leading count.
	if len(fields) >= 2 {
		if q, ok := parseAmount(fields[0]); ok {
			rest := fields[1:]
			if strings.EqualFold(rest[0], "x") {
				rest = rest[1:]
			}
			if len(rest) > 0 {
				item.Quantity = &q
				fields = rest
			}
		}
	}

	if len(fields) == 0 {
		return LineItem{}, false
	}
	item.Item = strings.Join(fields, " ")
	item.Category = guessCategory(item.Item)
	return item, true
}

func parseAmount(s string) (float64, bool) {
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

func guessCategory(item string) string {
	lower := strings.ToLower(item)
	for _, kw := range categoryKeywords {
		if strings.Contains(lower, kw.keyword) {
			return kw.category
		}
	}
	return ""
}
