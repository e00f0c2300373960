// Package label maps raw model class names onto the inventory's product names.
package label

import (
	"strings"
	"unicode"
)

// qualifiers are condition words the model prepends to fruit names. They are removed
// as plain substrings, in this order, so a fruit name that happens to contain one of
// them loses that part too.
var qualifiers = []string{"fresh", "rotten", "overripe", "unripe", "good", "bad"}

type mapping struct {
	key     string
	product string
}

// products is checked in order; the first key contained in the cleaned label wins.
var products = []mapping{
	{"apple", "manzana"},
	{"banana", "banana"},
	{"orange", "naranja"},
	{"mango", "mango"},
}

// Normalize returns the product name for a raw model label, or false when the label
// does not contain any known fruit.
func Normalize(raw string) (string, bool) {
	cleaned := Clean(raw)
	for _, m := range products {
		if strings.Contains(cleaned, m.key) {
			return m.product, true
		}
	}
	return "", false
}

// Clean lower-cases raw, strips condition qualifiers and drops every non-letter.
func Clean(raw string) string {
	s := strings.ToLower(raw)
	for _, q := range qualifiers {
		s = strings.ReplaceAll(s, q, "")
	}
	return strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII || !unicode.IsLetter(r) {
			return -1
		}
		return r
	}, s)
}

// Products returns the canonical product names in lookup order.
func Products() []string {
	names := make([]string, 0, len(products))
	for _, m := range products {
		names = append(names, m.product)
	}
	return names
}
