package label

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		raw      string
		expected string
	}{
		{"rottenApple", "manzana"},
		{"FreshAPPLE", "manzana"},
		{"ROTTENapple", "manzana"},
		{"fresh_mango", "mango"},
		{"Rotten-Mango", "mango"},
		{"freshbanana", "banana"},
		{"Orange", "naranja"},
		{"overripe banana", "banana"},
		{"unripe_orange_2", "naranja"},
		{"good apple", "manzana"},
		{"BAD-Mango", "mango"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := Normalize(tt.raw)
			assert.True(t, ok)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestNormalize_Unmapped(t *testing.T) {
	for _, raw := range []string{"kiwi", "", "rotten", "fresh-good-bad", "12345", "pear"} {
		got, ok := Normalize(raw)
		assert.False(t, ok, "label %q", raw)
		assert.Empty(t, got)
	}
}

func TestNormalize_CanonicalIsIdempotent(t *testing.T) {
	for _, product := range []string{"banana", "mango"} {
		got, ok := Normalize(product)
		assert.True(t, ok)
		assert.Equal(t, product, got)
	}
}

func TestNormalize_FirstKeyWins(t *testing.T) {
	got, ok := Normalize("apple-banana")
	assert.True(t, ok)
	assert.Equal(t, "manzana", got)

	got, ok = Normalize("mango_orange")
	assert.True(t, ok)
	assert.Equal(t, "naranja", got)
}

func TestClean_QualifierSubstringQuirk(t *testing.T) {
	// qualifiers are removed as substrings, not words
	assert.Equal(t, "apple", Clean("Fresh-Apple_01"))
	assert.Equal(t, "berry", Clean("Goodberry"))
	assert.Equal(t, "orange", Clean("orbadange"))
}

func TestProducts(t *testing.T) {
	assert.Equal(t, []string{"manzana", "banana", "naranja", "mango"}, Products())
}
