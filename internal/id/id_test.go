package id

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isNanoIDChar(c rune) bool {
	return (c >= 'A' && c <= 'Z') ||
		(c >= 'a' && c <= 'z') ||
		(c >= '0' && c <= '9') ||
		c == '_' || c == '-'
}

func TestGenerate_Format(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
	}{
		{"book", PrefixBook},
		{"user", PrefixUser},
		{"comment", PrefixComment},
		{"activity", PrefixActivity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Generate(tt.prefix)
			require.NoError(t, err)

			require.True(t, strings.HasPrefix(got, tt.prefix+"-"), "ID: %s", got)

			// The random part is a default NanoID: 21 URL-safe characters.
			random := strings.TrimPrefix(got, tt.prefix+"-")
			assert.Len(t, random, 21)
			for _, c := range random {
				assert.True(t, isNanoIDChar(c), "character %q in %s", c, got)
			}
		})
	}
}

func TestGenerate_NoCollisions(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		got, err := Generate(PrefixBook)
		require.NoError(t, err)
		require.False(t, seen[got], "duplicate ID %s", got)
		seen[got] = true
	}
}

func TestMustGenerate(t *testing.T) {
	got := MustGenerate(PrefixComment)
	assert.True(t, strings.HasPrefix(got, "cmt-"))
	assert.Len(t, got, len(PrefixComment)+1+21)
}

func BenchmarkGenerate(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = Generate(PrefixBook)
	}
}
