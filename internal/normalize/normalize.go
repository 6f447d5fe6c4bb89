// Package normalize provides utilities for normalizing and sanitizing data.
package normalize

import (
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/text/unicode/norm"
)

// String sanitizes a raw string for storage: strips null bytes, applies
// Unicode NFC normalization, and collapses surrounding whitespace.
// Null bytes show up in strings pasted from OCR output and break both
// JSON encoding and key comparisons.
func String(s string) string {
	s = strings.Map(func(r rune) rune {
		if r == 0 { // null byte
			return -1 // drop it
		}
		return r
	}, s)
	return strings.TrimSpace(norm.NFC.String(s))
}

// Categories normalizes a raw category list: each entry is sanitized and
// trimmed, empty entries are dropped, and duplicates are removed while
// preserving first-occurrence order. Comparison is case-insensitive but the
// original casing of the first occurrence is kept.
func Categories(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, c := range raw {
		c = String(c)
		if c == "" {
			continue
		}
		key := strings.ToLower(c)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out
}

// SplitCategories splits a comma-separated category field (the form clients
// send for multipart publishes) and normalizes the result.
func SplitCategories(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return Categories(strings.Split(raw, ","))
}

// htmlTagPattern matches common HTML tags, enough to decide whether a
// description was pasted from a rich-text source.
var htmlTagPattern = regexp.MustCompile(`<(p|br|div|span|b|i|strong|em|a|ul|ol|li|h[1-6]|blockquote)[\s>/]`)

// containsHTML reports whether a string appears to contain HTML markup.
func containsHTML(s string) bool {
	return htmlTagPattern.MatchString(strings.ToLower(s))
}

// Description sanitizes a book description. HTML pasted from publisher
// pages is converted to Markdown; plain text passes through untouched.
func Description(s string) string {
	s = String(s)
	if s == "" || !containsHTML(s) {
		return s
	}

	markdown, err := htmltomarkdown.ConvertString(s)
	if err != nil {
		// Conversion failing is not worth losing the description over.
		return s
	}
	return strings.TrimSpace(markdown)
}
