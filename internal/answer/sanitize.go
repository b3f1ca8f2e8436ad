package answer

import (
	"strings"

	"golang.org/x/net/html"
)

// stripMarkup flattens any HTML tags a model sneaks into narrative text,
// keeping only the text content with entities decoded. Plain text passes
// through untouched.
func stripMarkup(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}

	var sb strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.TrimSpace(sb.String())
		case html.TextToken:
			sb.Write(z.Text())
		}
	}
}
