package content

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.Und)

// FriendlyName prettifies a technical identifier for report headings.
//
// "move-nodes" and "moveNodes" both become "Move Nodes". Splits on the
// characters ". _ -"; identifiers without those split on camel-case
// boundaries instead.
func FriendlyName(orig string) string {
	parts := strings.FieldsFunc(orig, func(r rune) bool {
		return r == '.' || r == '_' || r == '-'
	})
	if len(parts) == 1 {
		parts = splitCamelCase(orig)
	}
	for i, p := range parts {
		parts[i] = titleCaser.String(strings.ToLower(p))
	}
	return strings.Join(parts, " ")
}

// splitCamelCase splits at lower-to-upper transitions. Runs of upper-case
// letters stay together ("parseACLRules" -> "parse", "ACL", "Rules").
func splitCamelCase(s string) []string {
	var parts []string
	runes := []rune(s)
	start := 0
	for i := 1; i < len(runes); i++ {
		prev, cur := runes[i-1], runes[i]
		boundary := (unicode.IsLower(prev) && unicode.IsUpper(cur)) ||
			(unicode.IsUpper(prev) && unicode.IsUpper(cur) && i+1 < len(runes) && unicode.IsLower(runes[i+1]))
		if boundary {
			parts = append(parts, string(runes[start:i]))
			start = i
		}
	}
	parts = append(parts, string(runes[start:]))
	return parts
}
