// Package parser extracts [[wikilinks]] from Markdown content and normalizes
// their targets against the docs root.
package parser

import (
	"regexp"
	"strings"

	"github.com/starford/openkit/internal/models"
)

var wikilinkRe = regexp.MustCompile(`\[\[([^\]]+)\]\]`)

// RootAliases are historical names of the docs root. A target that starts
// with one of them refers to the same document as the bare path.
var RootAliases = []string{
	"memory/",
	"openkit-memory/",
	"docs/",
}

// HasWikilink reports whether text contains at least one [[...]] match.
func HasWikilink(text string) bool {
	return wikilinkRe.MatchString(text)
}

// RawMatches returns the inner text of every [[...]] match, in order.
func RawMatches(text string) []string {
	matches := wikilinkRe.FindAllStringSubmatch(text, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[1])
	}
	return out
}

// SplitTarget returns the part of raw before the first '#', trimmed.
func SplitTarget(raw string) string {
	if i := strings.IndexByte(raw, '#'); i >= 0 {
		raw = raw[:i]
	}
	return strings.TrimSpace(raw)
}

// Normalize strips root-alias prefixes from target. Each alias is removed
// as many times as it repeats, in table order.
func Normalize(target string) string {
	for _, alias := range RootAliases {
		for strings.HasPrefix(target, alias) {
			target = target[len(alias):]
		}
	}
	return target
}

// Wikilinks returns every non-empty wikilink in text owned by source, in
// occurrence order. Duplicates are kept.
func Wikilinks(source, text string) []models.Wikilink {
	var out []models.Wikilink
	for _, inner := range RawMatches(text) {
		target := SplitTarget(inner)
		if target == "" {
			continue
		}
		out = append(out, models.Wikilink{
			Source: source,
			Raw:    target,
			Target: Normalize(target),
		})
	}
	return out
}
