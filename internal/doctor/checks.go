package doctor

import (
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/starford/openkit/internal/models"
	"github.com/starford/openkit/internal/parser"
)

// RelatedHeading marks the trailing cross-reference section of a document.
const RelatedHeading = "## Related"

// RequiredHubs lists the hub documents that must exist at the docs root and
// carry a Related section.
var RequiredHubs = []string{
	"HUB-DOCS.md",
	"CONTEXT.md",
	"SECURITY.md",
	"QUALITY_GATES.md",
	"requirements/HUB-REQUIREMENTS.md",
	"sprint/HUB-SPRINTS.md",
}

// StaleAfter is the age past which a document counts as stale.
const StaleAfter = 45 * 24 * time.Hour

// checkInlineLinks passes when at least one document in the whole set links
// to another document from its narrative, i.e. before its Related heading
// or anywhere when it has none.
func checkInlineLinks(docs []models.Document) bool {
	for _, d := range docs {
		if !parser.HasWikilink(d.Content) {
			continue
		}
		pos := strings.Index(d.Content, RelatedHeading)
		if pos < 0 || parser.HasWikilink(d.Content[:pos]) {
			return true
		}
	}
	return false
}

// checkRelatedSections passes when every hub contains RelatedHeading.
// Hubs are visited in table order and the first one lacking the heading
// fails the check. A hub missing from the set before that point is an I/O
// error, not a failed check.
func checkRelatedSections(docs []models.Document, hubs []string) (bool, error) {
	byPath := make(map[string]*models.Document, len(docs))
	for i := range docs {
		byPath[docs[i].Path] = &docs[i]
	}
	for _, rel := range hubs {
		d, found := byPath[rel]
		if !found {
			return false, fmt.Errorf("doctor: read %s: %w", rel, fs.ErrNotExist)
		}
		if !strings.Contains(d.Content, RelatedHeading) {
			return false, nil
		}
	}
	return true, nil
}

// brokenWikilinks returns every wikilink whose normalized target is not a
// document of the set, in document order then occurrence order. Fragments
// are never validated.
func brokenWikilinks(docs []models.Document) []models.BrokenLink {
	existing := make(map[string]struct{}, len(docs))
	for _, d := range docs {
		existing[parser.Normalize(d.Path)] = struct{}{}
	}

	var broken []models.BrokenLink
	for _, d := range docs {
		for _, link := range parser.Wikilinks(d.Path, d.Content) {
			if _, ok := existing[link.Target]; ok {
				continue
			}
			broken = append(broken, models.BrokenLink{Source: link.Source, Target: link.Raw})
		}
	}
	return broken
}

// staleDocs counts documents older than threshold relative to now.
// Documents with a modification time in the future are never stale.
func staleDocs(docs []models.Document, now time.Time, threshold time.Duration) int {
	stale := 0
	for _, d := range docs {
		if now.Sub(d.UpdatedAt) > threshold {
			stale++
		}
	}
	return stale
}
