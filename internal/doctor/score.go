package doctor

// Check names as they appear in the report.
const (
	CheckInlineLinks     = "inline_links"
	CheckRelatedSections = "related_sections"
	CheckBrokenWikilinks = "broken_wikilinks"
	CheckStaleDocs       = "stale_docs"
)

// Report statuses.
const (
	StatusHealthy  = "healthy"
	StatusWarning  = "warning"
	StatusCritical = "critical"
)

// Outcome holds the raw results of the four checks.
type Outcome struct {
	InlineLinks     bool
	RelatedSections bool
	BrokenLinks     int
	StaleDocs       int
}

type penalty struct {
	check  string
	points int
	failed func(Outcome) bool
}

var penalties = []penalty{
	{CheckInlineLinks, 25, func(o Outcome) bool { return !o.InlineLinks }},
	{CheckRelatedSections, 20, func(o Outcome) bool { return !o.RelatedSections }},
	{CheckBrokenWikilinks, 30, func(o Outcome) bool { return o.BrokenLinks > 0 }},
	{CheckStaleDocs, 10, func(o Outcome) bool { return o.StaleDocs > 0 }},
}

// Score folds an outcome into a value in [0,100].
func Score(o Outcome) int {
	return scoreWith(o, penalties)
}

func scoreWith(o Outcome, table []penalty) int {
	score := 100
	for _, p := range table {
		if p.failed(o) {
			score -= p.points
		}
	}
	return min(max(score, 0), 100)
}

// StatusFor maps a score to its status label.
func StatusFor(score int) string {
	switch {
	case score >= 85:
		return StatusHealthy
	case score >= 70:
		return StatusWarning
	default:
		return StatusCritical
	}
}
