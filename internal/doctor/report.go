package doctor

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/starford/openkit/internal/models"
)

// ReportVersion is the schema version written into every report.
const ReportVersion = 1

// Report is the machine-checkable health summary of a docs root.
// Checks serializes with sorted keys, so equal reports encode to equal bytes.
type Report struct {
	Version int               `json:"version"`
	Score   int               `json:"score"`
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks"`
}

// NewReport builds the report for an outcome.
func NewReport(o Outcome) *Report {
	score := Score(o)
	return &Report{
		Version: ReportVersion,
		Score:   score,
		Status:  StatusFor(score),
		Checks: map[string]string{
			CheckInlineLinks:     passFail(o.InlineLinks),
			CheckRelatedSections: passFail(o.RelatedSections),
			CheckBrokenWikilinks: brokenResult(o.BrokenLinks),
			CheckStaleDocs:       staleResult(o.StaleDocs),
		},
	}
}

func passFail(ok bool) string {
	if ok {
		return "pass"
	}
	return "fail"
}

func brokenResult(n int) string {
	if n == 0 {
		return "pass"
	}
	return fmt.Sprintf("fail(%d)", n)
}

func staleResult(n int) string {
	if n > 0 {
		return "warn"
	}
	return "pass"
}

// JSON returns the report as two-space indented JSON without a trailing newline.
func (r *Report) JSON() ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("doctor: encode report: %w", err)
	}
	return data, nil
}

// Text renders the human-readable summary printed by the CLI.
func (r *Report) Text() string {
	names := make([]string, 0, len(r.Checks))
	for name := range r.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	fmt.Fprintf(&b, "Memory Health: %s (score=%d)\n", r.Status, r.Score)
	for _, name := range names {
		fmt.Fprintf(&b, "- %s: %s\n", name, r.Checks[name])
	}
	return b.String()
}

// Result is a report plus the broken links found while building it.
// A non-empty Broken list means the caller should treat the run as failed.
type Result struct {
	Report *Report
	Broken []models.BrokenLink
}

// Failed reports whether any wikilink is broken.
func (r *Result) Failed() bool {
	return len(r.Broken) > 0
}

// BrokenLinks returns the broken links formatted as "<path> -> [[<target>]]".
func (r *Result) BrokenLinks() []string {
	out := make([]string, len(r.Broken))
	for i, b := range r.Broken {
		out[i] = b.String()
	}
	return out
}

// Preview joins up to n broken links with " | ".
func (r *Result) Preview(n int) string {
	links := r.BrokenLinks()
	if len(links) > n {
		links = links[:n]
	}
	return strings.Join(links, " | ")
}
