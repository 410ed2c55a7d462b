// Package doctor audits a docs root of interlinked Markdown files: inline
// cross-references, Related sections on hub documents, broken wikilinks and
// staleness. The four outcomes fold into a deterministic score and status.
//
// The doctor never decides process exit behavior. Broken links come back as
// data on the Result; only I/O failures are returned as errors, and they
// abort the run without a partial report.
package doctor

import (
	"fmt"
	"time"

	"github.com/starford/openkit/internal/storage"
)

// Option configures a Doctor.
type Option func(*Doctor)

// Doctor runs the health checks over a document set.
type Doctor struct {
	now        func() time.Time
	staleAfter time.Duration
	hubs       []string
}

// WithClock overrides the wall clock used by the staleness check.
func WithClock(now func() time.Time) Option {
	return func(d *Doctor) {
		d.now = now
	}
}

// WithStaleAfter overrides the staleness threshold.
func WithStaleAfter(age time.Duration) Option {
	return func(d *Doctor) {
		d.staleAfter = age
	}
}

// WithRequiredHubs overrides the hub documents that need a Related section.
func WithRequiredHubs(hubs []string) Option {
	return func(d *Doctor) {
		d.hubs = hubs
	}
}

// New creates a Doctor with the default clock, threshold and hub table.
func New(opts ...Option) *Doctor {
	d := &Doctor{
		now:        time.Now,
		staleAfter: StaleAfter,
		hubs:       RequiredHubs,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run loads every Markdown document from store once and checks it.
func (d *Doctor) Run(store storage.Provider) (*Result, error) {
	now := d.now()

	docs, err := store.List("")
	if err != nil {
		return nil, fmt.Errorf("doctor: load documents: %w", err)
	}

	related, err := checkRelatedSections(docs, d.hubs)
	if err != nil {
		return nil, err
	}
	broken := brokenWikilinks(docs)

	outcome := Outcome{
		InlineLinks:     checkInlineLinks(docs),
		RelatedSections: related,
		BrokenLinks:     len(broken),
		StaleDocs:       staleDocs(docs, now, d.staleAfter),
	}
	return &Result{Report: NewReport(outcome), Broken: broken}, nil
}

// Run checks the docs root at dir with a default Doctor.
func Run(dir string, opts ...Option) (*Result, error) {
	store, err := storage.NewFS(dir)
	if err != nil {
		return nil, fmt.Errorf("doctor: open docs root: %w", err)
	}
	return New(opts...).Run(store)
}
