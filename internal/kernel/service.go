// Package kernel runs the Memory Kernel operations for one project root:
// resolving the docs root, running and persisting the doctor, bootstrapping
// the .openkit layout, capturing sessions and reviewing activity.
package kernel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/starford/openkit/internal/apperr"
	"github.com/starford/openkit/internal/doctor"
	"github.com/starford/openkit/internal/history"
	"github.com/starford/openkit/internal/models"
	"github.com/starford/openkit/internal/parser"
	"github.com/starford/openkit/internal/storage"
)

// Default locations relative to the project root.
const (
	DefaultHealthFile  = ".openkit/ops/health/memory-health.json"
	DefaultHistoryPath = ".openkit/ops/health/history.db"
)

// DefaultDocsDirs are the docs root candidates, tried in order.
var DefaultDocsDirs = []string{"memory", "openkit-memory", "docs"}

// Option configures a Service.
type Option func(*Service)

// WithDocsDirs overrides the docs root candidates.
func WithDocsDirs(dirs []string) Option {
	return func(s *Service) {
		s.docsDirs = dirs
	}
}

// WithHealthFile overrides where Doctor writes the health report.
func WithHealthFile(path string) Option {
	return func(s *Service) {
		s.healthFile = path
	}
}

// WithHistory records every doctor run in store.
func WithHistory(store history.Store) Option {
	return func(s *Service) {
		s.history = store
	}
}

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// Service coordinates the project store, the doctor and the run history.
type Service struct {
	project    storage.Provider
	docsDirs   []string
	healthFile string
	history    history.Store
	now        func() time.Time
	logger     *slog.Logger
}

// New creates a Service for the project rooted at root.
func New(root string, opts ...Option) (*Service, error) {
	project, err := storage.NewFS(root)
	if err != nil {
		return nil, fmt.Errorf("kernel: open project: %w", err)
	}
	s := &Service{
		project:    project,
		docsDirs:   DefaultDocsDirs,
		healthFile: DefaultHealthFile,
		now:        time.Now,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// OpenHistory opens the history database at path, relative to root unless
// absolute, creating its parent directory.
func OpenHistory(root, path string) (*history.DB, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, filepath.FromSlash(path))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("kernel: create history dir: %w", err)
	}
	return history.Open(path)
}

// Root returns the absolute project root.
func (s *Service) Root() string { return s.project.Root() }

// DocsDir returns the docs root relative to the project root: the first
// candidate that exists, otherwise the last candidate.
func (s *Service) DocsDir() string {
	for _, dir := range s.docsDirs {
		if s.project.Exists(dir) {
			return dir
		}
	}
	return s.docsDirs[len(s.docsDirs)-1]
}

// DocsRoot returns the absolute docs root.
func (s *Service) DocsRoot() string {
	return filepath.Join(s.Root(), filepath.FromSlash(s.DocsDir()))
}

// Settings loads the project's Memory Kernel settings.
func (s *Service) Settings() (*Settings, error) {
	return LoadSettings(s.Root())
}

// DoctorRun is the outcome of Service.Doctor.
type DoctorRun struct {
	DocsRoot string
	Result   *doctor.Result
	// Run is nil when the service has no history store.
	Run *history.Run
}

// Check runs the doctor over the docs root without recording or writing
// anything.
func (s *Service) Check(ctx context.Context) (*DoctorRun, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	settings, err := s.Settings()
	if err != nil {
		return nil, fmt.Errorf("kernel: load settings: %w", err)
	}

	docsRoot := s.DocsRoot()
	opts := append(settings.doctorOptions(), doctor.WithClock(s.now))
	res, err := doctor.Run(docsRoot, opts...)
	if err != nil {
		return nil, err
	}
	return &DoctorRun{DocsRoot: docsRoot, Result: res}, nil
}

// Doctor checks the docs root, records the run and, when write is set,
// persists the JSON report to the health file.
func (s *Service) Doctor(ctx context.Context, write bool) (*DoctorRun, error) {
	out, err := s.Check(ctx)
	if err != nil {
		return nil, err
	}
	docsRoot, res := out.DocsRoot, out.Result

	if write {
		data, err := res.Report.JSON()
		if err != nil {
			return nil, err
		}
		if err := s.project.Write(s.healthFile, data); err != nil {
			return nil, fmt.Errorf("kernel: write health file: %w", err)
		}
	}

	if s.history != nil {
		run, err := s.history.Record(docsRoot, res, s.now())
		if err != nil {
			return nil, err
		}
		out.Run = run
	}

	s.logger.Debug("doctor run",
		slog.String("docs_root", docsRoot),
		slog.Int("score", res.Report.Score),
		slog.String("status", res.Report.Status),
		slog.Int("broken", len(res.Broken)),
	)
	return out, nil
}

// History returns up to limit recorded runs, newest first.
func (s *Service) History(_ context.Context, limit int) ([]history.Run, error) {
	if s.history == nil {
		return nil, nil
	}
	return s.history.List(limit)
}

// Run returns one recorded run with its broken links.
func (s *Service) Run(_ context.Context, id int64) (*history.Run, error) {
	if s.history == nil {
		return nil, apperr.ErrNotFound
	}
	return s.history.Get(id)
}

// DocInfo describes one Markdown document under the docs root.
type DocInfo struct {
	Path      string    `json:"path"`
	Size      int       `json:"size"`
	Wikilinks int       `json:"wikilinks"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListDocs returns every Markdown document under the docs root.
func (s *Service) ListDocs(_ context.Context) ([]DocInfo, error) {
	store, err := s.docsStore()
	if err != nil {
		return nil, err
	}
	docs, err := store.List("")
	if err != nil {
		return nil, err
	}
	out := make([]DocInfo, len(docs))
	for i, d := range docs {
		out[i] = docInfo(d)
	}
	return out, nil
}

// ReadDoc returns the content of a document under the docs root.
func (s *Service) ReadDoc(_ context.Context, path string) ([]byte, error) {
	store, err := s.docsStore()
	if err != nil {
		return nil, err
	}
	data, err := store.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

func (s *Service) docsStore() (storage.Provider, error) {
	store, err := storage.NewFS(s.DocsRoot())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("kernel: docs root %s: %w", s.DocsDir(), apperr.ErrNotFound)
		}
		return nil, err
	}
	return store, nil
}

func docInfo(d models.Document) DocInfo {
	return DocInfo{
		Path:      d.Path,
		Size:      len(d.Content),
		Wikilinks: len(parser.Wikilinks(d.Path, d.Content)),
		UpdatedAt: d.UpdatedAt,
	}
}
