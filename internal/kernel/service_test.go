package kernel_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/openkit/internal/apperr"
	"github.com/starford/openkit/internal/doctor"
	"github.com/starford/openkit/internal/kernel"
	"github.com/starford/openkit/internal/testutil"
)

func newService(t *testing.T, opts ...kernel.Option) (string, *kernel.Service) {
	t.Helper()
	root := t.TempDir()
	svc, err := kernel.New(root, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return root, svc
}

func mkdir(t *testing.T, root, rel string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Join(root, rel), 0o755); err != nil {
		t.Fatal(err)
	}
}

func TestDocsDir_Resolution(t *testing.T) {
	root, svc := newService(t)

	if got := svc.DocsDir(); got != "docs" {
		t.Errorf("no candidates: got = %q, want %q", got, "docs")
	}

	mkdir(t, root, "docs")
	mkdir(t, root, "openkit-memory")
	if got := svc.DocsDir(); got != "openkit-memory" {
		t.Errorf("got = %q, want %q", got, "openkit-memory")
	}

	mkdir(t, root, "memory")
	if got := svc.DocsDir(); got != "memory" {
		t.Errorf("got = %q, want %q", got, "memory")
	}
	if got, want := svc.DocsRoot(), filepath.Join(svc.Root(), "memory"); got != want {
		t.Errorf("DocsRoot = %q, want %q", got, want)
	}
}

func TestDocsDir_CustomCandidates(t *testing.T) {
	root, svc := newService(t, kernel.WithDocsDirs([]string{"kb", "wiki"}))
	if got := svc.DocsDir(); got != "wiki" {
		t.Errorf("got = %q, want %q", got, "wiki")
	}
	mkdir(t, root, "kb")
	if got := svc.DocsDir(); got != "kb" {
		t.Errorf("got = %q, want %q", got, "kb")
	}
}

func TestDoctor_WritesHealthFileAndRecordsRun(t *testing.T) {
	db := testutil.TestHistory(t)
	root, svc := newService(t, kernel.WithHistory(db))
	testutil.WriteDocs(t, filepath.Join(root, "memory"), testutil.HealthyDocs())

	run, err := svc.Doctor(context.Background(), true)
	if err != nil {
		t.Fatalf("Doctor: %v", err)
	}
	if run.Result.Report.Score != 100 || run.Result.Failed() {
		t.Errorf("report = %+v, broken = %v", run.Result.Report, run.Result.Broken)
	}
	if run.DocsRoot != filepath.Join(svc.Root(), "memory") {
		t.Errorf("DocsRoot = %q", run.DocsRoot)
	}

	data, err := os.ReadFile(filepath.Join(root, kernel.DefaultHealthFile))
	if err != nil {
		t.Fatalf("health file: %v", err)
	}
	want, _ := run.Result.Report.JSON()
	if string(data) != string(want) {
		t.Errorf("health file = %q, want %q", data, want)
	}

	if run.Run == nil || run.Run.Score != 100 {
		t.Fatalf("run = %+v, want recorded score 100", run.Run)
	}
	latest, err := db.Latest()
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if latest.ID != run.Run.ID {
		t.Errorf("latest id = %d, want %d", latest.ID, run.Run.ID)
	}
}

func TestCheck_HasNoSideEffects(t *testing.T) {
	db := testutil.TestHistory(t)
	root, svc := newService(t, kernel.WithHistory(db))
	testutil.WriteDocs(t, filepath.Join(root, "memory"), testutil.HealthyDocs())

	run, err := svc.Check(context.Background())
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if run.Result.Report.Score != 100 || run.Run != nil {
		t.Errorf("score = %d, run = %+v", run.Result.Report.Score, run.Run)
	}
	runs, err := db.List(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 0 {
		t.Errorf("len(runs) = %d, want 0", len(runs))
	}
	if _, err := os.Stat(filepath.Join(root, kernel.DefaultHealthFile)); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("health file stat err = %v, want not exist", err)
	}
}

func TestDoctor_NoWriteLeavesHealthFileAlone(t *testing.T) {
	root, svc := newService(t)
	testutil.WriteDocs(t, filepath.Join(root, "docs"), testutil.HealthyDocs())

	run, err := svc.Doctor(context.Background(), false)
	if err != nil {
		t.Fatalf("Doctor: %v", err)
	}
	if run.Run != nil {
		t.Error("run recorded without a history store")
	}
	if _, err := os.Stat(filepath.Join(root, kernel.DefaultHealthFile)); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("health file stat err = %v, want not exist", err)
	}
}

func TestDoctor_BrokenLinksAreData(t *testing.T) {
	root, svc := newService(t)
	files := testutil.HealthyDocs()
	files["EXTRA.md"] = "See [[MISSING.md]].\n"
	testutil.WriteDocs(t, filepath.Join(root, "memory"), files)

	run, err := svc.Doctor(context.Background(), false)
	if err != nil {
		t.Fatalf("Doctor: %v", err)
	}
	if got := run.Result.BrokenLinks(); len(got) != 1 || got[0] != "EXTRA.md -> [[MISSING.md]]" {
		t.Errorf("broken = %v", got)
	}
	if run.Result.Report.Score != 70 {
		t.Errorf("score = %d, want 70", run.Result.Report.Score)
	}
}

func TestDoctor_MissingDocsRoot(t *testing.T) {
	_, svc := newService(t)
	if _, err := svc.Doctor(context.Background(), false); err == nil {
		t.Fatal("expected error for missing docs root")
	}
}

func TestDoctor_SettingsOverrideStaleness(t *testing.T) {
	root, svc := newService(t)
	docs := filepath.Join(root, "memory")
	testutil.WriteDocs(t, docs, testutil.HealthyDocs())
	testutil.Age(t, docs, "CONTEXT.md", 3*24*time.Hour)
	testutil.WriteDocs(t, root, map[string]string{
		kernel.SettingsFile: "version: \"1\"\ndoctor:\n  stale_after_days: 2\n",
	})

	run, err := svc.Doctor(context.Background(), false)
	if err != nil {
		t.Fatalf("Doctor: %v", err)
	}
	if got := run.Result.Report.Checks[doctor.CheckStaleDocs]; got != "warn" {
		t.Errorf("stale_docs = %q, want %q", got, "warn")
	}
	if run.Result.Report.Score != 90 {
		t.Errorf("score = %d, want 90", run.Result.Report.Score)
	}
}

func TestDoctor_CanceledContext(t *testing.T) {
	_, svc := newService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := svc.Doctor(ctx, false); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestHistory_WithoutStore(t *testing.T) {
	_, svc := newService(t)
	runs, err := svc.History(context.Background(), 10)
	if err != nil || runs != nil {
		t.Errorf("History = %v, %v; want nil, nil", runs, err)
	}
	if _, err := svc.Run(context.Background(), 1); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Run err = %v, want ErrNotFound", err)
	}
}

func TestListAndReadDocs(t *testing.T) {
	root, svc := newService(t)
	testutil.WriteDocs(t, filepath.Join(root, "docs"), testutil.HealthyDocs())

	docs, err := svc.ListDocs(context.Background())
	if err != nil {
		t.Fatalf("ListDocs: %v", err)
	}
	if len(docs) != 6 {
		t.Fatalf("len(docs) = %d, want 6", len(docs))
	}
	for _, d := range docs {
		if d.Path == "HUB-DOCS.md" && d.Wikilinks != 2 {
			t.Errorf("HUB-DOCS.md wikilinks = %d, want 2", d.Wikilinks)
		}
	}

	data, err := svc.ReadDoc(context.Background(), "sprint/HUB-SPRINTS.md")
	if err != nil {
		t.Fatalf("ReadDoc: %v", err)
	}
	if string(data) != testutil.HealthyDocs()["sprint/HUB-SPRINTS.md"] {
		t.Errorf("content = %q", data)
	}

	if _, err := svc.ReadDoc(context.Background(), "nope.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if _, err := svc.ReadDoc(context.Background(), "../secret.md"); err == nil {
		t.Error("expected error for path escaping docs root")
	}
}

func TestListDocs_MissingDocsRoot(t *testing.T) {
	_, svc := newService(t)
	if _, err := svc.ListDocs(context.Background()); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestOpenHistory_CreatesParentDir(t *testing.T) {
	root := t.TempDir()
	db, err := kernel.OpenHistory(root, kernel.DefaultHistoryPath)
	if err != nil {
		t.Fatalf("OpenHistory: %v", err)
	}
	defer db.Close()
	if _, err := os.Stat(filepath.Join(root, kernel.DefaultHistoryPath)); err != nil {
		t.Errorf("history db not created: %v", err)
	}
}
