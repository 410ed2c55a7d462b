package history

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/starford/openkit/internal/apperr"
	"github.com/starford/openkit/internal/doctor"
	"github.com/starford/openkit/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "openkit-history-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func result(broken ...models.BrokenLink) *doctor.Result {
	o := doctor.Outcome{InlineLinks: true, RelatedSections: true, BrokenLinks: len(broken)}
	return &doctor.Result{Report: doctor.NewReport(o), Broken: broken}
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM runs`).Scan(&count); err != nil {
		t.Fatalf("runs table missing: %v", err)
	}
	if err := db.conn.QueryRow(`SELECT count(*) FROM broken_links`).Scan(&count); err != nil {
		t.Fatalf("broken_links table missing: %v", err)
	}
}

func TestRecordAndGet(t *testing.T) {
	db := testDB(t)
	at := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	broken := []models.BrokenLink{
		{Source: "a.md", Target: "MISSING.md"},
		{Source: "b.md", Target: "docs/GONE.md"},
	}

	run, err := db.Record("/project/memory", result(broken...), at)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if run.ID == 0 || run.Score != 70 || run.Status != doctor.StatusWarning {
		t.Errorf("run = %+v", run)
	}

	got, err := db.Get(run.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.DocsRoot != "/project/memory" {
		t.Errorf("docs_root = %q", got.DocsRoot)
	}
	if got.Checks[doctor.CheckBrokenWikilinks] != "fail(2)" {
		t.Errorf("checks = %v", got.Checks)
	}
	if got.BrokenCount != 2 || len(got.Broken) != 2 {
		t.Fatalf("broken = %d/%v, want 2", got.BrokenCount, got.Broken)
	}
	if got.Broken[1].String() != "b.md -> [[docs/GONE.md]]" {
		t.Errorf("broken[1] = %q", got.Broken[1].String())
	}
	if !got.CreatedAt.Equal(at) {
		t.Errorf("created_at = %v, want %v", got.CreatedAt, at)
	}
	if got.Fingerprint != run.Fingerprint {
		t.Errorf("fingerprint = %q, want %q", got.Fingerprint, run.Fingerprint)
	}
}

func TestGet_NotFound(t *testing.T) {
	db := testDB(t)
	if _, err := db.Get(99); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestLatest(t *testing.T) {
	db := testDB(t)
	if _, err := db.Latest(); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("empty history: err = %v, want ErrNotFound", err)
	}

	now := time.Now()
	_, _ = db.Record("root", result(models.BrokenLink{Source: "a.md", Target: "x.md"}), now)
	second, _ := db.Record("root", result(), now.Add(time.Minute))

	latest, err := db.Latest()
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if latest.ID != second.ID || latest.Score != 100 {
		t.Errorf("latest = %+v, want run %d with score 100", latest, second.ID)
	}
}

func TestList_NewestFirst(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	for i := 0; i < 5; i++ {
		if _, err := db.Record("root", result(), now.Add(time.Duration(i)*time.Second)); err != nil {
			t.Fatal(err)
		}
	}
	runs, err := db.List(3)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("len(runs) = %d, want 3", len(runs))
	}
	if runs[0].ID <= runs[1].ID || runs[1].ID <= runs[2].ID {
		t.Errorf("runs not newest first: %d, %d, %d", runs[0].ID, runs[1].ID, runs[2].ID)
	}
	if runs[0].Broken != nil {
		t.Error("List should not load broken links")
	}
}

func TestFingerprint_StableForEqualReports(t *testing.T) {
	a, err := Fingerprint(result().Report)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := Fingerprint(result().Report)
	c, _ := Fingerprint(result(models.BrokenLink{Source: "a.md", Target: "b.md"}).Report)
	if a != b {
		t.Errorf("fingerprints differ for equal reports: %s vs %s", a, b)
	}
	if a == c {
		t.Error("fingerprints equal for different reports")
	}
	if len(a) != 64 {
		t.Errorf("len(fingerprint) = %d, want 64", len(a))
	}
}
