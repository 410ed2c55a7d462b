// Package testutil provides shared test helpers for setting up docs roots and history databases.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/openkit/internal/history"
	"github.com/starford/openkit/internal/storage"
)

// HealthyDocs is a minimal document set that scores 100: the six hub
// documents, each with a Related section, and an inline link in HUB-DOCS.md.
func HealthyDocs() map[string]string {
	return map[string]string{
		"HUB-DOCS.md":                      "# Docs\n\nStart with [[CONTEXT.md]].\n\n## Related\n\n- [[SECURITY.md]]\n",
		"CONTEXT.md":                       "# Context\n\n## Related\n\n- [[HUB-DOCS.md]]\n",
		"SECURITY.md":                      "# Security\n\n## Related\n\n- [[HUB-DOCS.md]]\n",
		"QUALITY_GATES.md":                 "# Quality Gates\n\n## Related\n\n- [[HUB-DOCS.md]]\n",
		"requirements/HUB-REQUIREMENTS.md": "# Requirements\n\n## Related\n\n- [[HUB-DOCS.md]]\n",
		"sprint/HUB-SPRINTS.md":            "# Sprints\n\n## Related\n\n- [[HUB-DOCS.md]]\n",
	}
}

// WriteDocs writes files (relative path → content) under root.
func WriteDocs(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

// TestDocs creates a temporary docs root holding files and returns it with
// a storage.Provider over it.
func TestDocs(t *testing.T, files map[string]string) (string, storage.Provider) {
	t.Helper()
	root := t.TempDir()
	WriteDocs(t, root, files)
	store, err := storage.NewFS(root)
	if err != nil {
		t.Fatal(err)
	}
	return root, store
}

// Age sets the modification time of root/rel to age before now.
func Age(t *testing.T, root, rel string, age time.Duration) {
	t.Helper()
	when := time.Now().Add(-age)
	if err := os.Chtimes(filepath.Join(root, filepath.FromSlash(rel)), when, when); err != nil {
		t.Fatal(err)
	}
}

// TestHistory creates a temporary SQLite history database that is automatically cleaned up.
func TestHistory(t *testing.T) *history.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "openkit-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := history.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
