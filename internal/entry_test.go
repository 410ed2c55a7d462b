package internal

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/openkit/internal/testutil"
)

func TestNewLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelWarn)
	logger.Info("hidden")
	logger.Warn("shown", slog.String("k", "v"))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info logged at warn level: %s", out)
	}
	if !strings.Contains(out, `"msg":"shown"`) || !strings.Contains(out, `"k":"v"`) {
		t.Errorf("out = %q", out)
	}
}

func TestOpenKernel(t *testing.T) {
	root := t.TempDir()
	testutil.WriteDocs(t, filepath.Join(root, "kb"), testutil.HealthyDocs())

	cfg := NewDefaultConfig()
	cfg.Memory.DocsDirs = []string{"kb"}
	cfg.History.Path = "state/history.db"

	svc, closeFn, err := OpenKernel(cfg, root, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	if err != nil {
		t.Fatalf("OpenKernel: %v", err)
	}
	defer closeFn()

	if got, want := svc.DocsRoot(), filepath.Join(root, "kb"); got != want {
		t.Errorf("DocsRoot = %q, want %q", got, want)
	}
	run, err := svc.Doctor(context.Background(), false)
	if err != nil {
		t.Fatal(err)
	}
	if run.Run == nil || run.Run.ID != 1 {
		t.Errorf("run not recorded: %+v", run.Run)
	}
	if _, err := os.Stat(filepath.Join(root, "state", "history.db")); err != nil {
		t.Errorf("history db: %v", err)
	}
}

func TestReadyHandler(t *testing.T) {
	root := t.TempDir()
	cfg := NewDefaultConfig()
	cfg.History.Path = filepath.Join(t.TempDir(), "history.db")

	svc, closeFn, err := OpenKernel(cfg, root, slog.Default())
	if err != nil {
		t.Fatal(err)
	}
	defer closeFn()

	ready := readyHandler(svc)

	w := httptest.NewRecorder()
	ready(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("missing docs root = %d, want 503", w.Code)
	}

	testutil.WriteDocs(t, filepath.Join(root, "docs"), testutil.HealthyDocs())
	w = httptest.NewRecorder()
	ready(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if w.Code != http.StatusOK {
		t.Errorf("docs root present = %d, want 200", w.Code)
	}
}

func TestServe_RequiresConfig(t *testing.T) {
	if err := Serve(context.Background()); err == nil {
		t.Error("expected error without config")
	}
}
