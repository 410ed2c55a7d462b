package history

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/starford/openkit/internal/apperr"
	"github.com/starford/openkit/internal/doctor"
	"github.com/starford/openkit/internal/models"
)

// Run is one recorded doctor run.
type Run struct {
	ID          int64               `json:"id"`
	DocsRoot    string              `json:"docs_root"`
	Score       int                 `json:"score"`
	Status      string              `json:"status"`
	Checks      map[string]string   `json:"checks"`
	Fingerprint string              `json:"fingerprint"`
	BrokenCount int                 `json:"broken_count"`
	Broken      []models.BrokenLink `json:"broken,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
}

// Fingerprint returns the hex-encoded SHA-256 digest of the serialized report.
// Equal reports have equal fingerprints.
func Fingerprint(r *doctor.Report) (string, error) {
	data, err := r.JSON()
	if err != nil {
		return "", err
	}
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:]), nil
}

// Record stores a doctor result and its broken links within a transaction.
func (db *DB) Record(docsRoot string, res *doctor.Result, at time.Time) (*Run, error) {
	fp, err := Fingerprint(res.Report)
	if err != nil {
		return nil, err
	}
	checksJSON, err := json.Marshal(res.Report.Checks)
	if err != nil {
		return nil, fmt.Errorf("history: encode checks: %w", err)
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return nil, fmt.Errorf("history: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	out, err := tx.Exec(`
		INSERT INTO runs (docs_root, score, status, checks, fingerprint, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, docsRoot, res.Report.Score, res.Report.Status, string(checksJSON), fp, at.UTC())
	if err != nil {
		return nil, fmt.Errorf("history: insert run: %w", err)
	}
	id, err := out.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("history: run id: %w", err)
	}

	if len(res.Broken) > 0 {
		stmt, err := tx.Prepare(`INSERT INTO broken_links (run_id, position, source, target) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return nil, fmt.Errorf("history: prepare broken link insert: %w", err)
		}
		defer stmt.Close()
		for i, b := range res.Broken {
			if _, err := stmt.Exec(id, i, b.Source, b.Target); err != nil {
				return nil, fmt.Errorf("history: insert broken link: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("history: commit: %w", err)
	}

	return &Run{
		ID:          id,
		DocsRoot:    docsRoot,
		Score:       res.Report.Score,
		Status:      res.Report.Status,
		Checks:      res.Report.Checks,
		Fingerprint: fp,
		BrokenCount: len(res.Broken),
		Broken:      res.Broken,
		CreatedAt:   at.UTC(),
	}, nil
}

const runColumns = `
	SELECT r.id, r.docs_root, r.score, r.status, r.checks, r.fingerprint, r.created_at,
	       (SELECT count(*) FROM broken_links b WHERE b.run_id = r.id)
	FROM runs r`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		r      Run
		checks string
	)
	if err := row.Scan(&r.ID, &r.DocsRoot, &r.Score, &r.Status, &checks, &r.Fingerprint, &r.CreatedAt, &r.BrokenCount); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(checks), &r.Checks); err != nil {
		return nil, fmt.Errorf("history: decode checks: %w", err)
	}
	return &r, nil
}

// Get returns a run with its broken links, or apperr.ErrNotFound.
func (db *DB) Get(id int64) (*Run, error) {
	r, err := scanRun(db.conn.QueryRow(runColumns+` WHERE r.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("history: get run: %w", err)
	}
	if r.Broken, err = db.brokenLinks(id); err != nil {
		return nil, err
	}
	return r, nil
}

// Latest returns the most recent run, or apperr.ErrNotFound when none exist.
func (db *DB) Latest() (*Run, error) {
	var id int64
	err := db.conn.QueryRow(`SELECT id FROM runs ORDER BY id DESC LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("history: latest run: %w", err)
	}
	return db.Get(id)
}

// List returns up to limit runs, newest first, without their broken links.
func (db *DB) List(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(runColumns+` ORDER BY r.id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func (db *DB) brokenLinks(runID int64) ([]models.BrokenLink, error) {
	rows, err := db.conn.Query(`SELECT source, target FROM broken_links WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("history: broken links: %w", err)
	}
	defer rows.Close()

	var out []models.BrokenLink
	for rows.Next() {
		var b models.BrokenLink
		if err := rows.Scan(&b.Source, &b.Target); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
