package kernel

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"regexp"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const sessionsDir = ".openkit/ops/sessions"

const (
	defaultSummary = "OpenKit memory session capture"
	defaultAction  = "capture"
)

var sessionIDRe = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// CaptureInput is the caller-supplied part of a session snapshot.
// Empty fields take their defaults.
type CaptureInput struct {
	SessionID string
	Summary   string
	Actions   []string
}

// Validate validates the capture input.
func (in CaptureInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.SessionID, validation.Length(1, 128), validation.Match(sessionIDRe)),
		validation.Field(&in.Summary, validation.Length(0, 2000)),
		validation.Field(&in.Actions, validation.Each(validation.Required)),
	)
}

// SessionSnapshot is the JSON document written for a captured session.
type SessionSnapshot struct {
	Version   int      `json:"version"`
	SessionID string   `json:"session_id"`
	StartedAt string   `json:"started_at"`
	EndedAt   string   `json:"ended_at"`
	Summary   string   `json:"summary"`
	Actions   []string `json:"actions"`
}

// Capture writes a session snapshot to .openkit/ops/sessions/<unix>.json and
// returns it with its path relative to the project root.
func (s *Service) Capture(ctx context.Context, in CaptureInput) (*SessionSnapshot, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	if err := in.Validate(); err != nil {
		return nil, "", fmt.Errorf("kernel: invalid capture: %w", err)
	}

	now := strconv.FormatInt(s.now().Unix(), 10)
	snap := &SessionSnapshot{
		Version:   1,
		SessionID: in.SessionID,
		StartedAt: now,
		EndedAt:   now,
		Summary:   in.Summary,
		Actions:   in.Actions,
	}
	if snap.SessionID == "" {
		snap.SessionID = "mk-" + now
	}
	if snap.Summary == "" {
		snap.Summary = defaultSummary
	}
	if len(snap.Actions) == 0 {
		snap.Actions = []string{defaultAction}
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, "", fmt.Errorf("kernel: encode snapshot: %w", err)
	}
	rel := path.Join(sessionsDir, now+".json")
	if err := s.project.Write(rel, data); err != nil {
		return nil, "", err
	}
	return snap, rel, nil
}
