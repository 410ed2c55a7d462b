package kernel

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	observationsDir = ".openkit/ops/observations"
	tensionsDir     = ".openkit/ops/tensions"
	queueFile       = ".openkit/ops/queue.yaml"
)

// Review recommendations.
const (
	RecommendObservations = "Run memory review for accumulated observations"
	RecommendTensions     = "Resolve repeated tensions before next implementation phase"
	RecommendSessions     = "Summarize recent sessions into sprint artifacts"
	RecommendNone         = "Memory operations are within thresholds"
)

// Health trends between the two most recent doctor runs.
const (
	TrendImproving = "improving"
	TrendDeclining = "declining"
	TrendSteady    = "steady"
)

// HealthSummary is the latest recorded doctor run as seen by review.
type HealthSummary struct {
	Score     int       `json:"score"`
	Status    string    `json:"status"`
	CheckedAt time.Time `json:"checked_at"`
	// Trend is empty when only one run has been recorded.
	Trend string `json:"trend,omitempty"`
}

// ReviewReport summarizes memory activity under .openkit/ops.
type ReviewReport struct {
	Sessions        int            `json:"sessions"`
	Observations    int            `json:"observations"`
	Tensions        int            `json:"tensions"`
	Queued          int            `json:"queued"`
	Recommendations []string       `json:"recommendations"`
	Health          *HealthSummary `json:"health,omitempty"`
}

// Text renders the report for terminals.
func (r *ReviewReport) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Memory Review: sessions=%d, observations=%d, tensions=%d\n",
		r.Sessions, r.Observations, r.Tensions)
	for _, item := range r.Recommendations {
		fmt.Fprintf(&b, "- %s\n", item)
	}
	if r.Health != nil {
		fmt.Fprintf(&b, "Last health: %s (score=%d)", r.Health.Status, r.Health.Score)
		if r.Health.Trend != "" {
			fmt.Fprintf(&b, ", %s", r.Health.Trend)
		}
		b.WriteString("\n")
	}
	return b.String()
}

type queue struct {
	Items []yaml.Node `yaml:"items"`
}

// Review counts captured sessions, observations and tensions and recommends
// follow-ups once the configured thresholds are reached.
func (s *Service) Review(ctx context.Context) (*ReviewReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	settings, err := s.Settings()
	if err != nil {
		return nil, fmt.Errorf("kernel: load settings: %w", err)
	}

	r := &ReviewReport{
		Sessions:     s.project.Count(sessionsDir),
		Observations: s.project.Count(observationsDir),
		Tensions:     s.project.Count(tensionsDir),
	}
	if r.Queued, err = s.queued(); err != nil {
		return nil, err
	}

	th := settings.Review
	if r.Observations >= th.ObservationsThreshold {
		r.Recommendations = append(r.Recommendations, RecommendObservations)
	}
	if r.Tensions >= th.TensionsThreshold {
		r.Recommendations = append(r.Recommendations, RecommendTensions)
	}
	if r.Sessions >= th.SessionsThreshold {
		r.Recommendations = append(r.Recommendations, RecommendSessions)
	}
	if len(r.Recommendations) == 0 {
		r.Recommendations = []string{RecommendNone}
	}

	if r.Health, err = s.healthSummary(); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Service) queued() (int, error) {
	if !s.project.Exists(queueFile) {
		return 0, nil
	}
	data, err := s.project.Read(queueFile)
	if err != nil {
		return 0, err
	}
	var q queue
	if err := yaml.Unmarshal(data, &q); err != nil {
		return 0, fmt.Errorf("kernel: parse %s: %w", queueFile, err)
	}
	return len(q.Items), nil
}

func (s *Service) healthSummary() (*HealthSummary, error) {
	if s.history == nil {
		return nil, nil
	}
	runs, err := s.history.List(2)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	h := &HealthSummary{
		Score:     runs[0].Score,
		Status:    runs[0].Status,
		CheckedAt: runs[0].CreatedAt,
	}
	if len(runs) > 1 {
		h.Trend = trend(runs[1].Score, runs[0].Score)
	}
	return h, nil
}

func trend(prev, cur int) string {
	switch {
	case cur > prev:
		return TrendImproving
	case cur < prev:
		return TrendDeclining
	default:
		return TrendSteady
	}
}
