package kernel

import (
	"errors"
	"path"
	"path/filepath"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/openkit/internal/doctor"
	"github.com/starford/openkit/internal/storage"
	"github.com/starford/openkit/pkg/config"
)

// SettingsFile is the Memory Kernel contract read from the project root.
const SettingsFile = ".openkit/memory/config.yaml"

// Settings is the subset of the Memory Kernel contract the kernel honours.
// A project without the file gets DefaultSettings.
type Settings struct {
	Version string         `yaml:"version"`
	Doctor  DoctorSettings `yaml:"doctor"`
	Review  ReviewSettings `yaml:"review"`
}

// DoctorSettings tunes the doctor checks.
type DoctorSettings struct {
	StaleAfterDays int      `yaml:"stale_after_days"`
	RequiredHubs   []string `yaml:"required_hubs"`
}

// ReviewSettings holds the counts at which review recommends action.
type ReviewSettings struct {
	ObservationsThreshold int `yaml:"observations_threshold"`
	TensionsThreshold     int `yaml:"tensions_threshold"`
	SessionsThreshold     int `yaml:"sessions_threshold"`
}

// Validate validates the settings.
func (s *Settings) Validate() error {
	if err := validation.ValidateStruct(&s.Doctor,
		validation.Field(&s.Doctor.StaleAfterDays, validation.Required, validation.Min(1)),
		validation.Field(&s.Doctor.RequiredHubs, validation.Each(validation.Required, validation.By(hubPath))),
	); err != nil {
		return err
	}
	return validation.ValidateStruct(&s.Review,
		validation.Field(&s.Review.ObservationsThreshold, validation.Required, validation.Min(1)),
		validation.Field(&s.Review.TensionsThreshold, validation.Required, validation.Min(1)),
		validation.Field(&s.Review.SessionsThreshold, validation.Required, validation.Min(1)),
	)
}

// hubPath accepts only paths as the loader reports them: relative, clean,
// slash-separated and ending in .md.
func hubPath(value any) error {
	p, _ := value.(string)
	if p == "" {
		return nil
	}
	if path.IsAbs(p) || path.Clean(p) != p || strings.HasPrefix(p, "../") ||
		strings.Contains(p, `\`) || !strings.HasSuffix(p, storage.MarkdownExt) {
		return errors.New("must be a clean relative .md path")
	}
	return nil
}

// DefaultSettings mirrors the embedded config.yaml contract.
func DefaultSettings() *Settings {
	return &Settings{
		Version: "1",
		Doctor: DoctorSettings{
			StaleAfterDays: int(doctor.StaleAfter / (24 * time.Hour)),
			RequiredHubs:   append([]string(nil), doctor.RequiredHubs...),
		},
		Review: ReviewSettings{
			ObservationsThreshold: 10,
			TensionsThreshold:     5,
			SessionsThreshold:     5,
		},
	}
}

// LoadSettings reads SettingsFile under root, falling back to defaults for
// a missing file or omitted keys.
func LoadSettings(root string) (*Settings, error) {
	s := DefaultSettings()
	if err := config.LoadOptional(filepath.Join(root, filepath.FromSlash(SettingsFile)), s); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) doctorOptions() []doctor.Option {
	opts := []doctor.Option{
		doctor.WithStaleAfter(time.Duration(s.Doctor.StaleAfterDays) * 24 * time.Hour),
	}
	if len(s.Doctor.RequiredHubs) > 0 {
		opts = append(opts, doctor.WithRequiredHubs(s.Doctor.RequiredHubs))
	}
	return opts
}
