package kernel

import (
	"context"
	"log/slog"
	"path"

	"github.com/starford/openkit/internal/templates"
)

// Directories created by Init, relative to the project root.
var layoutDirs = []string{
	".openkit/ops/sessions",
	".openkit/ops/observations",
	".openkit/ops/tensions",
	".openkit/ops/health",
	".openkit/ops/queue",
	".openkit/memory",
}

// InitOptions controls Init.
type InitOptions struct {
	// Force overwrites files that already exist.
	Force bool
	// Docs also seeds the default hub documents under the docs root.
	Docs bool
}

// InitResult lists the files Init wrote and the ones it left alone,
// relative to the project root.
type InitResult struct {
	Written []string `json:"written"`
	Skipped []string `json:"skipped"`
}

// Init creates the .openkit layout and writes the embedded contracts.
func (s *Service) Init(ctx context.Context, opts InitOptions) (*InitResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, dir := range layoutDirs {
		if err := s.project.MkdirAll(dir); err != nil {
			return nil, err
		}
	}

	res := &InitResult{}
	for _, c := range templates.Contracts {
		data, err := templates.ContractFile(c.Name)
		if err != nil {
			return nil, err
		}
		if err := s.writeSeed(res, c.Dest, data, opts.Force); err != nil {
			return nil, err
		}
	}

	if opts.Docs {
		docsDir := s.DocsDir()
		err := templates.WalkDocs(func(rel string, data []byte) error {
			return s.writeSeed(res, path.Join(docsDir, rel), data, opts.Force)
		})
		if err != nil {
			return nil, err
		}
	}

	s.logger.Info("memory kernel initialized",
		slog.String("root", s.Root()),
		slog.Int("written", len(res.Written)),
		slog.Int("skipped", len(res.Skipped)),
	)
	return res, nil
}

func (s *Service) writeSeed(res *InitResult, rel string, data []byte, force bool) error {
	if s.project.Exists(rel) && !force {
		res.Skipped = append(res.Skipped, rel)
		return nil
	}
	if err := s.project.Write(rel, data); err != nil {
		return err
	}
	res.Written = append(res.Written, rel)
	return nil
}
