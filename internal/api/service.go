package api

import (
	"context"

	"github.com/starford/openkit/internal/history"
	"github.com/starford/openkit/internal/kernel"
)

// Service is the kernel surface the API needs. *kernel.Service implements it.
type Service interface {
	Check(ctx context.Context) (*kernel.DoctorRun, error)
	Doctor(ctx context.Context, write bool) (*kernel.DoctorRun, error)
	History(ctx context.Context, limit int) ([]history.Run, error)
	Run(ctx context.Context, id int64) (*history.Run, error)
	ListDocs(ctx context.Context) ([]kernel.DocInfo, error)
	ReadDoc(ctx context.Context, path string) ([]byte, error)
}

var _ Service = (*kernel.Service)(nil)
