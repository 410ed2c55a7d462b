package history

import (
	"time"

	"github.com/starford/openkit/internal/doctor"
)

// Store defines the interface for doctor run history.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with fakes.
type Store interface {
	Record(docsRoot string, res *doctor.Result, at time.Time) (*Run, error)
	Get(id int64) (*Run, error)
	Latest() (*Run, error)
	List(limit int) ([]Run, error)
	Close() error
}

// Verify *DB satisfies Store at compile time.
var _ Store = (*DB)(nil)
