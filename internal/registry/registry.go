// Package registry stores task records keyed by task id. The memory
// backend keeps everything in-process; the redis backend is a swap-in
// for deployments that want records to survive a restart.
package registry

import (
	"context"
	"errors"

	"github.com/BaSui01/browseruse/types"
)

// ErrNotFound is returned by Lookup when no record exists for the id.
var ErrNotFound = errors.New("task not found")

// Store is the task registry. Record inserts or overwrites the entry for
// the record's task id; entries are never deleted by the service.
type Store interface {
	Record(ctx context.Context, rec types.TaskRecord) error
	Lookup(ctx context.Context, id string) (types.TaskRecord, error)
	List(ctx context.Context) ([]types.TaskRecord, error)
}
