// Package checkpoint defines the pluggable sink the pipeline controller
// persists run state to after every node, keyed by execution_id
// (spec.md §4.6, §6).
package checkpoint

import "context"

// Sink is the narrow interface every checkpoint backend implements.
type Sink interface {
	Save(ctx context.Context, executionID string, snapshot []byte) error
	Load(ctx context.Context, executionID string) ([]byte, error)
}

// ErrNotFound is returned by Load when no snapshot exists for an
// execution_id.
type ErrNotFound struct {
	ExecutionID string
}

func (e *ErrNotFound) Error() string {
	return "checkpoint: no snapshot for execution " + e.ExecutionID
}
