package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FileSink persists one snapshot file per execution_id under Dir, for
// durability across process restarts.
type FileSink struct {
	Dir string
}

// NewFileSink creates a FileSink rooted at dir, creating dir if needed.
func NewFileSink(dir string) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating checkpoint directory: %w", err)
	}
	return &FileSink{Dir: dir}, nil
}

func (f *FileSink) path(executionID string) string {
	return filepath.Join(f.Dir, executionID+".json")
}

func (f *FileSink) Save(ctx context.Context, executionID string, snapshot []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tmp := f.path(executionID) + ".tmp"
	if err := os.WriteFile(tmp, snapshot, 0o644); err != nil {
		return fmt.Errorf("writing checkpoint: %w", err)
	}
	if err := os.Rename(tmp, f.path(executionID)); err != nil {
		return fmt.Errorf("finalizing checkpoint: %w", err)
	}
	return nil
}

func (f *FileSink) Load(ctx context.Context, executionID string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.path(executionID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &ErrNotFound{ExecutionID: executionID}
		}
		return nil, fmt.Errorf("reading checkpoint: %w", err)
	}
	return data, nil
}
