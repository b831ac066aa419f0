// Package datasource defines where CSV input comes from.
package datasource

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Source opens one CSV input for reading.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// ErrTooLarge is returned by ReadAll when the input exceeds the limit.
var ErrTooLarge = errors.New("input exceeds size limit")

// ReadAll opens src and reads it to completion. The converter works on whole
// inputs, so there is no streaming path. limit <= 0 means no limit.
func ReadAll(ctx context.Context, src Source, limit int64) ([]byte, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var r io.Reader = rc
	if limit > 0 {
		r = io.LimitReader(rc, limit+1)
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	if limit > 0 && int64(len(b)) > limit {
		return nil, fmt.Errorf("%w (%d bytes)", ErrTooLarge, limit)
	}
	return b, nil
}
