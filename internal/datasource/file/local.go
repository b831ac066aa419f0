// Package file implements a local filesystem data source.
package file

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Local opens one file from the local disk.
type Local struct{ path string }

// NewLocal returns a Local bound to path. Safe for concurrent use.
func NewLocal(path string) *Local { return &Local{path: path} }

// Path returns the bound path.
func (l *Local) Path() string { return l.path }

// Name returns the file's base name without its extension, e.g. "sales" for
// "/data/sales.csv".
func (l *Local) Name() string {
	base := filepath.Base(l.path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Open opens the file for reading. A context that is already done short
// circuits before the filesystem is touched. Filesystem errors are wrapped
// with the path and still match errors.Is(err, os.ErrNotExist).
//
// On Linux the kernel is told the file will be read sequentially.
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	adviseSequential(f)
	return f, nil
}
