// Package storage delivers converted JSON documents to a destination.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/zeebo/xxh3"

	"csvtojson/internal/converter"
)

// Document is one converted input.
type Document struct {
	// Name identifies the document, e.g. the input file's base name.
	Name string
	// Source is where the input came from (path, URL or "stdin").
	Source string
	// InputHash is the xxh3 hash of the raw CSV bytes.
	InputHash uint64
	// Rows is the number of data rows converted.
	Rows int
	// JSON is the converter output.
	JSON []byte
}

// NewDocument builds a Document from a conversion of input.
func NewDocument(name, source string, input []byte, res converter.Result) Document {
	return Document{
		Name:      name,
		Source:    source,
		InputHash: xxh3.Hash(input),
		Rows:      res.Rows,
		JSON:      res.JSON,
	}
}

// HashHex returns InputHash as 16 hex digits.
func (d Document) HashHex() string {
	return fmt.Sprintf("%016x", d.InputHash)
}

// Sink receives documents. Implementations are safe for concurrent Write.
type Sink interface {
	Write(ctx context.Context, d Document) error
	Close() error
}

// WriterSink writes each document's JSON followed by a newline to w.
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterSink(w io.Writer) *WriterSink { return &WriterSink{w: w} }

func (s *WriterSink) Write(ctx context.Context, d Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write(d.JSON); err != nil {
		return fmt.Errorf("write %s: %w", d.Name, err)
	}
	if _, err := io.WriteString(s.w, "\n"); err != nil {
		return fmt.Errorf("write %s: %w", d.Name, err)
	}
	return nil
}

func (s *WriterSink) Close() error { return nil }

// DirSink writes each document to <dir>/<name>.json. Files are written to a
// temporary name and renamed, so a reader never sees a partial document.
type DirSink struct {
	dir string
}

// NewDirSink creates dir if needed.
func NewDirSink(dir string) (*DirSink, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("dir sink: directory must not be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("dir sink: %w", err)
	}
	return &DirSink{dir: dir}, nil
}

// Path returns the file d is written to.
func (s *DirSink) Path(d Document) string {
	return filepath.Join(s.dir, fileName(d)+".json")
}

func (s *DirSink) Write(ctx context.Context, d Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dst := s.Path(d)
	tmp, err := os.CreateTemp(s.dir, ".csvtojson-*.tmp")
	if err != nil {
		return fmt.Errorf("dir sink: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(d.JSON); err != nil {
		tmp.Close()
		return fmt.Errorf("dir sink: write %s: %w", dst, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("dir sink: close %s: %w", dst, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("dir sink: rename to %s: %w", dst, err)
	}
	return nil
}

func (s *DirSink) Close() error { return nil }

// fileName keeps only the base of d.Name and falls back to the input hash.
func fileName(d Document) string {
	name := filepath.Base(filepath.Clean("/" + d.Name))
	if name == "/" || name == "." || name == "" {
		return d.HashHex()
	}
	return name
}
