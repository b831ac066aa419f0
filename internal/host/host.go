// Package host adapts the converter to an embedding environment.
//
// Two entry points are exposed: Text takes a host string and Binary takes a
// raw byte buffer. Both call the same converter; they differ only in the hint
// appended to a failure message, which points the caller at the other entry
// point. Start announces the module and Guard is the panic hook every entry
// point runs under.
//
// The browser build registers these as global JavaScript functions (see
// js_wasm.go); the HTTP host serves them as API routes.
package host

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"csvtojson/internal/converter"
)

// Entry point names as seen by the host.
const (
	TextEntry   = "csvtojson"
	BinaryEntry = "csvtojson_binary"
)

// LoadedMessage is logged once when the module starts.
const LoadedMessage = "CSV to JSON wasm module loaded"

// Converter is the conversion core as seen by the adapters.
type Converter interface {
	Run(data []byte) (converter.Result, error)
}

// Observer is notified after every entry-point call, successful or not.
type Observer func(entry string, res converter.Result, err error, d time.Duration)

// Adapter binds a Converter to the two host entry points.
type Adapter struct {
	conv    Converter
	log     *slog.Logger
	observe Observer
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithLogger sets the logger used by Start and Guard. Defaults to
// slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(a *Adapter) {
		if l != nil {
			a.log = l
		}
	}
}

// WithObserver installs a per-call hook, typically for metrics.
func WithObserver(fn Observer) Option {
	return func(a *Adapter) { a.observe = fn }
}

// New returns an Adapter around conv.
func New(conv Converter, opts ...Option) *Adapter {
	a := &Adapter{conv: conv, log: slog.Default()}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Start is the module load hook.
func (a *Adapter) Start() {
	a.log.Info(LoadedMessage)
}

// Text converts a host string. The string is re-encoded to bytes as-is, so
// a Go string holding invalid UTF-8 still fails with an encoding error.
func (a *Adapter) Text(s string) (string, error) {
	res, err := a.Call(TextEntry, []byte(s))
	if err != nil {
		return "", err
	}
	return string(res.JSON), nil
}

// Binary converts a raw byte buffer.
func (a *Adapter) Binary(b []byte) (string, error) {
	res, err := a.Call(BinaryEntry, b)
	if err != nil {
		return "", err
	}
	return string(res.JSON), nil
}

// Call runs the converter for entry under Guard. Failures come back as
// *EntryError carrying the routing hint for entry.
func (a *Adapter) Call(entry string, data []byte) (res converter.Result, err error) {
	start := time.Now()
	defer func() {
		if a.observe != nil {
			a.observe(entry, res, err, time.Since(start))
		}
	}()

	err = Guard(a.log, entry, func() error {
		var cerr error
		res, cerr = a.conv.Run(data)
		return cerr
	})
	if err != nil {
		return converter.Result{}, err
	}
	return res, nil
}

// EntryError is a failure as reported to the host: the underlying error plus
// a hint naming the other entry point.
type EntryError struct {
	Entry string
	Err   error
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("Error: %v, %s", e.Err, Hint(e.Entry))
}

func (e *EntryError) Unwrap() error { return e.Err }

// Hint returns the routing hint appended to failures from entry.
func Hint(entry string) string {
	if entry == BinaryEntry {
		return fmt.Sprintf("If you want to use text, use `%s`.", TextEntry)
	}
	return fmt.Sprintf("If you want to use binaries, use `%s`.", BinaryEntry)
}

// PanicError is what Guard returns when the guarded call panicked.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("internal panic: %v", e.Value)
}

// Guard runs fn, converting both a returned error and a panic into an
// *EntryError for entry. A panic is logged with its stack so it is visible in
// the host console; it never escapes to the host.
func Guard(log *slog.Logger, entry string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			pe := &PanicError{Value: r, Stack: debug.Stack()}
			if log != nil {
				log.Error("panic in entry point", "entry", entry, "panic", fmt.Sprint(r), "stack", string(pe.Stack))
			}
			err = &EntryError{Entry: entry, Err: pe}
		}
	}()

	if ferr := fn(); ferr != nil {
		return &EntryError{Entry: entry, Err: ferr}
	}
	return nil
}
