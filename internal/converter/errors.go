package converter

import (
	"errors"
	"fmt"
)

// Kind classifies a conversion failure. The set is closed: every error
// returned by Convert carries exactly one of these kinds.
type Kind int

const (
	// KindEncoding means the input bytes are not valid UTF-8.
	KindEncoding Kind = iota + 1
	// KindParse means the CSV tokenizer rejected the input.
	KindParse
	// KindSerialization means the JSON encoder failed.
	KindSerialization
)

// String returns the short, label-friendly name of k.
func (k Kind) String() string {
	switch k {
	case KindEncoding:
		return "encoding"
	case KindParse:
		return "parse"
	case KindSerialization:
		return "serialization"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is checks against a conversion error's kind.
var (
	ErrEncoding      = errors.New("utf-8 encoding error")
	ErrParse         = errors.New("csv processing error")
	ErrSerialization = errors.New("json serialization error")
)

// Error is the single error type returned by the converter. Err holds the
// underlying library diagnostic (*InvalidUTF8Error, *csv.ParseError, or an
// encoding/json error).
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindEncoding:
		return fmt.Sprintf("UTF-8 encoding error: %v", e.Err)
	case KindParse:
		return fmt.Sprintf("CSV processing error: %v", e.Err)
	case KindSerialization:
		return fmt.Sprintf("JSON serialization error: %v", e.Err)
	default:
		return fmt.Sprintf("conversion error: %v", e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for e's kind, so that
// errors.Is(err, ErrParse) works without inspecting the detail.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrEncoding:
		return e.Kind == KindEncoding
	case ErrParse:
		return e.Kind == KindParse
	case ErrSerialization:
		return e.Kind == KindSerialization
	}
	return false
}

// KindOf returns the kind of the first *Error in err's chain, or 0 when err
// is nil or did not come from the converter.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return 0
}

// InvalidUTF8Error reports the byte offset of the first byte that does not
// start a valid UTF-8 sequence. Input before Offset is valid.
type InvalidUTF8Error struct {
	Offset int
}

func (e *InvalidUTF8Error) Error() string {
	return fmt.Sprintf("invalid utf-8 sequence at byte offset %d", e.Offset)
}
