// Package converter turns CSV text into a JSON array of objects, one object
// per data row, keyed by the header row's column names.
//
// The conversion is a straight pipeline with early exit on the first failure:
//
//	validate UTF-8 -> read header row -> read data rows -> encode JSON
//
// Every value is emitted as a JSON string; there is no type inference. Rows
// are paired with headers by position and the shorter side wins: a short row
// yields an object without the trailing keys, a long row drops its extra
// fields. The call is all-or-nothing: a tokenizer error on any row aborts the
// whole conversion.
//
// Empty input and header-only input both convert to "[]".
//
// Key order inside each object depends on Options.KeyOrder. The default,
// KeyOrderSorted, sorts keys lexicographically (the natural result of
// serializing a map). KeyOrderHeader writes keys in header order.
package converter

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
)

// Record is one data row keyed by header name.
type Record map[string]string

// KeyOrder selects how object keys are ordered in the JSON output.
type KeyOrder int

const (
	// KeyOrderSorted emits keys in lexicographic order.
	KeyOrderSorted KeyOrder = iota
	// KeyOrderHeader emits keys in header order. A duplicated header keeps
	// the position of its first occurrence and the value of its last.
	KeyOrderHeader
)

// String returns the config spelling of o.
func (o KeyOrder) String() string {
	if o == KeyOrderHeader {
		return "header"
	}
	return "sorted"
}

// ParseKeyOrder maps a config value ("sorted", "header", or empty) to a
// KeyOrder.
func ParseKeyOrder(s string) (KeyOrder, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sorted":
		return KeyOrderSorted, true
	case "header":
		return KeyOrderHeader, true
	}
	return KeyOrderSorted, false
}

// Options configures a Converter. The zero value is the default dialect:
// comma-delimited, strict quoting, sorted keys.
type Options struct {
	// Comma is the field delimiter. When zero, ',' is used.
	Comma rune

	// LazyQuotes lets a quote appear in an unquoted field and a non-doubled
	// quote appear in a quoted field.
	LazyQuotes bool

	// KeyOrder selects object key ordering in the output.
	KeyOrder KeyOrder
}

// Result is a successful conversion.
type Result struct {
	// JSON is the encoded array of objects.
	JSON []byte
	// Headers is the header row with any leading BOM removed.
	Headers []string
	// Rows is the number of data rows (objects in JSON).
	Rows int
}

// Converter converts CSV to JSON. It holds no per-call state and is safe for
// concurrent use.
type Converter struct {
	opt Options
	enc encoder
}

// New returns a Converter configured by opt.
func New(opt Options) *Converter {
	c := &Converter{opt: opt}
	if opt.KeyOrder == KeyOrderHeader {
		c.enc = headerOrderEncoder{}
	} else {
		c.enc = sortedEncoder{}
	}
	return c
}

var defaultConverter = New(Options{})

// Convert converts data with the default Options.
func Convert(data []byte) (string, error) {
	return defaultConverter.Convert(data)
}

// Convert converts data and returns the JSON text.
func (c *Converter) Convert(data []byte) (string, error) {
	res, err := c.Run(data)
	if err != nil {
		return "", err
	}
	return string(res.JSON), nil
}

// Run converts data and returns the JSON together with the header row and
// row count. Any error is a *Error.
func (c *Converter) Run(data []byte) (Result, error) {
	if err := validateUTF8(data); err != nil {
		return Result{}, &Error{Kind: KindEncoding, Err: err}
	}

	headers, recs, err := c.parse(data)
	if err != nil {
		return Result{}, &Error{Kind: KindParse, Err: err}
	}

	var buf bytes.Buffer
	buf.Grow(len(data) + len(recs)*len(headers)*4)
	if err := c.enc.encode(&buf, headers, recs); err != nil {
		return Result{}, &Error{Kind: KindSerialization, Err: err}
	}

	return Result{JSON: buf.Bytes(), Headers: headers, Rows: len(recs)}, nil
}

// parse reads the header row and every data row. It returns no records on
// error.
func (c *Converter) parse(data []byte) ([]string, []Record, error) {
	comma := ','
	if c.opt.Comma != 0 {
		comma = c.opt.Comma
	}
	data, sub := protectQuotedCR(data, comma, c.opt.LazyQuotes)

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = comma
	cr.LazyQuotes = c.opt.LazyQuotes
	cr.FieldsPerRecord = -1

	recs := make([]Record, 0)

	headers, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return []string{}, recs, nil
	}
	if err != nil {
		return nil, nil, err
	}
	restoreCR(headers, sub)
	headers = stripHeaderBOM(headers)

	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		restoreCR(row, sub)
		recs = append(recs, pair(headers, row))
	}
	return headers, recs, nil
}

// pair zips headers with row; extra fields on either side are dropped.
func pair(headers, row []string) Record {
	n := min(len(headers), len(row))
	rec := make(Record, n)
	for i := 0; i < n; i++ {
		rec[headers[i]] = row[i]
	}
	return rec
}

// validateUTF8 runs data through the x/text UTF-8 validator. On failure the
// number of bytes consumed is the offset of the first invalid byte.
func validateUTF8(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	_, n, err := transform.Bytes(encoding.UTF8Validator, data)
	if err != nil {
		return &InvalidUTF8Error{Offset: n}
	}
	return nil
}

const utf8BOM = "\uFEFF"

// stripHeaderBOM removes a UTF-8 BOM from the first header cell if present.
func stripHeaderBOM(headers []string) []string {
	if len(headers) > 0 {
		headers[0] = strings.TrimPrefix(headers[0], utf8BOM)
	}
	return headers
}
