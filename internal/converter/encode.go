package converter

import (
	"bytes"
	"encoding/json"
)

// encoder writes recs as a JSON array of objects into buf. Output never
// carries a trailing newline and never escapes HTML characters.
type encoder interface {
	encode(buf *bytes.Buffer, headers []string, recs []Record) error
}

// sortedEncoder relies on encoding/json's map handling, which sorts keys.
type sortedEncoder struct{}

func (sortedEncoder) encode(buf *bytes.Buffer, _ []string, recs []Record) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(recs); err != nil {
		return err
	}
	trimNewline(buf)
	return nil
}

// headerOrderEncoder writes each object's keys in header order.
//
// The `"Header":` prefixes are built once per call; each row then appends
// `{<prefix><quoted value>,...}` without going through a map encoder.
type headerOrderEncoder struct{}

type keyPrefix struct {
	key    string
	prefix []byte
}

func (headerOrderEncoder) encode(buf *bytes.Buffer, headers []string, recs []Record) error {
	qs := newQuoter(buf)

	// First occurrence of a duplicated header fixes its position.
	seen := make(map[string]struct{}, len(headers))
	keys := make([]keyPrefix, 0, len(headers))
	var scratch bytes.Buffer
	hq := newQuoter(&scratch)
	for _, h := range headers {
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		scratch.Reset()
		if err := hq.quote(h); err != nil {
			return err
		}
		scratch.WriteByte(':')
		keys = append(keys, keyPrefix{key: h, prefix: append([]byte(nil), scratch.Bytes()...)})
	}

	buf.WriteByte('[')
	for i, rec := range recs {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('{')
		first := true
		for _, k := range keys {
			v, ok := rec[k.key]
			if !ok {
				continue
			}
			if !first {
				buf.WriteByte(',')
			}
			first = false
			buf.Write(k.prefix)
			if err := qs.quote(v); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	}
	buf.WriteByte(']')
	return nil
}

// quoter appends JSON string literals to a buffer using encoding/json's
// escaping rules with HTML escaping disabled.
type quoter struct {
	buf *bytes.Buffer
	enc *json.Encoder
}

func newQuoter(buf *bytes.Buffer) quoter {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	return quoter{buf: buf, enc: enc}
}

func (q quoter) quote(s string) error {
	if err := q.enc.Encode(s); err != nil {
		return err
	}
	trimNewline(q.buf)
	return nil
}

// trimNewline drops the '\n' json.Encoder appends after every value.
func trimNewline(buf *bytes.Buffer) {
	if n := buf.Len(); n > 0 && buf.Bytes()[n-1] == '\n' {
		buf.Truncate(n - 1)
	}
}
