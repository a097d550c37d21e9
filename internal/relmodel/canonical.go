package relmodel

import (
	"bytes"
	"encoding/json"
	"sort"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonicalDatabag produces a deterministic JSON rendering of a
// databag: keys sorted bytewise, strings NFC-normalized, no HTML escaping.
//
// Used wherever byte-identical output matters, such as databag renderings
// in assertion failure messages. Standard json.Marshal is fine everywhere
// else.
func MarshalCanonicalDatabag(d Databag) ([]byte, error) {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := marshalCanonicalString(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := marshalCanonicalString(d[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// marshalCanonicalString encodes a string NFC-normalized and without HTML
// escaping. Go's encoder escapes < > & by default, which would make the
// output depend on the encoder rather than the content.
func marshalCanonicalString(s string) ([]byte, error) {
	normalized := norm.NFC.String(s)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(normalized); err != nil {
		return nil, err
	}

	// json.Encoder appends a trailing newline.
	out := buf.Bytes()
	if n := len(out); n > 0 && out[n-1] == '\n' {
		out = out[:n-1]
	}
	return out, nil
}
