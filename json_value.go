package acme

import (
	"bytes"
	"encoding/json"
	"slices"
)

// errNoJSONBody is returned by ParseHTTPResponse when the response carries
// no JSON body at all (as opposed to a body that fails to parse); the
// pipeline treats this as a documented NOT_FOUND so it can fall through to
// the raw-response callback instead of failing outright (spec.md 4.4).
var errNoJSONBody = newError(ErrorKindNotFound, "response has no JSON body")

// JSONValue is the JSON value type consumed by the pipeline (spec.md
// 6.3): a thin wrapper around an arbitrary JSON document that supports
// parsing a raw HTTP response body, path-qualified string lookups,
// compact/indented re-serialization, and cloning. Go's garbage collector
// plays the role of the source's per-request arena (spec.md 9), so Clone
// here simply produces an independent copy rather than allocating from a
// caller-supplied pool.
type JSONValue struct {
	raw json.RawMessage
}

// ParseHTTPResponse parses an HTTP response body as JSON. An empty body,
// or a body whose Content-Type is clearly not JSON, yields errNoJSONBody
// rather than a parse error; any other malformed body is ErrorKindInvalid.
func ParseHTTPResponse(contentType string, body []byte) (*JSONValue, error) {
	if len(body) == 0 {
		return nil, errNoJSONBody
	}

	if contentType != "" && !isJSONContentType(contentType) {
		return nil, errNoJSONBody
	}

	var probe json.RawMessage
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, newError(ErrorKindInvalid, "cannot parse JSON body: %v", err)
	}

	return &JSONValue{raw: slices.Clone(json.RawMessage(body))}, nil
}

func isJSONContentType(contentType string) bool {
	for i, c := range contentType {
		if c == ';' {
			contentType = contentType[:i]
			break
		}
	}

	switch contentType {
	case "application/json", "application/problem+json", "application/jose+json":
		return true
	default:
		return false
	}
}

// GetString reads a nested string field along path, returning def if any
// segment is absent or not a string.
func (v *JSONValue) GetString(def string, path ...string) string {
	if v == nil {
		return def
	}

	var cursor any
	if err := json.Unmarshal(v.raw, &cursor); err != nil {
		return def
	}

	for _, key := range path {
		m, ok := cursor.(map[string]any)
		if !ok {
			return def
		}

		cursor, ok = m[key]
		if !ok {
			return def
		}
	}

	s, ok := cursor.(string)
	if !ok {
		return def
	}

	return s
}

// Has reports whether a top-level key is present, used by the directory
// resolver to detect dialect (spec.md 6.6).
func (v *JSONValue) Has(key string) bool {
	if v == nil {
		return false
	}

	var m map[string]json.RawMessage
	if err := json.Unmarshal(v.raw, &m); err != nil {
		return false
	}

	_, ok := m[key]
	return ok
}

// Unmarshal decodes the value into dest, the same as json.Unmarshal.
func (v *JSONValue) Unmarshal(dest any) error {
	return json.Unmarshal(v.raw, dest)
}

// MarshalCompact returns the value's compact JSON encoding.
func (v *JSONValue) MarshalCompact() ([]byte, error) {
	var buf bytes.Buffer

	if err := json.Compact(&buf, v.raw); err != nil {
		return nil, newError(ErrorKindInvalid, "cannot compact JSON value: %v", err)
	}

	return buf.Bytes(), nil
}

// MarshalIndent returns the value's indented JSON encoding.
func (v *JSONValue) MarshalIndent(prefix, indent string) ([]byte, error) {
	var buf bytes.Buffer

	if err := json.Indent(&buf, v.raw, prefix, indent); err != nil {
		return nil, newError(ErrorKindInvalid, "cannot indent JSON value: %v", err)
	}

	return buf.Bytes(), nil
}

// Clone returns an independent copy of the value.
func (v *JSONValue) Clone() *JSONValue {
	if v == nil {
		return nil
	}

	return &JSONValue{raw: slices.Clone(v.raw)}
}

// NewJSONValue wraps an already-encoded JSON document.
func NewJSONValue(raw json.RawMessage) *JSONValue {
	return &JSONValue{raw: slices.Clone(raw)}
}

// MarshalJSONValue encodes v as a JSONValue, used to build request
// payloads from Go structs before signing.
func MarshalJSONValue(v any) (*JSONValue, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, newError(ErrorKindInvalid, "cannot encode JSON payload: %v", err)
	}

	return &JSONValue{raw: data}, nil
}
