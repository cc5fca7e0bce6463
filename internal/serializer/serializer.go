// Package serializer canonicalizes a validated WorkflowSpec into a stable
// JSON string — keys sorted lexically at every mapping level, arrays in
// insertion order, no trailing whitespace — and performs the round-trip
// check spec.md §4.4 requires before the Generator ever sees the output.
package serializer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"

	"github.com/soochol/flowforge/internal/ir"
)

// SerializationError reports a round-trip mismatch: an implementer bug in
// the Serializer itself, never retried by the controller.
type SerializationError struct {
	Reason string
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("serialization error: %s", e.Reason)
}

// Serialize canonicalizes spec to a stable JSON string and performs the
// round-trip check (property P2/P3): parse the emitted JSON back and
// compare deep-structurally to the source. A mismatch returns a
// *SerializationError rather than the JSON.
func Serialize(spec *ir.WorkflowSpec) (string, error) {
	raw, err := json.Marshal(spec)
	if err != nil {
		return "", &SerializationError{Reason: fmt.Sprintf("marshal failed: %v", err)}
	}

	canonical, err := Canonicalize(raw)
	if err != nil {
		return "", &SerializationError{Reason: fmt.Sprintf("canonicalization failed: %v", err)}
	}

	var roundTripped ir.WorkflowSpec
	if err := json.Unmarshal([]byte(canonical), &roundTripped); err != nil {
		return "", &SerializationError{Reason: fmt.Sprintf("round-trip parse failed: %v", err)}
	}
	if !reflect.DeepEqual(spec, &roundTripped) {
		return "", &SerializationError{Reason: "round-trip value does not structurally equal the source IR"}
	}

	return canonical, nil
}

// Canonicalize re-encodes a JSON document with object keys sorted
// lexically at every nesting level. Array order is preserved. This makes
// Serialize's output independent of Go's struct field declaration order
// and of map iteration order, satisfying P3 (Serializer(S) ==
// Serializer(shuffle_keys(S))).
func Canonicalize(raw []byte) (string, error) {
	var generic any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&generic); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := encodeCanonical(&buf, generic); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func encodeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			keyJSON, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(keyJSON)
			buf.WriteByte(':')
			if err := encodeCanonical(buf, val[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case []any:
		buf.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeCanonical(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		// json.Number, string, bool, nil all marshal losslessly and
		// already match spec.md's "shortest round-tripping number
		// representation" and "booleans lowercased" requirements.
		out, err := json.Marshal(val)
		if err != nil {
			return err
		}
		buf.Write(out)
	}
	return nil
}
