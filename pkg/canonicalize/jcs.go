// Package canonicalize provides RFC 8785 (JSON Canonicalization Scheme)
// compliant serialization. Every hash, signature, and comparison in the
// verifier is computed over these bytes, never over whatever order
// encoding/json or a map iterator happens to produce.
package canonicalize

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"
)

// JCS returns the RFC 8785 canonical JSON representation of v.
//
// Strategy: marshal v with the standard encoding/json (so struct tags and
// custom MarshalJSON methods are respected), decode that into a generic
// interface{} tree with UseNumber() so integers survive intact, re-encode
// that tree as plain (but still valid) JSON bytes, then hand those bytes
// to gowebpki/jcs for the actual canonical transform (key sorting,
// escaping, number formatting per RFC 8785).
func JCS(v interface{}) ([]byte, error) {
	intermediate, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonicalize: pre-marshal: %w", err)
	}

	var generic interface{}
	dec := json.NewDecoder(bytes.NewReader(intermediate))
	dec.UseNumber()
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("canonicalize: intermediate decode: %w", err)
	}

	renumbered, err := reencode(generic)
	if err != nil {
		return nil, fmt.Errorf("canonicalize: renumber: %w", err)
	}

	canonical, err := jcs.Transform(renumbered)
	if err != nil {
		return nil, fmt.Errorf("canonicalize: jcs.Transform: %w", err)
	}
	return canonical, nil
}

// CanonicalHash returns the SHA-256 hex digest of the canonical JSON
// representation of v.
func CanonicalHash(v interface{}) (string, error) {
	b, err := JCS(v)
	if err != nil {
		return "", err
	}
	return HashBytes(b), nil
}

// HashBytes returns the SHA-256 hex digest of raw bytes.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// JCSString returns the canonical form as a string.
func JCSString(v interface{}) (string, error) {
	b, err := JCS(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// reencode walks the decoded tree, writing plain JSON bytes (HTML escaping
// disabled) so jcs.Transform — which expects already-marshaled JSON, not a
// Go value — receives a faithful byte form of the json.Number-preserving
// tree. Key order within an object is irrelevant here: jcs.Transform
// re-sorts every object's keys per RFC 8785, so Go's unordered map
// iteration can never leak into the final canonical bytes.
func reencode(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeValue(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeValue(buf *bytes.Buffer, v interface{}) error {
	switch t := v.(type) {
	case nil:
		buf.WriteString("null")
		return nil
	case bool:
		if t {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
		return nil
	case json.Number:
		buf.WriteString(t.String())
		return nil
	case string:
		return writeJSONString(buf, t)
	case []interface{}:
		buf.WriteByte('[')
		for i, elem := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeValue(buf, elem); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	case map[string]interface{}:
		buf.WriteByte('{')
		first := true
		for k, val := range t {
			if !first {
				buf.WriteByte(',')
			}
			first = false
			if err := writeJSONString(buf, k); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := writeValue(buf, val); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	default:
		enc, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("canonicalize: unsupported value of type %T: %w", t, err)
		}
		buf.Write(enc)
		return nil
	}
}

func writeJSONString(buf *bytes.Buffer, s string) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	b := buf.Bytes()
	if len(b) > 0 && b[len(b)-1] == '\n' {
		buf.Truncate(len(b) - 1)
	}
	return nil
}
