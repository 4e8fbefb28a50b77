// Package manifest reads and rewrites package.json documents without
// disturbing their key order or any field other than the one being changed.
package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

// FileName is the manifest file name at the project root and in every package.
const FileName = "package.json"

// VersionKey is the manifest field overwritten when stamping.
const VersionKey = "version"

type field struct {
	key   string
	value json.RawMessage
}

// Document is a JSON object that keeps its keys in document order.
type Document struct {
	fields []field
}

// Parse decodes a JSON object. Anything else at the top level is rejected.
func Parse(data []byte) (*Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("manifest: expected a JSON object, got %v", tok)
	}

	doc := &Document{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("manifest: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("manifest: expected object key, got %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("manifest: value of %q: %w", key, err)
		}
		doc.set(key, raw)
	}

	// closing brace
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("manifest: trailing data after object")
	}
	return doc, nil
}

// Keys returns the keys in document order.
func (d *Document) Keys() []string {
	keys := make([]string, len(d.fields))
	for i, f := range d.fields {
		keys[i] = f.key
	}
	return keys
}

// Get returns the raw JSON value of a key.
func (d *Document) Get(key string) (json.RawMessage, bool) {
	for _, f := range d.fields {
		if f.key == key {
			return f.value, true
		}
	}
	return nil, false
}

// GetString returns a string field; ok is false if the key is absent or not a string.
func (d *Document) GetString(key string) (string, bool) {
	raw, found := d.Get(key)
	if !found {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// Set replaces the value of an existing key in place, or appends a new key.
func (d *Document) Set(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("manifest: encode %q: %w", key, err)
	}
	d.set(key, raw)
	return nil
}

func (d *Document) set(key string, raw json.RawMessage) {
	for i := range d.fields {
		if d.fields[i].key == key {
			d.fields[i].value = raw
			return
		}
	}
	d.fields = append(d.fields, field{key: key, value: raw})
}

// MarshalJSON encodes the document compactly, in key order.
func (d *Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range d.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(f.value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Indented encodes the document with 2-space indentation and no trailing newline.
func (d *Document) Indented() ([]byte, error) {
	raw, err := d.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	var out bytes.Buffer
	if err := json.Indent(&out, compact.Bytes(), "", "  "); err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	return out.Bytes(), nil
}

// Load reads and parses a manifest file.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// ReadVersion returns the version field of the manifest at path.
func ReadVersion(path string) (string, error) {
	doc, err := Load(path)
	if err != nil {
		return "", err
	}
	version, ok := doc.GetString(VersionKey)
	if !ok || version == "" {
		return "", fmt.Errorf("%s: no %q string field", path, VersionKey)
	}
	return version, nil
}

// Stamp overwrites the version field of the manifest at path and rewrites the file.
func Stamp(path, version string) error {
	doc, err := Load(path)
	if err != nil {
		return err
	}
	if err := doc.Set(VersionKey, version); err != nil {
		return err
	}
	out, err := doc.Indented()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}
