// Package report persists the outcome of a release run.
package report

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	v1 "github.com/kination/bundlepub/api/v1"
)

// Marshal encodes a run report as YAML with 2-space indentation.
func Marshal(r *v1.RunReport) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return nil, fmt.Errorf("failed to encode report: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode report: %w", err)
	}
	return buf.Bytes(), nil
}

// Write saves the report to path, creating parent directories as needed.
func Write(path string, r *v1.RunReport) error {
	data, err := Marshal(r)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report %s: %w", path, err)
	}
	return nil
}

// Read loads a report written by Write.
func Read(path string) (*v1.RunReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report %s: %w", path, err)
	}
	var r v1.RunReport
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse report %s: %w", path, err)
	}
	return &r, nil
}

// Summary returns a one-line account of the run, e.g. "1 of 2 packages published".
func Summary(r *v1.RunReport) string {
	s := fmt.Sprintf("%d of %d packages published", r.PublishedCount(), len(r.Packages))
	if !r.PublishEnabled {
		s += " (publish disabled)"
	}
	if r.Error != "" {
		s += ": " + r.Error
	}
	return s
}
