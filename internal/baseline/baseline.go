// Package baseline persists metric snapshots as JSON documents under the
// project's baseline directory. A baseline is owned by exactly one check,
// created on its first run, and rewritten only when the ratchet advances.
package baseline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultDir is the project-relative directory holding baseline documents.
const DefaultDir = ".turnstile/baselines"

// Dir resolves the baseline directory: override if set, else DefaultDir,
// joined under root.
func Dir(root, override string) string {
	d := override
	if d == "" {
		d = DefaultDir
	}
	if filepath.IsAbs(d) {
		return d
	}
	return filepath.Join(root, d)
}

// Stamp returns the timestamp written into baseline documents.
func Stamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// Read reads a typed JSON baseline document. A missing file is not an error:
// it returns (nil, nil), meaning "no baseline yet". Unknown JSON keys are
// ignored so older binaries tolerate newer documents.
func Read[T any](dir, filename string) (*T, error) {
	path := filepath.Join(dir, filename)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read baseline %s: %w", filename, err)
	}
	var doc T
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse baseline %s: %w", filename, err)
	}
	return &doc, nil
}

// Write persists a baseline document atomically: marshal, write a temp file
// in the same directory, fsync, rename into place. A crashed run can never
// leave a half-written baseline behind.
func Write(dir, filename string, doc any) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create baseline dir: %w", err)
	}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal baseline %s: %w", filename, err)
	}
	path := filepath.Join(dir, filename)
	tmp := fmt.Sprintf("%s.tmp.%d", path, os.Getpid())
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("write baseline %s: %w", filename, err)
	}
	if _, err := f.Write(raw); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("write baseline %s: %w", filename, err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("sync baseline %s: %w", filename, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close baseline %s: %w", filename, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace baseline %s: %w", filename, err)
	}
	return nil
}

// Totals is the common document shape for count-ratchet baselines.
type Totals struct {
	Total       float64            `json:"total"`
	ByCategory  map[string]float64 `json:"by_category,omitempty"`
	Files       map[string]float64 `json:"files,omitempty"`
	GeneratedAt string             `json:"generated_at"`
}

// TotalsDoc builds a Totals stamped with the current time.
func TotalsDoc(total float64, byCategory, files map[string]float64) *Totals {
	return &Totals{Total: total, ByCategory: byCategory, Files: files, GeneratedAt: Stamp()}
}
