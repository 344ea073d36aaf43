// Package store persists rv's three local JSON state files — the
// environment-variable overlay, the port-forward registry, and the request
// history — each rewritten atomically on every change. These are hint
// stores, not sources of truth: concurrent processes are not locked
// against each other, and "last writer wins" is an accepted outcome.
package store

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rvcli/rv/pkg/config"
	rverrors "github.com/rvcli/rv/pkg/errors"
)

// dir returns rv's local state directory, creating it if absent.
func dir() (string, error) {
	d, err := config.Dir()
	if err != nil {
		return "", rverrors.Wrap(rverrors.KindConfig, err, "resolve rv state directory")
	}
	if err := os.MkdirAll(d, 0o755); err != nil {
		return "", rverrors.Wrap(rverrors.KindConfig, err, "create rv state directory")
	}
	return d, nil
}

func path(filename string) (string, error) {
	d, err := dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, filename), nil
}

// readJSON decodes path into v. A missing file is not an error: v is left
// at its zero value, so callers get an empty store on first use.
func readJSON(filename string, v any) error {
	p, err := path(filename)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return rverrors.Wrap(rverrors.KindConfig, err, "read "+filename)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return rverrors.Wrap(rverrors.KindConfig, err, "parse "+filename)
	}
	return nil
}

// writeJSON serializes v to filename via write-temp-then-rename, so a
// reader never observes a partially written file.
func writeJSON(filename string, v any) error {
	d, err := dir()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return rverrors.Wrap(rverrors.KindConfig, err, "encode "+filename)
	}

	tmp, err := os.CreateTemp(d, "."+filename+".tmp-*")
	if err != nil {
		return rverrors.Wrap(rverrors.KindConfig, err, "create temp file for "+filename)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once the rename below succeeds

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return rverrors.Wrap(rverrors.KindConfig, err, "write "+filename)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return rverrors.Wrap(rverrors.KindConfig, err, "sync "+filename)
	}
	if err := tmp.Close(); err != nil {
		return rverrors.Wrap(rverrors.KindConfig, err, "close "+filename)
	}

	target := filepath.Join(d, filename)
	if err := os.Rename(tmpPath, target); err != nil {
		return rverrors.Wrap(rverrors.KindConfig, err, "rename into place "+filename)
	}
	return nil
}
