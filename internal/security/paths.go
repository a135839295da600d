// Package security guards the filesystem paths a run writes to.
package security

import (
	"errors"
	"fmt"
	"path/filepath"
)

// ErrOverwritesInput is returned when a write target resolves to the
// source clip.
var ErrOverwritesInput = errors.New("output would overwrite the input")

// CanonicalPath returns the absolute, symlink-resolved form of p. When p
// does not exist yet, the nearest existing parent is resolved instead and
// the remaining components are appended, so /tmp/link/new.mp4 with
// link -> /data resolves to /data/new.mp4.
func CanonicalPath(p string) (string, error) {
	absPath, err := filepath.Abs(filepath.Clean(p))
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(absPath); err == nil {
		return resolved, nil
	}

	checkPath := absPath
	for {
		parentDir := filepath.Dir(checkPath)
		if parentDir == checkPath {
			return absPath, nil
		}
		if resolved, err := filepath.EvalSymlinks(parentDir); err == nil {
			relToParent, err := filepath.Rel(parentDir, absPath)
			if err != nil {
				return "", fmt.Errorf("failed to relativise %s: %w", absPath, err)
			}
			return filepath.Join(resolved, relToParent), nil
		}
		checkPath = parentDir
	}
}

// ValidateOutputPath rejects an output path without a container extension,
// and any output or intermediate path that resolves to the input.
func ValidateOutputPath(inputPath, outputPath string, intermediates ...string) error {
	if filepath.Ext(outputPath) == "" {
		return fmt.Errorf("output path %q needs a container extension such as .mp4", outputPath)
	}
	input, err := CanonicalPath(inputPath)
	if err != nil {
		return err
	}
	for _, p := range append([]string{outputPath}, intermediates...) {
		target, err := CanonicalPath(p)
		if err != nil {
			return err
		}
		if target == input {
			return fmt.Errorf("%w: %s", ErrOverwritesInput, p)
		}
	}
	return nil
}
