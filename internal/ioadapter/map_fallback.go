//go:build !unix

// Package ioadapter provides platform-specific helpers for accessing CREG
// files.
package ioadapter

import "os"

// mapFile reads the entire file when mmap is not available on this
// platform.
func mapFile(path string) ([]byte, func() error, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	return data, func() error { return nil }, nil
}
