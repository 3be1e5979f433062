package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Scanner scans directories for .eml files
type Scanner struct {
	rootPath string
}

// NewScanner creates a new scanner for the given root path
func NewScanner(rootPath string) *Scanner {
	return &Scanner{
		rootPath: rootPath,
	}
}

// Scan recursively scans for .eml files and returns paths relative to the
// root, normalized to forward slashes for portability
func (s *Scanner) Scan() ([]string, error) {
	var emlFiles []string

	// Get absolute path of root for reliable relative path calculation
	absRoot, err := filepath.Abs(s.rootPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute root path: %w", err)
	}

	err = filepath.Walk(absRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return fmt.Errorf("error accessing path %s: %w", path, err)
		}

		if info.IsDir() {
			return nil
		}

		if strings.ToLower(filepath.Ext(path)) == ".eml" {
			relPath, err := filepath.Rel(absRoot, path)
			if err != nil {
				return fmt.Errorf("failed to get relative path for %s: %w", path, err)
			}
			emlFiles = append(emlFiles, filepath.ToSlash(relPath))
		}

		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to scan directory: %w", err)
	}

	return emlFiles, nil
}
