// Package discovery finds ExportSpec documents for a batch export run.
package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	xerrors "github.com/clipforge/exportcore/internal/errors"
	"github.com/clipforge/exportcore/internal/util"
)

// DiscoveryLogger defines the interface for discovery logging.
type DiscoveryLogger interface {
	Info(format string, args ...any)
	Debug(format string, args ...any)
}

// Result contains the results of spec-file discovery with metadata.
type Result struct {
	Files        []string
	SkippedCount int
}

// FindSpecFiles finds ExportSpec (*.json) documents in the given directory,
// sorted alphabetically by filename.
func FindSpecFiles(inputDir string) ([]string, error) {
	result, err := findSpecFiles(inputDir, nil)
	if err != nil {
		return nil, err
	}
	return result.Files, nil
}

// FindSpecFilesWithLogging finds spec files and logs discovery progress,
// logging the first 5 files found plus a count summary.
func FindSpecFilesWithLogging(inputDir string, logger DiscoveryLogger) (*Result, error) {
	return findSpecFiles(inputDir, logger)
}

func findSpecFiles(inputDir string, logger DiscoveryLogger) (*Result, error) {
	info, err := os.Stat(inputDir)
	if err != nil {
		return nil, fmt.Errorf("directory does not exist: %s", inputDir)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", inputDir)
	}

	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return nil, fmt.Errorf("cannot read directory %s: %w", inputDir, err)
	}

	result := &Result{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		fullPath := filepath.Join(inputDir, name)
		if util.IsSpecFile(fullPath) {
			result.Files = append(result.Files, fullPath)
		} else {
			result.SkippedCount++
		}
	}

	if len(result.Files) == 0 {
		return nil, xerrors.NewInvalidSpecError(fmt.Sprintf("no export spec files found in %s", inputDir))
	}

	sort.Slice(result.Files, func(i, j int) bool {
		return strings.ToLower(filepath.Base(result.Files[i])) < strings.ToLower(filepath.Base(result.Files[j]))
	})

	if logger != nil {
		logDiscoveredFiles(result.Files, logger)
	}

	return result, nil
}

func logDiscoveredFiles(files []string, logger DiscoveryLogger) {
	if len(files) == 0 {
		logger.Info("No export spec files found")
		return
	}

	logger.Info("Found %d export spec file(s)", len(files))

	maxToLog := min(5, len(files))
	for i := range maxToLog {
		logger.Debug("  %s", filepath.Base(files[i]))
	}
	if len(files) > 5 {
		logger.Debug("  ... and %d more", len(files)-5)
	}
}
