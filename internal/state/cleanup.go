package state

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Cleaner removes generated files from a target tree while leaving
// user-authored files alone.
type Cleaner struct {
	Root         string   // target root, e.g. <project>/.kiro
	Subdirs      []string // subdirectories scanned for prefixed files
	Prefix       string   // generated files start with this and "-", e.g. "bmad-"
	GeneratedDir string   // removed wholesale, relative to Root, e.g. "steering/bmad"

	logger *zap.Logger
}

// NewCleaner creates a cleaner. A nil logger disables logging.
func NewCleaner(root string, subdirs []string, prefix, generatedDir string, logger *zap.Logger) *Cleaner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cleaner{
		Root:         root,
		Subdirs:      subdirs,
		Prefix:       prefix,
		GeneratedDir: generatedDir,
		logger:       logger,
	}
}

// Report summarizes one cleanup pass.
type Report struct {
	Removed []string // paths relative to Root
	Err     error    // aggregate of individual failures, nil when clean
}

// Failures returns the individual removal errors.
func (r Report) Failures() []error {
	return multierr.Errors(r.Err)
}

// Clean removes the generated directory and every prefixed regular file in
// Subdirs. Individual failures are logged and collected; cleanup always runs
// to completion.
func (c *Cleaner) Clean() Report {
	var report Report

	if c.GeneratedDir != "" {
		dir := filepath.Join(c.Root, c.GeneratedDir)
		if _, err := os.Stat(dir); err == nil {
			if err := os.RemoveAll(dir); err != nil {
				c.fail(&report, dir, err)
			} else {
				report.Removed = append(report.Removed, filepath.ToSlash(c.GeneratedDir)+"/")
			}
		}
	}

	if c.Prefix == "" {
		// An empty prefix would match every file.
		return report
	}

	for _, sub := range c.Subdirs {
		dir := filepath.Join(c.Root, sub)
		entries, err := os.ReadDir(dir)
		if err != nil {
			if !os.IsNotExist(err) {
				c.fail(&report, dir, err)
			}
			continue
		}

		for _, entry := range entries {
			if entry.IsDir() || !strings.HasPrefix(entry.Name(), c.Prefix+"-") {
				continue
			}
			p := filepath.Join(dir, entry.Name())
			if err := os.Remove(p); err != nil {
				c.fail(&report, p, err)
				continue
			}
			report.Removed = append(report.Removed, filepath.ToSlash(filepath.Join(sub, entry.Name())))
		}
	}

	c.logger.Info("Cleanup finished",
		zap.Int("removed", len(report.Removed)),
		zap.Int("failed", len(report.Failures())))
	return report
}

func (c *Cleaner) fail(r *Report, path string, err error) {
	c.logger.Warn("Cleanup failed", zap.String("path", path), zap.Error(err))
	r.Err = multierr.Append(r.Err, fmt.Errorf("failed to remove %s: %w", path, err))
}
