// Package writer persists generated artifact pairs with all-or-nothing
// semantics: after WritePair returns, either both files of a pair exist or
// neither does.
package writer

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// ErrEmptyStem is returned when a pair has no filename stem.
var ErrEmptyStem = errors.New("pair stem is empty")

// FileSystem is the subset of filesystem operations the writer needs.
type FileSystem interface {
	WriteFile(name string, data []byte, perm os.FileMode) error
	Remove(name string) error
	MkdirAll(path string, perm os.FileMode) error
}

// OSFileSystem writes to the real filesystem.
type OSFileSystem struct{}

func (OSFileSystem) WriteFile(name string, data []byte, perm os.FileMode) error {
	return os.WriteFile(name, data, perm)
}

func (OSFileSystem) Remove(name string) error { return os.Remove(name) }

func (OSFileSystem) MkdirAll(path string, perm os.FileMode) error { return os.MkdirAll(path, perm) }

// Pair is one logical unit's configuration and content documents.
type Pair struct {
	Stem    string
	Config  any
	Content string
}

// ConfigName is the configuration filename of the pair.
func (p Pair) ConfigName() string { return p.Stem + ".json" }

// ContentName is the content filename of the pair.
func (p Pair) ContentName() string { return p.Stem + "-prompt.md" }

// Writer writes pairs through a FileSystem.
type Writer struct {
	fs     FileSystem
	logger *zap.Logger
}

// New creates a writer. A nil fs means the real filesystem; a nil logger
// disables logging.
func New(fs FileSystem, logger *zap.Logger) *Writer {
	if fs == nil {
		fs = OSFileSystem{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{fs: fs, logger: logger}
}

// WritePair writes the content document, then the configuration. Any failure
// removes both files and returns the original error.
func (w *Writer) WritePair(dir string, pair Pair) error {
	if pair.Stem == "" {
		return ErrEmptyStem
	}

	data, err := json.MarshalIndent(pair.Config, "", "  ")
	if err != nil {
		w.Discard(dir, pair.Stem)
		return fmt.Errorf("failed to marshal %s: %w", pair.ConfigName(), err)
	}
	data = append(data, '\n')

	if err := w.fs.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	contentPath := filepath.Join(dir, pair.ContentName())
	if err := w.fs.WriteFile(contentPath, []byte(pair.Content), 0644); err != nil {
		w.Discard(dir, pair.Stem)
		return fmt.Errorf("failed to write %s: %w", pair.ContentName(), err)
	}

	configPath := filepath.Join(dir, pair.ConfigName())
	if err := w.fs.WriteFile(configPath, data, 0644); err != nil {
		w.Discard(dir, pair.Stem)
		return fmt.Errorf("failed to write %s: %w", pair.ConfigName(), err)
	}

	w.logger.Debug("Wrote pair", zap.String("dir", dir), zap.String("stem", pair.Stem))
	return nil
}

// Discard removes both files of the pair identified by stem. Missing files
// and removal errors are ignored.
func (w *Writer) Discard(dir, stem string) {
	if stem == "" {
		return
	}
	p := Pair{Stem: stem}
	for _, name := range []string{p.ContentName(), p.ConfigName()} {
		if err := w.fs.Remove(filepath.Join(dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			w.logger.Debug("Discard failed", zap.String("file", name), zap.Error(err))
		}
	}
}

// WriteFile writes a single generated document, creating dir as needed.
func (w *Writer) WriteFile(dir, name string, content []byte) error {
	if err := w.fs.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	if err := w.fs.WriteFile(filepath.Join(dir, name), content, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}
