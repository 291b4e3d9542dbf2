// Package discovery finds BMAD modules and the artifacts inside them.
package discovery

import (
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Discoverer lists the module directories under a BMAD source root.
type Discoverer struct {
	Root           string // e.g. <project>/bmad
	Fixed          string // always-first module, e.g. "core"
	Marker         string // required subdirectory, e.g. "agents"
	ReservedPrefix string // directories starting with this are never modules, e.g. "_"

	logger *zap.Logger
}

// NewDiscoverer creates a discoverer. A nil logger disables logging.
func NewDiscoverer(root, fixed, marker, reservedPrefix string, logger *zap.Logger) *Discoverer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Discoverer{
		Root:           root,
		Fixed:          fixed,
		Marker:         marker,
		ReservedPrefix: reservedPrefix,
		logger:         logger,
	}
}

// Discover returns the valid module names: the fixed module first (when it
// has the marker directory), then the remaining directories in listing order.
// A listing failure is logged and whatever was found so far is returned.
func (d *Discoverer) Discover() []string {
	var modules []string

	if d.Fixed != "" && d.hasMarker(d.Fixed) {
		modules = append(modules, d.Fixed)
	}

	entries, err := os.ReadDir(d.Root)
	if err != nil {
		d.logger.Warn("Could not list source root", zap.String("root", d.Root), zap.Error(err))
		return modules
	}

	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() || name == d.Fixed {
			continue
		}
		if d.ReservedPrefix != "" && strings.HasPrefix(name, d.ReservedPrefix) {
			continue
		}
		if d.hasMarker(name) {
			modules = append(modules, name)
		} else {
			d.logger.Debug("Skipping directory without marker", zap.String("dir", name), zap.String("marker", d.Marker))
		}
	}

	d.logger.Debug("Discovered modules", zap.Strings("modules", modules))
	return modules
}

func (d *Discoverer) hasMarker(module string) bool {
	info, err := os.Stat(filepath.Join(d.Root, module, d.Marker))
	return err == nil && info.IsDir()
}
