// Package state detects the prior condition of a Kiro target tree and removes
// previously generated artifacts from it.
package state

import (
	"os"
)

// State describes the target tree before a run.
type State int

const (
	// Absent means the BMAD source root is missing; nothing can be generated.
	Absent State = iota
	// Fresh means the source exists and the target tree does not.
	Fresh
	// Existing means the target tree already exists and needs cleanup first.
	Existing
)

func (s State) String() string {
	switch s {
	case Absent:
		return "absent"
	case Fresh:
		return "fresh"
	case Existing:
		return "existing"
	default:
		return "unknown"
	}
}

// Detect classifies the installation given the source and target roots.
func Detect(sourceRoot, targetRoot string) State {
	if !isDir(sourceRoot) {
		return Absent
	}
	if isDir(targetRoot) {
		return Existing
	}
	return Fresh
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}
