package discovery

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"bmadkiro/internal/extract"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"
)

// Kind classifies a command artifact.
type Kind string

const (
	KindWorkflow Kind = "workflow"
	KindTask     Kind = "task"
	KindTool     Kind = "tool"
)

// Artifact is one workflow, task, or tool a command stub is generated for.
type Artifact struct {
	Kind        Kind
	Module      string
	Name        string // filename fragment: workflow directory or file stem
	Title       string
	Description string
	Path        string // absolute path of the source file
}

// Collector enumerates the source artifacts of a module.
type Collector interface {
	// Agents returns the compiled agent documents of module.
	Agents(module string) ([]string, error)
	// Commands returns the workflows, tasks, and tools of module.
	Commands(module string) ([]Artifact, error)
}

var commandGlobs = []struct {
	kind    Kind
	pattern string
}{
	{KindWorkflow, "workflows/**/workflow.{yaml,yml,md}"},
	{KindTask, "tasks/*.{xml,md}"},
	{KindTool, "tools/*.{xml,md}"},
}

// FSCollector reads artifacts from <Root>/<module>/.
type FSCollector struct {
	Root   string
	Marker string // agent directory name, e.g. "agents"

	logger *zap.Logger
}

// NewFSCollector creates a filesystem collector. A nil logger disables logging.
func NewFSCollector(root, marker string, logger *zap.Logger) *FSCollector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FSCollector{Root: root, Marker: marker, logger: logger}
}

// Agents returns absolute paths of <module>/<marker>/*.md, sorted.
func (c *FSCollector) Agents(module string) ([]string, error) {
	moduleDir := filepath.Join(c.Root, module)
	matches, err := doublestar.Glob(os.DirFS(moduleDir), c.Marker+"/*.md")
	if err != nil {
		return nil, fmt.Errorf("failed to glob agents in %s: %w", module, err)
	}
	sort.Strings(matches)

	paths := make([]string, 0, len(matches))
	for _, m := range matches {
		paths = append(paths, filepath.Join(moduleDir, filepath.FromSlash(m)))
	}
	return paths, nil
}

// Commands returns workflows, then tasks, then tools, each sorted by path.
// Unreadable files are logged and skipped.
func (c *FSCollector) Commands(module string) ([]Artifact, error) {
	moduleDir := filepath.Join(c.Root, module)
	fsys := os.DirFS(moduleDir)

	var artifacts []Artifact
	for _, g := range commandGlobs {
		matches, err := doublestar.Glob(fsys, g.pattern)
		if err != nil {
			return artifacts, fmt.Errorf("failed to glob %ss in %s: %w", g.kind, module, err)
		}
		sort.Strings(matches)

		for _, m := range matches {
			full := filepath.Join(moduleDir, filepath.FromSlash(m))
			data, err := os.ReadFile(full)
			if err != nil {
				c.logger.Warn("Could not read artifact", zap.String("path", full), zap.Error(err))
				continue
			}
			artifacts = append(artifacts, describe(g.kind, module, m, string(data), full))
		}
	}
	return artifacts, nil
}

// describe derives name, title, and description for one artifact file.
func describe(kind Kind, module, rel, content, full string) Artifact {
	ext := path.Ext(rel)

	name := strings.TrimSuffix(path.Base(rel), ext)
	if kind == KindWorkflow {
		name = path.Base(path.Dir(rel))
	}

	var meta metadata
	switch ext {
	case ".yaml", ".yml":
		meta = parseMetadata(content)
	case ".md":
		meta = parseMetadata(splitFrontmatter(content))
	}

	tag := string(kind)
	return Artifact{
		Kind:   kind,
		Module: module,
		Name:   name,
		Title: extract.FirstPresent(
			extract.Value(meta.Name),
			tagAttr(content, tag, "name"),
			extract.Const(name),
		),
		Description: extract.FirstPresent(
			extract.Value(meta.Description),
			tagAttr(content, tag, "description"),
			extract.Value(extract.Element(content, "objective")),
			extract.Const(fmt.Sprintf("Run the %s %s", name, kind)),
		),
		Path: full,
	}
}

func tagAttr(content, tag, attr string) extract.Strategy {
	return func() (string, bool) {
		v, ok := extract.TagAttr(content, tag, attr)
		if !ok || strings.TrimSpace(v) == "" {
			return "", false
		}
		return v, true
	}
}
