// Package installer sets up a Kiro CLI tree from a compiled BMAD source tree.
//
// One Setup call runs the whole pass sequentially:
//  1. detect the installation state (a missing source root aborts the run)
//  2. remove previously generated files when the target already exists
//  3. discover modules
//  4. generate agent pairs, command stubs, and steering files per module
//
// Failures are isolated per unit: a malformed agent or a failed write is
// logged and skipped, and the remaining units are still processed.
package installer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"bmadkiro/internal/config"
	"bmadkiro/internal/discovery"
	"bmadkiro/internal/logging"
	"bmadkiro/internal/render"
	"bmadkiro/internal/state"
	"bmadkiro/internal/writer"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrSourceMissing is returned when the BMAD source root does not exist.
var ErrSourceMissing = errors.New("BMAD source directory not found")

// Options is the caller's option bag for one Setup run.
type Options struct {
	Modules      []string // restrict generation to these modules; empty means all
	SkipCommands bool
	SkipSteering bool
}

// Installer generates Kiro artifacts. Construct with New.
type Installer struct {
	cfg       *config.Config
	formatter *render.Formatter
	writer    *writer.Writer
	collector discovery.Collector
	log       *logging.Logger
}

// Option customizes an Installer.
type Option func(*Installer)

// WithCollector replaces the filesystem artifact collector.
func WithCollector(c discovery.Collector) Option {
	return func(i *Installer) { i.collector = c }
}

// WithFileSystem replaces the filesystem used for generated files.
func WithFileSystem(fs writer.FileSystem) Option {
	return func(i *Installer) {
		i.writer = writer.New(fs, i.log.Get(logging.CategoryWriter))
	}
}

// New creates an installer. The validator is used for every agent config.
func New(cfg *config.Config, validator render.Validator, log *logging.Logger, opts ...Option) *Installer {
	if log == nil {
		log = logging.Nop()
	}
	i := &Installer{
		cfg:       cfg,
		formatter: render.NewFormatter(validator),
		log:       log,
	}
	i.writer = writer.New(nil, log.Get(logging.CategoryWriter))
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// GeneratedAgent describes one written agent pair.
type GeneratedAgent struct {
	Module     string `json:"module"`
	Identifier string `json:"identifier"`
	Title      string `json:"title"`
	Icon       string `json:"icon"`
	Source     string `json:"source"`
	ConfigFile string `json:"config_file"`
	PromptFile string `json:"prompt_file"`
	MenuItems  int    `json:"menu_items"`
}

// GeneratedCommand describes one written command stub.
type GeneratedCommand struct {
	Kind       discovery.Kind `json:"kind"`
	Module     string         `json:"module"`
	Identifier string         `json:"identifier"`
	Title      string         `json:"title"`
	Source     string         `json:"source"`
	File       string         `json:"file"`
}

// Skip records a unit that was not generated.
type Skip struct {
	Module string `json:"module"`
	Unit   string `json:"unit"`
	Reason string `json:"reason"`
}

// Result summarizes one Setup run.
type Result struct {
	RunID      string        `json:"run_id"`
	State      state.State   `json:"-"`
	ProjectDir string        `json:"project_dir"`
	SourceRoot string        `json:"source_root"`
	TargetRoot string        `json:"target_root"`
	Modules    []string      `json:"modules"`
	Duration   time.Duration `json:"duration"`

	Agents       []GeneratedAgent   `json:"agents,omitempty"`
	Commands     []GeneratedCommand `json:"commands,omitempty"`
	Steering     []string           `json:"steering,omitempty"`
	Skipped      []Skip             `json:"skipped,omitempty"`
	Unrecognized []string           `json:"unrecognized,omitempty"` // sources without an agent tag
	Cleanup      state.Report       `json:"-"`
}

// CommandCounts returns generated command stubs per kind.
func (r *Result) CommandCounts() map[discovery.Kind]int {
	counts := make(map[discovery.Kind]int)
	for _, c := range r.Commands {
		counts[c.Kind]++
	}
	return counts
}

// Setup runs one full generation pass. Only a missing source root (or a
// target directory that cannot be created) aborts the run.
func (i *Installer) Setup(ctx context.Context, projectDir, sourceDir string, opts Options) (*Result, error) {
	start := time.Now()
	log := i.log.Get(logging.CategoryInstall)

	result := &Result{
		RunID:      uuid.NewString(),
		ProjectDir: projectDir,
		SourceRoot: i.cfg.SourceRoot(projectDir, sourceDir),
		TargetRoot: i.cfg.TargetRoot(projectDir),
	}
	log = log.With(zap.String("run_id", result.RunID))

	result.State = state.Detect(result.SourceRoot, result.TargetRoot)
	log.Info("Starting setup",
		zap.String("source", result.SourceRoot),
		zap.String("target", result.TargetRoot),
		zap.Stringer("state", result.State))

	switch result.State {
	case state.Absent:
		return nil, fmt.Errorf("%w: %s", ErrSourceMissing, result.SourceRoot)
	case state.Existing:
		// Cleanup must finish before any writer starts.
		result.Cleanup = i.Clean(projectDir)
	}

	if err := i.createDirectoryStructure(projectDir, opts); err != nil {
		return nil, err
	}

	collector := i.collector
	if collector == nil {
		collector = discovery.NewFSCollector(result.SourceRoot, i.cfg.Source.MarkerDir, i.log.Get(logging.CategoryDiscovery))
	}

	result.Modules = filterModules(i.Modules(result.SourceRoot), opts.Modules)
	log.Info("Discovered modules", zap.Strings("modules", result.Modules))

	seen := make(map[string]int)
	moduleAgents := make(map[string][]GeneratedAgent)
	moduleCommands := make(map[string][]GeneratedCommand)

	for _, module := range result.Modules {
		if err := ctx.Err(); err != nil {
			result.Duration = time.Since(start)
			return result, fmt.Errorf("setup interrupted: %w", err)
		}

		i.generateAgents(projectDir, module, collector, seen, result)
		if !opts.SkipCommands {
			i.generateCommands(projectDir, module, collector, result)
		}
	}

	for _, a := range result.Agents {
		moduleAgents[a.Module] = append(moduleAgents[a.Module], a)
	}
	for _, c := range result.Commands {
		moduleCommands[c.Module] = append(moduleCommands[c.Module], c)
	}

	if !opts.SkipSteering {
		i.generateSteering(projectDir, result, moduleAgents, moduleCommands)
	}

	result.Duration = time.Since(start)
	log.Info("Setup complete",
		zap.Int("agents", len(result.Agents)),
		zap.Int("commands", len(result.Commands)),
		zap.Int("steering", len(result.Steering)),
		zap.Int("skipped", len(result.Skipped)),
		zap.Int("unrecognized", len(result.Unrecognized)),
		zap.Duration("duration", result.Duration))
	return result, nil
}

// Modules lists the valid modules under sourceRoot.
func (i *Installer) Modules(sourceRoot string) []string {
	d := discovery.NewDiscoverer(sourceRoot,
		i.cfg.Source.CoreModule,
		i.cfg.Source.MarkerDir,
		i.cfg.Source.ReservedPrefix,
		i.log.Get(logging.CategoryDiscovery))
	return d.Discover()
}

// Clean removes generated files from the project's target tree and keeps
// everything the user wrote.
func (i *Installer) Clean(projectDir string) state.Report {
	c := state.NewCleaner(
		i.cfg.TargetRoot(projectDir),
		i.cfg.CleanupSubdirs(),
		i.cfg.Target.Prefix,
		i.cfg.GeneratedSteeringRel(),
		i.log.Get(logging.CategoryCleanup))
	return c.Clean()
}

// Detect reports the installation state for project.
func (i *Installer) Detect(projectDir, sourceDir string) state.State {
	return state.Detect(i.cfg.SourceRoot(projectDir, sourceDir), i.cfg.TargetRoot(projectDir))
}

// createDirectoryStructure creates the fixed Kiro subdirectories.
func (i *Installer) createDirectoryStructure(projectDir string, opts Options) error {
	dirs := []string{
		i.cfg.AgentsPath(projectDir),
		i.cfg.CommandsPath(projectDir),
	}
	if !opts.SkipSteering {
		dirs = append(dirs, i.cfg.SteeringPath(projectDir))
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

func filterModules(found, wanted []string) []string {
	if len(wanted) == 0 {
		return found
	}
	allow := make(map[string]bool, len(wanted))
	for _, w := range wanted {
		allow[w] = true
	}
	var out []string
	for _, m := range found {
		if allow[m] {
			out = append(out, m)
		}
	}
	return out
}

// relPath renders p relative to base with forward slashes, falling back to p.
func relPath(base, p string) string {
	rel, err := filepath.Rel(base, p)
	if err != nil {
		return filepath.ToSlash(p)
	}
	return filepath.ToSlash(rel)
}
