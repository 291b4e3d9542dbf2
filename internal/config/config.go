package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the per-project config looked up when no --config flag
// is given.
const DefaultConfigFile = ".bmad-kiro.yaml"

// Config holds all bmad-kiro configuration.
type Config struct {
	Name string `yaml:"name"`

	// BMAD source tree layout
	Source SourceConfig `yaml:"source"`

	// Kiro target tree layout
	Target TargetConfig `yaml:"target"`

	// Host CLI probe
	CLI CLIConfig `yaml:"cli"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// SourceConfig describes the compiled BMAD tree.
type SourceConfig struct {
	Dir            string `yaml:"dir"`             // relative to the project, default "bmad"
	CoreModule     string `yaml:"core_module"`     // always processed first
	MarkerDir      string `yaml:"marker_dir"`      // a module must contain this directory
	ReservedPrefix string `yaml:"reserved_prefix"` // directories starting with this are not modules
}

// TargetConfig describes the generated Kiro tree.
type TargetConfig struct {
	Dir                  string `yaml:"dir"` // relative to the project, default ".kiro"
	AgentsDir            string `yaml:"agents_dir"`
	CommandsDir          string `yaml:"commands_dir"`
	SteeringDir          string `yaml:"steering_dir"`
	GeneratedSteeringDir string `yaml:"generated_steering_dir"` // under SteeringDir, owned entirely by bmad-kiro
	Prefix               string `yaml:"prefix"`                 // every generated file starts with this
}

// CLIConfig configures the availability probe.
type CLIConfig struct {
	Binary       string `yaml:"binary"`
	ProbeTimeout string `yaml:"probe_timeout"`
}

// DefaultConfig returns the stock layout used by BMAD installs.
func DefaultConfig() *Config {
	return &Config{
		Name: "bmad-kiro",
		Source: SourceConfig{
			Dir:            "bmad",
			CoreModule:     "core",
			MarkerDir:      "agents",
			ReservedPrefix: "_",
		},
		Target: TargetConfig{
			Dir:                  ".kiro",
			AgentsDir:            "agents",
			CommandsDir:          "commands",
			SteeringDir:          "steering",
			GeneratedSteeringDir: "bmad",
			Prefix:               "bmad",
		},
		CLI: CLIConfig{
			Binary:       "kiro-cli",
			ProbeTimeout: "5s",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a YAML config from path. A missing file yields the defaults.
// Environment overrides are applied in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// LoadForProject loads <project>/.env (if any) into the environment and then
// the config at path, defaulting to <project>/.bmad-kiro.yaml.
func LoadForProject(projectDir, path string) (*Config, error) {
	if err := godotenv.Load(filepath.Join(projectDir, ".env")); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	if path == "" {
		path = filepath.Join(projectDir, DefaultConfigFile)
	}
	return Load(path)
}

// Save writes the config as YAML.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

func (c *Config) applyEnvOverrides() {
	if bin := os.Getenv("BMAD_KIRO_CLI_BINARY"); bin != "" {
		c.CLI.Binary = bin
	}
	if level := os.Getenv("BMAD_KIRO_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if prefix := os.Getenv("BMAD_KIRO_PREFIX"); prefix != "" {
		c.Target.Prefix = prefix
	}
}

var prefixPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// ValidLogLevels lists accepted logging.level values.
var ValidLogLevels = []string{"debug", "info", "warn", "error"}

// Validate checks the config for values that would produce a broken tree.
func (c *Config) Validate() error {
	if c.Source.Dir == "" {
		return fmt.Errorf("source.dir must not be empty")
	}
	if c.Source.MarkerDir == "" {
		return fmt.Errorf("source.marker_dir must not be empty")
	}
	if c.Target.Dir == "" || c.Target.AgentsDir == "" || c.Target.CommandsDir == "" || c.Target.SteeringDir == "" {
		return fmt.Errorf("target directories must not be empty")
	}
	// Cleanup keys off the prefix; it must be a safe filename fragment.
	if !prefixPattern.MatchString(c.Target.Prefix) {
		return fmt.Errorf("invalid target.prefix %q (must match %s)", c.Target.Prefix, prefixPattern)
	}
	if _, err := time.ParseDuration(c.CLI.ProbeTimeout); err != nil {
		return fmt.Errorf("invalid cli.probe_timeout %q: %w", c.CLI.ProbeTimeout, err)
	}

	level := strings.ToLower(c.Logging.Level)
	for _, l := range ValidLogLevels {
		if level == l {
			return nil
		}
	}
	return fmt.Errorf("invalid logging.level: %s (valid: %v)", c.Logging.Level, ValidLogLevels)
}

// GetProbeTimeout returns the probe timeout, falling back to 5s.
func (c *Config) GetProbeTimeout() time.Duration {
	if d, err := time.ParseDuration(c.CLI.ProbeTimeout); err == nil && d > 0 {
		return d
	}
	return 5 * time.Second
}

// SourceRoot resolves the BMAD source directory for project. An explicit
// override wins; relative paths are joined onto the project.
func (c *Config) SourceRoot(projectDir, override string) string {
	dir := c.Source.Dir
	if override != "" {
		dir = override
	}
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(projectDir, dir)
}

// TargetRoot resolves the Kiro directory for project.
func (c *Config) TargetRoot(projectDir string) string {
	if filepath.IsAbs(c.Target.Dir) {
		return c.Target.Dir
	}
	return filepath.Join(projectDir, c.Target.Dir)
}

// AgentsPath is the absolute agents directory for project.
func (c *Config) AgentsPath(projectDir string) string {
	return filepath.Join(c.TargetRoot(projectDir), c.Target.AgentsDir)
}

// CommandsPath is the absolute commands directory for project.
func (c *Config) CommandsPath(projectDir string) string {
	return filepath.Join(c.TargetRoot(projectDir), c.Target.CommandsDir)
}

// SteeringPath is the absolute generated steering directory for project.
func (c *Config) SteeringPath(projectDir string) string {
	return filepath.Join(c.TargetRoot(projectDir), c.Target.SteeringDir, c.Target.GeneratedSteeringDir)
}

// GeneratedSteeringRel is the generated steering directory relative to the
// target root, or "" when steering output is not isolated.
func (c *Config) GeneratedSteeringRel() string {
	if c.Target.GeneratedSteeringDir == "" {
		return ""
	}
	return filepath.Join(c.Target.SteeringDir, c.Target.GeneratedSteeringDir)
}

// CleanupSubdirs lists the target subdirectories scanned for prefixed files.
func (c *Config) CleanupSubdirs() []string {
	return []string{c.Target.AgentsDir, c.Target.CommandsDir, c.Target.SteeringDir}
}
