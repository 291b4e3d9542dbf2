// Command bmad-kiro installs BMAD Method agents, commands, and steering files
// into a project's Kiro CLI configuration.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"bmadkiro/internal/config"
	"bmadkiro/internal/logging"
	"bmadkiro/internal/probe"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	verbose    bool
	projectDir string
	sourceDir  string
	configPath string

	// Set up by PersistentPreRunE
	cfg    *config.Config
	logger *logging.Logger

	// probeRunner overrides the process runner used by status and check.
	probeRunner probe.Runner
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "bmad-kiro",
	Short: "Install BMAD Method agents for Kiro CLI",
	Long: `bmad-kiro converts a compiled BMAD Method tree into Kiro CLI artifacts.

For every module under the BMAD source directory it writes:
  - agent configs and prompts to .kiro/agents/
  - command stubs for workflows, tasks, and tools to .kiro/commands/
  - steering files to .kiro/steering/bmad/

Previously generated files (those starting with the configured prefix) are
replaced on every run; files you wrote yourself are left alone.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		dir, err := resolveProject()
		if err != nil {
			return err
		}
		projectDir = dir

		cfg, err = config.LoadForProject(projectDir, configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		logger, err = logging.New(cfg.Logging, verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger.Get(logging.CategoryBoot).Debug("Configuration loaded",
			zap.String("project", projectDir),
			zap.String("source", cfg.SourceRoot(projectDir, sourceDir)),
			zap.String("target", cfg.TargetRoot(projectDir)))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&projectDir, "project", "p", "", "Project directory (default: current)")
	rootCmd.PersistentFlags().StringVarP(&sourceDir, "source", "s", "", "BMAD source directory, relative to the project (default: bmad)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: <project>/"+config.DefaultConfigFile+")")

	installCmd.Flags().StringSliceVar(&installModules, "modules", nil, "Only install these modules")
	installCmd.Flags().BoolVar(&skipCommands, "skip-commands", false, "Do not generate command stubs")
	installCmd.Flags().BoolVar(&skipSteering, "skip-steering", false, "Do not generate steering files")

	previewCmd.Flags().BoolVar(&previewJSON, "json", false, "Print the agent config instead of the prompt")
	previewCmd.Flags().StringVar(&previewModule, "module", "", "Module name used for the identifier (default: inferred from the path)")

	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(previewCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// resolveProject returns the absolute project directory from the flag or cwd.
func resolveProject() (string, error) {
	dir := projectDir
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get working directory: %w", err)
		}
		dir = cwd
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve project directory: %w", err)
	}
	return abs, nil
}
