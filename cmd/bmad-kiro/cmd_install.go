package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"bmadkiro/internal/installer"
	"bmadkiro/internal/schema"

	"github.com/spf13/cobra"
)

// =============================================================================
// INSTALL & CLEAN COMMANDS
// =============================================================================

var (
	installModules []string
	skipCommands   bool
	skipSteering   bool
)

// installCmd generates the full Kiro tree
var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Generate Kiro CLI agents, commands, and steering files",
	Long: `Runs a full installation pass:
  1. Detects whether the BMAD source and a previous .kiro tree exist
  2. Removes previously generated files from an existing tree
  3. Discovers modules (core first, then the rest)
  4. Writes one agent config/prompt pair per compiled agent
  5. Writes command stubs and steering files

A single malformed agent is reported and skipped; the rest are still installed.`,
	RunE: runInstall,
}

// cleanCmd removes generated files only
var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove previously generated Kiro files",
	RunE:  runClean,
}

func newInstaller() (*installer.Installer, error) {
	v, err := schema.New()
	if err != nil {
		return nil, fmt.Errorf("failed to load agent schema: %w", err)
	}
	return installer.New(cfg, v, logger), nil
}

func runInstall(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(cmd.ErrOrStderr(), "\nInstallation cancelled")
			cancel()
		case <-ctx.Done():
		}
	}()

	inst, err := newInstaller()
	if err != nil {
		return err
	}

	result, err := inst.Setup(ctx, projectDir, sourceDir, installer.Options{
		Modules:      installModules,
		SkipCommands: skipCommands,
		SkipSteering: skipSteering,
	})
	if err != nil {
		return fmt.Errorf("installation failed: %w", err)
	}

	fmt.Fprint(cmd.OutOrStdout(), installer.Summary(result))
	return nil
}

func runClean(cmd *cobra.Command, args []string) error {
	inst, err := newInstaller()
	if err != nil {
		return err
	}

	report := inst.Clean(projectDir)
	out := cmd.OutOrStdout()
	if len(report.Removed) == 0 {
		fmt.Fprintln(out, "Nothing to clean")
	}
	for _, p := range report.Removed {
		fmt.Fprintf(out, "🗑️  %s\n", p)
	}
	if report.Err != nil {
		return fmt.Errorf("cleanup incomplete: %w", report.Err)
	}
	return nil
}
