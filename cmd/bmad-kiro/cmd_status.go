package main

import (
	"context"
	"fmt"
	"strings"

	"bmadkiro/internal/logging"
	"bmadkiro/internal/probe"
	"bmadkiro/internal/state"

	"github.com/spf13/cobra"
)

// statusCmd reports what an install would do
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show installation state, modules, and CLI availability",
	RunE:  runStatus,
}

// checkCmd probes the Kiro CLI binary
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check whether the Kiro CLI is installed",
	RunE:  runCheck,
}

func newProber() *probe.Prober {
	return probe.New(cfg.CLI.Binary, cfg.GetProbeTimeout(), probeRunner, logger.Get(logging.CategoryProbe))
}

func runStatus(cmd *cobra.Command, args []string) error {
	inst, err := newInstaller()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	st := inst.Detect(projectDir, sourceDir)
	source := cfg.SourceRoot(projectDir, sourceDir)
	fmt.Fprintf(out, "Project: %s\n", projectDir)
	fmt.Fprintf(out, "Source:  %s\n", source)
	fmt.Fprintf(out, "Target:  %s\n", cfg.TargetRoot(projectDir))
	fmt.Fprintf(out, "State:   %s\n", st)

	if st != state.Absent {
		modules := inst.Modules(source)
		if len(modules) == 0 {
			fmt.Fprintln(out, "Modules: none found")
		} else {
			fmt.Fprintf(out, "Modules: %s\n", strings.Join(modules, ", "))
		}
	}

	if version, ok := newProber().Version(context.Background()); ok {
		fmt.Fprintf(out, "Kiro CLI: ✅ %s\n", version)
	} else {
		fmt.Fprintf(out, "Kiro CLI: ❌ %s not found\n", cfg.CLI.Binary)
	}
	return nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	version, ok := newProber().Version(context.Background())
	if !ok {
		return fmt.Errorf("%s is not available; install Kiro CLI and make sure it is on PATH", cfg.CLI.Binary)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✅ %s %s\n", cfg.CLI.Binary, version)
	return nil
}
