package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"bmadkiro/internal/extract"
	"bmadkiro/internal/render"
	"bmadkiro/internal/schema"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

var (
	previewJSON   bool
	previewModule string
)

// previewCmd shows what would be generated for one agent document
var previewCmd = &cobra.Command{
	Use:   "preview <file>",
	Short: "Render the Kiro prompt for one compiled agent",
	Args:  cobra.ExactArgs(1),
	RunE:  runPreview,
}

func runPreview(cmd *cobra.Command, args []string) error {
	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	rec, ok := extract.Extract(string(data), extract.Defaults{Name: stem, Title: stem})
	if !ok {
		return fmt.Errorf("%w: %s", extract.ErrNoRecord, path)
	}

	module := previewModule
	if module == "" {
		module = inferModule(path, cfg.Source.MarkerDir)
	}
	id := extract.Identifier(cfg.Target.Prefix, module, rec.Name)

	out := cmd.OutOrStdout()
	if previewJSON {
		v, err := schema.New()
		if err != nil {
			return fmt.Errorf("failed to load agent schema: %w", err)
		}
		agent, err := render.NewFormatter(v).Config(rec, id)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(agent)
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return fmt.Errorf("failed to create renderer: %w", err)
	}
	rendered, err := r.Render(render.Document(rec, id))
	if err != nil {
		return fmt.Errorf("failed to render prompt: %w", err)
	}
	fmt.Fprint(out, rendered)
	return nil
}

// inferModule returns <module> for paths shaped like .../<module>/<marker>/x.md.
func inferModule(path, marker string) string {
	dir := filepath.Dir(path)
	if filepath.Base(dir) != marker {
		return ""
	}
	parent := filepath.Base(filepath.Dir(dir))
	if parent == "." || parent == string(filepath.Separator) {
		return ""
	}
	return parent
}
