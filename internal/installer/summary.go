package installer

import (
	"fmt"
	"strings"

	"bmadkiro/internal/discovery"

	"github.com/charmbracelet/lipgloss"
)

var (
	summaryTitle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	summaryLabel = lipgloss.NewStyle().Foreground(lipgloss.Color("#A0A0A0"))
	summaryWarn  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFB86C"))
	summaryRule  = lipgloss.NewStyle().Foreground(lipgloss.Color("#3C3C3C"))
)

// Summary renders the console report for a finished run.
func Summary(r *Result) string {
	var b strings.Builder
	rule := summaryRule.Render(strings.Repeat("═", 60))

	b.WriteString(rule + "\n")
	b.WriteString(summaryTitle.Render("✅ KIRO CLI SETUP COMPLETE") + "\n")
	b.WriteString(rule + "\n\n")

	line := func(label, value string) {
		fmt.Fprintf(&b, "%s %s\n", summaryLabel.Render(label), value)
	}

	line("📁 Target:", r.TargetRoot)
	line("   State:", r.State.String())
	if len(r.Cleanup.Removed) > 0 {
		line("   Cleaned:", fmt.Sprintf("%d generated file(s)", len(r.Cleanup.Removed)))
	}
	if len(r.Modules) > 0 {
		line("📦 Modules:", strings.Join(r.Modules, ", "))
	} else {
		line("📦 Modules:", "none found")
	}

	counts := r.CommandCounts()
	b.WriteString("\n")
	line("🤖 Agents:", fmt.Sprintf("%d", len(r.Agents)))
	line("🧩 Workflows:", fmt.Sprintf("%d", counts[discovery.KindWorkflow]))
	line("📋 Tasks:", fmt.Sprintf("%d", counts[discovery.KindTask]))
	line("🛠️  Tools:", fmt.Sprintf("%d", counts[discovery.KindTool]))
	line("🧭 Steering:", fmt.Sprintf("%d", len(r.Steering)))
	line("⏭️  Skipped:", fmt.Sprintf("%d", len(r.Skipped)))
	if len(r.Unrecognized) > 0 {
		line("   No agent tag:", fmt.Sprintf("%d", len(r.Unrecognized)))
	}

	if len(r.Skipped) > 0 || len(r.Cleanup.Failures()) > 0 {
		b.WriteString("\n" + summaryWarn.Render("⚠️ Warnings:") + "\n")
		for _, s := range r.Skipped {
			unit := s.Unit
			if s.Module != "" {
				unit = s.Module + "/" + s.Unit
			}
			fmt.Fprintf(&b, "   - %s: %s\n", unit, s.Reason)
		}
		for _, err := range r.Cleanup.Failures() {
			fmt.Fprintf(&b, "   - cleanup: %v\n", err)
		}
	}

	if len(r.Agents) > 0 {
		b.WriteString("\n" + summaryRule.Render(strings.Repeat("─", 60)) + "\n")
		b.WriteString("💡 Next steps:\n")
		fmt.Fprintf(&b, "   • Run `kiro-cli chat --agent %s` to start an agent\n", r.Agents[0].Identifier)
		b.WriteString("   • Run `kiro-cli agent list` to see every installed agent\n")
	}
	return b.String()
}
