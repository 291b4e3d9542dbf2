// Package render turns extracted agent records into the two artifacts Kiro CLI
// consumes: a markdown prompt document and a JSON agent configuration.
package render

import (
	"fmt"
	"strings"

	"bmadkiro/internal/extract"
)

// Document renders the prompt file for one agent. Optional sections are only
// written when their field is non-empty; the activation paragraph is always
// last.
func Document(rec *extract.Record, identifier string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s %s\n\n", rec.Icon, rec.Title)
	fmt.Fprintf(&b, "You are **%s**, a BMAD Method agent running inside Kiro CLI.\n", rec.Title)

	section(&b, "Role", rec.Role)
	section(&b, "Identity", rec.Identity)
	section(&b, "Communication Style", rec.CommunicationStyle)
	section(&b, "Principles", rec.Principles)

	if len(rec.Menu) > 0 {
		b.WriteString("\n## Menu\n\n")
		for i, item := range rec.Menu {
			fmt.Fprintf(&b, "%d. **%s**: %s\n", i+1, item.Trigger, item.Description)
		}
	}

	b.WriteString("\n## Activation\n\n")
	fmt.Fprintf(&b, "Stay in character as the `%s` agent for the rest of the session. "+
		"Greet the user, show the menu, and wait for them to pick an item by number or trigger "+
		"before doing any work.\n", identifier)

	return b.String()
}

func section(b *strings.Builder, title, body string) {
	if strings.TrimSpace(body) == "" {
		return
	}
	fmt.Fprintf(b, "\n## %s\n\n%s\n", title, strings.TrimSpace(body))
}
