package installer

import (
	"bytes"
	"os"
	"path"
	"path/filepath"
	"text/template"

	"bmadkiro/internal/discovery"
	"bmadkiro/internal/extract"
	"bmadkiro/internal/logging"

	"go.uber.org/zap"
)

var commandTemplate = template.Must(template.New("command").Parse(`---
description: {{ printf "%q" .Description }}
---
# {{ .Title }}

{{ .Description }}

{{ if .Engine -}}
Load the BMAD workflow engine at ` + "`{{ .Engine }}`" + ` and run it with the workflow configuration ` + "`{{ .Source }}`" + `.
{{- else -}}
Load ` + "`{{ .Source }}`" + ` and follow its instructions exactly.
{{- end }}
`))

// commandInfix keeps tasks and tools from colliding with workflows of the
// same name.
var commandInfix = map[discovery.Kind]string{
	discovery.KindWorkflow: "",
	discovery.KindTask:     "task-",
	discovery.KindTool:     "tool-",
}

type commandView struct {
	Title       string
	Description string
	Source      string
	Engine      string
}

// generateCommands writes a markdown stub for every workflow, task, and tool
// of module.
func (i *Installer) generateCommands(projectDir, module string, collector discovery.Collector, result *Result) {
	log := i.log.Get(logging.CategoryDiscovery).With(zap.String("module", module))
	commandsDir := i.cfg.CommandsPath(projectDir)

	artifacts, err := collector.Commands(module)
	if err != nil {
		log.Warn("Could not collect commands", zap.Error(err))
		// Keep whatever was collected before the failure.
	}

	engine := i.workflowEngine(result.SourceRoot)
	// Identifier -> index in result.Commands for stubs written in this module.
	seen := make(map[string]int)
	for _, a := range artifacts {
		id := extract.Identifier(i.cfg.Target.Prefix, module, commandInfix[a.Kind]+a.Name)
		source := relPath(projectDir, a.Path)

		view := commandView{
			Title:       a.Title,
			Description: a.Description,
			Source:      source,
		}
		if a.Kind == discovery.KindWorkflow && path.Ext(source) != ".md" && engine != "" {
			view.Engine = relPath(projectDir, engine)
		}

		var buf bytes.Buffer
		if err := commandTemplate.Execute(&buf, view); err != nil {
			log.Warn("Skipping command, render failed", zap.String("source", source), zap.Error(err))
			result.Skipped = append(result.Skipped, Skip{Module: module, Unit: id, Reason: err.Error()})
			continue
		}

		file := id + ".md"
		if err := i.writer.WriteFile(commandsDir, file, buf.Bytes()); err != nil {
			log.Warn("Skipping command, write failed", zap.String("source", source), zap.Error(err))
			result.Skipped = append(result.Skipped, Skip{Module: module, Unit: id, Reason: err.Error()})
			continue
		}

		cmd := GeneratedCommand{
			Kind:       a.Kind,
			Module:     module,
			Identifier: id,
			Title:      a.Title,
			Source:     source,
			File:       file,
		}
		if prev, dup := seen[id]; dup {
			log.Warn("Identifier collision, overwriting earlier command",
				zap.String("identifier", id),
				zap.String("previous", result.Commands[prev].Source),
				zap.String("source", source))
			result.Commands[prev] = cmd
			continue
		}
		seen[id] = len(result.Commands)
		result.Commands = append(result.Commands, cmd)
	}
}

// workflowEngine returns the core workflow runner if the source tree ships one.
func (i *Installer) workflowEngine(sourceRoot string) string {
	p := filepath.Join(sourceRoot, i.cfg.Source.CoreModule, "tasks", "workflow.xml")
	if _, err := os.Stat(p); err != nil {
		return ""
	}
	return p
}
