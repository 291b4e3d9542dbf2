package installer

import (
	"bytes"
	"text/template"

	"bmadkiro/internal/extract"
	"bmadkiro/internal/logging"

	"go.uber.org/zap"
)

var moduleSteeringTemplate = template.Must(template.New("module").Parse(`---
inclusion: manual
---
# BMAD module: {{ .Module }}

{{ if .Agents -}}
## Agents

{{ range .Agents -}}
- {{ .Icon }} **{{ .Title }}**: ` + "`{{ .Identifier }}`" + ` (prompt: ` + "`{{ $.AgentsDir }}/{{ .PromptFile }}`" + `)
{{ end }}
{{ end -}}
{{ if .Commands -}}
## Commands

{{ range .Commands -}}
- ` + "`{{ .Identifier }}`" + ` ({{ .Kind }}): {{ .Title }}
{{ end }}
{{ end -}}
Source: ` + "`{{ .Source }}`" + `
`))

var overviewSteeringTemplate = template.Must(template.New("overview").Parse(`---
inclusion: always
---
# BMAD Method

This project has BMAD Method agents installed for Kiro CLI.

{{ if .Modules -}}
Installed modules:

{{ range .Modules -}}
- **{{ .Name }}**: {{ .Agents }} agent(s), {{ .Commands }} command(s). See ` + "`{{ .File }}`" + `.
{{ end }}
{{ end -}}
Start an agent with ` + "`kiro-cli chat --agent <identifier>`" + `. Agent identifiers start with ` + "`{{ .Prefix }}-`" + `.
`))

type moduleSteeringView struct {
	Module    string
	Source    string
	AgentsDir string
	Agents    []GeneratedAgent
	Commands  []GeneratedCommand
}

type overviewModule struct {
	Name     string
	Agents   int
	Commands int
	File     string
}

type overviewView struct {
	Prefix  string
	Modules []overviewModule
}

// generateSteering writes one manual-inclusion steering file per module and
// an always-included overview.
func (i *Installer) generateSteering(projectDir string, result *Result, agents map[string][]GeneratedAgent, commands map[string][]GeneratedCommand) {
	log := i.log.Get(logging.CategoryInstall)
	dir := i.cfg.SteeringPath(projectDir)

	overviewFile := extract.Identifier(i.cfg.Target.Prefix, "overview", "") + ".md"
	overview := overviewView{Prefix: i.cfg.Target.Prefix}
	for _, module := range result.Modules {
		file := extract.Identifier(i.cfg.Target.Prefix, module, "") + ".md"
		if file == overviewFile {
			reason := "module steering file would replace " + overviewFile
			log.Warn("Skipping module steering file", zap.String("module", module), zap.String("file", file))
			result.Skipped = append(result.Skipped, Skip{Module: module, Unit: file, Reason: reason})
			continue
		}
		view := moduleSteeringView{
			Module:    module,
			Source:    relPath(projectDir, result.SourceRoot) + "/" + module,
			AgentsDir: relPath(projectDir, i.cfg.AgentsPath(projectDir)),
			Agents:    agents[module],
			Commands:  commands[module],
		}
		if i.writeSteering(dir, file, moduleSteeringTemplate, view, result, log) {
			overview.Modules = append(overview.Modules, overviewModule{
				Name:     module,
				Agents:   len(view.Agents),
				Commands: len(view.Commands),
				File:     file,
			})
		}
	}

	i.writeSteering(dir, overviewFile, overviewSteeringTemplate, overview, result, log)
}

func (i *Installer) writeSteering(dir, file string, tmpl *template.Template, view any, result *Result, log *zap.Logger) bool {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, view); err != nil {
		log.Warn("Skipping steering file, render failed", zap.String("file", file), zap.Error(err))
		result.Skipped = append(result.Skipped, Skip{Unit: file, Reason: err.Error()})
		return false
	}
	if err := i.writer.WriteFile(dir, file, buf.Bytes()); err != nil {
		log.Warn("Skipping steering file, write failed", zap.String("file", file), zap.Error(err))
		result.Skipped = append(result.Skipped, Skip{Unit: file, Reason: err.Error()})
		return false
	}
	result.Steering = append(result.Steering, file)
	return true
}
