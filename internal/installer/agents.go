package installer

import (
	"os"
	"path/filepath"
	"strings"

	"bmadkiro/internal/discovery"
	"bmadkiro/internal/extract"
	"bmadkiro/internal/logging"
	"bmadkiro/internal/render"
	"bmadkiro/internal/writer"

	"go.uber.org/zap"
)

// generateAgents writes one config/prompt pair per compiled agent of module.
// seen maps identifiers already written in this run to their index in
// result.Agents; a repeat overwrites the earlier pair on disk and in the result.
func (i *Installer) generateAgents(projectDir, module string, collector discovery.Collector, seen map[string]int, result *Result) {
	log := i.log.Get(logging.CategoryExtract).With(zap.String("module", module))
	agentsDir := i.cfg.AgentsPath(projectDir)

	paths, err := collector.Agents(module)
	if err != nil {
		log.Warn("Could not collect agents", zap.Error(err))
		return
	}

	for _, path := range paths {
		stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		source := relPath(projectDir, path)

		data, err := os.ReadFile(path)
		if err != nil {
			log.Warn("Skipping unreadable agent", zap.String("source", source), zap.Error(err))
			result.Skipped = append(result.Skipped, Skip{Module: module, Unit: stem, Reason: err.Error()})
			continue
		}

		rec, ok := extract.Extract(string(data), extract.Defaults{Name: stem, Title: stem})
		if !ok {
			log.Info("No agent tag, skipping", zap.String("source", source))
			result.Unrecognized = append(result.Unrecognized, source)
			continue
		}

		id := extract.Identifier(i.cfg.Target.Prefix, module, rec.Name)
		if prev, dup := seen[id]; dup {
			log.Warn("Identifier collision, overwriting earlier agent",
				zap.String("identifier", id),
				zap.String("previous", result.Agents[prev].Source),
				zap.String("source", source))
		}

		cfg, err := i.formatter.Config(rec, id)
		if err != nil {
			i.writer.Discard(agentsDir, id)
			i.dropAgent(seen, result, id)
			log.Warn("Skipping agent with invalid config", zap.String("source", source), zap.Error(err))
			result.Skipped = append(result.Skipped, Skip{Module: module, Unit: id, Reason: err.Error()})
			continue
		}

		pair := writer.Pair{Stem: id, Config: cfg, Content: render.Document(rec, id)}
		if err := i.writer.WritePair(agentsDir, pair); err != nil {
			i.dropAgent(seen, result, id)
			log.Warn("Skipping agent after write failure", zap.String("source", source), zap.Error(err))
			result.Skipped = append(result.Skipped, Skip{Module: module, Unit: id, Reason: err.Error()})
			continue
		}

		agent := GeneratedAgent{
			Module:     module,
			Identifier: id,
			Title:      rec.Title,
			Icon:       rec.Icon,
			Source:     source,
			ConfigFile: pair.ConfigName(),
			PromptFile: pair.ContentName(),
			MenuItems:  len(rec.Menu),
		}
		if prev, dup := seen[id]; dup {
			result.Agents[prev] = agent
		} else {
			seen[id] = len(result.Agents)
			result.Agents = append(result.Agents, agent)
		}
		log.Debug("Generated agent", zap.String("identifier", id), zap.Int("menu_items", agent.MenuItems))
	}
}

// dropAgent forgets an identifier whose files were just removed, so the
// result never lists a pair that is not on disk.
func (i *Installer) dropAgent(seen map[string]int, result *Result, id string) {
	idx, ok := seen[id]
	if !ok {
		return
	}
	result.Agents = append(result.Agents[:idx], result.Agents[idx+1:]...)
	delete(seen, id)
	for k, v := range seen {
		if v > idx {
			seen[k] = v - 1
		}
	}
}
