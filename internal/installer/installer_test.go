package installer

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"bmadkiro/internal/config"
	"bmadkiro/internal/discovery"
	"bmadkiro/internal/logging"
	"bmadkiro/internal/render"
	"bmadkiro/internal/schema"
	"bmadkiro/internal/state"
	"bmadkiro/internal/writer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const (
	pmAgent = `<agent name="pm" title="Product Manager" icon="🧭"><persona><role>Leads planning</role></persona><menu><item cmd="plan">Create plan</item></menu></agent>`

	analystAgent = "# Analyst\n\n```xml\n" + `<agent id="bmad/bmm/agents/analyst.md" name="analyst" title="Business Analyst" icon="📊">
<persona>
<role>Strategic Business Analyst</role>
<identity>Senior analyst.</identity>
<communication_style>Probing.</communication_style>
<principles>Evidence first.</principles>
</persona>
<menu>
<item cmd="*help">Show menu</item>
<item cmd="*brainstorm">Brainstorm</item>
</menu>
</agent>` + "\n```\n"

	masterAgent = `<agent name="BMad Master" title="BMad Master Executor" icon="🧙"></agent>`
)

type fixture struct {
	project string
	source  string
	target  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	project := t.TempDir()
	f := &fixture{
		project: project,
		source:  filepath.Join(project, "bmad"),
		target:  filepath.Join(project, ".kiro"),
	}
	return f
}

func (f *fixture) write(t *testing.T, rel, content string) {
	t.Helper()
	full := filepath.Join(f.project, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0644))
}

func (f *fixture) seedStandard(t *testing.T) {
	t.Helper()
	f.write(t, "bmad/core/agents/bmad-master.md", masterAgent)
	f.write(t, "bmad/core/tasks/workflow.xml", `<task id="bmad/core/tasks/workflow.xml" name="Execute Workflow"><objective>Run a workflow</objective></task>`)
	f.write(t, "bmad/bmm/agents/pm.md", pmAgent)
	f.write(t, "bmad/bmm/agents/analyst.md", analystAgent)
	f.write(t, "bmad/bmm/agents/README.md", "# About these agents\n\nNo tag here.")
	f.write(t, "bmad/bmm/workflows/2-plan/prd/workflow.yaml", "name: prd\ndescription: Create a PRD\n")
	f.write(t, "bmad/bmm/tools/shard-doc.xml", `<tool name="Shard Document" description="Split docs">`)
	f.write(t, "bmad/_cfg/agents/ignored.md", pmAgent)
}

func (f *fixture) files(t *testing.T, sub string) []string {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(f.target, sub))
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}

func newInstaller(t *testing.T, opts ...Option) *Installer {
	t.Helper()
	v, err := schema.New()
	require.NoError(t, err)
	return New(config.DefaultConfig(), v, logging.Nop(), opts...)
}

// =============================================================================
// FULL RUNS
// =============================================================================

func TestSetup_FreshInstall(t *testing.T) {
	f := newFixture(t)
	f.seedStandard(t)

	res, err := newInstaller(t).Setup(context.Background(), f.project, "", Options{})
	require.NoError(t, err)

	assert.Equal(t, state.Fresh, res.State)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, []string{"core", "bmm"}, res.Modules)
	assert.Equal(t, []string{"bmad/bmm/agents/README.md"}, res.Unrecognized)
	assert.Empty(t, res.Skipped)

	assert.Equal(t, []string{
		"bmad-bmm-analyst-prompt.md",
		"bmad-bmm-analyst.json",
		"bmad-bmm-pm-prompt.md",
		"bmad-bmm-pm.json",
		"bmad-core-bmad-master-prompt.md",
		"bmad-core-bmad-master.json",
	}, f.files(t, "agents"))
	require.Len(t, res.Agents, 3)
	assert.Equal(t, "bmad-core-bmad-master", res.Agents[0].Identifier, "core module first")

	assert.Equal(t, []string{
		"bmad-bmm-prd.md",
		"bmad-bmm-tool-shard-doc.md",
		"bmad-core-task-workflow.md",
	}, f.files(t, "commands"))
	counts := res.CommandCounts()
	assert.Equal(t, 1, counts[discovery.KindWorkflow])
	assert.Equal(t, 1, counts[discovery.KindTask])
	assert.Equal(t, 1, counts[discovery.KindTool])

	assert.Equal(t, []string{"bmad-bmm.md", "bmad-core.md", "bmad-overview.md"}, f.files(t, "steering/bmad"))
	assert.ElementsMatch(t, []string{"bmad-core.md", "bmad-bmm.md", "bmad-overview.md"}, res.Steering)
}

func TestSetup_RoundTripScenario(t *testing.T) {
	f := newFixture(t)
	f.write(t, "bmad/bmm/agents/pm.md", pmAgent)

	_, err := newInstaller(t).Setup(context.Background(), f.project, "", Options{SkipCommands: true, SkipSteering: true})
	require.NoError(t, err)

	prompt, err := os.ReadFile(filepath.Join(f.target, "agents", "bmad-bmm-pm-prompt.md"))
	require.NoError(t, err)
	assert.Contains(t, string(prompt), "## Role\n\nLeads planning")
	assert.Contains(t, string(prompt), "1. **plan**: Create plan")

	raw, err := os.ReadFile(filepath.Join(f.target, "agents", "bmad-bmm-pm.json"))
	require.NoError(t, err)
	var cfg render.AgentConfig
	require.NoError(t, json.Unmarshal(raw, &cfg))
	assert.True(t, strings.HasSuffix(cfg.Name, "-pm"))
	assert.Equal(t, "file://./bmad-bmm-pm-prompt.md", cfg.Prompt)

	v, err := schema.New()
	require.NoError(t, err)
	var generic map[string]any
	require.NoError(t, json.Unmarshal(raw, &generic))
	assert.NoError(t, v.Validate(generic))
}

func TestSetup_SourceMissing(t *testing.T) {
	f := newFixture(t)

	res, err := newInstaller(t).Setup(context.Background(), f.project, "", Options{})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrSourceMissing)
	_, statErr := os.Stat(f.target)
	assert.True(t, os.IsNotExist(statErr), "no partial output")
}

func TestSetup_NoTagProducesNoFiles(t *testing.T) {
	f := newFixture(t)
	f.write(t, "bmad/bmm/agents/notes.md", "# Notes\n\n<persona><role>orphan</role></persona>")

	res, err := newInstaller(t).Setup(context.Background(), f.project, "", Options{SkipCommands: true, SkipSteering: true})
	require.NoError(t, err)
	assert.Empty(t, res.Agents)
	assert.Empty(t, res.Skipped)
	assert.Len(t, res.Unrecognized, 1)
	assert.Empty(t, f.files(t, "agents"))
}

func TestSetup_EmptyModuleTree(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.MkdirAll(filepath.Join(f.source, "core", "tasks"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(f.source, "docs"), 0755))

	res, err := newInstaller(t).Setup(context.Background(), f.project, "", Options{})
	require.NoError(t, err)
	assert.Empty(t, res.Modules)
	assert.Empty(t, res.Agents)
	assert.Empty(t, res.Commands)
	assert.Empty(t, f.files(t, "agents"))
	assert.Empty(t, f.files(t, "commands"))
	assert.Equal(t, []string{"bmad-overview.md"}, res.Steering)
}

func TestSetup_ExistingTreeRegenerates(t *testing.T) {
	f := newFixture(t)
	f.write(t, "bmad/bmm/agents/pm.md", pmAgent)

	for _, sub := range []string{"agents", "commands", "steering"} {
		f.write(t, ".kiro/"+sub+"/user-owned.md", "mine")
		f.write(t, ".kiro/"+sub+"/bmad-stale.md", "old generated")
	}
	f.write(t, ".kiro/agents/bmad-bmm-pm-prompt.md", "outdated prompt")
	f.write(t, ".kiro/steering/bmad/bmad-removed-module.md", "old")

	res, err := newInstaller(t).Setup(context.Background(), f.project, "", Options{})
	require.NoError(t, err)
	assert.Equal(t, state.Existing, res.State)
	assert.NoError(t, res.Cleanup.Err)
	assert.Contains(t, res.Cleanup.Removed, "agents/bmad-stale.md")

	for _, sub := range []string{"agents", "commands", "steering"} {
		data, err := os.ReadFile(filepath.Join(f.target, sub, "user-owned.md"))
		require.NoError(t, err, "user file in %s must survive", sub)
		assert.Equal(t, "mine", string(data))
		_, err = os.Stat(filepath.Join(f.target, sub, "bmad-stale.md"))
		assert.True(t, os.IsNotExist(err), "stale generated file in %s must go", sub)
	}

	prompt, err := os.ReadFile(filepath.Join(f.target, "agents", "bmad-bmm-pm-prompt.md"))
	require.NoError(t, err)
	assert.NotEqual(t, "outdated prompt", string(prompt))
	assert.Equal(t, []string{"bmad-bmm.md", "bmad-overview.md"}, f.files(t, "steering/bmad"))
}

// =============================================================================
// PER-UNIT ISOLATION
// =============================================================================

// failOn fails writes whose base name is in names.
type failOn struct {
	writer.OSFileSystem
	names map[string]bool
}

func (f failOn) WriteFile(name string, data []byte, perm os.FileMode) error {
	if f.names[filepath.Base(name)] {
		return errors.New("disk full")
	}
	return f.OSFileSystem.WriteFile(name, data, perm)
}

func TestSetup_WriteFailureIsolatedToUnit(t *testing.T) {
	f := newFixture(t)
	f.write(t, "bmad/bmm/agents/pm.md", pmAgent)
	f.write(t, "bmad/bmm/agents/analyst.md", analystAgent)

	core, logs := observer.New(zap.WarnLevel)
	v, err := schema.New()
	require.NoError(t, err)
	inst := New(config.DefaultConfig(), v, logging.Wrap(zap.New(core), config.LoggingConfig{}),
		WithFileSystem(failOn{names: map[string]bool{"bmad-bmm-pm.json": true}}))

	res, err := inst.Setup(context.Background(), f.project, "", Options{SkipCommands: true, SkipSteering: true})
	require.NoError(t, err)

	require.Len(t, res.Skipped, 1)
	assert.Equal(t, "bmad-bmm-pm", res.Skipped[0].Unit)
	assert.Contains(t, res.Skipped[0].Reason, "disk full")
	require.Len(t, res.Agents, 1)
	assert.Equal(t, "bmad-bmm-analyst", res.Agents[0].Identifier)

	assert.Equal(t, []string{"bmad-bmm-analyst-prompt.md", "bmad-bmm-analyst.json"}, f.files(t, "agents"),
		"the failed pair leaves no file behind")
	assert.Equal(t, 1, logs.FilterMessage("Skipping agent after write failure").Len())
}

type rejectIDs map[string]bool

func (r rejectIDs) Validate(doc any) error {
	if cfg, ok := doc.(*render.AgentConfig); ok && r[cfg.Name] {
		return errors.New("schema: rejected")
	}
	return nil
}

func TestSetup_ValidationFailureDiscardsPair(t *testing.T) {
	f := newFixture(t)
	f.write(t, "bmad/bmm/agents/pm.md", pmAgent)
	f.write(t, "bmad/bmm/agents/analyst.md", analystAgent)

	inst := New(config.DefaultConfig(), rejectIDs{"bmad-bmm-pm": true}, nil)
	res, err := inst.Setup(context.Background(), f.project, "", Options{SkipCommands: true, SkipSteering: true})
	require.NoError(t, err)

	require.Len(t, res.Skipped, 1)
	assert.Equal(t, "bmad-bmm-pm", res.Skipped[0].Unit)
	assert.Equal(t, []string{"bmad-bmm-analyst-prompt.md", "bmad-bmm-analyst.json"}, f.files(t, "agents"))
}

func TestSetup_IdentifierCollisionOverwrites(t *testing.T) {
	f := newFixture(t)
	f.write(t, "bmad/bmm/agents/a-team.md", `<agent name="Dev Team" title="First"></agent>`)
	f.write(t, "bmad/bmm/agents/b-team.md", `<agent name="dev-team" title="Second"></agent>`)

	res, err := newInstaller(t).Setup(context.Background(), f.project, "", Options{SkipCommands: true, SkipSteering: true})
	require.NoError(t, err)

	require.Len(t, res.Agents, 1)
	assert.Equal(t, "bmad-bmm-dev-team", res.Agents[0].Identifier)
	assert.Equal(t, "Second", res.Agents[0].Title)
	assert.Equal(t, "bmad/bmm/agents/b-team.md", res.Agents[0].Source)

	assert.Equal(t, []string{"bmad-bmm-dev-team-prompt.md", "bmad-bmm-dev-team.json"}, f.files(t, "agents"))
	prompt, err := os.ReadFile(filepath.Join(f.target, "agents", "bmad-bmm-dev-team-prompt.md"))
	require.NoError(t, err)
	assert.Contains(t, string(prompt), "# 🤖 Second")
}

// =============================================================================
// OPTIONS & HELPERS
// =============================================================================

func TestSetup_ModuleFilter(t *testing.T) {
	f := newFixture(t)
	f.seedStandard(t)

	res, err := newInstaller(t).Setup(context.Background(), f.project, "", Options{Modules: []string{"bmm"}, SkipSteering: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"bmm"}, res.Modules)
	for _, a := range res.Agents {
		assert.Equal(t, "bmm", a.Module)
	}
	_, err = os.Stat(filepath.Join(f.target, "steering", "bmad"))
	assert.True(t, os.IsNotExist(err))
}

func TestSetup_CustomSourceDir(t *testing.T) {
	f := newFixture(t)
	f.write(t, "vendor/bmad/bmm/agents/pm.md", pmAgent)

	res, err := newInstaller(t).Setup(context.Background(), f.project, "vendor/bmad", Options{SkipCommands: true})
	require.NoError(t, err)
	require.Len(t, res.Agents, 1)
	assert.Equal(t, "vendor/bmad/bmm/agents/pm.md", res.Agents[0].Source)
}

func TestSetup_CancelledContext(t *testing.T) {
	f := newFixture(t)
	f.seedStandard(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := newInstaller(t).Setup(ctx, f.project, "", Options{})
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.Empty(t, res.Agents)
}

func TestCommandStubContent(t *testing.T) {
	f := newFixture(t)
	f.seedStandard(t)

	_, err := newInstaller(t).Setup(context.Background(), f.project, "", Options{SkipSteering: true})
	require.NoError(t, err)

	prd, err := os.ReadFile(filepath.Join(f.target, "commands", "bmad-bmm-prd.md"))
	require.NoError(t, err)
	assert.Contains(t, string(prd), `description: "Create a PRD"`)
	assert.Contains(t, string(prd), "`bmad/core/tasks/workflow.xml`")
	assert.Contains(t, string(prd), "`bmad/bmm/workflows/2-plan/prd/workflow.yaml`")

	tool, err := os.ReadFile(filepath.Join(f.target, "commands", "bmad-bmm-tool-shard-doc.md"))
	require.NoError(t, err)
	assert.Contains(t, string(tool), "# Shard Document")
	assert.Contains(t, string(tool), "Load `bmad/bmm/tools/shard-doc.xml` and follow its instructions exactly.")
}

func TestSteeringContent(t *testing.T) {
	f := newFixture(t)
	f.seedStandard(t)

	_, err := newInstaller(t).Setup(context.Background(), f.project, "", Options{})
	require.NoError(t, err)

	bmm, err := os.ReadFile(filepath.Join(f.target, "steering", "bmad", "bmad-bmm.md"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(bmm), "---\ninclusion: manual\n---\n"))
	assert.Contains(t, string(bmm), "`bmad-bmm-pm`")
	assert.Contains(t, string(bmm), "`.kiro/agents/bmad-bmm-pm-prompt.md`")
	assert.Contains(t, string(bmm), "`bmad-bmm-prd` (workflow)")

	overview, err := os.ReadFile(filepath.Join(f.target, "steering", "bmad", "bmad-overview.md"))
	require.NoError(t, err)
	assert.Contains(t, string(overview), "**core**: 1 agent(s), 1 command(s)")
	assert.Contains(t, string(overview), "**bmm**: 2 agent(s), 2 command(s)")
}

func TestClean_Standalone(t *testing.T) {
	f := newFixture(t)
	f.write(t, ".kiro/agents/bmad-x.json", "{}")
	f.write(t, ".kiro/agents/keep.json", "{}")

	report := newInstaller(t).Clean(f.project)
	assert.Equal(t, []string{"agents/bmad-x.json"}, report.Removed)
	assert.Equal(t, []string{"keep.json"}, f.files(t, "agents"))
}

func TestDetect(t *testing.T) {
	f := newFixture(t)
	inst := newInstaller(t)
	assert.Equal(t, state.Absent, inst.Detect(f.project, ""))
	f.write(t, "bmad/core/agents/a.md", "")
	assert.Equal(t, state.Fresh, inst.Detect(f.project, ""))
}

func TestSummary(t *testing.T) {
	res := &Result{
		State:      state.Existing,
		TargetRoot: "/p/.kiro",
		Modules:    []string{"core", "bmm"},
		Agents:     []GeneratedAgent{{Identifier: "bmad-bmm-pm"}},
		Commands:   []GeneratedCommand{{Kind: discovery.KindTask}, {Kind: discovery.KindTask}},
		Skipped:    []Skip{{Module: "bmm", Unit: "bmad-bmm-dev", Reason: "disk full"}},
	}
	out := Summary(res)
	assert.Contains(t, out, "core, bmm")
	assert.Contains(t, out, "existing")
	assert.Contains(t, out, "bmm/bmad-bmm-dev: disk full")
	assert.Contains(t, out, "kiro-cli chat --agent bmad-bmm-pm")
}

func TestSetup_CommandCollisionCountedOnce(t *testing.T) {
	f := newFixture(t)
	f.write(t, "bmad/bmm/agents/pm.md", pmAgent)
	f.write(t, "bmad/bmm/workflows/a/review/workflow.yaml", "name: first\ndescription: First review\n")
	f.write(t, "bmad/bmm/workflows/b/review/workflow.yaml", "name: second\ndescription: Second review\n")

	core, logs := observer.New(zap.WarnLevel)
	v, err := schema.New()
	require.NoError(t, err)
	inst := New(config.DefaultConfig(), v, logging.Wrap(zap.New(core), config.LoggingConfig{}))

	res, err := inst.Setup(context.Background(), f.project, "", Options{SkipSteering: true})
	require.NoError(t, err)

	assert.Equal(t, []string{"bmad-bmm-review.md"}, f.files(t, "commands"))
	require.Len(t, res.Commands, 1)
	assert.Equal(t, "second", res.Commands[0].Title)
	assert.Equal(t, 1, res.CommandCounts()[discovery.KindWorkflow])
	assert.Equal(t, 1, logs.FilterMessage("Identifier collision, overwriting earlier command").Len())

	stub, err := os.ReadFile(filepath.Join(f.target, "commands", "bmad-bmm-review.md"))
	require.NoError(t, err)
	assert.Contains(t, string(stub), "Second review")
}

func TestSetup_ModuleNamedOverviewKeepsOverview(t *testing.T) {
	f := newFixture(t)
	f.write(t, "bmad/overview/agents/guide.md", `<agent name="guide" title="Guide"></agent>`)

	res, err := newInstaller(t).Setup(context.Background(), f.project, "", Options{SkipCommands: true})
	require.NoError(t, err)

	require.Len(t, res.Agents, 1, "the module's agents are still generated")
	assert.Equal(t, []string{"bmad-overview.md"}, res.Steering)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, "overview", res.Skipped[0].Module)

	overview, err := os.ReadFile(filepath.Join(f.target, "steering", "bmad", "bmad-overview.md"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(overview), "---\ninclusion: always\n---\n"))
}
