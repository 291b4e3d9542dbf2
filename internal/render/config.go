package render

import (
	"fmt"

	"bmadkiro/internal/extract"
)

// AgentConfig is the Kiro CLI agent descriptor written to <identifier>.json.
type AgentConfig struct {
	Name             string                    `json:"name"`
	Description      string                    `json:"description"`
	Prompt           string                    `json:"prompt"`
	Tools            []string                  `json:"tools"`
	McpServers       map[string]map[string]any `json:"mcpServers"`
	UseLegacyMcpJson bool                      `json:"useLegacyMcpJson"`
	Resources        []string                  `json:"resources"`
}

// Validator is the schema contract the formatter depends on.
type Validator interface {
	Validate(doc any) error
}

// Formatter builds agent configurations. Every config it returns has passed
// validation.
type Formatter struct {
	validator Validator
}

// NewFormatter creates a formatter bound to a validator.
func NewFormatter(v Validator) *Formatter {
	return &Formatter{validator: v}
}

// PromptRef is the prompt reference stored in the config for identifier.
func PromptRef(identifier string) string {
	return "file://./" + PromptFile(identifier)
}

// PromptFile is the prompt document filename for identifier.
func PromptFile(identifier string) string {
	return identifier + "-prompt.md"
}

// ConfigFile is the agent configuration filename for identifier.
func ConfigFile(identifier string) string {
	return identifier + ".json"
}

// Config builds and validates the configuration for rec. On validation failure
// no config is returned.
func (f *Formatter) Config(rec *extract.Record, identifier string) (*AgentConfig, error) {
	cfg := &AgentConfig{
		Name: identifier,
		Description: extract.FirstPresent(
			extract.Value(rec.Role),
			extract.Value(rec.Title),
			extract.Const("BMAD agent "+rec.Name),
		),
		Prompt:           PromptRef(identifier),
		Tools:            []string{"*"},
		McpServers:       map[string]map[string]any{},
		UseLegacyMcpJson: true,
		Resources:        []string{},
	}

	if err := f.validator.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid agent config %q: %w", identifier, err)
	}
	return cfg, nil
}
