package discovery

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// metadata is the descriptive subset shared by workflow.yaml files and
// markdown front matter.
type metadata struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// splitFrontmatter returns the YAML between a leading pair of "---" lines.
// Content without front matter yields "".
func splitFrontmatter(content string) string {
	lines := strings.Split(content, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return ""
	}

	var fm []string
	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "---" {
			return strings.Join(fm, "\n")
		}
		fm = append(fm, line)
	}
	// Unterminated block is not front matter.
	return ""
}

// parseMetadata decodes YAML metadata, ignoring malformed documents.
func parseMetadata(doc string) metadata {
	var m metadata
	if strings.TrimSpace(doc) == "" {
		return m
	}
	if err := yaml.Unmarshal([]byte(doc), &m); err != nil {
		return metadata{}
	}
	return m
}
