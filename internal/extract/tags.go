package extract

import (
	"regexp"
	"strings"
)

var (
	// First opening <agent ...> tag carrying at least one attribute.
	agentTagPattern = regexp.MustCompile(`<agent\s+([^>\s][^>]*)>`)
	personaPattern  = regexp.MustCompile(`(?s)<persona>(.*?)</persona>`)
)

// Extract parses the first <agent> unit out of text.
// It returns (nil, false) when the document has no agent tag; the caller must
// skip the document rather than substitute defaults.
func Extract(text string, defaults Defaults) (*Record, bool) {
	m := agentTagPattern.FindStringSubmatch(text)
	if m == nil {
		return nil, false
	}
	attrs := m[1]

	rec := &Record{}
	rec.ID, _ = Attr(attrs, "id")
	rec.Name = FirstPresent(attrStrategy(attrs, "name"), Value(defaults.Name))
	rec.Title = FirstPresent(attrStrategy(attrs, "title"), Value(defaults.Title), Value(rec.Name))
	rec.Icon = FirstPresent(attrStrategy(attrs, "icon"), Value(defaults.Icon), Const(DefaultIcon))

	if pm := personaPattern.FindStringSubmatch(text); pm != nil {
		persona := pm[1]
		rec.Role = Element(persona, "role")
		rec.Identity = Element(persona, "identity")
		rec.CommunicationStyle = Element(persona, "communication_style")
		rec.Principles = Element(persona, "principles")
	}

	rec.Menu = ExtractMenu(text)
	return rec, true
}

// Attr finds a double-quoted attribute value inside an attribute list.
// The second return is false when the attribute is absent.
func Attr(attrs, name string) (string, bool) {
	re := regexp.MustCompile(`(?:^|\s)` + regexp.QuoteMeta(name) + `="([^"]*)"`)
	m := re.FindStringSubmatch(attrs)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// TagAttr locates the first <tag ...> opening element in text and returns the
// named attribute from it.
func TagAttr(text, tag, name string) (string, bool) {
	re := regexp.MustCompile(`<` + regexp.QuoteMeta(tag) + `\s+([^>]*)>`)
	m := re.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return Attr(m[1], name)
}

// Element returns the trimmed inner text of the first <name>...</name> element,
// or "" when absent.
func Element(text, name string) string {
	q := regexp.QuoteMeta(name)
	re := regexp.MustCompile(`(?s)<` + q + `>(.*?)</` + q + `>`)
	m := re.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func attrStrategy(attrs, name string) Strategy {
	return func() (string, bool) {
		v, ok := Attr(attrs, name)
		if !ok || strings.TrimSpace(v) == "" {
			return "", false
		}
		return v, true
	}
}
