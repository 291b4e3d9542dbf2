package extract

import (
	"regexp"
	"strings"
)

var (
	// Unicode spaces (NBSP, em space, ideographic space) and \v count as
	// whitespace, not junk.
	whitespaceRun  = regexp.MustCompile(`[\s\v\p{Z}\x{FEFF}]+`)
	identifierJunk = regexp.MustCompile(`[^a-z0-9-]`)
)

// Sanitize turns a display name into a filesystem and schema safe fragment:
// lower-case, whitespace runs collapsed to "-", anything outside [a-z0-9-]
// dropped. Sanitize(Sanitize(s)) == Sanitize(s).
//
// Distinct names can sanitize to the same fragment ("Dev Team" and "dev-team");
// callers that turn the result into filenames will overwrite each other.
func Sanitize(s string) string {
	s = strings.ToLower(s)
	s = whitespaceRun.ReplaceAllString(s, "-")
	return identifierJunk.ReplaceAllString(s, "")
}

// Identifier builds the shared stem for every generated artifact of a unit,
// e.g. Identifier("bmad", "bmm", "pm") == "bmad-bmm-pm".
func Identifier(prefix, module, unit string) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{prefix, module, unit} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return Sanitize(strings.Join(parts, "-"))
}
