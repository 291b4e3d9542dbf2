package extract

import "strings"

// Strategy is one step of a fallback chain. It reports whether it produced a
// value.
type Strategy func() (string, bool)

// FirstPresent returns the value of the first strategy that produces one, or
// "" if none do.
func FirstPresent(strategies ...Strategy) string {
	for _, s := range strategies {
		if s == nil {
			continue
		}
		if v, ok := s(); ok {
			return v
		}
	}
	return ""
}

// Value is present when s is not blank.
func Value(s string) Strategy {
	return func() (string, bool) {
		if strings.TrimSpace(s) == "" {
			return "", false
		}
		return s, true
	}
}

// Const is always present.
func Const(s string) Strategy {
	return func() (string, bool) { return s, true }
}
