package extract

import (
	"regexp"
	"strings"
)

var (
	menuBlockPattern = regexp.MustCompile(`(?s)<menu>(.*?)</menu>`)
	// Single-line entries only: <item ... cmd="trigger" ...>description</item>
	menuItemPattern = regexp.MustCompile(`<item\s+(?:[^>\n]*\s)?cmd="([^"\n]*)"[^>\n]*>([^<\n]*)</item>`)
)

// ExtractMenu returns the items of the first <menu> block in source order.
// A document without a menu block yields nil.
func ExtractMenu(text string) []MenuItem {
	block := menuBlockPattern.FindStringSubmatch(text)
	if block == nil {
		return nil
	}

	var items []MenuItem
	for _, m := range menuItemPattern.FindAllStringSubmatch(block[1], -1) {
		items = append(items, MenuItem{
			Trigger:     strings.TrimSpace(m[1]),
			Description: strings.TrimSpace(m[2]),
		})
	}
	return items
}
