package parser

import (
	"regexp"
	"strings"

	"github.com/xaenox/planner-bot/internal/identity"
)

var handlePattern = regexp.MustCompile(`@([A-Za-z0-9_]+)`)

// ExtractHandles pulls @handles out of text in order of appearance,
// dropping repeats, and returns the remaining text as the title. When
// nothing but handles is present the original text is kept as the title.
func ExtractHandles(text string) ([]string, string) {
	var handles []string
	seen := make(map[string]struct{})
	for _, m := range handlePattern.FindAllStringSubmatch(text, -1) {
		key := identity.Normalize(m[1])
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		handles = append(handles, m[1])
	}

	title := strings.Join(strings.Fields(handlePattern.ReplaceAllString(text, "")), " ")
	if title == "" {
		title = strings.TrimSpace(text)
	}
	return handles, title
}
