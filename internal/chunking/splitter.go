package chunking

import (
	"regexp"
	"strings"
)

// headingRe matches lines opening with a numbered ("1."), lettered ("A.") or
// roman-numeral ("IV.") heading prefix.
var headingRe = regexp.MustCompile(`^\s*(?:\d+|[A-Z]|[IVXLCDM]+)\.(?:\s|$)`)

// SplitHeadings splits text into sections at heading lines. Each heading
// starts a new section and stays attached to the text that follows it; text
// before the first heading forms its own section. Whitespace-only sections
// are dropped.
func SplitHeadings(text string) []string {
	var sections []string
	var current []string

	flush := func() {
		if len(current) == 0 {
			return
		}
		section := strings.TrimSpace(strings.Join(current, "\n"))
		if section != "" {
			sections = append(sections, section)
		}
		current = nil
	}

	for _, line := range strings.Split(text, "\n") {
		if headingRe.MatchString(line) {
			flush()
		}
		current = append(current, line)
	}
	flush()

	return sections
}
