package agent

import "strings"

const (
	patternsHeading = "### Patterns Discovered"
	gotchasHeading  = "### Gotchas Encountered"
)

// Learnings holds the structured knowledge an agent reports back.
type Learnings struct {
	Patterns []string
	Gotchas  []string
}

// ExtractLearnings pulls bulleted patterns and gotchas out of agent
// output. Sections are delimited by their headings; any other heading
// ends the current section. Missing sections yield empty slices.
func ExtractLearnings(output string) Learnings {
	var l Learnings
	var current *[]string

	for _, line := range strings.Split(output, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == patternsHeading:
			current = &l.Patterns
		case trimmed == gotchasHeading:
			current = &l.Gotchas
		case strings.HasPrefix(trimmed, "#"):
			current = nil
		case current != nil && strings.HasPrefix(trimmed, "- "):
			item := strings.TrimSpace(strings.TrimPrefix(trimmed, "- "))
			if item != "" {
				*current = append(*current, item)
			}
		}
	}

	return l
}
