// Package prompts renders the per-iteration agent prompt from an
// embedded template.
package prompts

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/YoshitsuguKoike/ralphzero/internal/contextsynth"
	"github.com/YoshitsuguKoike/ralphzero/internal/story"
)

//go:embed templates/iteration.md
var iterationTemplate string

var iterationTmpl = template.Must(template.New("iteration").Parse(iterationTemplate))

// IterationData feeds the iteration prompt template.
type IterationData struct {
	Iteration          int
	Project            string
	StoryID            string
	Title              string
	Description        string
	AcceptanceCriteria []string
	KnowledgeBase      string
	ProgressTail       string
}

// BuildIterationPrompt renders the full prompt for one agent invocation.
func BuildIterationPrompt(iteration int, project string, item *story.Story, ctx contextsynth.Artifact) (string, error) {
	var sb strings.Builder
	err := iterationTmpl.Execute(&sb, IterationData{
		Iteration:          iteration,
		Project:            project,
		StoryID:            item.ID,
		Title:              item.Title,
		Description:        item.Description,
		AcceptanceCriteria: item.AcceptanceCriteria,
		KnowledgeBase:      ctx.KnowledgeBase,
		ProgressTail:       ctx.ProgressTail,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render iteration prompt: %w", err)
	}
	return sb.String(), nil
}
