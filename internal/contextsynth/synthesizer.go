// Package contextsynth assembles the size-bounded context handed to the
// agent: the knowledge-base document plus a tail of the progress
// journal, trimmed to a token budget. Synthesis is best-effort and never
// fails an iteration; overflow is reported as a warning, not an error.
package contextsynth

import (
	"fmt"
	"strings"

	"github.com/spf13/afero"

	appconfig "github.com/YoshitsuguKoike/ralphzero/internal/app/config"
	"github.com/YoshitsuguKoike/ralphzero/internal/story"
)

const (
	// trimMarker prefixes a progress tail that lost older lines to the
	// budget.
	trimMarker = "...(earlier progress trimmed for context budget)\n\n"

	// collapseNotice replaces the knowledge-base body when only headings
	// survive.
	collapseNotice = "...(knowledge base collapsed to headings for context budget)"

	// missingKnowledgeBase stands in for an absent knowledge-base file.
	missingKnowledgeBase = "No patterns documented yet."
)

// Artifact is the assembled context for one agent invocation.
type Artifact struct {
	KnowledgeBase   string
	ProgressTail    string
	Summary         string
	EstimatedTokens int

	TailTrimmed        bool
	KnowledgeCollapsed bool
	Warnings           []string
}

// Synthesizer builds context artifacts from the on-disk state files.
type Synthesizer struct {
	FS           afero.Fs
	PatternsPath string
	ProgressPath string
	Cfg          appconfig.ContextConfig
}

// NewSynthesizer builds a Synthesizer over the given files.
func NewSynthesizer(fsys afero.Fs, patternsPath, progressPath string, cfg appconfig.ContextConfig) *Synthesizer {
	return &Synthesizer{FS: fsys, PatternsPath: patternsPath, ProgressPath: progressPath, Cfg: cfg}
}

// estimateTokens is the cheap size heuristic: four characters per token.
func estimateTokens(texts ...string) int {
	total := 0
	for _, t := range texts {
		total += len(t)
	}
	return total / 4
}

// Synthesize assembles the bounded context for one iteration. The
// estimate never exceeds the budget by more than the trim marker's own
// size, regardless of how large the journal has grown.
func (s *Synthesizer) Synthesize(iteration int, item *story.Story) Artifact {
	a := Artifact{
		KnowledgeBase: s.loadKnowledgeBase(),
		ProgressTail:  s.loadProgressTail(),
	}
	if item != nil {
		a.Summary = fmt.Sprintf("Iteration %d - %s: %s (priority %d)", iteration, item.ID, item.Title, item.Priority)
	} else {
		a.Summary = fmt.Sprintf("Iteration %d", iteration)
	}

	budget := s.Cfg.TokenBudget
	if budget <= 0 || estimateTokens(a.KnowledgeBase, a.ProgressTail) <= budget {
		a.EstimatedTokens = estimateTokens(a.KnowledgeBase, a.ProgressTail)
		return a
	}

	// Knowledge base gets budget priority; the tail yields first.
	kbTokens := estimateTokens(a.KnowledgeBase)
	if kbTokens > budget && !s.Cfg.IncludeFullPatterns {
		a.KnowledgeBase = collapseToHeadings(a.KnowledgeBase)
		a.KnowledgeCollapsed = true
		a.Warnings = append(a.Warnings, "knowledge base exceeded context budget; collapsed to headings")
	}

	remainingChars := budget*4 - len(a.KnowledgeBase)
	if estimateTokens(a.KnowledgeBase, a.ProgressTail) > budget {
		a.ProgressTail = trimToChars(a.ProgressTail, remainingChars)
		a.TailTrimmed = true
		a.Warnings = append(a.Warnings, "progress tail trimmed to fit context budget")
	}

	a.EstimatedTokens = estimateTokens(a.KnowledgeBase, a.ProgressTail)
	if a.EstimatedTokens > budget+len(trimMarker) {
		a.Warnings = append(a.Warnings, fmt.Sprintf("context estimate %d tokens still over budget %d", a.EstimatedTokens, budget))
	}
	return a
}

func (s *Synthesizer) loadKnowledgeBase() string {
	data, err := afero.ReadFile(s.FS, s.PatternsPath)
	if err != nil {
		return missingKnowledgeBase
	}
	return string(data)
}

// loadProgressTail returns the last MaxProgressLines lines of the
// journal, or the whole file if shorter.
func (s *Synthesizer) loadProgressTail() string {
	data, err := afero.ReadFile(s.FS, s.ProgressPath)
	if err != nil {
		return ""
	}

	maxLines := s.Cfg.MaxProgressLines
	if maxLines <= 0 {
		return string(data)
	}

	lines := strings.Split(string(data), "\n")
	if len(lines) <= maxLines {
		return string(data)
	}
	return strings.Join(lines[len(lines)-maxLines:], "\n")
}

// trimToChars drops leading lines until the tail plus the trim marker
// fits in maxChars. Cuts happen only at line boundaries.
func trimToChars(text string, maxChars int) string {
	if maxChars <= len(trimMarker) {
		return trimMarker
	}

	lines := strings.Split(text, "\n")
	for start := 0; start < len(lines); start++ {
		candidate := trimMarker + strings.Join(lines[start:], "\n")
		if len(candidate) <= maxChars {
			return candidate
		}
	}
	return trimMarker
}

// collapseToHeadings keeps only markdown heading lines plus a notice.
func collapseToHeadings(text string) string {
	var headings []string
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			headings = append(headings, line)
		}
	}
	headings = append(headings, "", collapseNotice)
	return strings.Join(headings, "\n")
}
