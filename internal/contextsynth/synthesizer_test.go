package contextsynth

import (
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "github.com/YoshitsuguKoike/ralphzero/internal/app/config"
	"github.com/YoshitsuguKoike/ralphzero/internal/story"
)

func newSynth(t *testing.T, cfg appconfig.ContextConfig) (*Synthesizer, afero.Fs) {
	t.Helper()
	fsys := afero.NewMemMapFs()
	return NewSynthesizer(fsys, "/p/AGENTS.md", "/p/progress.txt", cfg), fsys
}

func TestSynthesizeWithinBudget(t *testing.T) {
	s, fsys := newSynth(t, appconfig.ContextConfig{MaxProgressLines: 100, TokenBudget: 8000})
	require.NoError(t, afero.WriteFile(fsys, "/p/AGENTS.md", []byte("# Patterns\n- keep it simple\n"), 0o644))
	require.NoError(t, afero.WriteFile(fsys, "/p/progress.txt", []byte("line one\nline two\n"), 0o644))

	item := &story.Story{ID: "US-004", Title: "Search", Priority: 4}
	a := s.Synthesize(2, item)

	assert.Contains(t, a.KnowledgeBase, "keep it simple")
	assert.Contains(t, a.ProgressTail, "line two")
	assert.Equal(t, "Iteration 2 - US-004: Search (priority 4)", a.Summary)
	assert.False(t, a.TailTrimmed)
	assert.False(t, a.KnowledgeCollapsed)
	assert.Empty(t, a.Warnings)
}

func TestSynthesizeMissingFiles(t *testing.T) {
	s, _ := newSynth(t, appconfig.ContextConfig{MaxProgressLines: 100, TokenBudget: 8000})

	a := s.Synthesize(1, nil)

	assert.Equal(t, missingKnowledgeBase, a.KnowledgeBase)
	assert.Empty(t, a.ProgressTail)
}

func TestSynthesizeProgressTailLimit(t *testing.T) {
	s, fsys := newSynth(t, appconfig.ContextConfig{MaxProgressLines: 3, TokenBudget: 8000})
	require.NoError(t, afero.WriteFile(fsys, "/p/progress.txt", []byte("a\nb\nc\nd\ne"), 0o644))

	a := s.Synthesize(1, nil)

	assert.Equal(t, "c\nd\ne", a.ProgressTail)
}

func TestSynthesizeTrimsOversizedTail(t *testing.T) {
	s, fsys := newSynth(t, appconfig.ContextConfig{MaxProgressLines: 0, TokenBudget: 50})
	require.NoError(t, afero.WriteFile(fsys, "/p/AGENTS.md", []byte("# KB\n"), 0o644))

	// Well past the 50-token (200-char) budget.
	big := strings.Repeat("journal line with some content\n", 100)
	require.NoError(t, afero.WriteFile(fsys, "/p/progress.txt", []byte(big), 0o644))

	a := s.Synthesize(1, nil)

	assert.True(t, a.TailTrimmed)
	assert.True(t, strings.HasPrefix(a.ProgressTail, trimMarker))
	assert.LessOrEqual(t, a.EstimatedTokens, 50+len(trimMarker),
		"estimate may exceed budget only by the trim marker's size")
}

func TestSynthesizeCollapsesOversizedKnowledgeBase(t *testing.T) {
	s, fsys := newSynth(t, appconfig.ContextConfig{MaxProgressLines: 0, TokenBudget: 20})

	kb := "# Architecture\n" + strings.Repeat("prose about the system\n", 50) + "## Conventions\nmore prose\n"
	require.NoError(t, afero.WriteFile(fsys, "/p/AGENTS.md", []byte(kb), 0o644))

	a := s.Synthesize(1, nil)

	assert.True(t, a.KnowledgeCollapsed)
	assert.Contains(t, a.KnowledgeBase, "# Architecture")
	assert.Contains(t, a.KnowledgeBase, "## Conventions")
	assert.NotContains(t, a.KnowledgeBase, "prose about the system")
	assert.Contains(t, a.KnowledgeBase, collapseNotice)
}

func TestSynthesizeKeepsFullKnowledgeBaseWhenMandated(t *testing.T) {
	s, fsys := newSynth(t, appconfig.ContextConfig{MaxProgressLines: 0, TokenBudget: 20, IncludeFullPatterns: true})

	kb := "# Architecture\n" + strings.Repeat("prose about the system\n", 50)
	require.NoError(t, afero.WriteFile(fsys, "/p/AGENTS.md", []byte(kb), 0o644))

	a := s.Synthesize(1, nil)

	assert.False(t, a.KnowledgeCollapsed)
	assert.Contains(t, a.KnowledgeBase, "prose about the system")
}
