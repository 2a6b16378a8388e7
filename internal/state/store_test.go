package state

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YoshitsuguKoike/ralphzero/internal/story"
)

func validPRD() *story.PRD {
	return &story.PRD{
		Project:     "shop",
		BranchName:  "ralph/checkout",
		Description: "checkout flow",
		UserStories: []story.Story{
			{
				ID:                 "US-001",
				Title:              "Cart totals",
				Description:        "compute totals",
				AcceptanceCriteria: []string{"Totals update", story.RequiredCriterion},
				Priority:           1,
			},
			{
				ID:                 "US-002",
				Title:              "Payment",
				Description:        "charge card",
				AcceptanceCriteria: []string{story.RequiredCriterion},
				Priority:           2,
			},
		},
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	fsys := afero.NewMemMapFs()
	s := NewStore(fsys, "/project", "/project/prd.json", "/project/progress.txt")
	s.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

func writePRD(t *testing.T, s *Store, p *story.PRD) {
	t.Helper()
	data, err := json.MarshalIndent(p, "", "  ")
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(s.FS, s.PRDPath, data, 0o644))
}

func TestLoadPRDNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.LoadPRD()
	assert.True(t, errors.Is(err, ErrPRDNotFound))
}

func TestLoadPRDCorrupt(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, afero.WriteFile(s.FS, s.PRDPath, []byte("{not json"), 0o644))

	_, err := s.LoadPRD()
	assert.True(t, errors.Is(err, ErrCorruptState))
}

func TestFindNextStoryPicksLowestPriority(t *testing.T) {
	s := newTestStore(t)
	p := validPRD()
	p.UserStories[0].Passes = true
	writePRD(t, s, p)

	next, err := s.FindNextStory()
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, "US-002", next.ID)
}

func TestFindNextStoryAllPassed(t *testing.T) {
	s := newTestStore(t)
	p := validPRD()
	for i := range p.UserStories {
		p.UserStories[i].Passes = true
	}
	writePRD(t, s, p)

	next, err := s.FindNextStory()
	require.NoError(t, err)
	assert.Nil(t, next)
}

func TestUpdateStoryStatus(t *testing.T) {
	s := newTestStore(t)
	writePRD(t, s, validPRD())

	require.NoError(t, s.UpdateStoryStatus("US-001", true, "done in iteration 3"))

	p, err := s.LoadPRD()
	require.NoError(t, err)
	got := p.FindByID("US-001")
	require.NotNil(t, got)
	assert.True(t, got.Passes)
	assert.Equal(t, "done in iteration 3", got.Notes)

	// other stories untouched
	assert.False(t, p.FindByID("US-002").Passes)
}

func TestUpdateStoryStatusUnknownID(t *testing.T) {
	s := newTestStore(t)
	writePRD(t, s, validPRD())

	err := s.UpdateStoryStatus("US-999", true, "")
	assert.True(t, errors.Is(err, ErrStoryNotFound))
}

func TestUpdateStoryStatusRejectsInvalidCatalog(t *testing.T) {
	s := newTestStore(t)
	p := validPRD()
	p.BranchName = "main" // violates branch namespace rule
	writePRD(t, s, p)

	err := s.UpdateStoryStatus("US-001", true, "")
	assert.True(t, errors.Is(err, ErrCorruptState))
}

func TestAppendProgressIsAppendOnly(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.InitializeProgress("shop", "ralph/checkout"))

	before, err := afero.ReadFile(s.FS, s.ProgressPath)
	require.NoError(t, err)

	rec := IterationRecord{
		Iteration: 1,
		StoryID:   "US-001",
		Status:    StatusPassed,
		Changes:   []string{"initial work"},
	}
	require.NoError(t, s.AppendProgress(rec))

	after, err := afero.ReadFile(s.FS, s.ProgressPath)
	require.NoError(t, err)

	// prior bytes must be preserved exactly
	assert.True(t, strings.HasPrefix(string(after), string(before)))
	assert.Contains(t, string(after), "ITERATION 1 - US-001")
}

func TestAppendProgressMonotonic(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.InitializeProgress("shop", "ralph/checkout"))

	for i := 1; i <= 3; i++ {
		rec := IterationRecord{Iteration: i, StoryID: "US-001", Status: StatusPassed}
		require.NoError(t, s.AppendProgress(rec))
	}

	content, err := afero.ReadFile(s.FS, s.ProgressPath)
	require.NoError(t, err)

	i1 := strings.Index(string(content), "ITERATION 1")
	i2 := strings.Index(string(content), "ITERATION 2")
	i3 := strings.Index(string(content), "ITERATION 3")
	assert.True(t, i1 < i2 && i2 < i3, "entries must appear in append order")
}

func TestArchiveSkipsSameBranch(t *testing.T) {
	s := newTestStore(t)
	writePRD(t, s, validPRD())

	dir, err := s.ArchiveIfBranchChanged("ralph/checkout")
	require.NoError(t, err)
	assert.Empty(t, dir)
}

func TestArchiveSkipsHeaderOnlyJournal(t *testing.T) {
	s := newTestStore(t)
	writePRD(t, s, validPRD())
	require.NoError(t, s.InitializeProgress("shop", "ralph/checkout"))

	dir, err := s.ArchiveIfBranchChanged("ralph/payments")
	require.NoError(t, err)
	assert.Empty(t, dir)
}

func TestArchiveOnBranchChange(t *testing.T) {
	s := newTestStore(t)
	p := validPRD()
	p.UserStories[0].Passes = true
	writePRD(t, s, p)
	require.NoError(t, s.InitializeProgress("shop", "ralph/checkout"))
	require.NoError(t, s.AppendProgress(IterationRecord{
		Iteration: 1, StoryID: "US-001", Status: StatusPassed,
	}))

	dir, err := s.ArchiveIfBranchChanged("ralph/payments")
	require.NoError(t, err)
	assert.Equal(t, "/project/archive/2025-06-01-checkout", dir)

	for _, name := range []string{"prd.json", "progress.txt", "meta.yml"} {
		exists, err := afero.Exists(s.FS, dir+"/"+name)
		require.NoError(t, err)
		assert.True(t, exists, "archive must contain %s", name)
	}

	meta, err := afero.ReadFile(s.FS, dir+"/meta.yml")
	require.NoError(t, err)
	assert.Contains(t, string(meta), "branch: ralph/checkout")
	assert.Contains(t, string(meta), "passed: 1")
}

func TestArchiveWithoutPRDIsNoop(t *testing.T) {
	s := newTestStore(t)

	dir, err := s.ArchiveIfBranchChanged("ralph/anything")
	require.NoError(t, err)
	assert.Empty(t, dir)
}
