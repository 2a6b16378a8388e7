package state

import (
	"strings"
	"testing"
	"time"
)

func TestIterationRecordRenderPassed(t *testing.T) {
	rec := IterationRecord{
		Timestamp: time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC),
		Iteration: 7,
		StoryID:   "US-003",
		Status:    StatusPassed,
		Changes:   []string{"added login form", "wired session store"},
		Learnings: []string{"session middleware must run before auth"},
	}

	got := rec.Render()

	wantLines := []string{
		"[2025-03-14 09:26:53] ITERATION 7 - US-003",
		"STATUS: ✅ PASSED",
		"Changes Made:",
		"  - added login form",
		"  - wired session store",
		"Learnings:",
		"  - session middleware must run before auth",
		"Gotchas:",
		"  - None",
	}
	for _, want := range wantLines {
		if !strings.Contains(got, want) {
			t.Errorf("rendered block missing %q:\n%s", want, got)
		}
	}
}

func TestIterationRecordRenderFailed(t *testing.T) {
	rec := IterationRecord{
		Timestamp: time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC),
		Iteration: 8,
		StoryID:   "US-003",
		Status:    FailedStatus("QUALITY_GATES_FAILED"),
		Gotchas:   []string{"Failed: QUALITY_GATES_FAILED"},
	}

	got := rec.Render()

	if !strings.Contains(got, "STATUS: ❌ FAILED_QUALITY_GATES_FAILED") {
		t.Errorf("missing failure status line:\n%s", got)
	}
	if strings.Contains(got, "Changes Made:") {
		t.Errorf("failure block must not contain a changes section:\n%s", got)
	}
	if !strings.Contains(got, "  - Failed: QUALITY_GATES_FAILED") {
		t.Errorf("missing failure gotcha:\n%s", got)
	}
}

func TestIterationRecordRenderSeparators(t *testing.T) {
	rec := IterationRecord{
		Timestamp: time.Now(),
		Iteration: 1,
		StoryID:   "US-001",
		Status:    StatusPassed,
	}

	got := rec.Render()

	if n := strings.Count(got, separator); n != 2 {
		t.Errorf("want 2 separator lines, got %d", n)
	}
	if len(separator) != 80 {
		t.Errorf("separator must be 80 chars, got %d", len(separator))
	}
	if !strings.HasPrefix(got, "\n") {
		t.Error("block must start with an empty line so appends stay readable")
	}
	if !strings.HasSuffix(got, "\n") {
		t.Error("block must end with a newline")
	}
}

func TestRenderProgressHeader(t *testing.T) {
	got := renderProgressHeader("shop", "ralph/checkout", time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC))

	for _, want := range []string{
		"RALPH ZERO PROGRESS LOG",
		"Project: shop",
		"Branch: ralph/checkout",
		"Started: 2025-01-02 03:04:05",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("header missing %q:\n%s", want, got)
		}
	}
}
