package state

import (
	"fmt"
	"strings"
	"time"
)

const (
	// StatusPassed marks a successful iteration in the journal.
	StatusPassed = "PASSED"

	// FailedStatusPrefix starts every failure status (FAILED_<reason>).
	FailedStatusPrefix = "FAILED"

	separator   = "================================================================================"
	timeLayout  = "2006-01-02 15:04:05"
	headerTitle = "RALPH ZERO PROGRESS LOG"
)

// IterationRecord is one append-only journal entry. Once appended it is
// immutable; the journal is never rewritten by this system.
type IterationRecord struct {
	Timestamp time.Time
	Iteration int
	StoryID   string
	Status    string
	Changes   []string
	Learnings []string
	Gotchas   []string
}

// FailedStatus formats a failure status string for the given reason.
func FailedStatus(reason string) string {
	return FailedStatusPrefix + "_" + reason
}

// Render formats the record as the fixed journal block.
func (r IterationRecord) Render() string {
	statusIcon := r.Status
	switch {
	case r.Status == StatusPassed:
		statusIcon = "✅ " + StatusPassed
	case strings.HasPrefix(r.Status, FailedStatusPrefix):
		statusIcon = "❌ " + r.Status
	}

	lines := []string{
		"",
		separator,
		fmt.Sprintf("[%s] ITERATION %d - %s", r.Timestamp.Format(timeLayout), r.Iteration, r.StoryID),
		separator,
		"STATUS: " + statusIcon,
		"",
	}

	if len(r.Changes) > 0 {
		lines = append(lines, "Changes Made:")
		for _, c := range r.Changes {
			lines = append(lines, "  - "+c)
		}
		lines = append(lines, "")
	}

	if len(r.Learnings) > 0 {
		lines = append(lines, "Learnings:")
		for _, l := range r.Learnings {
			lines = append(lines, "  - "+l)
		}
		lines = append(lines, "")
	}

	// Gotchas are always rendered so every block has the same shape
	lines = append(lines, "Gotchas:")
	if len(r.Gotchas) > 0 {
		for _, g := range r.Gotchas {
			lines = append(lines, "  - "+g)
		}
	} else {
		lines = append(lines, "  - None")
	}

	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

// renderProgressHeader formats the journal header written once per branch.
func renderProgressHeader(project, branch string, started time.Time) string {
	lines := []string{
		separator,
		headerTitle,
		separator,
		"Project: " + project,
		"Branch: " + branch,
		"Started: " + started.Format(timeLayout),
		"",
		separator,
		"",
	}
	return strings.Join(lines, "\n")
}
