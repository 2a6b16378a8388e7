// Package prd validates the story catalog against its schema and
// business rules. Every rule reports independently so a broken catalog
// surfaces all problems at once.
package prd

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/YoshitsuguKoike/ralphzero/internal/story"
)

// Validate checks the PRD structure and business rules.
// It returns (true, nil) for a valid catalog, otherwise every violated
// rule as a message. A catalog failing any rule is rejected wholesale.
func Validate(p *story.PRD) (bool, []string) {
	var errs []string

	if strings.TrimSpace(p.Project) == "" {
		errs = append(errs, "missing required field: project")
	}
	if strings.TrimSpace(p.BranchName) == "" {
		errs = append(errs, "missing required field: branchName")
	} else if !strings.HasPrefix(p.BranchName, story.BranchPrefix) {
		errs = append(errs, fmt.Sprintf("branchName must start with %q", story.BranchPrefix))
	}
	if strings.TrimSpace(p.Description) == "" {
		errs = append(errs, "missing required field: description")
	}

	if len(p.UserStories) == 0 {
		errs = append(errs, "userStories array is empty")
	}

	seenIDs := map[string]bool{}
	seenPriorities := map[int]string{}

	for i, s := range p.UserStories {
		label := s.ID
		if label == "" {
			label = fmt.Sprintf("story %d", i)
		}

		if s.ID == "" {
			errs = append(errs, fmt.Sprintf("story %d: missing field 'id'", i))
		} else {
			// Normalize before comparing so visually identical ids collide
			id := norm.NFC.String(s.ID)
			if !strings.HasPrefix(id, story.IDPrefix) {
				errs = append(errs, fmt.Sprintf("%s: id must start with %q", label, story.IDPrefix))
			}
			if seenIDs[id] {
				errs = append(errs, fmt.Sprintf("duplicate story id: %s", s.ID))
			}
			seenIDs[id] = true
		}

		if strings.TrimSpace(s.Title) == "" {
			errs = append(errs, fmt.Sprintf("%s: missing field 'title'", label))
		}
		if strings.TrimSpace(s.Description) == "" {
			errs = append(errs, fmt.Sprintf("%s: missing field 'description'", label))
		}

		if prev, dup := seenPriorities[s.Priority]; dup {
			errs = append(errs, fmt.Sprintf("%s: duplicate priority %d (also used by %s)", label, s.Priority, prev))
		} else {
			seenPriorities[s.Priority] = label
		}

		if len(s.AcceptanceCriteria) == 0 {
			errs = append(errs, fmt.Sprintf("%s: acceptanceCriteria must be a non-empty array", label))
		} else if !containsCriterion(s.AcceptanceCriteria, story.RequiredCriterion) {
			errs = append(errs, fmt.Sprintf("%s: missing required %q criterion", label, story.RequiredCriterion))
		}
	}

	return len(errs) == 0, errs
}

func containsCriterion(criteria []string, want string) bool {
	want = norm.NFC.String(want)
	for _, c := range criteria {
		if norm.NFC.String(c) == want {
			return true
		}
	}
	return false
}
