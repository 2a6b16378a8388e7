// Package story defines the PRD catalog and its work items.
package story

import "sort"

const (
	// IDPrefix is the required prefix for story identifiers.
	IDPrefix = "US-"

	// BranchPrefix is the required namespace for PRD branch names.
	BranchPrefix = "ralph/"

	// RequiredCriterion must appear in every story's acceptance criteria.
	RequiredCriterion = "Typecheck passes"
)

// Story is a single plannable unit of work. Stories are created by an
// external authoring process and are never deleted, only marked passing.
type Story struct {
	ID                 string   `json:"id"`
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	AcceptanceCriteria []string `json:"acceptanceCriteria"`
	Priority           int      `json:"priority"`
	Passes             bool     `json:"passes"`
	Notes              string   `json:"notes,omitempty"`
}

// PRD is the full catalog of stories plus run-level metadata.
type PRD struct {
	Project     string  `json:"project"`
	BranchName  string  `json:"branchName"`
	Description string  `json:"description"`
	UserStories []Story `json:"userStories"`
}

// FindNext returns the incomplete story with the numerically smallest
// priority, or nil if every story passes. Priorities are unique by
// catalog invariant, so the result is deterministic.
func (p *PRD) FindNext() *Story {
	var next *Story
	for i := range p.UserStories {
		s := &p.UserStories[i]
		if s.Passes {
			continue
		}
		if next == nil || s.Priority < next.Priority {
			next = s
		}
	}
	return next
}

// FindByID returns the story with the given id, or nil.
func (p *PRD) FindByID(id string) *Story {
	for i := range p.UserStories {
		if p.UserStories[i].ID == id {
			return &p.UserStories[i]
		}
	}
	return nil
}

// Incomplete returns the stories that do not pass yet, ordered by priority.
func (p *PRD) Incomplete() []Story {
	var out []Story
	for _, s := range p.UserStories {
		if !s.Passes {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out
}

// Counts returns the total and passed story counts.
func (p *PRD) Counts() (total, passed int) {
	total = len(p.UserStories)
	for _, s := range p.UserStories {
		if s.Passes {
			passed++
		}
	}
	return total, passed
}
