package gitops

import (
	"errors"
	"fmt"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

const (
	committerName  = "Ralph Zero"
	committerEmail = "ralph-zero@localhost"
)

// Repo implements Git over a local repository.
type Repo struct {
	root string
	repo *git.Repository

	now func() time.Time
}

// Open opens the repository at root.
func Open(root string) (*Repo, error) {
	repo, err := git.PlainOpen(root)
	if err != nil {
		return nil, fmt.Errorf("failed to open repository at %s: %w", root, err)
	}
	return &Repo{root: root, repo: repo, now: time.Now}, nil
}

// Init creates a fresh repository at root.
func Init(root string) (*Repo, error) {
	repo, err := git.PlainInit(root, false)
	if err != nil {
		return nil, fmt.Errorf("failed to init repository at %s: %w", root, err)
	}
	return &Repo{root: root, repo: repo, now: time.Now}, nil
}

func (r *Repo) IsRepo() bool { return r.repo != nil }

func (r *Repo) CurrentBranch() (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	if !head.Name().IsBranch() {
		return "", fmt.Errorf("HEAD is detached at %s", head.Hash())
	}
	return head.Name().Short(), nil
}

// EnsureBranch checks out name, creating it from the current head when
// create is true. Checking out the already-current branch is a no-op.
func (r *Repo) EnsureBranch(name string, create bool) error {
	if current, err := r.CurrentBranch(); err == nil && current == name {
		return nil
	}

	wt, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}

	branchRef := plumbing.NewBranchReferenceName(name)
	err = wt.Checkout(&git.CheckoutOptions{Branch: branchRef})
	if err == nil {
		return nil
	}
	if !errors.Is(err, plumbing.ErrReferenceNotFound) || !create {
		return fmt.Errorf("failed to checkout branch %s: %w", name, err)
	}

	if err := wt.Checkout(&git.CheckoutOptions{Branch: branchRef, Create: true}); err != nil {
		return fmt.Errorf("failed to create branch %s: %w", name, err)
	}
	return nil
}

func (r *Repo) IsClean() (bool, error) {
	wt, err := r.repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("failed to get worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return false, fmt.Errorf("failed to get status: %w", err)
	}
	return status.IsClean(), nil
}

func (r *Repo) StageAll() error {
	wt, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}
	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return fmt.Errorf("failed to stage changes: %w", err)
	}
	return nil
}

// Commit records the staged changes. Nothing staged is (false, nil):
// a work item may legitimately require no file changes.
func (r *Repo) Commit(message string) (bool, error) {
	wt, err := r.repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("failed to get worktree: %w", err)
	}

	status, err := wt.Status()
	if err != nil {
		return false, fmt.Errorf("failed to get status: %w", err)
	}
	if !hasStagedChanges(status) {
		return false, nil
	}

	_, err = wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  committerName,
			Email: committerEmail,
			When:  r.now(),
		},
	})
	if err != nil {
		return false, fmt.Errorf("failed to commit: %w", err)
	}
	return true, nil
}

func hasStagedChanges(status git.Status) bool {
	for _, s := range status {
		switch s.Staging {
		case git.Unmodified, git.Untracked:
			continue
		default:
			return true
		}
	}
	return false
}

// RevertToHead hard-resets to the head commit and removes untracked
// files and directories, restoring the last committed tree exactly.
func (r *Repo) RevertToHead() error {
	head, err := r.repo.Head()
	if err != nil {
		return fmt.Errorf("failed to resolve HEAD: %w", err)
	}

	wt, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}

	if err := wt.Reset(&git.ResetOptions{Mode: git.HardReset, Commit: head.Hash()}); err != nil {
		return fmt.Errorf("failed to hard reset: %w", err)
	}
	if err := wt.Clean(&git.CleanOptions{Dir: true}); err != nil {
		return fmt.Errorf("failed to clean untracked files: %w", err)
	}
	return nil
}

// ChangedFiles returns the paths touched by the head commit.
func (r *Repo) ChangedFiles() ([]string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve HEAD: %w", err)
	}

	commit, err := r.repo.CommitObject(head.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to load head commit: %w", err)
	}

	stats, err := commit.Stats()
	if err != nil {
		return nil, fmt.Errorf("failed to compute commit stats: %w", err)
	}

	files := make([]string, 0, len(stats))
	for _, s := range stats {
		files = append(files, s.Name)
	}
	return files, nil
}
