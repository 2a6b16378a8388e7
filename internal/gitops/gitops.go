// Package gitops wraps the version-control operations the iteration
// loop needs: stage, commit, revert, and change inspection. The loop
// depends only on the Git interface so tests can substitute a fake.
package gitops

// Git is the narrow version-control surface used by the iteration loop.
type Git interface {
	// IsRepo reports whether the project root is inside a repository.
	IsRepo() bool

	// CurrentBranch returns the short name of the checked-out branch.
	CurrentBranch() (string, error)

	// EnsureBranch checks out the named branch, creating it from the
	// current head when create is true and it does not exist yet.
	EnsureBranch(name string, create bool) error

	// IsClean reports whether the working tree has no pending changes.
	IsClean() (bool, error)

	// StageAll stages every change in the working tree, including
	// untracked files.
	StageAll() error

	// Commit records the staged changes. It returns false with a nil
	// error when nothing was staged; an empty commit is not an error.
	Commit(message string) (bool, error)

	// RevertToHead discards all uncommitted changes: hard reset to the
	// current head plus removal of untracked files and directories.
	RevertToHead() error

	// ChangedFiles returns the paths touched by the head commit.
	ChangedFiles() ([]string, error)
}
