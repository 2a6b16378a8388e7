// Package state owns the on-disk story catalog and the append-only
// progress journal. All catalog mutations are lock-protected
// read-modify-write cycles finished by an atomic rename, so no reader
// ever observes a partially written file.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/YoshitsuguKoike/ralphzero/internal/infra/fs"
	"github.com/YoshitsuguKoike/ralphzero/internal/story"
	"github.com/YoshitsuguKoike/ralphzero/internal/validator/prd"
)

// Sentinel errors let callers branch on a tag instead of catching broad
// failures. A missing or corrupt catalog is a recoverable condition for
// the caller to decide on, never a crash.
var (
	// ErrPRDNotFound reports a missing catalog file.
	ErrPRDNotFound = errors.New("prd.json not found")

	// ErrStoryNotFound reports an update against an unknown story id.
	ErrStoryNotFound = errors.New("story not found")

	// ErrCorruptState reports malformed persisted JSON or a catalog that
	// fails validation on read.
	ErrCorruptState = errors.New("corrupt state")
)

// journalHeaderLines is the size of the initialization header once
// surrounding blank lines are stripped; a journal at or below this
// length holds no meaningful progress.
const journalHeaderLines = 8

// Store manages persistent run state rooted at a project directory.
type Store struct {
	FS           afero.Fs
	Root         string
	PRDPath      string
	ProgressPath string

	now func() time.Time
}

// NewStore creates a Store over the given filesystem and paths.
func NewStore(fsys afero.Fs, root, prdPath, progressPath string) *Store {
	return &Store{
		FS:           fsys,
		Root:         root,
		PRDPath:      prdPath,
		ProgressPath: progressPath,
		now:          time.Now,
	}
}

// LoadPRD reads and decodes the catalog.
func (s *Store) LoadPRD() (*story.PRD, error) {
	data, err := afero.ReadFile(s.FS, s.PRDPath)
	if err != nil {
		if exists, _ := afero.Exists(s.FS, s.PRDPath); !exists {
			return nil, fmt.Errorf("%w: %s", ErrPRDNotFound, s.PRDPath)
		}
		return nil, fmt.Errorf("failed to read %s: %w", s.PRDPath, err)
	}

	var p story.PRD
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON in %s: %v", ErrCorruptState, s.PRDPath, err)
	}
	return &p, nil
}

// FindNextStory returns the lowest-priority incomplete story, or nil when
// every story passes.
func (s *Store) FindNextStory() (*story.Story, error) {
	p, err := s.LoadPRD()
	if err != nil {
		return nil, err
	}
	return p.FindNext(), nil
}

// Validate runs schema and business-rule validation over the catalog.
func (s *Store) Validate() (bool, []string) {
	p, err := s.LoadPRD()
	if err != nil {
		return false, []string{err.Error()}
	}
	return prd.Validate(p)
}

// Stories returns all stories in catalog order.
func (s *Store) Stories() ([]story.Story, error) {
	p, err := s.LoadPRD()
	if err != nil {
		return nil, err
	}
	return p.UserStories, nil
}

// UpdateStoryStatus atomically flips a story's passes flag (and notes).
// The read-modify-write runs under an exclusive lock scoped to the
// catalog; the catalog is re-validated before anything is written, and
// the write is temp-file + rename so concurrent readers never see a
// half-written file.
func (s *Store) UpdateStoryStatus(id string, passes bool, notes string) error {
	release, err := fs.LockFile(s.FS, s.PRDPath+".lock")
	if err != nil {
		return err
	}
	defer release()

	p, err := s.LoadPRD()
	if err != nil {
		return err
	}

	if valid, errs := prd.Validate(p); !valid {
		return fmt.Errorf("%w: %s", ErrCorruptState, strings.Join(errs, "; "))
	}

	target := p.FindByID(id)
	if target == nil {
		return fmt.Errorf("%w: %s", ErrStoryNotFound, id)
	}
	target.Passes = passes
	if notes != "" {
		target.Notes = notes
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %w", err)
	}
	data = append(data, '\n')

	return fs.WriteFileAtomic(s.FS, s.PRDPath, data)
}

// AppendProgress appends one rendered journal entry under an exclusive
// append lock. Prior entries are never touched.
func (s *Store) AppendProgress(rec IterationRecord) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = s.now()
	}
	return fs.AppendExclusive(s.FS, s.ProgressPath, []byte(rec.Render()))
}

// InitializeProgress writes the journal header for a fresh branch.
func (s *Store) InitializeProgress(project, branch string) error {
	header := renderProgressHeader(project, branch, s.now())
	return afero.WriteFile(s.FS, s.ProgressPath, []byte(header), 0o644)
}

// ArchiveMeta is the manifest written next to archived state files.
type ArchiveMeta struct {
	Project    string `yaml:"project"`
	Branch     string `yaml:"branch"`
	ArchivedAt string `yaml:"archived_at"`
	Stories    int    `yaml:"stories"`
	Passed     int    `yaml:"passed"`
}

// ArchiveIfBranchChanged copies the catalog and journal into a dated
// archive directory when the recorded branch differs from newBranch and
// the journal holds more than its header. It returns the archive
// directory, or "" for a no-op. Archive failures are reported but never
// block the run.
func (s *Store) ArchiveIfBranchChanged(newBranch string) (string, error) {
	p, err := s.LoadPRD()
	if err != nil {
		if errors.Is(err, ErrPRDNotFound) {
			return "", nil // nothing to archive
		}
		return "", err
	}

	if p.BranchName == newBranch {
		return "", nil
	}

	if exists, _ := afero.Exists(s.FS, s.ProgressPath); exists {
		content, err := afero.ReadFile(s.FS, s.ProgressPath)
		if err != nil {
			return "", fmt.Errorf("failed to read journal: %w", err)
		}
		if len(strings.Split(strings.TrimSpace(string(content)), "\n")) <= journalHeaderLines {
			return "", nil // header only, no meaningful progress
		}
	}

	oldFeature := strings.TrimPrefix(p.BranchName, story.BranchPrefix)
	archiveDir := filepath.Join(s.Root, "archive", fmt.Sprintf("%s-%s", s.now().Format("2006-01-02"), oldFeature))

	if err := fs.CopyFile(s.FS, s.PRDPath, filepath.Join(archiveDir, "prd.json")); err != nil {
		return "", fmt.Errorf("failed to archive catalog: %w", err)
	}
	if exists, _ := afero.Exists(s.FS, s.ProgressPath); exists {
		if err := fs.CopyFile(s.FS, s.ProgressPath, filepath.Join(archiveDir, "progress.txt")); err != nil {
			return "", fmt.Errorf("failed to archive journal: %w", err)
		}
	}

	total, passed := p.Counts()
	meta := ArchiveMeta{
		Project:    p.Project,
		Branch:     p.BranchName,
		ArchivedAt: s.now().UTC().Format(time.RFC3339),
		Stories:    total,
		Passed:     passed,
	}
	metaData, err := yaml.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("failed to marshal archive meta: %w", err)
	}
	if err := afero.WriteFile(s.FS, filepath.Join(archiveDir, "meta.yml"), metaData, 0o644); err != nil {
		return "", fmt.Errorf("failed to write archive meta: %w", err)
	}

	return archiveDir, nil
}
