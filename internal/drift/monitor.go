// Package drift watches for code changes that land without a matching
// knowledge-base update. The counter is deliberately in-memory only: a
// restart grants a clean slate, but within a run the warning repeats
// until an actual knowledge-base update resets it.
package drift

import (
	"path/filepath"

	appconfig "github.com/YoshitsuguKoike/ralphzero/internal/app/config"
)

// codeExtensions identifies files whose change should be documented.
var codeExtensions = map[string]bool{
	".ts":   true,
	".tsx":  true,
	".js":   true,
	".jsx":  true,
	".py":   true,
	".go":   true,
	".rs":   true,
	".java": true,
	".cpp":  true,
	".c":    true,
	".rb":   true,
	".php":  true,
}

// Monitor tracks consecutive commits where code changed but the
// knowledge base did not.
type Monitor struct {
	enabled       bool
	threshold     int
	knowledgeFile string

	counter int
}

// NewMonitor builds a Monitor for the knowledge-base file at
// knowledgePath.
func NewMonitor(cfg appconfig.LibrarianConfig, knowledgePath string) *Monitor {
	return &Monitor{
		enabled:       cfg.CheckEnabled,
		threshold:     cfg.WarningAfterIterations,
		knowledgeFile: filepath.Base(knowledgePath),
	}
}

// Counter returns the current consecutive-miss count.
func (m *Monitor) Counter() int { return m.counter }

// Inspect updates the counter from one commit's changed files and
// reports whether a drift warning is due. The warning is not suppressed
// after firing once: every check past the threshold warns again until a
// knowledge-base change resets the counter.
func (m *Monitor) Inspect(changedFiles []string) bool {
	if !m.enabled {
		return false
	}

	knowledgeChanged := false
	codeChanged := false
	for _, f := range changedFiles {
		if filepath.Base(f) == m.knowledgeFile {
			knowledgeChanged = true
		}
		if codeExtensions[filepath.Ext(f)] {
			codeChanged = true
		}
	}

	if knowledgeChanged {
		m.counter = 0
		return false
	}
	if codeChanged {
		m.counter++
	}

	return m.counter >= m.threshold
}
