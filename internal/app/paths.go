// Package app resolves run-level paths from configuration.
package app

import (
	"path/filepath"

	appconfig "github.com/YoshitsuguKoike/ralphzero/internal/app/config"
)

// Paths holds the absolute locations of the state files for one run.
type Paths struct {
	Root            string
	PRD             string
	Progress        string
	Patterns        string
	OrchestratorLog string
}

// ResolvePaths joins the configured file names onto the project root.
// Already-absolute overrides are kept as-is.
func ResolvePaths(root string, f appconfig.FilesConfig) Paths {
	resolve := func(p string) string {
		if filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(root, p)
	}
	return Paths{
		Root:            root,
		PRD:             resolve(f.PRD),
		Progress:        resolve(f.Progress),
		Patterns:        resolve(f.Patterns),
		OrchestratorLog: resolve(f.OrchestratorLog),
	}
}
