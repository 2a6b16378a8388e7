package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSettings(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ralph.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadSettingsDefaults(t *testing.T) {
	// point at a directory with no ralph.json
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { os.Chdir(old) })

	cfg, err := LoadSettings("")
	require.NoError(t, err)

	assert.Equal(t, "auto", cfg.AgentCommand())
	assert.Equal(t, "cli", cfg.AgentMode())
	assert.Equal(t, 50, cfg.MaxIterations())
	assert.Equal(t, time.Hour, cfg.InvokeTimeout())
	assert.Equal(t, "synthesized", cfg.ContextStrategy())
	assert.Equal(t, 8000, cfg.Context().TokenBudget)
	assert.Equal(t, 100, cfg.Context().MaxProgressLines)
	assert.Equal(t, "prd.json", cfg.Files().PRD)
	assert.Equal(t, "AGENTS.md", cfg.Files().Patterns)
	assert.Equal(t, "[Ralph]", cfg.Git().CommitPrefix)
	assert.True(t, cfg.Git().AutoCreateBranch)
	assert.False(t, cfg.Git().RequireCleanTree)
	assert.True(t, cfg.Librarian().CheckEnabled)
	assert.Equal(t, 3, cfg.Librarian().WarningAfterIterations)
	assert.Equal(t, "default", cfg.ConfigSource())
}

func TestLoadSettingsPartialFileKeepsDefaults(t *testing.T) {
	path := writeSettings(t, `{
  "max_iterations": 5,
  "quality_gates": {
    "typecheck": {"cmd": "npm run typecheck"}
  }
}`)

	cfg, err := LoadSettings(path)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.MaxIterations())
	assert.Equal(t, "cli", cfg.AgentMode(), "absent fields stay at defaults")

	gates := cfg.QualityGates()
	require.Contains(t, gates, "typecheck")
	assert.Equal(t, "npm run typecheck", gates["typecheck"].Cmd)
	assert.True(t, gates["typecheck"].Blocking, "gate blocking defaults to true")
	assert.Equal(t, 60, gates["typecheck"].TimeoutSec, "gate timeout defaults to 60s")
	assert.Equal(t, "json", cfg.ConfigSource())
	assert.Equal(t, path, cfg.SettingPath())
}

func TestLoadSettingsExplicitMissingPathIsError(t *testing.T) {
	_, err := LoadSettings(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestLoadSettingsMalformedJSON(t *testing.T) {
	path := writeSettings(t, "{broken")

	_, err := LoadSettings(path)
	assert.Error(t, err)
}

func TestLoadSettingsValidation(t *testing.T) {
	path := writeSettings(t, `{
  "agent_mode": "telepathy",
  "max_iterations": -1,
  "quality_gates": {"bad": {"cmd": "  "}}
}`)

	_, err := LoadSettings(path)
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, path, verr.Path)
	assert.Len(t, verr.Problems, 3, "every problem reported at once")
}

func TestSaveSettingsRoundTrip(t *testing.T) {
	path := writeSettings(t, `{
  "agent_mode": "api",
  "model": "claude-3-7-sonnet-20250219",
  "max_iterations": 7,
  "agent_timeout_sec": 120,
  "context_config": {"max_progress_lines": 40, "include_full_agents_md": false, "token_budget": 4000},
  "files": {"prd": "work/prd.json"},
  "quality_gates": {
    "typecheck": {"cmd": "tsc --noEmit", "blocking": true, "timeout": 90},
    "lint": {"cmd": "eslint .", "blocking": false, "timeout": 30, "working_dir": "web", "env": {"CI": "1"}}
  },
  "git": {"commit_prefix": "[Bot]", "auto_create_branch": false, "require_clean_tree": true},
  "librarian": {"check_enabled": false, "warning_after_iterations": 5}
}`)

	cfg, err := LoadSettings(path)
	require.NoError(t, err)

	savedPath := filepath.Join(t.TempDir(), "saved.json")
	require.NoError(t, SaveSettings(cfg, savedPath))

	reloaded, err := LoadSettings(savedPath)
	require.NoError(t, err)

	assert.Equal(t, cfg.AgentMode(), reloaded.AgentMode())
	assert.Equal(t, cfg.Model(), reloaded.Model())
	assert.Equal(t, cfg.MaxIterations(), reloaded.MaxIterations())
	assert.Equal(t, cfg.InvokeTimeout(), reloaded.InvokeTimeout())
	assert.Equal(t, cfg.Context(), reloaded.Context())
	assert.Equal(t, cfg.Files(), reloaded.Files())
	assert.Equal(t, cfg.QualityGates(), reloaded.QualityGates())
	assert.Equal(t, cfg.Git(), reloaded.Git())
	assert.Equal(t, cfg.Librarian(), reloaded.Librarian())
}
