package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	appconfig "github.com/YoshitsuguKoike/ralphzero/internal/app/config"
)

// DefaultPath is the configuration file looked up when no path is given.
const DefaultPath = "ralph.json"

// RawSettings represents the structure of ralph.json.
// Pointer fields distinguish "absent" from "zero value" so defaults only
// fill what the file left out, and Save round-trips losslessly.
type RawSettings struct {
	AgentCommand    *string `json:"agent_command"`
	AgentMode       *string `json:"agent_mode"`
	Model           *string `json:"model"`
	MaxIterations   *int    `json:"max_iterations"`
	AgentTimeoutSec *int    `json:"agent_timeout_sec"`
	ContextStrategy *string `json:"context_window_strategy"`

	ContextConfig *RawContextConfig  `json:"context_config"`
	Files         *RawFiles          `json:"files"`
	QualityGates  map[string]RawGate `json:"quality_gates"`
	Git           *RawGit            `json:"git"`
	Librarian     *RawLibrarian      `json:"librarian"`
}

type RawContextConfig struct {
	MaxProgressLines    *int  `json:"max_progress_lines"`
	IncludeFullPatterns *bool `json:"include_full_agents_md"`
	TokenBudget         *int  `json:"token_budget"`
}

type RawFiles struct {
	PRD             *string `json:"prd"`
	Progress        *string `json:"progress"`
	Patterns        *string `json:"patterns"`
	OrchestratorLog *string `json:"orchestrator_log"`
}

type RawGate struct {
	Cmd        string            `json:"cmd"`
	Blocking   *bool             `json:"blocking"`
	Timeout    *int              `json:"timeout"`
	WorkingDir string            `json:"working_dir,omitempty"`
	Env        map[string]string `json:"env,omitempty"`
}

type RawGit struct {
	CommitPrefix     *string `json:"commit_prefix"`
	AutoCreateBranch *bool   `json:"auto_create_branch"`
	RequireCleanTree *bool   `json:"require_clean_tree"`
}

type RawLibrarian struct {
	CheckEnabled           *bool `json:"check_enabled"`
	WarningAfterIterations *int  `json:"warning_after_iterations"`
}

// ValidationError reports every problem found in a configuration file.
// Configuration problems are fatal; the run aborts before the loop starts.
type ValidationError struct {
	Path     string
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %s", e.Path, strings.Join(e.Problems, "; "))
}

// LoadSettings loads configuration from ralph.json.
// An empty path means DefaultPath; a missing default file yields pure
// defaults, while an explicitly given missing path is an error.
func LoadSettings(path string) (*appconfig.AppConfig, error) {
	explicit := path != ""
	if path == "" {
		path = DefaultPath
	}

	settings := &RawSettings{}
	configSource := "default"
	settingPath := ""

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, settings); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		configSource = "json"
		settingPath = path
	case os.IsNotExist(err) && !explicit:
		// No ralph.json: run with defaults
	default:
		return nil, fmt.Errorf("failed to read configuration %s: %w", path, err)
	}

	applyDefaults(settings)

	if err := validateSettings(settings, path); err != nil {
		return nil, err
	}

	return buildAppConfig(settings, configSource, settingPath), nil
}

// applyDefaults fills in default values for any nil fields
func applyDefaults(s *RawSettings) {
	if s.AgentCommand == nil {
		s.AgentCommand = strPtr("auto")
	}
	if s.AgentMode == nil {
		s.AgentMode = strPtr("cli")
	}
	if s.Model == nil {
		s.Model = strPtr("claude-3-7-sonnet-20250219")
	}
	if s.MaxIterations == nil {
		s.MaxIterations = intPtr(50)
	}
	if s.AgentTimeoutSec == nil {
		s.AgentTimeoutSec = intPtr(3600) // 1 hour per agent invocation
	}
	if s.ContextStrategy == nil {
		s.ContextStrategy = strPtr("synthesized")
	}

	if s.ContextConfig == nil {
		s.ContextConfig = &RawContextConfig{}
	}
	if s.ContextConfig.MaxProgressLines == nil {
		s.ContextConfig.MaxProgressLines = intPtr(100)
	}
	if s.ContextConfig.IncludeFullPatterns == nil {
		s.ContextConfig.IncludeFullPatterns = boolPtr(true)
	}
	if s.ContextConfig.TokenBudget == nil {
		s.ContextConfig.TokenBudget = intPtr(8000)
	}

	if s.Files == nil {
		s.Files = &RawFiles{}
	}
	if s.Files.PRD == nil {
		s.Files.PRD = strPtr("prd.json")
	}
	if s.Files.Progress == nil {
		s.Files.Progress = strPtr("progress.txt")
	}
	if s.Files.Patterns == nil {
		s.Files.Patterns = strPtr("AGENTS.md")
	}
	if s.Files.OrchestratorLog == nil {
		s.Files.OrchestratorLog = strPtr("orchestrator.log")
	}

	if s.QualityGates == nil {
		s.QualityGates = map[string]RawGate{}
	}
	for name, gate := range s.QualityGates {
		if gate.Blocking == nil {
			gate.Blocking = boolPtr(true)
		}
		if gate.Timeout == nil {
			gate.Timeout = intPtr(60)
		}
		s.QualityGates[name] = gate
	}

	if s.Git == nil {
		s.Git = &RawGit{}
	}
	if s.Git.CommitPrefix == nil {
		s.Git.CommitPrefix = strPtr("[Ralph]")
	}
	if s.Git.AutoCreateBranch == nil {
		s.Git.AutoCreateBranch = boolPtr(true)
	}
	if s.Git.RequireCleanTree == nil {
		s.Git.RequireCleanTree = boolPtr(false)
	}

	if s.Librarian == nil {
		s.Librarian = &RawLibrarian{}
	}
	if s.Librarian.CheckEnabled == nil {
		s.Librarian.CheckEnabled = boolPtr(true)
	}
	if s.Librarian.WarningAfterIterations == nil {
		s.Librarian.WarningAfterIterations = intPtr(3)
	}
}

// validateSettings checks value ranges and enums after defaulting
func validateSettings(s *RawSettings, path string) error {
	var problems []string

	switch *s.AgentMode {
	case "cli", "api", "sdk", "mock":
	default:
		problems = append(problems, fmt.Sprintf("agent_mode must be cli, api, sdk, or mock (got %q)", *s.AgentMode))
	}

	if *s.MaxIterations <= 0 {
		problems = append(problems, fmt.Sprintf("max_iterations must be positive (got %d)", *s.MaxIterations))
	}
	if *s.AgentTimeoutSec <= 0 {
		problems = append(problems, fmt.Sprintf("agent_timeout_sec must be positive (got %d)", *s.AgentTimeoutSec))
	}
	if *s.ContextConfig.TokenBudget <= 0 {
		problems = append(problems, fmt.Sprintf("context_config.token_budget must be positive (got %d)", *s.ContextConfig.TokenBudget))
	}
	if *s.ContextConfig.MaxProgressLines <= 0 {
		problems = append(problems, fmt.Sprintf("context_config.max_progress_lines must be positive (got %d)", *s.ContextConfig.MaxProgressLines))
	}

	for name, gate := range s.QualityGates {
		if strings.TrimSpace(gate.Cmd) == "" {
			problems = append(problems, fmt.Sprintf("quality_gates.%s.cmd must not be empty", name))
		}
		if *gate.Timeout <= 0 {
			problems = append(problems, fmt.Sprintf("quality_gates.%s.timeout must be positive (got %d)", name, *gate.Timeout))
		}
	}

	if *s.Librarian.WarningAfterIterations <= 0 {
		problems = append(problems, fmt.Sprintf("librarian.warning_after_iterations must be positive (got %d)", *s.Librarian.WarningAfterIterations))
	}

	if len(problems) > 0 {
		return &ValidationError{Path: path, Problems: problems}
	}
	return nil
}

// buildAppConfig converts RawSettings to an immutable AppConfig
func buildAppConfig(s *RawSettings, configSource, settingPath string) *appconfig.AppConfig {
	gates := make(map[string]appconfig.QualityGate, len(s.QualityGates))
	for name, g := range s.QualityGates {
		gates[name] = appconfig.QualityGate{
			Cmd:        g.Cmd,
			Blocking:   *g.Blocking,
			TimeoutSec: *g.Timeout,
			WorkingDir: g.WorkingDir,
			Env:        g.Env,
		}
	}

	return appconfig.NewAppConfig(appconfig.Params{
		AgentCommand:     *s.AgentCommand,
		AgentMode:        *s.AgentMode,
		Model:            *s.Model,
		MaxIterations:    *s.MaxIterations,
		InvokeTimeoutSec: *s.AgentTimeoutSec,
		ContextStrategy:  *s.ContextStrategy,
		Context: appconfig.ContextConfig{
			MaxProgressLines:    *s.ContextConfig.MaxProgressLines,
			IncludeFullPatterns: *s.ContextConfig.IncludeFullPatterns,
			TokenBudget:         *s.ContextConfig.TokenBudget,
		},
		Files: appconfig.FilesConfig{
			PRD:             *s.Files.PRD,
			Progress:        *s.Files.Progress,
			Patterns:        *s.Files.Patterns,
			OrchestratorLog: *s.Files.OrchestratorLog,
		},
		QualityGates: gates,
		Git: appconfig.GitConfig{
			CommitPrefix:     *s.Git.CommitPrefix,
			AutoCreateBranch: *s.Git.AutoCreateBranch,
			RequireCleanTree: *s.Git.RequireCleanTree,
		},
		Librarian: appconfig.LibrarianConfig{
			CheckEnabled:           *s.Librarian.CheckEnabled,
			WarningAfterIterations: *s.Librarian.WarningAfterIterations,
		},
		ConfigSource: configSource,
		SettingPath:  settingPath,
	})
}

// SaveSettings re-serializes the configuration back to path.
// Every recognized field is written, so Load → Save → Load is lossless.
func SaveSettings(cfg appconfig.Config, path string) error {
	if path == "" {
		path = cfg.SettingPath()
	}
	if path == "" {
		path = DefaultPath
	}

	gates := make(map[string]RawGate, len(cfg.QualityGates()))
	for name, g := range cfg.QualityGates() {
		gates[name] = RawGate{
			Cmd:        g.Cmd,
			Blocking:   boolPtr(g.Blocking),
			Timeout:    intPtr(g.TimeoutSec),
			WorkingDir: g.WorkingDir,
			Env:        g.Env,
		}
	}

	ctx := cfg.Context()
	files := cfg.Files()
	git := cfg.Git()
	librarian := cfg.Librarian()

	raw := &RawSettings{
		AgentCommand:    strPtr(cfg.AgentCommand()),
		AgentMode:       strPtr(cfg.AgentMode()),
		Model:           strPtr(cfg.Model()),
		MaxIterations:   intPtr(cfg.MaxIterations()),
		AgentTimeoutSec: intPtr(int(cfg.InvokeTimeout().Seconds())),
		ContextStrategy: strPtr(cfg.ContextStrategy()),
		ContextConfig: &RawContextConfig{
			MaxProgressLines:    intPtr(ctx.MaxProgressLines),
			IncludeFullPatterns: boolPtr(ctx.IncludeFullPatterns),
			TokenBudget:         intPtr(ctx.TokenBudget),
		},
		Files: &RawFiles{
			PRD:             strPtr(files.PRD),
			Progress:        strPtr(files.Progress),
			Patterns:        strPtr(files.Patterns),
			OrchestratorLog: strPtr(files.OrchestratorLog),
		},
		QualityGates: gates,
		Git: &RawGit{
			CommitPrefix:     strPtr(git.CommitPrefix),
			AutoCreateBranch: boolPtr(git.AutoCreateBranch),
			RequireCleanTree: boolPtr(git.RequireCleanTree),
		},
		Librarian: &RawLibrarian{
			CheckEnabled:           boolPtr(librarian.CheckEnabled),
			WarningAfterIterations: intPtr(librarian.WarningAfterIterations),
		},
	}

	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}
	data = append(data, '\n')

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to rename %s to %s: %w", tmp, path, err)
	}
	return nil
}

func strPtr(v string) *string { return &v }
func intPtr(v int) *int       { return &v }
func boolPtr(v bool) *bool    { return &v }
