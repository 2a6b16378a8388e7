package config

import "time"

// Config provides read-only access to run configuration.
// This interface abstracts the configuration source (ralph.json or defaults)
// and keeps the orchestration layer independent of how values were loaded.
// Values are immutable for the duration of a run.
type Config interface {
	// Agent settings
	AgentCommand() string // Agent CLI command, or "auto" for detection
	AgentMode() string    // "cli", "api", or "mock"
	Model() string        // Model identifier for the API backend

	// Loop limits
	MaxIterations() int           // Iteration cap for a single run
	InvokeTimeout() time.Duration // Per-invocation agent timeout

	// Context synthesis
	ContextStrategy() string // Context window strategy ("synthesized")
	Context() ContextConfig

	// File paths and gates
	Files() FilesConfig
	QualityGates() map[string]QualityGate

	// Git and drift
	Git() GitConfig
	Librarian() LibrarianConfig

	// Metadata
	ConfigSource() string // "json" or "default"
	SettingPath() string  // Path to ralph.json if loaded from file
}

// ContextConfig bounds the synthesized context.
type ContextConfig struct {
	MaxProgressLines    int  // Tail lines taken from the progress journal
	IncludeFullPatterns bool // Never collapse the patterns doc when true
	TokenBudget         int  // Estimated token budget for the whole context
}

// FilesConfig holds the state file paths, relative to the project root.
type FilesConfig struct {
	PRD             string
	Progress        string
	Patterns        string
	OrchestratorLog string
}

// QualityGate is the immutable per-run definition of one check.
type QualityGate struct {
	Cmd        string
	Blocking   bool
	TimeoutSec int
	WorkingDir string
	Env        map[string]string
}

// Timeout returns the gate timeout as a Duration.
func (g QualityGate) Timeout() time.Duration {
	return time.Duration(g.TimeoutSec) * time.Second
}

// GitConfig controls commit formatting and branch policy.
type GitConfig struct {
	CommitPrefix     string
	AutoCreateBranch bool
	RequireCleanTree bool
}

// LibrarianConfig controls the drift monitor.
type LibrarianConfig struct {
	CheckEnabled           bool
	WarningAfterIterations int
}

// Params carries all values needed to build an AppConfig.
type Params struct {
	AgentCommand     string
	AgentMode        string
	Model            string
	MaxIterations    int
	InvokeTimeoutSec int
	ContextStrategy  string
	Context          ContextConfig
	Files            FilesConfig
	QualityGates     map[string]QualityGate
	Git              GitConfig
	Librarian        LibrarianConfig
	ConfigSource     string
	SettingPath      string
}

// AppConfig is the concrete implementation of Config.
type AppConfig struct {
	p Params
}

// NewAppConfig builds an immutable AppConfig from Params.
func NewAppConfig(p Params) *AppConfig {
	if p.QualityGates == nil {
		p.QualityGates = map[string]QualityGate{}
	}
	return &AppConfig{p: p}
}

func (c *AppConfig) AgentCommand() string { return c.p.AgentCommand }
func (c *AppConfig) AgentMode() string    { return c.p.AgentMode }
func (c *AppConfig) Model() string        { return c.p.Model }

func (c *AppConfig) MaxIterations() int { return c.p.MaxIterations }

func (c *AppConfig) InvokeTimeout() time.Duration {
	return time.Duration(c.p.InvokeTimeoutSec) * time.Second
}

func (c *AppConfig) ContextStrategy() string { return c.p.ContextStrategy }
func (c *AppConfig) Context() ContextConfig  { return c.p.Context }

func (c *AppConfig) Files() FilesConfig { return c.p.Files }

// QualityGates returns a copy so callers cannot mutate the run configuration.
func (c *AppConfig) QualityGates() map[string]QualityGate {
	gates := make(map[string]QualityGate, len(c.p.QualityGates))
	for name, g := range c.p.QualityGates {
		gates[name] = g
	}
	return gates
}

func (c *AppConfig) Git() GitConfig             { return c.p.Git }
func (c *AppConfig) Librarian() LibrarianConfig { return c.p.Librarian }

func (c *AppConfig) ConfigSource() string { return c.p.ConfigSource }
func (c *AppConfig) SettingPath() string  { return c.p.SettingPath }

// WithMaxIterations returns a copy of the configuration with the
// iteration cap replaced. Used for the CLI flag override; the original
// stays untouched.
func (c *AppConfig) WithMaxIterations(n int) *AppConfig {
	p := c.p
	p.MaxIterations = n
	return NewAppConfig(p)
}
