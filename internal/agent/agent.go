// Package agent invokes the external coding agent and interprets its
// output. The backend is chosen once at construction and injected as an
// Invoker; nothing in the loop switches behavior on environment state.
package agent

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	appconfig "github.com/YoshitsuguKoike/ralphzero/internal/app/config"
)

// Request is one agent invocation.
type Request struct {
	Prompt    string
	Iteration int
}

// Invoker runs the agent once and returns its raw output.
type Invoker interface {
	Invoke(ctx context.Context, req Request) (string, error)
	Name() string
}

// ErrNoAgentFound reports that no supported agent CLI is on PATH and no
// explicit command was configured.
var ErrNoAgentFound = errors.New("no supported agent CLI found on PATH")

// knownAgents is the auto-detection order. The first binary found on
// PATH wins.
var knownAgents = []struct {
	bin     string
	command string
}{
	{"claude", "claude -p < {prompt_file}"},
	{"amp", "amp"},
	{"cursor-agent", "cursor-agent"},
	{"copilot-agent", "copilot-agent"},
}

// DetectCommand resolves an agent command line by probing PATH in
// preference order. lookPath is injectable for tests.
func DetectCommand(lookPath func(string) (string, error)) (string, error) {
	for _, a := range knownAgents {
		if _, err := lookPath(a.bin); err == nil {
			return a.command, nil
		}
	}
	return "", ErrNoAgentFound
}

// NewInvoker builds the backend selected by configuration. The choice is
// made exactly once; callers hold only the Invoker interface afterwards.
func NewInvoker(cfg appconfig.Config, workDir string) (Invoker, error) {
	switch cfg.AgentMode() {
	case "cli":
		command := cfg.AgentCommand()
		if command == "" || command == "auto" {
			detected, err := DetectCommand(exec.LookPath)
			if err != nil {
				return nil, err
			}
			command = detected
		}
		return &CLIInvoker{
			Command: command,
			WorkDir: workDir,
			Timeout: cfg.InvokeTimeout(),
		}, nil

	case "api", "sdk":
		// Both remote variants speak the same messages endpoint; "sdk"
		// differs only in how the caller manages the session.
		key := os.Getenv("ANTHROPIC_API_KEY")
		if key == "" {
			return nil, errors.New("ANTHROPIC_API_KEY is required for api mode")
		}
		return &APIInvoker{
			APIKey:  key,
			Model:   cfg.Model(),
			Timeout: cfg.InvokeTimeout(),
		}, nil

	case "mock":
		return &MockInvoker{}, nil

	default:
		return nil, fmt.Errorf("unknown agent mode: %q", cfg.AgentMode())
	}
}
