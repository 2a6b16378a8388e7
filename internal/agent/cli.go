package agent

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

const promptFilePlaceholder = "{prompt_file}"

// CLIInvoker shells out to a local agent binary. The prompt is delivered
// through a per-iteration temp file when the command carries the
// {prompt_file} placeholder, otherwise on stdin.
type CLIInvoker struct {
	Command string
	WorkDir string
	Timeout time.Duration
}

func (c *CLIInvoker) Name() string { return "cli" }

// Invoke runs the agent once and returns its stdout. The invocation is
// bounded by the configured timeout; a timed-out agent is killed and the
// deadline error is propagated so the caller can classify the failure.
func (c *CLIInvoker) Invoke(ctx context.Context, req Request) (string, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	cmdline := c.Command
	useStdin := !strings.Contains(cmdline, promptFilePlaceholder)

	if !useStdin {
		promptPath := filepath.Join(c.WorkDir, fmt.Sprintf(".ralph_prompt_%d.md", req.Iteration))
		if err := os.WriteFile(promptPath, []byte(req.Prompt), 0o600); err != nil {
			return "", fmt.Errorf("failed to write prompt file: %w", err)
		}
		defer os.Remove(promptPath)
		cmdline = strings.ReplaceAll(cmdline, promptFilePlaceholder, promptPath)
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", cmdline)
	cmd.Dir = c.WorkDir
	if useStdin {
		cmd.Stdin = strings.NewReader(req.Prompt)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); errors.Is(ctxErr, context.DeadlineExceeded) {
			return "", fmt.Errorf("agent timed out after %s: %w", c.Timeout, ctxErr)
		}
		return "", fmt.Errorf("agent exited with error: %w: %s", err, tail(stderr.String(), 500))
	}

	return stdout.String(), nil
}

// tail returns at most n trailing bytes of s for error messages.
func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
