// Package gates runs the configured quality checks after each agent
// invocation. Gates execute sequentially in name order so runs are
// reproducible; a failing blocking gate fails the iteration, a failing
// advisory gate only warns.
package gates

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"time"

	appconfig "github.com/YoshitsuguKoike/ralphzero/internal/app/config"
)

// Result is the outcome of one gate execution.
type Result struct {
	Name     string
	Cmd      string
	Blocking bool
	Passed   bool
	ExitCode int
	TimedOut bool
	Output   string
	Duration time.Duration
}

// Runner executes quality gates against the project working tree.
type Runner struct {
	Root  string
	Gates map[string]appconfig.QualityGate
}

// NewRunner builds a Runner for the given project root.
func NewRunner(root string, gates map[string]appconfig.QualityGate) *Runner {
	return &Runner{Root: root, Gates: gates}
}

// RunAll executes every configured gate and reports whether the
// iteration may proceed. Only blocking gates decide the verdict; every
// gate still runs so advisory failures surface in the results.
func (r *Runner) RunAll(ctx context.Context) (bool, []Result) {
	names := make([]string, 0, len(r.Gates))
	for name := range r.Gates {
		names = append(names, name)
	}
	sort.Strings(names)

	passed := true
	results := make([]Result, 0, len(names))
	for _, name := range names {
		res := r.runOne(ctx, name, r.Gates[name])
		if !res.Passed && res.Blocking {
			passed = false
		}
		results = append(results, res)
	}
	return passed, results
}

func (r *Runner) runOne(ctx context.Context, name string, g appconfig.QualityGate) Result {
	res := Result{Name: name, Cmd: g.Cmd, Blocking: g.Blocking}

	gctx := ctx
	if g.Timeout() > 0 {
		var cancel context.CancelFunc
		gctx, cancel = context.WithTimeout(ctx, g.Timeout())
		defer cancel()
	}

	dir := g.WorkingDir
	if dir == "" {
		dir = r.Root
	}

	cmd := exec.CommandContext(gctx, "sh", "-c", g.Cmd)
	cmd.Dir = dir
	cmd.Env = os.Environ()
	for k, v := range g.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	start := time.Now()
	err := cmd.Run()
	res.Duration = time.Since(start)
	res.Output = output.String()

	if gctx.Err() == context.DeadlineExceeded {
		res.TimedOut = true
		res.ExitCode = -1
		return res
	}

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			res.ExitCode = exitErr.ExitCode()
		} else {
			res.ExitCode = -1
		}
		return res
	}

	res.Passed = true
	return res
}
