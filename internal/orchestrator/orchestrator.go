// Package orchestrator drives the iteration loop: select a work item,
// assemble context, invoke the agent, gate the result, and persist
// either a commit plus journal entry or a revert plus journal entry.
// A single iteration's failure never aborts the run.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/afero"

	"github.com/YoshitsuguKoike/ralphzero/internal/agent"
	appconfig "github.com/YoshitsuguKoike/ralphzero/internal/app/config"
	"github.com/YoshitsuguKoike/ralphzero/internal/contextsynth"
	"github.com/YoshitsuguKoike/ralphzero/internal/drift"
	"github.com/YoshitsuguKoike/ralphzero/internal/gates"
	"github.com/YoshitsuguKoike/ralphzero/internal/gitops"
	"github.com/YoshitsuguKoike/ralphzero/internal/prompts"
	"github.com/YoshitsuguKoike/ralphzero/internal/state"
	"github.com/YoshitsuguKoike/ralphzero/internal/story"
)

// driftCheckInterval is how many successful iterations pass between
// drift inspections.
const driftCheckInterval = 3

// Failure reasons recorded in the journal as FAILED_<reason>.
const (
	reasonAgentFailedPrefix = "AGENT_FAILED_"
	reasonGatesFailed       = "QUALITY_GATES_FAILED"
	reasonCommitFailed      = "COMMIT_FAILED"
)

// Logger is the minimal leveled logging surface the loop needs.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Outcome is the terminal state of a run.
type Outcome int

const (
	// OutcomeComplete means every work item passes.
	OutcomeComplete Outcome = iota
	// OutcomeCapReached means the iteration cap was hit with work left.
	OutcomeCapReached
	// OutcomeInterrupted means the run was cancelled from outside.
	OutcomeInterrupted
)

// Result summarizes a finished run.
type Result struct {
	Outcome    Outcome
	RunID      string
	Iterations int
	Succeeded  int
	Failed     int
}

// Orchestrator composes the collaborators for one run.
type Orchestrator struct {
	cfg     appconfig.Config
	store   *state.Store
	synth   *contextsynth.Synthesizer
	invoker agent.Invoker
	gates   *gates.Runner
	git     gitops.Git
	drift   *drift.Monitor
	log     Logger

	runID   string
	project string
}

// New builds an Orchestrator. The run ID identifies this process run in
// every log line.
func New(
	cfg appconfig.Config,
	store *state.Store,
	synth *contextsynth.Synthesizer,
	invoker agent.Invoker,
	gateRunner *gates.Runner,
	git gitops.Git,
	driftMonitor *drift.Monitor,
	log Logger,
) *Orchestrator {
	return &Orchestrator{
		cfg:     cfg,
		store:   store,
		synth:   synth,
		invoker: invoker,
		gates:   gateRunner,
		git:     git,
		drift:   driftMonitor,
		log:     log,
		runID:   ulid.Make().String(),
	}
}

// RunID returns this run's identifier.
func (o *Orchestrator) RunID() string { return o.runID }

// Prepare validates prerequisites before the loop starts. Any error here
// is fatal: a run must never start against an invalid catalog or a
// mis-set branch.
func (o *Orchestrator) Prepare() error {
	p, err := o.store.LoadPRD()
	if err != nil {
		if errors.Is(err, state.ErrPRDNotFound) {
			return fmt.Errorf("%w (create it with your PRD converter before running)", err)
		}
		return err
	}

	if valid, issues := o.store.Validate(); !valid {
		for _, issue := range issues {
			o.log.Error("catalog: %s", issue)
		}
		return fmt.Errorf("catalog validation failed with %d issue(s)", len(issues))
	}

	o.project = p.Project

	// Branch switch archives the previous feature's state first.
	// Archive failures are reported but never block the run.
	archiveDir, err := o.store.ArchiveIfBranchChanged(p.BranchName)
	if err != nil {
		o.log.Warn("archive skipped: %v", err)
	} else if archiveDir != "" {
		o.log.Info("archived previous state to %s", archiveDir)
	}

	if o.git.IsRepo() {
		if o.cfg.Git().RequireCleanTree {
			clean, err := o.git.IsClean()
			if err != nil {
				return fmt.Errorf("failed to inspect working tree: %w", err)
			}
			if !clean {
				return errors.New("working tree is not clean; commit or stash before running")
			}
		}
		if err := o.git.EnsureBranch(p.BranchName, o.cfg.Git().AutoCreateBranch); err != nil {
			return fmt.Errorf("branch setup failed: %w", err)
		}
	}

	progressExists, _ := afero.Exists(o.store.FS, o.store.ProgressPath)
	if !progressExists || archiveDir != "" {
		if err := o.store.InitializeProgress(p.Project, p.BranchName); err != nil {
			return fmt.Errorf("failed to initialize progress journal: %w", err)
		}
	}

	return nil
}

// Run executes up to MaxIterations iterations and returns the terminal
// outcome. Cancellation of ctx stops the loop at the next iteration
// boundary.
func (o *Orchestrator) Run(ctx context.Context) Result {
	res := Result{RunID: o.runID}

	for i := 1; i <= o.cfg.MaxIterations(); i++ {
		if ctx.Err() != nil {
			res.Outcome = OutcomeInterrupted
			return res
		}

		item, err := o.store.FindNextStory()
		if err != nil {
			// Corrupt or missing state at runtime fails the iteration,
			// not the run; the catalog may be fixed externally.
			o.log.Error("cannot select work item: %v", err)
			res.Iterations = i
			res.Failed++
			continue
		}
		if item == nil {
			o.log.Info("all work items pass; run complete")
			res.Outcome = OutcomeComplete
			return res
		}

		res.Iterations = i
		o.log.Info("iteration %d: %s - %s", i, item.ID, item.Title)

		success, changed := o.runIteration(ctx, i, item)
		if !success {
			res.Failed++
			continue
		}
		res.Succeeded++

		if res.Succeeded%driftCheckInterval == 0 {
			if o.drift.Inspect(changed) {
				o.log.Warn("drift: %d consecutive code change(s) without a knowledge-base update; document your patterns", o.drift.Counter())
			}
		}
	}

	res.Outcome = OutcomeCapReached
	return res
}

// runIteration drives one SELECT-to-PERSIST pass for a single item. It
// returns whether the iteration succeeded and, on success, the files
// changed by its commit.
func (o *Orchestrator) runIteration(ctx context.Context, iteration int, item *story.Story) (bool, []string) {
	artifact := o.synth.Synthesize(iteration, item)
	for _, w := range artifact.Warnings {
		o.log.Warn("context: %s", w)
	}
	o.log.Debug("context estimate: %d tokens", artifact.EstimatedTokens)

	prompt, err := prompts.BuildIterationPrompt(iteration, o.project, item, artifact)
	if err != nil {
		o.log.Error("prompt build failed: %v", err)
		return o.failIteration(iteration, item, reasonAgentFailedPrefix+"AGENT_ERROR"), nil
	}

	output, err := o.invoker.Invoke(ctx, agent.Request{Prompt: prompt, Iteration: iteration})

	// Backend errors never propagate past this boundary; they become a
	// failure signal like any the agent could emit itself.
	var sig agent.Signal
	if err != nil {
		reason := "AGENT_ERROR"
		if errors.Is(err, context.DeadlineExceeded) {
			reason = "TIMEOUT"
		}
		o.log.Error("agent invocation failed: %v", err)
		sig = agent.Signal{Reason: reason}
	} else {
		sig = agent.ParseCompletionSignal(output)
	}

	if !sig.Complete {
		return o.failIteration(iteration, item, reasonAgentFailedPrefix+sig.Reason), nil
	}

	gatesPassed, results := o.gates.RunAll(ctx)
	for _, r := range results {
		switch {
		case r.Passed:
			o.log.Info("gate %s passed (%s)", r.Name, r.Duration.Round(time.Millisecond))
		case r.Blocking:
			o.log.Error("gate %s failed (exit %d, timed out: %v)", r.Name, r.ExitCode, r.TimedOut)
		default:
			o.log.Warn("advisory gate %s failed (exit %d)", r.Name, r.ExitCode)
		}
	}
	if !gatesPassed {
		return o.failIteration(iteration, item, reasonGatesFailed), nil
	}

	if err := o.git.StageAll(); err != nil {
		o.log.Error("stage failed: %v", err)
		return o.failIteration(iteration, item, reasonCommitFailed), nil
	}

	message := fmt.Sprintf("%s %s - %s", o.cfg.Git().CommitPrefix, item.ID, item.Title)
	committed, err := o.git.Commit(message)
	if err != nil {
		o.log.Error("commit failed: %v", err)
		return o.failIteration(iteration, item, reasonCommitFailed), nil
	}

	var changed []string
	if committed {
		if changed, err = o.git.ChangedFiles(); err != nil {
			o.log.Warn("cannot list changed files: %v", err)
			changed = nil
		}
	} else {
		o.log.Info("nothing to commit for %s; item required no file changes", item.ID)
	}

	learnings := agent.ExtractLearnings(output)

	if err := o.store.UpdateStoryStatus(item.ID, true, fmt.Sprintf("Completed in iteration %d", iteration)); err != nil {
		o.log.Error("failed to mark %s as passing: %v", item.ID, err)
	}

	rec := state.IterationRecord{
		Iteration: iteration,
		StoryID:   item.ID,
		Status:    state.StatusPassed,
		Changes:   changed,
		Learnings: learnings.Patterns,
		Gotchas:   learnings.Gotchas,
	}
	if err := o.store.AppendProgress(rec); err != nil {
		o.log.Error("failed to append journal entry: %v", err)
	}

	return true, changed
}

// failIteration restores the working tree and records the failure. The
// journal entry carries no change list: nothing this iteration produced
// survives the revert.
func (o *Orchestrator) failIteration(iteration int, item *story.Story, reason string) bool {
	o.log.Warn("iteration %d failed: %s", iteration, reason)

	if err := o.git.RevertToHead(); err != nil {
		o.log.Error("revert failed, working tree may be dirty: %v", err)
	}

	rec := state.IterationRecord{
		Iteration: iteration,
		StoryID:   item.ID,
		Status:    state.FailedStatus(reason),
		Gotchas:   []string{"Failed: " + reason},
	}
	if err := o.store.AppendProgress(rec); err != nil {
		o.log.Error("failed to append journal entry: %v", err)
	}

	return false
}
