package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/YoshitsuguKoike/ralphzero/internal/agent"
	"github.com/YoshitsuguKoike/ralphzero/internal/app"
	"github.com/YoshitsuguKoike/ralphzero/internal/contextsynth"
	"github.com/YoshitsuguKoike/ralphzero/internal/drift"
	"github.com/YoshitsuguKoike/ralphzero/internal/gates"
	"github.com/YoshitsuguKoike/ralphzero/internal/gitops"
	infraconfig "github.com/YoshitsuguKoike/ralphzero/internal/infra/config"
	"github.com/YoshitsuguKoike/ralphzero/internal/orchestrator"
	"github.com/YoshitsuguKoike/ralphzero/internal/state"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	var maxIterations int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the iteration loop until the catalog is done or the cap is hit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := infraconfig.LoadSettings(opts.configPath)
			if err != nil {
				return &ExitError{Code: ExitFatal, Err: err}
			}
			if maxIterations > 0 {
				cfg = cfg.WithMaxIterations(maxIterations)
			}

			root, err := os.Getwd()
			if err != nil {
				return &ExitError{Code: ExitFatal, Err: err}
			}
			paths := app.ResolvePaths(root, cfg.Files())

			log := NewLogger(opts.verbose)
			if logFile, err := os.OpenFile(paths.OrchestratorLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
				defer logFile.Close()
				log.AttachFile(logFile)
			} else {
				log.Warn("cannot open %s: %v", paths.OrchestratorLog, err)
			}

			fsys := afero.NewOsFs()
			store := state.NewStore(fsys, root, paths.PRD, paths.Progress)
			synth := contextsynth.NewSynthesizer(fsys, paths.Patterns, paths.Progress, cfg.Context())

			invoker, err := agent.NewInvoker(cfg, root)
			if err != nil {
				return &ExitError{Code: ExitFatal, Err: err}
			}

			repo, err := gitops.Open(root)
			if err != nil {
				return &ExitError{Code: ExitFatal, Err: fmt.Errorf("%w (run `git init` first)", err)}
			}

			orch := orchestrator.New(
				cfg,
				store,
				synth,
				invoker,
				gates.NewRunner(root, cfg.QualityGates()),
				repo,
				drift.NewMonitor(cfg.Librarian(), paths.Patterns),
				log,
			)

			log.Info("run %s starting (agent: %s, config: %s, cap: %d)",
				orch.RunID(), invoker.Name(), cfg.ConfigSource(), cfg.MaxIterations())

			if err := orch.Prepare(); err != nil {
				return &ExitError{Code: ExitFatal, Err: err}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			res := orch.Run(ctx)
			switch res.Outcome {
			case orchestrator.OutcomeComplete:
				log.Info("run %s complete: %d iteration(s), %d succeeded, %d failed",
					res.RunID, res.Iterations, res.Succeeded, res.Failed)
				return nil
			case orchestrator.OutcomeInterrupted:
				log.Warn("run %s interrupted after %d iteration(s)", res.RunID, res.Iterations)
				return &ExitError{Code: ExitInterrupted}
			default:
				log.Warn("run %s hit the iteration cap with work remaining (%d succeeded, %d failed)",
					res.RunID, res.Succeeded, res.Failed)
				if p, err := store.LoadPRD(); err == nil {
					remaining := p.Incomplete()
					for i, s := range remaining {
						if i == 5 {
							log.Warn("  ... and %d more", len(remaining)-5)
							break
						}
						log.Warn("  remaining: %s - %s (priority %d)", s.ID, s.Title, s.Priority)
					}
				}
				return &ExitError{Code: ExitIncomplete}
			}
		},
	}

	cmd.Flags().IntVar(&maxIterations, "max-iterations", 0, "override the configured iteration cap")
	return cmd
}
