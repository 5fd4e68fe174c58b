package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/foreman/internal/foreman"
)

type RunCmd struct {
	flags *Flags

	dryRun bool
}

// NewRunCmd creates a new run command
func NewRunCmd(flags *Flags) *RunCmd {
	return &RunCmd{flags: flags}
}

// Register adds the run command to the application
func (cmd *RunCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "run",
		Usage:     "Run the orchestrator loop",
		UsageText: "foreman run [options]",
		Description: `Watches the vault's Needs_Action and Approved folders and dispatches the
agent's skills as work arrives. Runs until interrupted; Ctrl-C stops the loop
after the current cycle finishes.

A health snapshot is written to <vault>/.claude/health.json after every scan.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "dry-run",
				Usage:       "log intended agent invocations without executing them",
				Destination: &cmd.dryRun,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *RunCmd) run(ctx context.Context, c *cli.Command) error {
	cfg := cmd.flags.Config

	svc, err := wire(cfg, log.Logger, cmd.dryRun)
	if err != nil {
		return fmt.Errorf("setup vault: %w", err)
	}

	runner := svc.runner(cfg, log.Logger, cfg.AgentTimeout())
	dispatcher := foreman.NewDispatcher(runner, svc.limiter, svc.trail, svc.vault, cfg.RetryDelay(), log.Logger)
	orch := foreman.NewOrchestrator(cfg, svc.vault, dispatcher, svc.limiter, log.Logger, svc.dryRun)

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return orch.Run(runCtx)
}
