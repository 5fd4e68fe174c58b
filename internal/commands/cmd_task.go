package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/colonyops/foreman/internal/foreman"
)

type TaskCmd struct {
	flags *Flags

	dryRun        bool
	maxIterations int
	file          string
}

// NewTaskCmd creates a new task command
func NewTaskCmd(flags *Flags) *TaskCmd {
	return &TaskCmd{flags: flags}
}

// Register adds the task command to the application
func (cmd *TaskCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "task",
		Usage:     "Run a single task to completion",
		UsageText: "foreman task [options] <description>",
		Description: `Runs one task through the iterative loop: the agent is invoked repeatedly,
each iteration seeing a summary of everything tried so far, until the task
completes or the iteration budget runs out.

The description can be given as an argument, read from a file with -f, or
piped on stdin:

  foreman task "Clear everything out of Needs_Action"
  foreman task -f task.md
  cat task.md | foreman task`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "dry-run",
				Usage:       "log intended agent invocations without executing them",
				Destination: &cmd.dryRun,
			},
			&cli.IntFlag{
				Name:        "max-iterations",
				Aliases:     []string{"n"},
				Usage:       "maximum agent invocations before giving up",
				Destination: &cmd.maxIterations,
			},
			&cli.StringFlag{
				Name:        "file",
				Aliases:     []string{"f"},
				Usage:       "read the task description from a file",
				Destination: &cmd.file,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *TaskCmd) run(ctx context.Context, c *cli.Command) error {
	description, err := cmd.description(c)
	if err != nil {
		return err
	}

	cfg := cmd.flags.Config
	if cmd.maxIterations > 0 {
		cfg.MaxIterations = cmd.maxIterations
	}

	svc, err := wire(cfg, log.Logger, cmd.dryRun)
	if err != nil {
		return fmt.Errorf("setup vault: %w", err)
	}

	runner := svc.runner(cfg, log.Logger, cfg.TaskTimeout())
	loop := foreman.NewTaskLoop(cfg, svc.vault, runner, svc.trail, log.Logger, svc.dryRun)

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	done, err := loop.Run(runCtx, description)
	if err != nil {
		return fmt.Errorf("run task: %w", err)
	}
	if !done {
		return cli.Exit("task did not complete", 1)
	}

	fmt.Fprintln(c.Root().Writer, "Task completed.")
	return nil
}

// description resolves the task text from the argument, the -f file, or piped
// stdin, in that order.
func (cmd *TaskCmd) description(c *cli.Command) (string, error) {
	if arg := strings.TrimSpace(strings.Join(c.Args().Slice(), " ")); arg != "" {
		return arg, nil
	}

	if cmd.file != "" {
		data, err := os.ReadFile(cmd.file)
		if err != nil {
			return "", fmt.Errorf("read task file: %w", err)
		}
		if desc := strings.TrimSpace(string(data)); desc != "" {
			return desc, nil
		}
		return "", fmt.Errorf("task file %s is empty", cmd.file)
	}

	// Accept piped input, but never block waiting on an interactive terminal.
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		if desc := strings.TrimSpace(string(data)); desc != "" {
			return desc, nil
		}
	}

	return "", fmt.Errorf("no task description given. Pass it as an argument, with -f, or on stdin")
}
