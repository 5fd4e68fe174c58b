package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/foreman/internal/core/vault"
	"github.com/colonyops/foreman/internal/foreman"
	"github.com/colonyops/foreman/pkg/iojson"
)

type HealthCmd struct {
	flags *Flags
}

// NewHealthCmd creates a new health command
func NewHealthCmd(flags *Flags) *HealthCmd {
	return &HealthCmd{flags: flags}
}

// Register adds the health command to the application
func (cmd *HealthCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "health",
		Usage:     "Print the orchestrator's last health snapshot",
		UsageText: "foreman health",
		Action:    cmd.run,
	})

	return app
}

func (cmd *HealthCmd) run(ctx context.Context, c *cli.Command) error {
	v := vault.New(cmd.flags.Config.VaultPath)

	h, err := foreman.ReadHealth(v.HealthFile())
	if errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(c.Root().Writer, "No health data found. Is the orchestrator running?")
		return nil
	}
	if err != nil {
		return fmt.Errorf("read health file: %w", err)
	}

	return iojson.WriteWith(c.Root().Writer, c.Root().ErrWriter, h)
}
