package cmd

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/packetstream/cli/reader"
	"github.com/justapithecus/packetstream/cli/render"
	"github.com/justapithecus/packetstream/iox"
	"github.com/justapithecus/packetstream/ipc"
)

// ReplayCommand returns the replay command.
// Replay reads an event log written by --record without re-decoding.
func ReplayCommand() *cli.Command {
	return &cli.Command{
		Name:      "replay",
		Usage:     "Read back an event log written with --record",
		ArgsUsage: "<log-path>",
		Flags: append(ReadOnlyFlags(), &cli.BoolFlag{
			Name:  "events",
			Usage: "Print every recorded event",
		}),
		Action: replayAction,
	}
}

func replayAction(c *cli.Context) error {
	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for replay command", 1)
	}
	if c.NArg() < 1 {
		return cli.Exit("log path required", 1)
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	f, err := os.Open(c.Args().First())
	if err != nil {
		return fmt.Errorf("failed to open event log: %w", err)
	}
	defer iox.DiscardClose(f)

	log, err := ipc.ReadLog(f)
	if err != nil {
		return fmt.Errorf("failed to read event log: %w", err)
	}

	if c.Bool("events") {
		for _, ev := range log.Events {
			if err := r.Stream(reader.Event(ev)); err != nil {
				return err
			}
		}
		return nil
	}
	return r.Render(reader.Replay(log))
}
