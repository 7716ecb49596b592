package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/packetstream/iox"
	"github.com/justapithecus/packetstream/types"
)

// DecodeCommand returns the decode command.
// Decode reads a captured byte stream from a file, or stdin for "-".
func DecodeCommand() *cli.Command {
	return &cli.Command{
		Name:      "decode",
		Usage:     "Decode a byte stream from a file or stdin",
		ArgsUsage: "<path|->",
		Flags:     sessionFlags(),
		Action:    decodeAction,
	}
}

func decodeAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("input path required (use - for stdin)", 1)
	}
	path := c.Args().First()

	opts, err := loadSessionOptions(c)
	if err != nil {
		return err
	}

	var in io.Reader = os.Stdin
	source := "stdin"
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open input: %w", err)
		}
		defer iox.DiscardClose(f)
		in = f
		source = path
	}

	ctx, cancel := signalContext(c.Context)
	defer cancel()

	meta := types.NewSessionMeta(source, opts.decoding.Name)
	result, err := opts.run(ctx, meta, in)
	if err != nil {
		return err
	}
	if err := opts.report(result); err != nil {
		return err
	}
	return exitFor(result)
}
