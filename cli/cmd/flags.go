// Package cmd provides CLI commands for the packetstream binary.
package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/justapithecus/packetstream/lode"
)

// Shared output flags.
var (
	// FormatFlag selects output format: json, table, yaml.
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, table, yaml",
	}

	// NoColorFlag disables colored output.
	NoColorFlag = &cli.BoolFlag{
		Name:  "no-color",
		Usage: "Disable colored output",
	}

	// TUIFlag enables Bubble Tea interactive mode.
	// Only valid for layout show, capture show and session summaries.
	TUIFlag = &cli.BoolFlag{
		Name:  "tui",
		Usage: "Enable interactive TUI mode",
	}

	// ConfigFlag points at a packetstream.yaml file.
	ConfigFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to packetstream.yaml",
		EnvVars: []string{"PACKETSTREAM_CONFIG"},
	}

	// LayoutFlag names the outer layout.
	LayoutFlag = &cli.StringFlag{
		Name:    "layout",
		Aliases: []string{"l"},
		Usage:   "Outer layout name (built-in: amqp, amqp-frame, amqp-method; default: frame.layout or amqp)",
	}
)

// ReadOnlyFlags returns the shared output flags.
// Includes --tui so that unsupported commands can provide explicit error messages
// instead of generic "flag not defined" errors.
func ReadOnlyFlags() []cli.Flag {
	return []cli.Flag{
		FormatFlag,
		NoColorFlag,
		TUIFlag,
	}
}

// storageFlags select the capture dataset. Empty values fall back to the
// config file.
func storageFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "storage-dataset", Usage: "Capture dataset ID (default: \"" + lode.DefaultDataset + "\")"},
		&cli.StringFlag{Name: "storage-backend", Usage: "Capture backend: fs or s3"},
		&cli.StringFlag{Name: "storage-path", Usage: "Capture path (fs: directory, s3: bucket/prefix)"},
		&cli.StringFlag{Name: "storage-region", Usage: "AWS region for the s3 backend"},
		&cli.StringFlag{Name: "storage-endpoint", Usage: "Custom S3 endpoint (MinIO, R2)"},
		&cli.BoolFlag{Name: "storage-s3-path-style", Usage: "Force S3 path-style addressing"},
	}
}

// sessionFlags are shared by the commands that run a decode session.
func sessionFlags() []cli.Flag {
	flags := []cli.Flag{
		FormatFlag,
		NoColorFlag,
		TUIFlag,
		ConfigFlag,
		LayoutFlag,
		&cli.IntFlag{
			Name:  "chunk-size",
			Usage: "Read size in bytes (default: source.chunk_size or 32768)",
		},
		&cli.BoolFlag{
			Name:  "events",
			Usage: "Print every decoded event",
		},
		&cli.BoolFlag{
			Name:  "quiet",
			Usage: "Suppress the session summary",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "Log every event at debug level",
		},
		&cli.StringFlag{
			Name:  "record",
			Usage: "Write a msgpack event log to this path",
		},
		&cli.StringFlag{
			Name:  "adapter",
			Usage: "Completion adapter: webhook or redis (default: adapter.type)",
		},
		&cli.StringFlag{
			Name:  "adapter-url",
			Usage: "Adapter URL (webhook endpoint or redis://host:port/db)",
		},
		&cli.StringFlag{
			Name:  "adapter-channel",
			Usage: "Redis pub/sub channel",
		},
		&cli.IntFlag{
			Name:  "buffer-events",
			Usage: "Capture buffer size in events",
			Value: lode.DefaultBufferConfig().MaxEvents,
		},
	}
	return append(flags, storageFlags()...)
}
