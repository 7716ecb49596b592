package cmd

import (
	"errors"
	"fmt"

	lodelib "github.com/justapithecus/lode/lode"
	"github.com/urfave/cli/v2"

	"github.com/justapithecus/packetstream/cli/config"
	"github.com/justapithecus/packetstream/cli/reader"
	"github.com/justapithecus/packetstream/cli/render"
	"github.com/justapithecus/packetstream/cli/tui"
	"github.com/justapithecus/packetstream/lode"
)

// CaptureCommand returns the capture command with subcommands.
// Capture reads session summaries back from capture storage.
func CaptureCommand() *cli.Command {
	return &cli.Command{
		Name:  "capture",
		Usage: "Read captured sessions from storage",
		Subcommands: []*cli.Command{
			captureShowCommand(),
		},
	}
}

func captureShowCommand() *cli.Command {
	flags := append(ReadOnlyFlags(), ConfigFlag,
		&cli.StringFlag{
			Name:  "session",
			Usage: "Session ID (default: latest)",
		},
		&cli.StringFlag{
			Name:  "source",
			Usage: "Only consider sessions from this source",
		},
	)
	return &cli.Command{
		Name:   "show",
		Usage:  "Show the latest captured session summary",
		Flags:  append(flags, storageFlags()...),
		Action: captureShowAction,
	}
}

func captureShowAction(c *cli.Context) error {
	cfg, err := config.LoadOptional(c.String("config"))
	if err != nil {
		return err
	}
	st := cfg.Storage
	overrideString(c, "storage-dataset", &st.Dataset)
	overrideString(c, "storage-backend", &st.Backend)
	overrideString(c, "storage-path", &st.Path)
	overrideString(c, "storage-region", &st.Region)
	overrideString(c, "storage-endpoint", &st.Endpoint)
	if c.IsSet("storage-s3-path-style") {
		st.S3PathStyle = c.Bool("storage-s3-path-style")
	}
	if st.Path == "" {
		return cli.Exit("--storage-path is required", 1)
	}
	if st.Dataset == "" {
		st.Dataset = lode.DefaultDataset
	}

	ds, err := openCaptureDataset(c, st)
	if err != nil {
		return fmt.Errorf("failed to open capture dataset: %w", err)
	}

	record, err := lode.QueryLatestSession(c.Context, ds, c.String("session"), c.String("source"))
	if err != nil {
		if errors.Is(err, lode.ErrNoSessionFound) {
			return cli.Exit(err.Error(), 1)
		}
		return err
	}
	resp, err := reader.ParseSessionRecord(record)
	if err != nil {
		return err
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	if c.Bool("tui") {
		return r.RenderTUI(tui.ViewStatsCapture, resp)
	}
	return r.Render(resp)
}

func openCaptureDataset(c *cli.Context, st config.StorageConfig) (lodelib.Dataset, error) {
	switch st.Backend {
	case "", "fs":
		return lode.NewReadDatasetFS(st.Dataset, st.Path)
	case "s3":
		bucket, prefix := lode.ParseS3Path(st.Path)
		return lode.NewReadDatasetS3(c.Context, st.Dataset, lode.S3Config{
			Bucket:       bucket,
			Prefix:       prefix,
			Region:       st.Region,
			Endpoint:     st.Endpoint,
			UsePathStyle: st.S3PathStyle,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend: %s (must be fs or s3)", st.Backend)
	}
}
