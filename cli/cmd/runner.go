package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/packetstream/adapter"
	"github.com/justapithecus/packetstream/adapter/redis"
	"github.com/justapithecus/packetstream/adapter/webhook"
	"github.com/justapithecus/packetstream/cli/config"
	"github.com/justapithecus/packetstream/cli/reader"
	"github.com/justapithecus/packetstream/cli/render"
	"github.com/justapithecus/packetstream/cli/tui"
	"github.com/justapithecus/packetstream/iox"
	"github.com/justapithecus/packetstream/ipc"
	"github.com/justapithecus/packetstream/lode"
	"github.com/justapithecus/packetstream/log"
	"github.com/justapithecus/packetstream/metrics"
	"github.com/justapithecus/packetstream/packet"
	"github.com/justapithecus/packetstream/session"
	"github.com/justapithecus/packetstream/types"
)

// sessionOptions holds the flag and config values shared by the commands
// that run decode sessions. Flags override the config file.
type sessionOptions struct {
	cfg       *config.Config
	decoding  *config.Decoding
	chunkSize int

	events  bool
	quiet   bool
	tui     bool
	verbose bool
	record  string

	bufferEvents int
	storage      config.StorageConfig
	adapter      config.AdapterConfig

	renderer *render.Renderer
	// logOutput overrides the logger destination. Nil means stderr.
	logOutput io.Writer
}

func loadSessionOptions(c *cli.Context) (*sessionOptions, error) {
	cfg, err := config.LoadOptional(c.String("config"))
	if err != nil {
		return nil, err
	}
	d, err := cfg.Decoding(c.String("layout"))
	if err != nil {
		return nil, err
	}

	chunkSize := cfg.Source.ChunkSize
	if c.IsSet("chunk-size") {
		chunkSize = c.Int("chunk-size")
	}
	if chunkSize < 0 {
		return nil, fmt.Errorf("invalid chunk size %d", chunkSize)
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return nil, err
	}

	o := &sessionOptions{
		cfg:          cfg,
		decoding:     d,
		chunkSize:    chunkSize,
		events:       c.Bool("events"),
		quiet:        c.Bool("quiet"),
		tui:          c.Bool("tui"),
		verbose:      c.Bool("verbose"),
		record:       c.String("record"),
		bufferEvents: c.Int("buffer-events"),
		storage:      cfg.Storage,
		adapter:      cfg.Adapter,
		renderer:     r,
	}

	overrideString(c, "storage-dataset", &o.storage.Dataset)
	overrideString(c, "storage-backend", &o.storage.Backend)
	overrideString(c, "storage-path", &o.storage.Path)
	overrideString(c, "storage-region", &o.storage.Region)
	overrideString(c, "storage-endpoint", &o.storage.Endpoint)
	if c.IsSet("storage-s3-path-style") {
		o.storage.S3PathStyle = c.Bool("storage-s3-path-style")
	}
	overrideString(c, "adapter", &o.adapter.Type)
	overrideString(c, "adapter-url", &o.adapter.URL)
	overrideString(c, "adapter-channel", &o.adapter.Channel)

	if o.events && o.tui {
		return nil, errors.New("--events cannot be combined with --tui")
	}
	return o, nil
}

func overrideString(c *cli.Context, name string, dst *string) {
	if c.IsSet(name) {
		*dst = c.String(name)
	}
}

// backend returns the capture backend name, or "" when capture is off.
func (o *sessionOptions) backend() string {
	if o.storage.Path == "" {
		return ""
	}
	if o.storage.Backend == "" {
		return "fs"
	}
	return o.storage.Backend
}

// newCaptureSink returns nil when no capture storage is configured.
func (o *sessionOptions) newCaptureSink(ctx context.Context, meta *types.SessionMeta, startedAt time.Time,
	collector *metrics.Collector, logger *log.Logger) (*lode.Sink, error) {
	st := o.storage
	if st.Path == "" {
		if st.Backend != "" {
			return nil, fmt.Errorf("--storage-path is required for the %s backend", st.Backend)
		}
		return nil, nil
	}

	cfg := lode.NewConfig(st.Dataset, meta, startedAt)
	var client lode.Client
	switch o.backend() {
	case "fs":
		c, err := lode.NewLodeClient(cfg, st.Path)
		if err != nil {
			return nil, err
		}
		client = c
	case "s3":
		bucket, prefix := lode.ParseS3Path(st.Path)
		c, err := lode.NewLodeS3Client(ctx, cfg, lode.S3Config{
			Bucket:       bucket,
			Prefix:       prefix,
			Region:       st.Region,
			Endpoint:     st.Endpoint,
			UsePathStyle: st.S3PathStyle,
		})
		if err != nil {
			return nil, err
		}
		client = c
	default:
		return nil, fmt.Errorf("unknown storage backend: %s (must be fs or s3)", st.Backend)
	}

	buf := lode.DefaultBufferConfig()
	buf.MaxEvents = o.bufferEvents
	return lode.NewSink(client, buf, collector, logger)
}

// newAdapter returns nil when no adapter is configured.
func (o *sessionOptions) newAdapter() (adapter.Adapter, error) {
	a := o.adapter
	switch a.Type {
	case "":
		return nil, nil
	case "webhook":
		retries := webhook.DefaultRetries
		if a.Retries != nil {
			retries = *a.Retries
		}
		w, err := webhook.New(webhook.Config{
			URL:     a.URL,
			Headers: a.Headers,
			Timeout: a.Timeout.Duration,
			Retries: retries,
		})
		if err != nil {
			return nil, err
		}
		return w, nil
	case "redis":
		retries := redis.DefaultRetries
		if a.Retries != nil {
			retries = *a.Retries
		}
		r, err := redis.New(redis.Config{
			URL:     a.URL,
			Channel: a.Channel,
			Timeout: a.Timeout.Duration,
			Retries: retries,
		})
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, fmt.Errorf("unknown adapter type: %s (must be webhook or redis)", a.Type)
	}
}

func (o *sessionOptions) newLogger(meta *types.SessionMeta) *log.Logger {
	logger := log.NewLogger(meta)
	if o.verbose {
		logger = log.NewVerboseLogger(meta)
	}
	if o.logOutput != nil {
		logger = logger.WithOutput(o.logOutput)
	}
	return logger
}

// run decodes r as one session.
func (o *sessionOptions) run(ctx context.Context, meta *types.SessionMeta, r io.Reader) (*session.Result, error) {
	startedAt := time.Now()
	logger := o.newLogger(meta)
	defer iox.DiscardErr(logger.Sync)

	collector := metrics.NewCollector(meta.SessionID, meta.Source, meta.Layout, o.backend())

	publisher, err := o.newAdapter()
	if err != nil {
		return nil, fmt.Errorf("failed to create adapter: %w", err)
	}
	if publisher != nil {
		defer iox.DiscardClose(publisher)
	}

	sink, err := o.newCaptureSink(ctx, meta, startedAt, collector, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create capture sink: %w", err)
	}

	var handlers []session.Handler
	if o.verbose {
		handlers = append(handlers, session.LogHandler{Logger: logger})
	}
	if o.events {
		handlers = append(handlers, session.HandlerFunc(o.printEvents))
	}
	if sink != nil {
		handlers = append(handlers, sink)
	}
	if o.record != "" {
		rec, err := ipc.CreateRecorder(o.record, meta)
		if err != nil {
			return nil, err
		}
		handlers = append(handlers, rec)
	}

	sess, err := session.New(&session.Config{
		Meta:        meta,
		Outer:       o.decoding.Outer,
		Assembler:   o.decoding.Assembler,
		Handlers:    handlers,
		ChunkSize:   o.chunkSize,
		Collector:   collector,
		Adapter:     publisher,
		StoragePath: o.storage.Path,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}
	if sink != nil {
		sink.SetSummary(func() *lode.SessionSummary {
			return &lode.SessionSummary{
				Meta:        meta,
				Metrics:     collector.Snapshot(),
				StartedAt:   sess.StartTime(),
				CompletedAt: time.Now(),
			}
		})
	}
	return sess.Run(ctx, r)
}

func (o *sessionOptions) printEvents(_ context.Context, events []packet.Event) error {
	for _, ev := range events {
		if err := o.renderer.Stream(reader.Event(ev)); err != nil {
			return err
		}
	}
	return nil
}

// report renders the session summary unless --quiet is set.
func (o *sessionOptions) report(result *session.Result) error {
	if o.quiet {
		return nil
	}
	summary := reader.Session(result)
	if o.tui {
		return o.renderer.RenderTUI(tui.ViewStatsSession, summary)
	}
	return o.renderer.Render(summary)
}

// exitFor converts a session outcome into the command's exit error.
func exitFor(result *session.Result) error {
	code := session.ExitCode(result.Outcome)
	if code == session.ExitCodeCompleted {
		return nil
	}
	return cli.Exit(fmt.Sprintf("%s: %s", result.Outcome.Status, result.Outcome.Message), code)
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
