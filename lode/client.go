package lode

import (
	"context"
	"sync"

	"github.com/justapithecus/lode/lode"

	"github.com/justapithecus/packetstream/packet"
)

// Client abstracts the capture storage client.
type Client interface {
	// WriteEvents writes a batch of events. Ordering within the batch is
	// preserved and sequence numbers continue across batches.
	WriteEvents(ctx context.Context, events []packet.Event) error

	// WriteSummary writes the final session record.
	WriteSummary(ctx context.Context, summary *SessionSummary) error

	// Close releases client resources.
	Close() error
}

// LodeClient is a Lode-backed implementation of Client.
// Uses Lode's HiveLayout with partition keys source/day/session_id/record_kind.
type LodeClient struct {
	dataset lode.Dataset
	config  Config

	mu  sync.Mutex // guards seq
	seq uint64
}

// NewLodeClient creates a Lode client with filesystem storage.
// The root parameter is the base directory for Hive-partitioned storage.
func NewLodeClient(cfg Config, root string) (*LodeClient, error) {
	return NewLodeClientWithFactory(cfg, lode.NewFSFactory(root))
}

// NewLodeClientWithFactory creates a Lode client with a custom store factory.
// Use lode.NewMemoryFactory() for testing.
func NewLodeClientWithFactory(cfg Config, factory lode.StoreFactory) (*LodeClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ds, err := newDataset(cfg.Dataset, factory)
	if err != nil {
		return nil, WrapInitError(err, cfg.Dataset)
	}
	return &LodeClient{dataset: ds, config: cfg}, nil
}

func newDataset(dataset string, factory lode.StoreFactory) (lode.Dataset, error) {
	return lode.NewDataset(
		lode.DatasetID(dataset),
		factory,
		lode.WithHiveLayout(partitionKeys...),
		lode.WithCodec(lode.NewJSONLCodec()),
	)
}

// WriteEvents writes a batch of events as one snapshot.
// Sequence numbers only advance after a successful write, so a retried
// batch keeps its numbering.
func (c *LodeClient) WriteEvents(ctx context.Context, events []packet.Event) error {
	if len(events) == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	records := make([]any, 0, len(events))
	for i, ev := range events {
		records = append(records, toEventRecordMap(ev, c.seq+uint64(i)+1, c.config))
	}

	if _, err := c.dataset.Write(ctx, records, lode.Metadata{}); err != nil {
		return WrapWriteError(err, c.config.Dataset)
	}
	c.seq += uint64(len(events))
	return nil
}

// WriteSummary writes the session summary record.
func (c *LodeClient) WriteSummary(ctx context.Context, summary *SessionSummary) error {
	c.mu.Lock()
	events := c.seq
	c.mu.Unlock()

	record := toSessionRecordMap(summary, events, c.config)
	if _, err := c.dataset.Write(ctx, []any{record}, lode.Metadata{}); err != nil {
		return WrapWriteError(err, c.config.Dataset)
	}
	return nil
}

// Close releases client resources.
func (c *LodeClient) Close() error {
	// Dataset doesn't require explicit close in current Lode API
	return nil
}

// Verify LodeClient implements Client.
var _ Client = (*LodeClient)(nil)
