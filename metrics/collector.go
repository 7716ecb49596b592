// Package metrics provides per-session metrics collection.
//
// The Collector accumulates counters during a single decode session. It is a
// leaf package with no internal dependencies; decode error kinds arrive as
// plain string labels.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all session metrics.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Session lifecycle
	SessionsStarted   int64
	SessionsCompleted int64
	SessionsFailed    int64

	// Input
	BytesFed  int64
	ChunksFed int64

	// Decode
	ValueEvents      int64
	StreamEvents     int64
	NestedEvents     int64
	PacketsCompleted int64
	NestedOpened     int64
	DecodeErrors     int64
	ErrorsByKind     map[string]int64

	// Capture storage
	CaptureWriteSuccess int64
	CaptureWriteFailure int64

	// Adapter
	PublishSuccess int64
	PublishFailure int64

	// Dimensions (informational, set at construction)
	SessionID      string
	Source         string
	Layout         string
	StorageBackend string
}

// Collector accumulates metrics during a single session.
// Thread-safe via sync.Mutex. All methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	sessionsStarted   int64
	sessionsCompleted int64
	sessionsFailed    int64

	bytesFed  int64
	chunksFed int64

	valueEvents      int64
	streamEvents     int64
	nestedEvents     int64
	packetsCompleted int64
	nestedOpened     int64
	decodeErrors     int64
	errorsByKind     map[string]int64

	captureWriteSuccess int64
	captureWriteFailure int64

	publishSuccess int64
	publishFailure int64

	sessionID      string
	source         string
	layout         string
	storageBackend string
}

// NewCollector creates a Collector with dimension labels.
// storageBackend is empty when no capture storage is configured.
func NewCollector(sessionID, source, layout, storageBackend string) *Collector {
	return &Collector{
		errorsByKind:   make(map[string]int64),
		sessionID:      sessionID,
		source:         source,
		layout:         layout,
		storageBackend: storageBackend,
	}
}

// --- Session lifecycle ---

// IncSessionStarted records a session start.
func (c *Collector) IncSessionStarted() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.sessionsStarted++
	c.mu.Unlock()
}

// IncSessionCompleted records a session that ended on a packet boundary.
func (c *Collector) IncSessionCompleted() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.sessionsCompleted++
	c.mu.Unlock()
}

// IncSessionFailed records a session that ended with any other outcome.
func (c *Collector) IncSessionFailed() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.sessionsFailed++
	c.mu.Unlock()
}

// --- Input ---

// AddChunk records one chunk of n bytes handed to the decoder.
func (c *Collector) AddChunk(n int) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.chunksFed++
	c.bytesFed += int64(n)
	c.mu.Unlock()
}

// --- Decode ---

// IncValueEvent records a decoded field value. nested is true for events
// produced inside a frame payload.
func (c *Collector) IncValueEvent(nested bool) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.valueEvents++
	if nested {
		c.nestedEvents++
	}
	c.mu.Unlock()
}

// IncStreamEvent records a streamed chunk event.
func (c *Collector) IncStreamEvent(nested bool) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.streamEvents++
	if nested {
		c.nestedEvents++
	}
	c.mu.Unlock()
}

// SetPackets records the outer and nested packet totals at session end.
func (c *Collector) SetPackets(completed, nestedOpened uint64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.packetsCompleted = int64(completed)
	c.nestedOpened = int64(nestedOpened)
	c.mu.Unlock()
}

// IncDecodeError records a decode failure of the given kind.
func (c *Collector) IncDecodeError(kind string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.decodeErrors++
	c.errorsByKind[kind]++
	c.mu.Unlock()
}

// --- Capture storage ---
// Capture counters are per-call, not per-event. A single write of N events
// counts as 1 success.

// IncCaptureWriteSuccess records a successful capture write.
func (c *Collector) IncCaptureWriteSuccess() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.captureWriteSuccess++
	c.mu.Unlock()
}

// IncCaptureWriteFailure records a failed capture write.
func (c *Collector) IncCaptureWriteFailure() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.captureWriteFailure++
	c.mu.Unlock()
}

// --- Adapter ---

// IncPublishSuccess records a delivered session notification.
func (c *Collector) IncPublishSuccess() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.publishSuccess++
	c.mu.Unlock()
}

// IncPublishFailure records a notification that could not be delivered.
func (c *Collector) IncPublishFailure() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.publishFailure++
	c.mu.Unlock()
}

// --- Snapshot ---

// Snapshot returns an immutable point-in-time view of all metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	byKind := make(map[string]int64, len(c.errorsByKind))
	for k, v := range c.errorsByKind {
		byKind[k] = v
	}

	return Snapshot{
		SessionsStarted:   c.sessionsStarted,
		SessionsCompleted: c.sessionsCompleted,
		SessionsFailed:    c.sessionsFailed,

		BytesFed:  c.bytesFed,
		ChunksFed: c.chunksFed,

		ValueEvents:      c.valueEvents,
		StreamEvents:     c.streamEvents,
		NestedEvents:     c.nestedEvents,
		PacketsCompleted: c.packetsCompleted,
		NestedOpened:     c.nestedOpened,
		DecodeErrors:     c.decodeErrors,
		ErrorsByKind:     byKind,

		CaptureWriteSuccess: c.captureWriteSuccess,
		CaptureWriteFailure: c.captureWriteFailure,

		PublishSuccess: c.publishSuccess,
		PublishFailure: c.publishFailure,

		SessionID:      c.sessionID,
		Source:         c.source,
		Layout:         c.layout,
		StorageBackend: c.storageBackend,
	}
}
