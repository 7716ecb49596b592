// Package reader builds the read-side views of the packetstream CLI.
//
// Commands never render runtime types directly: layouts, session results,
// captured session records, recorded logs and decoded events are converted
// to the response types below first, so every output format and TUI view
// sees the same shape.
package reader

// LayoutField describes one field of a layout.
type LayoutField struct {
	Name string `json:"name"`
	// Size is a byte count, or "from <field>" for a size taken from an
	// earlier field.
	Size   string   `json:"size"`
	Type   string   `json:"type"`
	Enum   []string `json:"enum,omitempty"`
	Stream bool     `json:"stream"`
}

// NestedLayout describes how matching frames decode their payload.
type NestedLayout struct {
	Discriminator string        `json:"discriminator"`
	Match         []string      `json:"match"`
	Payload       string        `json:"payload"`
	Trailer       string        `json:"trailer"`
	Prefix        []LayoutField `json:"prefix"`
	PrefixSize    int           `json:"prefix_size"`
	Remainder     string        `json:"remainder"`
	Unmatched     string        `json:"unmatched"`
}

// LayoutResponse describes a resolved layout.
type LayoutResponse struct {
	Name string `json:"name"`
	// FixedSize is the packet size when every field has a literal size.
	FixedSize *int          `json:"fixed_size"`
	Fields    []LayoutField `json:"fields"`
	Nested    *NestedLayout `json:"nested,omitempty"`
}

// SessionResponse summarizes a finished decode session.
type SessionResponse struct {
	SessionID         string           `json:"session_id"`
	Source            string           `json:"source"`
	Layout            string           `json:"layout"`
	Attempt           int              `json:"attempt"`
	PreviousSessionID *string          `json:"previous_session_id,omitempty"`
	Outcome           string           `json:"outcome"`
	Message           string           `json:"message"`
	ErrorKind         *string          `json:"error_kind,omitempty"`
	DurationMs        int64            `json:"duration_ms"`
	Bytes             int64            `json:"bytes"`
	Chunks            int64            `json:"chunks"`
	Packets           uint64           `json:"packets"`
	Nested            uint64           `json:"nested"`
	Events            int64            `json:"events"`
	StreamEvents      int64            `json:"stream_events"`
	DecodeErrors      int64            `json:"decode_errors"`
	ErrorsByKind      map[string]int64 `json:"errors_by_kind,omitempty"`
	CaptureWrites     int64            `json:"capture_writes"`
	CaptureFailures   int64            `json:"capture_failures"`
	PublishFailures   int64            `json:"publish_failures"`
}

// CaptureSessionResponse is a session summary read back from capture
// storage.
type CaptureSessionResponse struct {
	SessionID         string `json:"session_id"`
	Source            string `json:"source"`
	Day               string `json:"day"`
	Layout            string `json:"layout"`
	Attempt           int64  `json:"attempt"`
	PreviousSessionID string `json:"previous_session_id,omitempty"`
	Status            string `json:"status"`
	Message           string `json:"message"`
	ErrorKind         string `json:"error_kind,omitempty"`
	StartedAt         string `json:"started_at"`
	CompletedAt       string `json:"completed_at"`
	EventsCaptured    int64  `json:"events_captured"`
	BytesFed          int64  `json:"bytes_fed"`
	ChunksFed         int64  `json:"chunks_fed"`
	PacketsCompleted  int64  `json:"packets_completed"`
	NestedOpened      int64  `json:"nested_opened"`
	DecodeErrors      int64  `json:"decode_errors"`
	Version           string `json:"version"`
}

// EventRow is one decoded event, flattened for output.
type EventRow struct {
	Packet uint64 `json:"packet"`
	Depth  int    `json:"depth"`
	Parent uint64 `json:"parent"`
	Field  string `json:"field"`
	// Kind is the value kind, or "chunk" for a piece of a streaming field.
	Kind string `json:"kind"`
	// Value is the decoded value, hex for bytes and chunks.
	Value string `json:"value"`
	// Size is the declared size of a streaming field.
	Size int `json:"size,omitempty"`
}

// ReplayResponse summarizes a recorded event log.
type ReplayResponse struct {
	SessionID string `json:"session_id"`
	Source    string `json:"source"`
	Layout    string `json:"layout"`
	Version   string `json:"version"`
	Events    int    `json:"events"`
	// Status is empty when the log ends without an outcome, which happens
	// when the recording process died.
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
}
