package reader

import "errors"

// ParseSessionRecord converts a captured session record (map[string]any) to
// a CaptureSessionResponse. Numbers come back as float64 after a JSONL
// round-trip and as integers when the record was never serialized.
func ParseSessionRecord(record map[string]any) (*CaptureSessionResponse, error) {
	if record == nil {
		return nil, errors.New("nil record")
	}

	resp := &CaptureSessionResponse{
		SessionID:         toString(record["session_id"]),
		Source:            toString(record["source"]),
		Day:               toString(record["day"]),
		Layout:            toString(record["layout"]),
		Attempt:           toInt64(record["attempt"]),
		PreviousSessionID: toString(record["previous_session_id"]),
		Status:            toString(record["status"]),
		Message:           toString(record["message"]),
		ErrorKind:         toString(record["error_kind"]),
		StartedAt:         toString(record["started_at"]),
		CompletedAt:       toString(record["completed_at"]),
		EventsCaptured:    toInt64(record["events_captured"]),
		BytesFed:          toInt64(record["bytes_fed"]),
		ChunksFed:         toInt64(record["chunks_fed"]),
		PacketsCompleted:  toInt64(record["packets_completed"]),
		NestedOpened:      toInt64(record["nested_opened"]),
		DecodeErrors:      toInt64(record["decode_errors"]),
		Version:           toString(record["version"]),
	}

	// The write path always sets these; a record without them is malformed.
	if resp.SessionID == "" {
		return nil, errors.New("session record missing required field: session_id")
	}
	if resp.Status == "" {
		return nil, errors.New("session record missing required field: status")
	}
	return resp, nil
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case uint64:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
