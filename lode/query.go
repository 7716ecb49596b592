package lode

import (
	"context"
	"errors"
	"fmt"

	"github.com/justapithecus/lode/lode"
)

// ErrNoSessionFound is returned when no session record matches a query.
var ErrNoSessionFound = errors.New("no session records found")

// QueryLatestSession returns the most recent session summary record.
// Empty sessionID or source match any value.
func QueryLatestSession(ctx context.Context, ds lode.Dataset, sessionID, source string) (map[string]any, error) {
	snapshots, err := ds.Snapshots(ctx)
	if err != nil {
		return nil, WrapReadError(err, fmt.Sprintf("%s/snapshots", ds.ID()))
	}

	// Snapshots are ordered by creation time.
	for i := len(snapshots) - 1; i >= 0; i-- {
		snap := snapshots[i]
		if !snapshotMatchesFilter(snap, "record_kind", RecordKindSession) ||
			!snapshotMatchesFilter(snap, "session_id", sessionID) ||
			!snapshotMatchesFilter(snap, "source", PartitionValueOrEmpty(source)) {
			continue
		}

		data, err := ds.Read(ctx, snap.ID)
		if err != nil {
			return nil, WrapReadError(err, fmt.Sprintf("%s/snapshot/%s", ds.ID(), snap.ID))
		}

		// Paths are a coarse filter; record fields decide.
		for _, item := range data {
			record, ok := item.(map[string]any)
			if !ok || record["record_kind"] != RecordKindSession {
				continue
			}
			if sessionID != "" && toString(record["session_id"]) != sessionID {
				continue
			}
			if source != "" && toString(record["source"]) != PartitionValue(source) {
				continue
			}
			return record, nil
		}
	}
	return nil, ErrNoSessionFound
}

// PartitionValueOrEmpty is PartitionValue except that "" stays "".
func PartitionValueOrEmpty(s string) string {
	if s == "" {
		return ""
	}
	return PartitionValue(s)
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
