package lode

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/justapithecus/lode/lode"

	"github.com/justapithecus/packetstream/metrics"
	"github.com/justapithecus/packetstream/packet"
)

// FailingStore is a lode.Store that returns configurable errors.
type FailingStore struct {
	PutErr error
	GetErr error

	PutCalls int
	PutPaths []string
}

func (s *FailingStore) Put(_ context.Context, path string, _ io.Reader) error {
	s.PutCalls++
	s.PutPaths = append(s.PutPaths, path)
	return s.PutErr
}

func (s *FailingStore) Get(_ context.Context, _ string) (io.ReadCloser, error) {
	if s.GetErr != nil {
		return nil, s.GetErr
	}
	return nil, errors.New("not found")
}

func (s *FailingStore) Exists(_ context.Context, _ string) (bool, error) {
	return false, nil
}

func (s *FailingStore) List(_ context.Context, _ string) ([]string, error) {
	return nil, nil
}

func (s *FailingStore) Delete(_ context.Context, _ string) error {
	return nil
}

func (s *FailingStore) ReadRange(_ context.Context, _ string, _, _ int64) ([]byte, error) {
	return nil, errors.New("not implemented")
}

func (s *FailingStore) ReaderAt(_ context.Context, _ string) (io.ReaderAt, error) {
	return nil, errors.New("not implemented")
}

var _ lode.Store = (*FailingStore)(nil)

func failingFactory(store *FailingStore) lode.StoreFactory {
	return func() (lode.Store, error) { return store, nil }
}

func TestLodeClient_FactoryFailure(t *testing.T) {
	factory := func() (lode.Store, error) {
		return nil, errors.New("NoCredentialProviders: no valid providers in chain")
	}
	client, err := NewLodeClientWithFactory(testConfig(), factory)
	if err == nil {
		// Some Lode versions defer store creation to the first write.
		err = client.WriteEvents(t.Context(), sampleEvents())
	}
	if err == nil {
		t.Fatal("expected an error from a failing factory")
	}
	if !errors.Is(err, ErrAuth) {
		t.Errorf("errors.Is(err, ErrAuth) = false, err = %v", err)
	}
}

func TestLodeClient_FSNonExistentParent(t *testing.T) {
	root := filepath.Join(t.TempDir(), "missing", "deeper")
	if err := os.WriteFile(filepath.Join(filepath.Dir(filepath.Dir(root)), "missing"), []byte("file"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	client, err := NewLodeClient(testConfig(), root)
	if err == nil {
		err = client.WriteEvents(t.Context(), sampleEvents())
	}
	if err == nil {
		t.Fatal("expected an error when the root lies under a regular file")
	}
	var se *StorageError
	if !errors.As(err, &se) {
		t.Errorf("error type = %T, want *StorageError", err)
	}
}

func TestLodeClient_WriteFailures(t *testing.T) {
	tests := []struct {
		name     string
		putErr   error
		wantKind error
	}{
		{"disk full", errors.New("write /data/events.jsonl: no space left on device"), ErrDiskFull},
		{"permission", errors.New("open /data/events.jsonl: permission denied"), ErrPermissionDenied},
		{"s3 auth", errors.New("InvalidAccessKeyId: the access key is invalid"), ErrAuth},
		{"s3 access denied", errors.New("operation error S3: PutObject, AccessDenied: Forbidden"), ErrAccessDenied},
		{"s3 throttled", errors.New("SlowDown: Please reduce your request rate"), ErrThrottled},
		{"s3 timeout", context.DeadlineExceeded, ErrTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &FailingStore{PutErr: tt.putErr}
			client, err := NewLodeClientWithFactory(testConfig(), failingFactory(store))
			if err != nil {
				t.Fatalf("NewLodeClientWithFactory failed: %v", err)
			}

			err = client.WriteEvents(t.Context(), sampleEvents())
			if !errors.Is(err, tt.wantKind) {
				t.Errorf("WriteEvents error = %v, want kind %v", err, tt.wantKind)
			}
			var se *StorageError
			if errors.As(err, &se) && se.Op != "write" {
				t.Errorf("Op = %q, want write", se.Op)
			}
			if store.PutCalls == 0 {
				t.Error("expected a put attempt")
			}
		})
	}
}

func TestLodeClient_FailedWriteKeepsSequence(t *testing.T) {
	store := &FailingStore{PutErr: errors.New("no space left on device")}
	client, err := NewLodeClientWithFactory(testConfig(), failingFactory(store))
	if err != nil {
		t.Fatalf("NewLodeClientWithFactory failed: %v", err)
	}

	if err := client.WriteEvents(t.Context(), sampleEvents()); err == nil {
		t.Fatal("expected write failure")
	}
	if client.seq != 0 {
		t.Errorf("seq after failed write = %d, want 0", client.seq)
	}

	store.PutErr = nil
	if err := client.WriteEvents(t.Context(), sampleEvents()); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if client.seq != uint64(len(sampleEvents())) {
		t.Errorf("seq after retry = %d, want %d", client.seq, len(sampleEvents()))
	}
}

func TestSink_FailedFlushKeepsBuffer(t *testing.T) {
	store := &FailingStore{PutErr: errors.New("connection refused")}
	client, err := NewLodeClientWithFactory(testConfig(), failingFactory(store))
	if err != nil {
		t.Fatalf("NewLodeClientWithFactory failed: %v", err)
	}
	collector := metrics.NewCollector("s-1", "tcp://x", "amqp", "memory")
	sink, err := NewSink(client, BufferConfig{MaxEvents: 2}, collector, nil)
	if err != nil {
		t.Fatalf("NewSink failed: %v", err)
	}

	err = sink.HandleEvents(t.Context(), sampleEvents())
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("HandleEvents error = %v, want ErrNetwork", err)
	}
	if sink.Buffered() != len(sampleEvents()) {
		t.Errorf("Buffered = %d, want %d", sink.Buffered(), len(sampleEvents()))
	}

	store.PutErr = nil
	if err := sink.Flush(t.Context()); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if sink.Buffered() != 0 {
		t.Errorf("Buffered after flush = %d, want 0", sink.Buffered())
	}

	snap := collector.Snapshot()
	if snap.CaptureWriteFailure != 1 || snap.CaptureWriteSuccess != 1 {
		t.Errorf("capture writes = %d ok / %d failed, want 1 / 1",
			snap.CaptureWriteSuccess, snap.CaptureWriteFailure)
	}
}

func sampleEvents() []packet.Event {
	return []packet.Event{
		{Field: "type", Packet: 0, Value: packet.EnumValue(1, "METHOD")},
		{Field: "channel", Packet: 0, Value: packet.UintValue(0)},
		{Field: "payload", Packet: 0, Streaming: true, Size: 4, Chunk: []byte("ab")},
	}
}
