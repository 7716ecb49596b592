package session

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/justapithecus/packetstream/adapter"
	"github.com/justapithecus/packetstream/amqp"
	"github.com/justapithecus/packetstream/frame"
	"github.com/justapithecus/packetstream/ipc"
	"github.com/justapithecus/packetstream/log"
	"github.com/justapithecus/packetstream/metrics"
	"github.com/justapithecus/packetstream/packet"
	"github.com/justapithecus/packetstream/types"
)

func amqpFrame(typ byte, channel uint16, payload []byte) []byte {
	b := []byte{typ, byte(channel >> 8), byte(channel)}
	b = binary.BigEndian.AppendUint32(b, uint32(len(payload)))
	b = append(b, payload...)
	return append(b, amqp.FrameEnd)
}

func methodFrame() []byte {
	return amqpFrame(1, 0, []byte("\x00\x0a\x00\x0bhello"))
}

type spyHandler struct {
	events   []packet.Event
	err      error
	closeErr error
	closes   int
	outcome  *types.SessionOutcome
}

func (h *spyHandler) HandleEvents(_ context.Context, events []packet.Event) error {
	if h.err != nil {
		return h.err
	}
	h.events = append(h.events, events...)
	return nil
}

func (h *spyHandler) Close(_ context.Context, outcome *types.SessionOutcome) error {
	h.closes++
	h.outcome = outcome
	return h.closeErr
}

type spyAdapter struct {
	published []*adapter.SessionCompletedEvent
	err       error
}

func (a *spyAdapter) Publish(_ context.Context, ev *adapter.SessionCompletedEvent) error {
	a.published = append(a.published, ev)
	return a.err
}

func (a *spyAdapter) Close() error { return nil }

func amqpConfig(handlers ...Handler) *Config {
	cfg := amqp.AssemblerConfig(frame.ForwardUnmatched)
	return &Config{
		Meta:      types.NewSessionMeta("test", "amqp"),
		Outer:     amqp.FrameLayout(),
		Assembler: &cfg,
		Handlers:  handlers,
		ChunkSize: 3,
		Collector: metrics.NewCollector("s", "test", "amqp", ""),
		Logger:    log.NewNop(),
	}
}

func TestRun_Completed(t *testing.T) {
	var logBuf bytes.Buffer
	cfg := amqpConfig()
	rec, err := ipc.NewRecorder(&logBuf, cfg.Meta)
	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}
	spy := &spyHandler{}
	cfg.Handlers = []Handler{rec, spy}

	input := append(methodFrame(), amqpFrame(8, 0, nil)...)
	result, err := Run(t.Context(), cfg, bytes.NewReader(input))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.Outcome.Status != types.OutcomeCompleted {
		t.Fatalf("Status = %s, want completed (%s)", result.Outcome.Status, result.Outcome.Message)
	}
	if result.Packets != 2 {
		t.Errorf("Packets = %d, want 2", result.Packets)
	}
	if result.Nested != 1 {
		t.Errorf("Nested = %d, want 1", result.Nested)
	}
	if result.Bytes != int64(len(input)) {
		t.Errorf("Bytes = %d, want %d", result.Bytes, len(input))
	}
	if result.Events != int64(len(spy.events)) {
		t.Errorf("Events = %d, handler saw %d", result.Events, len(spy.events))
	}
	if spy.closes != 1 || !spy.outcome.IsSuccess() {
		t.Errorf("handler closes = %d, outcome = %+v", spy.closes, spy.outcome)
	}

	var classID, methodID uint64
	for _, ev := range spy.events {
		switch ev.Field {
		case amqp.FieldClassID:
			classID = ev.Value.Uint
		case amqp.FieldMethodID:
			methodID = ev.Value.Uint
		}
	}
	if classID != 10 || methodID != 11 {
		t.Errorf("class-id, method-id = %d, %d, want 10, 11", classID, methodID)
	}

	logged, err := ipc.ReadLog(&logBuf)
	if err != nil {
		t.Fatalf("ReadLog: %v", err)
	}
	if len(logged.Events) != len(spy.events) {
		t.Errorf("recorded %d events, want %d", len(logged.Events), len(spy.events))
	}
	if logged.Outcome == nil || logged.Outcome.Status != "completed" {
		t.Errorf("recorded outcome = %+v, want completed", logged.Outcome)
	}

	snap := result.Metrics
	if snap.SessionsCompleted != 1 || snap.SessionsFailed != 0 {
		t.Errorf("sessions completed/failed = %d/%d, want 1/0", snap.SessionsCompleted, snap.SessionsFailed)
	}
	if snap.BytesFed != int64(len(input)) {
		t.Errorf("BytesFed = %d, want %d", snap.BytesFed, len(input))
	}
	if snap.NestedEvents == 0 {
		t.Error("NestedEvents = 0, want > 0")
	}
}

func TestRun_DecodeErrors(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		wantKind string
	}{
		{"unknown frame type", amqpFrame(4, 0, []byte("x")), "enumeration"},
		{"bad frame end", append(amqpFrame(8, 0, nil)[:7], 0x00), "enumeration"},
		{"truncated", methodFrame()[:9], "truncated_stream"},
		{"method payload too short", amqpFrame(1, 0, []byte{0, 1}), "nested_size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spy := &spyHandler{}
			cfg := amqpConfig(spy)
			result, err := Run(t.Context(), cfg, bytes.NewReader(tt.input))
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if result.Outcome.Status != types.OutcomeDecodeError {
				t.Fatalf("Status = %s, want decode_error", result.Outcome.Status)
			}
			if result.Outcome.ErrorKind == nil || *result.Outcome.ErrorKind != tt.wantKind {
				t.Errorf("ErrorKind = %v, want %s", result.Outcome.ErrorKind, tt.wantKind)
			}
			if got := ExitCode(result.Outcome); got != ExitCodeDecodeError {
				t.Errorf("ExitCode = %d, want %d", got, ExitCodeDecodeError)
			}
			if got := result.Metrics.ErrorsByKind[tt.wantKind]; got != 1 {
				t.Errorf("ErrorsByKind[%s] = %d, want 1", tt.wantKind, got)
			}
			if spy.closes != 1 || spy.outcome.Status != types.OutcomeDecodeError {
				t.Errorf("handler closes = %d, outcome = %+v", spy.closes, spy.outcome)
			}
		})
	}
}

func TestRun_EventsBeforeDecodeErrorAreDelivered(t *testing.T) {
	spy := &spyHandler{}
	cfg := amqpConfig(spy)
	cfg.ChunkSize = 1024

	input := append(amqpFrame(8, 0, nil), amqpFrame(4, 0, nil)...)
	result, err := Run(t.Context(), cfg, bytes.NewReader(input))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Outcome.Status != types.OutcomeDecodeError {
		t.Fatalf("Status = %s, want decode_error", result.Outcome.Status)
	}
	// The heartbeat frame decodes completely before the bad type octet.
	var sawFrameEnd bool
	for _, ev := range spy.events {
		if ev.Field == amqp.FieldFrameEnd {
			sawFrameEnd = true
		}
	}
	if !sawFrameEnd {
		t.Error("events of the first frame were not delivered")
	}
}

func TestRun_SinkError(t *testing.T) {
	failing := &spyHandler{err: errors.New("disk on fire")}
	after := &spyHandler{}
	cfg := amqpConfig(failing, after)

	result, err := Run(t.Context(), cfg, bytes.NewReader(methodFrame()))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Outcome.Status != types.OutcomeSinkError {
		t.Fatalf("Status = %s, want sink_error", result.Outcome.Status)
	}
	if ExitCode(result.Outcome) != ExitCodeSinkError {
		t.Errorf("ExitCode = %d, want %d", ExitCode(result.Outcome), ExitCodeSinkError)
	}
	if len(after.events) != 0 {
		t.Errorf("later handler saw %d events, want 0", len(after.events))
	}
	if failing.closes != 1 || after.closes != 1 {
		t.Errorf("closes = %d, %d, want 1, 1", failing.closes, after.closes)
	}
}

func TestRun_CloseErrorDowngradesCompleted(t *testing.T) {
	spy := &spyHandler{closeErr: errors.New("flush failed")}
	result, err := Run(t.Context(), amqpConfig(spy), bytes.NewReader(methodFrame()))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Outcome.Status != types.OutcomeSinkError {
		t.Errorf("Status = %s, want sink_error", result.Outcome.Status)
	}
}

type failingReader struct{ data []byte }

func (r *failingReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, io.ErrClosedPipe
	}
	n := copy(p, r.data)
	r.data = r.data[n:]
	return n, nil
}

func TestRun_TransportError(t *testing.T) {
	result, err := Run(t.Context(), amqpConfig(), &failingReader{data: methodFrame()[:5]})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Outcome.Status != types.OutcomeTransportError {
		t.Errorf("Status = %s, want transport_error", result.Outcome.Status)
	}
	if ExitCode(result.Outcome) != ExitCodeTransportError {
		t.Errorf("ExitCode = %d, want %d", ExitCode(result.Outcome), ExitCodeTransportError)
	}
}

func TestRun_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	spy := &spyHandler{}
	result, err := Run(ctx, amqpConfig(spy), bytes.NewReader(methodFrame()))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Outcome.Status != types.OutcomeCanceled {
		t.Errorf("Status = %s, want canceled", result.Outcome.Status)
	}
	if spy.closes != 1 {
		t.Errorf("closes = %d, want 1", spy.closes)
	}
}

func TestRun_PublishesCompletion(t *testing.T) {
	tests := []struct {
		name       string
		publishErr error
		wantOK     int64
		wantFailed int64
	}{
		{"success", nil, 1, 0},
		{"failure is not fatal", errors.New("broker down"), 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ad := &spyAdapter{err: tt.publishErr}
			cfg := amqpConfig()
			cfg.Adapter = ad
			cfg.StoragePath = "file:///tmp/captures"

			result, err := Run(t.Context(), cfg, bytes.NewReader(methodFrame()))
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if !result.Outcome.IsSuccess() {
				t.Fatalf("Status = %s, want completed", result.Outcome.Status)
			}
			if len(ad.published) != 1 {
				t.Fatalf("published %d events, want 1", len(ad.published))
			}
			ev := ad.published[0]
			if ev.Outcome != "completed" || ev.SessionID != cfg.Meta.SessionID {
				t.Errorf("published %+v", ev)
			}
			if ev.StoragePath != "file:///tmp/captures" || ev.Packets != 1 {
				t.Errorf("StoragePath, Packets = %q, %d", ev.StoragePath, ev.Packets)
			}
			if result.Metrics.PublishSuccess != tt.wantOK || result.Metrics.PublishFailure != tt.wantFailed {
				t.Errorf("publish ok/failed = %d/%d, want %d/%d",
					result.Metrics.PublishSuccess, result.Metrics.PublishFailure, tt.wantOK, tt.wantFailed)
			}
		})
	}
}

func TestRun_WithoutAssembler(t *testing.T) {
	spy := &spyHandler{}
	cfg := amqpConfig(spy)
	cfg.Assembler = nil

	result, err := Run(t.Context(), cfg, bytes.NewReader(methodFrame()))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.Outcome.IsSuccess() {
		t.Fatalf("Status = %s, want completed", result.Outcome.Status)
	}
	for _, ev := range spy.events {
		if ev.Nested() {
			t.Errorf("unexpected nested event %v", ev)
		}
	}
	if result.Nested != 0 {
		t.Errorf("Nested = %d, want 0", result.Nested)
	}
}

func TestNew_Validation(t *testing.T) {
	bad := amqp.AssemblerConfig(frame.ForwardUnmatched)
	bad.Payload = "missing"

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"nil meta", func(c *Config) { c.Meta = nil }},
		{"invalid meta", func(c *Config) { c.Meta.Attempt = 0 }},
		{"nil layout", func(c *Config) { c.Outer = nil }},
		{"bad assembler", func(c *Config) { c.Assembler = &bad }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := amqpConfig()
			tt.mutate(cfg)
			if _, err := New(cfg); err == nil {
				t.Error("New() = nil error, want error")
			}
		})
	}
}

func TestRun_Twice(t *testing.T) {
	s, err := New(amqpConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := s.Run(t.Context(), bytes.NewReader(nil)); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if _, err := s.Run(t.Context(), bytes.NewReader(nil)); err == nil {
		t.Error("second Run should fail")
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		status types.OutcomeStatus
		want   int
	}{
		{types.OutcomeCompleted, 0},
		{types.OutcomeDecodeError, 1},
		{types.OutcomeTransportError, 2},
		{types.OutcomeSinkError, 3},
		{types.OutcomeCanceled, 130},
	}
	for _, tt := range tests {
		if got := ExitCode(&types.SessionOutcome{Status: tt.status}); got != tt.want {
			t.Errorf("ExitCode(%s) = %d, want %d", tt.status, got, tt.want)
		}
	}
	if got := ExitCode(nil); got != ExitCodeTransportError {
		t.Errorf("ExitCode(nil) = %d, want %d", got, ExitCodeTransportError)
	}
}
