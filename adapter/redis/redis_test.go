package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/justapithecus/packetstream/adapter"
)

func testEvent() *adapter.SessionCompletedEvent {
	return &adapter.SessionCompletedEvent{
		Version:    "0.3.0",
		EventType:  adapter.EventTypeSessionCompleted,
		SessionID:  "sess-001",
		Source:     "tcp://127.0.0.1:5672",
		Layout:     "amqp",
		Attempt:    1,
		Outcome:    "completed",
		Timestamp:  "2026-10-19T12:00:00Z",
		BytesFed:   1024,
		EventCount: 42,
		DurationMs: 1500,
	}
}

// receiveOne reads one message in the background. It must start before
// Publish because miniredis delivers synchronously.
func receiveOne(t *testing.T, sub *miniredis.Subscriber) func() miniredis.PubsubMessage {
	ch := make(chan miniredis.PubsubMessage, 1)
	go func() { ch <- <-sub.Messages() }()
	return func() miniredis.PubsubMessage {
		t.Helper()
		select {
		case msg := <-ch:
			return msg
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for pub/sub message")
			return miniredis.PubsubMessage{}
		}
	}
}

func TestPublish(t *testing.T) {
	tests := []struct {
		name    string
		channel string
		want    string
	}{
		{"default channel", "", DefaultChannel},
		{"custom channel", "ops:sessions", "ops:sessions"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mr := miniredis.RunT(t)
			a, err := New(Config{URL: "redis://" + mr.Addr(), Channel: tt.channel, Retries: 3})
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			defer func() { _ = a.Close() }()

			sub := mr.NewSubscriber()
			sub.Subscribe(tt.want)
			wait := receiveOne(t, sub)

			if err := a.Publish(t.Context(), testEvent()); err != nil {
				t.Fatalf("Publish: %v", err)
			}

			msg := wait()
			if msg.Channel != tt.want {
				t.Errorf("channel = %q, want %q", msg.Channel, tt.want)
			}
			var got adapter.SessionCompletedEvent
			if err := json.Unmarshal([]byte(msg.Message), &got); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got.SessionID != "sess-001" || got.Outcome != "completed" || got.EventCount != 42 {
				t.Errorf("received %+v", got)
			}
		})
	}
}

func TestPublish_ExhaustsRetries(t *testing.T) {
	a, err := New(Config{URL: "redis://127.0.0.1:1", Retries: 1, Timeout: 100 * time.Millisecond})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() { _ = a.Close() }()

	if err := a.Publish(t.Context(), testEvent()); err == nil {
		t.Fatal("expected error after exhausting retries")
	}
}

func TestPublish_ContextCanceled(t *testing.T) {
	a, err := New(Config{URL: "redis://127.0.0.1:1", Retries: 5, Timeout: 10 * time.Second})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() { _ = a.Close() }()

	ctx, cancel := context.WithTimeout(t.Context(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	if err := a.Publish(ctx, testEvent()); err == nil {
		t.Fatal("expected error on canceled context")
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("Publish returned after %v, want prompt return on cancel", elapsed)
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"missing url", Config{}, true},
		{"invalid url", Config{URL: "not-a-redis-url"}, true},
		{"negative retries", Config{URL: "redis://localhost:6379", Retries: -1}, true},
		{"defaults", Config{URL: "redis://localhost:6379"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			defer func() { _ = a.Close() }()
			if a.config.Channel != DefaultChannel {
				t.Errorf("Channel = %q, want %q", a.config.Channel, DefaultChannel)
			}
			if a.config.Timeout != DefaultTimeout {
				t.Errorf("Timeout = %v, want %v", a.config.Timeout, DefaultTimeout)
			}
		})
	}
}

func TestPublish_AfterClose(t *testing.T) {
	mr := miniredis.RunT(t)
	a, err := New(Config{URL: "redis://" + mr.Addr()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := a.Publish(t.Context(), testEvent()); err == nil {
		t.Fatal("expected error after close")
	}
}
