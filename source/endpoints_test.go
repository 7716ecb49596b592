package source

import (
	"sync"
	"testing"
)

var brokers = []string{"b1:5672", "b2:5672", "b3:5672"}

func TestEndpoints_RoundRobin(t *testing.T) {
	e, err := NewEndpoints(brokers, StrategyRoundRobin)
	if err != nil {
		t.Fatalf("NewEndpoints failed: %v", err)
	}

	expected := []string{"b1:5672", "b2:5672", "b3:5672", "b1:5672", "b2:5672", "b3:5672"}
	for i, want := range expected {
		got, err := e.Next()
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		if got != want {
			t.Errorf("attempt %d = %q, want %q", i, got, want)
		}
	}
}

func TestEndpoints_Random(t *testing.T) {
	e, err := NewEndpoints(brokers, StrategyRandom)
	if err != nil {
		t.Fatalf("NewEndpoints failed: %v", err)
	}

	seen := make(map[string]bool)
	for range 100 {
		addr, err := e.Next()
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		seen[addr] = true
	}
	// 100 draws from 3 endpoints miss one with probability ~3*(2/3)^100.
	if len(seen) != 3 {
		t.Errorf("saw %d endpoints, want 3", len(seen))
	}
}

func TestEndpoints_Sticky(t *testing.T) {
	e, err := NewEndpoints(brokers, StrategySticky)
	if err != nil {
		t.Fatalf("NewEndpoints failed: %v", err)
	}

	first, err := e.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	for range 10 {
		if got, _ := e.Next(); got != first {
			t.Errorf("sticky endpoint changed from %q to %q", first, got)
		}
	}
}

func TestEndpoints_SingleAddress(t *testing.T) {
	for _, s := range []Strategy{StrategyRoundRobin, StrategyRandom, StrategySticky} {
		e, err := NewEndpoints([]string{"only:1"}, s)
		if err != nil {
			t.Fatalf("%s: NewEndpoints failed: %v", s, err)
		}
		for range 3 {
			if got, _ := e.Next(); got != "only:1" {
				t.Errorf("%s: Next() = %q, want only:1", s, got)
			}
		}
	}
}

func TestNewEndpoints_Validation(t *testing.T) {
	tests := []struct {
		name     string
		addrs    []string
		strategy Strategy
	}{
		{"empty", nil, StrategyRoundRobin},
		{"blank address", []string{"a:1", ""}, StrategyRoundRobin},
		{"duplicate", []string{"a:1", "a:1"}, StrategyRoundRobin},
		{"unknown strategy", []string{"a:1"}, "least_conn"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewEndpoints(tt.addrs, tt.strategy); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestEndpoints_DoesNotAliasInput(t *testing.T) {
	addrs := []string{"a:1", "b:1"}
	e, err := NewEndpoints(addrs, "")
	if err != nil {
		t.Fatalf("NewEndpoints failed: %v", err)
	}
	addrs[0] = "changed"
	if got, _ := e.Next(); got != "a:1" {
		t.Errorf("Next() = %q, want a:1", got)
	}
}

func TestEndpoints_Concurrent(t *testing.T) {
	e, err := NewEndpoints(brokers, StrategyRoundRobin)
	if err != nil {
		t.Fatalf("NewEndpoints failed: %v", err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	counts := map[string]int{}
	for range 30 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			addr, _ := e.Next()
			mu.Lock()
			counts[addr]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	for _, b := range brokers {
		if counts[b] != 10 {
			t.Errorf("%s picked %d times, want 10", b, counts[b])
		}
	}
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in      string
		want    Strategy
		wantErr bool
	}{
		{"", StrategyRoundRobin, false},
		{"round_robin", StrategyRoundRobin, false},
		{"random", StrategyRandom, false},
		{"sticky", StrategySticky, false},
		{"roundrobin", "", true},
	}
	for _, tt := range tests {
		got, err := ParseStrategy(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseStrategy(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseStrategy(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
