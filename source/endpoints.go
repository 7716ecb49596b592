package source

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"sync"
)

// Strategy picks the endpoint for each connection attempt.
type Strategy string

const (
	// StrategyRoundRobin rotates through the endpoints in order.
	StrategyRoundRobin Strategy = "round_robin"
	// StrategyRandom picks uniformly at random on every attempt.
	StrategyRandom Strategy = "random"
	// StrategySticky picks once at random and keeps that endpoint.
	StrategySticky Strategy = "sticky"
)

// ParseStrategy parses a strategy name. Empty means round robin.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "", StrategyRoundRobin:
		return StrategyRoundRobin, nil
	case StrategyRandom, StrategySticky:
		return Strategy(s), nil
	default:
		return "", fmt.Errorf("unknown strategy %q (must be round_robin, random or sticky)", s)
	}
}

// Endpoints selects among peer addresses across reconnects.
// Safe for concurrent use.
type Endpoints struct {
	mu       sync.Mutex
	addrs    []string
	strategy Strategy
	rrIndex  int
	sticky   int // -1 until the first sticky pick
}

// NewEndpoints validates addrs and returns a selector over them.
func NewEndpoints(addrs []string, strategy Strategy) (*Endpoints, error) {
	if len(addrs) == 0 {
		return nil, errors.New("at least one address is required")
	}
	seen := make(map[string]bool, len(addrs))
	for i, a := range addrs {
		if a == "" {
			return nil, fmt.Errorf("address %d is empty", i)
		}
		if seen[a] {
			return nil, fmt.Errorf("duplicate address %q", a)
		}
		seen[a] = true
	}
	if _, err := ParseStrategy(string(strategy)); err != nil {
		return nil, err
	}
	if strategy == "" {
		strategy = StrategyRoundRobin
	}
	return &Endpoints{
		addrs:    append([]string(nil), addrs...),
		strategy: strategy,
		sticky:   -1,
	}, nil
}

// Next returns the address for the next connection attempt.
func (e *Endpoints) Next() (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.strategy {
	case StrategyRandom:
		idx, err := e.random()
		if err != nil {
			return "", err
		}
		return e.addrs[idx], nil
	case StrategySticky:
		if e.sticky < 0 {
			idx, err := e.random()
			if err != nil {
				return "", err
			}
			e.sticky = idx
		}
		return e.addrs[e.sticky], nil
	default:
		idx := e.rrIndex % len(e.addrs)
		e.rrIndex++
		return e.addrs[idx], nil
	}
}

// Len returns the number of endpoints.
func (e *Endpoints) Len() int {
	return len(e.addrs)
}

func (e *Endpoints) random() (int, error) {
	n := len(e.addrs)
	if n == 1 {
		return 0, nil
	}
	idx, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("random selection failed: %w", err)
	}
	return int(idx.Int64()), nil
}
