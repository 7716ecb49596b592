// Package iox holds small io.Closer helpers.
package iox

import (
	"context"
	"io"
	"sync"
)

// DiscardClose closes c, ignoring the error. For defers where a close
// failure changes nothing:
//
//	defer iox.DiscardClose(resp.Body)
func DiscardClose(c io.Closer) { _ = c.Close() }

// DiscardErr calls fn and ignores its error.
func DiscardErr(fn func() error) { _ = fn() }

// CloseOnDone closes c once ctx is done, which unblocks a Read stuck on a
// connection or pipe. The returned stop function cancels the watch and
// reports whether c was closed by it. Call stop exactly once.
func CloseOnDone(ctx context.Context, c io.Closer) (stop func() bool) {
	var (
		mu     sync.Mutex
		closed bool
	)
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			mu.Lock()
			closed = true
			mu.Unlock()
			_ = c.Close()
		case <-done:
		}
	}()
	return func() bool {
		close(done)
		mu.Lock()
		defer mu.Unlock()
		return closed
	}
}
