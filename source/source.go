// Package source moves bytes from transports into a decoder: a chunked
// pump over any io.Reader and a TCP dialer that performs the protocol
// handshake. Endpoints picks the peer for each reconnect.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/justapithecus/packetstream/iox"
)

// DefaultChunkSize is the read buffer size used when none is given.
const DefaultChunkSize = 32 * 1024

// ReadError is a failure of the underlying reader, as opposed to an error
// returned by the chunk callback.
type ReadError struct {
	Err error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read: %v", e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// IsReadError reports whether err came from the reader.
func IsReadError(err error) bool {
	var re *ReadError
	return errors.As(err, &re)
}

// Pump reads r in chunks of at most size bytes and passes each to fn until
// EOF. The chunk is only valid during the call. It returns the number of
// bytes read.
//
// If r is an io.Closer it is closed when ctx ends so a blocked Read
// returns; Pump then reports ctx.Err().
func Pump(ctx context.Context, r io.Reader, size int, fn func(chunk []byte) error) (int64, error) {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if c, ok := r.(io.Closer); ok {
		stop := iox.CloseOnDone(ctx, c)
		defer stop()
	}

	buf := make([]byte, size)
	var total int64
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, err := r.Read(buf)
		if n > 0 {
			total += int64(n)
			if ferr := fn(buf[:n]); ferr != nil {
				return total, ferr
			}
		}
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return total, ctxErr
			}
			return total, &ReadError{Err: err}
		}
	}
}

// Dialer opens TCP sessions.
type Dialer struct {
	// Timeout bounds connection setup. Zero means no timeout.
	Timeout time.Duration
	// Handshake, if set, is written right after connecting.
	Handshake func(io.Writer) error
}

// Dial connects to addr and performs the handshake.
func (d Dialer) Dial(ctx context.Context, addr string) (net.Conn, error) {
	nd := net.Dialer{Timeout: d.Timeout}
	conn, err := nd.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	if d.Handshake != nil {
		if err := d.Handshake(conn); err != nil {
			iox.DiscardClose(conn)
			return nil, fmt.Errorf("handshake with %s: %w", addr, err)
		}
	}
	return conn, nil
}
