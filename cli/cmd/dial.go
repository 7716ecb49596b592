package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/packetstream/amqp"
	"github.com/justapithecus/packetstream/iox"
	"github.com/justapithecus/packetstream/session"
	"github.com/justapithecus/packetstream/source"
	"github.com/justapithecus/packetstream/types"
)

// Handshake names accepted by --handshake and source.handshake.
const (
	HandshakeAMQP = "amqp"
	HandshakeNone = "none"
)

// DialCommand returns the dial command.
// Dial connects to a TCP peer and decodes what it sends until the peer
// closes the connection.
func DialCommand() *cli.Command {
	flags := append(sessionFlags(),
		&cli.StringFlag{
			Name:  "handshake",
			Usage: "Bytes to send after connecting: amqp or none (default: source.handshake or amqp)",
		},
		&cli.DurationFlag{
			Name:  "dial-timeout",
			Usage: "Connection setup timeout (default: source.dial_timeout or none)",
		},
		&cli.IntFlag{
			Name:  "reconnect",
			Usage: "Reconnect up to N times after a transport error (default: source.reconnect)",
		},
		&cli.StringFlag{
			Name:  "strategy",
			Usage: "Peer choice per attempt with several addresses: round_robin, random or sticky (default: source.strategy or round_robin)",
		},
		&cli.DurationFlag{
			Name:  "reconnect-delay",
			Usage: "Wait between reconnect attempts",
			Value: time.Second,
		},
	)
	return &cli.Command{
		Name:      "dial",
		Usage:     "Connect to a TCP peer and decode its byte stream",
		ArgsUsage: "[host:port...]",
		Flags:     flags,
		Action:    dialAction,
	}
}

func dialAction(c *cli.Context) error {
	opts, err := loadSessionOptions(c)
	if err != nil {
		return err
	}
	src := opts.cfg.Source

	addrs := c.Args().Slice()
	if len(addrs) == 0 {
		addrs = src.Endpoints()
	}
	if len(addrs) == 0 {
		return cli.Exit("address required (argument, source.addr or source.addrs)", 1)
	}
	strategyName := src.Strategy
	if c.IsSet("strategy") {
		strategyName = c.String("strategy")
	}
	strategy, err := source.ParseStrategy(strategyName)
	if err != nil {
		return err
	}
	endpoints, err := source.NewEndpoints(addrs, strategy)
	if err != nil {
		return err
	}

	handshakeName := src.Handshake
	if c.IsSet("handshake") {
		handshakeName = c.String("handshake")
	}
	handshake, err := selectHandshake(handshakeName)
	if err != nil {
		return err
	}

	timeout := src.DialTimeout.Duration
	if c.IsSet("dial-timeout") {
		timeout = c.Duration("dial-timeout")
	}
	reconnect := src.Reconnect
	if c.IsSet("reconnect") {
		reconnect = c.Int("reconnect")
	}
	if reconnect < 0 {
		return fmt.Errorf("invalid reconnect count %d", reconnect)
	}

	ctx, cancel := signalContext(c.Context)
	defer cancel()

	dialer := source.Dialer{Timeout: timeout, Handshake: handshake}
	var meta *types.SessionMeta

	for {
		addr, err := endpoints.Next()
		if err != nil {
			return err
		}
		if meta == nil {
			meta = types.NewSessionMeta("tcp://"+addr, opts.decoding.Name)
		} else {
			meta = meta.Next()
			meta.Source = "tcp://" + addr
		}

		result, err := dialOnce(ctx, opts, dialer, addr, meta)
		if err != nil {
			return err
		}
		if rerr := opts.report(result); rerr != nil {
			return rerr
		}

		retry := result.Outcome.Status == types.OutcomeTransportError && meta.Attempt <= reconnect
		if !retry {
			return exitFor(result)
		}
		select {
		case <-ctx.Done():
			return exitFor(result)
		case <-time.After(c.Duration("reconnect-delay")):
		}
	}
}

// dialOnce runs one connection attempt. A failed dial is reported as a
// transport error outcome so that it can be retried like a dropped
// connection.
func dialOnce(ctx context.Context, opts *sessionOptions, dialer source.Dialer, addr string, meta *types.SessionMeta) (*session.Result, error) {
	conn, err := dialer.Dial(ctx, addr)
	if err != nil {
		status := types.OutcomeTransportError
		if ctx.Err() != nil {
			status = types.OutcomeCanceled
		}
		return &session.Result{
			Meta:    meta,
			Outcome: &types.SessionOutcome{Status: status, Message: err.Error()},
		}, nil
	}
	defer iox.DiscardClose(conn)

	return opts.run(ctx, meta, conn)
}

func selectHandshake(name string) (func(io.Writer) error, error) {
	switch name {
	case "", HandshakeAMQP:
		return amqp.Handshake, nil
	case HandshakeNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown handshake %q (must be amqp or none)", name)
	}
}
