package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/cryptool/internal/logging"
	"github.com/dmitrijs2005/cryptool/internal/models"
)

const lanDialTimeout = 5 * time.Second

// LanTransport exchanges envelopes with local-network peers over TCP.
// Outbound: one connection per envelope, a single newline-terminated line.
// Inbound: a listener that routes each received line by the sender address.
type LanTransport struct {
	log     logging.Logger
	inbound Inbound
}

// NewLanTransport constructs a LanTransport delivering inbound envelopes to
// the given sink.
func NewLanTransport(inbound Inbound, log logging.Logger) *LanTransport {
	return &LanTransport{log: log.With("transport", "lan"), inbound: inbound}
}

// Send delivers one envelope to the peer at address:port.
func (t *LanTransport) Send(address, port, envelope string) error {
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(address, port), lanDialTimeout)
	if err != nil {
		return fmt.Errorf("lan dial %s:%s: %w", address, port, err)
	}
	defer conn.Close()

	if _, err := fmt.Fprintln(conn, envelope); err != nil {
		return fmt.Errorf("lan write: %w", err)
	}
	return nil
}

// Listen accepts inbound envelope lines on listenAddr until ctx is done.
// Each line is routed with the remote address as the sender identity; the
// exchange matches it to a channel by address prefix because the sender
// connects from an ephemeral port.
func (t *LanTransport) Listen(ctx context.Context, listenAddr string) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", listenAddr)
	if err != nil {
		return fmt.Errorf("lan listen %s: %w", listenAddr, err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-ctx.Done()
		return ln.Close()
	})
	g.Go(func() error {
		for {
			conn, err := ln.Accept()
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
					return nil
				}
				return fmt.Errorf("lan accept: %w", err)
			}
			g.Go(func() error {
				t.handleConn(ctx, conn)
				return nil
			})
		}
	})
	return g.Wait()
}

func (t *LanTransport) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	host, port, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		t.log.Warn(ctx, "unparsable remote address", "addr", conn.RemoteAddr().String())
		return
	}
	sender := models.SourceLan{Address: host, Port: port}

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if _, err := t.inbound.Receive(ctx, sender, line); err != nil {
			t.log.Warn(ctx, "inbound envelope dropped", "from", sender.Serialize(), "error", err)
		}
	}
}
