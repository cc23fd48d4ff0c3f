package transport

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/cryptool/internal/logging"
	"github.com/dmitrijs2005/cryptool/internal/models"
)

func TestLanSendWritesOneLine(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	received := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		line, _ := bufio.NewReader(conn).ReadString('\n')
		received <- line
	}()

	host, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)

	lt := NewLanTransport(newFakeInbound(), logging.NewNop())
	require.NoError(t, lt.Send(host, port, "lan-envelope"))

	select {
	case line := <-received:
		assert.Equal(t, "lan-envelope\n", line)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for lan line")
	}
}

func TestLanSendDialFailure(t *testing.T) {
	lt := NewLanTransport(newFakeInbound(), logging.NewNop())
	// Port 1 on localhost is almost certainly closed.
	err := lt.Send("127.0.0.1", "1", "lan-envelope")
	assert.Error(t, err)
}

func TestLanListenRoutesInbound(t *testing.T) {
	inbound := newFakeInbound()
	lt := NewLanTransport(inbound, logging.NewNop())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- lt.Listen(ctx, addr) }()

	// The listener needs a moment to bind again.
	var conn net.Conn
	require.Eventually(t, func() bool {
		var dialErr error
		conn, dialErr = net.Dial("tcp", addr)
		return dialErr == nil
	}, 5*time.Second, 50*time.Millisecond)

	_, err = conn.Write([]byte("peer-envelope\n"))
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	inbound.wait(t)
	got := inbound.all()
	require.Len(t, got, 1)
	assert.Equal(t, "peer-envelope", got[0].Envelope)

	sender, ok := got[0].Sender.(models.SourceLan)
	require.True(t, ok)
	assert.Equal(t, "127.0.0.1", sender.Address)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("listener did not stop")
	}
}
