package transport

import (
	"bufio"
	"net"
	"time"
)

// FakeListener is the in-memory Listener substitute spec §4.1 calls for
// ("tests substitute an in-memory variant"). Each call to Dial creates a
// net.Pipe() pair: the client half is returned to the caller, the server
// half is queued for the next Accept.
//
// Accept honors the same bounded-poll contract the real TCP listener does
// (spec §4.1/§5): with nothing queued it returns ErrAcceptTimeout after
// pollTimeout instead of blocking forever, so an acceptor loop selecting
// on this listener still observes cancellation promptly in tests.
type FakeListener struct {
	pending     chan net.Conn
	closed      chan struct{}
	pollTimeout time.Duration
}

// NewFakeListener builds a FakeListener with room for backlog queued
// connections before Dial blocks, mirroring the bounded hand-off queue
// described in spec §4.4. Its accept poll window is short (well under the
// real 5s) so tests that shut down an idle aggregator return quickly.
func NewFakeListener(backlog int) *FakeListener {
	return &FakeListener{
		pending:     make(chan net.Conn, backlog),
		closed:      make(chan struct{}),
		pollTimeout: 20 * time.Millisecond,
	}
}

// Dial opens a new client/server connection pair and returns the client
// side for the test to drive; the server side is queued for Accept.
func (f *FakeListener) Dial() net.Conn {
	client, server := net.Pipe()
	f.pending <- server
	return client
}

func (f *FakeListener) Accept() (Connection, error) {
	select {
	case conn := <-f.pending:
		return &tcpConn{conn: conn, reader: bufio.NewReader(conn)}, nil
	case <-f.closed:
		return nil, ErrAcceptTimeout
	case <-time.After(f.pollTimeout):
		return nil, ErrAcceptTimeout
	}
}

func (f *FakeListener) Addr() string {
	return "fake"
}

func (f *FakeListener) Close() error {
	select {
	case <-f.closed:
	default:
		close(f.closed)
	}
	return nil
}
