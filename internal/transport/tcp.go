package transport

import (
	"bufio"
	"net"
	"time"

	"github.com/prometheus/common/log"
)

// tcpListener binds a real TCP port. It is the production implementation
// of Listener (spec §4.1).
type tcpListener struct {
	ln           net.Listener
	pollTimeout  time.Duration
	readTimeout  time.Duration
	writeTimeout time.Duration
}

// Listen binds addr (e.g. ":4567"). It fails with ErrBindFailed if the
// port is busy, matching spec's BindError. readTimeout bounds each
// request read; writeTimeout bounds the handshake line and the response
// line write (both <= 0 fall back to their package defaults).
func Listen(addr string, readTimeout, writeTimeout time.Duration) (Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Errorf("failed binding %s: %v", addr, err)
		return nil, ErrBindFailed
	}
	if readTimeout <= 0 {
		readTimeout = DefaultRequestReadTimeout
	}
	if writeTimeout <= 0 {
		writeTimeout = DefaultResponseWriteTimeout
	}
	return &tcpListener{ln: ln, pollTimeout: AcceptPollTimeout, readTimeout: readTimeout, writeTimeout: writeTimeout}, nil
}

func (t *tcpListener) Accept() (Connection, error) {
	if tl, ok := t.ln.(*net.TCPListener); ok {
		_ = tl.SetDeadline(time.Now().Add(t.pollTimeout))
	}
	conn, err := t.ln.Accept()
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return nil, ErrAcceptTimeout
		}
		return nil, err
	}
	return &tcpConn{conn: conn, readTimeout: t.readTimeout, writeTimeout: t.writeTimeout, reader: bufio.NewReader(conn)}, nil
}

func (t *tcpListener) Addr() string {
	return t.ln.Addr().String()
}

func (t *tcpListener) Close() error {
	return t.ln.Close()
}

// tcpConn wraps a net.Conn for exactly one request/response exchange.
type tcpConn struct {
	conn         net.Conn
	readTimeout  time.Duration
	writeTimeout time.Duration
	reader       *bufio.Reader
}

func (c *tcpConn) ReadRequest() ([]byte, error) {
	if c.readTimeout > 0 {
		_ = c.conn.SetReadDeadline(time.Now().Add(c.readTimeout))
	}
	return readFramedRequest(c.reader)
}

// WriteLine bounds the write with the connection's write timeout so a peer
// that stops reading (handshake or response) cannot wedge the single
// worker indefinitely (spec §5 slow-loris concern).
func (c *tcpConn) WriteLine(s string) error {
	if c.writeTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	_, err := c.conn.Write([]byte(s + "\n"))
	return err
}

func (c *tcpConn) Close() error {
	return c.conn.Close()
}
