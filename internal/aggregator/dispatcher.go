package aggregator

import (
	"strconv"
	"time"

	"github.com/jabolina/weatherlink/internal/codec"
	"github.com/jabolina/weatherlink/internal/transport"
)

// workerPollTimeout is the bounded wait the worker uses on the hand-off
// queue (spec §4.4/§5: "2s").
const workerPollTimeout = 2 * time.Second

// runAcceptor is the Acceptor activity from spec §4.4: repeatedly accept,
// write the handshake line immediately, then place the connection on the
// bounded hand-off queue. It is the generalized descendant of the
// teacher's Unity.poll()/Peer.poll() select loops
// (pkg/mcast/protocol.go, pkg/mcast/core/peer.go) — same
// "select on context-done vs incoming work" shape, here driving a TCP
// accept loop instead of an RPC channel.
func (a *Aggregator) runAcceptor() {
	defer a.log.Debugf("acceptor exiting")
	for {
		select {
		case <-a.ctx.Done():
			return
		default:
		}

		conn, err := a.listener.Accept()
		if err != nil {
			if err == transport.ErrAcceptTimeout {
				continue
			}
			a.log.Warnf("accept failed: %v", err)
			continue
		}

		handshake := strconv.FormatUint(a.clk.Current(), 10)
		if err := conn.WriteLine(handshake); err != nil {
			a.log.Warnf("handshake write failed: %v", err)
			_ = conn.Close()
			continue
		}

		select {
		case a.queue <- conn:
		case <-a.ctx.Done():
			_ = conn.Close()
			return
		}
	}
}

// runWorker is the single Worker activity from spec §4.4: dequeue
// connections with a bounded poll wait, run the request codec and
// handlers, write the response, close the connection. A single worker is
// part of the contract (spec §4.4/§9): it linearizes PUT and GET handling
// so no additional locking is needed between handlers.
func (a *Aggregator) runWorker() {
	defer a.log.Debugf("worker exiting")
	for {
		select {
		case <-a.ctx.Done():
			return
		case conn := <-a.queue:
			a.processConnection(conn)
		case <-time.After(workerPollTimeout):
		}
	}
}

// processConnection runs the request codec and routes to the PUT/GET
// handler. Any failure at any step is logged and the connection is closed;
// per spec §4.4/§7 it never terminates the worker, so a panic from
// malformed input is recovered here rather than left to crash the
// process.
func (a *Aggregator) processConnection(conn transport.Connection) {
	defer conn.Close()
	defer func() {
		if r := recover(); r != nil {
			a.log.Errorf("recovered panic handling connection: %v", r)
		}
	}()

	raw, err := conn.ReadRequest()
	if err != nil {
		a.log.Warnf("read request failed: %v", err)
		return
	}

	req, err := codec.Parse(raw)
	if err != nil {
		a.log.Warnf("malformed request: %v", err)
		_ = conn.WriteLine(codec.StatusBadRequest)
		return
	}

	// spec §4.2: observe is invoked once per received request body, after
	// header parse and before handler logic.
	a.clk.Observe(req.LamportClock())

	var response string
	switch req.Method {
	case "PUT":
		response = a.handlePut(req)
	case "GET":
		response = a.handleGet(req)
	default:
		response = codec.StatusBadRequest
	}

	if err := conn.WriteLine(response); err != nil {
		a.log.Warnf("write response failed: %v", err)
	}
}
