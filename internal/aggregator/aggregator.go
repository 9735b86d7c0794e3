// Package aggregator is the request-accept/dispatch state machine spec
// §4.4-§4.7 describes, wiring together the Lamport clock, the in-memory
// model, the transport contract and the checkpointer into the single
// long-lived process described in spec §2.
//
// The top-level Aggregator struct plays the role the teacher's Unity
// struct plays in pkg/mcast/protocol.go: one process-wide object holding
// the clock, the state, the transport and a cancellable shutdown context,
// constructed once and then driven by a small number of cooperative
// goroutines (spec §5).
package aggregator

import (
	"context"
	"sync"
	"time"

	"github.com/jabolina/weatherlink/internal/checkpoint"
	"github.com/jabolina/weatherlink/internal/clock"
	"github.com/jabolina/weatherlink/internal/logging"
	"github.com/jabolina/weatherlink/internal/model"
	"github.com/jabolina/weatherlink/internal/transport"
)

// DefaultQueueSize bounds the acceptor-to-worker hand-off queue (spec
// §4.4: "bounded FIFO hand-off queue").
const DefaultQueueSize = 64

// Config configures an Aggregator. Zero-valued fields fall back to the
// spec's defaults.
type Config struct {
	CheckpointInterval time.Duration
	Expiry             time.Duration
	QueueSize          int
}

func (c Config) withDefaults() Config {
	if c.CheckpointInterval <= 0 {
		c.CheckpointInterval = checkpoint.DefaultInterval
	}
	if c.Expiry <= 0 {
		c.Expiry = defaultExpiry
	}
	if c.QueueSize <= 0 {
		c.QueueSize = DefaultQueueSize
	}
	return c
}

// Aggregator is the whole process-wide state machine: the acceptor, the
// worker, and the checkpointer share it (spec §5's "small number of
// long-lived cooperative activities").
type Aggregator struct {
	listener transport.Listener
	state    *model.State
	clk      *clock.Lamport
	keeper   *checkpoint.Keeper
	queue    chan transport.Connection
	expiry   time.Duration
	log      logging.Logger

	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	shutdownOnce sync.Once
	stopped      chan struct{}
}

// New builds an Aggregator bound to listener, persisting through store.
// It does not start any goroutine until Run is called.
func New(listener transport.Listener, store checkpoint.Store, cfg Config, log logging.Logger) *Aggregator {
	cfg = cfg.withDefaults()

	ctx, cancel := context.WithCancel(context.Background())
	clk := clock.New()
	state := model.New(time.Now)

	return &Aggregator{
		listener: listener,
		state:    state,
		clk:      clk,
		keeper:   checkpoint.NewKeeper(store, state, clk, cfg.CheckpointInterval, log),
		queue:    make(chan transport.Connection, cfg.QueueSize),
		expiry:   cfg.Expiry,
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
		stopped:  make(chan struct{}),
	}
}

// Run restores state from the checkpoint file (spec §3 invariant 5) and
// starts the acceptor, worker and checkpointer goroutines. It returns
// immediately; use Shutdown to stop them.
func (a *Aggregator) Run() {
	a.keeper.Restore()

	a.wg.Add(3)
	go func() { defer a.wg.Done(); a.runAcceptor() }()
	go func() { defer a.wg.Done(); a.runWorker() }()
	go func() { defer a.wg.Done(); a.keeper.Run(a.ctx) }()

	go func() {
		a.wg.Wait()
		_ = a.listener.Close()
		close(a.stopped)
	}()
}

// ShutdownFuture is a handle a caller can block on until every aggregator
// activity has exited. It is the generalized descendant of the teacher's
// poweroff/ShutdownFuture pair in pkg/mcast/protocol.go.
type ShutdownFuture struct {
	stopped <-chan struct{}
}

// Wait blocks until shutdown completes or ctx is done, whichever comes
// first.
func (f *ShutdownFuture) Wait(ctx context.Context) error {
	select {
	case <-f.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown signals every activity to stop (spec §5 Cancellation) and
// returns a future the caller can wait on. The acceptor returns from its
// next timeout-bounded Accept; the worker stops dequeuing; the
// checkpointer takes one final best-effort snapshot before exiting.
// Calling Shutdown more than once is safe and returns the same future.
func (a *Aggregator) Shutdown() *ShutdownFuture {
	a.shutdownOnce.Do(a.cancel)
	return &ShutdownFuture{stopped: a.stopped}
}

// Addr reports the bound listener address, useful for tests that bind to
// an ephemeral port.
func (a *Aggregator) Addr() string {
	return a.listener.Addr()
}
