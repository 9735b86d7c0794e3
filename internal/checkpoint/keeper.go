package checkpoint

import (
	"context"
	"time"

	"github.com/jabolina/weatherlink/internal/clock"
	"github.com/jabolina/weatherlink/internal/logging"
	"github.com/jabolina/weatherlink/internal/model"
)

// DefaultInterval is the 15s checkpoint interval from spec §4.7.
const DefaultInterval = 15 * time.Second

// Keeper is the dedicated checkpointer activity spec §4.7/§5 describes: it
// restores state once at startup and then loops until shutdown, sleeping
// for the checkpoint interval before rewriting the file. It runs concurrently with
// the request worker and takes its snapshot through model.State.Export,
// which holds State's own lock just long enough to copy every field —
// satisfying the "either pause the worker or copy under a mutex" choice
// spec §4.7 offers.
type Keeper struct {
	store    Store
	state    *model.State
	clk      *clock.Lamport
	interval time.Duration
	log      logging.Logger
}

// NewKeeper builds a Keeper. interval <= 0 falls back to DefaultInterval.
func NewKeeper(store Store, state *model.State, clk *clock.Lamport, interval time.Duration, log logging.Logger) *Keeper {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Keeper{store: store, state: state, clk: clk, interval: interval, log: log}
}

// Restore loads the checkpoint file and re-establishes state before the
// aggregator serves its first request (spec §3 invariant 5). A missing
// file or a parse error never aborts startup (spec §4.7 step 1 /
// CheckpointError in §7) — both are logged and the aggregator continues
// with empty state.
func (k *Keeper) Restore() {
	snap, lamport, err := k.store.Load()
	if err != nil {
		k.log.Warnf("checkpoint restore failed, continuing with empty state: %v", err)
		return
	}
	if len(snap.Buckets) == 0 && !snap.MostRecentSet && lamport == 0 {
		k.log.Info("no checkpoint found, starting with empty state")
		return
	}
	k.state.Restore(snap)
	k.clk.Restore(lamport)
	k.log.Infof("restored checkpoint: %d stations, %d producers, clock=%d",
		k.state.StationCount(), k.state.ProducerCount(), k.clk.Current())
}

// Run loops until ctx is cancelled, snapshotting on every interval tick and
// taking one final best-effort snapshot on the way out (spec §5
// Cancellation: "attempts one final snapshot on graceful shutdown
// (best-effort)").
func (k *Keeper) Run(ctx context.Context) {
	ticker := time.NewTicker(k.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := k.snapshot(); err != nil {
				k.log.Warnf("final checkpoint snapshot failed: %v", err)
			}
			return
		case <-ticker.C:
			if err := k.snapshot(); err != nil {
				k.log.Warnf("checkpoint write failed, in-memory state retained: %v", err)
			}
		}
	}
}

func (k *Keeper) snapshot() error {
	snap := k.state.Export()
	return k.store.Save(snap, k.clk.Current())
}
