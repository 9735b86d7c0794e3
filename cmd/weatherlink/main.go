// Command weatherlink runs a single weather-data aggregation node: it
// binds a TCP listener, restores state from its checkpoint file, and
// serves PUT/GET requests until an interrupt or terminate signal arrives,
// at which point it drains in-flight work and takes one final checkpoint
// before exiting.
package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	kingpin "gopkg.in/alecthomas/kingpin.v2"

	"github.com/jabolina/weatherlink/internal/aggregator"
	"github.com/jabolina/weatherlink/internal/checkpoint"
	"github.com/jabolina/weatherlink/internal/logging"
	"github.com/jabolina/weatherlink/internal/transport"
)

var (
	app = kingpin.New("weatherlink", "Weather-data aggregation node with Lamport-ordered visibility.")

	listenAddr = app.Flag("listen", "address to bind the TCP listener on").
			Short('l').
			Default(":4567").
			String()

	checkpointPath = app.Flag("checkpoint-file", "path to the JSON checkpoint file").
			Default("weatherlink-checkpoint.json").
			String()

	checkpointInterval = app.Flag("checkpoint-interval", "interval between checkpoint writes").
				Default(checkpoint.DefaultInterval.String()).
				Duration()

	expiry = app.Flag("expiry", "producer liveness soft-expiry window").
		Default("30s").
		Duration()

	queueSize = app.Flag("queue-size", "bounded acceptor-to-worker hand-off queue size").
			Default(strconv.Itoa(aggregator.DefaultQueueSize)).
			Int()

	readTimeout = app.Flag("read-timeout", "per-request read deadline").
			Default(transport.DefaultRequestReadTimeout.String()).
			Duration()

	writeTimeout = app.Flag("write-timeout", "handshake/response write deadline").
			Default(transport.DefaultResponseWriteTimeout.String()).
			Duration()

	debug = app.Flag("debug", "enable debug-level logging").Bool()
)

func main() {
	kingpin.MustParse(app.Parse(os.Args[1:]))

	log := logging.New("main")
	if *debug {
		log = logging.NewDebug("main")
	}

	listener, err := transport.Listen(*listenAddr, *readTimeout, *writeTimeout)
	if err != nil {
		log.Fatalf("failed to bind %s: %v", *listenAddr, err)
	}

	store := checkpoint.NewFileStore(*checkpointPath)
	cfg := aggregator.Config{
		CheckpointInterval: *checkpointInterval,
		Expiry:             *expiry,
		QueueSize:          *queueSize,
	}

	a := aggregator.New(listener, store, cfg, log)
	a.Run()
	log.Infof("weatherlink listening on %s, checkpointing to %s every %s", a.Addr(), *checkpointPath, *checkpointInterval)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	log.Info("shutdown signal received, draining in-flight work")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := a.Shutdown().Wait(ctx); err != nil {
		log.Warnf("shutdown did not complete cleanly: %v", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
