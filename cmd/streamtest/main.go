// streamtest connects to a running feed, subscribes to one symbol and prints
// every frame with its chaos classification. A summary is logged periodically
// and on exit.
// Usage: go run ./cmd/streamtest --url ws://localhost:8080/ws/stocks --symbol AAPL
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rickgao/stockfeed/internal/config"
	"github.com/rickgao/stockfeed/internal/connection"
	"github.com/rickgao/stockfeed/internal/logging"
	"github.com/rickgao/stockfeed/internal/probe"
	"github.com/rickgao/stockfeed/internal/version"
)

func main() {
	url := flag.String("url", "ws://localhost:8080/ws/stocks", "feed WebSocket URL")
	symbol := flag.String("symbol", "AAPL", "symbol to subscribe to")
	intervalMs := flag.Int("interval", 1000, "requested update interval in milliseconds")
	pingEvery := flag.Duration("ping", 5*time.Second, "application ping interval (0 = off)")
	duration := flag.Duration("duration", 0, "stop after this long (0 = until interrupted)")
	verbose := flag.Bool("verbose", false, "print full message JSON")
	logFormat := flag.String("log-format", "tint", "log format: text, json, tint")
	flag.Parse()

	logger, err := logging.New(config.LogConfig{Level: "info", Format: *logFormat}, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger.Info("starting streamtest", version.Attrs()...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if *duration > 0 {
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	clientCfg := connection.DefaultClientConfig()
	clientCfg.URL = *url
	clientCfg.PingInterval = *pingEvery
	if *pingEvery == 0 {
		clientCfg.PongTimeout = 0
	}

	keeper := connection.NewKeeper(clientCfg, connection.DefaultReconnectConfig(), *symbol, *intervalMs, logger)
	tally := probe.NewTally(probe.DefaultWindow)

	done := make(chan struct{})
	go func() {
		defer close(done)
		keeper.Run(ctx)
	}()

	summary := time.NewTicker(10 * time.Second)
	defer summary.Stop()

	for {
		select {
		case <-done:
			logger.Info("final tally",
				"frames", tally.Total(),
				"connects", keeper.Connects(),
				"resets", keeper.Resets(),
				"counts", tally.String(),
			)
			return
		case <-summary.C:
			logger.Info("tally", "frames", tally.Total(), "counts", tally.String())
		case msg := <-keeper.Messages():
			class := tally.Observe(msg.Data)
			ts := msg.ReceivedAt.Format("15:04:05.000")
			if *verbose || class != probe.ClassQuote {
				fmt.Printf("%s %-12s %s\n", ts, class, msg.Data)
			} else {
				fmt.Printf("%s %-12s %d bytes\n", ts, class, len(msg.Data))
			}
		}
	}
}
