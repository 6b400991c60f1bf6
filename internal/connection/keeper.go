package connection

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"
)

// Keeper keeps one subscription alive across disconnects.
type Keeper struct {
	cfg        ClientConfig
	rc         ReconnectConfig
	symbol     string
	intervalMs int
	logger     *slog.Logger

	out       chan TimestampedMessage
	connects  atomic.Int64
	resets    atomic.Int64
	newClient func(ClientConfig, *slog.Logger) Client
}

// NewKeeper creates a Keeper that subscribes to symbol on every connection.
// An empty symbol connects without subscribing.
func NewKeeper(cfg ClientConfig, rc ReconnectConfig, symbol string, intervalMs int, logger *slog.Logger) *Keeper {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultClientConfig().BufferSize
	}
	if rc.BaseWait <= 0 {
		rc.BaseWait = DefaultReconnectConfig().BaseWait
	}
	if rc.MaxWait < rc.BaseWait {
		rc.MaxWait = rc.BaseWait
	}
	return &Keeper{
		cfg:        cfg,
		rc:         rc,
		symbol:     symbol,
		intervalMs: intervalMs,
		logger:     logger,
		out:        make(chan TimestampedMessage, cfg.BufferSize),
		newClient:  NewClient,
	}
}

// Messages returns every message received on any connection.
func (k *Keeper) Messages() <-chan TimestampedMessage {
	return k.out
}

// Connects returns the number of successful connections.
func (k *Keeper) Connects() int64 {
	return k.connects.Load()
}

// Resets returns the number of server resets observed.
func (k *Keeper) Resets() int64 {
	return k.resets.Load()
}

// Run connects and reconnects until ctx is cancelled.
func (k *Keeper) Run(ctx context.Context) error {
	wait := k.rc.BaseWait

	for {
		c := k.newClient(k.cfg, k.logger)
		if err := c.Connect(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			k.logger.Warn("connection failed", "error", err, "retry_in", wait)
			if !sleep(ctx, wait) {
				return nil
			}
			// Exponential backoff
			wait *= 2
			if wait > k.rc.MaxWait {
				wait = k.rc.MaxWait
			}
			continue
		}

		wait = k.rc.BaseWait
		n := k.connects.Add(1)
		k.logger.Info("connected", "url", k.cfg.URL, "attempt", n)

		if k.symbol != "" {
			if err := c.Subscribe(k.symbol, k.intervalMs); err != nil {
				k.logger.Warn("subscribe failed", "symbol", k.symbol, "error", err)
			}
		}

		err := k.pump(ctx, c)
		c.Close()

		if ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, ErrServerReset) {
			k.resets.Add(1)
			k.logger.Info("server reset, reconnecting")
		} else {
			k.logger.Warn("connection lost", "error", err)
		}
		if !sleep(ctx, wait) {
			return nil
		}
	}
}

// pump forwards messages until the connection fails or ctx ends. Messages
// read before the failure are forwarded first.
func (k *Keeper) pump(ctx context.Context, c Client) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-c.Messages():
			k.forward(ctx, msg)
		case err := <-c.Errors():
			for {
				select {
				case msg := <-c.Messages():
					k.forward(ctx, msg)
				default:
					return err
				}
			}
		}
	}
}

func (k *Keeper) forward(ctx context.Context, msg TimestampedMessage) {
	select {
	case k.out <- msg:
	case <-ctx.Done():
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
