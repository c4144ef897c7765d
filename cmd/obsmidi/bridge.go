package main

import (
	"context"
	"log/slog"
)

// ============================================================================
// Main loop
// ============================================================================
//
// Each iteration:
//   - Idle: block until the surface delivers one event
//   - Draining: coalesce every event that is already buffered
//   - Dispatching: replay the pending queue against OBS, then clear it
//
// The batching boundary (first blocking receive + non-blocking drain) defines
// the granularity of coalescing: a fader swept while OBS is busy collapses to
// a single SetVolume with the final position.
//
// ============================================================================

// Bridge owns the surface and the remote for the lifetime of the loop.
type Bridge struct {
	surface Surface
	reg     *Registry
	remote  Remote
	queue   *PendingQueue
	logger  *slog.Logger
}

func NewBridge(surface Surface, reg *Registry, remote Remote, logger *slog.Logger) *Bridge {
	return &Bridge{
		surface: surface,
		reg:     reg,
		remote:  remote,
		queue:   newPendingQueue(),
		logger:  logger,
	}
}

// Run loops until ctx is canceled (returns nil) or the surface fails.
// Failed remote actions are logged and never stop the loop.
func (b *Bridge) Run(ctx context.Context) error {
	b.logger.Info("listening to events")
	for {
		n, err := b.poll(ctx)
		if err != nil {
			if ctx.Err() != nil {
				b.logger.Info("bridge stopping")
				return nil
			}
			return err
		}
		b.logger.Debug("batch collected", "events", n, "pending", b.queue.Len())

		if err := Dispatch(b.queue, b.reg, b.remote, b.logger); err != nil {
			b.logger.Warn("batch dispatched with errors", "error", err)
		}
	}
}

// poll collects one batch into the pending queue and returns the number of
// raw events consumed.
func (b *Bridge) poll(ctx context.Context) (int, error) {
	ev, err := b.surface.Receive(ctx)
	if err != nil {
		return 0, err
	}
	b.queue.Coalesce(b.reg, ev)
	n := 1

	for ev := range b.surface.Pending() {
		b.queue.Coalesce(b.reg, ev)
		n++
	}
	return n, nil
}
