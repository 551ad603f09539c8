package sync

import (
	"context"
	stdsync "sync"
	"time"

	"github.com/mrhavens/becomingone/internal/shared"
)

// Driver runs a layer's Synchronize on a fixed interval until stopped.
type Driver struct {
	layer    *Layer
	interval time.Duration

	mu      stdsync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool

	onRecord func(shared.SyncRecord)
}

// NewDriver creates a driver for the given layer. The interval must be
// positive.
func NewDriver(layer *Layer, interval time.Duration) (*Driver, error) {
	if interval <= 0 {
		return nil, shared.NewValidationError("sync interval must be positive", map[string]interface{}{
			"interval": interval.String(),
		})
	}
	return &Driver{layer: layer, interval: interval}, nil
}

// OnRecord registers a callback invoked with each tick's record. Must be
// called before Start.
func (d *Driver) OnRecord(fn func(shared.SyncRecord)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onRecord = fn
}

// Start launches the tick loop. Starting a running driver is a no-op.
func (d *Driver) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.done = make(chan struct{})
	d.running = true
	callback := d.onRecord

	go func() {
		defer close(d.done)
		ticker := time.NewTicker(d.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				record := d.layer.Synchronize()
				if callback != nil {
					callback(record)
				}
			}
		}
	}()
}

// Stop cancels the loop and waits for it to exit.
func (d *Driver) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.cancel()
	done := d.done
	d.running = false
	d.mu.Unlock()

	<-done
}

// Running reports whether the loop is active.
func (d *Driver) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}
