package paradox

import (
	"context"
	"sync/atomic"
	"time"
)

// DefaultPollInterval is how often the module status is refreshed unless
// configured otherwise.
const DefaultPollInterval = 30 * time.Second

// Poller drives periodic status updates for one device. A single ticker
// produces the polls; if a poll is still in flight when the next tick
// fires, that tick is skipped, never queued.
type Poller struct {
	device   *Device
	interval time.Duration
	kick     chan struct{}
	inflight atomic.Bool

	// OnUpdate receives every fresh snapshot.
	OnUpdate func([]Area)
	// OnError receives ErrUpdateFailed-wrapped failures. The poller keeps
	// ticking regardless.
	OnError func(error)
}

func NewPoller(device *Device, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		device:   device,
		interval: interval,
		kick:     make(chan struct{}, 1),
	}
}

// Kick requests an immediate poll, e.g. right after an area command. It
// never blocks; if a kick is already pending it is dropped.
func (p *Poller) Kick() {
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

// Run blocks until ctx is canceled.
func (p *Poller) Run(ctx context.Context) {
	tick := time.NewTicker(p.interval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
		case <-p.kick:
		}

		if !p.inflight.CompareAndSwap(false, true) {
			log.Debug("previous poll still in flight, skipping tick", "name", p.device.Name())
			continue
		}
		go func() {
			defer p.inflight.Store(false)
			areas, err := p.device.Update(ctx)
			if err != nil {
				if p.OnError != nil {
					p.OnError(err)
				}
				return
			}
			if p.OnUpdate != nil {
				p.OnUpdate(areas)
			}
		}()
	}
}
