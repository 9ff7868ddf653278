package inbox

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/skportal/feedback-inbox/pkg/logger"
)

// Poller drives periodic refreshes, trading timeliness against load. While a
// conversation is open and focused it ticks at the short focus interval and
// refreshes only that conversation; otherwise it ticks at the longer idle
// interval and refreshes the list partitions the UI is looking at.
//
// Ticks only schedule asynchronous fetches; a slow response never delays the
// next scheduling decision beyond the current interval, and an outstanding
// fetch for the same target makes the tick a no-op (see Engine.refresh).
type Poller struct {
	engine        *Engine
	focusInterval time.Duration
	idleInterval  time.Duration
	log           *logger.Logger
}

// NewPoller creates a poller for the engine with the given cadences.
func NewPoller(engine *Engine, focusInterval, idleInterval time.Duration, log *logger.Logger) *Poller {
	if focusInterval <= 0 {
		focusInterval = 3 * time.Second
	}
	if idleInterval <= 0 {
		idleInterval = 10 * time.Second
	}
	return &Poller{
		engine:        engine,
		focusInterval: focusInterval,
		idleInterval:  idleInterval,
		log:           log,
	}
}

// Run loops until the context is cancelled. A wake from the engine (focus
// change, push nudge) abandons the pending tick and reschedules with the
// cadence for the new state.
func (p *Poller) Run(ctx context.Context) {
	p.log.Info("poller started",
		zap.Duration("focus_interval", p.focusInterval),
		zap.Duration("idle_interval", p.idleInterval))

	timer := time.NewTimer(p.interval())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.Info("poller stopped")
			return
		case <-p.engine.wake():
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(p.interval())
		case <-timer.C:
			p.tick(ctx)
			timer.Reset(p.interval())
		}
	}
}

func (p *Poller) interval() time.Duration {
	if p.engine.Focused() {
		return p.focusInterval
	}
	return p.idleInterval
}

// tick refreshes exactly one kind of target: the open conversation when
// focused, else the visible list partitions. The list is not polled while a
// conversation is focused; it is reloaded when the conversation is left.
func (p *Poller) tick(ctx context.Context) {
	if id := p.engine.Sess.OpenID(); id != "" {
		p.engine.RefreshConversation(ctx, id)
		return
	}

	p.engine.RefreshActive(ctx)
	if p.engine.ClosedVisible() {
		p.engine.RefreshClosed(ctx)
	}
}
