package daemon

import (
	"context"
	"time"
)

// idleTick is how often the eviction task wakes to check the activity
// clock. Eviction latency is therefore at most one tick past the
// configured idle window.
const idleTick = 5 * time.Second

// idleLoop runs until the daemon's context ends, evicting the backend
// whenever it sits unused past the idle window. Eviction errors are
// logged and never propagate.
func (d *Daemon) idleLoop(ctx context.Context) {
	defer d.wg.Done()
	ticker := time.NewTicker(idleTick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.evictIdle(time.Now())
		}
	}
}

// evictIdle unloads the backend if the last activity is older than the
// idle window. It reports whether an unload happened. The slot is
// emptied under the lock; the unload itself runs outside it so request
// handlers are never blocked behind teardown.
func (d *Daemon) evictIdle(now time.Time) bool {
	idle := d.IdleTimeout()
	d.mu.Lock()
	if d.st.backend == nil || now.Sub(d.st.lastActivity) <= idle {
		d.mu.Unlock()
		return false
	}
	b := d.st.backend
	d.st.backend = nil
	d.st.unloads++
	d.mu.Unlock()

	if err := b.Unload(); err != nil {
		d.logger.Error().Err(err).Msg("error unloading idle model")
		return true
	}
	modelUnloadsTotal.WithLabelValues("idle").Inc()
	d.logger.Info().Dur("idle_timeout", idle).Msg("unloaded idle model")
	d.events.Publish(Event{Name: "model_unloaded", Fields: map[string]any{
		"reason": "idle",
	}})
	return true
}
