package daemon

import (
	"time"

	"threadrunner/internal/backend"
)

// state is the daemon's shared mutable record: the single backend slot
// plus the activity clock the idle task reads. Every field is guarded
// by the daemon mutex; connection handlers and the idle task take the
// same lock.
//
// The lock is held across Prompt and each NextToken call, and released
// for socket writes so a slow client never blocks eviction or other
// bookkeeping.
type state struct {
	backend      backend.Backend
	lastActivity time.Time
	loads        uint64
	unloads      uint64
}

// ensureLoadedLocked fills the backend slot if it is empty. The caller
// must hold d.mu. Load failures leave the slot empty so the next
// request retries from scratch.
func (d *Daemon) ensureLoadedLocked() error {
	if d.st.backend != nil {
		return nil
	}
	b, err := backend.Load(d.kind, d.cfg.ModelPath)
	if err != nil {
		return err
	}
	d.st.backend = b
	d.st.lastActivity = time.Now()
	d.st.loads++
	modelLoadsTotal.Inc()
	d.logger.Info().
		Str("backend", string(d.kind)).
		Str("model", d.cfg.ModelPath).
		Msg("loaded model")
	d.events.Publish(Event{Name: "model_loaded", Fields: map[string]any{
		"backend": string(d.kind),
		"model":   d.cfg.ModelPath,
	}})
	return nil
}

// takeBackend empties the slot and returns the previous occupant, or
// nil. Callers unload the returned backend outside the lock so teardown
// never stalls request handling.
func (d *Daemon) takeBackend() backend.Backend {
	d.mu.Lock()
	defer d.mu.Unlock()
	b := d.st.backend
	if b != nil {
		d.st.backend = nil
		d.st.unloads++
	}
	return b
}
