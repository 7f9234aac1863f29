// Package tracker implements the edit-tracking cache: a bounded-lifetime
// store pairing a user's trigger message with the bot's response, so the
// response can be edited or deleted when the trigger is.
package tracker

import (
	"log/slog"
	"sync"
	"time"

	"github.com/wrenbot/wren/pkg/wren/gateway"
)

// exchange pairs a trigger message with the bot response it produced. The
// trigger's platform ID is the identity key.
type exchange struct {
	trigger  gateway.Message
	response gateway.Message
}

// Tracker is the edit-tracking cache. It is shared across concurrent
// event-handling goroutines; a single RWMutex protects the slice.
type Tracker struct {
	mu     sync.RWMutex
	maxAge time.Duration
	cache  []exchange
	logger *slog.Logger
}

// New creates a Tracker that retains exchanges for maxAge, measured from the
// trigger's latest edit (or creation when never edited).
func New(maxAge time.Duration, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{maxAge: maxAge, logger: logger}
}

// Record appends a new exchange. No uniqueness check is performed: recording
// the same trigger twice leaves two entries, and lookups return the first in
// insertion order. Callers must not double-record a trigger.
func (t *Tracker) Record(trigger, response gateway.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cache = append(t.cache, exchange{trigger: trigger, response: response})
}

// ApplyUpdate merges a partial edit payload into the stored trigger copy and
// returns a copy of the result. When the trigger is not tracked, a minimal
// message is synthesized from the update alone, so edit-triggered dispatch
// works even for messages the tracker never saw.
func (t *Tracker) ApplyUpdate(up gateway.MessageUpdate) gateway.Message {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.cache {
		if t.cache[i].trigger.ID == up.ID {
			up.Apply(&t.cache[i].trigger)
			return t.cache[i].trigger
		}
	}

	var msg gateway.Message
	up.Apply(&msg)
	return msg
}

// Response returns a copy of the tracked response for a trigger.
func (t *Tracker) Response(triggerID string) (gateway.Message, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for i := range t.cache {
		if t.cache[i].trigger.ID == triggerID {
			return t.cache[i].response, true
		}
	}
	return gateway.Message{}, false
}

// SetResponse replaces the tracked response for a trigger, if the exchange
// still exists. Used after editing the response over the wire, where the
// entry may have been purged during the call.
func (t *Tracker) SetResponse(triggerID string, response gateway.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.cache {
		if t.cache[i].trigger.ID == triggerID {
			t.cache[i].response = response
			return
		}
	}
}

// Remove drops the exchange for a trigger and returns the response half so
// the caller can delete it on the platform.
func (t *Tracker) Remove(triggerID string) (gateway.Message, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.cache {
		if t.cache[i].trigger.ID == triggerID {
			resp := t.cache[i].response
			t.cache = append(t.cache[:i], t.cache[i+1:]...)
			return resp, true
		}
	}
	return gateway.Message{}, false
}

// Purge removes every exchange whose age at now meets or exceeds the
// retention window. Age is measured from the trigger's latest edit
// timestamp. A negative age (clock skew) counts as expired.
func (t *Tracker) Purge(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	kept := t.cache[:0]
	for _, ex := range t.cache {
		lastUpdate := ex.trigger.Timestamp
		if ex.trigger.EditedTimestamp != nil {
			lastUpdate = *ex.trigger.EditedTimestamp
		}
		age := now.Sub(lastUpdate)
		if age >= 0 && age < t.maxAge {
			kept = append(kept, ex)
		}
	}
	if dropped := len(t.cache) - len(kept); dropped > 0 {
		t.logger.Debug("purged tracked exchanges", "dropped", dropped, "kept", len(kept))
	}
	t.cache = kept
}

// Len reports the number of tracked exchanges.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.cache)
}
