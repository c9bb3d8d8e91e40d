package admin

import (
	"sync"
	"time"

	"github.com/jobdeck/jobdeck/internal/clock"
	"github.com/jobdeck/jobdeck/internal/sequence"
)

// triggerEntry holds one visitor's pair of activation detectors.
type triggerEntry struct {
	phrase   *sequence.Detector
	clicks   *sequence.Detector
	lastSeen time.Time
}

// TriggerRegistry holds per-visitor activation detectors. Detector state is
// inherently per client: two visitors typing at once must not complete each
// other's phrase. Entries are created on first observation and pruned by a
// background sweep once idle, the same shape as the rate limiter's per-IP
// map.
type TriggerRegistry struct {
	mu      sync.Mutex
	entries map[string]*triggerEntry
	clk     clock.Clock

	phrase       string
	clickCount   int
	keystrokeGap time.Duration
	clickGap     time.Duration
}

// triggerIdleTTL is how long an untouched visitor entry survives before the
// sweep removes it. Far longer than either detector timeout, so pruning
// never cuts off a sequence in progress.
const triggerIdleTTL = 10 * time.Minute

// NewTriggerRegistry creates the registry and starts its cleanup sweep.
func NewTriggerRegistry(clk clock.Clock, phrase string, clickCount int, keystrokeGap, clickGap time.Duration) *TriggerRegistry {
	r := &TriggerRegistry{
		entries:      make(map[string]*triggerEntry),
		clk:          clk,
		phrase:       phrase,
		clickCount:   clickCount,
		keystrokeGap: keystrokeGap,
		clickGap:     clickGap,
	}

	go func() {
		for {
			time.Sleep(time.Minute)
			r.prune()
		}
	}()

	return r
}

// ObserveKey feeds one keystroke into the visitor's phrase detector and
// reports whether it completed the phrase.
func (r *TriggerRegistry) ObserveKey(visitorID, key string) bool {
	entry := r.entry(visitorID)
	return entry.phrase.Observe(key, r.clk.Now())
}

// ObserveClick feeds one click into the visitor's burst detector and
// reports whether it completed the burst.
func (r *TriggerRegistry) ObserveClick(visitorID string) bool {
	entry := r.entry(visitorID)
	return entry.clicks.Observe(sequence.ClickToken, r.clk.Now())
}

// entry returns the visitor's detector pair, creating it on first use.
func (r *TriggerRegistry) entry(visitorID string) *triggerEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[visitorID]
	if !ok {
		entry = &triggerEntry{
			phrase: sequence.NewPhrase(r.phrase, r.keystrokeGap),
			clicks: sequence.NewClicks(r.clickCount, r.clickGap),
		}
		r.entries[visitorID] = entry
	}
	entry.lastSeen = r.clk.Now()
	return entry
}

// prune drops entries idle past the TTL.
func (r *TriggerRegistry) prune() {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.clk.Now().Add(-triggerIdleTTL)
	for id, entry := range r.entries {
		if entry.lastSeen.Before(cutoff) {
			delete(r.entries, id)
		}
	}
}
