// Package sequence implements a timed token-stream matcher. A Detector
// watches a live stream of discrete input tokens (keystrokes, clicks) and
// reports when the most recent tokens spell out a fixed target pattern with
// no gap between consecutive tokens exceeding a timeout.
//
// Jobdeck runs two differently-parameterized instances of the same matcher
// as hidden admin gate triggers: a keystroke phrase and a rapid-click burst.
// Detector state is memory-only; nothing is persisted.
package sequence

import (
	"strings"
	"sync"
	"time"
)

// Detector matches a token stream against a fixed target pattern.
// Safe for concurrent use: concurrent requests for the same visitor may
// race on one instance.
type Detector struct {
	target     []string
	timeout    time.Duration
	foldCase   bool
	mu         sync.Mutex
	buffer     []string
	lastSeenAt time.Time
}

// New creates a detector for the given target pattern and inter-token
// timeout. When foldCase is set, tokens are lowercased before comparison
// (the target is folded once here).
func New(target []string, timeout time.Duration, foldCase bool) *Detector {
	folded := make([]string, len(target))
	for i, tok := range target {
		if foldCase {
			tok = strings.ToLower(tok)
		}
		folded[i] = tok
	}
	return &Detector{
		target:   folded,
		timeout:  timeout,
		foldCase: foldCase,
		buffer:   make([]string, 0, len(folded)),
	}
}

// NewPhrase creates a keystroke matcher: one token per character of phrase,
// case-insensitive.
func NewPhrase(phrase string, timeout time.Duration) *Detector {
	target := make([]string, 0, len(phrase))
	for _, r := range phrase {
		target = append(target, string(r))
	}
	return New(target, timeout, true)
}

// ClickToken is the single symbol of the click matcher's alphabet.
const ClickToken = "click"

// NewClicks creates a click matcher: count repetitions of ClickToken, each
// within timeout of the previous one.
func NewClicks(count int, timeout time.Duration) *Detector {
	target := make([]string, count)
	for i := range target {
		target[i] = ClickToken
	}
	return New(target, timeout, false)
}

// Observe feeds one token into the detector at the given instant and
// reports whether the buffer now matches the target. An empty token is a
// malformed input and is ignored without touching the buffer.
//
// On a match the buffer is cleared, so the pattern cannot re-trigger on an
// overlapping suffix; the caller performs the side effect.
func (d *Detector) Observe(token string, now time.Time) bool {
	if token == "" {
		return false
	}
	if d.foldCase {
		token = strings.ToLower(token)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	// A stale gap invalidates everything collected so far: restart the
	// buffer with this token as the first element.
	if len(d.buffer) == 0 || now.Sub(d.lastSeenAt) > d.timeout {
		d.buffer = append(d.buffer[:0], token)
	} else {
		d.buffer = append(d.buffer, token)
		// Sliding window: keep only the last |target| tokens.
		if excess := len(d.buffer) - len(d.target); excess > 0 {
			d.buffer = d.buffer[excess:]
		}
	}
	d.lastSeenAt = now

	if !d.matchesTarget() {
		return false
	}
	d.buffer = d.buffer[:0]
	return true
}

// Reset clears the buffer without observing a token.
func (d *Detector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.buffer = d.buffer[:0]
}

// matchesTarget reports whether the buffer equals the target element-wise.
// Caller holds d.mu.
func (d *Detector) matchesTarget() bool {
	if len(d.buffer) != len(d.target) {
		return false
	}
	for i, tok := range d.buffer {
		if tok != d.target[i] {
			return false
		}
	}
	return true
}
