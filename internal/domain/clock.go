package domain

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// clock is a package-level time source so tests can freeze time via SetClock.
// Production code uses the real clock; tests inject a fake for deterministic output.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source behind Now. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// Now returns the current instant from the package's time source, used by
// the Orchestrator's fetch-window computation (§4.6) and its last_run_at
// stamp. Source adapters stamp retrieved_time from time.Now directly.
func Now() time.Time {
	return clock.Now().UTC()
}
