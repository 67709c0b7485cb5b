package countstore

import (
	"context"
	"hash/fnv"
	"time"
)

// CountStore keeps fixed-window event counters.
//
// Implementations must make Hit atomic per key: the window reset check, the reset itself, and the increment all happen under the same lock (or inside the same server-side script).
type CountStore interface {
	// Records one event for key at the caller-supplied time, and returns the count for the key's current window (including this event).
	//
	// If at least `period` has elapsed since the key's window start, the window first restarts at `at` with a zero count.
	Hit(ctx context.Context, key string, at time.Time, period time.Duration) (int, error)
	// Returns the current count for key without recording an event. Does not take elapsed time into account.
	GetCount(ctx context.Context, key string) (int, error)
}

// per-key state: number of events in the window, and when the window started
type window struct {
	count int
	start time.Time
}

// applies one event to the window, in place, and returns the new count
func (w *window) hit(at time.Time, period time.Duration) int {
	if w.count == 0 || at.Sub(w.start) >= period {
		w.start = at
		w.count = 0
	}
	w.count++
	return w.count
}

func shardIndex(key string, shards int) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % uint32(shards))
}
