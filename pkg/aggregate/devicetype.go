package aggregate

import "sync"

// deviceTypeTracker maintains per-device-type login counts and the current
// leader. The filter upstream limits the key space to a handful of values,
// so a single mutex is cheaper than folding these counts into the shards.
type deviceTypeTracker struct {
	mu     sync.Mutex
	counts map[string]int64
	leader string
}

func newDeviceTypeTracker() deviceTypeTracker {
	return deviceTypeTracker{counts: make(map[string]int64)}
}

// increment adds one login for a (lowercased) device type and returns the
// current most common type. Counts only ever grow, so the leader changes
// only when the incremented type overtakes it, or ties it with a
// lexicographically smaller name.
func (t *deviceTypeTracker) increment(deviceType string) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.counts[deviceType]++

	if t.leader == "" {
		t.leader = deviceType
		return t.leader
	}

	count := t.counts[deviceType]
	leaderCount := t.counts[t.leader]
	if count > leaderCount || (count == leaderCount && deviceType < t.leader) {
		t.leader = deviceType
	}

	return t.leader
}

// snapshot returns a copy of the counts. Used by store stats.
func (t *deviceTypeTracker) snapshot() map[string]int64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]int64, len(t.counts))
	for k, v := range t.counts {
		out[k] = v
	}
	return out
}

func (t *deviceTypeTracker) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.counts = make(map[string]int64)
	t.leader = ""
}
