package aggregate

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	"github.com/therealutkarshpriyadarshi/loginflow/pkg/event"
)

// Snapshot is the point-in-time view of the aggregates relevant to one
// observed event. It reflects all updates from that event and every event
// ordered before it on the same keys, and none after.
type Snapshot struct {
	// UserIPCount is the number of distinct IPs seen for the user,
	// including this event's IP.
	UserIPCount int
	// UserLocaleCount is the number of distinct locales seen for the user.
	UserLocaleCount int
	// VersionLogins is the running login count for the app version.
	VersionLogins int64
	// LocaleLogins is the running login count for the locale.
	LocaleLogins int64
	// DeviceUserCount is the number of distinct users seen on the device.
	DeviceUserCount int
	// MostCommonDeviceType is the device type with the highest count so
	// far, lowercased. Ties break to the lexicographically smallest name.
	MostCommonDeviceType string
}

// Config holds aggregate store configuration.
type Config struct {
	// Shards is the number of lock shards. Rounded up to a power of two.
	Shards int
}

// DefaultConfig returns default store configuration.
func DefaultConfig() *Config {
	return &Config{Shards: 64}
}

// shard owns a slice of the key space for every dimension. A key always
// lives in exactly one shard, so locking the shards covering an event's
// keys serializes it against any other event sharing a key.
type shard struct {
	mu sync.Mutex

	userIPs       map[string]map[string]struct{}
	userLocales   map[string]map[string]struct{}
	versionLogins map[string]int64
	localeLogins  map[string]int64
	deviceUsers   map[string]map[string]struct{}
}

func newShard() *shard {
	return &shard{
		userIPs:       make(map[string]map[string]struct{}),
		userLocales:   make(map[string]map[string]struct{}),
		versionLogins: make(map[string]int64),
		localeLogins:  make(map[string]int64),
		deviceUsers:   make(map[string]map[string]struct{}),
	}
}

// Store is the single source of truth for the pipeline's cumulative state.
// Observe is the only mutator. Keys are created lazily on first observation
// and never deleted during a run.
type Store struct {
	shards []*shard
	mask   uint64

	deviceTypes deviceTypeTracker

	observed atomic.Int64
	logger   *zap.Logger
}

// NewStore creates an empty aggregation store.
func NewStore(config *Config, logger *zap.Logger) *Store {
	if config == nil {
		config = DefaultConfig()
	}

	n := 1
	for n < config.Shards {
		n <<= 1
	}

	shards := make([]*shard, n)
	for i := range shards {
		shards[i] = newShard()
	}

	logger.Info("Aggregation store initialized", zap.Int("shards", n))

	return &Store{
		shards:      shards,
		mask:        uint64(n - 1),
		deviceTypes: newDeviceTypeTracker(),
		logger:      logger,
	}
}

// Dimension prefixes keep keys from different maps that happen to share a
// value (say a locale named like a device type) in independent shard slots.
const (
	dimUser    = "user\x00"
	dimVersion = "version\x00"
	dimLocale  = "locale\x00"
	dimDevice  = "device\x00"
)

func (s *Store) shardIndex(dimension, key string) int {
	return int(xxhash.Sum64String(dimension+key) & s.mask)
}

// Observe applies all per-event updates as one unit and returns the
// resulting snapshot. The shard locks covering the event's user, version,
// locale and device keys are acquired in index order, so two events sharing
// any key are fully serialized while events on disjoint keys run in
// parallel. Observe never fails; unseen keys start empty.
func (s *Store) Observe(ev *event.RawEvent) Snapshot {
	userIdx := s.shardIndex(dimUser, ev.UserID)
	versionIdx := s.shardIndex(dimVersion, ev.AppVersion)
	localeIdx := s.shardIndex(dimLocale, ev.Locale)
	deviceIdx := s.shardIndex(dimDevice, ev.DeviceID)

	indices := lockOrder(userIdx, versionIdx, localeIdx, deviceIdx)
	for _, i := range indices {
		s.shards[i].mu.Lock()
	}
	defer func() {
		for _, i := range indices {
			s.shards[i].mu.Unlock()
		}
	}()

	userShard := s.shards[userIdx]
	ips := userShard.userIPs[ev.UserID]
	if ips == nil {
		ips = make(map[string]struct{})
		userShard.userIPs[ev.UserID] = ips
	}
	ips[ev.IP] = struct{}{}

	locales := userShard.userLocales[ev.UserID]
	if locales == nil {
		locales = make(map[string]struct{})
		userShard.userLocales[ev.UserID] = locales
	}
	locales[ev.Locale] = struct{}{}

	versionShard := s.shards[versionIdx]
	versionShard.versionLogins[ev.AppVersion]++

	localeShard := s.shards[localeIdx]
	localeShard.localeLogins[ev.Locale]++

	deviceShard := s.shards[deviceIdx]
	users := deviceShard.deviceUsers[ev.DeviceID]
	if users == nil {
		users = make(map[string]struct{})
		deviceShard.deviceUsers[ev.DeviceID] = users
	}
	users[ev.UserID] = struct{}{}

	mostCommon := s.deviceTypes.increment(event.NormalizeDeviceType(ev.DeviceType))

	s.observed.Add(1)

	return Snapshot{
		UserIPCount:          len(ips),
		UserLocaleCount:      len(locales),
		VersionLogins:        versionShard.versionLogins[ev.AppVersion],
		LocaleLogins:         localeShard.localeLogins[ev.Locale],
		DeviceUserCount:      len(users),
		MostCommonDeviceType: mostCommon,
	}
}

// lockOrder returns the deduplicated shard indices in ascending order.
// Acquiring multi-shard locks in a fixed global order makes the multi-key
// update deadlock-free.
func lockOrder(indices ...int) []int {
	sort.Ints(indices)
	out := indices[:0]
	for i, idx := range indices {
		if i == 0 || idx != indices[i-1] {
			out = append(out, idx)
		}
	}
	return out
}

// Observed returns the total number of events applied to the store.
func (s *Store) Observed() int64 {
	return s.observed.Load()
}

// Stats reports the current key cardinality per dimension. Used for the
// unbounded-growth gauges; see DESIGN.md on eviction.
func (s *Store) Stats() map[string]int {
	stats := map[string]int{
		"users":    0,
		"versions": 0,
		"locales":  0,
		"devices":  0,
	}

	for _, sh := range s.shards {
		sh.mu.Lock()
		stats["users"] += len(sh.userIPs)
		stats["versions"] += len(sh.versionLogins)
		stats["locales"] += len(sh.localeLogins)
		stats["devices"] += len(sh.deviceUsers)
		sh.mu.Unlock()
	}

	return stats
}

// DeviceTypeCounts returns a copy of the per-device-type login counts.
func (s *Store) DeviceTypeCounts() map[string]int64 {
	return s.deviceTypes.snapshot()
}

// Reset clears all state. Test hook; production state lives for the run.
func (s *Store) Reset() {
	for _, sh := range s.shards {
		sh.mu.Lock()
		sh.userIPs = make(map[string]map[string]struct{})
		sh.userLocales = make(map[string]map[string]struct{})
		sh.versionLogins = make(map[string]int64)
		sh.localeLogins = make(map[string]int64)
		sh.deviceUsers = make(map[string]map[string]struct{})
		sh.mu.Unlock()
	}
	s.deviceTypes.reset()
	s.observed.Store(0)
}
