package sites

import (
	"fmt"
	"sync"
	"time"

	"bedsight/internal/types"
)

// bundleCache memoizes feature bundles per grid cell within one weather
// snapshot window. Terrain attributes are effectively immutable, but wind and
// temperature are not, so entries are keyed by both the quantized coordinate
// and the snapshot window they were sampled in. When the window advances the
// old keys simply stop matching; stale entries are dropped on the next sweep.
//
// The scoring engine itself stays cache-free. Only this sampling boundary
// memoizes, which keeps the determinism contract (same bundle in, same score
// out) intact.
type bundleCache struct {
	mu         sync.RWMutex
	entries    map[string]*types.FeatureBundle
	window     time.Duration
	maxEntries int
}

const (
	// cellPrecision quantizes coordinates to ~11 m cells. Probes from one
	// search ring land in distinct cells while repeated queries for the same
	// point hit.
	cellPrecision = 1e-4

	defaultSnapshotWindow = 15 * time.Minute
	defaultMaxEntries     = 4096
)

func newBundleCache(window time.Duration, maxEntries int) *bundleCache {
	if window <= 0 {
		window = defaultSnapshotWindow
	}
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	return &bundleCache{
		entries:    make(map[string]*types.FeatureBundle),
		window:     window,
		maxEntries: maxEntries,
	}
}

func (c *bundleCache) key(lat, lon float64, at time.Time) string {
	cellLat := int64(lat / cellPrecision)
	cellLon := int64(lon / cellPrecision)
	snapshot := at.UTC().Truncate(c.window).Unix()
	return fmt.Sprintf("%d:%d:%d", cellLat, cellLon, snapshot)
}

func (c *bundleCache) get(lat, lon float64, at time.Time) *types.FeatureBundle {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries[c.key(lat, lon, at)]
}

func (c *bundleCache) put(lat, lon float64, at time.Time, bundle *types.FeatureBundle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) >= c.maxEntries {
		c.sweepLocked(at)
	}
	c.entries[c.key(lat, lon, at)] = bundle
}

// sweepLocked removes entries from expired snapshot windows. If the cache is
// still over budget afterwards (a burst within one window), it is reset.
func (c *bundleCache) sweepLocked(at time.Time) {
	current := at.UTC().Truncate(c.window)
	for k, b := range c.entries {
		if b.Timestamp.UTC().Truncate(c.window).Before(current) {
			delete(c.entries, k)
		}
	}
	if len(c.entries) >= c.maxEntries {
		c.entries = make(map[string]*types.FeatureBundle)
	}
}
