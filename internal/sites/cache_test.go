package sites

import (
	"testing"
	"time"

	"bedsight/internal/types"
)

func TestBundleCacheHitSameCellSameWindow(t *testing.T) {
	c := newBundleCache(15*time.Minute, 0)
	at := time.Date(2026, 1, 15, 8, 3, 0, 0, time.UTC)
	b := &types.FeatureBundle{Timestamp: at}

	c.put(44.50001, -72.60001, at, b)

	// Within ~11 m and the same snapshot window.
	if got := c.get(44.50002, -72.60002, at.Add(2*time.Minute)); got != b {
		t.Error("expected a cache hit for the same cell and window")
	}
}

func TestBundleCacheMissAcrossCells(t *testing.T) {
	c := newBundleCache(15*time.Minute, 0)
	at := time.Date(2026, 1, 15, 8, 3, 0, 0, time.UTC)
	c.put(44.5, -72.6, at, &types.FeatureBundle{Timestamp: at})

	if got := c.get(44.501, -72.6, at); got != nil {
		t.Error("expected a miss for a different grid cell")
	}
}

func TestBundleCacheMissAcrossWindows(t *testing.T) {
	c := newBundleCache(15*time.Minute, 0)
	at := time.Date(2026, 1, 15, 8, 3, 0, 0, time.UTC)
	c.put(44.5, -72.6, at, &types.FeatureBundle{Timestamp: at})

	// The next snapshot window must not serve the stale weather observation.
	if got := c.get(44.5, -72.6, at.Add(15*time.Minute)); got != nil {
		t.Error("expected a miss after the snapshot window advanced")
	}
}

func TestBundleCacheSweepsExpiredEntries(t *testing.T) {
	c := newBundleCache(15*time.Minute, 4)
	old := time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		c.put(44.5+float64(i)*0.01, -72.6, old, &types.FeatureBundle{Timestamp: old})
	}

	// The next put in a later window triggers the sweep of the stale window.
	now := old.Add(30 * time.Minute)
	c.put(44.5, -72.6, now, &types.FeatureBundle{Timestamp: now})

	c.mu.RLock()
	size := len(c.entries)
	c.mu.RUnlock()
	if size != 1 {
		t.Errorf("cache holds %d entries after sweep, want 1", size)
	}
}
