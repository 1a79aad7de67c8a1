package sites

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bedsight/internal/config"
	"bedsight/internal/geo"
	"bedsight/internal/types"
)

// fakeSource serves bundles from a function and counts Sample calls.
type fakeSource struct {
	mu      sync.Mutex
	calls   int64
	fn      func(lat, lon float64) (*types.FeatureBundle, error)
	healthy error
}

func (f *fakeSource) Sample(_ context.Context, lat, lon float64) (*types.FeatureBundle, error) {
	atomic.AddInt64(&f.calls, 1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fn(lat, lon)
}

func (f *fakeSource) Healthy(context.Context) error { return f.healthy }

func bundleWithAspect(lat, lon, aspect float64) *types.FeatureBundle {
	return &types.FeatureBundle{
		Location:       types.Location{Lat: lat, Lon: lon},
		SlopeDeg:       types.Float64Ptr(12),
		AspectDeg:      types.Float64Ptr(aspect),
		CanopyFraction: types.Float64Ptr(0.8),
		RoadDistanceM:  types.Float64Ptr(600),
		WindBearingDeg: types.Float64Ptr(0),
		WindSpeedMPH:   types.Float64Ptr(5),
		TemperatureF:   types.Float64Ptr(40),
		Timestamp:      time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC),
	}
}

func newTestService(t *testing.T, src *fakeSource) *Service {
	t.Helper()
	p := config.DefaultProfile()
	require.NoError(t, p.Validate())
	return NewService(src, p, slog.Default())
}

func TestEvaluateAcceptedSite(t *testing.T) {
	src := &fakeSource{fn: func(lat, lon float64) (*types.FeatureBundle, error) {
		return bundleWithAspect(lat, lon, 180), nil
	}}
	svc := newTestService(t, src)

	eval, err := svc.Evaluate(context.Background(), types.Location{Lat: 44.5, Lon: -72.6})
	require.NoError(t, err)

	assert.False(t, eval.Result.Disqualified)
	assert.InDelta(t, 100.0, eval.Result.CompositeScore, 1e-6)
	assert.Greater(t, eval.Confidence.Value, 0.6)
	assert.Equal(t, 44.5, eval.Result.Location.Lat)
}

func TestEvaluatePropagatesProviderError(t *testing.T) {
	boom := types.NewAppError(types.ErrCodeUpstreamTerrain, "tile store down", nil)
	src := &fakeSource{fn: func(lat, lon float64) (*types.FeatureBundle, error) {
		return nil, boom
	}}
	svc := newTestService(t, src)

	_, err := svc.Evaluate(context.Background(), types.Location{Lat: 44.5, Lon: -72.6})
	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeUpstreamTerrain, appErr.Code)
}

func TestEvaluateUsesSnapshotCache(t *testing.T) {
	src := &fakeSource{fn: func(lat, lon float64) (*types.FeatureBundle, error) {
		return bundleWithAspect(lat, lon, 180), nil
	}}
	svc := newTestService(t, src)

	loc := types.Location{Lat: 44.5, Lon: -72.6}
	_, err := svc.Evaluate(context.Background(), loc)
	require.NoError(t, err)
	_, err = svc.Evaluate(context.Background(), loc)
	require.NoError(t, err)

	assert.Equal(t, int64(1), atomic.LoadInt64(&src.calls), "second evaluation should hit the cache")
}

func TestEvaluateCacheExpiresWithSnapshotWindow(t *testing.T) {
	src := &fakeSource{fn: func(lat, lon float64) (*types.FeatureBundle, error) {
		return bundleWithAspect(lat, lon, 180), nil
	}}
	now := time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC)
	p := config.DefaultProfile()
	svc := NewService(src, p, slog.Default(),
		WithSnapshotWindow(15*time.Minute),
		WithClock(func() time.Time { return now }),
	)

	loc := types.Location{Lat: 44.5, Lon: -72.6}
	_, err := svc.Evaluate(context.Background(), loc)
	require.NoError(t, err)

	// Advance past the snapshot window: the weather observation is stale and
	// the bundle must be re-sampled.
	now = now.Add(16 * time.Minute)
	_, err = svc.Evaluate(context.Background(), loc)
	require.NoError(t, err)

	assert.Equal(t, int64(2), atomic.LoadInt64(&src.calls))
}

func TestEvaluateWithFallbackAcceptedOrigin(t *testing.T) {
	src := &fakeSource{fn: func(lat, lon float64) (*types.FeatureBundle, error) {
		return bundleWithAspect(lat, lon, 180), nil
	}}
	svc := newTestService(t, src)

	outcome, err := svc.EvaluateWithFallback(context.Background(), types.Location{Lat: 44.5, Lon: -72.6}, 0)
	require.NoError(t, err)

	assert.False(t, outcome.SearchPerformed)
	assert.Nil(t, outcome.Alternative)
	assert.False(t, outcome.Origin.Result.Disqualified)
}

func TestEvaluateWithFallbackFindsAlternative(t *testing.T) {
	origin := types.Location{Lat: 44.5, Lon: -72.6}
	src := &fakeSource{fn: func(lat, lon float64) (*types.FeatureBundle, error) {
		if geo.HaversineM(origin.Lat, origin.Lon, lat, lon) < 140 {
			return bundleWithAspect(lat, lon, 70), nil
		}
		return bundleWithAspect(lat, lon, 180), nil
	}}
	svc := newTestService(t, src)

	outcome, err := svc.EvaluateWithFallback(context.Background(), origin, 300)
	require.NoError(t, err)

	assert.True(t, outcome.SearchPerformed)
	assert.True(t, outcome.Origin.Result.Disqualified)
	require.NotNil(t, outcome.Alternative)
	assert.False(t, outcome.Alternative.Candidate.Result.Disqualified)
	assert.Equal(t, "base", outcome.Alternative.TierName)
	assert.InDelta(t, 150.0, outcome.Alternative.Candidate.DistanceFromOriginM, 1.0)
	assert.Greater(t, outcome.Alternative.Confidence.Value, 0.0)
}

func TestEvaluateWithFallbackExhausted(t *testing.T) {
	src := &fakeSource{fn: func(lat, lon float64) (*types.FeatureBundle, error) {
		return bundleWithAspect(lat, lon, 70), nil
	}}
	svc := newTestService(t, src)

	outcome, err := svc.EvaluateWithFallback(context.Background(), types.Location{Lat: 44.5, Lon: -72.6}, 300)
	require.NoError(t, err)

	assert.True(t, outcome.SearchPerformed)
	assert.Nil(t, outcome.Alternative)
}

func TestRankSitesOrdering(t *testing.T) {
	// Aspect drives the score: 180 is optimal, 210 partial, 70 gated out.
	aspects := map[float64]float64{
		-72.60: 210,
		-72.61: 180,
		-72.62: 70,
	}
	src := &fakeSource{fn: func(lat, lon float64) (*types.FeatureBundle, error) {
		return bundleWithAspect(lat, lon, aspects[lon]), nil
	}}
	svc := newTestService(t, src)

	locs := []types.Location{
		{Lat: 44.5, Lon: -72.60},
		{Lat: 44.5, Lon: -72.61},
		{Lat: 44.5, Lon: -72.62},
	}
	ranked, err := svc.RankSites(context.Background(), locs)
	require.NoError(t, err)
	require.Len(t, ranked, 3)

	assert.Equal(t, 1, ranked[0].Rank)
	assert.Equal(t, -72.61, ranked[0].Result.Location.Lon)
	assert.Equal(t, -72.60, ranked[1].Result.Location.Lon)
	// The disqualified point ranks last regardless of its raw composite.
	assert.Equal(t, -72.62, ranked[2].Result.Location.Lon)
	assert.True(t, ranked[2].Result.Disqualified)
	assert.GreaterOrEqual(t, ranked[0].Result.CompositeScore, ranked[1].Result.CompositeScore)
}

func TestRankSitesBatchLimit(t *testing.T) {
	src := &fakeSource{fn: func(lat, lon float64) (*types.FeatureBundle, error) {
		return bundleWithAspect(lat, lon, 180), nil
	}}
	svc := newTestService(t, src)

	locs := make([]types.Location, MaxRankBatch+1)
	for i := range locs {
		locs[i] = types.Location{Lat: 44.5, Lon: -72.6 + float64(i)*0.001}
	}

	_, err := svc.RankSites(context.Background(), locs)
	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeValidationBatchSize, appErr.Code)
}

func TestPredictBearingUsesObservedWind(t *testing.T) {
	src := &fakeSource{fn: func(lat, lon float64) (*types.FeatureBundle, error) {
		b := bundleWithAspect(lat, lon, 180)
		b.WindBearingDeg = types.Float64Ptr(90)
		b.WindSpeedMPH = types.Float64Ptr(25)
		return b, nil
	}}
	svc := newTestService(t, src)

	blend, err := svc.PredictBearing(context.Background(),
		types.Location{Lat: 44.5, Lon: -72.6}, nil, nil,
		time.Date(2026, 1, 15, 13, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	// 25 mph observed wind crosses the dominance threshold.
	assert.Greater(t, blend.ComponentWeights.Wind, 0.5)
}

func TestPredictBearingMissingAspect(t *testing.T) {
	src := &fakeSource{fn: func(lat, lon float64) (*types.FeatureBundle, error) {
		b := bundleWithAspect(lat, lon, 180)
		b.AspectDeg = nil
		return b, nil
	}}
	svc := newTestService(t, src)

	_, err := svc.PredictBearing(context.Background(),
		types.Location{Lat: 44.5, Lon: -72.6}, nil, nil, time.Time{})
	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeUpstreamTerrain, appErr.Code)
}

func TestHealthyDelegatesToSource(t *testing.T) {
	src := &fakeSource{
		fn:      func(lat, lon float64) (*types.FeatureBundle, error) { return nil, nil },
		healthy: errors.New("terrain provider unreachable"),
	}
	svc := newTestService(t, src)

	assert.Error(t, svc.Healthy(context.Background()))
}
