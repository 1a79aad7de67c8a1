// Package sites orchestrates the engine packages behind the HTTP surface:
// it samples feature bundles (with a per-snapshot cache), runs the scorer,
// the fallback search, the confidence calibrator, and the directional
// combiner, and assembles the response-shaped outcomes the handlers return.
package sites

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"bedsight/internal/bearing"
	"bedsight/internal/config"
	"bedsight/internal/confidence"
	"bedsight/internal/features"
	"bedsight/internal/search"
	"bedsight/internal/suitability"
	"bedsight/internal/types"

	"golang.org/x/sync/errgroup"
)

// MaxRankBatch is the largest number of points one ranking request may carry.
const MaxRankBatch = 50

// rankConcurrency bounds parallel sampling during a batch ranking.
const rankConcurrency = 8

// Evaluation pairs a scoring result with its calibrated confidence.
type Evaluation struct {
	Result     *types.SuitabilityResult   `json:"result"`
	Confidence types.CalibratedConfidence `json:"confidence"`
}

// FallbackOutcome is the result of an evaluate-with-fallback query. When the
// origin is acceptable, Alternative is nil and SearchPerformed is false. When
// the origin fails and the search also exhausts, Alternative stays nil with
// SearchPerformed true; that is a valid "nothing nearby" answer, not an error.
type FallbackOutcome struct {
	Origin          Evaluation        `json:"origin"`
	SearchPerformed bool              `json:"search_performed"`
	Alternative     *FallbackSite     `json:"alternative,omitempty"`
}

// FallbackSite is an accepted alternative produced by the fallback search.
type FallbackSite struct {
	Candidate  types.SearchCandidate      `json:"candidate"`
	TierName   string                     `json:"tier_name"`
	Confidence types.CalibratedConfidence `json:"confidence"`
}

// RankedSite is one entry in a batch ranking response.
type RankedSite struct {
	Rank int `json:"rank"`
	Evaluation
}

// Service wires the feature source to the scoring engine.
type Service struct {
	source  features.Source
	profile *config.Profile
	cache   *bundleCache
	logger  *slog.Logger
	now     func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithClock overrides the service clock, used for cache snapshot windows and
// thermal phase derivation.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// WithSnapshotWindow overrides the bundle cache's weather snapshot window.
func WithSnapshotWindow(window time.Duration) ServiceOption {
	return func(s *Service) { s.cache = newBundleCache(window, 0) }
}

// NewService builds the orchestrator.
func NewService(source features.Source, profile *config.Profile, logger *slog.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		source:  source,
		profile: profile,
		cache:   newBundleCache(0, 0),
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Profile exposes the active criteria profile (read-only by convention).
func (s *Service) Profile() *config.Profile { return s.profile }

// Healthy reports whether the feature source can serve samples.
func (s *Service) Healthy(ctx context.Context) error {
	return s.source.Healthy(ctx)
}

// sample fetches the bundle for a point, consulting the snapshot cache first.
func (s *Service) sample(ctx context.Context, lat, lon float64) (*types.FeatureBundle, error) {
	at := s.now()
	if b := s.cache.get(lat, lon, at); b != nil {
		return b, nil
	}
	b, err := s.source.Sample(ctx, lat, lon)
	if err != nil {
		return nil, err
	}
	s.cache.put(lat, lon, at, b)
	return b, nil
}

// Evaluate scores a single point under the base gates and calibrates its
// confidence. Disqualified points are returned as-is; the result carries the
// disqualification reason and a zero-margin confidence.
func (s *Service) Evaluate(ctx context.Context, loc types.Location) (*Evaluation, error) {
	bundle, err := s.sample(ctx, loc.Lat, loc.Lon)
	if err != nil {
		return nil, err
	}
	result := suitability.Score(bundle, s.profile)
	result.Location = loc
	return &Evaluation{
		Result:     &result,
		Confidence: confidence.Calibrate(&result, s.profile),
	}, nil
}

// EvaluateWithFallback scores the origin and, when the origin is disqualified,
// runs the adaptive fallback search for the nearest acceptable alternative.
// maxRadiusM <= 0 uses the profile's configured maximum.
func (s *Service) EvaluateWithFallback(ctx context.Context, origin types.Location, maxRadiusM float64) (*FallbackOutcome, error) {
	eval, err := s.Evaluate(ctx, origin)
	if err != nil {
		return nil, err
	}
	outcome := &FallbackOutcome{Origin: *eval}
	if !eval.Result.Disqualified {
		return outcome, nil
	}

	outcome.SearchPerformed = true
	candidate, err := search.FindAcceptableSite(ctx, origin, s.sample, s.profile, maxRadiusM, s.logger)
	if err != nil {
		return nil, err
	}
	if candidate == nil {
		s.logger.InfoContext(ctx, "fallback search exhausted",
			"lat", origin.Lat, "lon", origin.Lon, "max_radius_m", maxRadiusM)
		return outcome, nil
	}

	outcome.Alternative = &FallbackSite{
		Candidate:  *candidate,
		TierName:   s.tierName(candidate.RelaxationTier),
		Confidence: confidence.Calibrate(&candidate.Result, s.profile),
	}
	return outcome, nil
}

func (s *Service) tierName(tier int) string {
	if tier <= 0 || tier > len(s.profile.Tiers) {
		return "base"
	}
	return s.profile.Tiers[tier-1].Name
}

// RankSites evaluates up to MaxRankBatch points concurrently and orders them
// best-first: accepted sites by composite score descending, disqualified
// sites after all accepted ones. Ties break toward higher confidence, then
// input order. A provider failure on any point fails the batch; partial
// rankings would be misleading.
func (s *Service) RankSites(ctx context.Context, locations []types.Location) ([]RankedSite, error) {
	if len(locations) > MaxRankBatch {
		return nil, types.NewAppError(types.ErrCodeValidationBatchSize,
			"ranking batch exceeds the maximum of 50 points", nil)
	}

	evals := make([]*Evaluation, len(locations))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(rankConcurrency)
	for i, loc := range locations {
		i, loc := i, loc
		g.Go(func() error {
			eval, err := s.Evaluate(gctx, loc)
			if err != nil {
				return err
			}
			evals[i] = eval
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	order := make([]int, len(evals))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ea, eb := evals[order[a]], evals[order[b]]
		if ea.Result.Disqualified != eb.Result.Disqualified {
			return !ea.Result.Disqualified
		}
		if ea.Result.CompositeScore != eb.Result.CompositeScore {
			return ea.Result.CompositeScore > eb.Result.CompositeScore
		}
		return ea.Confidence.Value > eb.Confidence.Value
	})

	ranked := make([]RankedSite, len(order))
	for rank, idx := range order {
		ranked[rank] = RankedSite{Rank: rank + 1, Evaluation: *evals[idx]}
	}
	return ranked, nil
}

// PredictBearing samples the terrain at a point and blends the downhill fall
// line with the supplied thermal and wind states into a predicted travel
// bearing. A nil wind falls back to the sampled weather observation; a nil
// thermal derives phase and direction from the time of day and the slope.
func (s *Service) PredictBearing(
	ctx context.Context,
	loc types.Location,
	thermal *types.ThermalState,
	wind *types.WindState,
	at time.Time,
) (*types.DirectionalBlend, error) {
	bundle, err := s.sample(ctx, loc.Lat, loc.Lon)
	if err != nil {
		return nil, err
	}
	if bundle.AspectDeg == nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamTerrain,
			"terrain aspect unavailable; cannot derive the fall line", nil)
	}

	if at.IsZero() {
		at = s.now()
	}

	var th types.ThermalState
	if thermal != nil {
		th = *thermal
	}

	var wd types.WindState
	switch {
	case wind != nil:
		wd = *wind
	case bundle.WindBearingDeg != nil && bundle.WindSpeedMPH != nil:
		wd = types.WindState{DirectionDeg: *bundle.WindBearingDeg, SpeedMPH: *bundle.WindSpeedMPH}
	}

	blend := bearing.Combine(*bundle.AspectDeg, th, wd, at, s.profile.Bearing)
	return &blend, nil
}
