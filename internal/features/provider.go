// Package features defines the sampling boundary: given a coordinate, produce
// the FeatureBundle the scoring engine consumes. Two sources implement it: an
// HTTP sampler composing the remote terrain, weather, and road providers, and
// a deterministic synthetic terrain model for local mode and tests.
//
// A source never fails a whole sample because one attribute is missing; it
// returns the bundle with nil fields for whatever could not be fetched, and
// the scorer degrades those criteria. A source errors only when it cannot
// produce any terrain data at all.
package features

import (
	"context"

	"bedsight/internal/types"
)

// Source samples the environmental features at a coordinate.
type Source interface {
	// Sample returns the feature bundle at (lat, lon). Fields that could not
	// be observed are nil, never zero. The returned error is non-nil only
	// when no usable bundle could be assembled.
	Sample(ctx context.Context, lat, lon float64) (*types.FeatureBundle, error)

	// Healthy reports whether the source can currently serve samples. Used
	// by the readiness probe.
	Healthy(ctx context.Context) error
}
