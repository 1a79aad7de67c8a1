package features

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"bedsight/internal/config"
	"bedsight/internal/external"
	"bedsight/internal/types"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/sync/errgroup"
)

// terrainResponse is the wire shape of the terrain sampler. Pointer fields
// distinguish "not observed" from a legitimate zero.
type terrainResponse struct {
	ElevationM     *float64 `json:"elevation_m"`
	SlopeDeg       *float64 `json:"slope_deg"`
	AspectDeg      *float64 `json:"aspect_deg"`
	CanopyFraction *float64 `json:"canopy_fraction"`
}

type weatherResponse struct {
	WindBearingDeg *float64 `json:"wind_bearing_deg"`
	WindSpeedMPH   *float64 `json:"wind_speed_mph"`
	TemperatureF   *float64 `json:"temperature_f"`
	ObservedAt     string   `json:"observed_at"`
}

type roadsResponse struct {
	NearestRoadM *float64 `json:"nearest_road_m"`
}

// HTTPSource samples feature bundles from the remote provider trio. Terrain
// is the backbone: a terrain failure fails the sample. Weather and roads are
// enrichment; their failures degrade the bundle and are logged, not returned.
type HTTPSource struct {
	terrainURL string
	weatherURL string
	roadsURL   string
	apiKey     types.SecretString
	terrain    *external.BaseClient
	weather    *external.BaseClient
	roads      *external.BaseClient
	logger     *slog.Logger
}

// NewHTTPSource builds a sampler over the configured provider endpoints.
// Each provider gets its own circuit breaker so a weather outage cannot
// trip the terrain path.
func NewHTTPSource(cfg config.ProviderConfig, logger *slog.Logger) *HTTPSource {
	httpClient := &http.Client{Timeout: cfg.Timeout}
	policy := external.DefaultRetryPolicy()

	return &HTTPSource{
		terrainURL: cfg.TerrainURL,
		weatherURL: cfg.WeatherURL,
		roadsURL:   cfg.RoadsURL,
		apiKey:     cfg.APIKey,
		terrain:    external.NewBaseClient(httpClient, "terrain-provider", policy, cfg.UserAgent),
		weather:    external.NewBaseClient(httpClient, "weather-provider", policy, cfg.UserAgent),
		roads:      external.NewBaseClient(httpClient, "roads-provider", policy, cfg.UserAgent),
		logger:     logger,
	}
}

// Sample fetches terrain, weather, and road features for a coordinate in
// parallel and assembles the bundle. Optional providers that fail leave
// their fields nil.
func (s *HTTPSource) Sample(ctx context.Context, lat, lon float64) (*types.FeatureBundle, error) {
	bundle := &types.FeatureBundle{
		Location:  types.Location{Lat: lat, Lon: lon},
		Timestamp: time.Now().UTC(),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var tr terrainResponse
		if err := s.fetch(gctx, s.terrain, s.terrainURL, lat, lon, types.ErrCodeUpstreamTerrain, &tr); err != nil {
			return err
		}
		bundle.ElevationM = tr.ElevationM
		bundle.SlopeDeg = tr.SlopeDeg
		bundle.AspectDeg = tr.AspectDeg
		bundle.CanopyFraction = tr.CanopyFraction
		return nil
	})

	g.Go(func() error {
		if s.weatherURL == "" {
			return nil
		}
		var wr weatherResponse
		if err := s.fetch(gctx, s.weather, s.weatherURL, lat, lon, types.ErrCodeUpstreamWeather, &wr); err != nil {
			s.logger.WarnContext(gctx, "weather provider unavailable; degrading wind criteria",
				"lat", lat, "lon", lon, "error", err)
			return nil
		}
		bundle.WindBearingDeg = wr.WindBearingDeg
		bundle.WindSpeedMPH = wr.WindSpeedMPH
		bundle.TemperatureF = wr.TemperatureF
		return nil
	})

	g.Go(func() error {
		if s.roadsURL == "" {
			return nil
		}
		var rr roadsResponse
		if err := s.fetch(gctx, s.roads, s.roadsURL, lat, lon, types.ErrCodeUpstreamRoads, &rr); err != nil {
			s.logger.WarnContext(gctx, "roads provider unavailable; degrading isolation criterion",
				"lat", lat, "lon", lon, "error", err)
			return nil
		}
		bundle.RoadDistanceM = rr.NearestRoadM
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return bundle, nil
}

// Healthy probes the terrain endpoint, the one provider the engine cannot
// run without.
func (s *HTTPSource) Healthy(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var tr terrainResponse
	return s.fetch(ctx, s.terrain, s.terrainURL, 0, 0, types.ErrCodeUpstreamTerrain, &tr)
}

// fetch performs one provider GET and decodes the JSON body into out,
// transparently handling gzip-compressed responses.
func (s *HTTPSource) fetch(
	ctx context.Context,
	client *external.BaseClient,
	baseURL string,
	lat, lon float64,
	code types.ErrorCode,
	out any,
) error {
	u, err := url.Parse(baseURL)
	if err != nil {
		return types.NewAppError(code, "invalid provider URL", err)
	}
	q := u.Query()
	q.Set("lat", fmt.Sprintf("%.6f", lat))
	q.Set("lon", fmt.Sprintf("%.6f", lon))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return types.NewAppError(code, "failed to build provider request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "gzip")
	if key := s.apiKey.Unmask(); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.NewAppError(code,
			fmt.Sprintf("provider returned status %d", resp.StatusCode), nil)
	}

	var body io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, gzErr := gzip.NewReader(resp.Body)
		if gzErr != nil {
			return types.NewAppError(code, "failed to open gzip response body", gzErr)
		}
		defer gz.Close()
		body = gz
	}

	if err := json.NewDecoder(body).Decode(out); err != nil {
		return types.NewAppError(code, "failed to decode provider response", err)
	}
	return nil
}
