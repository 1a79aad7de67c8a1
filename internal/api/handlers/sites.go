// Package handlers contains the HTTP handler implementations for the bedsight
// API:
//   - Single-point evaluation (GET /v1/sites/evaluate)
//   - Evaluation with adaptive fallback search (POST /v1/sites/search)
//   - Batch ranking (POST /v1/sites/rank)
//   - Movement bearing prediction (POST /v1/movement/bearing)
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"bedsight/internal/core"
	"bedsight/internal/sites"
	"bedsight/internal/types"
)

// SiteServiceInterface is the service contract for the site handler. Defined
// locally to avoid tight coupling per the handler injection pattern.
type SiteServiceInterface interface {
	Evaluate(ctx context.Context, loc types.Location) (*sites.Evaluation, error)
	EvaluateWithFallback(ctx context.Context, origin types.Location, maxRadiusM float64) (*sites.FallbackOutcome, error)
	RankSites(ctx context.Context, locations []types.Location) ([]sites.RankedSite, error)
	PredictBearing(ctx context.Context, loc types.Location, thermal *types.ThermalState, wind *types.WindState, at time.Time) (*types.DirectionalBlend, error)
}

// SiteHandler maps HTTP requests to the sites service.
type SiteHandler struct {
	service   SiteServiceInterface
	validator *core.Validator
	logger    *slog.Logger
}

// NewSiteHandler creates a SiteHandler with the provided dependencies.
func NewSiteHandler(svc SiteServiceInterface, val *core.Validator, logger *slog.Logger) *SiteHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SiteHandler{
		service:   svc,
		validator: val,
		logger:    logger,
	}
}

// RegisterRoutes mounts the site and movement endpoints onto the v1 mux.
func (h *SiteHandler) RegisterRoutes(r chi.Router) {
	r.Route("/sites", func(r chi.Router) {
		r.Get("/evaluate", h.HandleEvaluate)
		r.Post("/search", h.HandleSearch)
		r.Post("/rank", h.HandleRank)
	})
	r.Post("/movement/bearing", h.HandleBearing)
}

// HandleEvaluate handles GET /v1/sites/evaluate?lat=..&lon=..
func (h *SiteHandler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	loc, ok := parseLocationQuery(w, r)
	if !ok {
		return
	}

	eval, err := h.service.Evaluate(r.Context(), loc)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: eval})
}

// searchRequest is the body for POST /v1/sites/search.
type searchRequest struct {
	Origin     types.Location `json:"origin" validate:"required"`
	MaxRadiusM float64        `json:"max_radius_m,omitempty" validate:"gte=0,lte=10000"`
}

// HandleSearch handles POST /v1/sites/search. The origin is always scored;
// when it fails the base gates, the fallback search runs and the response
// carries the nearest acceptable alternative, or none if the search exhausts.
func (h *SiteHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	outcome, err := h.service.EvaluateWithFallback(r.Context(), req.Origin, req.MaxRadiusM)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: outcome})
}

// rankRequest is the body for POST /v1/sites/rank.
type rankRequest struct {
	Locations []types.Location `json:"locations" validate:"required,min=1,max=50,dive"`
}

type rankResponse struct {
	Sites []sites.RankedSite `json:"sites"`
}

// HandleRank handles POST /v1/sites/rank.
func (h *SiteHandler) HandleRank(w http.ResponseWriter, r *http.Request) {
	var req rankRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	ranked, err := h.service.RankSites(r.Context(), req.Locations)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: rankResponse{Sites: ranked}})
}

// bearingRequest is the body for POST /v1/movement/bearing. Thermal and wind
// are optional: a missing wind falls back to the sampled weather observation,
// and a missing thermal is derived from the time of day and the slope. At
// defaults to the current time.
type bearingRequest struct {
	Location types.Location      `json:"location" validate:"required"`
	Thermal  *types.ThermalState `json:"thermal,omitempty"`
	Wind     *types.WindState    `json:"wind,omitempty"`
	At       *time.Time          `json:"at,omitempty"`
}

// HandleBearing handles POST /v1/movement/bearing.
func (h *SiteHandler) HandleBearing(w http.ResponseWriter, r *http.Request) {
	var req bearingRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}
	if req.Thermal != nil && req.Thermal.Phase != "" && !validPhase(req.Thermal.Phase) {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationInvalidPhase,
			"unknown thermal phase: "+string(req.Thermal.Phase),
			nil,
		))
		return
	}

	at := time.Time{}
	if req.At != nil {
		at = *req.At
	}

	blend, err := h.service.PredictBearing(r.Context(), req.Location, req.Thermal, req.Wind, at)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: blend})
}

// parseLocationQuery reads and validates lat/lon query parameters. On failure
// it writes the error response and returns ok=false.
func parseLocationQuery(w http.ResponseWriter, r *http.Request) (types.Location, bool) {
	q := r.URL.Query()

	latStr := q.Get("lat")
	if latStr == "" {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationMissingField,
			"lat query parameter is required",
			nil,
		))
		return types.Location{}, false
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil || lat < -90 || lat > 90 {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationInvalidLat,
			"lat must be a number between -90 and 90",
			nil,
		))
		return types.Location{}, false
	}

	lonStr := q.Get("lon")
	if lonStr == "" {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationMissingField,
			"lon query parameter is required",
			nil,
		))
		return types.Location{}, false
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil || lon < -180 || lon > 180 {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationInvalidLon,
			"lon must be a number between -180 and 180",
			nil,
		))
		return types.Location{}, false
	}

	return types.Location{Lat: lat, Lon: lon}, true
}

func validPhase(p types.ThermalPhase) bool {
	switch p {
	case types.ThermalInactive, types.ThermalForming, types.ThermalStrongDownslope,
		types.ThermalStrongUpslope, types.ThermalPeak, types.ThermalPostPeak:
		return true
	}
	return false
}
