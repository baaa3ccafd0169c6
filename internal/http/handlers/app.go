package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aakash-taneja/miles/internal/domain"
	"github.com/aakash-taneja/miles/internal/infra"
	"github.com/aakash-taneja/miles/internal/infra/geoip"
	"github.com/aakash-taneja/miles/internal/middleware"
	"github.com/aakash-taneja/miles/internal/orchestrator"
)

// ArtifactStore is the handler-facing slice of the content-addressed store:
// direct uploads of originals and fetch-back for archive export.
type ArtifactStore interface {
	Upload(ctx context.Context, name string, data []byte) (domain.Variant, error)
	Fetch(ctx context.Context, cid string) ([]byte, error)
}

// App is the handler container. Collaborators are injected by cmd/api.
type App struct {
	Config *infra.Config
	Logger infra.Logger
	Core   *orchestrator.Orchestrator
	Store  ArtifactStore
	Region geoip.RegionResolver
}

// NewApp bundles the handler dependencies.
func NewApp(cfg *infra.Config, logger infra.Logger, core *orchestrator.Orchestrator, store ArtifactStore, region geoip.RegionResolver) *App {
	return &App{Config: cfg, Logger: logger, Core: core, Store: store, Region: region}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, msg string) {
	a.json(w, code, map[string]string{"error": errCode, "message": msg})
}

// domainError maps sentinel errors onto HTTP responses, preserving upstream
// detail text for operators.
func (a *App) domainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotAuthenticated):
		a.error(w, http.StatusUnauthorized, "not_authenticated", "not authenticated")
	case errors.Is(err, domain.ErrNotAuthorized):
		a.error(w, http.StatusForbidden, "not_authorized", "not authorized")
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", "not found")
	case errors.Is(err, domain.ErrDuplicateOperation):
		a.error(w, http.StatusConflict, "duplicate", "operation already performed")
	case errors.Is(err, domain.ErrUpstreamFailure):
		a.error(w, http.StatusBadGateway, "upstream_failure", err.Error())
	default:
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

// caller returns the authenticated wallet address or writes a 401.
func (a *App) caller(w http.ResponseWriter, r *http.Request) (string, bool) {
	address := middleware.CallerAddress(r.Context())
	if address == "" {
		a.error(w, http.StatusUnauthorized, "not_authenticated", "missing caller identity")
		return "", false
	}
	return address, true
}

// callerRegion resolves the caller's region for dataset auto-creation,
// falling back to the default when GeoIP is not configured or has no record.
func (a *App) callerRegion(r *http.Request) string {
	if a.Region == nil {
		return ""
	}
	region, err := a.Region.Region(middleware.ClientIP(r))
	if err != nil || region == "" {
		return ""
	}
	return region
}
