package daemon

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"reelsmith/internal/api"
	"reelsmith/internal/services"
	"reelsmith/internal/store"
)

func newListener(addr string) (net.Listener, error) {
	return net.Listen("tcp", addr)
}

func (d *Daemon) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		if token := d.cfg.Paths.APIToken; token != "" {
			r.Use(bearerAuth(token))
		}
		r.Get("/status", d.handleStatus)
		r.Route("/specs", func(r chi.Router) {
			r.Post("/", d.handleCreateSpec)
			r.Get("/", d.handleListSpecs)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", d.handleGetSpec)
				r.Post("/approve", d.handleApproveSpec)
				r.Post("/render", d.handleRenderSpec)
			})
		})
		r.Get("/assets/{id}", d.handleGetAsset)
	})
	return r
}

func bearerAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if got != token {
				respondError(w, http.StatusUnauthorized, "invalid or missing api token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type createSpecRequest struct {
	UserID         string          `json:"user_id"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	TargetDuration int             `json:"target_duration_seconds"`
	Scenes         []api.SceneView `json:"scenes"`
}

func (d *Daemon) handleCreateSpec(w http.ResponseWriter, r *http.Request) {
	var req createSpecRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		respondError(w, http.StatusBadRequest, "title is required")
		return
	}
	spec := &store.SceneSpec{
		UserID:         req.UserID,
		Title:          req.Title,
		Description:    req.Description,
		TargetDuration: req.TargetDuration,
		Scenes:         api.ViewScenes(req.Scenes),
	}
	if err := d.store.CreateSpec(r.Context(), spec); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, api.SpecToView(spec))
}

func (d *Daemon) handleListSpecs(w http.ResponseWriter, r *http.Request) {
	var statuses []store.SpecStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		for _, value := range strings.Split(raw, ",") {
			status, ok := store.ParseSpecStatus(value)
			if !ok {
				respondError(w, http.StatusBadRequest, "unknown status "+value)
				return
			}
			statuses = append(statuses, status)
		}
	}
	specs, err := d.store.ListSpecs(r.Context(), statuses...)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	views := make([]api.SpecView, len(specs))
	for i, spec := range specs {
		views[i] = api.SpecToView(spec)
	}
	respondJSON(w, http.StatusOK, views)
}

func (d *Daemon) handleGetSpec(w http.ResponseWriter, r *http.Request) {
	spec, err := d.store.GetSpec(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if spec == nil {
		respondError(w, http.StatusNotFound, "spec not found")
		return
	}
	respondJSON(w, http.StatusOK, api.SpecToView(spec))
}

func (d *Daemon) handleApproveSpec(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := d.store.ApproveSpec(r.Context(), id); err != nil {
		respondError(w, http.StatusConflict, err.Error())
		return
	}
	spec, err := d.store.GetSpec(r.Context(), id)
	if err != nil || spec == nil {
		respondError(w, http.StatusInternalServerError, "spec approved but could not be reloaded")
		return
	}
	respondJSON(w, http.StatusOK, api.SpecToView(spec))
}

func (d *Daemon) handleRenderSpec(w http.ResponseWriter, r *http.Request) {
	accepted, err := d.orchestrator.Render(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			respondError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, services.ErrValidation):
			respondError(w, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, services.ErrExternalService):
			respondError(w, http.StatusBadGateway, err.Error())
		default:
			respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	respondJSON(w, http.StatusAccepted, api.RenderAcceptedView{
		SpecID:   accepted.SpecID,
		AssetID:  accepted.AssetID,
		JobID:    accepted.JobID,
		Warnings: accepted.Warnings,
	})
}

func (d *Daemon) handleGetAsset(w http.ResponseWriter, r *http.Request) {
	asset, err := d.store.GetAsset(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if asset == nil {
		respondError(w, http.StatusNotFound, "asset not found")
		return
	}
	respondJSON(w, http.StatusOK, api.AssetToView(asset))
}

func (d *Daemon) handleStatus(w http.ResponseWriter, r *http.Request) {
	summary, err := d.store.HealthSummary(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, api.SummaryToView(summary, d.monitor.Active(), d.store.Path()))
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
