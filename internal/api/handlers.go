// Package api provides the HTTP surface of the faceslots daemon: slot
// snapshots, slot selection, chooser session callbacks and the provider
// catalog. Everything except /health, /metrics and the chooser callback is
// protected by an optional bearer token.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ferro-labs/faceslots"
	"github.com/ferro-labs/faceslots/chooser"
	"github.com/ferro-labs/faceslots/internal/logging"
	"github.com/ferro-labs/faceslots/internal/ratelimit"
	"github.com/ferro-labs/faceslots/internal/version"
	"github.com/ferro-labs/faceslots/providers"
	"github.com/ferro-labs/faceslots/slots"
)

// Coordinator is the part of *faceslots.Coordinator the API drives.
type Coordinator interface {
	Snapshot(ctx context.Context) (faceslots.Snapshot, error)
	Select(ctx context.Context, loc slots.Location) (chooser.Token, error)
}

// SessionCompleter accepts chooser answers delivered by callback.
// *chooser.HTTP implements it.
type SessionCompleter interface {
	Complete(token chooser.Token, provider *providers.Info) error
}

// Handlers holds dependencies for the HTTP handlers.
type Handlers struct {
	Coordinator Coordinator
	Sessions    SessionCompleter // nil when the chooser runs in-process
	Providers   providers.Source
	Limiter     *ratelimit.Store // nil disables select rate limiting
	Token       string
}

// Routes returns a chi.Router with every endpoint mounted.
func (h *Handlers) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/health", h.healthCheck)
	r.Handle("/metrics", promhttp.Handler())

	// The unguessable session token in the path authorizes the callback.
	r.Post("/v1/chooser/sessions/{token}", h.completeSession)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(h.Token))
		r.Get("/v1/slots", h.listSlots)
		r.With(ratelimit.Middleware(h.Limiter, ratelimit.ByRemoteIP)).
			Post("/v1/slots/{location}/select", h.selectSlot)
		r.Get("/v1/providers", h.listProviders)
	})

	return r
}

// NewRouter wraps Routes with the standard middleware stack.
func NewRouter(h *Handlers) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(logging.Middleware)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Mount("/", h.Routes())
	return r
}

func (h *Handlers) healthCheck(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	code := http.StatusOK
	if _, err := h.Coordinator.Snapshot(r.Context()); err != nil {
		status = "unavailable"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]string{
		"status":  status,
		"version": version.Short(),
	})
}

func (h *Handlers) listSlots(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Coordinator.Snapshot(r.Context())
	if err != nil {
		writeCoordinatorError(w, err)
		return
	}
	if snap.Slots == nil {
		snap.Slots = []faceslots.SlotStatus{}
	}
	writeJSON(w, http.StatusOK, snap)
}

type selectResponse struct {
	Location slots.Location `json:"location"`
	Token    chooser.Token  `json:"token"`
}

func (h *Handlers) selectSlot(w http.ResponseWriter, r *http.Request) {
	loc, err := slots.ParseLocation(chi.URLParam(r, "location"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error(), "", "slot_not_found")
		return
	}
	token, err := h.Coordinator.Select(r.Context(), loc)
	if err != nil {
		writeCoordinatorError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, selectResponse{Location: loc, Token: token})
}

type sessionResult struct {
	Provider *providers.Info `json:"provider"`
}

func (h *Handlers) completeSession(w http.ResponseWriter, r *http.Request) {
	if h.Sessions == nil {
		writeError(w, http.StatusNotFound, "no external chooser configured", "", "session_not_found")
		return
	}
	var body sessionResult
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "", "invalid_body")
		return
	}
	if body.Provider != nil && (body.Provider.Name == "" || body.Provider.Component == "") {
		writeError(w, http.StatusBadRequest, "provider name and component are required", "", "invalid_provider")
		return
	}

	token := chooser.Token(chi.URLParam(r, "token"))
	if err := h.Sessions.Complete(token, body.Provider); err != nil {
		if errors.Is(err, chooser.ErrUnknownSession) {
			writeError(w, http.StatusNotFound, "unknown chooser session", "", "session_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error(), "", "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) listProviders(w http.ResponseWriter, _ *http.Request) {
	result := []providers.Info{}
	if h.Providers != nil {
		result = append(result, h.Providers.All()...)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"object": "list",
		"data":   result,
	})
}

func writeCoordinatorError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, faceslots.ErrSlotUnsupported):
		writeError(w, http.StatusNotFound, err.Error(), "", "slot_not_supported")
	case errors.Is(err, faceslots.ErrNotRunning):
		writeError(w, http.StatusServiceUnavailable, err.Error(), "", "not_running")
	default:
		writeError(w, http.StatusInternalServerError, err.Error(), "", "")
	}
}
