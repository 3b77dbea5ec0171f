// Package httpapi serves the bot's health and status endpoints.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"studybot/internal/alert"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// Sources feeds the status endpoint. Nil fields are left out of the reply.
type Sources struct {
	Store     Pinger
	LiveViews func() int
	InFlight  func() int64
	Scheduler func() alert.Status
	Started   time.Time
}

type Handler struct {
	src Sources
	now func() time.Time
}

func New(src Sources) *Handler {
	return &Handler{src: src, now: time.Now}
}

// Router builds the chi router with every route registered.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Recoverer)
	h.RegisterRoutes(r)
	return r
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", h.Health)
	r.Get("/status", h.Status)
}

// Health reports ok when the database answers a ping.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.src.Store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := h.src.Store.Ping(ctx); err != nil {
			Error(w, http.StatusServiceUnavailable, "database unavailable: "+err.Error())
			return
		}
	}
	JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type statusReply struct {
	UptimeSeconds int64         `json:"uptime_seconds"`
	LiveViews     *int          `json:"live_views,omitempty"`
	InFlight      *int64        `json:"in_flight,omitempty"`
	Scheduler     *alert.Status `json:"scheduler,omitempty"`
}

func (h *Handler) Status(w http.ResponseWriter, _ *http.Request) {
	var out statusReply
	if !h.src.Started.IsZero() {
		out.UptimeSeconds = int64(h.now().Sub(h.src.Started).Seconds())
	}
	if h.src.LiveViews != nil {
		n := h.src.LiveViews()
		out.LiveViews = &n
	}
	if h.src.InFlight != nil {
		n := h.src.InFlight()
		out.InFlight = &n
	}
	if h.src.Scheduler != nil {
		st := h.src.Scheduler()
		out.Scheduler = &st
	}
	JSON(w, http.StatusOK, out)
}

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}
