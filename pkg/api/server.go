package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/bosunhq/bosun/pkg/log"
	"github.com/bosunhq/bosun/pkg/metrics"
	"github.com/bosunhq/bosun/pkg/orchestrator"
	"github.com/bosunhq/bosun/pkg/strategic"
	"github.com/bosunhq/bosun/pkg/types"
)

// Server exposes the orchestrator over HTTP: status queries, manual
// scheduling commands and snapshot export.
type Server struct {
	orch     *orchestrator.Orchestrator
	validate *validator.Validate
	logger   zerolog.Logger
	http     *http.Server
}

// NewServer builds the HTTP server for an orchestrator.
func NewServer(orch *orchestrator.Orchestrator) *Server {
	return &Server{
		orch:     orch,
		validate: validator.New(),
		logger:   log.WithComponent("api"),
	}
}

// Router assembles the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)

	r.Get("/healthz", s.handleHealthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/assets", s.handleListAssets)
		r.Route("/assets/{asset}", func(r chi.Router) {
			r.Get("/status", s.handleAssetStatus)
			r.Get("/strategic/status", s.handleStrategicStatus)
			r.Get("/tactical/status", s.handleTacticalStatus)
			r.Get("/supervisor/status", s.handleSupervisorStatus)
			r.Get("/operational/status", s.handleOperationalStatus)
			r.Get("/export", s.handleExport)

			r.Post("/strategic/schedule", s.handleSchedule)
			r.Post("/strategic/exclude", s.handleExclude)
			r.Post("/strategic/period-lock", s.handlePeriodLock)

			r.Post("/workorders/{won}/status", s.handleUserStatus)

			r.Post("/supervisors", s.handleCreateSupervisor)
			r.Delete("/supervisors/{id}", s.handleDeleteSupervisor)
			r.Post("/operationals", s.handleCreateOperational)
			r.Delete("/operationals/{id}", s.handleDeleteOperational)
		})
	})
	return r
}

// Start serves until the context is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.http.Shutdown(shutdownCtx)
	}()

	s.logger.Info().Str("addr", addr).Msg("HTTP API listening")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		timer := metrics.NewTimer()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		timer.ObserveDuration(metrics.APIRequestDuration.WithLabelValues(route))
		metrics.APIRequestsTotal.WithLabelValues(route, strconv.Itoa(ww.Status())).Inc()
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	for _, asset := range s.orch.Assets() {
		if !s.orch.Healthy(asset) {
			writeError(w, http.StatusServiceUnavailable, fmt.Errorf("asset %s is unhealthy", asset))
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListAssets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.orch.Assets())
}

func (s *Server) handleAssetStatus(w http.ResponseWriter, r *http.Request) {
	asset := types.Asset(chi.URLParam(r, "asset"))
	writeJSON(w, http.StatusOK, map[string]any{
		"asset":   asset,
		"healthy": s.orch.Healthy(asset),
	})
}

func (s *Server) handleStrategicStatus(w http.ResponseWriter, r *http.Request) {
	asset := types.Asset(chi.URLParam(r, "asset"))
	status, err := s.orch.StrategicStatus(r.Context(), asset)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleTacticalStatus(w http.ResponseWriter, r *http.Request) {
	asset := types.Asset(chi.URLParam(r, "asset"))
	status, err := s.orch.TacticalStatus(r.Context(), asset)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleSupervisorStatus(w http.ResponseWriter, r *http.Request) {
	asset := types.Asset(chi.URLParam(r, "asset"))
	statuses, err := s.orch.SupervisorStatuses(r.Context(), asset)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statuses)
}

func (s *Server) handleOperationalStatus(w http.ResponseWriter, r *http.Request) {
	asset := types.Asset(chi.URLParam(r, "asset"))
	statuses, err := s.orch.OperationalStatuses(r.Context(), asset)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statuses)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	asset := types.Asset(chi.URLParam(r, "asset"))
	snap, err := s.orch.Export(asset)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	asset := types.Asset(chi.URLParam(r, "asset"))
	var req strategic.ScheduleRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.orch.PinWorkOrder(r.Context(), asset, req); err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "pinned"})
}

func (s *Server) handleExclude(w http.ResponseWriter, r *http.Request) {
	asset := types.Asset(chi.URLParam(r, "asset"))
	var req strategic.ExcludeRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.orch.ExcludePeriod(r.Context(), asset, req); err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "excluded"})
}

func (s *Server) handlePeriodLock(w http.ResponseWriter, r *http.Request) {
	asset := types.Asset(chi.URLParam(r, "asset"))
	var req strategic.PeriodLockRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.orch.LockPeriod(r.Context(), asset, req); err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "locked"})
}

func (s *Server) handleUserStatus(w http.ResponseWriter, r *http.Request) {
	won, err := strconv.ParseUint(chi.URLParam(r, "won"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid work order number: %w", err))
		return
	}
	var toggle orchestrator.UserStatusToggle
	if !s.decode(w, r, &toggle) {
		return
	}
	if err := s.orch.ToggleUserStatus(types.WorkOrderNumber(won), toggle); err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "updated"})
}

// CreateSupervisorRequest names a new supervisor.
type CreateSupervisorRequest struct {
	ID string `json:"id" validate:"required"`
}

func (s *Server) handleCreateSupervisor(w http.ResponseWriter, r *http.Request) {
	asset := types.Asset(chi.URLParam(r, "asset"))
	var req CreateSupervisorRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.orch.CreateSupervisor(asset, types.SupervisorID(req.ID)); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": req.ID})
}

func (s *Server) handleDeleteSupervisor(w http.ResponseWriter, r *http.Request) {
	asset := types.Asset(chi.URLParam(r, "asset"))
	id := types.SupervisorID(chi.URLParam(r, "id"))
	if err := s.orch.DeleteSupervisor(asset, id); err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// CreateOperationalRequest describes a new worker.
type CreateOperationalRequest struct {
	ID        string   `json:"id" validate:"required"`
	Resources []string `json:"resources" validate:"required,min=1"`
	Available string   `json:"available" validate:"required"`
	Break     string   `json:"break" validate:"required"`
	OffShift  string   `json:"off_shift" validate:"required"`
	Toolbox   string   `json:"toolbox" validate:"required"`
}

func (s *Server) handleCreateOperational(w http.ResponseWriter, r *http.Request) {
	asset := types.Asset(chi.URLParam(r, "asset"))
	var req CreateOperationalRequest
	if !s.decode(w, r, &req) {
		return
	}
	worker, err := req.toWorker(asset)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.orch.CreateOperational(worker); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": req.ID})
}

func (s *Server) handleDeleteOperational(w http.ResponseWriter, r *http.Request) {
	asset := types.Asset(chi.URLParam(r, "asset"))
	id := types.WorkerID(chi.URLParam(r, "id"))
	if err := s.orch.DeleteOperational(asset, id); err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// decode unmarshals and validates a JSON request body.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, into any) bool {
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	if err := s.validate.Struct(into); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request: %w", err))
		return false
	}
	return true
}

// writeQueryError maps actor-request failures: timeouts surface as 504,
// everything else as an input error.
func writeQueryError(w http.ResponseWriter, err error) {
	if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
		writeError(w, http.StatusGatewayTimeout, err)
		return
	}
	writeError(w, http.StatusBadRequest, err)
}

func isTimeout(err error) bool {
	return err != nil && strings.Contains(err.Error(), "timed out")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
