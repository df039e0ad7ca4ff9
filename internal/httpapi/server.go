package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dongtanms/parking-kiosk/internal/parking/backup"
	"github.com/dongtanms/parking-kiosk/internal/parking/listing"
	"github.com/dongtanms/parking-kiosk/internal/parking/service"
	"github.com/dongtanms/parking-kiosk/internal/parking/store"
	"github.com/dongtanms/parking-kiosk/internal/parking/types"
)

// maxRequestBody caps JSON request bodies. The largest kiosk request is a
// four digit plate number.
const maxRequestBody = 4096

// AdminCodeHeader carries the admin screen code on /v1/admin requests.
const AdminCodeHeader = "X-Admin-Code"

type Dependencies struct {
	Logger *slog.Logger
	Addr   string
	Kiosk  *service.KioskService
	Admin  *service.AdminService
}

type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	router     chi.Router
	kiosk      *service.KioskService
	admin      *service.AdminService
}

func NewServer(d Dependencies) *Server {
	r := chi.NewRouter()

	s := &Server{
		logger: d.Logger,
		router: r,
		kiosk:  d.Kiosk,
		admin:  d.Admin,
	}

	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(d.Logger))

	r.Get("/healthz", s.handleHealth)

	r.Route("/v1/entries", func(r chi.Router) {
		r.Get("/", s.handleListGrouped)
		r.Post("/", s.handleRegister)
		r.Post("/{id}/done", s.handleMarkDone)
		r.Delete("/{id}", s.handleDelete)
	})

	r.Route("/v1/admin", func(r chi.Router) {
		r.Use(s.requireAdminCode)
		r.Get("/entries", s.handleAdminEntries)
		r.Delete("/entries", s.handleAdminClear)
		r.Get("/stats", s.handleAdminStats)
		r.Post("/backup", s.handleAdminBackup)
		r.Post("/restore", s.handleAdminRestore)
	})

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Serve accepts connections on ln instead of listening on Addr.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// ── Kiosk ────────────────────────────────────────────────────────────────────

// listResponse carries the grouped list and, keyed by ListItem.Key, what
// changed since the previous list request.
type listResponse struct {
	Items   []types.ListItem `json:"items"`
	Changes listing.Changes  `json:"changes"`
}

func (s *Server) handleListGrouped(w http.ResponseWriter, r *http.Request) {
	items, changes, err := s.kiosk.Refresh(r.Context())
	if err != nil {
		s.writeServiceError(w, r, "list", err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Items: items, Changes: changes})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req types.RegisterRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}

	e, err := s.kiosk.Register(r.Context(), req.PlateNumber)
	if err != nil {
		s.writeServiceError(w, r, "register", err)
		return
	}
	writeJSON(w, http.StatusCreated, e.JSON())
}

func (s *Server) handleMarkDone(w http.ResponseWriter, r *http.Request) {
	id, ok := entryID(w, r)
	if !ok {
		return
	}
	if err := s.kiosk.MarkDone(r.Context(), id); err != nil {
		s.writeServiceError(w, r, "mark_done", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := entryID(w, r)
	if !ok {
		return
	}
	if err := s.kiosk.Delete(r.Context(), id); err != nil {
		s.writeServiceError(w, r, "delete", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func entryID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_id", "entry id must be a positive integer")
		return 0, false
	}
	return id, true
}

// ── Admin ────────────────────────────────────────────────────────────────────

type entriesResponse struct {
	Entries []types.EntryJSON `json:"entries"`
}

func (s *Server) requireAdminCode(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := s.admin.VerifyCode(r.Header.Get(AdminCodeHeader)); err != nil {
			s.logger.Warn("admin code rejected", "path", r.URL.Path, "request_id", RequestID(r.Context()))
			writeError(w, http.StatusUnauthorized, "admin_code", "admin code rejected")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleAdminEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := s.admin.Entries(r.Context())
	if err != nil {
		s.writeServiceError(w, r, "admin_entries", err)
		return
	}
	out := make([]types.EntryJSON, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.JSON())
	}
	writeJSON(w, http.StatusOK, entriesResponse{Entries: out})
}

func (s *Server) handleAdminClear(w http.ResponseWriter, r *http.Request) {
	if err := s.admin.Clear(r.Context()); err != nil {
		s.writeServiceError(w, r, "admin_clear", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.admin.Stats(r.Context())
	if err != nil {
		s.writeServiceError(w, r, "admin_stats", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleAdminBackup(w http.ResponseWriter, r *http.Request) {
	select {
	case res := <-s.admin.BackupNow(r.Context()):
		if res.Err != nil {
			s.writeServiceError(w, r, "admin_backup", res.Err)
			return
		}
		writeJSON(w, http.StatusOK, types.BackupResponse{OK: true, Path: res.Path, Entries: res.Entries})
	case <-r.Context().Done():
	}
}

func (s *Server) handleAdminRestore(w http.ResponseWriter, r *http.Request) {
	select {
	case res := <-s.admin.RestoreNow(r.Context()):
		if res.Err != nil {
			s.writeServiceError(w, r, "admin_restore", res.Err)
			return
		}
		writeJSON(w, http.StatusOK, types.RestoreResponse{OK: true, Path: res.Path, Imported: res.Imported})
	case <-r.Context().Done():
	}
}

// writeServiceError maps domain errors to HTTP statuses. Anything not
// recognised is logged and reported as a 500.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidPlate):
		writeError(w, http.StatusBadRequest, "invalid_plate", err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "entry not found")
	case errors.Is(err, store.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, service.ErrBackupFileMissing):
		writeError(w, http.StatusNotFound, "backup_missing", err.Error())
	case errors.Is(err, backup.ErrMalformedBackup):
		writeError(w, http.StatusUnprocessableEntity, "backup_malformed", err.Error())
	case errors.Is(err, service.ErrSchedulerStopped):
		writeError(w, http.StatusServiceUnavailable, "shutting_down", err.Error())
	default:
		s.logger.Error(op+" failed", "err", err, "request_id", RequestID(r.Context()))
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
	}
}
