package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/firstaid/internal/analytics"
	"github.com/pavelanni/firstaid/internal/audit"
	"github.com/pavelanni/firstaid/internal/model"
	"github.com/pavelanni/firstaid/internal/store"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store     *store.Store
	audit     *audit.Logger
	formatter audit.Formatter
	config    model.AppConfig
	logger    *slog.Logger
	now       func() time.Time
}

// New creates a new Handler.
func New(s *store.Store, cfg model.AppConfig, logger *slog.Logger) (*Handler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.AuditLimit <= 0 {
		cfg.AuditLimit = audit.DefaultMaxEvents
	}
	var loc *time.Location
	if cfg.DisplayTimezone != "" {
		l, err := time.LoadLocation(cfg.DisplayTimezone)
		if err != nil {
			return nil, fmt.Errorf("load display timezone: %w", err)
		}
		loc = l
	}
	return &Handler{
		store:     s,
		audit:     audit.NewLogger(s, cfg.ScopeID, logger),
		formatter: audit.Formatter{Location: loc},
		config:    cfg,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)

	// Written by the learning app on behalf of a student.
	r.Post("/api/events/{userID}", h.handleRecordEvent)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Use(requireRole(model.UserRoleTeacher, model.UserRoleAdmin))

		r.Get("/api/analytics/dashboard", h.handleDashboard)
		r.Get("/api/analytics/heatmap", h.handleHeatmap)
		r.Get("/api/analytics/categories", h.handleCategories)
		r.Get("/api/students", h.handleListStudents)
		r.Get("/api/students/{userID}", h.handleGetStudent)
		r.Put("/api/students/{userID}", h.handleUpsertStudent)
		r.Get("/api/audit/{userID}", h.handleAuditLog)
		r.Get("/api/audit/{userID}/export.csv", h.handleAuditExport)
		r.Get("/api/audit/{userID}/summary", h.handleAuditSummary)

		r.With(requireRole(model.UserRoleAdmin)).Get("/api/admin/users", h.handleListUsers)
		r.With(requireRole(model.UserRoleAdmin)).Post("/api/admin/users", h.handleCreateUser)
		r.With(requireRole(model.UserRoleAdmin)).Post("/api/admin/users/{userID}/toggle", h.handleToggleUserActive)
	})
}

// Mount registers the routes on r, under the configured base path if any.
func (h *Handler) Mount(r chi.Router) {
	if h.config.BasePath == "" {
		r.Use(h.basePathMiddleware)
		h.Routes(r)
		return
	}
	r.Route(h.config.BasePath, func(sub chi.Router) {
		sub.Use(h.basePathMiddleware)
		h.Routes(sub)
	})
}

// basePathMiddleware stores the configured base path in the request context
// so handlers can build paths relative to the mount point.
func (h *Handler) basePathMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := model.ContextWithBasePath(r.Context(), h.config.BasePath)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// handleStoreError writes a 500 for a store error. Returns true if an error
// was handled (caller should return).
func (h *Handler) handleStoreError(w http.ResponseWriter, err error, entity string) bool {
	if err == nil {
		return false
	}
	h.logger.Error("store error", "error", err, "entity", entity)
	http.Error(w, "internal error", http.StatusInternalServerError)
	return true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ds, err := h.store.LoadDataset()
	if h.handleStoreError(w, err, "dataset") {
		return
	}
	respondJSON(w, http.StatusOK, analytics.BuildDashboard(ds.Students, ds.Bank, h.now()))
}

func (h *Handler) handleHeatmap(w http.ResponseWriter, r *http.Request) {
	ds, err := h.store.LoadDataset()
	if h.handleStoreError(w, err, "dataset") {
		return
	}
	stats := analytics.GenerateErrorHeatmap(ds.Students, ds.Bank)
	if category := r.URL.Query().Get("category"); category != "" {
		stats = analytics.FilterByCategory(stats, category)
	}
	switch r.URL.Query().Get("sort") {
	case "", "index":
	case "error_rate":
		analytics.SortByErrorRate(stats)
	default:
		http.Error(w, "invalid sort: use index or error_rate", http.StatusBadRequest)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (h *Handler) handleCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.store.ListCategories()
	if h.handleStoreError(w, err, "categories") {
		return
	}
	if categories == nil {
		categories = []string{}
	}
	respondJSON(w, http.StatusOK, categories)
}

func (h *Handler) handleListStudents(w http.ResponseWriter, r *http.Request) {
	students, err := h.store.ListStudents()
	if h.handleStoreError(w, err, "students") {
		return
	}
	respondJSON(w, http.StatusOK, students)
}

func (h *Handler) handleGetStudent(w http.ResponseWriter, r *http.Request) {
	st, err := h.store.GetStudent(chi.URLParam(r, "userID"))
	if h.handleStoreError(w, err, "student") {
		return
	}
	if st == nil {
		http.Error(w, "student not found", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, st)
}

func (h *Handler) handleUpsertStudent(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	var st model.Student
	if !decodeJSON(w, r, &st) {
		return
	}
	if st.UserID != "" && st.UserID != userID {
		http.Error(w, "userId does not match path", http.StatusBadRequest)
		return
	}
	st.UserID = userID
	if st.LastUpdate.IsZero() {
		st.LastUpdate = h.now().UTC()
	}
	if h.handleStoreError(w, h.store.UpsertStudent(st), "student") {
		return
	}
	respondJSON(w, http.StatusOK, st)
}

// limitParam parses the limit query parameter, falling back to the configured default.
func (h *Handler) limitParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return h.config.AuditLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid limit %q", raw)
	}
	return n, nil
}

func (h *Handler) handleAuditLog(w http.ResponseWriter, r *http.Request) {
	limit, err := h.limitParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	events := h.audit.FetchRecent(r.Context(), chi.URLParam(r, "userID"), limit)
	entries := make([]audit.Entry, 0, len(events))
	for _, ev := range events {
		entries = append(entries, h.formatter.Format(r.Context(), ev))
	}
	respondJSON(w, http.StatusOK, entries)
}

func (h *Handler) handleAuditExport(w http.ResponseWriter, r *http.Request) {
	limit, err := h.limitParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	userID := chi.URLParam(r, "userID")
	events := h.audit.FetchRecent(r.Context(), userID, limit)

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "audit-"+userID+".csv"))
	if err := audit.WriteCSV(r.Context(), w, h.formatter, events); err != nil {
		h.logger.Error("failed to write audit csv", "user_id", userID, "error", err)
	}
}

func (h *Handler) handleAuditSummary(w http.ResponseWriter, r *http.Request) {
	limit, err := h.limitParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	events := h.audit.FetchRecent(r.Context(), chi.URLParam(r, "userID"), limit)
	respondJSON(w, http.StatusOK, audit.Summarize(events))
}

type eventRequest struct {
	Type    model.EventType `json:"type"`
	Details map[string]any  `json:"details"`
}

// handleRecordEvent appends an audit event. Storage failures never fail the
// request; the response reports whether the event was recorded.
func (h *Handler) handleRecordEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Type == "" {
		http.Error(w, "event type required", http.StatusBadRequest)
		return
	}
	if !req.Type.Known() {
		h.logger.Debug("recording unknown event type", "type", req.Type, "user_id", chi.URLParam(r, "userID"))
	}
	recorded := h.audit.Append(r.Context(), chi.URLParam(r, "userID"), req.Type, req.Details)
	respondJSON(w, http.StatusAccepted, map[string]bool{"recorded": recorded})
}
