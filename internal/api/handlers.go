// Package api exposes HTTP handlers for the activity signup service.
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"time"

	"go.uber.org/zap"

	"example.com/signup/internal/domain"
)

// Fixed client-facing error details.
const (
	detailActivityNotFound = "Activity not found"
	detailAlreadySignedUp  = "Student already signed up for this activity"
	detailNotRegistered    = "Student is not registered for this activity"
	detailEmailRequired    = "email query parameter is required"
)

// LandingPage is where the root path redirects.
const LandingPage = "/static/index.html"

// Handler coordinates HTTP requests with the domain service.
type Handler struct {
	service *domain.Service
	static  fs.FS
	logger  *zap.Logger
}

// NewHandler builds a Handler. static is served under /static/ and may be nil.
func NewHandler(service *domain.Service, static fs.FS, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, static: static, logger: logger}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", rootRedirect)
	mux.HandleFunc("GET /activities", h.listActivities)
	mux.HandleFunc("POST /activities/{name}/signup", h.signup)
	mux.HandleFunc("DELETE /activities/{name}/unregister", h.unregister)
	mux.HandleFunc("GET /healthz", healthz)
	if h.static != nil {
		mux.HandleFunc("GET "+LandingPage, h.landingPage)
		mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(h.static)))
	}
}

// Routes returns a mux with every endpoint registered.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return mux
}

func rootRedirect(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, LandingPage, http.StatusTemporaryRedirect)
}

// landingPage serves index.html directly; the file server would redirect it to the directory.
func (h *Handler) landingPage(w http.ResponseWriter, r *http.Request) {
	data, err := fs.ReadFile(h.static, "index.html")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	http.ServeContent(w, r, "index.html", time.Time{}, bytes.NewReader(data))
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) listActivities(w http.ResponseWriter, r *http.Request) {
	activities, err := h.service.ListActivities(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	resp := make(ActivitiesResponse, len(activities))
	for _, activity := range activities {
		resp[activity.Name] = toActivityView(activity)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) signup(w http.ResponseWriter, r *http.Request) {
	name, email, ok := rosterParams(w, r)
	if !ok {
		return
	}

	conf, err := h.service.Signup(r.Context(), name, email)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: conf.Message})
}

func (h *Handler) unregister(w http.ResponseWriter, r *http.Request) {
	name, email, ok := rosterParams(w, r)
	if !ok {
		return
	}

	conf, err := h.service.Unregister(r.Context(), name, email)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: conf.Message})
}

// rosterParams extracts the decoded activity name and email. Query values follow form
// decoding, so "+" arrives as a space.
func rosterParams(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	email, ok := lastQueryValue(r.URL.RawQuery, "email")
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "validation_failed", detailEmailRequired)
		return "", "", false
	}
	return r.PathValue("name"), email, true
}

// ActivityView is the wire form of one activity.
type ActivityView struct {
	Description     string   `json:"description"`
	Schedule        string   `json:"schedule"`
	MaxParticipants int      `json:"max_participants"`
	Participants    []string `json:"participants"`
}

// ActivitiesResponse maps activity name to its details.
type ActivitiesResponse map[string]ActivityView

// MessageResponse confirms a roster mutation.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Type   string `json:"type"`
	Detail string `json:"detail"`
}

func toActivityView(activity domain.Activity) ActivityView {
	participants := activity.Participants
	if participants == nil {
		participants = []string{}
	}
	return ActivityView{
		Description:     activity.Description,
		Schedule:        activity.Schedule,
		MaxParticipants: activity.MaxParticipants,
		Participants:    participants,
	}
}

func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	kind := string(domain.KindOf(err))
	switch {
	case errors.Is(err, domain.ErrActivityNotFound):
		writeError(w, http.StatusNotFound, kind, detailActivityNotFound)
	case errors.Is(err, domain.ErrAlreadySignedUp):
		writeError(w, http.StatusBadRequest, kind, detailAlreadySignedUp)
	case errors.Is(err, domain.ErrNotRegistered):
		writeError(w, http.StatusBadRequest, kind, detailNotRegistered)
	default:
		h.logger.Error("roster request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, kind, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	writeJSON(w, status, ErrorResponse{Type: code, Detail: detail})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
