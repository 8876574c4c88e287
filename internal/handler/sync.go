package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/templui/fitsync/internal/model"
	"github.com/templui/fitsync/internal/service"
	"github.com/templui/fitsync/internal/syncer"
)

// SessionFunc resolves the signed-in session for a request.
type SessionFunc func(ctx context.Context) (*model.Session, error)

type SyncHandler struct {
	engine  *syncer.Engine
	views   *service.ViewService
	session SessionFunc
}

func NewSyncHandler(engine *syncer.Engine, views *service.ViewService, session SessionFunc) *SyncHandler {
	return &SyncHandler{
		engine:  engine,
		views:   views,
		session: session,
	}
}

type statusResponse struct {
	UserID     string     `json:"user_id,omitempty"`
	Push       string     `json:"push"`
	Pull       string     `json:"pull"`
	LastPushAt *time.Time `json:"last_push_at,omitempty"`
	LastPullAt *time.Time `json:"last_pull_at,omitempty"`
	LastError  string     `json:"last_error,omitempty"`
}

func (h *SyncHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *SyncHandler) Status(w http.ResponseWriter, r *http.Request) {
	st := h.engine.Status()
	resp := statusResponse{
		Push:      st.Push.String(),
		Pull:      st.Pull.String(),
		LastError: st.LastError,
	}
	if !st.LastPushAt.IsZero() {
		resp.LastPushAt = &st.LastPushAt
	}
	if !st.LastPullAt.IsZero() {
		resp.LastPullAt = &st.LastPullAt
	}
	if s, err := h.session(r.Context()); err == nil {
		resp.UserID = s.UserID
	}
	writeJSON(w, http.StatusOK, resp)
}

// Push forces a push of everything pending.
func (h *SyncHandler) Push(w http.ResponseWriter, r *http.Request) {
	s, ok := h.requireSession(w, r)
	if !ok {
		return
	}

	result, err := h.engine.Push(r.Context(), s, true)
	if err != nil {
		slog.Error("manual push failed", "error", err, "user_id", s.UserID)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *SyncHandler) Pull(w http.ResponseWriter, r *http.Request) {
	s, ok := h.requireSession(w, r)
	if !ok {
		return
	}

	if err := h.engine.Pull(r.Context(), s); err != nil {
		slog.Error("manual pull failed", "error", err, "user_id", s.UserID)
		writeError(w, err)
		return
	}
	snap, err := h.views.Refresh(r.Context(), s)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// Today returns the current day view, building it on first use.
func (h *SyncHandler) Today(w http.ResponseWriter, r *http.Request) {
	s, ok := h.requireSession(w, r)
	if !ok {
		return
	}

	snap := h.views.Current()
	if snap == nil || snap.UserID != s.UserID {
		var err error
		snap, err = h.views.Refresh(r.Context(), s)
		if err != nil {
			writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *SyncHandler) requireSession(w http.ResponseWriter, r *http.Request) (*model.Session, bool) {
	s, err := h.session(r.Context())
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return s, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrUnauthenticated), errors.Is(err, syncer.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, syncer.ErrPullInFlight):
		status = http.StatusConflict
	case errors.Is(err, syncer.ErrSyncUnavailable):
		status = http.StatusBadGateway
	}
	writeJSON(w, status, map[string]string{"error": service.Message(err)})
}
