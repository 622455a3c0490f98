package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/carte/internal/viewer"
)

type createSessionResponse struct {
	ID       string          `json:"id"`
	Snapshot viewer.Snapshot `json:"snapshot"`
}

// writeSessionError maps viewer errors onto HTTP statuses.
func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, viewer.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "session_not_found", "session not found")
	case errors.Is(err, viewer.ErrNoMarker):
		writeError(w, http.StatusBadRequest, "no_such_marker", err.Error())
	case errors.Is(err, viewer.ErrUnknownCategory):
		writeError(w, http.StatusBadRequest, "unknown_category", err.Error())
	default:
		zap.L().Error("session operation failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

// session resolves the {id} parameter, writing a 404 on failure.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*viewer.Session, bool) {
	s, err := h.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeSessionError(w, err)
		return nil, false
	}
	return s, true
}

func indexParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	i, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || i < 0 {
		writeError(w, http.StatusBadRequest, "invalid_index", "index must be a non-negative integer")
		return 0, false
	}
	return i, true
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, _ *http.Request) {
	id, s := h.sessions.Create()
	writeJSON(w, http.StatusCreated, createSessionResponse{ID: id, Snapshot: s.Snapshot()})
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

func (h *Handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Delete(chi.URLParam(r, "id")); err != nil {
		writeSessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSessionRegions(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	idx, views := s.RegionLayer()
	writeRegions(w, idx, views)
}

func (h *Handler) handleQuery(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Q string `json:"q"`
	}
	if err := decodeJSONStrict(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	s.TypeQuery(req.Q)
	writeJSON(w, http.StatusAccepted, s.Snapshot())
}

func (h *Handler) handleCategory(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Value   string `json:"value"`
		Checked bool   `json:"checked"`
	}
	if err := decodeJSONStrict(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	if err := s.SetCategory(req.Value, req.Checked); err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

type toggleRequest struct {
	Enabled bool `json:"enabled"`
}

func (h *Handler) handleRegionFilter(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req toggleRequest
	if err := decodeJSONStrict(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	s.SetRegionFilter(req.Enabled)
	writeJSON(w, http.StatusOK, s.Snapshot())
}

func (h *Handler) handleOffices(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req toggleRequest
	if err := decodeJSONStrict(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	s.SetOffices(req.Enabled)
	writeJSON(w, http.StatusOK, s.Snapshot())
}

type regionClickResponse struct {
	Bounds   *viewer.Bounds  `json:"bounds"`
	Snapshot viewer.Snapshot `json:"snapshot"`
}

func (h *Handler) handleRegionClick(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	b := s.ClickRegion(chi.URLParam(r, "code"))
	writeJSON(w, http.StatusOK, regionClickResponse{Bounds: b, Snapshot: s.Snapshot()})
}

type projectClickResponse struct {
	FlyTo    viewer.FlyTo    `json:"fly_to"`
	Snapshot viewer.Snapshot `json:"snapshot"`
}

func (h *Handler) handleProjectClick(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	i, ok := indexParam(w, r)
	if !ok {
		return
	}
	var req struct {
		Zoom float64 `json:"zoom"`
	}
	if err := decodeJSONStrict(r, &req, true); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	fly, err := s.ClickProject(i, req.Zoom)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, projectClickResponse{FlyTo: fly, Snapshot: s.Snapshot()})
}

func (h *Handler) handleOfficeClick(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	i, ok := indexParam(w, r)
	if !ok {
		return
	}
	if err := s.ClickOffice(i); err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

func (h *Handler) handleMapClick(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.ClickMap()
	writeJSON(w, http.StatusOK, s.Snapshot())
}

func (h *Handler) handlePanelClose(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.ClosePanel()
	writeJSON(w, http.StatusOK, s.Snapshot())
}

func (h *Handler) handleClear(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.Clear()
	writeJSON(w, http.StatusOK, s.Snapshot())
}
