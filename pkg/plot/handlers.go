package plot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/raykavin/chartdraw/pkg/core"
	"github.com/raykavin/chartdraw/pkg/viewport"
	"github.com/samber/lo"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.WithError(err).Error("encoding response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.log.WithError(err).Error("request failed")
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

// handleHealth reports liveness
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "clients": s.hub.Clients()})
}

func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	sources, err := s.knownSources(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sources)
}

func (s *Server) handleListDrawings(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("source")
	if source == "" {
		s.writeError(w, http.StatusBadRequest, core.ErrEmptySource)
		return
	}

	drawings, err := s.storage.Load(r.Context(), source)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if drawings == nil {
		drawings = []core.Drawing{}
	}

	s.writeJSON(w, http.StatusOK, drawings)
}

func (s *Server) handleSaveDrawing(w http.ResponseWriter, r *http.Request) {
	var d core.Drawing
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&d); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := d.Validate(); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now
	d.Hovered = false

	if err := s.storage.Save(r.Context(), d); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.trackSource(d.SourceID)
	s.hub.DrawingSaved(d)
	s.writeJSON(w, http.StatusOK, d)
}

// handleDeleteDrawing removes a drawing of ?source= and notifies the clients of
// that source only.
func (s *Server) handleDeleteDrawing(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	source := r.URL.Query().Get("source")
	if source == "" {
		s.writeError(w, http.StatusBadRequest, core.ErrEmptySource)
		return
	}

	drawings, err := s.storage.Load(r.Context(), source)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if !lo.ContainsBy(drawings, func(d core.Drawing) bool { return d.ID == id }) {
		s.writeError(w, http.StatusNotFound, fmt.Errorf("%w: %s in %s", core.ErrNotFound, id, source))
		return
	}

	err = s.storage.Delete(r.Context(), id)
	switch {
	case errors.Is(err, core.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err)
		return
	case err != nil:
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.hub.DrawingDeleted(source, id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearSource(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("source")
	if source == "" {
		s.writeError(w, http.StatusBadRequest, core.ErrEmptySource)
		return
	}

	if err := s.storage.Clear(r.Context(), source); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.hub.SourceCleared(source)
	w.WriteHeader(http.StatusNoContent)
}

// handleSnapshot renders the drawings of ?source= over its bars as PNG. Optional
// width and height override the configured size.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("source")
	pair, timeframe, err := core.ParseSourceID(source)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if s.bars == nil {
		s.writeError(w, http.StatusNotFound, errors.New("no bar feed configured"))
		return
	}

	bars, err := s.bars.Bars(pair, timeframe)
	if err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}

	drawings, err := s.storage.Load(r.Context(), source)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	opts := s.viewOptions
	if width, height, ok := sizeFromQuery(r); ok {
		opts = append(append([]viewport.Option(nil), opts...), viewport.WithSize(width, height))
	}

	w.Header().Set("Content-Type", "image/png")
	if err := RenderSnapshot(w, bars, drawings, s.log, opts...); err != nil {
		s.log.WithError(err).WithField("source", source).Error("rendering snapshot")
	}
}

func sizeFromQuery(r *http.Request) (width, height float64, ok bool) {
	w, errW := strconv.Atoi(r.URL.Query().Get("width"))
	h, errH := strconv.Atoi(r.URL.Query().Get("height"))
	if errW != nil || errH != nil || w <= 0 || h <= 0 || w > 8192 || h > 8192 {
		return 0, 0, false
	}
	return float64(w), float64(h), true
}
