package http

import (
	"bytes"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"ledger/internal/core"
	"ledger/internal/export"
	"ledger/internal/services"
)

type categoriesResponse struct {
	Type       core.TxType `json:"type"`
	Categories []string    `json:"categories"`
}

func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"groups": s.svc.Groups()})
}

func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	g, err := s.svc.Group(chi.URLParam(r, "group"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleRenameGroup(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	groupID := chi.URLParam(r, "group")
	if err := s.svc.RenameGroup(r.Context(), groupID, req.Name); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	g, err := s.svc.Group(groupID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, services.GroupInfo{ID: groupID, Name: g.Name})
}

func (s *Server) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	t, err := core.ParseTxType(chi.URLParam(r, "type"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	var req nameRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	groupID := chi.URLParam(r, "group")
	if err := s.svc.AddCategory(r.Context(), groupID, t, req.Name); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeCategories(w, r, groupID, t, http.StatusCreated)
}

func (s *Server) handleRemoveCategory(w http.ResponseWriter, r *http.Request) {
	t, err := core.ParseTxType(chi.URLParam(r, "type"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	name, err := pathParam(r, "name")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid category name")
		return
	}
	groupID := chi.URLParam(r, "group")
	if err := s.svc.RemoveCategory(r.Context(), groupID, t, name); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeCategories(w, r, groupID, t, http.StatusOK)
}

func (s *Server) writeCategories(w http.ResponseWriter, r *http.Request, groupID string, t core.TxType, status int) {
	g, err := s.svc.Group(groupID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, status, categoriesResponse{Type: t, Categories: g.CategoryNames(t)})
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	opts, err := parseListOptions(r.URL.Query())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	listing, err := s.svc.List(chi.URLParam(r, "group"), opts)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	tx, err := s.svc.AddTransaction(r.Context(), chi.URLParam(r, "group"), req.input())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := s.svc.DeleteTransaction(r.Context(), chi.URLParam(r, "group"), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

// handleExport streams the filtered transactions as a CSV attachment. The
// body is buffered so a failure can still produce a proper error status.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "group")
	opts, err := parseListOptions(r.URL.Query())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	name, err := s.svc.ExportFileName(groupID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := s.svc.Export(r.Context(), &buf, groupID, opts); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if !strings.EqualFold(r.URL.Query().Get("confirm"), "true") {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "reset requires confirm=true", Field: "confirm"})
		return
	}
	if err := s.svc.Reset(r.Context()); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "reset", "groups": s.svc.Groups()})
}

// pathParam returns a decoded URL parameter. chi matches against RawPath
// when the request carried escapes that Path cannot represent, and against
// the already decoded Path otherwise.
func pathParam(r *http.Request, key string) (string, error) {
	v := chi.URLParam(r, key)
	if r.URL.RawPath == "" {
		return v, nil
	}
	return url.PathUnescape(v)
}
