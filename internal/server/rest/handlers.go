package rest

import (
	"net/http"
	"strings"

	"github.com/dmitrijs2005/uploadbroker/internal/server/models"
	"github.com/dmitrijs2005/uploadbroker/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/uploadbroker/internal/server/services"
	"github.com/go-chi/chi"
)

// owner prefers the token owner over whatever the caller claimed.
func (s *Server) owner(r *http.Request, claimed string) string {
	if owner, ok := ownerFromContext(r.Context()); ok {
		return owner
	}
	return strings.TrimSpace(claimed)
}

func sessionID(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "id"))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", StorageConfigured: s.sessions.StorageConfigured()}
	if !resp.StorageConfigured {
		resp.Status = "degraded"
	}
	respond(w, r, http.StatusOK, resp)
}

func (s *Server) handleInitiateSimple(w http.ResponseWriter, r *http.Request) {
	var req initiateRequest
	if err := s.decode(r, &req, false); err != nil {
		s.fail(w, r, err)
		return
	}

	session, err := s.sessions.InitiateSimple(r.Context(), services.InitiateRequest{
		FileName:    req.FileName,
		ContentType: req.ContentType,
		OwnerID:     s.owner(r, req.OwnerID),
		FileSize:    req.FileSize,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}

	respond(w, r, http.StatusCreated, session)
}

func (s *Server) handleInitiateMultipart(w http.ResponseWriter, r *http.Request) {
	var req initiateMultipartRequest
	if err := s.decode(r, &req, false); err != nil {
		s.fail(w, r, err)
		return
	}

	session, err := s.sessions.InitiateMultipart(r.Context(), services.InitiateRequest{
		FileName:    req.FileName,
		ContentType: req.ContentType,
		OwnerID:     s.owner(r, req.OwnerID),
		FileSize:    req.FileSize,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}

	respond(w, r, http.StatusCreated, session)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := sessions.Filter{
		OwnerID: s.owner(r, q.Get("owner_id")),
		State:   models.State(strings.TrimSpace(q.Get("state"))),
	}

	list, err := s.sessions.List(r.Context(), filter)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	respond(w, r, http.StatusOK, list)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	session, err := s.sessions.Get(r.Context(), sessionID(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	respond(w, r, http.StatusOK, session)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	if err := s.sessions.Delete(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}

	respond(w, r, http.StatusOK, deleteResponse{SessionID: id, Deleted: true})
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := s.decode(r, &req, true); err != nil {
		s.fail(w, r, err)
		return
	}
	withDownloadURL := req.IncludeDownloadURL == nil || *req.IncludeDownloadURL

	session, err := s.sessions.Confirm(r.Context(), sessionID(r), withDownloadURL)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	respond(w, r, http.StatusOK, session)
}

func (s *Server) handleDownloadURL(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	url, expiresAt, err := s.sessions.DownloadURL(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	respond(w, r, http.StatusOK, downloadURLResponse{SessionID: id, DownloadURL: url, ExpiresAt: expiresAt})
}

func (s *Server) handleCompleteMultipart(w http.ResponseWriter, r *http.Request) {
	var req completeMultipartRequest
	if err := s.decode(r, &req, false); err != nil {
		s.fail(w, r, err)
		return
	}

	session, err := s.sessions.CompleteMultipart(r.Context(), sessionID(r), req.toModel())
	if err != nil {
		s.fail(w, r, err)
		return
	}

	respond(w, r, http.StatusOK, session)
}

func (s *Server) handleAbortMultipart(w http.ResponseWriter, r *http.Request) {
	session, err := s.sessions.AbortMultipart(r.Context(), sessionID(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	respond(w, r, http.StatusOK, session)
}
