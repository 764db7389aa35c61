package api

import (
	"net/http"
	"strconv"

	"shopseq/domain/core"
	"shopseq/models"

	"github.com/go-chi/chi/v5"
)

func tenantParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	tenant, err := core.ParseTenantID(chi.URLParam(r, "tenantID"))
	if err != nil {
		writeError(w, r, err)
		return 0, false
	}
	return int64(tenant), true
}

func pageParams(r *http.Request) (limit, offset int) {
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	return limit, offset
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantParam(w, r)
	if !ok {
		return
	}
	var in models.CreateJobInput
	if err := decodeJSON(r, &in); err != nil {
		writeBadRequest(w, "invalid JSON")
		return
	}

	job, err := s.jobs.CreateJob(r.Context(), tenantID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, job)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantParam(w, r)
	if !ok {
		return
	}
	limit, offset := pageParams(r)

	jobs, err := s.jobs.ListJobs(r.Context(), tenantID, limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantParam(w, r)
	if !ok {
		return
	}

	job, err := s.jobs.GetJob(r.Context(), tenantID, chi.URLParam(r, "number"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantParam(w, r)
	if !ok {
		return
	}

	if err := s.jobs.DeleteJob(r.Context(), tenantID, chi.URLParam(r, "number")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetJobByToken(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobs.GetJobByToken(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantParam(w, r)
	if !ok {
		return
	}
	var in models.CreateDocumentInput
	if err := decodeJSON(r, &in); err != nil {
		writeBadRequest(w, "invalid JSON")
		return
	}

	doc, err := s.documents.Create(r.Context(), tenantID, chi.URLParam(r, "series"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantParam(w, r)
	if !ok {
		return
	}
	limit, offset := pageParams(r)

	docs, err := s.documents.List(r.Context(), tenantID, chi.URLParam(r, "series"), limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantParam(w, r)
	if !ok {
		return
	}

	doc, err := s.documents.Get(r.Context(), tenantID, chi.URLParam(r, "series"), chi.URLParam(r, "number"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}
