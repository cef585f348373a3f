package server

import (
	"errors"
	"net/http"

	"weblogd/internal/api"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, api.HealthResponse{Status: "ok"})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	resp := api.InfoResponse{
		SiteName:  s.siteName,
		PublicURL: s.baseURL(r),
		DBPath:    s.dbPath,
		Methods:   s.methodNames(),
	}
	if s.info == nil {
		s.writeJSON(w, http.StatusOK, resp)
		return
	}

	info, err := s.info.StoreInfo(r.Context())
	if err != nil {
		s.writeErrorReq(w, r, http.StatusInternalServerError, internalError(err))
		return
	}
	if info == nil {
		s.writeErrorReq(w, r, http.StatusInternalServerError, internalError(errors.New("store info unavailable")))
		return
	}
	resp.SchemaVersion = info.SchemaVersion
	resp.DocumentCounts = info.DocumentCounts
	resp.TotalUsers = info.TotalUsers
	resp.TotalAttachments = info.TotalAttachments
	resp.TemporaryAttachments = info.TemporaryAttachments

	s.writeJSON(w, http.StatusOK, resp)
}
