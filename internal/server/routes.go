package server

import (
	"net/http"
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Health check and info.
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /v1/info", s.handleInfo)

	// XML-RPC endpoint. /metaweblog is the path older clients were configured with.
	mux.HandleFunc("POST /xmlrpc", s.handleRPC)
	mux.HandleFunc("POST /metaweblog", s.handleRPC)

	// Discovery.
	mux.HandleFunc("GET /rsd.xml", s.handleRSD)

	// Attachment downloads.
	mux.HandleFunc("GET /getfile", s.handleGetFile)

	return s.withRequestLogging(mux)
}
