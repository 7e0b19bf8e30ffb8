package server

import (
	"encoding/json"
	"net/http"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 8 << 20

// NewHTTPHandler returns an http.Handler with all routes registered.
// Every route except GET /v1/health requires a session token.
func (s *ConfigServer) NewHTTPHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /config/v2", s.handleGetV2)
	mux.HandleFunc("PATCH /config/v2", s.handlePatchV2)
	mux.HandleFunc("GET /config/v3/list", s.handleListProfiles)
	mux.HandleFunc("GET /config/v3/{profileId}", s.handleGetV3)
	mux.HandleFunc("PATCH /config/v3/{profileId}", s.handlePatchV3)
	mux.HandleFunc("POST /config/v3/{profileId}/name", s.handleRenameProfile)
	mux.HandleFunc("DELETE /config/v3/{profileId}", s.handleDeleteProfile)
	mux.HandleFunc("GET /v1/health", s.handleHealth)

	var h http.Handler = mux
	h = AuthMiddleware(s.authenticator, h)
	h = LoggingMiddleware(s.logger, h)
	h = RecoveryMiddleware(s.logger, h)
	return h
}

// handleHealth handles GET /v1/health.
func (s *ConfigServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
