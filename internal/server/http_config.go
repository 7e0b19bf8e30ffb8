package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/runelite/api.runelite.net/internal/auth"
	"github.com/runelite/api.runelite.net/internal/model"
)

// requestUser returns the user resolved by AuthMiddleware.
func requestUser(w http.ResponseWriter, r *http.Request) (model.UserID, bool) {
	userID, ok := auth.UserFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
	}
	return userID, ok
}

// pathProfile parses the {profileId} path value.
func pathProfile(w http.ResponseWriter, r *http.Request) (model.ProfileID, bool) {
	id, err := model.ParseProfileID(r.PathValue("profileId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid profile id")
		return 0, false
	}
	return id, true
}

func decodePatch(w http.ResponseWriter, r *http.Request) (*model.Patch, bool) {
	var patch model.Patch
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return nil, false
	}
	return &patch, true
}

// handleGetV2 handles GET /config/v2.
func (s *ConfigServer) handleGetV2(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUser(w, r)
	if !ok {
		return
	}
	ctx, cancel := s.storeContext(r)
	defer cancel()

	config, err := s.settings.GetV2(ctx, userID)
	if err != nil {
		s.writeServiceError(w, r, "get config", err)
		return
	}
	writeJSON(w, http.StatusOK, config)
}

// handlePatchV2 handles PATCH /config/v2. Rejected keys are returned as a
// JSON array with status 400; the accepted keys are still written.
func (s *ConfigServer) handlePatchV2(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUser(w, r)
	if !ok {
		return
	}
	patch, ok := decodePatch(w, r)
	if !ok {
		return
	}
	ctx, cancel := s.storeContext(r)
	defer cancel()

	failures, err := s.settings.PatchV2(ctx, userID, patch)
	if err != nil {
		s.writeServiceError(w, r, "patch config", err)
		return
	}
	if len(failures) > 0 {
		writeJSON(w, http.StatusBadRequest, failures)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// handleListProfiles handles GET /config/v3/list.
func (s *ConfigServer) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUser(w, r)
	if !ok {
		return
	}
	ctx, cancel := s.storeContext(r)
	defer cancel()

	profiles, err := s.settings.ListProfiles(ctx, userID)
	if err != nil {
		s.writeServiceError(w, r, "list profiles", err)
		return
	}
	if profiles == nil {
		profiles = []model.Profile{}
	}
	writeJSON(w, http.StatusOK, profiles)
}

// handleGetV3 handles GET /config/v3/{profileId}.
func (s *ConfigServer) handleGetV3(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUser(w, r)
	if !ok {
		return
	}
	profileID, ok := pathProfile(w, r)
	if !ok {
		return
	}
	ctx, cancel := s.storeContext(r)
	defer cancel()

	config, err := s.settings.GetV3(ctx, userID, profileID)
	if err != nil {
		s.writeServiceError(w, r, "get profile", err)
		return
	}
	writeJSON(w, http.StatusOK, config)
}

// handlePatchV3 handles PATCH /config/v3/{profileId}.
func (s *ConfigServer) handlePatchV3(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUser(w, r)
	if !ok {
		return
	}
	profileID, ok := pathProfile(w, r)
	if !ok {
		return
	}
	patch, ok := decodePatch(w, r)
	if !ok {
		return
	}
	ctx, cancel := s.storeContext(r)
	defer cancel()

	result, err := s.settings.PatchV3(ctx, userID, profileID, patch)
	if err != nil {
		s.writeServiceError(w, r, "patch profile", err)
		return
	}
	status := http.StatusOK
	if len(result.Failures) > 0 {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, result)
}

// handleRenameProfile handles POST /config/v3/{profileId}/name. The raw
// request body is the new name. A rename that changes nothing is a 404.
func (s *ConfigServer) handleRenameProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUser(w, r)
	if !ok {
		return
	}
	profileID, ok := pathProfile(w, r)
	if !ok {
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "name too large")
			return
		}
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	ctx, cancel := s.storeContext(r)
	defer cancel()

	renamed, err := s.settings.RenameProfile(ctx, userID, profileID, string(body))
	if err != nil {
		s.writeServiceError(w, r, "rename profile", err)
		return
	}
	if !renamed {
		writeError(w, http.StatusNotFound, "profile not found or name unchanged")
		return
	}
	w.WriteHeader(http.StatusOK)
}

// handleDeleteProfile handles DELETE /config/v3/{profileId}.
func (s *ConfigServer) handleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUser(w, r)
	if !ok {
		return
	}
	profileID, ok := pathProfile(w, r)
	if !ok {
		return
	}
	ctx, cancel := s.storeContext(r)
	defer cancel()

	deleted, err := s.settings.DeleteProfile(ctx, userID, profileID)
	if err != nil {
		s.writeServiceError(w, r, "delete profile", err)
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "profile not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
