package handlers

import (
	"clementus360/ai-photo-editor/config"
	"clementus360/ai-photo-editor/supabase"
	"clementus360/ai-photo-editor/types"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// CreateSessionHandler starts a new conversation, or hands back the
// most recent one if it never got a task. Creating sessions is
// idempotent while the newest one is still empty.
func CreateSessionHandler(w http.ResponseWriter, r *http.Request) {
	client, userID, err := supabase.SupabaseClientFromRequest(r)
	if err != nil {
		config.Logger.Error("Failed to create Supabase client:", err)
		writeError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	session, isNew, err := supabase.CreateOrReuseSession(client, userID)
	if err != nil {
		config.Logger.Error("Failed to create session:", err)
		writeError(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, types.CreateSessionResponse{
		Success:   true,
		SessionID: session.ID,
		IsNew:     isNew,
	})
}

func GetSessionsHandler(w http.ResponseWriter, r *http.Request) {
	limit := supabase.DefaultSessionLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			config.Logger.Error("Invalid limit value:", err)
			writeError(w, "Invalid limit value", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	client, userID, err := supabase.SupabaseClientFromRequest(r)
	if err != nil {
		config.Logger.Error("Failed to create Supabase client:", err)
		writeError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	sessions, err := supabase.GetSessions(client, userID, limit)
	if err != nil {
		config.Logger.Error("Failed to fetch sessions:", err)
		writeError(w, "Failed to fetch sessions", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, types.GetSessionsResponse{
		Success:  true,
		Sessions: sessions,
	})
}

func GetSessionHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("id")
	if sessionID == "" {
		config.Logger.Warn("Missing session ID in request")
		writeError(w, "Missing session ID", http.StatusBadRequest)
		return
	}

	client, userID, err := supabase.SupabaseClientFromRequest(r)
	if err != nil {
		config.Logger.Error("Failed to create Supabase client:", err)
		writeError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	session, err := supabase.GetSession(client, sessionID, userID)
	if err != nil {
		if errors.Is(err, supabase.ErrNotFound) {
			writeError(w, "Session not found", http.StatusNotFound)
			return
		}
		config.Logger.Error("Failed to fetch session:", err)
		writeError(w, "Failed to fetch session", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, types.SessionResponse{
		Success: true,
		Session: session,
	})
}

func UpdateSessionHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("id")
	if sessionID == "" {
		config.Logger.Warn("Missing session ID in request")
		writeError(w, "Missing session ID", http.StatusBadRequest)
		return
	}

	var body types.UpdateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		config.Logger.Warn("Invalid session update body:", err)
		writeError(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	updates := map[string]interface{}{}
	if title := strings.TrimSpace(body.Title); title != "" {
		updates["title"] = title
	}
	if body.LastActivity != "" {
		lastActivity, err := time.Parse(time.RFC3339, body.LastActivity)
		if err != nil {
			config.Logger.Warn("Invalid last_activity timestamp:", err)
			writeError(w, "Invalid last_activity timestamp", http.StatusBadRequest)
			return
		}
		updates["last_activity"] = lastActivity
	}
	if len(updates) == 0 {
		writeError(w, "No fields to update", http.StatusBadRequest)
		return
	}

	client, userID, err := supabase.SupabaseClientFromRequest(r)
	if err != nil {
		config.Logger.Error("Failed to create Supabase client:", err)
		writeError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	updated, err := supabase.UpdateSession(client, sessionID, userID, updates)
	if err != nil {
		if errors.Is(err, supabase.ErrNotFound) {
			writeError(w, "Session not found", http.StatusNotFound)
			return
		}
		config.Logger.Error("Failed to update session:", err)
		writeError(w, "Failed to update session", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, types.UpdateSessionResponse{
		Success:   true,
		SessionID: updated.ID,
	})
}
