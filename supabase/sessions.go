package supabase

import (
	"clementus360/ai-photo-editor/types"
	"encoding/json"
	"fmt"
	"time"

	"github.com/supabase-community/postgrest-go"
	"github.com/supabase-community/supabase-go"
)

const (
	SessionsTable = "ai_photo_sessions"

	DefaultSessionLimit = 50
	MaxSessionLimit     = 100

	// Titles derive from the first prompt, cut to this many characters.
	TitleMaxLength = 10

	placeholderTitle = "New conversation"
)

// CreateOrReuseSession returns the user's most recently active session
// if it has no tasks yet, otherwise creates a fresh one. The reuse rule
// keeps "new session" idempotent: repeated clicks never pile up empty
// conversations.
func CreateOrReuseSession(client *supabase.Client, userID string) (types.Session, bool, error) {
	resp, _, err := client.From(SessionsTable).
		Select("*", "", false).
		Eq("user_id", userID).
		Order("last_activity", &postgrest.OrderOpts{Ascending: false}).
		Limit(1, "").
		Execute()
	if err != nil {
		return types.Session{}, false, fmt.Errorf("failed to fetch recent session: %w", err)
	}

	var recent []types.Session
	if err := json.Unmarshal(resp, &recent); err != nil {
		return types.Session{}, false, fmt.Errorf("failed to decode session data: %w", err)
	}

	if len(recent) > 0 && recent[0].TaskCount == 0 {
		return recent[0], false, nil
	}

	now := time.Now()
	newSession := types.Session{
		UserID:       userID,
		Title:        placeholderTitle, // replaced by the first prompt later
		LastActivity: &now,
		// Do NOT set CreatedAt
	}

	created := []types.Session{newSession}

	resp, _, err = client.From(SessionsTable).Insert(created, false, "", "", "").Execute()
	if err != nil {
		return types.Session{}, false, fmt.Errorf("failed to insert session: %w", err)
	}

	if err := json.Unmarshal(resp, &created); err != nil {
		return types.Session{}, false, fmt.Errorf("failed to decode inserted session: %w", err)
	}
	return created[0], true, nil
}

// GetSessions lists the user's sessions, most recently active first.
func GetSessions(client *supabase.Client, userID string, limit int) ([]types.Session, error) {
	if userID == "" {
		return nil, fmt.Errorf("missing user ID")
	}
	if limit < 1 {
		limit = DefaultSessionLimit
	}
	if limit > MaxSessionLimit {
		limit = MaxSessionLimit
	}

	resp, _, err := client.From(SessionsTable).
		Select("*", "", false).
		Eq("user_id", userID).
		Order("last_activity", &postgrest.OrderOpts{Ascending: false}).
		Limit(limit, "").
		Execute()
	if err != nil {
		return nil, err
	}

	var sessions []types.Session
	if err := json.Unmarshal(resp, &sessions); err != nil {
		return nil, fmt.Errorf("failed to decode session data: %w", err)
	}

	return sessions, nil
}

// GetSession fetches one session scoped to its owner. A session owned
// by someone else comes back as ErrNotFound.
func GetSession(client *supabase.Client, sessionID, userID string) (types.Session, error) {
	resp, _, err := client.From(SessionsTable).
		Select("*", "", false).
		Eq("id", sessionID).
		Eq("user_id", userID).
		Limit(1, "").
		Execute()
	if err != nil {
		return types.Session{}, err
	}

	var sessions []types.Session
	if err := json.Unmarshal(resp, &sessions); err != nil {
		return types.Session{}, fmt.Errorf("failed to decode session data: %w", err)
	}
	if len(sessions) == 0 {
		return types.Session{}, ErrNotFound
	}

	return sessions[0], nil
}

// UpdateSession applies a partial update (title and/or last_activity).
func UpdateSession(client *supabase.Client, sessionID, userID string, updates map[string]interface{}) (types.Session, error) {
	if len(updates) == 0 {
		return types.Session{}, fmt.Errorf("no fields to update")
	}

	resp, _, err := client.From(SessionsTable).
		Update(updates, "", "").
		Eq("id", sessionID).
		Eq("user_id", userID).
		Execute()
	if err != nil {
		return types.Session{}, fmt.Errorf("failed to update session: %w", err)
	}

	var updated []types.Session
	if err := json.Unmarshal(resp, &updated); err != nil {
		return types.Session{}, fmt.Errorf("failed to parse update result: %w", err)
	}
	if len(updated) == 0 {
		return types.Session{}, ErrNotFound
	}

	return updated[0], nil
}

// TouchSession records task creation on the aggregate: bumps the task
// count and last activity, and on the session's first task derives the
// title from the prompt and pins the full prompt as first_prompt. The
// title is never overwritten afterwards.
func TouchSession(client *supabase.Client, session types.Session, prompt string) error {
	updates := map[string]interface{}{
		"task_count":    session.TaskCount + 1,
		"last_activity": time.Now(),
	}
	if session.TaskCount == 0 {
		updates["title"] = TruncateTitle(prompt)
		updates["first_prompt"] = prompt
	}

	_, _, err := client.From(SessionsTable).
		Update(updates, "", "").
		Eq("id", session.ID).
		Eq("user_id", session.UserID).
		Execute()
	if err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	return nil
}

// TruncateTitle cuts a prompt down to a session title.
func TruncateTitle(prompt string) string {
	runes := []rune(prompt)
	if len(runes) <= TitleMaxLength {
		return prompt
	}
	return string(runes[:TitleMaxLength]) + "..."
}
