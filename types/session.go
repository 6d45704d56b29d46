package types

import "time"

type Session struct {
	ID           string     `json:"id,omitempty"` // <-- omitempty is critical
	UserID       string     `json:"user_id"`
	Title        string     `json:"title"`
	FirstPrompt  *string    `json:"first_prompt,omitempty"`
	TaskCount    int        `json:"task_count"`
	LastActivity *time.Time `json:"last_activity,omitempty"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
}

type CreateSessionResponse struct {
	Success      bool   `json:"success"`
	SessionID    string `json:"session_id,omitempty"`
	IsNew        bool   `json:"is_new"`
	ErrorMessage string `json:"error,omitempty"`
}

type GetSessionsResponse struct {
	Success  bool      `json:"success"`
	Sessions []Session `json:"sessions"`
}

type SessionResponse struct {
	Success bool    `json:"success"`
	Session Session `json:"session"`
}

type UpdateSessionRequest struct {
	Title        string `json:"title,omitempty"`
	LastActivity string `json:"last_activity,omitempty"` // ISO-8601
}

type UpdateSessionResponse struct {
	Success      bool   `json:"success"`
	SessionID    string `json:"session_id,omitempty"`
	ErrorMessage string `json:"error,omitempty"`
}
