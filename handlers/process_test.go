package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"clementus360/ai-photo-editor/provider"
	"clementus360/ai-photo-editor/supabase"
	"clementus360/ai-photo-editor/types"

	"github.com/stretchr/testify/require"
)

// processFixture fakes the postgrest tables the dispatch path touches
// and keeps them stateful, so successive requests see each other's
// writes the way real rows would.
type processFixture struct {
	session *types.Session
	balance int
	tasks   []types.Task

	taskInserts    int
	ledgerInserts  int
	sessionPatches int
	predictions    int

	providerFails        bool
	rejectDispatchRecord bool
}

func (f *processFixture) start(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/rest/v1/ai_photo_sessions", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.Method {
		case http.MethodGet:
			rows := []types.Session{}
			if f.session != nil {
				rows = append(rows, *f.session)
			}
			json.NewEncoder(w).Encode(rows)
		case http.MethodPatch:
			f.sessionPatches++
			var updates map[string]interface{}
			json.NewDecoder(r.Body).Decode(&updates)
			if f.session != nil {
				if v, ok := updates["task_count"].(float64); ok {
					f.session.TaskCount = int(v)
				}
				if v, ok := updates["title"].(string); ok {
					f.session.Title = v
				}
				if v, ok := updates["first_prompt"].(string); ok {
					prompt := v
					f.session.FirstPrompt = &prompt
				}
			}
			w.Write([]byte("[]"))
		}
	})
	mux.HandleFunc("/rest/v1/ai_photo_tasks", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode(f.tasks)
		case http.MethodPost:
			f.taskInserts++
			var rows []types.Task
			json.NewDecoder(r.Body).Decode(&rows)
			f.tasks = append(f.tasks, rows...)
			json.NewEncoder(w).Encode(rows)
		case http.MethodPatch:
			var updates map[string]interface{}
			json.NewDecoder(r.Body).Decode(&updates)
			if _, dispatch := updates["provider_job_id"]; dispatch && f.rejectDispatchRecord {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(`{"message":"write rejected"}`))
				return
			}
			id := strings.TrimPrefix(r.URL.Query().Get("id"), "eq.")
			matched := []types.Task{}
			for i := range f.tasks {
				if f.tasks[i].ID != id || f.tasks[i].Status.Terminal() {
					continue
				}
				if v, ok := updates["status"].(string); ok {
					f.tasks[i].Status = types.TaskStatus(v)
				}
				if v, ok := updates["provider_job_id"].(string); ok {
					f.tasks[i].ProviderJobID = v
				}
				if v, ok := updates["error_message"].(string); ok {
					f.tasks[i].ErrorMessage = v
				}
				matched = append(matched, f.tasks[i])
			}
			json.NewEncoder(w).Encode(matched)
		}
	})
	mux.HandleFunc("/rest/v1/user_credits", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode([]map[string]interface{}{
				{"user_id": "user-1", "balance": f.balance},
			})
		case http.MethodPatch:
			w.Write([]byte("[]"))
		}
	})
	mux.HandleFunc("/rest/v1/credit_transactions", func(w http.ResponseWriter, r *http.Request) {
		f.ledgerInserts++
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte("[]"))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	t.Setenv("SUPABASE_URL", srv.URL)
	t.Setenv("SUPABASE_KEY", "test-key")
	t.Setenv("SUPABASE_JWT_SECRET", "test-secret")
	return srv
}

// startProvider stands in for the Replicate API and hands out
// sequential prediction ids.
func (f *processFixture) startProvider(t *testing.T) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if f.providerFails {
			w.WriteHeader(http.StatusUnprocessableEntity)
			json.NewEncoder(w).Encode(map[string]string{"detail": "Invalid version or not permitted"})
			return
		}
		f.predictions++
		json.NewEncoder(w).Encode(provider.Prediction{
			ID:     fmt.Sprintf("pred-%d", f.predictions),
			Status: provider.StatusStarting,
		})
	}))
	t.Cleanup(srv.Close)

	t.Setenv("REPLICATE_API_TOKEN", "test-token")
	t.Setenv("REPLICATE_API_URL", srv.URL)
}

func processRequest(t *testing.T, body types.ProcessRequest, authorized bool) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/process", bytes.NewReader(raw))
	if authorized {
		token, err := supabase.GenerateTestJWT("user-1")
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	ProcessHandler(rec, req)
	return rec
}

func TestProcess_Unauthorized(t *testing.T) {
	fixture := &processFixture{}
	fixture.start(t)

	rec := processRequest(t, types.ProcessRequest{SessionID: "s1", Prompt: "a cat", ModelID: "google/nano-banana"}, false)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Zero(t, fixture.taskInserts)
	require.Zero(t, fixture.ledgerInserts)
}

func TestProcess_MissingParameters(t *testing.T) {
	fixture := &processFixture{session: &types.Session{ID: "s1", UserID: "user-1"}, balance: 100}
	fixture.start(t)

	tests := []struct {
		name string
		req  types.ProcessRequest
	}{
		{"no session", types.ProcessRequest{Prompt: "a cat", ModelID: "google/nano-banana"}},
		{"no prompt", types.ProcessRequest{SessionID: "s1", ModelID: "google/nano-banana"}},
		{"blank prompt", types.ProcessRequest{SessionID: "s1", Prompt: "   ", ModelID: "google/nano-banana"}},
		{"no model", types.ProcessRequest{SessionID: "s1", Prompt: "a cat"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := processRequest(t, tt.req, true)
			require.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
	require.Zero(t, fixture.taskInserts)
	require.Zero(t, fixture.ledgerInserts)
}

func TestProcess_SessionNotFound(t *testing.T) {
	fixture := &processFixture{session: nil, balance: 100}
	fixture.start(t)

	rec := processRequest(t, types.ProcessRequest{SessionID: "ghost", Prompt: "a cat", ModelID: "google/nano-banana"}, true)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Zero(t, fixture.ledgerInserts)
}

func TestProcess_InvalidModel(t *testing.T) {
	fixture := &processFixture{session: &types.Session{ID: "s1", UserID: "user-1"}, balance: 100}
	fixture.start(t)

	rec := processRequest(t, types.ProcessRequest{SessionID: "s1", Prompt: "a cat", ModelID: "unknown/model"}, true)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp types.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, "Invalid model", resp.ErrorMessage)
	require.Zero(t, fixture.ledgerInserts)
}

func TestProcess_InsufficientCredits(t *testing.T) {
	fixture := &processFixture{session: &types.Session{ID: "s1", UserID: "user-1"}, balance: 3}
	fixture.start(t)

	rec := processRequest(t, types.ProcessRequest{SessionID: "s1", Prompt: "a cat", ModelID: "google/nano-banana"}, true)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp types.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Contains(t, resp.ErrorMessage, "need 8")
	require.Contains(t, resp.ErrorMessage, "have 3")

	// The gate rejected before any state mutation.
	require.Zero(t, fixture.taskInserts)
	require.Zero(t, fixture.ledgerInserts)
	require.Zero(t, fixture.sessionPatches)
}

func TestProcess_SequentialDispatchesNumberTasks(t *testing.T) {
	fixture := &processFixture{session: &types.Session{ID: "s1", UserID: "user-1"}, balance: 100}
	fixture.start(t)
	fixture.startProvider(t)

	first := processRequest(t, types.ProcessRequest{SessionID: "s1", Prompt: "a cat in a hat", ModelID: "google/nano-banana"}, true)
	require.Equal(t, http.StatusOK, first.Code)
	second := processRequest(t, types.ProcessRequest{SessionID: "s1", Prompt: "make it bigger", ModelID: "google/nano-banana"}, true)
	require.Equal(t, http.StatusOK, second.Code)

	var resp types.ProcessResponse
	require.NoError(t, json.NewDecoder(second.Body).Decode(&resp))
	require.True(t, resp.Success)

	// Tasks in one session number 1, 2, ... in creation order.
	require.Len(t, fixture.tasks, 2)
	require.Equal(t, 1, fixture.tasks[0].SequenceOrder)
	require.Equal(t, 2, fixture.tasks[1].SequenceOrder)
	require.Equal(t, fixture.tasks[1].ID, resp.TaskID)

	// Each dispatch was recorded with its provider job id.
	require.Equal(t, 2, fixture.predictions)
	require.Equal(t, types.TaskStatusProcessing, fixture.tasks[0].Status)
	require.Equal(t, "pred-1", fixture.tasks[0].ProviderJobID)
	require.Equal(t, "pred-2", fixture.tasks[1].ProviderJobID)

	// The aggregate tracked both tasks; the title came from the first
	// prompt only.
	require.Equal(t, 2, fixture.session.TaskCount)
	require.Equal(t, "a cat in a...", fixture.session.Title)
	require.NotNil(t, fixture.session.FirstPrompt)
	require.Equal(t, "a cat in a hat", *fixture.session.FirstPrompt)
	require.Equal(t, 2, fixture.ledgerInserts)
}

func TestProcess_DispatchFailureFailsTaskButCountsIt(t *testing.T) {
	fixture := &processFixture{session: &types.Session{ID: "s1", UserID: "user-1"}, balance: 100, providerFails: true}
	fixture.start(t)
	fixture.startProvider(t)

	rec := processRequest(t, types.ProcessRequest{SessionID: "s1", Prompt: "a cat in a hat", ModelID: "google/nano-banana"}, true)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	require.Len(t, fixture.tasks, 1)
	require.Equal(t, types.TaskStatusFailed, fixture.tasks[0].Status)
	require.Contains(t, fixture.tasks[0].ErrorMessage, "Invalid version or not permitted")

	// The record exists, so the aggregate still counts it and the
	// credits stay consumed.
	require.Equal(t, 1, fixture.session.TaskCount)
	require.Equal(t, "a cat in a...", fixture.session.Title)
	require.Equal(t, 1, fixture.ledgerInserts)
}

func TestProcess_DispatchRecordFailureFailsTask(t *testing.T) {
	fixture := &processFixture{session: &types.Session{ID: "s1", UserID: "user-1"}, balance: 100, rejectDispatchRecord: true}
	fixture.start(t)
	fixture.startProvider(t)

	rec := processRequest(t, types.ProcessRequest{SessionID: "s1", Prompt: "a cat in a hat", ModelID: "google/nano-banana"}, true)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	// A task without a provider job id can never be refreshed by the
	// status query, so it must not stay pending.
	require.Len(t, fixture.tasks, 1)
	require.Equal(t, types.TaskStatusFailed, fixture.tasks[0].Status)
	require.Equal(t, "failed to record provider job id", fixture.tasks[0].ErrorMessage)
	require.Empty(t, fixture.tasks[0].ProviderJobID)
}
