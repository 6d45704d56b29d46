package supabase

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"clementus360/ai-photo-editor/types"

	"github.com/stretchr/testify/require"
)

// fakeTaskStore emulates the postgrest task table closely enough to
// exercise owner scoping and the conditional terminal updates: filters
// arrive as query params (`id=eq.x`, `status=in.(a,b)`) and updates
// only apply to matching rows.
type fakeTaskStore struct {
	tasks map[string]*types.Task
}

func eqValue(r *http.Request, column string) (string, bool) {
	raw := r.URL.Query().Get(column)
	if strings.HasPrefix(raw, "eq.") {
		return strings.TrimPrefix(raw, "eq."), true
	}
	return "", false
}

func inValues(r *http.Request, column string) ([]string, bool) {
	raw := r.URL.Query().Get(column)
	if !strings.HasPrefix(raw, "in.(") || !strings.HasSuffix(raw, ")") {
		return nil, false
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(raw, "in.("), ")")
	values := strings.Split(inner, ",")
	for i := range values {
		values[i] = strings.Trim(values[i], `"`)
	}
	return values, true
}

func (f *fakeTaskStore) matches(r *http.Request, task *types.Task) bool {
	if id, ok := eqValue(r, "id"); ok && task.ID != id {
		return false
	}
	if userID, ok := eqValue(r, "user_id"); ok && task.UserID != userID {
		return false
	}
	if sessionID, ok := eqValue(r, "session_id"); ok && task.SessionID != sessionID {
		return false
	}
	if statuses, ok := inValues(r, "status"); ok {
		found := false
		for _, s := range statuses {
			if string(task.Status) == s {
				found = true
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (f *fakeTaskStore) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/v1/"+TasksTable, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.Method {
		case http.MethodGet:
			matched := []types.Task{}
			for _, task := range f.tasks {
				if f.matches(r, task) {
					matched = append(matched, *task)
				}
			}
			json.NewEncoder(w).Encode(matched)
		case http.MethodPatch:
			var updates map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&updates))
			matched := []types.Task{}
			for _, task := range f.tasks {
				if !f.matches(r, task) {
					continue
				}
				if status, ok := updates["status"].(string); ok {
					task.Status = types.TaskStatus(status)
				}
				if output, ok := updates["output_image_url"].(string); ok {
					task.OutputImageURL = output
				}
				if message, ok := updates["error_message"].(string); ok {
					task.ErrorMessage = message
				}
				matched = append(matched, *task)
			}
			json.NewEncoder(w).Encode(matched)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
	return httptest.NewServer(mux)
}

func TestGetTask_OwnerScoping(t *testing.T) {
	store := &fakeTaskStore{tasks: map[string]*types.Task{
		"t1": {ID: "t1", UserID: "owner", Status: types.TaskStatusProcessing},
	}}
	srv := store.server(t)
	defer srv.Close()
	client := newTestClient(t, srv.URL)

	// The owner sees the task.
	task, err := GetTask(client, "owner", "t1")
	require.NoError(t, err)
	require.Equal(t, "t1", task.ID)

	// A stranger gets the same answer as for a task that never existed.
	_, strangerErr := GetTask(client, "stranger", "t1")
	_, missingErr := GetTask(client, "owner", "no-such-task")
	require.ErrorIs(t, strangerErr, ErrNotFound)
	require.ErrorIs(t, missingErr, ErrNotFound)
}

func TestCompleteTaskIfRunning_FirstWriteSticks(t *testing.T) {
	store := &fakeTaskStore{tasks: map[string]*types.Task{
		"t1": {ID: "t1", UserID: "u1", Status: types.TaskStatusProcessing},
	}}
	srv := store.server(t)
	defer srv.Close()
	client := newTestClient(t, srv.URL)

	updated, err := CompleteTaskIfRunning(client, "t1", "https://cdn.example/owned.png")
	require.NoError(t, err)
	require.True(t, updated)
	require.Equal(t, types.TaskStatusCompleted, store.tasks["t1"].Status)
	require.Equal(t, "https://cdn.example/owned.png", store.tasks["t1"].OutputImageURL)

	// A second terminal write finds nothing to update.
	updated, err = CompleteTaskIfRunning(client, "t1", "https://cdn.example/other.png")
	require.NoError(t, err)
	require.False(t, updated)
	require.Equal(t, "https://cdn.example/owned.png", store.tasks["t1"].OutputImageURL)

	// Neither does a late failure signal.
	updated, err = FailTaskIfRunning(client, "t1", "late failure")
	require.NoError(t, err)
	require.False(t, updated)
	require.Equal(t, types.TaskStatusCompleted, store.tasks["t1"].Status)
	require.Empty(t, store.tasks["t1"].ErrorMessage)
}

func TestFailTaskIfRunning(t *testing.T) {
	store := &fakeTaskStore{tasks: map[string]*types.Task{
		"t1": {ID: "t1", UserID: "u1", Status: types.TaskStatusPending},
	}}
	srv := store.server(t)
	defer srv.Close()

	updated, err := FailTaskIfRunning(newTestClient(t, srv.URL), "t1", "provider exploded")
	require.NoError(t, err)
	require.True(t, updated)
	require.Equal(t, types.TaskStatusFailed, store.tasks["t1"].Status)
	require.Equal(t, "provider exploded", store.tasks["t1"].ErrorMessage)
}

func TestCountSessionTasks(t *testing.T) {
	store := &fakeTaskStore{tasks: map[string]*types.Task{
		"t1": {ID: "t1", SessionID: "s1"},
		"t2": {ID: "t2", SessionID: "s1"},
		"t3": {ID: "t3", SessionID: "other"},
	}}
	srv := store.server(t)
	defer srv.Close()

	count, err := CountSessionTasks(newTestClient(t, srv.URL), "s1")
	require.NoError(t, err)
	require.Equal(t, 2, count)
}
