package gateway_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"sprintdeck/internal/domain"
	"sprintdeck/internal/gateway"
)

func TestCreateTaskTranscodesBothWays(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/tasks", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"t1","key":"PROJ-105","title":"Fix bug","status":"To Do","sprint_id":"S1","reporter_id":"u1","labels":[],"created_at":"Mar 15, 2024","updated_at":"Mar 15, 2024"}`)
	}))
	defer srv.Close()

	c := gateway.New(srv.URL)
	assignee := "u2"
	created, err := c.CreateTask(context.Background(), domain.Task{
		Title:      "Fix bug",
		SprintID:   "S1",
		ReporterID: "u1",
		AssigneeID: &assignee,
	})
	assert.NoError(t, err)

	// Outgoing payload is snake_case.
	assert.Equal(t, "S1", gotBody["sprint_id"])
	assert.Equal(t, "u2", gotBody["assignee_id"])
	assert.NotContains(t, gotBody, "sprintId")

	// Incoming payload was decoded from snake_case.
	assert.Equal(t, "PROJ-105", created.Key)
	assert.Equal(t, "S1", created.SprintID)
	assert.Equal(t, "u1", created.ReporterID)
}

func TestListTasksDecodesNested(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[{"id":"t1","key":"PROJ-101","title":"a","status":"Done","sprint_id":"S1","reporter_id":"u1","labels":["api"],"created_at":"x","updated_at":"x","comments":[{"id":"c1","user_id":"u2","text":"hi","created_at":"Just now"}]}]`)
	}))
	defer srv.Close()

	tasks, err := gateway.New(srv.URL).ListTasks(context.Background())
	assert.NoError(t, err)
	assert.Len(t, tasks, 1)
	assert.Equal(t, "S1", tasks[0].SprintID)
	assert.Len(t, tasks[0].Comments, 1)
	assert.Equal(t, "u2", tasks[0].Comments[0].UserID)
}

func TestUpdateTaskPayloadShape(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		io.WriteString(w, `{"id":"t1","key":"PROJ-101","title":"x","status":"Review","labels":[],"created_at":"a","updated_at":"b"}`)
	}))
	defer srv.Close()

	c := gateway.New(srv.URL)
	_, err := c.UpdateTask(context.Background(), "t1", domain.Task{
		ID:        "t1",
		Key:       "PROJ-101",
		Title:     "x",
		Status:    domain.StatusReview,
		Labels:    []string{},
		CreatedAt: "a",
		UpdatedAt: "b",
	})
	assert.NoError(t, err)

	// Identity and creation fields stay out of the body.
	assert.NotContains(t, gotBody, "id")
	assert.NotContains(t, gotBody, "key")
	assert.NotContains(t, gotBody, "created_at")

	// Nullable fields are sent even when empty so clears reach the service.
	assert.Equal(t, "", gotBody["description"])
	assert.Equal(t, "", gotBody["assignee_id"])
	assert.Equal(t, "", gotBody["due_date"])
	assert.Equal(t, []any{}, gotBody["labels"])
}

func TestSubtaskPayloadShapes(t *testing.T) {
	var bodies []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(raw, &body)
		bodies = append(bodies, body)
		io.WriteString(w, `{"id":"st1","task_id":"t1","title":"part","completed":true}`)
	}))
	defer srv.Close()

	c := gateway.New(srv.URL)
	ctx := context.Background()
	_, err := c.CreateSubtask(ctx, "t1", domain.Subtask{TaskID: "t1", Title: "part"})
	assert.NoError(t, err)
	_, err = c.UpdateSubtask(ctx, "st1", domain.Subtask{ID: "st1", TaskID: "t1", Completed: true})
	assert.NoError(t, err)

	assert.Len(t, bodies, 2)
	// The owning task travels in the route only.
	assert.NotContains(t, bodies[0], "task_id")
	assert.Equal(t, "part", bodies[0]["title"])
	assert.NotContains(t, bodies[1], "id")
	assert.NotContains(t, bodies[1], "task_id")
	assert.NotContains(t, bodies[1], "title")
	assert.Equal(t, true, bodies[1]["completed"])
}

func TestNonSuccessRaisesOpError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":"not_found","message":"no such task"}}`, http.StatusNotFound)
	}))
	defer srv.Close()

	c := gateway.New(srv.URL)
	_, err := c.UpdateTask(context.Background(), "missing", domain.Task{Title: "x"})
	var opErr *gateway.OpError
	assert.True(t, errors.As(err, &opErr))
	assert.Equal(t, "update task", opErr.Op)
	assert.Equal(t, http.StatusNotFound, opErr.StatusCode)
	assert.Contains(t, err.Error(), "failed to update task")
}

func TestNestedRoutes(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
		switch {
		case r.Method == http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		case r.URL.Path == "/tasks/t1/subtasks":
			io.WriteString(w, `{"id":"st1","task_id":"t1","title":"part","completed":false}`)
		default:
			io.WriteString(w, `{"id":"c1","user_id":"u1","text":"hi","created_at":"now"}`)
		}
	}))
	defer srv.Close()

	c := gateway.New(srv.URL)
	ctx := context.Background()
	st, err := c.CreateSubtask(ctx, "t1", domain.Subtask{TaskID: "t1", Title: "part"})
	assert.NoError(t, err)
	assert.Equal(t, "t1", st.TaskID)
	_, err = c.CreateComment(ctx, "t1", domain.Comment{Text: "hi"})
	assert.NoError(t, err)
	assert.NoError(t, c.DeleteSubtask(ctx, "st1"))
	assert.NoError(t, c.DeleteComment(ctx, "c1"))

	assert.Equal(t, []string{
		"POST /tasks/t1/subtasks",
		"POST /tasks/t1/comments",
		"DELETE /subtasks/st1",
		"DELETE /comments/c1",
	}, paths)
}

func TestDefaultBaseURL(t *testing.T) {
	c := gateway.New("")
	assert.Equal(t, "http://localhost:3344/api", c.BaseURL)
}
