package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"sprintdeck/internal/db"
	"sprintdeck/internal/domain"
	"sprintdeck/internal/gateway"
	"sprintdeck/internal/migrate"
)

type testServer struct {
	URL    string
	client *http.Client
	close  func()
}

func (s *testServer) Close() { s.close() }

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	workspace := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	fixed := time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC)
	handler, err := New(Config{DB: conn, BasePath: "/api", Now: func() time.Time { return fixed }})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	ts := &testServer{
		URL:    "http://" + ln.Addr().String(),
		client: &http.Client{Timeout: 5 * time.Second},
		close: func() {
			srv.Close()
			conn.Close()
		},
	}
	t.Cleanup(ts.Close)
	return ts
}

func (s *testServer) doJSON(t *testing.T, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var buf io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		buf = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, s.URL+path, buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	var out map[string]any
	if len(data) > 0 {
		_ = json.Unmarshal(data, &out)
	}
	return resp.StatusCode, out
}

func (s *testServer) doJSONList(t *testing.T, path string) []map[string]any {
	t.Helper()
	resp, err := s.client.Get(s.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: status %d", path, resp.StatusCode)
	}
	var out []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return out
}

func TestCreateTaskAssignsSequentialKeys(t *testing.T) {
	ts := newTestServer(t)

	status, first := ts.doJSON(t, http.MethodPost, "/api/tasks", map[string]any{
		"title": "Set up CI",
		// Client-proposed keys are ignored.
		"key": "PROJ-999",
	})
	if status != http.StatusCreated {
		t.Fatalf("create task: status %d", status)
	}
	if first["key"] != "PROJ-101" {
		t.Fatalf("first key = %v, want PROJ-101", first["key"])
	}

	_, second := ts.doJSON(t, http.MethodPost, "/api/tasks", map[string]any{"title": "Write docs"})
	if second["key"] != "PROJ-102" {
		t.Fatalf("second key = %v, want PROJ-102", second["key"])
	}
}

func TestCreateTaskDefaults(t *testing.T) {
	ts := newTestServer(t)

	status, body := ts.doJSON(t, http.MethodPost, "/api/tasks", map[string]any{})
	if status != http.StatusCreated {
		t.Fatalf("create task: status %d", status)
	}
	if body["title"] != "New Task" {
		t.Errorf("title = %v, want New Task", body["title"])
	}
	if body["status"] != domain.StatusTodo {
		t.Errorf("status = %v, want %s", body["status"], domain.StatusTodo)
	}
	if body["priority"] != domain.PriorityMedium {
		t.Errorf("priority = %v, want %s", body["priority"], domain.PriorityMedium)
	}
	if body["type"] != domain.TypeTask {
		t.Errorf("type = %v, want %s", body["type"], domain.TypeTask)
	}
	if body["created_at"] != "Mar 15, 2024" {
		t.Errorf("created_at = %v, want Mar 15, 2024", body["created_at"])
	}
	labels, ok := body["labels"].([]any)
	if !ok || len(labels) != 0 {
		t.Errorf("labels = %v, want empty array", body["labels"])
	}
}

func TestTaskListNestsCommentsAndSubtasks(t *testing.T) {
	ts := newTestServer(t)

	_, task := ts.doJSON(t, http.MethodPost, "/api/tasks", map[string]any{"title": "Review PR"})
	id := task["id"].(string)

	status, _ := ts.doJSON(t, http.MethodPost, "/api/tasks/"+id+"/comments", map[string]any{
		"user_id": "u1",
		"text":    "Looks good",
	})
	if status != http.StatusCreated {
		t.Fatalf("create comment: status %d", status)
	}
	status, _ = ts.doJSON(t, http.MethodPost, "/api/tasks/"+id+"/subtasks", map[string]any{"title": "Check tests"})
	if status != http.StatusCreated {
		t.Fatalf("create subtask: status %d", status)
	}

	tasks := ts.doJSONList(t, "/api/tasks")
	if len(tasks) != 1 {
		t.Fatalf("got %d tasks, want 1", len(tasks))
	}
	comments, _ := tasks[0]["comments"].([]any)
	if len(comments) != 1 {
		t.Fatalf("got %d comments, want 1", len(comments))
	}
	c := comments[0].(map[string]any)
	if c["user_id"] != "u1" || c["text"] != "Looks good" {
		t.Errorf("comment = %v", c)
	}
	subtasks, _ := tasks[0]["subtasks"].([]any)
	if len(subtasks) != 1 {
		t.Fatalf("got %d subtasks, want 1", len(subtasks))
	}
}

func TestBlankCommentRejected(t *testing.T) {
	ts := newTestServer(t)

	_, task := ts.doJSON(t, http.MethodPost, "/api/tasks", map[string]any{"title": "T"})
	id := task["id"].(string)

	status, body := ts.doJSON(t, http.MethodPost, "/api/tasks/"+id+"/comments", map[string]any{"text": "   "})
	if status != http.StatusBadRequest {
		t.Fatalf("blank comment: status %d, want 400", status)
	}
	envelope, _ := body["error"].(map[string]any)
	if envelope["code"] != "bad_request" {
		t.Errorf("error code = %v", envelope["code"])
	}
}

func TestDeleteTaskCascades(t *testing.T) {
	ts := newTestServer(t)

	_, task := ts.doJSON(t, http.MethodPost, "/api/tasks", map[string]any{"title": "Doomed"})
	id := task["id"].(string)
	_, sub := ts.doJSON(t, http.MethodPost, "/api/tasks/"+id+"/subtasks", map[string]any{"title": "Also doomed"})
	subID := sub["id"].(string)

	if status, _ := ts.doJSON(t, http.MethodDelete, "/api/tasks/"+id, nil); status >= 300 {
		t.Fatalf("delete task: status %d", status)
	}
	status, _ := ts.doJSON(t, http.MethodPut, "/api/subtasks/"+subID, map[string]any{"completed": true})
	if status != http.StatusNotFound {
		t.Fatalf("orphan subtask update: status %d, want 404", status)
	}
}

func TestNotFoundEnvelope(t *testing.T) {
	ts := newTestServer(t)

	status, body := ts.doJSON(t, http.MethodPut, "/api/tasks/nope", map[string]any{"title": "x"})
	if status != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", status)
	}
	envelope, ok := body["error"].(map[string]any)
	if !ok {
		t.Fatalf("missing error envelope: %v", body)
	}
	if envelope["code"] != "not_found" {
		t.Errorf("error code = %v, want not_found", envelope["code"])
	}
	if envelope["message"] == "" {
		t.Errorf("empty error message")
	}
}

func TestGatewayRoundTrip(t *testing.T) {
	ts := newTestServer(t)
	client := gateway.New(ts.URL + "/api")
	ctx := context.Background()

	sprint, err := client.CreateSprint(ctx, domain.Sprint{Name: "Sprint 1", Status: domain.SprintActive})
	if err != nil {
		t.Fatalf("create sprint: %v", err)
	}

	assignee := "u2"
	created, err := client.CreateTask(ctx, domain.Task{
		Title:      "Wire gateway",
		Status:     domain.StatusInProgress,
		Priority:   domain.PriorityHigh,
		Type:       domain.TypeBug,
		AssigneeID: &assignee,
		SprintID:   sprint.ID,
		Labels:     []string{"backend"},
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if created.Key != "PROJ-101" {
		t.Errorf("key = %q, want PROJ-101", created.Key)
	}
	if created.AssigneeID == nil || *created.AssigneeID != "u2" {
		t.Errorf("assignee = %v, want u2", created.AssigneeID)
	}

	if _, err := client.CreateComment(ctx, created.ID, domain.Comment{UserID: "u1", Text: "shipping"}); err != nil {
		t.Fatalf("create comment: %v", err)
	}

	tasks, err := client.ListTasks(ctx)
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("got %d tasks, want 1", len(tasks))
	}
	got := tasks[0]
	if got.SprintID != sprint.ID {
		t.Errorf("sprint id = %q, want %q", got.SprintID, sprint.ID)
	}
	if len(got.Comments) != 1 || got.Comments[0].Text != "shipping" {
		t.Errorf("comments = %v", got.Comments)
	}
}

func TestGatewayMirrorsTaskUpdates(t *testing.T) {
	ts := newTestServer(t)
	client := gateway.New(ts.URL + "/api")
	ctx := context.Background()

	assignee := "u2"
	due := "Apr 1, 2024"
	created, err := client.CreateTask(ctx, domain.Task{
		Title:       "Harden sync",
		Description: "initial notes",
		AssigneeID:  &assignee,
		DueDate:     &due,
		Labels:      []string{"sync"},
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	// Mirror the full local state back, including cleared fields.
	created.Status = domain.StatusReview
	created.Description = ""
	created.AssigneeID = nil
	created.DueDate = nil
	created.Labels = []string{"sync", "api"}
	updated, err := client.UpdateTask(ctx, created.ID, created)
	if err != nil {
		t.Fatalf("update task: %v", err)
	}
	if updated.Status != domain.StatusReview {
		t.Errorf("status = %q, want %q", updated.Status, domain.StatusReview)
	}
	if updated.Description != "" {
		t.Errorf("description = %q, want cleared", updated.Description)
	}
	if updated.AssigneeID != nil {
		t.Errorf("assignee = %v, want cleared", *updated.AssigneeID)
	}
	if updated.DueDate != nil {
		t.Errorf("due date = %v, want cleared", *updated.DueDate)
	}
	if len(updated.Labels) != 2 || updated.Labels[1] != "api" {
		t.Errorf("labels = %v", updated.Labels)
	}

	// The clears survive a fresh read, not just the update response.
	fetched, err := client.ListTasks(ctx)
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(fetched) != 1 {
		t.Fatalf("got %d tasks, want 1", len(fetched))
	}
	if fetched[0].Description != "" || fetched[0].AssigneeID != nil || fetched[0].DueDate != nil {
		t.Errorf("cleared fields resurrected: %+v", fetched[0])
	}
	if fetched[0].Key != created.Key {
		t.Errorf("key = %q, want %q", fetched[0].Key, created.Key)
	}
}

func TestGatewayMirrorsSubtasks(t *testing.T) {
	ts := newTestServer(t)
	client := gateway.New(ts.URL + "/api")
	ctx := context.Background()

	task, err := client.CreateTask(ctx, domain.Task{Title: "Split work"})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	st, err := client.CreateSubtask(ctx, task.ID, domain.Subtask{Title: "write fixtures"})
	if err != nil {
		t.Fatalf("create subtask: %v", err)
	}
	if st.TaskID != task.ID {
		t.Errorf("subtask task id = %q, want %q", st.TaskID, task.ID)
	}

	done, err := client.UpdateSubtask(ctx, st.ID, domain.Subtask{Completed: true})
	if err != nil {
		t.Fatalf("update subtask: %v", err)
	}
	if !done.Completed {
		t.Errorf("completed = false, want true")
	}
	if done.Title != "write fixtures" {
		t.Errorf("title = %q, flipping completed must not touch it", done.Title)
	}

	subtasks, err := client.ListSubtasks(ctx, task.ID)
	if err != nil {
		t.Fatalf("list subtasks: %v", err)
	}
	if len(subtasks) != 1 || !subtasks[0].Completed {
		t.Errorf("subtasks = %+v", subtasks)
	}
}
