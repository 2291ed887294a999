// Package gateway is the HTTP client for the remote tracker service. Every
// request body is transcoded memory→wire (camelCase → snake_case) before
// transmission and every response wire→memory before it is handed back, so
// the rest of the client only ever sees memory-convention entities.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"sprintdeck/internal/domain"
	"sprintdeck/internal/transcode"
)

// DefaultBaseURL is used when no override is configured.
const DefaultBaseURL = "http://localhost:3344/api"

// Client is a minimal tracker API client.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// OpError wraps a non-2xx response, carrying the operation that failed.
type OpError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *OpError) Error() string {
	return fmt.Sprintf("failed to %s: status=%d body=%s", e.Op, e.StatusCode, e.Body)
}

// ListUsers fetches the full user roster.
func (c *Client) ListUsers(ctx context.Context) ([]domain.User, error) {
	var out []domain.User
	err := c.do(ctx, "fetch users", http.MethodGet, "users", nil, &out)
	return out, err
}

// CreateUser creates a user.
func (c *Client) CreateUser(ctx context.Context, u domain.User) (domain.User, error) {
	var out domain.User
	err := c.do(ctx, "create user", http.MethodPost, "users", u, &out)
	return out, err
}

// ListSprints fetches all sprints.
func (c *Client) ListSprints(ctx context.Context) ([]domain.Sprint, error) {
	var out []domain.Sprint
	err := c.do(ctx, "fetch sprints", http.MethodGet, "sprints", nil, &out)
	return out, err
}

// CreateSprint creates a sprint.
func (c *Client) CreateSprint(ctx context.Context, s domain.Sprint) (domain.Sprint, error) {
	var out domain.Sprint
	err := c.do(ctx, "create sprint", http.MethodPost, "sprints", s, &out)
	return out, err
}

// ListTasks fetches the full task collection.
func (c *Client) ListTasks(ctx context.Context) ([]domain.Task, error) {
	var out []domain.Task
	err := c.do(ctx, "fetch tasks", http.MethodGet, "tasks", nil, &out)
	return out, err
}

// taskUpdate is the PUT body for a task. The nullable fields are always
// present so that clearing a description, assignee, or due date on the client
// also clears it on the service.
type taskUpdate struct {
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description"`
	Status      string   `json:"status,omitempty"`
	Priority    string   `json:"priority,omitempty"`
	Type        string   `json:"type,omitempty"`
	AssigneeID  string   `json:"assigneeId"`
	ReporterID  string   `json:"reporterId,omitempty"`
	SprintID    string   `json:"sprintId,omitempty"`
	DueDate     string   `json:"dueDate"`
	Labels      []string `json:"labels"`
	UpdatedAt   string   `json:"updatedAt,omitempty"`
}

type subtaskCreate struct {
	ID        string `json:"id,omitempty"`
	Title     string `json:"title"`
	Completed bool   `json:"completed,omitempty"`
}

type subtaskUpdate struct {
	Title     string `json:"title,omitempty"`
	Completed bool   `json:"completed"`
}

// CreateTask creates a task and returns the service's authoritative copy,
// including the assigned key.
func (c *Client) CreateTask(ctx context.Context, t domain.Task) (domain.Task, error) {
	// Nested collections are created through their own endpoints.
	t.Comments, t.Subtasks = nil, nil
	var out domain.Task
	err := c.do(ctx, "create task", http.MethodPost, "tasks", t, &out)
	return out, err
}

// UpdateTask replaces the mutable fields of a task by id. Identity and
// creation fields are never transmitted; empty description, assignee, and due
// date clear the stored values.
func (c *Client) UpdateTask(ctx context.Context, id string, t domain.Task) (domain.Task, error) {
	body := taskUpdate{
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Priority:    t.Priority,
		Type:        t.Type,
		AssigneeID:  deref(t.AssigneeID),
		ReporterID:  t.ReporterID,
		SprintID:    t.SprintID,
		DueDate:     deref(t.DueDate),
		Labels:      t.Labels,
		UpdatedAt:   t.UpdatedAt,
	}
	var out domain.Task
	err := c.do(ctx, "update task", http.MethodPut, "tasks/"+url.PathEscape(id), body, &out)
	return out, err
}

// DeleteTask deletes a task by id.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, "delete task", http.MethodDelete, "tasks/"+url.PathEscape(id), nil, nil)
}

// ListSubtasks fetches the subtasks of a task.
func (c *Client) ListSubtasks(ctx context.Context, taskID string) ([]domain.Subtask, error) {
	var out []domain.Subtask
	err := c.do(ctx, "fetch subtasks", http.MethodGet, taskPath(taskID, "subtasks"), nil, &out)
	return out, err
}

// CreateSubtask creates a subtask under a task. The owning task comes from
// the route, not the body.
func (c *Client) CreateSubtask(ctx context.Context, taskID string, st domain.Subtask) (domain.Subtask, error) {
	body := subtaskCreate{ID: st.ID, Title: st.Title, Completed: st.Completed}
	var out domain.Subtask
	err := c.do(ctx, "create subtask", http.MethodPost, taskPath(taskID, "subtasks"), body, &out)
	return out, err
}

// UpdateSubtask updates a subtask by id. An empty title leaves the stored
// title alone, so flipping the completed flag needs only a zero Subtask with
// Completed set.
func (c *Client) UpdateSubtask(ctx context.Context, id string, st domain.Subtask) (domain.Subtask, error) {
	body := subtaskUpdate{Title: st.Title, Completed: st.Completed}
	var out domain.Subtask
	err := c.do(ctx, "update subtask", http.MethodPut, "subtasks/"+url.PathEscape(id), body, &out)
	return out, err
}

// DeleteSubtask deletes a subtask by id.
func (c *Client) DeleteSubtask(ctx context.Context, id string) error {
	return c.do(ctx, "delete subtask", http.MethodDelete, "subtasks/"+url.PathEscape(id), nil, nil)
}

// ListComments fetches the comments of a task.
func (c *Client) ListComments(ctx context.Context, taskID string) ([]domain.Comment, error) {
	var out []domain.Comment
	err := c.do(ctx, "fetch comments", http.MethodGet, taskPath(taskID, "comments"), nil, &out)
	return out, err
}

// CreateComment appends a comment to a task.
func (c *Client) CreateComment(ctx context.Context, taskID string, cm domain.Comment) (domain.Comment, error) {
	var out domain.Comment
	err := c.do(ctx, "create comment", http.MethodPost, taskPath(taskID, "comments"), cm, &out)
	return out, err
}

// UpdateComment replaces a comment's text by id.
func (c *Client) UpdateComment(ctx context.Context, id string, cm domain.Comment) (domain.Comment, error) {
	body := struct {
		Text string `json:"text"`
	}{Text: cm.Text}
	var out domain.Comment
	err := c.do(ctx, "update comment", http.MethodPut, "comments/"+url.PathEscape(id), body, &out)
	return out, err
}

// DeleteComment deletes a comment by id.
func (c *Client) DeleteComment(ctx context.Context, id string) error {
	return c.do(ctx, "delete comment", http.MethodDelete, "comments/"+url.PathEscape(id), nil, nil)
}

func (c *Client) do(ctx context.Context, op, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	reqURL := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		wire, err := toWire(body)
		if err != nil {
			return fmt.Errorf("%s: encode: %w", op, err)
		}
		if err := json.NewEncoder(&buf).Encode(wire); err != nil {
			return fmt.Errorf("%s: encode: %w", op, err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &OpError{Op: op, StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		if err := fromWire(resp.Body, out); err != nil {
			return &OpError{Op: op, StatusCode: resp.StatusCode, Body: err.Error()}
		}
	}
	return nil
}

// toWire converts a memory-convention value into its wire-convention tree.
func toWire(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var tree any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil, err
	}
	return transcode.MemoryToWire(tree), nil
}

// fromWire decodes a wire-convention body into a memory-convention value.
func fromWire(r io.Reader, out any) error {
	var tree any
	if err := json.NewDecoder(r).Decode(&tree); err != nil {
		return err
	}
	mem, err := json.Marshal(transcode.WireToMemory(tree))
	if err != nil {
		return err
	}
	return json.Unmarshal(mem, out)
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func taskPath(taskID, sub string) string {
	return fmt.Sprintf("tasks/%s/%s", url.PathEscape(taskID), sub)
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
