package server

import (
	"sprintdeck/internal/domain"
)

// Wire DTOs. The HTTP contract uses snake_case keys; the in-memory domain
// structs use camelCase. These types pin the wire shape independently of
// whatever the domain layer does.

type UserResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
	Avatar string `json:"avatar,omitempty"`
	Role   string `json:"role,omitempty"`
}

type CreateUserRequest struct {
	ID     string `json:"id,omitempty"`
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
	Avatar string `json:"avatar,omitempty"`
	Role   string `json:"role,omitempty"`
}

type SprintResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
	Goal      string `json:"goal,omitempty"`
	Status    string `json:"status"`
}

type CreateSprintRequest struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
	Goal      string `json:"goal,omitempty"`
	Status    string `json:"status,omitempty"`
}

type CommentResponse struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Text      string `json:"text"`
	CreatedAt string `json:"created_at"`
}

type CreateCommentRequest struct {
	ID        string `json:"id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	Text      string `json:"text"`
	CreatedAt string `json:"created_at,omitempty"`
}

type UpdateCommentRequest struct {
	Text string `json:"text"`
}

type SubtaskResponse struct {
	ID        string `json:"id"`
	TaskID    string `json:"task_id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

type CreateSubtaskRequest struct {
	ID        string `json:"id,omitempty"`
	Title     string `json:"title"`
	Completed bool   `json:"completed,omitempty"`
}

type UpdateSubtaskRequest struct {
	Title     *string `json:"title,omitempty"`
	Completed *bool   `json:"completed,omitempty"`
}

type TaskResponse struct {
	ID          string            `json:"id"`
	Key         string            `json:"key"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Status      string            `json:"status"`
	Priority    string            `json:"priority"`
	Type        string            `json:"type"`
	AssigneeID  *string           `json:"assignee_id,omitempty"`
	ReporterID  string            `json:"reporter_id,omitempty"`
	SprintID    string            `json:"sprint_id,omitempty"`
	DueDate     *string           `json:"due_date,omitempty"`
	Labels      []string          `json:"labels"`
	CreatedAt   string            `json:"created_at"`
	UpdatedAt   string            `json:"updated_at"`
	Comments    []CommentResponse `json:"comments"`
	Subtasks    []SubtaskResponse `json:"subtasks,omitempty"`
}

// CreateTaskRequest accepts the client's provisional record. The id is kept
// if provided; the key is always reassigned by the service.
type CreateTaskRequest struct {
	ID          string   `json:"id,omitempty"`
	Key         string   `json:"key,omitempty"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Status      string   `json:"status,omitempty"`
	Priority    string   `json:"priority,omitempty"`
	Type        string   `json:"type,omitempty"`
	AssigneeID  *string  `json:"assignee_id,omitempty"`
	ReporterID  string   `json:"reporter_id,omitempty"`
	SprintID    string   `json:"sprint_id,omitempty"`
	DueDate     *string  `json:"due_date,omitempty"`
	Labels      []string `json:"labels,omitempty"`
	CreatedAt   string   `json:"created_at,omitempty"`
	UpdatedAt   string   `json:"updated_at,omitempty"`
}

// UpdateTaskRequest is a full replacement of the mutable fields. Absent
// fields keep their stored values; an explicit empty description, assignee_id,
// or due_date clears the stored value.
type UpdateTaskRequest struct {
	Title       string   `json:"title,omitempty"`
	Description *string  `json:"description,omitempty"`
	Status      string   `json:"status,omitempty"`
	Priority    string   `json:"priority,omitempty"`
	Type        string   `json:"type,omitempty"`
	AssigneeID  *string  `json:"assignee_id,omitempty"`
	ReporterID  string   `json:"reporter_id,omitempty"`
	SprintID    string   `json:"sprint_id,omitempty"`
	DueDate     *string  `json:"due_date,omitempty"`
	Labels      []string `json:"labels,omitempty"`
	UpdatedAt   string   `json:"updated_at,omitempty"`
}

func userResponse(u domain.User) UserResponse {
	return UserResponse{ID: u.ID, Name: u.Name, Email: u.Email, Avatar: u.Avatar, Role: u.Role}
}

func mapUsers(items []domain.User) []UserResponse {
	res := []UserResponse{}
	for _, u := range items {
		res = append(res, userResponse(u))
	}
	return res
}

func sprintResponse(s domain.Sprint) SprintResponse {
	return SprintResponse{ID: s.ID, Name: s.Name, StartDate: s.StartDate, EndDate: s.EndDate, Goal: s.Goal, Status: s.Status}
}

func mapSprints(items []domain.Sprint) []SprintResponse {
	res := []SprintResponse{}
	for _, s := range items {
		res = append(res, sprintResponse(s))
	}
	return res
}

func commentResponse(c domain.Comment) CommentResponse {
	return CommentResponse{ID: c.ID, UserID: c.UserID, Text: c.Text, CreatedAt: c.CreatedAt}
}

func mapComments(items []domain.Comment) []CommentResponse {
	res := []CommentResponse{}
	for _, c := range items {
		res = append(res, commentResponse(c))
	}
	return res
}

func subtaskResponse(st domain.Subtask) SubtaskResponse {
	return SubtaskResponse{ID: st.ID, TaskID: st.TaskID, Title: st.Title, Completed: st.Completed, CreatedAt: st.CreatedAt, UpdatedAt: st.UpdatedAt}
}

func mapSubtasks(items []domain.Subtask) []SubtaskResponse {
	res := []SubtaskResponse{}
	for _, st := range items {
		res = append(res, subtaskResponse(st))
	}
	return res
}

func taskResponse(t domain.Task) TaskResponse {
	labels := t.Labels
	if labels == nil {
		labels = []string{}
	}
	resp := TaskResponse{
		ID:          t.ID,
		Key:         t.Key,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Priority:    t.Priority,
		Type:        t.Type,
		AssigneeID:  t.AssigneeID,
		ReporterID:  t.ReporterID,
		SprintID:    t.SprintID,
		DueDate:     t.DueDate,
		Labels:      labels,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		Comments:    mapComments(t.Comments),
	}
	if len(t.Subtasks) > 0 {
		resp.Subtasks = mapSubtasks(t.Subtasks)
	}
	return resp
}

func mapTasks(items []domain.Task) []TaskResponse {
	res := []TaskResponse{}
	for _, t := range items {
		res = append(res, taskResponse(t))
	}
	return res
}
