package store

import (
	"strings"

	"github.com/google/uuid"

	"sprintdeck/internal/domain"
)

// TaskDraft carries the caller-supplied fields for CreateTask. Every field is
// optional; unset fields fall back to session defaults.
type TaskDraft struct {
	Title       string
	Description string
	Status      string
	Priority    string
	Type        string
	AssigneeID  *string
	ReporterID  string
	SprintID    string
	DueDate     *string
	Labels      []string
}

// TaskPatch is a shallow merge onto an existing task. Nil fields are left
// alone; Labels replaces the whole sequence (callers wanting add/remove
// semantics pass the recomputed slice, or use AddLabel/RemoveLabel).
type TaskPatch struct {
	Title       *string
	Description *string
	Status      *string
	Priority    *string
	Type        *string
	AssigneeID  *string // empty string clears the assignee
	DueDate     *string // empty string clears the due date
	Labels      *[]string
}

// CreateTask appends a new task built from draft plus session defaults and
// returns it. The id is a fresh UUID; the key comes from the monotonic
// session counter.
func (s *Store) CreateTask(draft TaskDraft) domain.Task {
	now := s.stamp()
	t := domain.Task{
		ID:          uuid.NewString(),
		Key:         s.nextTaskKey(),
		Title:       draft.Title,
		Description: draft.Description,
		Status:      draft.Status,
		Priority:    draft.Priority,
		Type:        draft.Type,
		AssigneeID:  draft.AssigneeID,
		ReporterID:  draft.ReporterID,
		SprintID:    draft.SprintID,
		DueDate:     draft.DueDate,
		Labels:      draft.Labels,
		Comments:    []domain.Comment{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if t.Title == "" {
		t.Title = "New Task"
	}
	if !domain.ValidStatus(t.Status) {
		t.Status = domain.StatusTodo
	}
	if t.Priority == "" {
		t.Priority = domain.PriorityMedium
	}
	if t.Type == "" {
		t.Type = domain.TypeTask
	}
	if t.ReporterID == "" {
		t.ReporterID = s.ActorID
	}
	if t.SprintID == "" {
		t.SprintID = s.CurrentSprintID
	}
	if t.Labels == nil {
		t.Labels = []string{}
	}
	s.Tasks = append(s.Tasks, t)
	return t
}

// UpdateTask shallow-merges patch onto the task with the given id and
// refreshes updatedAt. A missing id is a no-op, reported through the second
// return value so callers can tell "nothing changed" apart from a real
// update. An invalid status value in the patch is ignored rather than
// corrupting the board partition.
func (s *Store) UpdateTask(id string, patch TaskPatch) (domain.Task, bool) {
	i := s.taskIndex(id)
	if i < 0 {
		return domain.Task{}, false
	}
	t := s.Tasks[i]
	if patch.Title != nil {
		t.Title = *patch.Title
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.Status != nil && domain.ValidStatus(*patch.Status) {
		t.Status = *patch.Status
	}
	if patch.Priority != nil {
		t.Priority = *patch.Priority
	}
	if patch.Type != nil {
		t.Type = *patch.Type
	}
	if patch.AssigneeID != nil {
		if *patch.AssigneeID == "" {
			t.AssigneeID = nil
		} else {
			t.AssigneeID = patch.AssigneeID
		}
	}
	if patch.DueDate != nil {
		if *patch.DueDate == "" {
			t.DueDate = nil
		} else {
			t.DueDate = patch.DueDate
		}
	}
	if patch.Labels != nil {
		t.Labels = *patch.Labels
	}
	t.UpdatedAt = s.stamp()
	s.Tasks[i] = t
	return t, true
}

// MoveTask is the board drop contract: a (task id, target status) pair. An
// empty id (a drop with no carried token) is a no-op, and any status is
// reachable from any status.
func (s *Store) MoveTask(id, status string) (domain.Task, bool) {
	if id == "" {
		return domain.Task{}, false
	}
	return s.UpdateTask(id, TaskPatch{Status: &status})
}

// AddComment appends a comment authored by the acting user to the task's
// comment sequence and refreshes updatedAt. Blank text after trimming is a
// no-op.
func (s *Store) AddComment(taskID, text string) (domain.Comment, bool) {
	if strings.TrimSpace(text) == "" {
		return domain.Comment{}, false
	}
	i := s.taskIndex(taskID)
	if i < 0 {
		return domain.Comment{}, false
	}
	c := domain.Comment{
		ID:        uuid.NewString(),
		UserID:    s.ActorID,
		Text:      text,
		CreatedAt: s.stamp(),
	}
	t := s.Tasks[i]
	t.Comments = append(t.Comments, c)
	t.UpdatedAt = s.stamp()
	s.Tasks[i] = t
	return c, true
}

// UserDraft carries the caller-supplied fields for AddMember.
type UserDraft struct {
	Name   string
	Email  string
	Avatar string
	Role   string
}

// AddMember appends a new user with placeholder defaults for missing fields.
func (s *Store) AddMember(draft UserDraft) domain.User {
	u := domain.User{
		ID:     uuid.NewString(),
		Name:   draft.Name,
		Email:  draft.Email,
		Avatar: draft.Avatar,
		Role:   draft.Role,
	}
	if u.Name == "" {
		u.Name = "New Member"
	}
	if u.Role == "" {
		u.Role = "Member"
	}
	s.Users = append(s.Users, u)
	return u
}

// AddLabel adds a label to a task if not already present. Adding a duplicate
// or targeting a missing task is a no-op.
func (s *Store) AddLabel(taskID, label string) (domain.Task, bool) {
	label = strings.TrimSpace(label)
	if label == "" {
		return domain.Task{}, false
	}
	i := s.taskIndex(taskID)
	if i < 0 {
		return domain.Task{}, false
	}
	for _, l := range s.Tasks[i].Labels {
		if l == label {
			return s.Tasks[i], false
		}
	}
	labels := append(append([]string{}, s.Tasks[i].Labels...), label)
	return s.UpdateTask(taskID, TaskPatch{Labels: &labels})
}

// RemoveLabel removes a label from a task. Removing an absent label is a
// no-op.
func (s *Store) RemoveLabel(taskID, label string) (domain.Task, bool) {
	i := s.taskIndex(taskID)
	if i < 0 {
		return domain.Task{}, false
	}
	labels := make([]string, 0, len(s.Tasks[i].Labels))
	found := false
	for _, l := range s.Tasks[i].Labels {
		if l == label {
			found = true
			continue
		}
		labels = append(labels, l)
	}
	if !found {
		return s.Tasks[i], false
	}
	return s.UpdateTask(taskID, TaskPatch{Labels: &labels})
}
