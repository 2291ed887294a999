package store

import "sprintdeck/internal/domain"

// Column is one board column: a status and the sprint tasks in it.
type Column struct {
	Status string
	Tasks  []domain.Task
}

// CurrentSprint resolves the selected sprint, falling back to the first known
// sprint when the selected id matches nothing. The second return is false
// only when no sprints exist at all.
func (s *Store) CurrentSprint() (domain.Sprint, bool) {
	for _, sp := range s.Sprints {
		if sp.ID == s.CurrentSprintID {
			return sp, true
		}
	}
	if len(s.Sprints) > 0 {
		return s.Sprints[0], true
	}
	return domain.Sprint{}, false
}

// SprintTasks returns the tasks belonging to the resolved current sprint, in
// collection order.
func (s *Store) SprintTasks() []domain.Task {
	sprint, ok := s.CurrentSprint()
	if !ok {
		return nil
	}
	var out []domain.Task
	for _, t := range s.Tasks {
		if t.SprintID == sprint.ID {
			out = append(out, t)
		}
	}
	return out
}

// BoardColumns partitions the current sprint's tasks into one column per
// status, in the fixed status order regardless of input order. Every task
// whose status is one of the board statuses lands in exactly one column; a
// task hydrated with an unrecognized status appears in none, so callers
// loading foreign data should normalize statuses first.
func (s *Store) BoardColumns() []Column {
	tasks := s.SprintTasks()
	cols := make([]Column, len(domain.StatusOrder))
	for i, status := range domain.StatusOrder {
		cols[i] = Column{Status: status}
	}
	for _, t := range tasks {
		for i, status := range domain.StatusOrder {
			if t.Status == status {
				cols[i].Tasks = append(cols[i].Tasks, t)
				break
			}
		}
	}
	return cols
}

// UserByID looks a user up in the roster.
func (s *Store) UserByID(id string) (domain.User, bool) {
	for _, u := range s.Users {
		if u.ID == id {
			return u, true
		}
	}
	return domain.User{}, false
}

// AssigneeName resolves a task's assignee for display. Absent or dangling
// references degrade to "Unassigned" instead of failing.
func (s *Store) AssigneeName(t domain.Task) string {
	if t.AssigneeID == nil {
		return "Unassigned"
	}
	if u, ok := s.UserByID(*t.AssigneeID); ok {
		return u.Name
	}
	return "Unassigned"
}

// OpenTask derives the currently open task from the canonical collection, so
// it always reflects the latest committed state for that id.
func (s *Store) OpenTask() (domain.Task, bool) {
	if s.OpenTaskID == "" {
		return domain.Task{}, false
	}
	i := s.taskIndex(s.OpenTaskID)
	if i < 0 {
		return domain.Task{}, false
	}
	return s.Tasks[i], true
}

// TaskByID returns the task with the given id.
func (s *Store) TaskByID(id string) (domain.Task, bool) {
	i := s.taskIndex(id)
	if i < 0 {
		return domain.Task{}, false
	}
	return s.Tasks[i], true
}
