package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"sprintdeck/internal/domain"
	"sprintdeck/internal/events"
	"sprintdeck/internal/repo"
)

// Config for the HTTP API handler.
type Config struct {
	DB        *sql.DB
	BasePath  string
	KeyPrefix string
	Now       func() time.Time
}

type service struct {
	repo      repo.Repo
	events    events.Writer
	db        *sql.DB
	keyPrefix string
	now       func() time.Time
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"not_found"`
	Message string         `json:"message" example:"task not found"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the tracker API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/api"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	keyPrefix := cfg.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = "PROJ"
	}
	svc := service{
		repo:      repo.Repo{DB: cfg.DB},
		events:    events.Writer{DB: cfg.DB, Now: now},
		db:        cfg.DB,
		keyPrefix: keyPrefix,
		now:       now,
	}

	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	hcfg := huma.DefaultConfig("SprintDeck API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerHealth(group)
	registerUsers(group, svc)
	registerSprints(group, svc)
	registerTasks(group, svc)
	registerSubtasks(group, svc)
	registerComments(group, svc)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	if errors.Is(err, repo.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	msg := err.Error()
	lowered := strings.ToLower(msg)
	if strings.Contains(lowered, "invalid") || strings.Contains(lowered, "missing") || strings.Contains(lowered, "required") {
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	}
	return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": msg})
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func (s service) stamp() string {
	return s.now().UTC().Format(domain.TimestampFormat)
}

func orNew(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}

// attachChildren loads comments and subtasks for a task.
func (s service) attachChildren(ctx context.Context, t *domain.Task) error {
	comments, err := s.repo.ListComments(ctx, t.ID)
	if err != nil {
		return err
	}
	if comments == nil {
		comments = []domain.Comment{}
	}
	t.Comments = comments
	subtasks, err := s.repo.ListSubtasks(ctx, t.ID)
	if err != nil {
		return err
	}
	t.Subtasks = subtasks
	return nil
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerUsers(api huma.API, s service) {
	huma.Register(api, huma.Operation{
		OperationID: "list-users",
		Method:      http.MethodGet,
		Path:        "/users",
		Summary:     "List users",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []UserResponse `json:"body"`
	}, error) {
		items, err := s.repo.ListUsers(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []UserResponse `json:"body"`
		}{Body: mapUsers(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-user",
		Method:        http.MethodPost,
		Path:          "/users",
		Summary:       "Create user",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Body CreateUserRequest `json:"body"`
	}) (*struct {
		Body UserResponse `json:"body"`
	}, error) {
		u := domain.User{
			ID:     orNew(input.Body.ID),
			Name:   input.Body.Name,
			Email:  input.Body.Email,
			Avatar: input.Body.Avatar,
			Role:   input.Body.Role,
		}
		if u.Name == "" {
			u.Name = "New Member"
		}
		if u.Role == "" {
			u.Role = "Member"
		}
		if err := s.insertUserWithEvent(ctx, u); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body UserResponse `json:"body"`
		}{Body: userResponse(u)}, nil
	})
}

func (s service) insertUserWithEvent(ctx context.Context, u domain.User) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := s.repo.InsertUser(ctx, tx, u); err != nil {
		return err
	}
	if err := s.events.Append(ctx, tx, "user.created", "user", u.ID, events.EventPayload{"name": u.Name}); err != nil {
		return err
	}
	return tx.Commit()
}

func registerSprints(api huma.API, s service) {
	huma.Register(api, huma.Operation{
		OperationID: "list-sprints",
		Method:      http.MethodGet,
		Path:        "/sprints",
		Summary:     "List sprints",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []SprintResponse `json:"body"`
	}, error) {
		items, err := s.repo.ListSprints(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []SprintResponse `json:"body"`
		}{Body: mapSprints(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-sprint",
		Method:        http.MethodPost,
		Path:          "/sprints",
		Summary:       "Create sprint",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Body CreateSprintRequest `json:"body"`
	}) (*struct {
		Body SprintResponse `json:"body"`
	}, error) {
		if input.Body.Name == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "name is required", nil)
		}
		sp := domain.Sprint{
			ID:        orNew(input.Body.ID),
			Name:      input.Body.Name,
			StartDate: input.Body.StartDate,
			EndDate:   input.Body.EndDate,
			Goal:      input.Body.Goal,
			Status:    input.Body.Status,
		}
		if sp.Status == "" {
			sp.Status = domain.SprintFuture
		}
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, handleError(err)
		}
		defer tx.Rollback()
		if err := s.repo.InsertSprint(ctx, tx, sp); err != nil {
			return nil, handleError(err)
		}
		if err := s.events.Append(ctx, tx, "sprint.created", "sprint", sp.ID, events.EventPayload{"name": sp.Name}); err != nil {
			return nil, handleError(err)
		}
		if err := tx.Commit(); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body SprintResponse `json:"body"`
		}{Body: sprintResponse(sp)}, nil
	})
}

func registerTasks(api huma.API, s service) {
	huma.Register(api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/tasks",
		Summary:     "List tasks",
	}, func(ctx context.Context, input *struct {
		SprintID string `query:"sprint_id"`
		Status   string `query:"status"`
	}) (*struct {
		Body []TaskResponse `json:"body"`
	}, error) {
		tasks, err := s.repo.ListTasks(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		filtered := tasks[:0]
		for _, t := range tasks {
			if input.SprintID != "" && t.SprintID != input.SprintID {
				continue
			}
			if input.Status != "" && t.Status != input.Status {
				continue
			}
			filtered = append(filtered, t)
		}
		for i := range filtered {
			if err := s.attachChildren(ctx, &filtered[i]); err != nil {
				return nil, handleError(err)
			}
		}
		return &struct {
			Body []TaskResponse `json:"body"`
		}{Body: mapTasks(filtered)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-task",
		Method:        http.MethodPost,
		Path:          "/tasks",
		Summary:       "Create task",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Body CreateTaskRequest `json:"body"`
	}) (*struct {
		Body TaskResponse `json:"body"`
	}, error) {
		t := domain.Task{
			ID:          orNew(input.Body.ID),
			Title:       input.Body.Title,
			Description: input.Body.Description,
			Status:      input.Body.Status,
			Priority:    input.Body.Priority,
			Type:        input.Body.Type,
			AssigneeID:  input.Body.AssigneeID,
			ReporterID:  input.Body.ReporterID,
			SprintID:    input.Body.SprintID,
			DueDate:     input.Body.DueDate,
			Labels:      input.Body.Labels,
			CreatedAt:   input.Body.CreatedAt,
			UpdatedAt:   input.Body.UpdatedAt,
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
		if t.Labels == nil {
			t.Labels = []string{}
		}
		if t.CreatedAt == "" {
			t.CreatedAt = s.stamp()
		}
		if t.UpdatedAt == "" {
			t.UpdatedAt = t.CreatedAt
		}
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, handleError(err)
		}
		defer tx.Rollback()
		// Keys are assigned here regardless of what the client proposed.
		n, err := s.repo.NextTaskKey(ctx, tx, s.keyPrefix)
		if err != nil {
			return nil, handleError(err)
		}
		t.Key = fmt.Sprintf("%s-%d", s.keyPrefix, n)
		if err := s.repo.InsertTask(ctx, tx, t); err != nil {
			return nil, handleError(err)
		}
		if err := s.events.Append(ctx, tx, "task.created", "task", t.ID, events.EventPayload{"key": t.Key, "title": t.Title}); err != nil {
			return nil, handleError(err)
		}
		if err := tx.Commit(); err != nil {
			return nil, handleError(err)
		}
		t.Comments = []domain.Comment{}
		return &struct {
			Body TaskResponse `json:"body"`
		}{Body: taskResponse(t)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-task",
		Method:      http.MethodGet,
		Path:        "/tasks/{id}",
		Summary:     "Get task",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body TaskResponse `json:"body"`
	}, error) {
		t, err := s.repo.GetTask(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		if err := s.attachChildren(ctx, &t); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body TaskResponse `json:"body"`
		}{Body: taskResponse(t)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-task",
		Method:      http.MethodPut,
		Path:        "/tasks/{id}",
		Summary:     "Replace task fields",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		ID   string            `path:"id"`
		Body UpdateTaskRequest `json:"body"`
	}) (*struct {
		Body TaskResponse `json:"body"`
	}, error) {
		t, err := s.repo.GetTask(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		if input.Body.Title != "" {
			t.Title = input.Body.Title
		}
		if input.Body.Description != nil {
			t.Description = *input.Body.Description
		}
		if domain.ValidStatus(input.Body.Status) {
			t.Status = input.Body.Status
		}
		if input.Body.Priority != "" {
			t.Priority = input.Body.Priority
		}
		if input.Body.Type != "" {
			t.Type = input.Body.Type
		}
		if input.Body.AssigneeID != nil {
			if *input.Body.AssigneeID == "" {
				t.AssigneeID = nil
			} else {
				t.AssigneeID = input.Body.AssigneeID
			}
		}
		if input.Body.ReporterID != "" {
			t.ReporterID = input.Body.ReporterID
		}
		if input.Body.SprintID != "" {
			t.SprintID = input.Body.SprintID
		}
		if input.Body.DueDate != nil {
			if *input.Body.DueDate == "" {
				t.DueDate = nil
			} else {
				t.DueDate = input.Body.DueDate
			}
		}
		if input.Body.Labels != nil {
			t.Labels = input.Body.Labels
		}
		t.UpdatedAt = input.Body.UpdatedAt
		if t.UpdatedAt == "" {
			t.UpdatedAt = s.stamp()
		}
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, handleError(err)
		}
		defer tx.Rollback()
		if err := s.repo.UpdateTask(ctx, tx, t); err != nil {
			return nil, handleError(err)
		}
		if err := s.events.Append(ctx, tx, "task.updated", "task", t.ID, events.EventPayload{"key": t.Key}); err != nil {
			return nil, handleError(err)
		}
		if err := tx.Commit(); err != nil {
			return nil, handleError(err)
		}
		if err := s.attachChildren(ctx, &t); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body TaskResponse `json:"body"`
		}{Body: taskResponse(t)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-task",
		Method:      http.MethodDelete,
		Path:        "/tasks/{id}",
		Summary:     "Delete task",
		Errors:      []int{http.StatusNotFound, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct{}, error) {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, handleError(err)
		}
		defer tx.Rollback()
		if err := s.repo.DeleteTask(ctx, tx, input.ID); err != nil {
			return nil, handleError(err)
		}
		if err := s.events.Append(ctx, tx, "task.deleted", "task", input.ID, nil); err != nil {
			return nil, handleError(err)
		}
		if err := tx.Commit(); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerSubtasks(api huma.API, s service) {
	huma.Register(api, huma.Operation{
		OperationID: "list-subtasks",
		Method:      http.MethodGet,
		Path:        "/tasks/{id}/subtasks",
		Summary:     "List subtasks of a task",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body []SubtaskResponse `json:"body"`
	}, error) {
		if _, err := s.repo.GetTask(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		items, err := s.repo.ListSubtasks(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []SubtaskResponse `json:"body"`
		}{Body: mapSubtasks(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-subtask",
		Method:        http.MethodPost,
		Path:          "/tasks/{id}/subtasks",
		Summary:       "Create subtask",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		ID   string               `path:"id"`
		Body CreateSubtaskRequest `json:"body"`
	}) (*struct {
		Body SubtaskResponse `json:"body"`
	}, error) {
		if input.Body.Title == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "title is required", nil)
		}
		if _, err := s.repo.GetTask(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		st := domain.Subtask{
			ID:        orNew(input.Body.ID),
			TaskID:    input.ID,
			Title:     input.Body.Title,
			Completed: input.Body.Completed,
			CreatedAt: s.stamp(),
			UpdatedAt: s.stamp(),
		}
		if err := s.repo.InsertSubtask(ctx, st); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body SubtaskResponse `json:"body"`
		}{Body: subtaskResponse(st)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-subtask",
		Method:      http.MethodPut,
		Path:        "/subtasks/{id}",
		Summary:     "Update subtask",
		Errors:      []int{http.StatusNotFound, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		ID   string               `path:"id"`
		Body UpdateSubtaskRequest `json:"body"`
	}) (*struct {
		Body SubtaskResponse `json:"body"`
	}, error) {
		st, err := s.repo.GetSubtask(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		if input.Body.Title != nil && *input.Body.Title != "" {
			st.Title = *input.Body.Title
		}
		if input.Body.Completed != nil {
			st.Completed = *input.Body.Completed
		}
		st.UpdatedAt = s.stamp()
		if err := s.repo.UpdateSubtask(ctx, st); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body SubtaskResponse `json:"body"`
		}{Body: subtaskResponse(st)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-subtask",
		Method:      http.MethodDelete,
		Path:        "/subtasks/{id}",
		Summary:     "Delete subtask",
		Errors:      []int{http.StatusNotFound, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct{}, error) {
		if err := s.repo.DeleteSubtask(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerComments(api huma.API, s service) {
	huma.Register(api, huma.Operation{
		OperationID: "list-comments",
		Method:      http.MethodGet,
		Path:        "/tasks/{id}/comments",
		Summary:     "List comments on a task",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body []CommentResponse `json:"body"`
	}, error) {
		if _, err := s.repo.GetTask(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		items, err := s.repo.ListComments(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []CommentResponse `json:"body"`
		}{Body: mapComments(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-comment",
		Method:        http.MethodPost,
		Path:          "/tasks/{id}/comments",
		Summary:       "Create comment",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		ID   string               `path:"id"`
		Body CreateCommentRequest `json:"body"`
	}) (*struct {
		Body CommentResponse `json:"body"`
	}, error) {
		if strings.TrimSpace(input.Body.Text) == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "text is required", nil)
		}
		if _, err := s.repo.GetTask(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		c := domain.Comment{
			ID:        orNew(input.Body.ID),
			UserID:    input.Body.UserID,
			Text:      input.Body.Text,
			CreatedAt: input.Body.CreatedAt,
		}
		if c.CreatedAt == "" {
			c.CreatedAt = s.stamp()
		}
		if err := s.repo.InsertComment(ctx, input.ID, c); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body CommentResponse `json:"body"`
		}{Body: commentResponse(c)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-comment",
		Method:      http.MethodPut,
		Path:        "/comments/{id}",
		Summary:     "Update comment",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		ID   string               `path:"id"`
		Body UpdateCommentRequest `json:"body"`
	}) (*struct {
		Body CommentResponse `json:"body"`
	}, error) {
		if strings.TrimSpace(input.Body.Text) == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "text is required", nil)
		}
		c, err := s.repo.GetComment(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		c.Text = input.Body.Text
		if err := s.repo.UpdateComment(ctx, c); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body CommentResponse `json:"body"`
		}{Body: commentResponse(c)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-comment",
		Method:      http.MethodDelete,
		Path:        "/comments/{id}",
		Summary:     "Delete comment",
		Errors:      []int{http.StatusNotFound, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct{}, error) {
		if err := s.repo.DeleteComment(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}
