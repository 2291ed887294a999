package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"sprintdeck/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

// --- users ---

func (r Repo) InsertUser(ctx context.Context, tx *sql.Tx, u domain.User) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO users(id,name,email,avatar,role) VALUES (?,?,?,?,?)`,
		u.ID, u.Name, u.Email, u.Avatar, nullable(u.Role))
	return err
}

func (r Repo) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,name,email,avatar,COALESCE(role,'') FROM users`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Avatar, &u.Role); err != nil {
			return nil, err
		}
		res = append(res, u)
	}
	return res, rows.Err()
}

// --- sprints ---

func (r Repo) InsertSprint(ctx context.Context, tx *sql.Tx, s domain.Sprint) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO sprints(id,name,start_date,end_date,goal,status) VALUES (?,?,?,?,?,?)`,
		s.ID, s.Name, s.StartDate, s.EndDate, s.Goal, s.Status)
	return err
}

func (r Repo) ListSprints(ctx context.Context) ([]domain.Sprint, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,name,start_date,end_date,goal,status FROM sprints`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Sprint
	for rows.Next() {
		var s domain.Sprint
		if err := rows.Scan(&s.ID, &s.Name, &s.StartDate, &s.EndDate, &s.Goal, &s.Status); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// --- task keys ---

// NextTaskKey advances the authoritative key counter for a prefix and returns
// the new suffix. The counter starts at 100, so the first key is <prefix>-101.
func (r Repo) NextTaskKey(ctx context.Context, tx *sql.Tx, prefix string) (int, error) {
	if _, err := tx.ExecContext(ctx, `INSERT INTO task_keys(prefix,last_num) VALUES (?,100) ON CONFLICT(prefix) DO NOTHING`, prefix); err != nil {
		return 0, err
	}
	var n int
	if err := tx.QueryRowContext(ctx, `UPDATE task_keys SET last_num=last_num+1 WHERE prefix=? RETURNING last_num`, prefix).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// --- tasks ---

const taskColumns = `id,key,title,description,status,priority,type,assignee_id,reporter_id,sprint_id,due_date,labels_json,created_at,updated_at`

func scanTask(scan func(dest ...any) error) (domain.Task, error) {
	var t domain.Task
	var assignee, due sql.NullString
	var labelsJSON string
	err := scan(&t.ID, &t.Key, &t.Title, &t.Description, &t.Status, &t.Priority, &t.Type,
		&assignee, &t.ReporterID, &t.SprintID, &due, &labelsJSON, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	if err != nil {
		return t, err
	}
	if assignee.Valid {
		t.AssigneeID = &assignee.String
	}
	if due.Valid {
		t.DueDate = &due.String
	}
	if err := json.Unmarshal([]byte(labelsJSON), &t.Labels); err != nil {
		return t, fmt.Errorf("labels for task %s: %w", t.ID, err)
	}
	if t.Labels == nil {
		t.Labels = []string{}
	}
	return t, nil
}

func (r Repo) InsertTask(ctx context.Context, tx *sql.Tx, t domain.Task) error {
	labels, err := json.Marshal(t.Labels)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO tasks(`+taskColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		t.ID, t.Key, t.Title, t.Description, t.Status, t.Priority, t.Type,
		nullablePtr(t.AssigneeID), t.ReporterID, t.SprintID, nullablePtr(t.DueDate),
		string(labels), t.CreatedAt, t.UpdatedAt)
	return err
}

func (r Repo) GetTask(ctx context.Context, id string) (domain.Task, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=?`, id)
	return scanTask(row.Scan)
}

// ListTasks returns all tasks in key order. Shorter keys sort first so the
// numeric suffix orders correctly once it grows a digit.
func (r Repo) ListTasks(ctx context.Context) ([]domain.Task, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY length(key), key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Task
	for rows.Next() {
		t, err := scanTask(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

// UpdateTask replaces every mutable field; id and key are never reassigned.
func (r Repo) UpdateTask(ctx context.Context, tx *sql.Tx, t domain.Task) error {
	labels, err := json.Marshal(t.Labels)
	if err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `UPDATE tasks SET title=?,description=?,status=?,priority=?,type=?,assignee_id=?,reporter_id=?,sprint_id=?,due_date=?,labels_json=?,updated_at=? WHERE id=?`,
		t.Title, t.Description, t.Status, t.Priority, t.Type,
		nullablePtr(t.AssigneeID), t.ReporterID, t.SprintID, nullablePtr(t.DueDate),
		string(labels), t.UpdatedAt, t.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteTask removes a task; owned subtasks and comments cascade.
func (r Repo) DeleteTask(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- subtasks ---

func scanSubtask(scan func(dest ...any) error) (domain.Subtask, error) {
	var st domain.Subtask
	var completed int
	var created, updated sql.NullString
	err := scan(&st.ID, &st.TaskID, &st.Title, &completed, &created, &updated)
	if err == sql.ErrNoRows {
		return st, ErrNotFound
	}
	if err != nil {
		return st, err
	}
	st.Completed = completed != 0
	st.CreatedAt = created.String
	st.UpdatedAt = updated.String
	return st, nil
}

func (r Repo) InsertSubtask(ctx context.Context, st domain.Subtask) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO subtasks(id,task_id,title,completed,created_at,updated_at) VALUES (?,?,?,?,?,?)`,
		st.ID, st.TaskID, st.Title, boolInt(st.Completed), nullable(st.CreatedAt), nullable(st.UpdatedAt))
	return err
}

func (r Repo) GetSubtask(ctx context.Context, id string) (domain.Subtask, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT id,task_id,title,completed,created_at,updated_at FROM subtasks WHERE id=?`, id)
	return scanSubtask(row.Scan)
}

func (r Repo) ListSubtasks(ctx context.Context, taskID string) ([]domain.Subtask, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,task_id,title,completed,created_at,updated_at FROM subtasks WHERE task_id=? ORDER BY rowid`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Subtask
	for rows.Next() {
		st, err := scanSubtask(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, st)
	}
	return res, rows.Err()
}

func (r Repo) UpdateSubtask(ctx context.Context, st domain.Subtask) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE subtasks SET title=?,completed=?,updated_at=? WHERE id=?`,
		st.Title, boolInt(st.Completed), nullable(st.UpdatedAt), st.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteSubtask(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM subtasks WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- comments ---

func scanComment(scan func(dest ...any) error) (domain.Comment, error) {
	var c domain.Comment
	var taskID string
	err := scan(&c.ID, &taskID, &c.UserID, &c.Text, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	return c, err
}

func (r Repo) InsertComment(ctx context.Context, taskID string, c domain.Comment) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO comments(id,task_id,user_id,text,created_at) VALUES (?,?,?,?,?)`,
		c.ID, taskID, c.UserID, c.Text, c.CreatedAt)
	return err
}

func (r Repo) GetComment(ctx context.Context, id string) (domain.Comment, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT id,task_id,user_id,text,created_at FROM comments WHERE id=?`, id)
	return scanComment(row.Scan)
}

func (r Repo) ListComments(ctx context.Context, taskID string) ([]domain.Comment, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,task_id,user_id,text,created_at FROM comments WHERE task_id=? ORDER BY rowid`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Comment
	for rows.Next() {
		c, err := scanComment(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (r Repo) UpdateComment(ctx context.Context, c domain.Comment) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE comments SET text=? WHERE id=?`, c.Text, c.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteComment(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM comments WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- events ---

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	Payload    string `json:"payload"`
}

// LatestEvents returns the newest audit entries, newest first.
func (r Repo) LatestEvents(ctx context.Context, n int, evtType, entityKind string) ([]Event, error) {
	if n <= 0 {
		n = 20
	}
	q := `SELECT id,ts,type,entity_kind,COALESCE(entity_id,''),payload_json FROM events`
	var conds []string
	var args []any
	if evtType != "" {
		conds = append(conds, "type=?")
		args = append(args, evtType)
	}
	if entityKind != "" {
		conds = append(conds, "entity_kind=?")
		args = append(args, entityKind)
	}
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY id DESC LIMIT ?"
	args = append(args, n)
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.EntityKind, &e.EntityID, &e.Payload); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// --- helpers ---

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullablePtr(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
