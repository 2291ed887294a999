package repo_test

import (
	"context"
	"testing"

	"sprintdeck/internal/db"
	"sprintdeck/internal/domain"
	"sprintdeck/internal/migrate"
	"sprintdeck/internal/repo"
)

func newTestRepo(t *testing.T) repo.Repo {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return repo.Repo{DB: conn}
}

func insertTask(t *testing.T, r repo.Repo, id, key string) {
	t.Helper()
	ctx := context.Background()
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin tx: %v", err)
	}
	task := domain.Task{
		ID:        id,
		Key:       key,
		Title:     key,
		Status:    domain.StatusTodo,
		Priority:  domain.PriorityMedium,
		Type:      domain.TypeTask,
		Labels:    []string{},
		CreatedAt: "Jan 1, 2024",
		UpdatedAt: "Jan 1, 2024",
	}
	if err := r.InsertTask(ctx, tx, task); err != nil {
		t.Fatalf("insert %s: %v", key, err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func TestListTasksOrdersByKeyNumber(t *testing.T) {
	r := newTestRepo(t)
	// Inserted out of order, with a four-digit suffix that would sort before
	// the three-digit ones lexicographically.
	insertTask(t, r, "t1", "PROJ-1000")
	insertTask(t, r, "t2", "PROJ-101")
	insertTask(t, r, "t3", "PROJ-999")

	tasks, err := r.ListTasks(context.Background())
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	want := []string{"PROJ-101", "PROJ-999", "PROJ-1000"}
	if len(tasks) != len(want) {
		t.Fatalf("got %d tasks, want %d", len(tasks), len(want))
	}
	for i, key := range want {
		if tasks[i].Key != key {
			t.Errorf("tasks[%d].Key = %q, want %q", i, tasks[i].Key, key)
		}
	}
}
