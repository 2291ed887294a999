package transcode_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"sprintdeck/internal/transcode"
)

func TestSnakeToCamel(t *testing.T) {
	cases := map[string]string{
		"sprint_id":   "sprintId",
		"assignee_id": "assigneeId",
		"start_date":  "startDate",
		"created_at":  "createdAt",
		"id":          "id",
		"labels":      "labels",
		"due_date":    "dueDate",
	}
	for in, want := range cases {
		assert.Equal(t, want, transcode.SnakeToCamel(in))
	}
}

func TestCamelToSnakeInverse(t *testing.T) {
	keys := []string{
		"id", "key", "title", "status", "priority", "type",
		"assigneeId", "reporterId", "sprintId", "dueDate",
		"createdAt", "updatedAt", "labels", "comments", "subtasks",
		"taskId", "userId", "completed", "startDate", "endDate", "goal",
		"name", "email", "avatar", "role",
	}
	for _, k := range keys {
		assert.Equal(t, k, transcode.SnakeToCamel(transcode.CamelToSnake(k)), "round trip for %q", k)
	}
}

func TestWireToMemoryNested(t *testing.T) {
	wire := map[string]any{
		"id":        "t1",
		"sprint_id": "s1",
		"labels":    []any{"backend", "api_v2"},
		"comments": []any{
			map[string]any{"id": "c1", "user_id": "u1", "created_at": "Just now", "text": "snake_case stays"},
		},
		"due_date":    nil,
		"assignee_id": "u2",
	}
	got := transcode.WireToMemory(wire).(map[string]any)
	assert.Equal(t, "s1", got["sprintId"])
	assert.Nil(t, got["dueDate"])
	// Leaf strings that merely resemble field names are not renamed.
	assert.Equal(t, []any{"backend", "api_v2"}, got["labels"])
	comment := got["comments"].([]any)[0].(map[string]any)
	assert.Equal(t, "u1", comment["userId"])
	assert.Equal(t, "snake_case stays", comment["text"])
}

func TestRoundTripValueTree(t *testing.T) {
	memory := map[string]any{
		"id":         "t1",
		"sprintId":   "s1",
		"assigneeId": nil,
		"labels":     []any{"a", "b"},
		"comments": []any{
			map[string]any{"id": "c1", "userId": "u1", "createdAt": "Jan 2, 2006"},
		},
		"subtasks": []any{},
	}
	back := transcode.WireToMemory(transcode.MemoryToWire(memory))
	assert.Equal(t, memory, back)

	wire := transcode.MemoryToWire(memory)
	again := transcode.MemoryToWire(transcode.WireToMemory(wire))
	assert.Equal(t, wire, again)
}

func TestScalarsPassThrough(t *testing.T) {
	assert.Equal(t, "plain_string", transcode.WireToMemory("plain_string"))
	assert.Equal(t, 42.0, transcode.WireToMemory(42.0))
	assert.Equal(t, true, transcode.MemoryToWire(true))
	assert.Nil(t, transcode.WireToMemory(nil))
}
