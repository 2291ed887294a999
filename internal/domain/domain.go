package domain

// Status values follow the fixed board column order.
const (
	StatusTodo       = "To Do"
	StatusInProgress = "In Progress"
	StatusReview     = "Review"
	StatusDone       = "Done"
)

// StatusOrder is the canonical column ordering for board projections.
var StatusOrder = []string{StatusTodo, StatusInProgress, StatusReview, StatusDone}

const (
	PriorityLow      = "Low"
	PriorityMedium   = "Medium"
	PriorityHigh     = "High"
	PriorityCritical = "Critical"
)

const (
	TypeTask = "Task"
	TypeBug  = "Bug"
)

const (
	SprintActive = "active"
	SprintFuture = "future"
	SprintClosed = "closed"
)

// TimestampFormat is the display format used for createdAt/updatedAt/dueDate.
const TimestampFormat = "Jan 2, 2006"

type User struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar"`
	Role   string `json:"role,omitempty"`
}

type Sprint struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Goal      string `json:"goal"`
	Status    string `json:"status" enum:"active,future,closed"`
}

type Task struct {
	ID          string    `json:"id"`
	Key         string    `json:"key"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status" enum:"To Do,In Progress,Review,Done"`
	Priority    string    `json:"priority" enum:"Low,Medium,High,Critical"`
	Type        string    `json:"type" enum:"Task,Bug"`
	AssigneeID  *string   `json:"assigneeId,omitempty"`
	ReporterID  string    `json:"reporterId"`
	SprintID    string    `json:"sprintId"`
	DueDate     *string   `json:"dueDate,omitempty"`
	CreatedAt   string    `json:"createdAt"`
	UpdatedAt   string    `json:"updatedAt"`
	Labels      []string  `json:"labels"`
	Comments    []Comment `json:"comments,omitempty"`
	Subtasks    []Subtask `json:"subtasks,omitempty"`
}

type Subtask struct {
	ID        string `json:"id"`
	TaskID    string `json:"taskId"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

type Comment struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	Text      string `json:"text"`
	CreatedAt string `json:"createdAt"`
}

// ValidStatus reports whether s is one of the board statuses.
func ValidStatus(s string) bool {
	for _, v := range StatusOrder {
		if v == s {
			return true
		}
	}
	return false
}
