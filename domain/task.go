package domain

import "math"

// Status names a board column. The columns form an unordered set: any
// status may move to any other, there is no transition graph.
type Status string

const (
	StatusToDo          Status = "todo"
	StatusInProgress    Status = "inprogress"
	StatusAwaitFeedback Status = "awaitfeedback"
	StatusDone          Status = "done"
)

// Statuses returns the board columns in display order.
func Statuses() []Status {
	return []Status{StatusToDo, StatusInProgress, StatusAwaitFeedback, StatusDone}
}

// ParseStatus maps a stored status value onto a known column. Unknown or
// missing values fall back to the ToDo column.
func ParseStatus(s string) Status {
	switch Status(s) {
	case StatusInProgress, StatusAwaitFeedback, StatusDone:
		return Status(s)
	default:
		return StatusToDo
	}
}

// Task is a normalized board item. Subtasks and assignments live in their
// own subcollections and are joined in at read time.
type Task struct {
	ID          string `json:"id"`
	Type        string `json:"type,omitempty"`
	Status      Status `json:"status"`
	Date        string `json:"date,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Priority    string `json:"priority,omitempty"`
}

// Subtask is owned by exactly one task and has no independent existence.
type Subtask struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Done  bool   `json:"done,omitempty"`
}

// Assignment links a task to a contact. The contact reference is a weak
// one: deleting the contact deletes the assignment, never the task.
type Assignment struct {
	ID        string `json:"id"`
	TaskID    string `json:"taskId,omitempty"`
	ContactID string `json:"contactId"`
}

// StatusChange moves a task to another board column without touching any
// other field.
type StatusChange struct {
	Status Status `json:"status"`
}

// TaskFields carries the scalar fields updated by an edit, without
// touching the subcollections.
type TaskFields struct {
	Type        string `json:"type,omitempty"`
	Date        string `json:"date,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Priority    string `json:"priority,omitempty"`
}

// BoardTask is the denormalized view model the board renders: a task plus
// its resolved assignees and subtask progress. It is recomputed on every
// relevant change and never persisted.
type BoardTask struct {
	Task
	Assigns       []ContactRef `json:"assigns"`
	Subtasks      []Subtask    `json:"subtasks"`
	SubtasksTotal int          `json:"subtasksTotal"`
	SubtasksDone  int          `json:"subtasksDone"`
	Progress      int          `json:"progress"`
}

// NewBoardTask builds the view for a task whose children are not known
// yet: no assignees, zero progress.
func NewBoardTask(t Task) BoardTask {
	return BoardTask{Task: t, Assigns: []ContactRef{}, Subtasks: []Subtask{}}
}

// Progress computes the completion percentage of a subtask set. A task
// without subtasks has progress 0, never a division by zero.
func ProgressOf(subtasks []Subtask) (done, total, progress int) {
	total = len(subtasks)
	for _, s := range subtasks {
		if s.Done {
			done++
		}
	}
	if total == 0 {
		return 0, 0, 0
	}
	return done, total, int(math.Round(100 * float64(done) / float64(total)))
}
