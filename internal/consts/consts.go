package consts

// ChangesChannel is the redis pub/sub channel carrying change notices for
// the board collections. Every committed write publishes the logical path
// of the collection it touched.
const ChangesChannel = "board-changes"

// BoardCacheKey holds the latest encoded board snapshot.
const BoardCacheKey = "board:tasks"

// Default table names, overridable via environment in main.
const (
	ContactsTable    = "contacts"
	TasksTable       = "tasks"
	SubtasksTable    = "subtasks"
	AssignsTable     = "assigns"
	CredentialsTable = "credentials"
)
