package types

// TaskStatus is the lifecycle state of an asynchronous agent run.
type TaskStatus string

const (
	// TaskPending is recorded at dispatch time, before the agent runs.
	TaskPending TaskStatus = "pending"
	// TaskCompleted is the terminal state of a successful run.
	TaskCompleted TaskStatus = "completed"
	// TaskError is the terminal state of a failed run.
	TaskError TaskStatus = "error"
)

// Terminal reports whether the status is final. pending → completed|error
// are the only transitions; both targets are terminal.
func (s TaskStatus) Terminal() bool {
	return s == TaskCompleted || s == TaskError
}

// TaskRecord is the latest known state of one agent run, keyed by task id.
// Records are overwritten in place: the pending record written at dispatch
// is replaced by exactly one terminal record when the run finishes.
type TaskRecord struct {
	TaskID    string     `json:"task_id"`
	Status    TaskStatus `json:"status"`
	Result    string     `json:"result,omitempty"`
	Error     string     `json:"error,omitempty"`
	Timestamp int64      `json:"timestamp"`
}
