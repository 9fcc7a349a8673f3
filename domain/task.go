package domain

import "time"

// TaskKind selects which linked entity supplies the task's display name.
type TaskKind string

const (
	KindGeneric TaskKind = "generic"
	KindProject TaskKind = "project"
	KindTicket  TaskKind = "ticket"
)

// Valid reports whether the kind is one of the known task kinds.
func (k TaskKind) Valid() bool {
	switch k {
	case KindGeneric, KindProject, KindTicket:
		return true
	}
	return false
}

// SubjectRef identifies the entity a task is planned against.
type SubjectRef struct {
	Kind TaskKind `json:"kind"`
	ID   string   `json:"id,omitempty"`
	Name string   `json:"name,omitempty"`
}

// TaskState represents the lifecycle state of a task.
type TaskState string

const (
	StatePlanned    TaskState = "planned"
	StateInProgress TaskState = "in_progress"
	StateFinished   TaskState = "finished"
	StateCancelled  TaskState = "cancelled"
)

// Valid reports whether the state is one of the known task states.
func (s TaskState) Valid() bool {
	switch s {
	case StatePlanned, StateInProgress, StateFinished, StateCancelled:
		return true
	}
	return false
}

// Task is a single work assignment for one employee over a time window.
// StartAt and EndAt are stored in UTC.
type Task struct {
	ID         string     `json:"id"`
	Subject    SubjectRef `json:"subject"`
	EmployeeID string     `json:"employee_id"`
	ResourceID string     `json:"resource_id,omitempty"`
	CompanyID  string     `json:"company_id,omitempty"`
	CalendarID string     `json:"calendar_id,omitempty"`

	StartAt time.Time `json:"start_at"`
	EndAt   time.Time `json:"end_at"`

	AllocatedHours      float64 `json:"allocated_hours"`
	AllocatedPercentage float64 `json:"allocated_percentage"`
	WorkingDays         float64 `json:"working_days"`

	State          TaskState `json:"state"`
	ForceRecompute bool      `json:"force_recompute"`

	RecurrenceID string `json:"recurrence_id,omitempty"`
	LeaveWarning string `json:"leave_warning,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the invariants enforced on every write.
func (t *Task) Validate() error {
	if t == nil {
		return ErrInvalidPayload
	}
	if !t.Subject.Kind.Valid() {
		return NewErrorf(ErrCodeValidation, "unknown task kind %q", t.Subject.Kind)
	}
	if t.State != "" && !t.State.Valid() {
		return NewErrorf(ErrCodeValidation, "unknown task state %q", t.State)
	}
	if t.StartAt.IsZero() || t.EndAt.IsZero() {
		return NewError(ErrCodeValidation, "start and end dates are required")
	}
	if t.EndAt.Before(t.StartAt) {
		return ErrEndBeforeStart
	}
	if t.AllocatedPercentage < 0 || t.AllocatedPercentage > 100 {
		return NewErrorf(ErrCodeValidation, "allocated percentage %.2f is out of range", t.AllocatedPercentage)
	}
	return nil
}

// Duration returns the raw wall-clock length of the task window in hours.
func (t *Task) Duration() float64 {
	if t == nil || t.EndAt.Before(t.StartAt) {
		return 0
	}
	return t.EndAt.Sub(t.StartAt).Hours()
}

// IsRecurrent reports whether the task belongs to a series.
func (t *Task) IsRecurrent() bool {
	return t != nil && t.RecurrenceID != ""
}

// CopyForRecurrence returns a new planned instance of the series at the
// given window, inheriting everything else from the template.
func (t *Task) CopyForRecurrence(start, end time.Time, recurrenceID, companyID string) *Task {
	clone := *t
	clone.ID = ""
	clone.StartAt = start
	clone.EndAt = end
	clone.State = StatePlanned
	clone.RecurrenceID = recurrenceID
	clone.CompanyID = companyID
	clone.LeaveWarning = ""
	clone.CreatedAt = time.Time{}
	clone.UpdatedAt = time.Time{}
	return &clone
}
