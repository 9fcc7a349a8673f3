package domain

import "time"

// LeaveSource distinguishes employee leave requests from calendar-level
// closures. Both are read-only here; they are owned by the leave subsystem.
type LeaveSource string

const (
	LeaveRequest LeaveSource = "request"
	LeaveClosure LeaveSource = "closure"
)

// Leave is an absence normalized for overlap detection. For requests,
// Validated mirrors the approval state and Days is the system-provided day
// count. Closures are always treated as validated and scope fields left
// empty mean "applies to all".
type Leave struct {
	ID     string      `json:"id"`
	Source LeaveSource `json:"source"`

	StartAt   time.Time `json:"start_at"`
	EndAt     time.Time `json:"end_at"`
	Validated bool      `json:"validated"`
	Days      float64   `json:"days,omitempty"`

	EmployeeID string `json:"employee_id,omitempty"`
	CompanyID  string `json:"company_id,omitempty"`
	ResourceID string `json:"resource_id,omitempty"`
	CalendarID string `json:"calendar_id,omitempty"`
}

// DayCount returns the fractional day span of the leave. Requests carry the
// count supplied by the leave subsystem; for closures it is derived from the
// wall-clock span.
func (l Leave) DayCount() float64 {
	if l.Source == LeaveRequest {
		return l.Days
	}
	d := l.EndAt.Sub(l.StartAt)
	return float64(d/(24*time.Hour)) + (d % (24 * time.Hour)).Hours()/24
}

// Overlaps reports whether the leave intersects the window.
func (l Leave) Overlaps(from, to time.Time) bool {
	return !l.StartAt.After(to) && !l.EndAt.Before(from)
}

// AppliesTo reports whether a closure is relevant to the employee. An unset
// scope field matches everything.
func (l Leave) AppliesTo(e *Employee) bool {
	if e == nil {
		return false
	}
	return (l.CompanyID == "" || l.CompanyID == e.CompanyID) &&
		(l.ResourceID == "" || l.ResourceID == e.ResourceID) &&
		(l.CalendarID == "" || l.CalendarID == e.CalendarID)
}

// WorkingPeriod is a merged, display-ready leave period used only for
// warning-message construction; it is never persisted.
type WorkingPeriod struct {
	From      time.Time
	To        time.Time
	Validated bool
	ShowHours bool
}
