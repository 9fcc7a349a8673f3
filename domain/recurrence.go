package domain

import "time"

// RepeatUnit is the calendar unit a recurrence steps by.
type RepeatUnit string

const (
	UnitDay   RepeatUnit = "day"
	UnitWeek  RepeatUnit = "week"
	UnitMonth RepeatUnit = "month"
	UnitYear  RepeatUnit = "year"
)

// Valid reports whether the unit is one of the known repeat units.
func (u RepeatUnit) Valid() bool {
	switch u {
	case UnitDay, UnitWeek, UnitMonth, UnitYear:
		return true
	}
	return false
}

// EndPolicyType discriminates how a recurrence rule terminates.
type EndPolicyType string

const (
	EndForever EndPolicyType = "forever"
	EndUntil   EndPolicyType = "until"
	EndCount   EndPolicyType = "count"
)

// EndPolicy is a tagged union: exactly one of Until/Count is meaningful,
// selected by Type.
type EndPolicy struct {
	Type  EndPolicyType `json:"type"`
	Until time.Time     `json:"until,omitempty"`
	Count int           `json:"count,omitempty"`
}

// Recurrence is a repetition rule shared by a series of tasks.
type Recurrence struct {
	ID        string     `json:"id"`
	Interval  int        `json:"interval"`
	Unit      RepeatUnit `json:"unit"`
	End       EndPolicy  `json:"end"`
	CompanyID string     `json:"company_id"`

	// LastGeneratedStart is the generation high-water mark; it never
	// moves backwards.
	LastGeneratedStart *time.Time `json:"last_generated_start,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the rule parameters a user can get wrong.
func (r *Recurrence) Validate() error {
	if r == nil {
		return ErrInvalidPayload
	}
	if r.Interval < 1 {
		return NewError(ErrCodeValidation, "repeat interval must be at least 1")
	}
	if !r.Unit.Valid() {
		return NewErrorf(ErrCodeValidation, "unknown repeat unit %q", r.Unit)
	}
	switch r.End.Type {
	case EndForever:
	case EndUntil:
		if r.End.Until.IsZero() {
			return NewError(ErrCodeValidation, "an until date is required")
		}
	case EndCount:
		if r.End.Count < 0 {
			return ErrNegativeRepeats
		}
	default:
		return NewErrorf(ErrCodeValidation, "unknown end policy %q", r.End.Type)
	}
	if r.CompanyID == "" {
		return NewError(ErrCodeValidation, "a recurrence requires a company")
	}
	return nil
}

// OwnsTask reports whether the task may belong to this recurrence, which
// requires both to share a company.
func (r *Recurrence) OwnsTask(t *Task) error {
	if t.CompanyID != "" && t.CompanyID != r.CompanyID {
		return ErrRecurrenceCompany
	}
	return nil
}
