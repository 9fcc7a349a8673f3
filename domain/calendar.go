package domain

// Calendar is a working-time definition attached to a resource or company.
// The interval algebra itself lives behind the calendar service contract;
// only the attributes the planner reads are modeled here.
type Calendar struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Timezone    string  `json:"timezone"`
	HoursPerDay float64 `json:"hours_per_day"`
}

// Employee is the schedulable person a task is assigned to.
type Employee struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	UserID     string `json:"user_id,omitempty"`
	ResourceID string `json:"resource_id"`
	CompanyID  string `json:"company_id"`
	CalendarID string `json:"calendar_id,omitempty"`
	Timezone   string `json:"timezone,omitempty"`
}

// Company groups employees and carries the planning configuration that is
// stored per tenant.
type Company struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	CalendarID string `json:"calendar_id,omitempty"`

	// GenerationMonths is how far ahead the horizon sweep generates
	// recurring tasks for this company. Zero falls back to the
	// process-wide default.
	GenerationMonths int `json:"generation_months"`
}
