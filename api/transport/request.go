package transport

// TaskRequest carries the writable fields of a planning task.
type TaskRequest struct {
	ID                  string  `json:"id"`
	Kind                string  `json:"kind"`
	SubjectID           string  `json:"subject_id"`
	SubjectName         string  `json:"subject_name"`
	EmployeeID          string  `json:"employee_id"`
	CompanyID           string  `json:"company_id"`
	StartAt             string  `json:"start_at"`
	EndAt               string  `json:"end_at"`
	AllocatedHours      float64 `json:"allocated_hours"`
	AllocatedPercentage float64 `json:"allocated_percentage"`
	State               string  `json:"state"`
	ForceRecompute      bool    `json:"force_recompute"`
	Timezone            string  `json:"timezone"`
}

// StateRequest sets the lifecycle state of a task manually.
type StateRequest struct {
	State string `json:"state"`
}

// RepeatRequest enables, disables or reconfigures the recurrence of a task.
type RepeatRequest struct {
	Enabled  bool   `json:"enabled"`
	Interval int    `json:"interval"`
	Unit     string `json:"unit"`
	EndType  string `json:"end_type"`
	Until    string `json:"until"`
	Count    int    `json:"count"`
}

// SubjectCreateRequest plans a task for the caller against a given subject.
type SubjectCreateRequest struct {
	Kind        string `json:"kind"`
	SubjectID   string `json:"subject_id"`
	SubjectName string `json:"subject_name"`
	StartAt     string `json:"start_at"`
	EndAt       string `json:"end_at"`
	Timezone    string `json:"timezone"`
}
