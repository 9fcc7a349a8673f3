package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planhr/backend/domain"
)

func validTask() *domain.Task {
	return &domain.Task{
		ID:         "task-1",
		Subject:    domain.SubjectRef{Kind: domain.KindGeneric, Name: "onboarding"},
		EmployeeID: "emp-1",
		StartAt:    time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC),
		EndAt:      time.Date(2026, 6, 1, 17, 0, 0, 0, time.UTC),
		State:      domain.StatePlanned,
	}
}

func TestTaskValidate(t *testing.T) {
	assert.NoError(t, validTask().Validate())
}

func TestTaskValidate_EndBeforeStart(t *testing.T) {
	task := validTask()
	task.EndAt = task.StartAt.Add(-time.Hour)

	err := task.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEndBeforeStart)
}

func TestTaskValidate_ZeroLengthWindowAllowed(t *testing.T) {
	task := validTask()
	task.EndAt = task.StartAt
	assert.NoError(t, task.Validate())
}

func TestTaskValidate_UnknownKind(t *testing.T) {
	task := validTask()
	task.Subject.Kind = "sprint"

	err := task.Validate()
	require.Error(t, err)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeValidation))
}

func TestTaskValidate_UnknownState(t *testing.T) {
	task := validTask()
	task.State = "paused"

	err := task.Validate()
	require.Error(t, err)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeValidation))
}

func TestTaskValidate_PercentageRange(t *testing.T) {
	task := validTask()
	task.AllocatedPercentage = 100
	assert.NoError(t, task.Validate())

	task.AllocatedPercentage = 100.5
	err := task.Validate()
	require.Error(t, err)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeValidation))

	task.AllocatedPercentage = -1
	err = task.Validate()
	require.Error(t, err)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeValidation))
}

func TestTaskValidate_MissingDates(t *testing.T) {
	task := validTask()
	task.StartAt = time.Time{}

	err := task.Validate()
	require.Error(t, err)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeValidation))
}

func TestTaskDuration(t *testing.T) {
	task := validTask()
	assert.Equal(t, 8.0, task.Duration())

	task.EndAt = task.StartAt
	assert.Equal(t, 0.0, task.Duration())
}

func TestTaskCopyForRecurrence(t *testing.T) {
	template := validTask()
	template.State = domain.StateFinished
	template.LeaveWarning = "Jane is on time off. \n"
	template.AllocatedHours = 8

	start := time.Date(2026, 6, 8, 9, 0, 0, 0, time.UTC)
	end := start.Add(8 * time.Hour)
	clone := template.CopyForRecurrence(start, end, "rec-1", "co-1")

	assert.Empty(t, clone.ID)
	assert.Equal(t, start, clone.StartAt)
	assert.Equal(t, end, clone.EndAt)
	assert.Equal(t, domain.StatePlanned, clone.State)
	assert.Equal(t, "rec-1", clone.RecurrenceID)
	assert.Equal(t, "co-1", clone.CompanyID)
	assert.Empty(t, clone.LeaveWarning)
	assert.Equal(t, template.Subject, clone.Subject)
	assert.Equal(t, template.EmployeeID, clone.EmployeeID)
}

func TestTaskIsRecurrent(t *testing.T) {
	task := validTask()
	assert.False(t, task.IsRecurrent())

	task.RecurrenceID = "rec-1"
	assert.True(t, task.IsRecurrent())
}
