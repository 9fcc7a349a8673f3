package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/planhr/backend/domain"
)

func TestLeaveDayCount_RequestUsesProvidedDays(t *testing.T) {
	leave := domain.Leave{
		Source:  domain.LeaveRequest,
		StartAt: time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC),
		EndAt:   time.Date(2026, 6, 5, 17, 0, 0, 0, time.UTC),
		Days:    2.5,
	}
	assert.Equal(t, 2.5, leave.DayCount())
}

func TestLeaveDayCount_ClosureDerivesFromSpan(t *testing.T) {
	leave := domain.Leave{
		Source:  domain.LeaveClosure,
		StartAt: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		EndAt:   time.Date(2026, 6, 2, 12, 0, 0, 0, time.UTC),
	}
	assert.Equal(t, 1.5, leave.DayCount())
}

func TestLeaveOverlaps(t *testing.T) {
	leave := domain.Leave{
		StartAt: time.Date(2026, 6, 3, 0, 0, 0, 0, time.UTC),
		EndAt:   time.Date(2026, 6, 5, 0, 0, 0, 0, time.UTC),
	}

	from := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	assert.True(t, leave.Overlaps(from, from.AddDate(0, 0, 3)))
	assert.True(t, leave.Overlaps(leave.EndAt, leave.EndAt.Add(time.Hour)))
	assert.False(t, leave.Overlaps(from, from.Add(24*time.Hour)))
	assert.False(t, leave.Overlaps(leave.EndAt.Add(time.Hour), leave.EndAt.Add(2*time.Hour)))
}

func TestLeaveAppliesTo(t *testing.T) {
	employee := &domain.Employee{
		ID:         "emp-1",
		CompanyID:  "co-1",
		ResourceID: "res-1",
		CalendarID: "cal-1",
	}

	tests := []struct {
		name  string
		leave domain.Leave
		want  bool
	}{
		{"unscoped closure matches everyone", domain.Leave{Source: domain.LeaveClosure}, true},
		{"matching company", domain.Leave{CompanyID: "co-1"}, true},
		{"other company", domain.Leave{CompanyID: "co-2"}, false},
		{"matching resource", domain.Leave{ResourceID: "res-1"}, true},
		{"other resource", domain.Leave{ResourceID: "res-2"}, false},
		{"matching calendar", domain.Leave{CalendarID: "cal-1"}, true},
		{"other calendar", domain.Leave{CalendarID: "cal-2"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.leave.AppliesTo(employee))
		})
	}

	assert.False(t, domain.Leave{}.AppliesTo(nil))
}
