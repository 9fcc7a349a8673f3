package leavewarning_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planhr/backend/domain"
	"github.com/planhr/backend/repository/memory"
	"github.com/planhr/backend/usecase/leavewarning"
)

type fixture struct {
	dir      *memory.Directory
	leaves   *memory.LeaveStore
	svc      *memory.CalendarService
	detector *leavewarning.Detector
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := memory.NewDirectory()
	leaves := memory.NewLeaveStore()
	svc := memory.NewCalendarService()

	dir.PutEmployee(domain.Employee{
		ID:         "emp-1",
		Name:       "Jane Doe",
		ResourceID: "res-1",
		CompanyID:  "co-1",
		CalendarID: "cal-1",
	})

	detector := leavewarning.New(dir, leaves, svc, nil).
		WithClock(func() time.Time { return time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC) })

	return &fixture{dir: dir, leaves: leaves, svc: svc, detector: detector}
}

func june(d, hour int) time.Time {
	return time.Date(2026, 6, d, hour, 0, 0, 0, time.UTC)
}

func taskFor(start, end time.Time) *domain.Task {
	return &domain.Task{
		ID:         "t1",
		Subject:    domain.SubjectRef{Kind: domain.KindGeneric},
		EmployeeID: "emp-1",
		StartAt:    start,
		EndAt:      end,
	}
}

func TestComputeWarnings_NoLeaves(t *testing.T) {
	f := newFixture(t)
	task := taskFor(june(5, 8), june(5, 17))
	task.LeaveWarning = "stale"

	require.NoError(t, f.detector.ComputeWarnings(context.Background(), []*domain.Task{task}, ""))
	assert.Empty(t, task.LeaveWarning)
}

func TestComputeWarnings_SingleDayLeaveShowsHours(t *testing.T) {
	f := newFixture(t)
	f.leaves.Add(domain.Leave{
		ID:         "l1",
		Source:     domain.LeaveRequest,
		Validated:  true,
		StartAt:    june(5, 9),
		EndAt:      june(5, 17),
		Days:       1,
		EmployeeID: "emp-1",
	})

	task := taskFor(june(5, 8), june(5, 18))
	require.NoError(t, f.detector.ComputeWarnings(context.Background(), []*domain.Task{task}, ""))

	assert.Equal(t,
		"Jane Doe is on time off from the Jun 05, 2026 at 9:00 AM to the Jun 05, 2026 at 5:00 PM. \n",
		task.LeaveWarning)
}

func TestComputeWarnings_MultiDayLeaveShowsDatesOnly(t *testing.T) {
	f := newFixture(t)
	f.leaves.Add(domain.Leave{
		ID:         "l1",
		Source:     domain.LeaveRequest,
		Validated:  true,
		StartAt:    june(8, 9),
		EndAt:      june(10, 17),
		Days:       3,
		EmployeeID: "emp-1",
	})

	task := taskFor(june(8, 8), june(12, 17))
	require.NoError(t, f.detector.ComputeWarnings(context.Background(), []*domain.Task{task}, ""))

	assert.Equal(t,
		"Jane Doe is on time off from the Jun 08, 2026 to the Jun 10, 2026. \n",
		task.LeaveWarning)
}

func TestComputeWarnings_LeavesMergeAcrossNonWorkingGap(t *testing.T) {
	f := newFixture(t)
	// Friday leave, weekend, Monday-Tuesday leave. Every day in between
	// has zero net working time, so both leaves display as one period.
	f.leaves.Add(
		domain.Leave{
			ID: "l1", Source: domain.LeaveRequest, Validated: true,
			StartAt: june(5, 9), EndAt: june(5, 17), Days: 1, EmployeeID: "emp-1",
		},
		domain.Leave{
			ID: "l2", Source: domain.LeaveRequest, Validated: true,
			StartAt: june(8, 9), EndAt: june(9, 17), Days: 2, EmployeeID: "emp-1",
		},
	)
	for d := 10; d <= 12; d++ {
		f.svc.SetDayTotal("res-1", june(d, 0), 8)
	}

	task := taskFor(june(5, 8), june(12, 17))
	require.NoError(t, f.detector.ComputeWarnings(context.Background(), []*domain.Task{task}, ""))

	assert.Equal(t,
		"Jane Doe is on time off from the Jun 05, 2026 at 9:00 AM to the Jun 09, 2026 at 5:00 PM. \n",
		task.LeaveWarning)
}

func TestComputeWarnings_WorkingDaySplitsPeriods(t *testing.T) {
	f := newFixture(t)
	f.leaves.Add(
		domain.Leave{
			ID: "l1", Source: domain.LeaveRequest, Validated: true,
			StartAt: june(5, 9), EndAt: june(5, 17), Days: 1, EmployeeID: "emp-1",
		},
		domain.Leave{
			ID: "l2", Source: domain.LeaveRequest, Validated: false,
			StartAt: june(9, 9), EndAt: june(9, 17), Days: 1, EmployeeID: "emp-1",
		},
	)
	// Monday the 8th is a regular working day between the two leaves.
	f.svc.SetDayTotal("res-1", june(8, 0), 8)

	task := taskFor(june(5, 8), june(12, 17))
	require.NoError(t, f.detector.ComputeWarnings(context.Background(), []*domain.Task{task}, ""))

	assert.Equal(t,
		"Jane Doe is on time off from the Jun 05, 2026 at 9:00 AM to the Jun 05, 2026 at 5:00 PM. \n"+
			"Jane Doe has requested time off from the Jun 09, 2026 at 9:00 AM to the Jun 09, 2026 at 5:00 PM. \n",
		task.LeaveWarning)
}

func TestComputeWarnings_PendingRunJoinedWithAnd(t *testing.T) {
	f := newFixture(t)
	f.leaves.Add(
		domain.Leave{
			ID: "l1", Source: domain.LeaveRequest, Validated: false,
			StartAt: june(5, 9), EndAt: june(5, 17), Days: 1, EmployeeID: "emp-1",
		},
		domain.Leave{
			ID: "l2", Source: domain.LeaveRequest, Validated: false,
			StartAt: june(9, 9), EndAt: june(9, 17), Days: 1, EmployeeID: "emp-1",
		},
	)
	f.svc.SetDayTotal("res-1", june(8, 0), 8)

	task := taskFor(june(5, 8), june(12, 17))
	require.NoError(t, f.detector.ComputeWarnings(context.Background(), []*domain.Task{task}, ""))

	assert.Equal(t,
		"Jane Doe has requested time off"+
			" from the Jun 05, 2026 at 9:00 AM to the Jun 05, 2026 at 5:00 PM"+
			" and from the Jun 09, 2026 at 9:00 AM to the Jun 09, 2026 at 5:00 PM. \n",
		task.LeaveWarning)
}

func TestComputeWarnings_ClosureTreatedAsValidated(t *testing.T) {
	f := newFixture(t)
	f.leaves.Add(domain.Leave{
		ID:        "l1",
		Source:    domain.LeaveClosure,
		StartAt:   june(8, 0),
		EndAt:     june(9, 0),
		CompanyID: "co-1",
	})

	task := taskFor(june(8, 8), june(8, 17))
	require.NoError(t, f.detector.ComputeWarnings(context.Background(), []*domain.Task{task}, ""))

	assert.Contains(t, task.LeaveWarning, "Jane Doe is on time off")
}

func TestComputeWarnings_ClosureForOtherCompanyIgnored(t *testing.T) {
	f := newFixture(t)
	f.leaves.Add(domain.Leave{
		ID:        "l1",
		Source:    domain.LeaveClosure,
		StartAt:   june(8, 0),
		EndAt:     june(9, 0),
		CompanyID: "co-other",
	})

	task := taskFor(june(8, 8), june(8, 17))
	require.NoError(t, f.detector.ComputeWarnings(context.Background(), []*domain.Task{task}, ""))
	assert.Empty(t, task.LeaveWarning)
}

func TestComputeWarnings_PastWindowSkipped(t *testing.T) {
	f := newFixture(t)
	f.leaves.Add(domain.Leave{
		ID: "l1", Source: domain.LeaveRequest, Validated: true,
		StartAt: june(5, 9), EndAt: june(5, 17), Days: 1, EmployeeID: "emp-1",
	})

	past := f.detector.WithClock(func() time.Time { return june(20, 0) })
	task := taskFor(june(5, 8), june(5, 18))
	require.NoError(t, past.ComputeWarnings(context.Background(), []*domain.Task{task}, ""))
	assert.Empty(t, task.LeaveWarning)
}

func TestComputeWarnings_LocalizesTimestamps(t *testing.T) {
	f := newFixture(t)
	f.leaves.Add(domain.Leave{
		ID: "l1", Source: domain.LeaveRequest, Validated: true,
		StartAt: june(5, 9), EndAt: june(5, 17), Days: 1, EmployeeID: "emp-1",
	})

	task := taskFor(june(5, 8), june(5, 18))
	require.NoError(t, f.detector.ComputeWarnings(context.Background(), []*domain.Task{task}, "Europe/Brussels"))

	// UTC 09:00 is 11:00 in Brussels during June.
	assert.Contains(t, task.LeaveWarning, "at 11:00 AM")
}
