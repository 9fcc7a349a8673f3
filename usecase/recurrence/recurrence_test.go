package recurrence_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planhr/backend/domain"
	"github.com/planhr/backend/repository"
	"github.com/planhr/backend/repository/memory"
	"github.com/planhr/backend/usecase/recurrence"
)

type fixture struct {
	tasks  *memory.TaskRepository
	recs   *memory.RecurrenceRepository
	dir    *memory.Directory
	engine *recurrence.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tasks := memory.NewTaskRepository()
	recs := memory.NewRecurrenceRepository()
	dir := memory.NewDirectory()

	dir.PutCompany(domain.Company{ID: "co-1", Name: "Acme"})

	engine := recurrence.New(tasks, recs, dir.Companies(), dir, dir.Calendars(), memory.NewLocker(), nil).
		WithClock(func() time.Time { return time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC) })

	return &fixture{tasks: tasks, recs: recs, dir: dir, engine: engine}
}

// template returns a persisted Monday 09:00-17:00 task.
func (f *fixture) template(t *testing.T) *domain.Task {
	t.Helper()
	task := &domain.Task{
		Subject:    domain.SubjectRef{Kind: domain.KindGeneric, Name: "standup prep"},
		EmployeeID: "emp-1",
		CompanyID:  "co-1",
		StartAt:    time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC),
		EndAt:      time.Date(2026, 6, 1, 17, 0, 0, 0, time.UTC),
		State:      domain.StatePlanned,
	}
	_, err := f.tasks.Create(context.Background(), task)
	require.NoError(t, err)
	return task
}

func (f *fixture) seriesTasks(t *testing.T, recurrenceID string) []domain.Task {
	t.Helper()
	out, err := f.tasks.List(context.Background(), repository.TaskFilter{RecurrenceID: recurrenceID, Limit: 100})
	require.NoError(t, err)
	return out
}

func weekly(end domain.EndPolicy) recurrence.RuleParams {
	return recurrence.RuleParams{Interval: 1, Unit: domain.UnitWeek, End: end}
}

func TestSetRepeat_CountBoundedWeekly(t *testing.T) {
	f := newFixture(t)
	task := f.template(t)

	err := f.engine.SetRepeat(context.Background(), task, true, weekly(domain.EndPolicy{Type: domain.EndCount, Count: 3}))
	require.NoError(t, err)
	require.NotEmpty(t, task.RecurrenceID)

	series := f.seriesTasks(t, task.RecurrenceID)
	require.Len(t, series, 4, "template plus three repetitions")

	assert.Equal(t, time.Date(2026, 6, 8, 9, 0, 0, 0, time.UTC), series[1].StartAt)
	assert.Equal(t, time.Date(2026, 6, 15, 9, 0, 0, 0, time.UTC), series[2].StartAt)
	assert.Equal(t, time.Date(2026, 6, 22, 9, 0, 0, 0, time.UTC), series[3].StartAt)
	for _, instance := range series[1:] {
		assert.Equal(t, domain.StatePlanned, instance.State)
		assert.Equal(t, 8*time.Hour, instance.EndAt.Sub(instance.StartAt))
	}

	rec, err := f.recs.GetByID(context.Background(), task.RecurrenceID)
	require.NoError(t, err)
	require.NotNil(t, rec.LastGeneratedStart)
	assert.Equal(t, series[3].StartAt, *rec.LastGeneratedStart)
}

func TestSetRepeat_UntilBoundary(t *testing.T) {
	f := newFixture(t)
	task := f.template(t)

	until := time.Date(2026, 6, 16, 0, 0, 0, 0, time.UTC)
	err := f.engine.SetRepeat(context.Background(), task, true, weekly(domain.EndPolicy{Type: domain.EndUntil, Until: until}))
	require.NoError(t, err)

	series := f.seriesTasks(t, task.RecurrenceID)
	require.Len(t, series, 3)
	assert.Equal(t, time.Date(2026, 6, 15, 9, 0, 0, 0, time.UTC), series[2].StartAt)
}

func TestSetRepeat_ForeverStopsAtGenerationHorizon(t *testing.T) {
	f := newFixture(t)
	task := f.template(t)

	err := f.engine.SetRepeat(context.Background(), task, true, weekly(domain.EndPolicy{Type: domain.EndForever}))
	require.NoError(t, err)

	// One month of lookahead from June 1st: repetitions through June 29.
	series := f.seriesTasks(t, task.RecurrenceID)
	require.Len(t, series, 5)
	assert.Equal(t, time.Date(2026, 6, 29, 9, 0, 0, 0, time.UTC), series[4].StartAt)
}

func TestSetRepeat_CountPastHardCapRejected(t *testing.T) {
	f := newFixture(t)
	task := f.template(t)

	// 150 weekly repetitions reach 1050 days out.
	err := f.engine.SetRepeat(context.Background(), task, true, weekly(domain.EndPolicy{Type: domain.EndCount, Count: 150}))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrHorizonTooFar)

	// Nothing may survive the rejection: no task link, no stored rule.
	assert.Empty(t, task.RecurrenceID)
	stored, err := f.tasks.GetByID(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.RecurrenceID)

	horizon := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	orphans, err := f.recs.ListDue(context.Background(), "co-1", horizon, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, orphans)
}

func TestUpdateRule_CountPastHardCapLeavesRuleAndSeries(t *testing.T) {
	f := newFixture(t)
	task := f.template(t)
	require.NoError(t, f.engine.SetRepeat(context.Background(), task, true, weekly(domain.EndPolicy{Type: domain.EndForever})))
	require.Len(t, f.seriesTasks(t, task.RecurrenceID), 5)

	// Cadence change plus a count reaching 1400 days out.
	err := f.engine.UpdateRule(context.Background(), task, recurrence.RuleParams{
		Interval: 2,
		Unit:     domain.UnitWeek,
		End:      domain.EndPolicy{Type: domain.EndCount, Count: 100},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrHorizonTooFar)

	// The rejected edit commits nothing: the stored rule keeps its old
	// parameters and every instance is still there.
	assert.Len(t, f.seriesTasks(t, task.RecurrenceID), 5)
	rec, err := f.recs.GetByID(context.Background(), task.RecurrenceID)
	require.NoError(t, err)
	assert.Equal(t, domain.EndForever, rec.End.Type)
	assert.Equal(t, 1, rec.Interval)
}

func TestSetRepeat_NegativeCountRejected(t *testing.T) {
	f := newFixture(t)
	task := f.template(t)

	err := f.engine.SetRepeat(context.Background(), task, true, weekly(domain.EndPolicy{Type: domain.EndCount, Count: -2}))
	assert.ErrorIs(t, err, domain.ErrNegativeRepeats)
	assert.Empty(t, task.RecurrenceID)
}

func TestReconcile_Idempotent(t *testing.T) {
	f := newFixture(t)
	task := f.template(t)
	require.NoError(t, f.engine.SetRepeat(context.Background(), task, true, weekly(domain.EndPolicy{Type: domain.EndCount, Count: 3})))

	rec, err := f.recs.GetByID(context.Background(), task.RecurrenceID)
	require.NoError(t, err)

	require.NoError(t, f.engine.Reconcile(context.Background(), rec, nil))
	require.NoError(t, f.engine.Reconcile(context.Background(), rec, nil))

	assert.Len(t, f.seriesTasks(t, task.RecurrenceID), 4)
}

func TestSetRepeat_DisableDeletesPlannedKeepsStarted(t *testing.T) {
	f := newFixture(t)
	task := f.template(t)
	require.NoError(t, f.engine.SetRepeat(context.Background(), task, true, weekly(domain.EndPolicy{Type: domain.EndCount, Count: 3})))

	recurrenceID := task.RecurrenceID
	series := f.seriesTasks(t, recurrenceID)
	require.Len(t, series, 4)

	// The June 8 instance already ran to completion; disabling the rule
	// must not erase history.
	finished := series[1]
	finished.State = domain.StateFinished
	require.NoError(t, f.tasks.Update(context.Background(), &finished))

	require.NoError(t, f.engine.SetRepeat(context.Background(), task, false, recurrence.RuleParams{}))

	assert.Empty(t, task.RecurrenceID)
	_, err := f.recs.GetByID(context.Background(), recurrenceID)
	assert.ErrorIs(t, err, domain.ErrRecurrenceNotFound)

	remaining := f.seriesTasks(t, recurrenceID)
	require.Len(t, remaining, 1)
	assert.Equal(t, domain.StateFinished, remaining[0].State)

	kept, err := f.tasks.GetByID(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Empty(t, kept.RecurrenceID)
}

func TestUpdateRule_CadenceChangeRegenerates(t *testing.T) {
	f := newFixture(t)
	task := f.template(t)
	require.NoError(t, f.engine.SetRepeat(context.Background(), task, true, weekly(domain.EndPolicy{Type: domain.EndForever})))
	require.Len(t, f.seriesTasks(t, task.RecurrenceID), 5)

	err := f.engine.UpdateRule(context.Background(), task, recurrence.RuleParams{
		Interval: 2,
		Unit:     domain.UnitWeek,
		End:      domain.EndPolicy{Type: domain.EndForever},
	})
	require.NoError(t, err)

	series := f.seriesTasks(t, task.RecurrenceID)
	require.Len(t, series, 3)
	assert.Equal(t, time.Date(2026, 6, 15, 9, 0, 0, 0, time.UTC), series[1].StartAt)
	assert.Equal(t, time.Date(2026, 6, 29, 9, 0, 0, 0, time.UTC), series[2].StartAt)
}

func TestUpdateRule_WithoutRecurrence(t *testing.T) {
	f := newFixture(t)
	task := f.template(t)

	err := f.engine.UpdateRule(context.Background(), task, weekly(domain.EndPolicy{Type: domain.EndForever}))
	assert.ErrorIs(t, err, domain.ErrRecurrenceNotFound)
}

func TestReconcile_OrphanedRecurrenceDeletesItself(t *testing.T) {
	f := newFixture(t)
	rec, err := f.recs.Create(context.Background(), &domain.Recurrence{
		Interval:  1,
		Unit:      domain.UnitWeek,
		End:       domain.EndPolicy{Type: domain.EndForever},
		CompanyID: "co-1",
	})
	require.NoError(t, err)

	require.NoError(t, f.engine.Reconcile(context.Background(), rec, nil))

	_, err = f.recs.GetByID(context.Background(), rec.ID)
	assert.ErrorIs(t, err, domain.ErrRecurrenceNotFound)
}

func TestSweepHorizons_ExtendsTrailingSeries(t *testing.T) {
	f := newFixture(t)
	task := f.template(t)
	require.NoError(t, f.engine.SetRepeat(context.Background(), task, true, weekly(domain.EndPolicy{Type: domain.EndForever})))
	require.Len(t, f.seriesTasks(t, task.RecurrenceID), 5)

	// A month later the high-water mark trails the new horizon.
	sweepAt := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, f.engine.SweepHorizons(context.Background(), sweepAt))

	series := f.seriesTasks(t, task.RecurrenceID)
	require.Len(t, series, 9)
	assert.Equal(t, time.Date(2026, 7, 27, 9, 0, 0, 0, time.UTC), series[8].StartAt)

	rec, err := f.recs.GetByID(context.Background(), task.RecurrenceID)
	require.NoError(t, err)
	require.NotNil(t, rec.LastGeneratedStart)
	assert.Equal(t, series[8].StartAt, *rec.LastGeneratedStart)
}

func TestSweepHorizons_UpToDateSeriesUntouched(t *testing.T) {
	f := newFixture(t)
	task := f.template(t)
	require.NoError(t, f.engine.SetRepeat(context.Background(), task, true, weekly(domain.EndPolicy{Type: domain.EndForever})))

	require.NoError(t, f.engine.SweepHorizons(context.Background(), time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)))
	assert.Len(t, f.seriesTasks(t, task.RecurrenceID), 5)
}
