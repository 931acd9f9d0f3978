package timing

import (
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/landbank/internal/schedule"
	"github.com/matthewbaird/landbank/internal/types"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func featuredRecord() Record {
	return Record{
		PropertyID:  "prop-1",
		ParcelID:    "4635457003",
		Address:     "123 Elm St",
		BuyerName:   "Jordan Reyes",
		BuyerEmail:  "jordan@example.com",
		ProgramType: "Featured Homes",
		CloseDate:   date(2024, 1, 1),
	}
}

func sentComm(action string) types.Communication {
	return types.Communication{
		PropertyID: "prop-1",
		Action:     action,
		Status:     types.CommStatusSent,
	}
}

func TestCompute_StepReachedWithinGrace(t *testing.T) {
	// Day 30 exactly: the ATTEMPT_1 step is current but grace (3 days)
	// has not elapsed, so it does not yet read as due.
	res, err := Compute(featuredRecord(), schedule.Default(), date(2024, 1, 31))
	require.NoError(t, err)

	assert.Equal(t, 30, res.DaysSinceClose)
	assert.Equal(t, schedule.ActionAttempt1, res.CurrentAction)
	assert.Equal(t, 1, res.RecommendedLevel)
	assert.Equal(t, date(2024, 1, 31), res.DueDate)
	assert.Equal(t, 0, res.DaysOverdue)
	assert.False(t, res.IsDueNow)
	assert.False(t, res.ActionAlreadySent)
	assert.Equal(t, schedule.ActionAttempt2, res.NextAction)
	require.NotNil(t, res.NextDueDate)
	assert.Equal(t, date(2024, 3, 1), *res.NextDueDate)
}

func TestCompute_GraceBoundary(t *testing.T) {
	// FeaturedHomes grace is 3 days; due date is 2024-01-31.
	rec := featuredRecord()
	cat := schedule.Default()

	atGraceMinusOne, err := Compute(rec, cat, date(2024, 2, 2))
	require.NoError(t, err)
	assert.False(t, atGraceMinusOne.IsDueNow)
	assert.Equal(t, 0, atGraceMinusOne.DaysOverdue)

	atGrace, err := Compute(rec, cat, date(2024, 2, 3))
	require.NoError(t, err)
	assert.True(t, atGrace.IsDueNow)
	assert.Equal(t, 0, atGrace.DaysOverdue)

	pastGrace, err := Compute(rec, cat, date(2024, 2, 5))
	require.NoError(t, err)
	assert.True(t, pastGrace.IsDueNow)
	assert.Equal(t, 2, pastGrace.DaysOverdue)
}

func TestCompute_FirstAttemptAdvancesToSecond(t *testing.T) {
	// Day 60 with ATTEMPT_1 recorded: the nominal step is ATTEMPT_2 and it
	// has not been sent.
	first := date(2024, 1, 28)
	rec := featuredRecord()
	rec.FirstAttempt = &first

	res, err := Compute(rec, schedule.Default(), date(2024, 3, 1))
	require.NoError(t, err)

	assert.Equal(t, 60, res.DaysSinceClose)
	assert.Equal(t, schedule.ActionAttempt2, res.CurrentAction)
	assert.Equal(t, 2, res.RecommendedLevel)
	assert.False(t, res.ActionAlreadySent)
	assert.Equal(t, []string{schedule.ActionAttempt1}, res.CompletedActions)
	assert.Equal(t, schedule.ActionWarning, res.NextAction)
}

func TestCompute_NominalStepAlreadySent(t *testing.T) {
	rec := featuredRecord()
	rec.Communications = []types.Communication{sentComm(schedule.ActionAttempt2)}

	res, err := Compute(rec, schedule.Default(), date(2024, 3, 5))
	require.NoError(t, err)

	// ATTEMPT_2 (day 60) is nominal and completed; WARNING (day 90) is not
	// yet due, so the nominal step stays current flagged as sent.
	assert.Equal(t, schedule.ActionAttempt2, res.CurrentAction)
	assert.True(t, res.ActionAlreadySent)
	assert.False(t, res.IsDueNow)
	assert.Equal(t, schedule.ActionWarning, res.NextAction)
}

func TestCompute_NotYetDue(t *testing.T) {
	res, err := Compute(featuredRecord(), schedule.Default(), date(2024, 1, 15))
	require.NoError(t, err)

	assert.Equal(t, 14, res.DaysSinceClose)
	assert.Equal(t, schedule.ActionNotDueYet, res.CurrentAction)
	assert.Equal(t, 0, res.RecommendedLevel)
	assert.True(t, res.DueDate.IsZero())
	assert.False(t, res.IsDueNow)
	assert.Equal(t, 0, res.DaysOverdue)
	assert.Equal(t, schedule.ActionAttempt1, res.NextAction)
	require.NotNil(t, res.NextDueDate)
	assert.Equal(t, date(2024, 1, 31), *res.NextDueDate)
}

func TestCompute_TodayBeforeClose(t *testing.T) {
	res, err := Compute(featuredRecord(), schedule.Default(), date(2023, 12, 20))
	require.NoError(t, err)

	assert.Equal(t, -12, res.DaysSinceClose)
	assert.Equal(t, schedule.ActionNotDueYet, res.CurrentAction)
	assert.False(t, res.IsDueNow)
}

func TestCompute_AllStepsCompleted(t *testing.T) {
	rec := featuredRecord()
	rec.Communications = []types.Communication{
		sentComm(schedule.ActionAttempt1),
		sentComm(schedule.ActionAttempt2),
		sentComm(schedule.ActionWarning),
		sentComm(schedule.ActionDefaultNotice),
	}

	res, err := Compute(rec, schedule.Default(), date(2024, 6, 1))
	require.NoError(t, err)

	// The nominal step stays the last reached step, flagged sent, and
	// nothing remains after it.
	assert.Equal(t, schedule.ActionDefaultNotice, res.CurrentAction)
	assert.True(t, res.ActionAlreadySent)
	assert.False(t, res.IsDueNow)
	assert.Empty(t, res.NextAction)
	assert.Nil(t, res.NextDueDate)
}

func TestCompute_DemolitionSkippedStepNotRevisited(t *testing.T) {
	// Demolition [14, 30, 45], grace 0. At exactly day 30 with the day-14
	// attempt never made, only the day-30 step is reported: one current
	// step at a time, earlier misses are not separately surfaced.
	rec := Record{
		PropertyID:  "prop-demo",
		ProgramType: "Demolition",
		CloseDate:   date(2024, 2, 1),
	}

	res, err := Compute(rec, schedule.Default(), date(2024, 3, 2))
	require.NoError(t, err)

	assert.Equal(t, 30, res.DaysSinceClose)
	assert.Equal(t, schedule.ActionWarning, res.CurrentAction)
	assert.Equal(t, 3, res.RecommendedLevel)
	assert.True(t, res.IsDueNow) // zero grace: due the day it lands
	assert.Equal(t, 0, res.DaysOverdue)
	assert.Equal(t, schedule.ActionDefaultNotice, res.NextAction)
}

func TestCompute_UnknownProgram(t *testing.T) {
	rec := featuredRecord()
	rec.ProgramType = "Homestead"

	_, err := Compute(rec, schedule.Default(), date(2024, 3, 1))
	var missing *MissingScheduleError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "Homestead", missing.ProgramType)
}

func TestCompute_MissingCloseDate(t *testing.T) {
	rec := featuredRecord()
	rec.CloseDate = time.Time{}

	_, err := Compute(rec, schedule.Default(), date(2024, 3, 1))
	var missing *MissingCloseDateError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "prop-1", missing.PropertyID)
}

func TestCompute_Deterministic(t *testing.T) {
	rec := featuredRecord()
	rec.Communications = []types.Communication{sentComm(schedule.ActionAttempt1)}
	today := date(2024, 4, 10)

	first, err := Compute(rec, schedule.Default(), today)
	require.NoError(t, err)
	second, err := Compute(rec, schedule.Default(), today)
	require.NoError(t, err)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated computation differs:\n%+v\n%+v", first, second)
	}
}

func TestCompute_IdempotentCompletion(t *testing.T) {
	today := date(2024, 3, 10)
	first := date(2024, 1, 30)

	once := featuredRecord()
	once.FirstAttempt = &first

	twice := featuredRecord()
	twice.FirstAttempt = &first
	twice.Communications = []types.Communication{sentComm(schedule.ActionAttempt1)}

	a, err := Compute(once, schedule.Default(), today)
	require.NoError(t, err)
	b, err := Compute(twice, schedule.Default(), today)
	require.NoError(t, err)

	assert.Equal(t, a.CurrentAction, b.CurrentAction)
	assert.Equal(t, a.IsDueNow, b.IsDueNow)
	assert.Equal(t, a.DaysOverdue, b.DaysOverdue)
	assert.Equal(t, a.CompletedActions, b.CompletedActions)
}

func TestCompute_MonotonicOverdue(t *testing.T) {
	// Holding everything else fixed, advancing today one day at a time
	// never decreases DaysOverdue while the nominal step is unchanged.
	rec := featuredRecord()
	cat := schedule.Default()

	prevOverdue := -1
	prevAction := ""
	for offset := 30; offset < 60; offset++ {
		today := date(2024, 1, 1).AddDate(0, 0, offset)
		res, err := Compute(rec, cat, today)
		require.NoError(t, err)
		if res.CurrentAction == prevAction && res.DaysOverdue < prevOverdue {
			t.Fatalf("overdue decreased at day %d: %d -> %d", offset, prevOverdue, res.DaysOverdue)
		}
		prevOverdue = res.DaysOverdue
		prevAction = res.CurrentAction
	}
}

func TestCompute_DayGranularity(t *testing.T) {
	// Time-of-day and timezone must not shift the day count: both inputs
	// are truncated to midnight UTC.
	rec := featuredRecord()
	rec.CloseDate = time.Date(2024, 1, 1, 23, 45, 0, 0, time.UTC)

	today := time.Date(2024, 1, 31, 0, 5, 0, 0, time.UTC)
	res, err := Compute(rec, schedule.Default(), today)
	require.NoError(t, err)
	assert.Equal(t, 30, res.DaysSinceClose)
}

func TestCompute_PassThroughIdentity(t *testing.T) {
	res, err := Compute(featuredRecord(), schedule.Default(), date(2024, 2, 10))
	require.NoError(t, err)

	assert.Equal(t, "prop-1", res.PropertyID)
	assert.Equal(t, "4635457003", res.ParcelID)
	assert.Equal(t, "123 Elm St", res.Address)
	assert.Equal(t, "Jordan Reyes", res.BuyerName)
	assert.Equal(t, "jordan@example.com", res.BuyerEmail)
	assert.Equal(t, "Featured Homes", res.ProgramLabel)
}

func TestCompute_DraftCommunicationDoesNotComplete(t *testing.T) {
	rec := featuredRecord()
	rec.Communications = []types.Communication{
		{Action: schedule.ActionAttempt1, Status: types.CommStatusDraft},
		{Action: schedule.ActionAttempt1, Status: types.CommStatusFailed},
	}

	res, err := Compute(rec, schedule.Default(), date(2024, 2, 10))
	require.NoError(t, err)
	assert.Empty(t, res.CompletedActions)
	assert.Equal(t, schedule.ActionAttempt1, res.CurrentAction)
	assert.False(t, res.ActionAlreadySent)
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2024-01-31")
	require.NoError(t, err)
	assert.Equal(t, date(2024, 1, 31), got)

	got, err = ParseDate("2024-01-31T18:30:00Z")
	require.NoError(t, err)
	assert.Equal(t, date(2024, 1, 31), got)

	_, err = ParseDate("01/31/2024")
	assert.Error(t, err)
}
