package timing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/landbank/internal/schedule"
)

func rankRecord(id, program string, close time.Time) Record {
	return Record{
		PropertyID:  id,
		ProgramType: program,
		CloseDate:   close,
	}
}

func TestRankByUrgency_OrdersByOverdue(t *testing.T) {
	today := date(2024, 6, 1)
	records := []Record{
		rankRecord("fresh", "Featured Homes", date(2024, 5, 1)),   // due, inside grace
		rankRecord("late", "Featured Homes", date(2024, 1, 1)),    // deep overdue
		rankRecord("midway", "Featured Homes", date(2024, 2, 15)), // mildly overdue
	}

	results := RankByUrgency(records, schedule.Default(), today)
	require.Len(t, results, 3)
	assert.Equal(t, "late", results[0].PropertyID)
	assert.Equal(t, "midway", results[1].PropertyID)
	assert.Equal(t, "fresh", results[2].PropertyID)
	assert.GreaterOrEqual(t, results[0].DaysOverdue, results[1].DaysOverdue)
}

func TestRankByUrgency_ExcludesFailedRecords(t *testing.T) {
	today := date(2024, 6, 1)
	records := []Record{
		rankRecord("ok", "Featured Homes", date(2024, 1, 1)),
		rankRecord("no-program", "Homestead", date(2024, 1, 1)),
		{PropertyID: "no-close", ProgramType: "VIP"},
	}

	results := RankByUrgency(records, schedule.Default(), today)
	require.Len(t, results, 1)
	assert.Equal(t, "ok", results[0].PropertyID)
}

func TestRankByUrgency_EmptyInput(t *testing.T) {
	results := RankByUrgency(nil, schedule.Default(), date(2024, 6, 1))
	assert.Empty(t, results)
}

func TestRankByUrgency_StableTies(t *testing.T) {
	today := date(2024, 2, 10)
	// Identical records tie on DaysOverdue and must keep input order.
	records := []Record{
		rankRecord("a", "Featured Homes", date(2024, 1, 1)),
		rankRecord("b", "Featured Homes", date(2024, 1, 1)),
		rankRecord("c", "Featured Homes", date(2024, 1, 1)),
	}

	results := RankByUrgency(records, schedule.Default(), today)
	require.Len(t, results, 3)
	assert.Equal(t, "a", results[0].PropertyID)
	assert.Equal(t, "b", results[1].PropertyID)
	assert.Equal(t, "c", results[2].PropertyID)
}

func TestRankByUrgency_DoesNotMutateInput(t *testing.T) {
	records := []Record{
		rankRecord("b", "Featured Homes", date(2024, 1, 1)),
		rankRecord("a", "Featured Homes", date(2024, 3, 1)),
	}
	RankByUrgency(records, schedule.Default(), date(2024, 6, 1))
	assert.Equal(t, "b", records[0].PropertyID)
	assert.Equal(t, "a", records[1].PropertyID)
}

func TestSummarize(t *testing.T) {
	today := date(2024, 6, 1)
	records := []Record{
		rankRecord("overdue", "Featured Homes", date(2024, 1, 1)),
		rankRecord("fresh", "Featured Homes", date(2024, 5, 15)),
		rankRecord("demo", "Demolition", date(2024, 5, 2)), // day 30, due, zero grace
	}

	stats := Summarize(RankByUrgency(records, schedule.Default(), today))
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.DueNow)
	assert.Equal(t, 1, stats.Overdue)
	assert.Equal(t, 1, stats.NotDueYet)
	assert.Equal(t, 2, stats.ByProgram["Featured Homes"])
	assert.Equal(t, 1, stats.ByProgram["Demolition"])
}
