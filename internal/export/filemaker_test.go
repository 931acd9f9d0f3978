package export

import (
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/landbank/internal/schedule"
	"github.com/matthewbaird/landbank/internal/timing"
	"github.com/matthewbaird/landbank/internal/types"
)

func exportProperty() types.Property {
	first := time.Date(2024, 1, 30, 0, 0, 0, 0, time.UTC)
	return types.Property{
		ID:               "prop-1",
		ParcelID:         "4635457003",
		Address:          `123 Elm St, Unit "B"`,
		BuyerName:        "Reyes, Jordan",
		BuyerEmail:       "jordan@example.com",
		ProgramType:      "Featured Homes",
		CloseDate:        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		FirstAttempt:     &first,
		EnforcementLevel: 2,
	}
}

func TestFlatten(t *testing.T) {
	p := exportProperty()
	sent := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)
	comms := []types.Communication{
		{Action: "ATTEMPT_1", Status: types.CommStatusSent, SentAt: &sent, CreatedAt: sent},
	}
	res, err := timing.Compute(timing.RecordFromProperty(p, comms), schedule.Default(),
		time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	rec := Flatten(p, comms, &res)
	assert.Equal(t, "4635457003", rec.ParcelID)
	assert.Equal(t, "2024-01-01", rec.DateSold)
	assert.Equal(t, "2024-01-30", rec.FirstAttempt)
	assert.Equal(t, "ATTEMPT_2", rec.CurrentAction)
	assert.Equal(t, "2024-03-01", rec.DueDate)
	assert.Equal(t, "6", rec.DaysOverdue)
	assert.True(t, rec.IsDueNow)
	assert.Equal(t, 1, rec.CommunicationCount)
	assert.Equal(t, "2024-02-01", rec.LastCommunicationDate)
}

func TestFlatten_NilTimingLeavesDerivedFieldsEmpty(t *testing.T) {
	rec := Flatten(exportProperty(), nil, nil)
	assert.Empty(t, rec.CurrentAction)
	assert.Empty(t, rec.DueDate)
	assert.Empty(t, rec.DaysOverdue)
	assert.False(t, rec.IsDueNow)
}

func TestGenerateCSV(t *testing.T) {
	rec := Flatten(exportProperty(), nil, nil)
	out, err := GenerateCSV([]FlatRecord{rec})
	require.NoError(t, err)

	r := csv.NewReader(strings.NewReader(out))
	rows, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "parcelId", rows[0][0])
	assert.Equal(t, "4635457003", rows[1][0])
	// The quoted address survives CSV escaping intact.
	assert.Equal(t, `123 Elm St, Unit "B"`, rows[1][1])
	assert.Equal(t, "NO", rows[1][13])
}

func TestGenerateJSON(t *testing.T) {
	rec := Flatten(exportProperty(), nil, nil)
	out, err := GenerateJSON([]FlatRecord{rec})
	require.NoError(t, err)
	assert.Contains(t, out, `"parcelId": "4635457003"`)
	assert.Contains(t, out, `"isDueNow": false`)
}

func TestToFileMakerFields(t *testing.T) {
	rec := Flatten(exportProperty(), nil, nil)
	fm := rec.ToFileMakerFields()
	assert.Equal(t, "4635457003", fm["ParcelID"])
	assert.Equal(t, "Featured Homes", fm["Program_Type"])
	assert.Equal(t, "2024-01-01", fm["Date_Sold"])
	assert.Equal(t, "NO", fm["Is_Due_Now"])
	assert.Len(t, fm, len(FieldNames()))
}
