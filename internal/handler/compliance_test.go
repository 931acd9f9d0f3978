package handler

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/landbank/internal/schedule"
	"github.com/matthewbaird/landbank/internal/timing"
	"github.com/matthewbaird/landbank/internal/types"
)

func TestGetTiming_AsOf(t *testing.T) {
	router, st := newTestRouter(t)

	p := &types.Property{
		ParcelID:    "4635457020",
		Address:     "12 Cedar Ct",
		ProgramType: "Featured Homes",
		BuyerEmail:  "buyer@example.com",
		CloseDate:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, st.CreateProperty(context.Background(), p))

	// Day 70 since close: ATTEMPT_2 (day 60) is in force and 7 days past
	// grace.
	rec := doJSON(t, router, http.MethodGet, "/v1/properties/"+p.ID+"/timing?as_of=2024-03-11", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var res timing.Result
	decodeBody(t, rec, &res)
	assert.Equal(t, schedule.ActionAttempt2, res.CurrentAction)
	assert.Equal(t, 70, res.DaysSinceClose)
	assert.Equal(t, 7, res.DaysOverdue)
	assert.True(t, res.IsDueNow)
}

func TestGetTiming_MissingCloseDate(t *testing.T) {
	router, st := newTestRouter(t)

	p := &types.Property{
		ParcelID:    "4635457021",
		Address:     "14 Cedar Ct",
		ProgramType: "Featured Homes",
	}
	require.NoError(t, st.CreateProperty(context.Background(), p))

	rec := doJSON(t, router, http.MethodGet, "/v1/properties/"+p.ID+"/timing", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var resp map[string]string
	decodeBody(t, rec, &resp)
	assert.Equal(t, "MISSING_CLOSE_DATE", resp["code"])
}

func TestGetQueue_RankedWithExclusions(t *testing.T) {
	router, st := newTestRouter(t)
	ctx := context.Background()

	overdue := &types.Property{
		ParcelID:    "Q-1",
		Address:     "1 Overdue Way",
		ProgramType: "Featured Homes",
		CloseDate:   time.Date(2023, 10, 1, 0, 0, 0, 0, time.UTC),
	}
	fresh := &types.Property{
		ParcelID:    "Q-2",
		Address:     "2 Fresh Way",
		ProgramType: "Featured Homes",
		CloseDate:   time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC),
	}
	broken := &types.Property{
		ParcelID:    "Q-3",
		Address:     "3 Broken Way",
		ProgramType: "Featured Homes",
		// no close date: excluded, not fatal
	}
	for _, p := range []*types.Property{overdue, fresh, broken} {
		require.NoError(t, st.CreateProperty(ctx, p))
	}

	rec := doJSON(t, router, http.MethodGet, "/v1/compliance/queue?as_of=2024-03-01", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Queue    []timing.Result `json:"queue"`
		Count    int             `json:"count"`
		Excluded int             `json:"excluded"`
	}
	decodeBody(t, rec, &resp)
	require.Equal(t, 2, resp.Count)
	assert.Equal(t, 1, resp.Excluded)
	assert.Equal(t, "Q-1", resp.Queue[0].ParcelID)
	assert.Equal(t, "Q-2", resp.Queue[1].ParcelID)
	assert.Greater(t, resp.Queue[0].DaysOverdue, resp.Queue[1].DaysOverdue)
}

func TestGetStats(t *testing.T) {
	router, st := newTestRouter(t)
	ctx := context.Background()

	for _, p := range []*types.Property{
		{ParcelID: "S-1", ProgramType: "Featured Homes", CloseDate: time.Date(2023, 10, 1, 0, 0, 0, 0, time.UTC)},
		{ParcelID: "S-2", ProgramType: "Demolition", CloseDate: time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC)},
	} {
		require.NoError(t, st.CreateProperty(ctx, p))
	}

	rec := doJSON(t, router, http.MethodGet, "/v1/compliance/stats?as_of=2024-03-01", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats timing.Stats
	decodeBody(t, rec, &stats)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.NotDueYet) // Demolition closed 2 days ago
	assert.Equal(t, 1, stats.ByProgram["Featured Homes"])
}

func TestPreview_RendersCurrentAction(t *testing.T) {
	router, st := newTestRouter(t)
	ctx := context.Background()

	p := &types.Property{
		ParcelID:    "4635457030",
		Address:     "90 Walnut St",
		ProgramType: "Featured Homes",
		BuyerName:   "Alma Reyes",
		BuyerEmail:  "alma@example.com",
		CloseDate:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, st.CreateProperty(ctx, p))

	tmpl := &types.MessageTemplate{
		Name:         "Standard Outreach",
		ProgramTypes: []string{schedule.KeyFeaturedHomes},
		Variants: map[string]types.TemplateVariant{
			schedule.ActionAttempt1: {
				Subject: "Checking in on {PropertyAddress}",
				Body:    "Hi {BuyerName}, your check-in was due {DueDate}.",
			},
		},
	}
	require.NoError(t, st.CreateTemplate(ctx, tmpl))

	// Day 35: ATTEMPT_1 in force.
	rec := doJSON(t, router, http.MethodPost, "/v1/compliance/preview", map[string]any{
		"property_id": p.ID,
		"as_of":       "2024-02-05",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Action       string `json:"action"`
		TemplateName string `json:"template_name"`
		Rendered     struct {
			Subject          string   `json:"subject"`
			Body             string   `json:"body"`
			MissingVariables []string `json:"missing_variables"`
			RecipientEmail   string   `json:"recipient_email"`
		} `json:"rendered"`
	}
	decodeBody(t, rec, &resp)
	assert.Equal(t, schedule.ActionAttempt1, resp.Action)
	assert.Equal(t, "Standard Outreach", resp.TemplateName)
	assert.Equal(t, "Checking in on 90 Walnut St", resp.Rendered.Subject)
	assert.Contains(t, resp.Rendered.Body, "Hi Alma Reyes")
	assert.Contains(t, resp.Rendered.Body, "2024-01-31")
	assert.Empty(t, resp.Rendered.MissingVariables)
	assert.Equal(t, "alma@example.com", resp.Rendered.RecipientEmail)
}

func TestPreview_NotDueYet(t *testing.T) {
	router, st := newTestRouter(t)

	p := &types.Property{
		ParcelID:    "4635457031",
		ProgramType: "VIP",
		CloseDate:   time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, st.CreateProperty(context.Background(), p))

	rec := doJSON(t, router, http.MethodPost, "/v1/compliance/preview", map[string]any{
		"property_id": p.ID,
		"as_of":       "2024-02-10",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestExport_CSVAndJSON(t *testing.T) {
	router, st := newTestRouter(t)

	p := &types.Property{
		ParcelID:    "4635457040",
		Address:     "8 Export Rd",
		ProgramType: "Featured Homes",
		BuyerName:   "Desmond Cole",
		CloseDate:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, st.CreateProperty(context.Background(), p))

	rec := doJSON(t, router, http.MethodGet, "/v1/compliance/export?as_of=2024-03-11", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "parcelId")
	assert.Contains(t, lines[1], "4635457040")
	assert.Contains(t, lines[1], "ATTEMPT_2")

	rec = doJSON(t, router, http.MethodGet, "/v1/compliance/export?format=json&as_of=2024-03-11", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"currentAction": "ATTEMPT_2"`)

	rec = doJSON(t, router, http.MethodGet, "/v1/compliance/export?format=xml", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
