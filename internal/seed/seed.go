// Package seed provides demo data for local runs: one property per
// disposition program at different points in its schedule, plus a starter
// outreach template covering every action.
package seed

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/matthewbaird/landbank/internal/schedule"
	"github.com/matthewbaird/landbank/internal/store"
	"github.com/matthewbaird/landbank/internal/types"
)

// Seed inserts demo properties and templates. If any properties already
// exist it skips seeding, so repeated startups stay idempotent.
func Seed(ctx context.Context, st store.Store) error {
	existing, err := st.ListProperties(ctx, store.PropertyFilter{Limit: 1})
	if err != nil {
		return fmt.Errorf("checking properties: %w", err)
	}
	if len(existing) > 0 {
		log.Printf("seed: properties already present, skipping")
		return nil
	}

	now := time.Now()
	daysAgo := func(n int) time.Time {
		y, m, d := now.UTC().AddDate(0, 0, -n).Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}

	props := []types.Property{
		{
			ParcelID:    "44-001-12-0034",
			Address:     "1214 E Ganson St",
			ProgramType: "Featured Homes",
			BuyerName:   "Alma Reyes",
			BuyerEmail:  "alma.reyes@example.com",
			BuyerPhone:  "517-555-0134",
			CloseDate:   daysAgo(70),
			Status:      "active",
		},
		{
			ParcelID:    "44-002-27-0188",
			Address:     "309 W Morrell St",
			ProgramType: "Ready4Rehab",
			BuyerName:   "Desmond Cole",
			BuyerEmail:  "d.cole@example.com",
			CloseDate:   daysAgo(35),
			Status:      "active",
		},
		{
			ParcelID:    "44-003-08-0415",
			Address:     "78 N Elm Ave",
			ProgramType: "Demolition",
			BuyerName:   "Harbor Holdings LLC",
			BuyerEmail:  "permits@harborholdings.example.com",
			CloseDate:   daysAgo(20),
			Status:      "active",
		},
		{
			ParcelID:    "44-004-33-0092",
			Address:     "522 S Jackson St",
			ProgramType: "VIP",
			BuyerName:   "Tamara Ellis",
			BuyerEmail:  "tellis@example.com",
			CloseDate:   daysAgo(10),
			Status:      "active",
		},
	}
	for i := range props {
		if err := st.CreateProperty(ctx, &props[i]); err != nil {
			return fmt.Errorf("seeding property %s: %w", props[i].ParcelID, err)
		}
	}

	// The first attempt on the Featured Homes property is already logged,
	// so the demo queue shows a property mid-schedule.
	first := daysAgo(38)
	props[0].FirstAttempt = &first
	props[0].LastContactDate = &first
	if err := st.UpdateProperty(ctx, &props[0]); err != nil {
		return fmt.Errorf("seeding first attempt: %w", err)
	}
	comm := types.Communication{
		PropertyID: props[0].ID,
		Action:     schedule.ActionAttempt1,
		Channel:    "email",
		Recipient:  props[0].BuyerEmail,
		Subject:    "Checking in on 1214 E Ganson St",
		Status:     types.CommStatusSent,
		SentAt:     &first,
	}
	if err := st.CreateCommunication(ctx, &comm); err != nil {
		return fmt.Errorf("seeding communication: %w", err)
	}

	tmpl := types.MessageTemplate{
		Name: "Standard Outreach",
		ProgramTypes: []string{
			schedule.KeyFeaturedHomes,
			schedule.KeyReady4Rehab,
			schedule.KeyDemolition,
			schedule.KeyVIP,
		},
		Variants: map[string]types.TemplateVariant{
			schedule.ActionAttempt1: {
				Subject: "Checking in on {PropertyAddress}",
				Body: "Hi {BuyerName},\n\nWe're checking in on your progress at " +
					"{PropertyAddress} under the {ProgramType} program. Please reply " +
					"with an update or submit one through your property link.\n",
			},
			schedule.ActionAttempt2: {
				Subject: "Second notice: update needed for {PropertyAddress}",
				Body: "Hi {BuyerName},\n\nWe haven't heard back about " +
					"{PropertyAddress}. An update was due on {DueDate}. Please respond " +
					"so we can keep your agreement in good standing.\n",
			},
			schedule.ActionWarning: {
				Subject: "Compliance warning for {PropertyAddress}",
				Body: "Hi {BuyerName},\n\nYour {ProgramType} agreement for " +
					"{PropertyAddress} is {DaysOverdue} days past its scheduled " +
					"check-in of {DueDate}. Contact us immediately to avoid " +
					"enforcement action.\n",
			},
			schedule.ActionDefaultNotice: {
				Subject: "Notice of default: {PropertyAddress}",
				Body: "Dear {BuyerName},\n\nThis is formal notice that your " +
					"agreement for {PropertyAddress} is in default, {DaysOverdue} days " +
					"past the {DueDate} deadline. A compliance officer will contact " +
					"you about next steps.\n",
			},
		},
	}
	if err := st.CreateTemplate(ctx, &tmpl); err != nil {
		return fmt.Errorf("seeding template: %w", err)
	}

	log.Printf("seed: created %d properties and %d template(s)", len(props), 1)
	return nil
}
