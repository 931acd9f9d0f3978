// Package message renders outreach email templates. Templates are opaque
// subject/body strings with embedded {Token} placeholders; values come from
// the property record and the compliance timing engine.
package message

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/matthewbaird/landbank/internal/schedule"
	"github.com/matthewbaird/landbank/internal/timing"
	"github.com/matthewbaird/landbank/internal/types"
)

// Placeholder tokens recognised in template subjects and bodies.
const (
	VarBuyerName       = "{BuyerName}"
	VarPropertyAddress = "{PropertyAddress}"
	VarDueDate         = "{DueDate}"
	VarDaysOverdue     = "{DaysOverdue}"
	VarProgramType     = "{ProgramType}"
	VarBuyerEmail      = "{BuyerEmail}"
)

// varOrder fixes the substitution and reporting order.
var varOrder = []string{
	VarBuyerName,
	VarPropertyAddress,
	VarDueDate,
	VarDaysOverdue,
	VarProgramType,
	VarBuyerEmail,
}

// RenderResult is the outcome of filling a template variant.
type RenderResult struct {
	Subject          string   `json:"subject"`
	Body             string   `json:"body"`
	MissingVariables []string `json:"missing_variables"`
	RecipientEmail   string   `json:"recipient_email"`
}

// Render fills the template's variant for the given action with values from
// the record and its timing computation. A template with no variant for the
// action yields a visible degraded result, never an error: this path is
// reachable from operator-triggered UI actions.
//
// Placeholders that resolve to an empty value are left as literal tokens in
// the output and reported in MissingVariables. A DaysOverdue of zero is a
// valid value and is not reported.
func Render(tmpl types.MessageTemplate, action string, rec timing.Record, cat schedule.Catalog, today time.Time) RenderResult {
	variant, ok := tmpl.Variants[action]
	if !ok {
		return RenderResult{
			Subject:        fmt.Sprintf("[No %s variant]", action),
			Body:           fmt.Sprintf("Template %q has no variant for action %q.", tmpl.Name, action),
			RecipientEmail: rec.BuyerEmail,
		}
	}

	var dueDate, daysOverdue, programLabel string
	res, err := timing.Compute(rec, cat, today)
	if err == nil {
		if !res.DueDate.IsZero() {
			dueDate = res.DueDate.Format("2006-01-02")
		}
		daysOverdue = strconv.Itoa(res.DaysOverdue)
		programLabel = res.ProgramLabel
	}
	if programLabel == "" {
		programLabel = rec.ProgramType
	}

	vars := map[string]string{
		VarBuyerName:       rec.BuyerName,
		VarPropertyAddress: rec.Address,
		VarDueDate:         dueDate,
		VarDaysOverdue:     daysOverdue,
		VarProgramType:     programLabel,
		VarBuyerEmail:      rec.BuyerEmail,
	}

	var missing []string
	for _, key := range varOrder {
		val := vars[key]
		if val == "" || (val == "0" && key != VarDaysOverdue) {
			missing = append(missing, key)
		}
	}

	subject := variant.Subject
	body := variant.Body
	for _, key := range varOrder {
		val := vars[key]
		if val == "" {
			// Leave the literal token visible rather than blanking it.
			continue
		}
		subject = strings.ReplaceAll(subject, key, val)
		body = strings.ReplaceAll(body, key, val)
	}

	return RenderResult{
		Subject:          subject,
		Body:             body,
		MissingVariables: missing,
		RecipientEmail:   rec.BuyerEmail,
	}
}

// FindTemplateForAction returns the first template that applies to the
// program (by schedule key) and defines a variant for the action.
func FindTemplateForAction(templates []types.MessageTemplate, programType, action string) (types.MessageTemplate, bool) {
	key := schedule.ToScheduleKey(programType)
	for _, t := range templates {
		if _, ok := t.Variants[action]; !ok {
			continue
		}
		for _, p := range t.ProgramTypes {
			if p == key {
				return t, true
			}
		}
	}
	return types.MessageTemplate{}, false
}
