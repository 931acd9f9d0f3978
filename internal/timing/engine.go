// Package timing implements the compliance timing engine: a pure computation
// that derives the outreach action currently in force for a property from
// its program schedule, close date, and completed attempts. The engine is
// the single implementation shared by the HTTP layer, the sweep worker, the
// template renderer, and the FileMaker exporter.
package timing

import (
	"fmt"
	"time"

	"github.com/matthewbaird/landbank/internal/schedule"
	"github.com/matthewbaird/landbank/internal/types"
)

// MissingScheduleError reports a program type that resolves to no catalog
// entry. The engine never substitutes a default schedule.
type MissingScheduleError struct {
	ProgramType string
}

func (e *MissingScheduleError) Error() string {
	return fmt.Sprintf("no schedule found for program type %q", e.ProgramType)
}

// MissingCloseDateError reports a record with no usable close date.
type MissingCloseDateError struct {
	PropertyID string
}

func (e *MissingCloseDateError) Error() string {
	return fmt.Sprintf("property %s has no close date", e.PropertyID)
}

// Record is the engine's input. Identity fields are passed through to the
// Result untouched; only ProgramType, CloseDate, the attempt dates, and
// Communications participate in the computation.
type Record struct {
	PropertyID string
	ParcelID   string
	Address    string
	BuyerName  string
	BuyerEmail string

	ProgramType string
	CloseDate   time.Time

	FirstAttempt    *time.Time
	SecondAttempt   *time.Time
	LastContactDate *time.Time

	Communications []types.Communication
}

// RecordFromProperty builds an engine Record from a stored property and its
// communication log. Alias resolution (buyer name parts, dateSold) happens
// before this point.
func RecordFromProperty(p types.Property, comms []types.Communication) Record {
	return Record{
		PropertyID:      p.ID,
		ParcelID:        p.ParcelID,
		Address:         p.Address,
		BuyerName:       p.BuyerName,
		BuyerEmail:      p.BuyerEmail,
		ProgramType:     p.ProgramType,
		CloseDate:       p.CloseDate,
		FirstAttempt:    p.FirstAttempt,
		SecondAttempt:   p.SecondAttempt,
		LastContactDate: p.LastContactDate,
		Communications:  comms,
	}
}

// Result is the timing computation output. It is derived state: computed
// fresh on every read, never persisted.
type Result struct {
	PropertyID string `json:"property_id,omitempty"`
	ParcelID   string `json:"parcel_id,omitempty"`
	Address    string `json:"address,omitempty"`
	BuyerName  string `json:"buyer_name,omitempty"`
	BuyerEmail string `json:"buyer_email,omitempty"`

	ProgramType  string `json:"program_type"`
	ProgramLabel string `json:"program_label"`

	DaysSinceClose int `json:"days_since_close"`

	// CurrentAction is the effective step's action, or
	// schedule.ActionNotDueYet when no step offset has been reached.
	CurrentAction    string `json:"current_action"`
	RecommendedLevel int    `json:"recommended_level"`

	// DueDate is zero when CurrentAction is the not-due sentinel.
	DueDate time.Time `json:"due_date,omitzero"`

	IsDueNow          bool `json:"is_due_now"`
	DaysOverdue       int  `json:"days_overdue"`
	ActionAlreadySent bool `json:"action_already_sent"`

	CompletedActions []string `json:"completed_actions"`

	NextAction  string     `json:"next_action,omitempty"`
	NextDueDate *time.Time `json:"next_due_date,omitempty"`

	LastContactDate *time.Time `json:"last_contact_date,omitempty"`
}

// midnightUTC truncates t to day granularity at a fixed UTC midnight so
// date arithmetic is immune to time-of-day and timezone drift.
func midnightUTC(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// daysBetween returns whole days from b to a. Both arguments must already
// be at midnight UTC.
func daysBetween(a, b time.Time) int {
	return int(a.Sub(b) / (24 * time.Hour))
}

// ParseDate parses the date formats the portal accepts: plain ISO dates and
// RFC 3339 timestamps. The result is normalised to midnight UTC.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("unparsable date %q", s)
	}
	return midnightUTC(t), nil
}

// Compute derives the timing result for one record as of today. It is
// deterministic, side-effect free, and safe for concurrent use; callers own
// the choice of today (only the outermost layer defaults it to wall clock).
func Compute(rec Record, cat schedule.Catalog, today time.Time) (Result, error) {
	key := schedule.ToScheduleKey(rec.ProgramType)
	prog, ok := cat[key]
	if !ok {
		return Result{}, &MissingScheduleError{ProgramType: rec.ProgramType}
	}
	if rec.CloseDate.IsZero() {
		return Result{}, &MissingCloseDateError{PropertyID: rec.PropertyID}
	}

	close := midnightUTC(rec.CloseDate)
	day := midnightUTC(today)
	daysSinceClose := daysBetween(day, close)

	steps := prog.SortedSteps()
	completed := completedActions(rec)
	completedSet := make(map[string]bool, len(completed))
	for _, a := range completed {
		completedSet[a] = true
	}

	res := Result{
		PropertyID:       rec.PropertyID,
		ParcelID:         rec.ParcelID,
		Address:          rec.Address,
		BuyerName:        rec.BuyerName,
		BuyerEmail:       rec.BuyerEmail,
		ProgramType:      rec.ProgramType,
		ProgramLabel:     prog.Label,
		DaysSinceClose:   daysSinceClose,
		CompletedActions: completed,
		LastContactDate:  rec.LastContactDate,
	}

	// Nominal step: the latest step whose offset has been reached,
	// ignoring completion.
	nominalIdx := -1
	for i := len(steps) - 1; i >= 0; i-- {
		if daysSinceClose >= steps[i].Day {
			nominalIdx = i
			break
		}
	}

	if nominalIdx < 0 {
		// Nothing due yet. DueDate stays zero; the next action is the
		// first step not already completed.
		res.CurrentAction = schedule.ActionNotDueYet
		if next, ok := nextStep(steps, -1, completedSet); ok {
			res.NextAction = next.Action
			nd := close.AddDate(0, 0, next.Day)
			res.NextDueDate = &nd
		}
		return res, nil
	}

	// Effective step: if the nominal action was already completed, advance
	// to the first later step that is both due and uncompleted. Earlier
	// skipped steps are never re-reported; exactly one step is current at
	// a time.
	effective := steps[nominalIdx]
	alreadySent := false
	if completedSet[effective.Action] {
		alreadySent = true
		for i := nominalIdx + 1; i < len(steps); i++ {
			if daysSinceClose >= steps[i].Day && !completedSet[steps[i].Action] {
				effective = steps[i]
				alreadySent = false
				break
			}
		}
	}

	dueDate := close.AddDate(0, 0, effective.Day)
	rawOverdue := daysBetween(day, dueDate) - prog.GraceDays

	res.CurrentAction = effective.Action
	res.RecommendedLevel = effective.Level
	res.DueDate = dueDate
	res.DaysOverdue = max(0, rawOverdue)
	res.ActionAlreadySent = alreadySent
	// The sign check uses the unclamped overdue: a step due today with
	// zero grace must read as due.
	res.IsDueNow = !alreadySent && rawOverdue >= 0

	if next, ok := nextStepAfterDay(steps, effective.Day, completedSet); ok {
		res.NextAction = next.Action
		nd := close.AddDate(0, 0, next.Day)
		res.NextDueDate = &nd
	}

	return res, nil
}

// completedActions unions the explicit attempt-date fields with actions
// from sent communications, preserving a stable order: attempt fields
// first, then communications in log order, deduplicated.
func completedActions(rec Record) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(action string) {
		if action != "" && !seen[action] {
			seen[action] = true
			out = append(out, action)
		}
	}
	if rec.FirstAttempt != nil {
		add(schedule.ActionAttempt1)
	}
	if rec.SecondAttempt != nil {
		add(schedule.ActionAttempt2)
	}
	for _, comm := range rec.Communications {
		if comm.Status == types.CommStatusSent {
			add(comm.Action)
		}
	}
	return out
}

// nextStep returns the first uncompleted step at index > from.
func nextStep(steps []schedule.Step, from int, completed map[string]bool) (schedule.Step, bool) {
	for i := from + 1; i < len(steps); i++ {
		if !completed[steps[i].Action] {
			return steps[i], true
		}
	}
	return schedule.Step{}, false
}

// nextStepAfterDay returns the first uncompleted step with a later offset.
func nextStepAfterDay(steps []schedule.Step, day int, completed map[string]bool) (schedule.Step, bool) {
	for _, s := range steps {
		if s.Day > day && !completed[s.Action] {
			return s, true
		}
	}
	return schedule.Step{}, false
}
