// Package schedule holds the per-program compliance schedule catalog and the
// program-key normalizer. The catalog is static configuration: ordered
// outreach steps measured in days after close, a grace period, and the
// evidence categories the buyer must provide. It has no behavior beyond
// load-time validation.
package schedule

import (
	"fmt"
	"sort"
)

// Outreach action keys, in escalation order.
const (
	ActionAttempt1      = "ATTEMPT_1"
	ActionAttempt2      = "ATTEMPT_2"
	ActionWarning       = "WARNING"
	ActionDefaultNotice = "DEFAULT_NOTICE"

	// ActionNotDueYet is the sentinel the timing engine reports when no
	// schedule step has been reached.
	ActionNotDueYet = "NOT_DUE_YET"
)

// Step is one outreach step: Day calendar days after close, the action to
// take, and the recommended enforcement level (1-4).
type Step struct {
	Day    int    `json:"day"`
	Action string `json:"action"`
	Level  int    `json:"level"`
}

// Program is the compliance schedule for one disposition program.
type Program struct {
	Label   string `json:"label"`
	Cadence string `json:"cadence"` // informational only: "monthly", "quarterly", "milestones"
	Steps   []Step `json:"steps"`

	// GraceDays is the buffer after a step's due date before it counts
	// as overdue.
	GraceDays int `json:"grace_days"`

	RequiredUploads []string `json:"required_uploads"`
	RequiredDocs    []string `json:"required_docs"`
}

// SortedSteps returns a copy of the program's steps sorted ascending by day.
// The catalog is never mutated.
func (p Program) SortedSteps() []Step {
	steps := make([]Step, len(p.Steps))
	copy(steps, p.Steps)
	sort.SliceStable(steps, func(i, j int) bool { return steps[i].Day < steps[j].Day })
	return steps
}

// Catalog maps schedule keys to program definitions.
type Catalog map[string]Program

// Validate checks catalog invariants: at least one step per program, strictly
// increasing days, unique actions, levels in 1..4, non-negative grace. It is
// meant to run once at startup; the timing engine assumes a valid catalog.
func (c Catalog) Validate() error {
	for key, prog := range c {
		if len(prog.Steps) == 0 {
			return fmt.Errorf("schedule %s: no steps defined", key)
		}
		if prog.GraceDays < 0 {
			return fmt.Errorf("schedule %s: negative graceDays %d", key, prog.GraceDays)
		}
		seen := make(map[string]bool, len(prog.Steps))
		steps := prog.SortedSteps()
		for i, s := range steps {
			if s.Day < 0 {
				return fmt.Errorf("schedule %s: step %s has negative day %d", key, s.Action, s.Day)
			}
			if i > 0 && s.Day == steps[i-1].Day {
				return fmt.Errorf("schedule %s: duplicate offset day %d", key, s.Day)
			}
			if seen[s.Action] {
				return fmt.Errorf("schedule %s: duplicate action %s", key, s.Action)
			}
			seen[s.Action] = true
			if s.Level < 1 || s.Level > 4 {
				return fmt.Errorf("schedule %s: step %s level %d out of range 1..4", key, s.Action, s.Level)
			}
		}
	}
	return nil
}

// Default returns the land-bank schedule catalog for the four disposition
// programs.
func Default() Catalog {
	return Catalog{
		KeyFeaturedHomes: {
			Label:   "Featured Homes",
			Cadence: "monthly",
			Steps: []Step{
				{Day: 30, Action: ActionAttempt1, Level: 1},
				{Day: 60, Action: ActionAttempt2, Level: 2},
				{Day: 90, Action: ActionWarning, Level: 3},
				{Day: 120, Action: ActionDefaultNotice, Level: 4},
			},
			GraceDays: 3,
			RequiredUploads: []string{
				"Front Exterior", "Rear Exterior", "Kitchen", "Bathroom",
				"Living Area", "Bedroom", "Basement", "Active Work Area",
			},
			RequiredDocs: []string{"Permits (if applicable)", "Contracts (if applicable)"},
		},
		KeyReady4Rehab: {
			Label:   "Ready4Rehab",
			Cadence: "monthly",
			Steps: []Step{
				{Day: 30, Action: ActionAttempt1, Level: 1},
				{Day: 60, Action: ActionAttempt2, Level: 2},
				{Day: 90, Action: ActionWarning, Level: 3},
				{Day: 120, Action: ActionDefaultNotice, Level: 4},
			},
			GraceDays: 3,
			RequiredUploads: []string{
				"Front Exterior", "Rear Exterior", "Kitchen", "Bathroom",
				"Living Area", "Bedroom", "Basement", "Active Work Area",
			},
			RequiredDocs: []string{"Permits (if applicable)", "Contracts (if applicable)"},
		},
		KeyDemolition: {
			Label:   "Demolition",
			Cadence: "milestones",
			Steps: []Step{
				{Day: 14, Action: ActionAttempt1, Level: 1},
				{Day: 30, Action: ActionWarning, Level: 3},
				{Day: 45, Action: ActionDefaultNotice, Level: 4},
			},
			GraceDays:       0,
			RequiredUploads: []string{"Site Before", "During", "After"},
			RequiredDocs:    []string{"Contractor Agreement", "Disposal Receipt"},
		},
		KeyVIP: {
			Label:   "VIP",
			Cadence: "quarterly",
			Steps: []Step{
				{Day: 90, Action: ActionAttempt1, Level: 1},
				{Day: 120, Action: ActionAttempt2, Level: 2},
				{Day: 150, Action: ActionWarning, Level: 3},
				{Day: 180, Action: ActionDefaultNotice, Level: 4},
			},
			GraceDays:       5,
			RequiredUploads: []string{"Front Exterior", "Rear Exterior"},
			RequiredDocs:    []string{"Insurance Proof"},
		},
	}
}
