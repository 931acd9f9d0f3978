package timing

import (
	"log"
	"sort"
	"time"

	"github.com/matthewbaird/landbank/internal/schedule"
)

// RankByUrgency computes timing for every record and returns the results
// ordered by days overdue, most urgent first. Records that fail to compute
// are excluded and logged; one bad record never aborts the batch. Ties keep
// input order.
func RankByUrgency(records []Record, cat schedule.Catalog, today time.Time) []Result {
	results := make([]Result, 0, len(records))
	for _, rec := range records {
		res, err := Compute(rec, cat, today)
		if err != nil {
			log.Printf("timing: excluding property %s from ranking: %v", rec.PropertyID, err)
			continue
		}
		results = append(results, res)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].DaysOverdue > results[j].DaysOverdue
	})
	return results
}

// Stats summarises a batch of timing results for the dashboard.
type Stats struct {
	Total       int            `json:"total"`
	DueNow      int            `json:"due_now"`
	Overdue     int            `json:"overdue"` // due now and past grace
	AlreadySent int            `json:"already_sent"`
	NotDueYet   int            `json:"not_due_yet"`
	ByProgram   map[string]int `json:"by_program"`
	ByAction    map[string]int `json:"by_action"`
}

// Summarize folds timing results into dashboard counters.
func Summarize(results []Result) Stats {
	s := Stats{
		ByProgram: make(map[string]int),
		ByAction:  make(map[string]int),
	}
	for _, r := range results {
		s.Total++
		s.ByProgram[r.ProgramLabel]++
		s.ByAction[r.CurrentAction]++
		switch {
		case r.CurrentAction == schedule.ActionNotDueYet:
			s.NotDueYet++
		case r.ActionAlreadySent:
			s.AlreadySent++
		case r.IsDueNow:
			s.DueNow++
			if r.DaysOverdue > 0 {
				s.Overdue++
			}
		}
	}
	return s
}
