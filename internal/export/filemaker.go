// Package export produces flat compliance records for the legacy FileMaker
// database. The mirror is fire-and-forget from the portal's perspective:
// this package only emits stable, named fields; transport into FileMaker
// happens downstream.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/matthewbaird/landbank/internal/timing"
	"github.com/matthewbaird/landbank/internal/types"
)

// FlatRecord is one property's compliance snapshot, flattened for import.
// Date fields are ISO dates or empty.
type FlatRecord struct {
	ParcelID              string `json:"parcelId"`
	Address               string `json:"address"`
	BuyerName             string `json:"buyerName"`
	BuyerEmail            string `json:"buyerEmail"`
	ProgramType           string `json:"programType"`
	DateSold              string `json:"dateSold"`
	EnforcementLevel      int    `json:"enforcementLevel"`
	FirstAttempt          string `json:"compliance1stAttempt"`
	SecondAttempt         string `json:"compliance2ndAttempt"`
	LastContactDate       string `json:"lastContactDate"`
	CurrentAction         string `json:"currentAction"`
	DueDate               string `json:"dueDate"`
	DaysOverdue           string `json:"daysOverdue"` // empty when timing failed
	IsDueNow              bool   `json:"isDueNow"`
	CommunicationCount    int    `json:"communicationCount"`
	LastCommunicationDate string `json:"lastCommunicationDate"`
}

// fieldMap translates portal field names to the FileMaker layout's column
// names. This is the single source of truth for the mirror side.
var fieldMap = map[string]string{
	"parcelId":              "ParcelID",
	"address":               "Property_Address",
	"buyerName":             "Buyer_Name",
	"buyerEmail":            "Buyer_Email",
	"programType":           "Program_Type",
	"dateSold":              "Date_Sold",
	"enforcementLevel":      "Enforcement_Level",
	"compliance1stAttempt":  "Compliance_1st_Attempt",
	"compliance2ndAttempt":  "Compliance_2nd_Attempt",
	"lastContactDate":       "Last_Contact_Date",
	"currentAction":         "Current_Action",
	"dueDate":               "Due_Date",
	"daysOverdue":           "Days_Overdue",
	"isDueNow":              "Is_Due_Now",
	"communicationCount":    "Communication_Count",
	"lastCommunicationDate": "Last_Communication_Date",
}

func isoDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func isoDatePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return isoDate(*t)
}

// lastCommunicationDate returns the most recent communication date, or empty.
func lastCommunicationDate(comms []types.Communication) string {
	var latest time.Time
	for _, c := range comms {
		when := c.CreatedAt
		if c.SentAt != nil {
			when = *c.SentAt
		}
		if when.After(latest) {
			latest = when
		}
	}
	return isoDate(latest)
}

// Flatten builds one FlatRecord from a property, its communication log, and
// its timing result. A nil timing result (computation failed) leaves the
// derived fields empty rather than dropping the record from the mirror.
func Flatten(p types.Property, comms []types.Communication, t *timing.Result) FlatRecord {
	rec := FlatRecord{
		ParcelID:              p.ParcelID,
		Address:               p.Address,
		BuyerName:             p.BuyerName,
		BuyerEmail:            p.BuyerEmail,
		ProgramType:           p.ProgramType,
		DateSold:              isoDate(p.CloseDate),
		EnforcementLevel:      p.EnforcementLevel,
		FirstAttempt:          isoDatePtr(p.FirstAttempt),
		SecondAttempt:         isoDatePtr(p.SecondAttempt),
		LastContactDate:       isoDatePtr(p.LastContactDate),
		CommunicationCount:    len(comms),
		LastCommunicationDate: lastCommunicationDate(comms),
	}
	if t != nil {
		rec.CurrentAction = t.CurrentAction
		rec.DueDate = isoDate(t.DueDate)
		rec.DaysOverdue = fmt.Sprintf("%d", t.DaysOverdue)
		rec.IsDueNow = t.IsDueNow
	}
	return rec
}

// csvHeader fixes the column order for CSV exports.
var csvHeader = []string{
	"parcelId", "address", "buyerName", "buyerEmail", "programType", "dateSold",
	"enforcementLevel", "compliance1stAttempt", "compliance2ndAttempt",
	"lastContactDate", "currentAction", "dueDate", "daysOverdue", "isDueNow",
	"communicationCount", "lastCommunicationDate",
}

func (r FlatRecord) csvRow() []string {
	isDue := "NO"
	if r.IsDueNow {
		isDue = "YES"
	}
	return []string{
		r.ParcelID, r.Address, r.BuyerName, r.BuyerEmail, r.ProgramType, r.DateSold,
		fmt.Sprintf("%d", r.EnforcementLevel), r.FirstAttempt, r.SecondAttempt,
		r.LastContactDate, r.CurrentAction, r.DueDate, r.DaysOverdue, isDue,
		fmt.Sprintf("%d", r.CommunicationCount), r.LastCommunicationDate,
	}
}

// GenerateCSV renders records as FileMaker-importable CSV with a header row.
func GenerateCSV(records []FlatRecord) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return "", fmt.Errorf("writing csv header: %w", err)
	}
	for _, rec := range records {
		if err := w.Write(rec.csvRow()); err != nil {
			return "", fmt.Errorf("writing csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// GenerateJSON renders records as pretty-printed JSON with portal field names.
func GenerateJSON(records []FlatRecord) (string, error) {
	b, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ToFileMakerFields translates a FlatRecord into the FileMaker layout's
// column names, for callers that push directly to the FM Data API.
func (r FlatRecord) ToFileMakerFields() map[string]string {
	portal := map[string]string{
		"parcelId":              r.ParcelID,
		"address":               r.Address,
		"buyerName":             r.BuyerName,
		"buyerEmail":            r.BuyerEmail,
		"programType":           r.ProgramType,
		"dateSold":              r.DateSold,
		"enforcementLevel":      fmt.Sprintf("%d", r.EnforcementLevel),
		"compliance1stAttempt":  r.FirstAttempt,
		"compliance2ndAttempt":  r.SecondAttempt,
		"lastContactDate":       r.LastContactDate,
		"currentAction":         r.CurrentAction,
		"dueDate":               r.DueDate,
		"daysOverdue":           r.DaysOverdue,
		"isDueNow":              map[bool]string{true: "YES", false: "NO"}[r.IsDueNow],
		"communicationCount":    fmt.Sprintf("%d", r.CommunicationCount),
		"lastCommunicationDate": r.LastCommunicationDate,
	}
	out := make(map[string]string, len(portal))
	for field, val := range portal {
		out[fieldMap[field]] = val
	}
	return out
}

// FieldNames returns the FileMaker column names in a stable order, useful
// for layout discovery checks.
func FieldNames() []string {
	out := make([]string, 0, len(fieldMap))
	for _, fm := range fieldMap {
		out = append(out, fm)
	}
	sort.Strings(out)
	return out
}
