package leave

import (
	"errors"
	"sort"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// ParseDate accepts a calendar date in YYYY-MM-DD form only.
func ParseDate(value string) (time.Time, error) {
	return time.Parse(dateLayout, value)
}

// CalculateDays returns the inclusive day count between the calendar dates of
// start and end, each taken in its own location.
func CalculateDays(start, end time.Time) (int, error) {
	start = calendarDay(start)
	end = calendarDay(end)
	if end.Before(start) {
		return 0, errors.New("end date before start date")
	}
	return int(end.Sub(start).Hours()/24) + 1, nil
}

func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DetailsDays is the inclusive length of a leave, or 0 when the dates do not parse.
func DetailsDays(d LeaveDetails) int {
	start, err := ParseDate(d.StartDate)
	if err != nil {
		return 0
	}
	end, err := ParseDate(d.EndDate)
	if err != nil {
		return 0
	}
	days, err := CalculateDays(start, end)
	if err != nil {
		return 0
	}
	return days
}

type validator struct {
	issues []FieldIssue
}

func newValidator() *validator {
	return &validator{issues: make([]FieldIssue, 0, 4)}
}

func (v *validator) add(field, reason string) {
	v.issues = append(v.issues, FieldIssue{Field: field, Reason: reason})
}

func (v *validator) required(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.add(field, "is required")
	}
}

func (v *validator) date(field, raw string) (time.Time, bool) {
	parsed, err := ParseDate(strings.TrimSpace(raw))
	if err != nil || parsed.IsZero() {
		v.add(field, "must be a valid date in YYYY-MM-DD format")
		return time.Time{}, false
	}
	return parsed, true
}

func (v *validator) dateOrder(startField string, start time.Time, endField string, end time.Time) {
	if end.Before(start) {
		v.add(startField, "must be on or before "+endField)
		v.add(endField, "must be on or after "+startField)
	}
}

func (v *validator) err(message string) error {
	if len(v.issues) == 0 {
		return nil
	}
	out := make([]FieldIssue, len(v.issues))
	copy(out, v.issues)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return &ValidationError{Message: message, Fields: out}
}

func validateSubmission(in SubmitInput) error {
	v := newValidator()
	v.required("userEmail", in.UserEmail)
	v.required("leaveType", in.LeaveType)
	v.required("startDate", in.StartDate)
	v.required("endDate", in.EndDate)
	if err := v.err("Missing required fields"); err != nil {
		return err
	}

	start, okStart := v.date("startDate", in.StartDate)
	end, okEnd := v.date("endDate", in.EndDate)
	if okStart && okEnd {
		v.dateOrder("startDate", start, "endDate", end)
	}
	return v.err("Invalid leave dates")
}

func validateDecision(in DecisionInput) error {
	v := newValidator()
	v.required("requestId", in.RequestID)
	v.required("action", in.Action)
	v.required("decisionToken", in.DecisionToken)
	return v.err("Missing required query parameters")
}
