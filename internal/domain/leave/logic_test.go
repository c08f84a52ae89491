package leave

import (
	"errors"
	"testing"
	"time"
)

func TestCalculateDays(t *testing.T) {
	start := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

	days, err := CalculateDays(start, end)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if days != 1 {
		t.Fatalf("expected 1 day, got %v", days)
	}

	end = time.Date(2025, 1, 12, 0, 0, 0, 0, time.UTC)
	days, err = CalculateDays(start, end)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if days != 3 {
		t.Fatalf("expected 3 days, got %v", days)
	}
}

func TestCalculateDaysUsesCalendarDates(t *testing.T) {
	plus5 := time.FixedZone("UTC+5", 5*3600)
	start := time.Date(2025, 1, 10, 2, 0, 0, 0, plus5)
	end := time.Date(2025, 1, 11, 23, 0, 0, 0, plus5)

	days, err := CalculateDays(start, end)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if days != 2 {
		t.Fatalf("expected 2 days, got %d", days)
	}
}

func TestParseDateRequiresCalendarDate(t *testing.T) {
	if _, err := ParseDate("2025-04-01"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, value := range []string{"2025-04-01T10:00:00Z", "2025-04-01T10:00:00+05:00", "01/04/2025"} {
		if _, err := ParseDate(value); err == nil {
			t.Fatalf("expected %q to be rejected", value)
		}
	}
}

func TestValidateSubmissionRejectsTimestamps(t *testing.T) {
	err := validateSubmission(SubmitInput{UserEmail: "a@x.com", LeaveType: "Vacation", StartDate: "2025-04-01T00:00:00Z", EndDate: "2025-04-05"})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCalculateDaysInvalid(t *testing.T) {
	start := time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 2, 9, 0, 0, 0, 0, time.UTC)

	if _, err := CalculateDays(start, end); err == nil {
		t.Fatal("expected error for invalid range")
	}
}

func TestDetailsDays(t *testing.T) {
	if got := DetailsDays(LeaveDetails{StartDate: "2025-04-01", EndDate: "2025-04-05"}); got != 5 {
		t.Fatalf("expected 5 days, got %d", got)
	}
	if got := DetailsDays(LeaveDetails{StartDate: "soon", EndDate: "2025-04-05"}); got != 0 {
		t.Fatalf("expected 0 for unparseable dates, got %d", got)
	}
}

func TestValidateSubmissionMissingFields(t *testing.T) {
	err := validateSubmission(SubmitInput{UserEmail: "a@x.com"})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(vErr.Fields) != 3 {
		t.Fatalf("expected 3 missing fields, got %+v", vErr.Fields)
	}
	if !errors.Is(err, ErrValidation) {
		t.Fatal("expected ErrValidation identity")
	}
}

func TestValidateSubmissionDateOrder(t *testing.T) {
	err := validateSubmission(SubmitInput{UserEmail: "a@x.com", LeaveType: "Vacation", StartDate: "2025-04-05", EndDate: "2025-04-01"})
	var vErr *ValidationError
	if !errors.As(err, &vErr) || len(vErr.Fields) != 2 {
		t.Fatalf("expected date order issues, got %v", err)
	}
}

func TestValidateDecision(t *testing.T) {
	if err := validateDecision(DecisionInput{RequestID: "LEAVE-1", Action: "approve", DecisionToken: "tok"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := validateDecision(DecisionInput{RequestID: "LEAVE-1", Action: "approve"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestStatusForAction(t *testing.T) {
	cases := map[string]Status{
		"approve":   StatusApproved,
		"APPROVE":   StatusRejected,
		"Approve":   StatusRejected,
		" approve ": StatusRejected,
		"reject":    StatusRejected,
		"maybe":     StatusRejected,
	}
	for action, want := range cases {
		if got := StatusForAction(action); got != want {
			t.Fatalf("action %q: expected %s, got %s", action, want, got)
		}
	}
}

func TestSubmitInputDetailsDefaultsReason(t *testing.T) {
	if got := (SubmitInput{}).Details().Reason; got != DefaultReason {
		t.Fatalf("expected default reason, got %q", got)
	}
	blank := "  "
	if got := (SubmitInput{Reason: &blank}).Details().Reason; got != DefaultReason {
		t.Fatalf("expected default reason for blank, got %q", got)
	}
	reason := "Family trip"
	if got := (SubmitInput{Reason: &reason}).Details().Reason; got != reason {
		t.Fatalf("expected %q, got %q", reason, got)
	}
}
