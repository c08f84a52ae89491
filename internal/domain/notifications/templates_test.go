package notifications

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestRenderApprovalIncludesLinksAndDetails(t *testing.T) {
	body, err := RenderApproval(ApprovalEmail{
		RequestID:  "LEAVE-1",
		UserEmail:  "alice@example.com",
		Details:    Details{LeaveType: "annual", StartDate: "2024-07-01", EndDate: "2024-07-05", Reason: "vacation", Days: 5},
		ApproveURL: "https://api.example.com/process-approval?requestId=LEAVE-1&action=approve&decisionToken=abc",
		RejectURL:  "https://api.example.com/process-approval?requestId=LEAVE-1&action=reject&decisionToken=abc",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{"annual", "2024-07-01", "2024-07-05", "vacation", "action=approve", "action=reject", "alice@example.com"} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected body to contain %q:\n%s", want, body)
		}
	}
}

func TestRenderApprovalEscapesUserInput(t *testing.T) {
	body, err := RenderApproval(ApprovalEmail{
		Details: Details{LeaveType: "annual", Reason: "<script>alert(1)</script>"},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(body, "<script>") {
		t.Fatalf("expected reason to be escaped:\n%s", body)
	}
}

func TestRenderOutcomeGreetsLocalPart(t *testing.T) {
	body, err := RenderOutcome(OutcomeEmail{
		UserEmail:    "alice@example.com",
		Status:       "Approved",
		Details:      Details{LeaveType: "annual", StartDate: "2024-07-01", EndDate: "2024-07-05", Reason: "Not provided"},
		DashboardURL: "https://hr.example.com/dashboard",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{"Hello alice,", "Approved", "Not provided", "https://hr.example.com/dashboard"} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected body to contain %q:\n%s", want, body)
		}
	}
}

func TestGreetingName(t *testing.T) {
	cases := map[string]string{
		"alice@example.com": "alice",
		"bob":               "bob",
		" carol@x.io ":      "carol",
	}
	for in, want := range cases {
		if got := GreetingName(in); got != want {
			t.Fatalf("GreetingName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMemoryMailerRecordsAndFails(t *testing.T) {
	m := &MemoryMailer{}
	if err := m.Send(context.Background(), Message{To: "a@example.com", Subject: "hi"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	m.Fail = func(Message) error { return errors.New("down") }
	if err := m.Send(context.Background(), Message{To: "b@example.com"}); err == nil {
		t.Fatal("expected failure")
	}
	if got := len(m.Sent()); got != 1 {
		t.Fatalf("expected 1 sent message, got %d", got)
	}
	if got := len(m.To("A@example.com")); got != 1 {
		t.Fatalf("expected case-insensitive recipient match, got %d", got)
	}
}
