package leave

import (
	"bytes"
	"testing"
	"time"
)

func TestWriteSummaryPDF(t *testing.T) {
	decided := time.Date(2025, 4, 2, 9, 30, 0, 0, time.UTC)
	var buf bytes.Buffer
	err := WriteSummaryPDF(&buf, LeaveRequest{
		RequestID: "LEAVE-1", UserEmail: "a@x.com", ApproverEmail: "boss@x.com",
		LeaveType: "Vacation", StartDate: "2025-04-01", EndDate: "2025-04-05", Reason: DefaultReason,
		Status: StatusApproved, DecidedAt: &decided,
	})
	if err != nil {
		t.Fatalf("pdf: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Fatalf("expected PDF output, got %q", buf.Bytes()[:min(16, buf.Len())])
	}
}
