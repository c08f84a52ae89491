package leave

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"
)

// WriteSummaryPDF renders a one-page summary of req.
func WriteSummaryPDF(w io.Writer, req LeaveRequest) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Leave Request")
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Request: %s", req.RequestID))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Employee: %s", req.UserEmail))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Approver: %s", req.ApproverEmail))
	pdf.Ln(10)
	pdf.Cell(0, 8, fmt.Sprintf("Leave Type: %s", req.LeaveType))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Period: %s to %s (%d days)", req.StartDate, req.EndDate, DetailsDays(req.Details())))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Reason: %s", req.Reason))
	pdf.Ln(10)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Status: %s", req.Status.Label()))
	if req.DecidedAt != nil {
		pdf.Ln(7)
		pdf.SetFont("Helvetica", "", 12)
		pdf.Cell(0, 8, fmt.Sprintf("Decided: %s", req.DecidedAt.UTC().Format("2006-01-02 15:04 MST")))
	}
	return pdf.Output(w)
}
