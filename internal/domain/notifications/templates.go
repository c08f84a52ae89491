package notifications

import (
	"bytes"
	"html/template"
	"strings"
)

const (
	SubjectApprovalRequest = "Leave Approval Request"
	SubjectOutcome         = "Leave Request Outcome"
)

type Details struct {
	LeaveType string
	StartDate string
	EndDate   string
	Reason    string
	Days      int
}

type ApprovalEmail struct {
	RequestID  string
	UserEmail  string
	Details    Details
	ApproveURL string
	RejectURL  string
}

type OutcomeEmail struct {
	UserEmail    string
	Status       string
	Details      Details
	DashboardURL string
}

// Greeting is the local part of an email address, or the whole value when it
// has no '@'.
func (o OutcomeEmail) Greeting() string {
	return GreetingName(o.UserEmail)
}

func GreetingName(email string) string {
	local, _, _ := strings.Cut(strings.TrimSpace(email), "@")
	return local
}

var templates = template.Must(template.New("details").Parse(`
<table style="border-collapse:collapse">
  <tr><td><strong>Leave Type:</strong></td><td>{{.LeaveType}}</td></tr>
  <tr><td><strong>Start Date:</strong></td><td>{{.StartDate}}</td></tr>
  <tr><td><strong>End Date:</strong></td><td>{{.EndDate}}</td></tr>
  {{- if .Days}}
  <tr><td><strong>Days:</strong></td><td>{{.Days}}</td></tr>
  {{- end}}
  <tr><td><strong>Reason:</strong></td><td>{{.Reason}}</td></tr>
</table>`))

func init() {
	template.Must(templates.New("approval").Parse(`<html>
<body>
  <h2>Leave Approval Request</h2>
  <p>{{.UserEmail}} has requested leave ({{.RequestID}}).</p>
  {{template "details" .Details}}
  <p>
    <a href="{{.ApproveURL}}">Approve</a> |
    <a href="{{.RejectURL}}">Reject</a>
  </p>
</body>
</html>`))
	template.Must(templates.New("outcome").Parse(`<html>
<body>
  <h2>Leave Request Outcome</h2>
  <p>Hello {{.Greeting}},</p>
  <p>Your leave request has been <strong>{{.Status}}</strong>.</p>
  {{template "details" .Details}}
  {{- if .DashboardURL}}
  <p><a href="{{.DashboardURL}}">View your dashboard</a></p>
  {{- end}}
</body>
</html>`))
}

func RenderApproval(data ApprovalEmail) (string, error) {
	return render("approval", data)
}

func RenderOutcome(data OutcomeEmail) (string, error) {
	return render("outcome", data)
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
