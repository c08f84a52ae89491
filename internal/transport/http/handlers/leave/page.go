package leavehandler

import (
	"html/template"
	"log/slog"
	"net/http"

	"leaveflow/internal/domain/leave"
)

var confirmationPage = template.Must(template.New("confirmation").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Leave Request {{.Label}}</title></head>
<body style="font-family:sans-serif">
  <h1>Leave Request {{.Label}}</h1>
  <p>Leave request <strong>{{.RequestID}}</strong> has been {{.Label}} ({{.Status}}).</p>
  {{- if .DashboardURL}}
  <p><a href="{{.DashboardURL}}">Open dashboard</a></p>
  {{- end}}
</body>
</html>`))

type confirmationView struct {
	RequestID    string
	Status       leave.Status
	Label        string
	DashboardURL string
}

func renderConfirmation(w http.ResponseWriter, conf leave.Confirmation) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	err := confirmationPage.Execute(w, confirmationView{
		RequestID:    conf.RequestID,
		Status:       conf.Status,
		Label:        conf.Status.Label(),
		DashboardURL: conf.DashboardURL,
	})
	if err != nil {
		slog.Warn("render confirmation failed", "requestId", conf.RequestID, "err", err)
	}
}
