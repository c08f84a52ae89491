package leave

import (
	"strings"
	"time"
)

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

// Terminal reports whether no further transition is allowed from s.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Label is the human-readable form used in pages and messages.
func (s Status) Label() string {
	switch s {
	case StatusApproved:
		return "Approved"
	case StatusRejected:
		return "Rejected"
	default:
		return "Pending"
	}
}

const (
	ActionApprove = "approve"
	ActionReject  = "reject"
)

// StatusForAction maps a decision link action to its terminal status.
// Only the exact value "approve" approves; every other value rejects.
func StatusForAction(action string) Status {
	if action == ActionApprove {
		return StatusApproved
	}
	return StatusRejected
}

// DefaultReason is recorded when a submission carries no reason.
const DefaultReason = "Not provided"

type LeaveDetails struct {
	LeaveType string `json:"leaveType"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Reason    string `json:"reason"`
}

type LeaveRequest struct {
	RequestID     string     `json:"requestId"`
	UserEmail     string     `json:"userEmail"`
	ApproverEmail string     `json:"approverEmail"`
	LeaveType     string     `json:"leaveType"`
	StartDate     string     `json:"startDate"`
	EndDate       string     `json:"endDate"`
	Reason        string     `json:"reason"`
	Status        Status     `json:"status"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	DecidedAt     *time.Time `json:"decidedAt,omitempty"`
}

func (r LeaveRequest) Details() LeaveDetails {
	return LeaveDetails{
		LeaveType: r.LeaveType,
		StartDate: r.StartDate,
		EndDate:   r.EndDate,
		Reason:    r.Reason,
	}
}

// SubmitInput is the client payload of a leave submission.
type SubmitInput struct {
	UserEmail string  `json:"userEmail"`
	LeaveType string  `json:"leaveType"`
	StartDate string  `json:"startDate"`
	EndDate   string  `json:"endDate"`
	Reason    *string `json:"reason,omitempty"`
}

// Details applies DefaultReason when Reason is absent or blank.
func (in SubmitInput) Details() LeaveDetails {
	reason := DefaultReason
	if in.Reason != nil && strings.TrimSpace(*in.Reason) != "" {
		reason = strings.TrimSpace(*in.Reason)
	}
	return LeaveDetails{
		LeaveType: strings.TrimSpace(in.LeaveType),
		StartDate: strings.TrimSpace(in.StartDate),
		EndDate:   strings.TrimSpace(in.EndDate),
		Reason:    reason,
	}
}

// WorkflowInput is the payload an approval workflow execution starts with.
type WorkflowInput struct {
	RequestID           string       `json:"requestId"`
	UserEmail           string       `json:"userEmail"`
	ApproverEmail       string       `json:"approverEmail"`
	LeaveDetails        LeaveDetails `json:"leaveDetails"`
	CallbackBaseAddress string       `json:"callbackBaseAddress"`
}

// WorkflowOutput is the payload a suspended approval task is resumed with.
type WorkflowOutput struct {
	ApprovalStatus Status `json:"approvalStatus"`
}

// ApprovalTask is everything needed to ask the approver for a decision.
type ApprovalTask struct {
	WorkflowInput
	DecisionToken string `json:"decisionToken"`
}

type OutcomeNotice struct {
	RequestID      string       `json:"requestId"`
	UserEmail      string       `json:"userEmail"`
	ApprovalStatus Status       `json:"approvalStatus"`
	LeaveDetails   LeaveDetails `json:"leaveDetails"`
}

// DecisionInput is what a decision link delivers back.
type DecisionInput struct {
	RequestID     string
	Action        string
	DecisionToken string
	AuthToken     string
}

type Decision struct {
	RequestID     string
	Status        Status
	DecisionToken string
	DecidedBy     string
}

// Confirmation describes the outcome shown to the approver after a decision.
type Confirmation struct {
	RequestID    string
	Status       Status
	DashboardURL string
}
