package leave

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"leaveflow/internal/domain/auth"
	"leaveflow/internal/domain/notifications"
	"leaveflow/internal/domain/workflow"
	"leaveflow/internal/platform/metrics"
	"leaveflow/internal/requestctx"
)

const (
	StrategyAsync  = "async"
	StrategyDirect = "direct"

	DecisionPath = "/process-approval"
)

// TokenIssuer signs and verifies authorization tokens. *auth.Issuer satisfies it.
type TokenIssuer interface {
	Issue(principal, scope string, ttl time.Duration) (string, error)
	Verify(token string) (auth.Principal, error)
}

// Counter receives named event counts. *metrics.Collector satisfies it.
type Counter interface {
	Inc(name string)
}

type Dependencies struct {
	Store   Store
	Mailer  notifications.Mailer
	Tokens  TokenIssuer
	Engine  workflow.Engine
	Metrics Counter
}

type Options struct {
	Strategy        string
	SenderAddress   string
	ApproverAddress string
	WorkflowID      string
	DashboardURL    string
	// DecisionLinkAuth embeds a decision-scoped authorization token in every
	// decision link so the approver does not need a bearer credential.
	DecisionLinkAuth bool
	DecisionLinkTTL  time.Duration
	Now              func() time.Time
}

// Protocol drives a leave request from submission to its terminal status.
// It holds no per-request state; every call is independent.
type Protocol struct {
	store    Store
	mailer   notifications.Mailer
	tokens   TokenIssuer
	metrics  Counter
	opts     Options
	ids      *IDGenerator
	strategy ApprovalStrategy
}

func NewProtocol(deps Dependencies, opts Options) (*Protocol, error) {
	if opts.Strategy == "" {
		opts.Strategy = StrategyAsync
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.DecisionLinkTTL <= 0 {
		opts.DecisionLinkTTL = 72 * time.Hour
	}

	var missing []string
	if deps.Store == nil {
		missing = append(missing, "TABLE_NAME")
	}
	if deps.Mailer == nil {
		missing = append(missing, "mailer")
	}
	if deps.Tokens == nil {
		missing = append(missing, "JWT_SECRET")
	}
	if strings.TrimSpace(opts.SenderAddress) == "" {
		missing = append(missing, "EMAIL_FROM")
	}
	if strings.TrimSpace(opts.ApproverAddress) == "" {
		missing = append(missing, "APPROVER_EMAIL")
	}
	switch opts.Strategy {
	case StrategyAsync:
		if strings.TrimSpace(opts.WorkflowID) == "" {
			missing = append(missing, "WORKFLOW_ID")
		}
		if deps.Engine == nil {
			missing = append(missing, "workflow engine")
		}
	case StrategyDirect:
	default:
		missing = append(missing, "APPROVAL_STRATEGY")
	}
	if len(missing) > 0 {
		return nil, &ConfigurationError{Missing: missing}
	}

	p := &Protocol{
		store:   deps.Store,
		mailer:  deps.Mailer,
		tokens:  deps.Tokens,
		metrics: deps.Metrics,
		opts:    opts,
		ids:     NewIDGenerator(opts.Now),
	}
	if opts.Strategy == StrategyDirect {
		p.strategy = &DirectApprovalStrategy{protocol: p}
	} else {
		p.strategy = &AsynchronousApprovalStrategy{engine: deps.Engine, workflowID: opts.WorkflowID}
	}
	return p, nil
}

func (p *Protocol) Strategy() string {
	return p.strategy.Name()
}

func (p *Protocol) inc(name string) {
	if p.metrics != nil {
		p.metrics.Inc(name)
	}
}

func (p *Protocol) depFailure(op string, err error) error {
	p.inc(metrics.DependencyFailures)
	return dependency(op, err)
}

// SubmitRequest validates the submission, stores it as PENDING and begins the
// approval. The record is not rolled back when the approval cannot begin.
func (p *Protocol) SubmitRequest(ctx context.Context, in SubmitInput, callbackBase string) (string, error) {
	if err := validateSubmission(in); err != nil {
		return "", err
	}
	details := in.Details()
	now := p.opts.Now().UTC()
	req := LeaveRequest{
		RequestID:     p.ids.Next(),
		UserEmail:     strings.TrimSpace(in.UserEmail),
		ApproverEmail: p.opts.ApproverAddress,
		LeaveType:     details.LeaveType,
		StartDate:     details.StartDate,
		EndDate:       details.EndDate,
		Reason:        details.Reason,
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := p.create(ctx, &req); err != nil {
		return "", p.depFailure("store leave request", err)
	}

	input := WorkflowInput{
		RequestID:           req.RequestID,
		UserEmail:           req.UserEmail,
		ApproverEmail:       req.ApproverEmail,
		LeaveDetails:        details,
		CallbackBaseAddress: strings.TrimRight(callbackBase, "/"),
	}
	if err := p.strategy.Begin(ctx, input); err != nil {
		requestctx.Logger(ctx).Error("approval could not begin; leave request left pending", "requestId", req.RequestID, "strategy", p.strategy.Name(), "err", err)
		return "", p.depFailure("begin approval", err)
	}
	p.inc(metrics.LeaveSubmitted)
	return req.RequestID, nil
}

// maxIDAttempts bounds how often a colliding request id is replaced. Ids only
// increase within one process, so another instance can mint the same one.
const maxIDAttempts = 3

func (p *Protocol) create(ctx context.Context, req *LeaveRequest) error {
	var err error
	for attempt := 1; attempt <= maxIDAttempts; attempt++ {
		if attempt > 1 {
			req.RequestID = p.ids.Next()
		}
		if err = p.store.Create(ctx, *req); !errors.Is(err, ErrDuplicateID) {
			return err
		}
		requestctx.Logger(ctx).Warn("leave request id taken, retrying", "requestId", req.RequestID, "attempt", attempt)
	}
	return err
}

// DispatchApproverNotification sends the approver one message carrying an
// approve link and a reject link for the task.
func (p *Protocol) DispatchApproverNotification(ctx context.Context, task ApprovalTask) error {
	approveURL, err := p.decisionLink(task, ActionApprove)
	if err != nil {
		return p.depFailure("issue decision link", err)
	}
	rejectURL, err := p.decisionLink(task, ActionReject)
	if err != nil {
		return p.depFailure("issue decision link", err)
	}
	body, err := notifications.RenderApproval(notifications.ApprovalEmail{
		RequestID:  task.RequestID,
		UserEmail:  task.UserEmail,
		Details:    noticeDetails(task.LeaveDetails),
		ApproveURL: approveURL,
		RejectURL:  rejectURL,
	})
	if err != nil {
		return p.depFailure("render approval email", err)
	}
	msg := notifications.Message{
		From:    p.opts.SenderAddress,
		To:      task.ApproverEmail,
		Subject: notifications.SubjectApprovalRequest,
		HTML:    body,
	}
	if err := p.mailer.Send(ctx, msg); err != nil {
		return p.depFailure("send approval email", err)
	}
	p.inc(metrics.ApprovalEmailsSent)
	requestctx.Logger(ctx).Info("approval requested", "requestId", task.RequestID, "approver", task.ApproverEmail)
	return nil
}

func (p *Protocol) decisionLink(task ApprovalTask, action string) (string, error) {
	q := url.Values{}
	q.Set("requestId", task.RequestID)
	q.Set("action", action)
	q.Set("decisionToken", task.DecisionToken)
	if p.opts.DecisionLinkAuth {
		token, err := p.tokens.Issue(task.ApproverEmail, auth.DecisionScope(task.RequestID), p.opts.DecisionLinkTTL)
		if err != nil {
			return "", err
		}
		q.Set("authToken", token)
	}
	return task.CallbackBaseAddress + DecisionPath + "?" + q.Encode(), nil
}

// IntakeDecision checks a decision link and hands the outcome to the approval
// strategy. It never writes the leave record itself and does not consult the
// stored status first: rejecting a replayed link is the strategy's job.
func (p *Protocol) IntakeDecision(ctx context.Context, in DecisionInput) (Confirmation, error) {
	if err := validateDecision(in); err != nil {
		return Confirmation{}, err
	}
	requestID := strings.TrimSpace(in.RequestID)
	principal, err := p.tokens.Verify(in.AuthToken)
	if err != nil {
		p.inc(metrics.DecisionsUnauthorized)
		return Confirmation{}, unauthorized(err)
	}
	if auth.IsDecisionScope(principal.Scope) && principal.Scope != auth.DecisionScope(requestID) {
		p.inc(metrics.DecisionsUnauthorized)
		return Confirmation{}, unauthorized(errors.New("token is scoped to another leave request"))
	}

	status := StatusForAction(in.Action)
	err = p.strategy.Decide(ctx, Decision{
		RequestID:     requestID,
		Status:        status,
		DecisionToken: strings.TrimSpace(in.DecisionToken),
		DecidedBy:     principal.Subject,
	})
	switch {
	case err == nil:
	case errors.Is(err, ErrUnauthorized):
		p.inc(metrics.DecisionsUnauthorized)
		return Confirmation{}, err
	default:
		p.inc(metrics.DecisionsRejected)
		return Confirmation{}, p.depFailure("resume approval", err)
	}
	p.inc(metrics.DecisionsAccepted)
	requestctx.Logger(ctx).Info("decision accepted", "requestId", requestID, "status", status, "decidedBy", principal.Subject)
	return Confirmation{RequestID: requestID, Status: status, DashboardURL: p.opts.DashboardURL}, nil
}

// ResolveRequest records a decision made through an authenticated API call
// rather than a decision link. Only the direct strategy supports it.
func (p *Protocol) ResolveRequest(ctx context.Context, requestID string, status Status, decidedBy string) (Confirmation, error) {
	if p.strategy.Name() != StrategyDirect {
		return Confirmation{}, ErrUnsupported
	}
	if !status.Terminal() {
		return Confirmation{}, &ValidationError{Message: "Invalid decision", Fields: []FieldIssue{{Field: "status", Reason: "must be APPROVED or REJECTED"}}}
	}
	req, err := p.GetRequest(ctx, requestID)
	if err != nil {
		return Confirmation{}, err
	}
	if err := p.RecordOutcome(ctx, OutcomeNotice{
		RequestID:      req.RequestID,
		UserEmail:      req.UserEmail,
		ApprovalStatus: status,
		LeaveDetails:   req.Details(),
	}); err != nil {
		return Confirmation{}, err
	}
	requestctx.Logger(ctx).Info("decision recorded", "requestId", requestID, "status", status, "decidedBy", decidedBy)
	return Confirmation{RequestID: req.RequestID, Status: status, DashboardURL: p.opts.DashboardURL}, nil
}

// NotifyOutcome tells the submitter how their request was decided.
func (p *Protocol) NotifyOutcome(ctx context.Context, notice OutcomeNotice) error {
	body, err := notifications.RenderOutcome(notifications.OutcomeEmail{
		UserEmail:    notice.UserEmail,
		Status:       notice.ApprovalStatus.Label(),
		Details:      noticeDetails(notice.LeaveDetails),
		DashboardURL: p.opts.DashboardURL,
	})
	if err != nil {
		return p.depFailure("render outcome email", err)
	}
	msg := notifications.Message{
		From:    p.opts.SenderAddress,
		To:      notice.UserEmail,
		Subject: notifications.SubjectOutcome,
		HTML:    body,
	}
	if err := p.mailer.Send(ctx, msg); err != nil {
		return p.depFailure("send outcome email", err)
	}
	p.inc(metrics.OutcomeEmailsSent)
	return nil
}

// RecordStatus performs the single status write of a request. ErrAlreadyDecided
// and ErrNotFound are returned unwrapped.
func (p *Protocol) RecordStatus(ctx context.Context, requestID string, status Status) error {
	err := p.store.UpdateStatus(ctx, requestID, status)
	switch {
	case err == nil:
	case errors.Is(err, ErrAlreadyDecided), errors.Is(err, ErrNotFound):
		return err
	default:
		return p.depFailure("update leave status", err)
	}
	p.inc(metrics.OutcomesRecorded)
	requestctx.Logger(ctx).Info("leave request decided", "requestId", requestID, "status", status)
	return nil
}

// RecordOutcome writes the terminal status, then notifies the submitter.
// Nothing is sent when the write fails.
func (p *Protocol) RecordOutcome(ctx context.Context, notice OutcomeNotice) error {
	if err := p.RecordStatus(ctx, notice.RequestID, notice.ApprovalStatus); err != nil {
		return err
	}
	return p.NotifyOutcome(ctx, notice)
}

func (p *Protocol) GetRequest(ctx context.Context, requestID string) (LeaveRequest, error) {
	req, err := p.store.Get(ctx, strings.TrimSpace(requestID))
	if errors.Is(err, ErrNotFound) {
		return LeaveRequest{}, err
	}
	if err != nil {
		return LeaveRequest{}, p.depFailure("load leave request", err)
	}
	return req, nil
}

// Ready reports whether the leave store is reachable.
func (p *Protocol) Ready(ctx context.Context) error {
	return p.store.Ping(ctx)
}

func noticeDetails(d LeaveDetails) notifications.Details {
	return notifications.Details{
		LeaveType: d.LeaveType,
		StartDate: d.StartDate,
		EndDate:   d.EndDate,
		Reason:    d.Reason,
		Days:      DetailsDays(d),
	}
}
