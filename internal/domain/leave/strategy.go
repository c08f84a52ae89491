package leave

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"leaveflow/internal/domain/auth"
	"leaveflow/internal/domain/workflow"
	"leaveflow/internal/requestctx"
)

// ApprovalStrategy decides how a stored request reaches its approver and how
// the approver's decision is applied.
type ApprovalStrategy interface {
	Name() string
	Begin(ctx context.Context, input WorkflowInput) error
	Decide(ctx context.Context, d Decision) error
}

// AsynchronousApprovalStrategy hands the request to a workflow engine that
// suspends on a task token until the decision arrives.
type AsynchronousApprovalStrategy struct {
	engine     workflow.Engine
	workflowID string
}

func (s *AsynchronousApprovalStrategy) Name() string { return StrategyAsync }

func (s *AsynchronousApprovalStrategy) Begin(ctx context.Context, input WorkflowInput) error {
	payload, err := json.Marshal(input)
	if err != nil {
		return err
	}
	executionID, err := s.engine.Start(ctx, s.workflowID, payload)
	if err != nil {
		return fmt.Errorf("start workflow %s: %w", s.workflowID, err)
	}
	requestctx.Logger(ctx).Info("approval workflow started", "requestId", input.RequestID, "executionId", executionID)
	return nil
}

func (s *AsynchronousApprovalStrategy) Decide(ctx context.Context, d Decision) error {
	payload, err := json.Marshal(WorkflowOutput{ApprovalStatus: d.Status})
	if err != nil {
		return err
	}
	return s.engine.Resume(ctx, d.DecisionToken, payload)
}

// DirectApprovalStrategy skips the workflow engine. The decision token is a
// signed token scoped to the request and the status write happens while the
// decision request is being served. Replays are stopped by the conditional
// status write.
type DirectApprovalStrategy struct {
	protocol *Protocol
}

func (s *DirectApprovalStrategy) Name() string { return StrategyDirect }

func (s *DirectApprovalStrategy) Begin(ctx context.Context, input WorkflowInput) error {
	p := s.protocol
	token, err := p.tokens.Issue(input.RequestID, auth.DecisionScope(input.RequestID), p.opts.DecisionLinkTTL)
	if err != nil {
		return fmt.Errorf("issue decision token: %w", err)
	}
	return p.DispatchApproverNotification(ctx, ApprovalTask{WorkflowInput: input, DecisionToken: token})
}

func (s *DirectApprovalStrategy) Decide(ctx context.Context, d Decision) error {
	p := s.protocol
	principal, err := p.tokens.Verify(d.DecisionToken)
	if err != nil {
		return unauthorized(fmt.Errorf("decision token: %w", err))
	}
	if principal.Scope != auth.DecisionScope(d.RequestID) {
		return unauthorized(errors.New("decision token is scoped to another leave request"))
	}
	req, err := p.store.Get(ctx, d.RequestID)
	if err != nil {
		return err
	}
	return p.RecordOutcome(ctx, OutcomeNotice{
		RequestID:      req.RequestID,
		UserEmail:      req.UserEmail,
		ApprovalStatus: d.Status,
		LeaveDetails:   req.Details(),
	})
}
