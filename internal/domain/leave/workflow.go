package leave

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"leaveflow/internal/domain/workflow"
)

const (
	StepRequestApproval = "request-approval"
	StepRecordOutcome   = "record-outcome"
	StepNotifyOutcome   = "notify-outcome"
)

// Definition is the approval workflow run by the engine: ask the approver and
// wait, write the decided status, then tell the submitter.
func (p *Protocol) Definition(id string) workflow.Definition {
	return workflow.Definition{
		ID: id,
		Steps: []workflow.Step{
			{Name: StepRequestApproval, WaitForTask: true, Run: p.requestApprovalStep},
			{Name: StepRecordOutcome, Run: p.recordOutcomeStep},
			{Name: StepNotifyOutcome, Run: p.notifyOutcomeStep},
		},
	}
}

func (p *Protocol) requestApprovalStep(ctx context.Context, in workflow.StepInput) error {
	var input WorkflowInput
	if err := json.Unmarshal(in.Input, &input); err != nil {
		return workflow.Permanent(fmt.Errorf("decode workflow input: %w", err))
	}
	return p.DispatchApproverNotification(ctx, ApprovalTask{WorkflowInput: input, DecisionToken: in.TaskToken})
}

func (p *Protocol) recordOutcomeStep(ctx context.Context, in workflow.StepInput) error {
	notice, err := outcomeNotice(in)
	if err != nil {
		return workflow.Permanent(err)
	}
	err = p.RecordStatus(ctx, notice.RequestID, notice.ApprovalStatus)
	if errors.Is(err, ErrAlreadyDecided) || errors.Is(err, ErrNotFound) {
		return workflow.Permanent(err)
	}
	return err
}

func (p *Protocol) notifyOutcomeStep(ctx context.Context, in workflow.StepInput) error {
	notice, err := outcomeNotice(in)
	if err != nil {
		return workflow.Permanent(err)
	}
	return p.NotifyOutcome(ctx, notice)
}

func outcomeNotice(in workflow.StepInput) (OutcomeNotice, error) {
	var input WorkflowInput
	if err := json.Unmarshal(in.Input, &input); err != nil {
		return OutcomeNotice{}, fmt.Errorf("decode workflow input: %w", err)
	}
	var output WorkflowOutput
	if len(in.Output) > 0 {
		if err := json.Unmarshal(in.Output, &output); err != nil {
			return OutcomeNotice{}, fmt.Errorf("decode workflow output: %w", err)
		}
	}
	if !output.ApprovalStatus.Terminal() {
		return OutcomeNotice{}, fmt.Errorf("workflow output has no terminal approval status: %q", output.ApprovalStatus)
	}
	return OutcomeNotice{
		RequestID:      input.RequestID,
		UserEmail:      input.UserEmail,
		ApprovalStatus: output.ApprovalStatus,
		LeaveDetails:   input.LeaveDetails,
	}, nil
}
