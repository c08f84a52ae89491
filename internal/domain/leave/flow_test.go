package leave

import (
	"context"
	"errors"
	"testing"
	"time"

	"leaveflow/internal/domain/auth"
	"leaveflow/internal/domain/notifications"
	"leaveflow/internal/domain/workflow"
)

type engineFixture struct {
	*fixture
	runner *workflow.Runner
	execs  *workflow.MemoryStore
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	f := newFixture(t, StrategyAsync)
	execs := workflow.NewMemoryStore()
	runner := workflow.NewRunner(execs, workflow.InlineDispatcher{}, workflow.WithRetry(3, 0))

	p, err := NewProtocol(Dependencies{
		Store:   f.store,
		Mailer:  f.mailer,
		Tokens:  f.tokens,
		Engine:  runner,
		Metrics: f.metrics,
	}, f.protocol.opts)
	if err != nil {
		t.Fatalf("protocol: %v", err)
	}
	if err := runner.Register(p.Definition("leave-approval")); err != nil {
		t.Fatalf("register: %v", err)
	}
	f.protocol = p
	return &engineFixture{fixture: f, runner: runner, execs: execs}
}

func (f *engineFixture) approvalLink(t *testing.T, action string) DecisionInput {
	t.Helper()
	msgs := f.mailer.To(testApprover)
	if len(msgs) == 0 {
		t.Fatal("expected an approval email")
	}
	q := decisionLink(t, msgs[len(msgs)-1].HTML, action)
	return DecisionInput{
		RequestID:     q.Get("requestId"),
		Action:        q.Get("action"),
		DecisionToken: q.Get("decisionToken"),
		AuthToken:     q.Get("authToken"),
	}
}

func TestAsyncApprovalEndToEnd(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	id, err := f.protocol.SubmitRequest(ctx, validSubmission(), testCallback)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if got := len(f.mailer.To(testApprover)); got != 1 {
		t.Fatalf("expected one approval email, got %d", got)
	}

	link := f.approvalLink(t, ActionApprove)
	if link.RequestID != id {
		t.Fatalf("link names %q, want %q", link.RequestID, id)
	}
	conf, err := f.protocol.IntakeDecision(ctx, link)
	if err != nil {
		t.Fatalf("intake: %v", err)
	}
	if conf.Status != StatusApproved || conf.Status.Label() != "Approved" {
		t.Fatalf("unexpected confirmation %+v", conf)
	}

	rec, err := f.store.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.Status != StatusApproved {
		t.Fatalf("expected APPROVED, got %s", rec.Status)
	}
	outcomes := f.mailer.To("a@x.com")
	if len(outcomes) != 1 || outcomes[0].Subject != notifications.SubjectOutcome {
		t.Fatalf("expected one outcome email, got %+v", outcomes)
	}
}

func TestAsyncDecisionLinkIsSingleUse(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	id, err := f.protocol.SubmitRequest(ctx, validSubmission(), testCallback)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	reject := f.approvalLink(t, ActionReject)
	if _, err := f.protocol.IntakeDecision(ctx, reject); err != nil {
		t.Fatalf("first intake: %v", err)
	}

	approve := f.approvalLink(t, ActionApprove)
	_, err = f.protocol.IntakeDecision(ctx, approve)
	if !errors.Is(err, ErrDependency) || !errors.Is(err, workflow.ErrTaskAlreadyResumed) {
		t.Fatalf("expected replay to surface as dependency error, got %v", err)
	}

	rec, _ := f.store.Get(ctx, id)
	if rec.Status != StatusRejected {
		t.Fatalf("terminal status changed to %s", rec.Status)
	}
	if got := len(f.mailer.To("a@x.com")); got != 1 {
		t.Fatalf("expected a single outcome email, got %d", got)
	}
}

func TestAsyncApprovalRetriesFailedEmail(t *testing.T) {
	f := newEngineFixture(t)
	failures := 2
	f.mailer.Fail = func(notifications.Message) error {
		if failures > 0 {
			failures--
			return errors.New("smtp down")
		}
		return nil
	}

	if _, err := f.protocol.SubmitRequest(context.Background(), validSubmission(), testCallback); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if got := len(f.mailer.To(testApprover)); got != 1 {
		t.Fatalf("expected the approval email after retries, got %d", got)
	}
}

func TestAsyncInvalidAuthorizationLeavesRequestPending(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	id, err := f.protocol.SubmitRequest(ctx, validSubmission(), testCallback)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	link := f.approvalLink(t, ActionApprove)
	link.AuthToken = "tampered"
	if _, err := f.protocol.IntakeDecision(ctx, link); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	rec, _ := f.store.Get(ctx, id)
	if rec.Status != StatusPending {
		t.Fatalf("expected PENDING, got %s", rec.Status)
	}

	// The untouched link still works afterwards.
	if _, err := f.protocol.IntakeDecision(ctx, f.approvalLink(t, ActionApprove)); err != nil {
		t.Fatalf("intake: %v", err)
	}
}

func TestDirectApprovalEndToEnd(t *testing.T) {
	f := newFixture(t, StrategyDirect)
	ctx := context.Background()
	if f.protocol.Strategy() != StrategyDirect {
		t.Fatalf("unexpected strategy %s", f.protocol.Strategy())
	}

	id, err := f.protocol.SubmitRequest(ctx, validSubmission(), testCallback)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(f.engine.starts) != 0 {
		t.Fatal("direct strategy must not start a workflow")
	}
	msgs := f.mailer.To(testApprover)
	if len(msgs) != 1 {
		t.Fatalf("expected one approval email, got %d", len(msgs))
	}
	q := decisionLink(t, msgs[0].HTML, ActionApprove)
	principal, err := f.tokens.Verify(q.Get("decisionToken"))
	if err != nil || principal.Scope != auth.DecisionScope(id) {
		t.Fatalf("expected a decision-scoped decision token, got %+v %v", principal, err)
	}

	in := DecisionInput{RequestID: id, Action: ActionApprove, DecisionToken: q.Get("decisionToken"), AuthToken: q.Get("authToken")}
	conf, err := f.protocol.IntakeDecision(ctx, in)
	if err != nil {
		t.Fatalf("intake: %v", err)
	}
	if conf.Status != StatusApproved {
		t.Fatalf("unexpected confirmation %+v", conf)
	}
	rec, _ := f.store.Get(ctx, id)
	if rec.Status != StatusApproved {
		t.Fatalf("expected APPROVED, got %s", rec.Status)
	}

	in.Action = ActionReject
	_, err = f.protocol.IntakeDecision(ctx, in)
	if !errors.Is(err, ErrDependency) || !errors.Is(err, ErrAlreadyDecided) {
		t.Fatalf("expected replay to fail on the conditional write, got %v", err)
	}
	if got := len(f.mailer.To("a@x.com")); got != 1 {
		t.Fatalf("expected one outcome email, got %d", got)
	}
}

func TestDirectDecisionTokenMustMatchRequest(t *testing.T) {
	f := newFixture(t, StrategyDirect)
	ctx := context.Background()
	id, err := f.protocol.SubmitRequest(ctx, validSubmission(), testCallback)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	wrong, err := f.tokens.Issue("someone", auth.DecisionScope("LEAVE-0"), time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	_, err = f.protocol.IntakeDecision(ctx, DecisionInput{RequestID: id, Action: ActionApprove, DecisionToken: wrong, AuthToken: f.userToken(t)})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	rec, _ := f.store.Get(ctx, id)
	if rec.Status != StatusPending {
		t.Fatalf("expected PENDING, got %s", rec.Status)
	}
}

func TestResolveRequestDirect(t *testing.T) {
	f := newFixture(t, StrategyDirect)
	ctx := context.Background()
	id, err := f.protocol.SubmitRequest(ctx, validSubmission(), testCallback)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	conf, err := f.protocol.ResolveRequest(ctx, id, StatusRejected, "boss@example.com")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if conf.Status != StatusRejected {
		t.Fatalf("unexpected confirmation %+v", conf)
	}
	if _, err := f.protocol.ResolveRequest(ctx, id, StatusApproved, "boss@example.com"); !errors.Is(err, ErrAlreadyDecided) {
		t.Fatalf("expected already decided, got %v", err)
	}
	if _, err := f.protocol.ResolveRequest(ctx, "LEAVE-404", StatusApproved, "boss@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
