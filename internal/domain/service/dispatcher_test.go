package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/majiny/eksops/internal/domain/model"
	"github.com/majiny/eksops/internal/domain/port/outbound"
	"github.com/majiny/eksops/pkg/apierror"
)

// recordingCommander counts operation calls and returns canned results.
type recordingCommander struct {
	getCalls     int
	restartCalls int
	applyCalls   int
	result       model.CommandResult
	err          error
}

func (c *recordingCommander) Get(ctx context.Context, namespace string) (model.CommandResult, error) {
	c.getCalls++
	return c.result, c.err
}

func (c *recordingCommander) Restart(ctx context.Context, namespace, deployment string) (model.CommandResult, error) {
	c.restartCalls++
	return c.result, c.err
}

func (c *recordingCommander) Apply(ctx context.Context, namespace, manifest string) (model.CommandResult, error) {
	c.applyCalls++
	return c.result, c.err
}

func (c *recordingCommander) Status(ctx context.Context, namespace, deployment string) (model.CommandResult, error) {
	return c.result, c.err
}

func (c *recordingCommander) Describe(ctx context.Context, namespace, deployment string) (model.CommandResult, error) {
	return c.result, c.err
}

func (c *recordingCommander) totalCalls() int {
	return c.getCalls + c.restartCalls + c.applyCalls
}

// fakeAccessBuilder hands out a fixed commander/token pair.
type fakeAccessBuilder struct {
	commander outbound.ClusterCommander
	token     string
	err       error
	builds    int
}

func (b *fakeAccessBuilder) Build(ctx context.Context) (outbound.ClusterAccess, error) {
	b.builds++
	if b.err != nil {
		return outbound.ClusterAccess{}, b.err
	}
	return outbound.ClusterAccess{
		Commander: b.commander,
		Token:     model.Token{Value: b.token, ExpiresAt: time.Now().Add(14 * time.Minute)},
	}, nil
}

func testDispatcher(c *recordingCommander, b *fakeAccessBuilder) *Dispatcher {
	if b == nil {
		b = &fakeAccessBuilder{commander: c, token: "k8s-aws-v1.dGVzdA"}
	}
	return NewDispatcher(Deps{Access: b})
}

func errorDetail(t *testing.T, env model.ResponseEnvelope) model.ErrorDetail {
	t.Helper()
	detail, ok := env.Data.(model.ErrorDetail)
	if !ok {
		t.Fatalf("expected ErrorDetail data, got %T", env.Data)
	}
	return detail
}

func TestDispatch_ValidationFailureSkipsClusterWork(t *testing.T) {
	payloads := []string{
		`{"action":"restart","namespace":"prod"}`,
		`{"action":"get"}`,
		`{"action":"apply","yaml":"kind: Pod"}`,
		`not json at all`,
	}
	for _, payload := range payloads {
		commander := &recordingCommander{}
		builder := &fakeAccessBuilder{commander: commander, token: "tok"}
		d := testDispatcher(commander, builder)

		env := d.Dispatch(context.Background(), []byte(payload))
		if env.Status != model.StatusError {
			t.Errorf("payload %q: expected error status", payload)
		}
		if detail := errorDetail(t, env); detail.Kind != string(apierror.KindValidation) {
			t.Errorf("payload %q: expected ValidationError, got %s", payload, detail.Kind)
		}
		if builder.builds != 0 {
			t.Errorf("payload %q: credential work happened despite validation failure", payload)
		}
		if commander.totalCalls() != 0 {
			t.Errorf("payload %q: cluster call attempted despite validation failure", payload)
		}
	}
}

func TestDispatch_AuthFailure(t *testing.T) {
	builder := &fakeAccessBuilder{err: apierror.AuthResolution(errors.New("sts unreachable"), "resolving cluster token")}
	d := NewDispatcher(Deps{Access: builder})

	env := d.Dispatch(context.Background(), []byte(`{"action":"get","namespace":"prod"}`))
	if env.Status != model.StatusError {
		t.Fatal("expected error status")
	}
	if detail := errorDetail(t, env); detail.Kind != string(apierror.KindAuthResolution) {
		t.Errorf("expected AuthResolutionError, got %s", detail.Kind)
	}
}

func TestDispatch_GetSuccess(t *testing.T) {
	commander := &recordingCommander{result: model.CommandResult{Stdout: []byte("deployment/django-app replicas=2/2\n")}}
	d := testDispatcher(commander, nil)

	env := d.Dispatch(context.Background(), []byte(`{"action":"get","namespace":"prod"}`))
	if env.Status != model.StatusOK {
		t.Fatalf("expected ok, got %+v", env)
	}
	out, ok := env.Data.(string)
	if !ok || !strings.Contains(out, "django-app") {
		t.Errorf("expected listing in data, got %v", env.Data)
	}
	if commander.getCalls != 1 {
		t.Errorf("expected exactly one get call, got %d", commander.getCalls)
	}
}

func TestDispatch_RestartTwiceIssuesTwoRollovers(t *testing.T) {
	// Request-level repetition is not deduplicated: the trigger owns retry
	// semantics, and two restarts are two rollovers by design.
	commander := &recordingCommander{result: model.CommandResult{Stdout: []byte("deployment.apps/django-app restarted")}}
	d := testDispatcher(commander, nil)

	payload := []byte(`{"action":"restart","namespace":"prod","deployment":"django-app"}`)
	for i := 0; i < 2; i++ {
		if env := d.Dispatch(context.Background(), payload); env.Status != model.StatusOK {
			t.Fatalf("restart %d failed: %+v", i+1, env)
		}
	}
	if commander.restartCalls != 2 {
		t.Errorf("expected 2 restart calls, got %d", commander.restartCalls)
	}
}

func TestDispatch_ExecutionTimeout(t *testing.T) {
	commander := &recordingCommander{
		result: model.CommandResult{ExitCode: -1, DurationExceeded: true},
		err:    apierror.Timeout("operation exceeded 30s"),
	}
	d := testDispatcher(commander, nil)

	env := d.Dispatch(context.Background(), []byte(`{"action":"get","namespace":"prod"}`))
	if detail := errorDetail(t, env); detail.Kind != string(apierror.KindExecutionTimeout) {
		t.Errorf("expected ExecutionTimeout, got %s", detail.Kind)
	}
}

// terminalState extracts the state label from the invocation-finished log line.
func terminalState(t *testing.T, logs string) string {
	t.Helper()
	for _, line := range strings.Split(strings.TrimSpace(logs), "\n") {
		if !strings.Contains(line, "invocation finished") {
			continue
		}
		var entry struct {
			State string `json:"state"`
		}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("parsing log line %q: %v", line, err)
		}
		return entry.State
	}
	t.Fatalf("no terminal log line found in:\n%s", logs)
	return ""
}

func TestDispatch_TerminalStateLabels(t *testing.T) {
	// A timed-out or unauthenticated invocation ends in the failed state.
	// Only a clean run or a cluster-side rejection reported with its
	// diagnostic counts as completed.
	tests := []struct {
		name string
		c    *recordingCommander
		want string
	}{
		{
			"success completes",
			&recordingCommander{result: model.CommandResult{Stdout: []byte("ok")}},
			"completed",
		},
		{
			"cluster rejection completes",
			&recordingCommander{
				result: model.CommandResult{ExitCode: 1, Stderr: []byte("Unauthorized")},
				err:    apierror.Execution(errors.New("Unauthorized"), "listing resources"),
			},
			"completed",
		},
		{
			"timeout fails",
			&recordingCommander{
				result: model.CommandResult{ExitCode: -1, DurationExceeded: true},
				err:    apierror.Timeout("operation exceeded 30s"),
			},
			"failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs bytes.Buffer
			builder := &fakeAccessBuilder{commander: tt.c, token: "tok"}
			d := NewDispatcher(Deps{
				Access: builder,
				Logger: slog.New(slog.NewJSONHandler(&logs, nil)),
			})

			d.Dispatch(context.Background(), []byte(`{"action":"get","namespace":"prod"}`))
			if got := terminalState(t, logs.String()); got != tt.want {
				t.Errorf("terminal state = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDispatch_TokenNeverInErrorMessage(t *testing.T) {
	token := "k8s-aws-v1.c3VwZXJzZWNyZXQ"
	commander := &recordingCommander{
		err: apierror.Execution(errors.New("Unauthorized: bearer "+token+" rejected"), "listing resources"),
	}
	builder := &fakeAccessBuilder{commander: commander, token: token}
	d := testDispatcher(commander, builder)

	env := d.Dispatch(context.Background(), []byte(`{"action":"get","namespace":"prod"}`))
	detail := errorDetail(t, env)
	if strings.Contains(detail.Message, token) {
		t.Errorf("token leaked into error message: %q", detail.Message)
	}
}

// auditSpy records created invocation records.
type auditSpy struct {
	records []model.InvocationRecord
}

func (a *auditSpy) Create(ctx context.Context, rec model.InvocationRecord) error {
	a.records = append(a.records, rec)
	return nil
}

func (a *auditSpy) List(ctx context.Context, f outbound.InvocationFilter, p outbound.PageRequest) (outbound.PageResult[model.InvocationRecord], error) {
	return outbound.PageResult[model.InvocationRecord]{Items: a.records}, nil
}

func TestDispatch_WritesAuditRecord(t *testing.T) {
	commander := &recordingCommander{result: model.CommandResult{Stdout: []byte("ok")}}
	audits := &auditSpy{}
	builder := &fakeAccessBuilder{commander: commander, token: "tok"}
	d := NewDispatcher(Deps{Access: builder, Audits: audits})

	d.Dispatch(context.Background(), []byte(`{"action":"get","namespace":"prod"}`))
	if len(audits.records) != 1 {
		t.Fatalf("expected 1 audit record, got %d", len(audits.records))
	}
	rec := audits.records[0]
	if rec.Action != "get" || rec.Namespace != "prod" || rec.Status != "ok" {
		t.Errorf("unexpected record: %+v", rec)
	}
}

// notifierSpy records outcomes.
type notifierSpy struct {
	outcomes []outbound.ActionOutcome
}

func (n *notifierSpy) NotifyResult(ctx context.Context, outcome outbound.ActionOutcome) error {
	n.outcomes = append(n.outcomes, outcome)
	return nil
}

func TestDispatch_NotifiesOnlyMutatingActions(t *testing.T) {
	commander := &recordingCommander{result: model.CommandResult{Stdout: []byte("ok")}}
	notifier := &notifierSpy{}
	builder := &fakeAccessBuilder{commander: commander, token: "tok"}
	d := NewDispatcher(Deps{Access: builder, Notifier: notifier})

	d.Dispatch(context.Background(), []byte(`{"action":"get","namespace":"prod"}`))
	if len(notifier.outcomes) != 0 {
		t.Errorf("get must not notify, got %d outcomes", len(notifier.outcomes))
	}

	d.Dispatch(context.Background(), []byte(`{"action":"restart","namespace":"prod","deployment":"django-app"}`))
	if len(notifier.outcomes) != 1 {
		t.Fatalf("expected 1 notification after restart, got %d", len(notifier.outcomes))
	}
	if notifier.outcomes[0].Action != "restart" || notifier.outcomes[0].Status != "ok" {
		t.Errorf("unexpected outcome: %+v", notifier.outcomes[0])
	}
}
