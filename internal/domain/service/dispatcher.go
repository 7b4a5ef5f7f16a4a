package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/majiny/eksops/internal/domain/model"
	"github.com/majiny/eksops/internal/domain/port/outbound"
	"github.com/majiny/eksops/pkg/apierror"
)

// state tracks an invocation through its lifecycle. Transitions only move
// forward; there is no retry inside an invocation. The trigger mechanism
// owns retry policy and may re-invoke the whole request.
type state string

const (
	stateReceived   state = "received"
	stateValidated  state = "validated"
	stateAuthorized state = "authorized"
	stateExecuting  state = "executing"
	stateCompleted  state = "completed"
	stateFailed     state = "failed"
)

// Deps groups the dispatcher's collaborators. Audits and Notifier are
// optional; a nil value disables the concern.
type Deps struct {
	Access   outbound.ClusterAccessBuilder
	Audits   outbound.InvocationRepository
	Notifier outbound.Notifier
	Logger   *slog.Logger
}

// Dispatcher validates an incoming payload, prepares invocation-scoped
// cluster access, runs the selected operation and normalizes the outcome
// into a ResponseEnvelope. It holds no per-invocation state; every Dispatch
// call rebuilds credentials and connection context from scratch.
type Dispatcher struct {
	access    outbound.ClusterAccessBuilder
	formatter *Formatter
	audits    outbound.InvocationRepository
	notifier  outbound.Notifier
	logger    *slog.Logger
}

func NewDispatcher(deps Deps) *Dispatcher {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		access:    deps.Access,
		formatter: NewFormatter(),
		audits:    deps.Audits,
		notifier:  deps.Notifier,
		logger:    logger,
	}
}

// Dispatch runs one invocation end to end and always returns an envelope;
// no error kind escapes unhandled.
func (d *Dispatcher) Dispatch(ctx context.Context, raw []byte) model.ResponseEnvelope {
	start := time.Now()
	st := stateReceived

	req, err := model.ParseRequest(raw)
	if err != nil {
		// Fail fast: no credential work or cluster call for a bad payload.
		st = stateFailed
		env := d.formatter.FormatError(err)
		d.finish(ctx, st, req, env, start)
		return env
	}
	st = stateValidated
	d.logger.Info("request validated",
		"action", req.Action, "namespace", req.Namespace, "deployment", req.Deployment)

	access, err := d.access.Build(ctx)
	if err != nil {
		st = stateFailed
		env := d.formatter.FormatError(err)
		d.finish(ctx, st, req, env, start)
		return env
	}
	st = stateAuthorized
	d.logger.Debug("cluster access prepared", "state", st, "token_expires", access.Token.ExpiresAt)

	st = stateExecuting
	res, err := d.execute(ctx, access.Commander, req)

	// A cluster-side rejection is a terminal, reported outcome, not a crash:
	// the envelope says error but the dispatcher completed its run. Every
	// other failure kind, timeouts included, ends in the failed state.
	env := d.formatter.Format(res, err, access.Token.Value)
	if err == nil || apierror.KindOf(err) == apierror.KindExecution {
		st = stateCompleted
	} else {
		st = stateFailed
	}
	d.finish(ctx, st, req, env, start)
	return env
}

func (d *Dispatcher) execute(ctx context.Context, commander outbound.ClusterCommander, req model.ActionRequest) (model.CommandResult, error) {
	switch req.Action {
	case model.ActionGet:
		return commander.Get(ctx, req.Namespace)
	case model.ActionRestart:
		return commander.Restart(ctx, req.Namespace, req.Deployment)
	case model.ActionApply:
		return commander.Apply(ctx, req.Namespace, req.Manifest)
	case model.ActionStatus:
		return commander.Status(ctx, req.Namespace, req.Deployment)
	case model.ActionDescribe:
		return commander.Describe(ctx, req.Namespace, req.Deployment)
	default:
		// Unreachable: ParseRequest rejects unknown actions.
		return model.CommandResult{}, fmt.Errorf("unhandled action %q", req.Action)
	}
}

// finish logs the terminal state and records/announces the outcome.
// Audit and notification are best-effort and never alter the envelope.
func (d *Dispatcher) finish(ctx context.Context, st state, req model.ActionRequest, env model.ResponseEnvelope, start time.Time) {
	duration := time.Since(start)
	d.logger.Info("invocation finished",
		"state", st, "status", env.Status, "action", req.Action, "duration", duration)

	if d.audits != nil {
		rec := model.NewInvocationRecord(req, env, duration)
		if err := d.audits.Create(ctx, rec); err != nil {
			d.logger.Warn("writing invocation record failed", "error", err)
		}
	}

	if d.notifier != nil && req.Mutating() {
		outcome := outbound.ActionOutcome{
			Action:     string(req.Action),
			Namespace:  req.Namespace,
			Deployment: req.Deployment,
			Status:     string(env.Status),
			Duration:   duration,
		}
		switch data := env.Data.(type) {
		case string:
			outcome.Output = data
		case model.ErrorDetail:
			outcome.ErrorKind = data.Kind
			outcome.Output = data.Message
		}
		if err := d.notifier.NotifyResult(ctx, outcome); err != nil {
			d.logger.Warn("notifying action result failed", "error", err)
		}
	}
}
