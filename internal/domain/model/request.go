package model

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/majiny/eksops/pkg/apierror"
)

// Action selects one of the bounded cluster operations.
type Action string

const (
	ActionGet      Action = "get"
	ActionRestart  Action = "restart"
	ActionApply    Action = "apply"
	ActionStatus   Action = "status"
	ActionDescribe Action = "describe"
)

// fieldRule describes how an action treats a payload field.
type fieldRule int

const (
	fieldForbidden fieldRule = iota
	fieldRequired
	fieldOptional
)

// actionRules maps each action to its namespace/deployment/manifest rules.
// The namespace is optional for apply: a manifest without one falls back to
// the request namespace, then the configured default.
var actionRules = map[Action][3]fieldRule{
	ActionGet:      {fieldRequired, fieldForbidden, fieldForbidden},
	ActionRestart:  {fieldRequired, fieldRequired, fieldForbidden},
	ActionStatus:   {fieldRequired, fieldRequired, fieldForbidden},
	ActionDescribe: {fieldRequired, fieldRequired, fieldForbidden},
	ActionApply:    {fieldOptional, fieldForbidden, fieldRequired},
}

// ActionRequest is the untrusted invocation payload. Instances are only
// obtained through ParseRequest, which enforces the per-action field rules;
// a hand-built ActionRequest never reaches the dispatcher.
type ActionRequest struct {
	Action     Action `json:"action"`
	Namespace  string `json:"namespace,omitempty"`
	Deployment string `json:"deployment,omitempty"`
	Manifest   string `json:"manifest,omitempty"`
}

// ParseRequest decodes and validates a raw JSON payload. Exactly the fields
// required by the selected action must be present and non-empty; unknown
// fields and any other combination are rejected before any credential work
// or cluster call happens.
func ParseRequest(raw []byte) (ActionRequest, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return ActionRequest{}, apierror.Validation("empty request payload")
	}

	var req ActionRequest
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return ActionRequest{}, apierror.Validation("malformed request payload: %v", err)
	}

	if err := req.validate(); err != nil {
		return ActionRequest{}, err
	}
	return req, nil
}

func (r ActionRequest) validate() error {
	if r.Action == "" {
		return apierror.Validation("missing required field %q", "action")
	}
	rules, ok := actionRules[r.Action]
	if !ok {
		return apierror.Validation("unknown action %q", r.Action)
	}

	names := [3]string{"namespace", "deployment", "manifest"}
	values := [3]string{r.Namespace, r.Deployment, r.Manifest}

	var missing, forbidden []string
	for i, rule := range rules {
		switch rule {
		case fieldRequired:
			if strings.TrimSpace(values[i]) == "" {
				missing = append(missing, names[i])
			}
		case fieldForbidden:
			if values[i] != "" {
				forbidden = append(forbidden, names[i])
			}
		}
	}

	if len(missing) > 0 {
		return apierror.Validation("action %q requires field(s): %s", r.Action, strings.Join(missing, ", "))
	}
	if len(forbidden) > 0 {
		return apierror.Validation("action %q does not accept field(s): %s", r.Action, strings.Join(forbidden, ", "))
	}
	return nil
}

// Mutating reports whether the action changes cluster state. Mutating actions
// carry at-least-once semantics under re-invocation and are the ones worth
// notifying about.
func (r ActionRequest) Mutating() bool {
	return r.Action == ActionRestart || r.Action == ActionApply
}
