package service

import (
	"errors"
	"strings"
	"testing"

	"github.com/majiny/eksops/internal/domain/model"
	"github.com/majiny/eksops/pkg/apierror"
)

func TestFormat_Success(t *testing.T) {
	f := NewFormatter()
	env := f.Format(model.CommandResult{Stdout: []byte("pod/web-1 phase=Running\n")}, nil)

	if env.Status != model.StatusOK {
		t.Fatalf("expected ok, got %s", env.Status)
	}
	if env.Data != "pod/web-1 phase=Running\n" {
		t.Errorf("unexpected data: %v", env.Data)
	}
}

func TestFormat_NonZeroExitWithoutError(t *testing.T) {
	f := NewFormatter()
	env := f.Format(model.CommandResult{ExitCode: 1, Stderr: []byte("server rejected request")}, nil)

	if env.Status != model.StatusError {
		t.Fatalf("expected error, got %s", env.Status)
	}
	detail := env.Data.(model.ErrorDetail)
	if detail.Kind != string(apierror.KindExecution) {
		t.Errorf("expected ExecutionError, got %s", detail.Kind)
	}
	if detail.Message != "server rejected request" {
		t.Errorf("expected raw diagnostic, got %q", detail.Message)
	}
}

func TestFormat_ErrorKindMapping(t *testing.T) {
	tests := []struct {
		err  error
		want apierror.Kind
	}{
		{apierror.Validation("bad payload"), apierror.KindValidation},
		{apierror.Configuration("bad CA"), apierror.KindConfiguration},
		{apierror.AuthResolution(errors.New("denied"), "token exchange"), apierror.KindAuthResolution},
		{apierror.Timeout("exceeded"), apierror.KindExecutionTimeout},
		{errors.New("some transport error"), apierror.KindExecution},
	}

	f := NewFormatter()
	for _, tt := range tests {
		env := f.Format(model.CommandResult{}, tt.err)
		if env.Status != model.StatusError {
			t.Fatalf("expected error status for %v", tt.err)
		}
		detail := env.Data.(model.ErrorDetail)
		if detail.Kind != string(tt.want) {
			t.Errorf("error %v: expected kind %s, got %s", tt.err, tt.want, detail.Kind)
		}
	}
}

func TestFormatError_RedactsSecrets(t *testing.T) {
	token := "k8s-aws-v1.dG9wc2VjcmV0"
	f := NewFormatter()

	env := f.FormatError(apierror.Execution(errors.New("401 token "+token), "calling API"), token)
	detail := env.Data.(model.ErrorDetail)
	if strings.Contains(detail.Message, token) {
		t.Errorf("token survived redaction: %q", detail.Message)
	}
}
