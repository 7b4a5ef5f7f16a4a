package service

import (
	"github.com/majiny/eksops/internal/domain/model"
	"github.com/majiny/eksops/pkg/apierror"
)

// Formatter maps every terminal dispatcher outcome to exactly one
// ResponseEnvelope. All error text passes through redaction so credential
// material can never leave through an error message, whatever the kind.
type Formatter struct{}

func NewFormatter() *Formatter { return &Formatter{} }

// Format builds the caller-facing envelope. err takes precedence; a non-zero
// exit without an error kind is still reported as an execution failure.
func (f *Formatter) Format(res model.CommandResult, err error, secrets ...string) model.ResponseEnvelope {
	if err != nil {
		return f.FormatError(err, secrets...)
	}
	if res.ExitCode != 0 {
		return model.ResponseEnvelope{
			Status: model.StatusError,
			Data: model.ErrorDetail{
				Kind:    string(apierror.KindExecution),
				Message: apierror.Redact(string(res.Stderr), secrets...),
			},
		}
	}
	return model.ResponseEnvelope{
		Status: model.StatusOK,
		Data:   string(res.Stdout),
	}
}

// FormatError builds an error envelope from any failure kind.
func (f *Formatter) FormatError(err error, secrets ...string) model.ResponseEnvelope {
	return model.ResponseEnvelope{
		Status: model.StatusError,
		Data: model.ErrorDetail{
			Kind:    string(apierror.KindOf(err)),
			Message: apierror.Redact(err.Error(), secrets...),
		},
	}
}
