package domain

import (
	"errors"
	"fmt"
)

// Kind classifies failures so callers can pick a retry policy.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindNotFound     Kind = "not_found"
	KindPrecondition Kind = "precondition"
	KindUpstream     Kind = "upstream_unavailable"
	KindTimeout      Kind = "timeout"
)

// Step names a reporting pipeline step.
type Step string

const (
	StepPDF      Step = "pdf"
	StepTTS      Step = "tts"
	StepWhatsApp Step = "whatsapp"
)

// Error is the error type surfaced by every component of the service.
type Error struct {
	Kind Kind
	Step Step
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if e.Step != "" {
		msg = fmt.Sprintf("%s step: %s", e.Step, msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind so errors.Is(err, ErrTimeout) works for any step.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Msg == "" && t.Step == "" && t.Err == nil && t.Kind == e.Kind
}

var (
	ErrValidation   = &Error{Kind: KindValidation}
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrPrecondition = &Error{Kind: KindPrecondition}
	ErrUpstream     = &Error{Kind: KindUpstream}
	ErrTimeout      = &Error{Kind: KindTimeout}
)

func Validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func NotFoundf(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func Preconditionf(step Step, format string, args ...any) *Error {
	return &Error{Kind: KindPrecondition, Step: step, Msg: fmt.Sprintf(format, args...)}
}

// Upstream wraps an external backend failure for step.
func Upstream(step Step, msg string, err error) *Error {
	return &Error{Kind: KindUpstream, Step: step, Msg: msg, Err: err}
}

// Timeout marks step as having exceeded its allotted time.
func Timeout(step Step, err error) *Error {
	return &Error{Kind: KindTimeout, Step: step, Msg: "deadline exceeded", Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// StepOf returns the pipeline step recorded on err, or "".
func StepOf(err error) Step {
	var e *Error
	if errors.As(err, &e) {
		return e.Step
	}
	return ""
}
