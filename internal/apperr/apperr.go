// Package apperr is the single error taxonomy shared by services and HTTP
// handlers. Every error that crosses a package boundary is either an *Error
// or gets classified as KindInternal.
package apperr

import (
	"errors"
	"net/http"
	"strings"
)

type Kind int

const (
	KindInternal Kind = iota
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindBadRequest
	KindUpstreamUnavailable
	KindInvalidInput
	KindSettlementFailure
)

var kindInfo = map[Kind]struct {
	code   string
	status int
	msg    string
}{
	KindInternal:            {"internal", http.StatusInternalServerError, "internal error"},
	KindUnauthorized:        {"unauthorized", http.StatusUnauthorized, "unauthorized"},
	KindForbidden:           {"forbidden", http.StatusForbidden, "forbidden"},
	KindNotFound:            {"not_found", http.StatusNotFound, "not found"},
	KindConflict:            {"conflict", http.StatusConflict, "conflict"},
	KindBadRequest:          {"bad_request", http.StatusBadRequest, "bad request"},
	KindUpstreamUnavailable: {"upstream_unavailable", http.StatusBadGateway, "upstream unavailable"},
	KindInvalidInput:        {"invalid_input", http.StatusInternalServerError, "invalid input"},
	KindSettlementFailure:   {"settlement_failure", http.StatusInternalServerError, "settlement failed"},
}

func (k Kind) Code() string {
	if info, ok := kindInfo[k]; ok {
		return info.code
	}
	return kindInfo[KindInternal].code
}

func (k Kind) Status() int {
	if info, ok := kindInfo[k]; ok {
		return info.status
	}
	return http.StatusInternalServerError
}

func (k Kind) String() string {
	return k.Code()
}

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by kind, so errors.Is(err, ErrNotFound) works for
// any not-found error regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Err == nil
}

func (e *Error) Code() string { return e.Kind.Code() }

func (e *Error) Status() int { return e.Kind.Status() }

// New is the only constructor; an empty message falls back to the kind's
// default text.
func New(kind Kind, msg string) *Error {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		if info, ok := kindInfo[kind]; ok {
			msg = info.msg
		} else {
			kind = KindInternal
			msg = kindInfo[KindInternal].msg
		}
	}
	return &Error{Kind: kind, Message: msg}
}

func Wrap(kind Kind, err error, msg string) *Error {
	e := New(kind, msg)
	e.Err = err
	return e
}

// Sentinels for errors.Is checks.
var (
	ErrUnauthorized        = New(KindUnauthorized, "")
	ErrForbidden           = New(KindForbidden, "")
	ErrNotFound            = New(KindNotFound, "")
	ErrConflict            = New(KindConflict, "")
	ErrBadRequest          = New(KindBadRequest, "")
	ErrUpstreamUnavailable = New(KindUpstreamUnavailable, "")
	ErrInvalidInput        = New(KindInvalidInput, "")
)

func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// PublicMessage is what a client may see. Internal kinds never expose the
// underlying cause.
func PublicMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return kindInfo[KindInternal].msg
	}
	switch e.Kind {
	case KindInternal, KindInvalidInput, KindSettlementFailure:
		return kindInfo[e.Kind].msg
	}
	return e.Message
}
