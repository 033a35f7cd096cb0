package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies failures the controllers surface to the user.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindAuth
	KindNetwork
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindNetwork:
		return "network"
	case KindNotFound:
		return "not found"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is checks, e.g. errors.Is(err, apperr.ErrAuth).
var (
	ErrValidation = errors.New("validation error")
	ErrAuth       = errors.New("authentication required")
	ErrNetwork    = errors.New("network error")
	ErrNotFound   = errors.New("not found")
)

// Error carries the kind, the operation that failed and, for HTTP failures,
// the response status.
type Error struct {
	Kind   Kind
	Op     string
	Status int
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = e.sentinel().Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (HTTP %d)", e.Op, msg, e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.sentinel()}
	}
	return []error{e.sentinel(), e.Err}
}

func (e *Error) sentinel() error {
	switch e.Kind {
	case KindValidation:
		return ErrValidation
	case KindAuth:
		return ErrAuth
	case KindNotFound:
		return ErrNotFound
	default:
		return ErrNetwork
	}
}

func Validation(op, msg string) error {
	return &Error{Kind: KindValidation, Op: op, Msg: msg}
}

func Auth(op string, status int) error {
	return &Error{Kind: KindAuth, Op: op, Status: status}
}

func Network(op string, err error) error {
	return &Error{Kind: KindNetwork, Op: op, Err: err}
}

func NotFound(op, msg string) error {
	return &Error{Kind: KindNotFound, Op: op, Msg: msg}
}

// FromStatus maps a non-2xx HTTP status to the taxonomy.
func FromStatus(op string, status int, body string) error {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &Error{Kind: KindAuth, Op: op, Status: status, Msg: body}
	case http.StatusNotFound:
		return &Error{Kind: KindNotFound, Op: op, Status: status, Msg: body}
	default:
		return &Error{Kind: KindNetwork, Op: op, Status: status, Msg: body}
	}
}

// KindOf returns the kind of err, or KindNetwork for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindNetwork
}
