package app

import (
	"errors"

	"github.com/w2w-movies/w2w/internal/ports"
)

var (
	ErrNotFound = ports.ErrNotFound
	ErrConflict = ports.ErrConflict
	ErrClosed   = ports.ErrClosed
)

// Codes stables exposés par l'API et la CLI.
const (
	CodeInvalidParams = "invalid_params"
	CodeHTTPStatus    = "http_status"
	CodeNetwork       = "network_error"
	CodeUpstream      = "upstream_error"
	CodeDecode        = "decode_error"
	CodeNotFound      = "not_found"
)

// CodedError porte un code d'erreur stable à côté du message.
type CodedError struct {
	Code    string
	Message string
	Err     error
}

func (e *CodedError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return e.Message
	}
	if e.Message == "" {
		return e.Err.Error()
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *CodedError) Unwrap() error { return e.Err }

func invalidParams(msg string) error {
	return &CodedError{Code: CodeInvalidParams, Message: msg}
}

// ErrorCode renvoie le code d'une erreur (CodedError dans la chaîne), ou "".
func ErrorCode(err error) string {
	var ce *CodedError
	if errors.As(err, &ce) {
		return ce.Code
	}
	if errors.Is(err, ErrNotFound) {
		return CodeNotFound
	}
	return ""
}
