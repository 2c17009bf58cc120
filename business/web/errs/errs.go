// Package errs provides types and support related to web v1 functionality.
package errs

import (
	"errors"
	"net/http"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/state"
	"github.com/ardanlabs/powledger/foundation/validate"
)

// Response is the form used for API responses from failures in the API.
type Response struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Trusted is used to pass an error during the request through the
// application with web specific context.
type Trusted struct {
	Err    error
	Status int
}

// NewTrusted wraps a provided error with an HTTP status code. This
// function should be used when handlers encounter expected errors.
func NewTrusted(err error, status int) error {
	return &Trusted{err, status}
}

// Error implements the error interface. It uses the default message of the
// wrapped error. This is what will be shown in the services' logs.
func (te *Trusted) Error() string {
	return te.Err.Error()
}

// Unwrap provides access to the wrapped error.
func (te *Trusted) Unwrap() error {
	return te.Err
}

// IsTrusted checks if an error of type Trusted exists.
func IsTrusted(err error) bool {
	var te *Trusted
	return errors.As(err, &te)
}

// GetTrusted returns a copy of the Trusted pointer.
func GetTrusted(err error) *Trusted {
	var te *Trusted
	if !errors.As(err, &te) {
		return nil
	}
	return te
}

// =============================================================================

// Translate maps an error returned by a handler to the response and status
// code sent to the client. Errors the ledger doesn't know about are hidden
// behind a 500.
func Translate(err error) (Response, int) {
	if fe := validate.GetFieldErrors(err); fe != nil {
		return Response{Error: "data validation error", Fields: fe.Fields()}, http.StatusBadRequest
	}

	var ve *database.ValidationError
	if errors.As(err, &ve) {
		resp := Response{Error: ve.Error()}
		if ve.Field != "" {
			resp.Fields = map[string]string{ve.Field: ve.Err.Error()}
		}
		return resp, http.StatusBadRequest
	}

	switch {
	case errors.Is(err, database.ErrNotFound):
		return Response{Error: err.Error()}, http.StatusNotFound

	case errors.Is(err, state.ErrDuplicateTransaction):
		return Response{Error: err.Error()}, http.StatusConflict

	case errors.Is(err, state.ErrMempoolFull), errors.Is(err, state.ErrHalted):
		return Response{Error: err.Error()}, http.StatusServiceUnavailable
	}

	if te := GetTrusted(err); te != nil {
		return Response{Error: te.Error()}, te.Status
	}

	return Response{Error: http.StatusText(http.StatusInternalServerError)}, http.StatusInternalServerError
}
