package db

import (
	"errors"
	"net/http"
)

// Error taxonomy shared by the facade and the layers above it.
var (
	ErrValidation = errors.New("validation error")
	ErrConflict   = errors.New("duplicate key")
	ErrNotFound   = errors.New("document not found")
	ErrInternal   = errors.New("internal server error")
)

const (
	MsgSuccess          = "success"
	MsgNotFound         = "Document not found"
	MsgValidation       = "validation error"
	MsgDuplicate        = "duplicate key"
	MsgInternal         = "internal server error"
	MsgNoUpdateRequired = "No update is required"
)

// FieldError describes one field that failed validation.
type FieldError struct {
	Key     string `json:"key"`
	Message string `json:"message"`
}

// Result is the uniform envelope every data-access operation returns.
type Result[T any] struct {
	Status  int          `json:"status"`
	Message string       `json:"message"`
	Data    T            `json:"data"`
	Errors  []FieldError `json:"errors,omitempty"`
}

// UpdateResult reports how many documents an update touched.
type UpdateResult struct {
	Matched  int64 `json:"matched"`
	Modified int64 `json:"modified"`
	Upserted int64 `json:"upserted"`
}

// OK reports whether the operation succeeded.
func (r Result[T]) OK() bool {
	return r.Status == http.StatusOK
}

// Err maps the status onto the error taxonomy. It is nil on success.
func (r Result[T]) Err() error {
	switch r.Status {
	case http.StatusOK:
		return nil
	case http.StatusBadRequest:
		return ErrValidation
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	default:
		return ErrInternal
	}
}

// OK wraps data in a successful envelope.
func OK[T any](data T) Result[T] {
	return Result[T]{Status: http.StatusOK, Message: MsgSuccess, Data: data}
}

// NotFound is the envelope returned when nothing matched.
func NotFound[T any]() Result[T] {
	return Result[T]{Status: http.StatusNotFound, Message: MsgNotFound}
}

// Internal is the envelope for persistence faults. The message is fixed.
func Internal[T any]() Result[T] {
	return Result[T]{Status: http.StatusInternalServerError, Message: MsgInternal}
}

// Fail builds an envelope with an arbitrary status and message.
func Fail[T any](status int, message string) Result[T] {
	return Result[T]{Status: status, Message: message}
}

// Convert carries status, message and field errors of r over to a result of
// another data type. Data is left zero.
func Convert[T, U any](r Result[U]) Result[T] {
	return Result[T]{Status: r.Status, Message: r.Message, Errors: r.Errors}
}
