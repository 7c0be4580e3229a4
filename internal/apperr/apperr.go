package apperr

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

var (
	ErrNotFound              = errors.New("not found")
	ErrInsufficientStock     = errors.New("insufficient stock")
	ErrValidation            = errors.New("validation failed")
	ErrInvalidTransition     = errors.New("invalid status transition")
	ErrConflict              = errors.New("conflict")
	ErrDownstreamUnavailable = errors.New("downstream service unavailable")
)

// Error carries a caller-facing message on top of one of the sentinel kinds.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

func New(kind error, msg string) error {
	return &Error{Kind: kind, Message: msg}
}

func NotFound(msg string) error     { return New(ErrNotFound, msg) }
func Validation(msg string) error   { return New(ErrValidation, msg) }
func Insufficient(msg string) error { return New(ErrInsufficientStock, msg) }

// ToFiber converts a service error into the *fiber.Error rendered by the app ErrorHandler.
// Unknown errors become a 500 with a generic message.
func ToFiber(err error) error {
	if err == nil {
		return nil
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe
	}

	msg := err.Error()
	var ae *Error
	if errors.As(err, &ae) {
		msg = ae.Message
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, msg)
	case errors.Is(err, ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, msg)
	case errors.Is(err, ErrInsufficientStock), errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrConflict):
		return fiber.NewError(fiber.StatusConflict, msg)
	case errors.Is(err, ErrDownstreamUnavailable):
		return fiber.NewError(fiber.StatusBadGateway, msg)
	}
	return err
}
