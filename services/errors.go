package services

import (
	"errors"
	"fmt"
)

var (
	ErrReservationNotFound = errors.New("reservation_not_found")
	ErrPaymentNotFound     = errors.New("payment_not_found")
	ErrRoomNotFound        = errors.New("room_not_found")
	ErrCustomerNotFound    = errors.New("customer_not_found")
)

// ConflictError means the room cannot be taken for the requested range.
// It is never retried by the ledger.
type ConflictError struct {
	RoomID  uint
	Code    string
	Message string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: room %d: %s", e.Code, e.RoomID, e.Message)
}

// ValidationError is malformed input.
type ValidationError struct {
	Field   string
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Code, e.Field, e.Message)
}

// BusinessRuleViolation is well-formed input the current state does not allow.
type BusinessRuleViolation struct {
	Code    string
	Message string
}

func (e *BusinessRuleViolation) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ConsistencyError means the ledger math disagrees with itself. It indicates a bug
// and must never be shown to a guest.
type ConsistencyError struct {
	Code    string
	Message string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func conflict(roomID uint, code, format string, args ...any) error {
	return &ConflictError{RoomID: roomID, Code: code, Message: fmt.Sprintf(format, args...)}
}

func invalid(field, code, format string, args ...any) error {
	return &ValidationError{Field: field, Code: code, Message: fmt.Sprintf(format, args...)}
}

func violation(code, format string, args ...any) error {
	return &BusinessRuleViolation{Code: code, Message: fmt.Sprintf(format, args...)}
}

func inconsistent(code, format string, args ...any) error {
	return &ConsistencyError{Code: code, Message: fmt.Sprintf(format, args...)}
}
