package services

import (
	"errors"
	"fmt"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrInvalidPassword = errors.New("invalid password")
	ErrPseudoTaken     = errors.New("pseudo already taken")
	ErrEmailTaken      = errors.New("email already taken")
	ErrTooYoung        = errors.New("registrant is too young")
	ErrBambooNotFound  = errors.New("bamboo not found")
	ErrBranchNotFound  = errors.New("branch not found")
	ErrMessageNotFound = errors.New("message not found")
	ErrNotMember       = errors.New("not a member of the bamboo")
	ErrForbidden       = errors.New("action reserved to another member")
)

// ValidationError reports a form field whose value was rejected.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
