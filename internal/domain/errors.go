package domain

import (
	"errors"
	"fmt"
)

type NotFoundError struct {
	Resource string
	Err      error
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e NotFoundError) Unwrap() error { return e.Err }

type ValidationError struct {
	Field string
	Msg   string
	Err   error
}

func (e ValidationError) Error() string {
	if e.Msg != "" && e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Msg)
	}
	if e.Msg != "" {
		return e.Msg
	}
	if e.Field != "" {
		return fmt.Sprintf("invalid %s", e.Field)
	}
	return "validation error"
}

func (e ValidationError) Unwrap() error { return e.Err }

type ConflictError struct {
	Resource string
	Msg      string
	Err      error
}

func (e ConflictError) Error() string {
	switch {
	case e.Msg != "" && e.Resource != "":
		return fmt.Sprintf("%s conflict: %s", e.Resource, e.Msg)
	case e.Msg != "":
		return e.Msg
	case e.Resource != "":
		return fmt.Sprintf("%s conflict", e.Resource)
	default:
		return "conflict"
	}
}

func (e ConflictError) Unwrap() error { return e.Err }

// InvalidStateTransition reports a lifecycle operation attempted outside its precondition.
type InvalidStateTransition struct {
	Current      string
	Transition   string
	Precondition string
}

func (e InvalidStateTransition) Error() string {
	return fmt.Sprintf("cannot %s trip in status %s: %s", e.Transition, e.Current, e.Precondition)
}

// InvalidMileageError is returned when odometer readings go backwards.
type InvalidMileageError struct {
	Start int64
	End   int64
	Msg   string
}

func (e InvalidMileageError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("invalid mileage: %s (start=%d end=%d)", e.Msg, e.Start, e.End)
	}
	return fmt.Sprintf("invalid mileage: end odometer %d is below start odometer %d", e.End, e.Start)
}

// StorageError wraps a failed document render or write. It is never fatal to a
// committed report.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e StorageError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("storage %s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e StorageError) Unwrap() error { return e.Err }

type InternalError struct {
	Msg string
	Err error
}

func (e InternalError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return "internal error"
}

func (e InternalError) Unwrap() error { return e.Err }

func IsNotFound(err error) bool {
	var target NotFoundError
	return errors.As(err, &target)
}

func IsValidation(err error) bool {
	var target ValidationError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target ConflictError
	return errors.As(err, &target)
}

func IsInvalidTransition(err error) bool {
	var target InvalidStateTransition
	return errors.As(err, &target)
}

func IsInvalidMileage(err error) bool {
	var target InvalidMileageError
	return errors.As(err, &target)
}

func IsStorage(err error) bool {
	var target StorageError
	return errors.As(err, &target)
}

func IsInternal(err error) bool {
	var target InternalError
	return errors.As(err, &target)
}
