package services

import (
	"errors"
	"fmt"
)

// Expected outcomes of membership and project operations. Callers compare
// with errors.Is; none of these are retried.
var (
	ErrNotFound          = errors.New("not found")
	ErrNotMember         = errors.New("user is not a member of this project")
	ErrAlreadyMember     = errors.New("user is already a member of this project")
	ErrAlreadyCompleted  = errors.New("project is already completed")
	ErrProjectNotOngoing = errors.New("project is not accepting members")
	ErrInvalidRole       = errors.New("role must not be empty")
	ErrInvalidDifficulty = errors.New("invalid difficulty, must be one of Beginner, Intermediate, Advanced, Expert")
	ErrForbidden         = errors.New("only the project lead can do this")
)

// PersistenceError wraps a failure reported by the underlying store.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func persistenceErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

// IsPersistenceFailure reports whether err came from the store rather than
// from a rule of the ledger.
func IsPersistenceFailure(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
