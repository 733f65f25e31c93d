package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Transport maps these to status codes; anything that matches
// none of them is treated as an internal failure.
var (
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
)

var (
	// ErrUserNotFound is returned when no user matches an id or username.
	ErrUserNotFound = kinded(ErrNotFound, "user not found")
	// ErrQuizNotFound indicates the quiz does not exist.
	ErrQuizNotFound = kinded(ErrNotFound, "quiz not found")
	// ErrQuestionNotFound indicates the question does not exist.
	ErrQuestionNotFound = kinded(ErrNotFound, "question not found")
	// ErrOptionNotFound indicates the option does not exist.
	ErrOptionNotFound = kinded(ErrNotFound, "option not found")
	// ErrAttemptNotFound indicates the attempt does not exist.
	ErrAttemptNotFound = kinded(ErrNotFound, "attempt not found")
	// ErrSubmissionNotFound indicates the submission does not exist.
	ErrSubmissionNotFound = kinded(ErrNotFound, "submission not found")

	// ErrUsernameTaken is returned when registering an existing username.
	ErrUsernameTaken = kinded(ErrConflict, "username already exists")
	// ErrInvalidCredentials covers both an unknown username and a wrong password.
	ErrInvalidCredentials = kinded(ErrUnauthorized, "invalid username or password")

	// ErrCorrectOptionTaken rejects a second correct option on one question.
	ErrCorrectOptionTaken = kinded(ErrValidation, "question already has a correct option")

	// ErrNoCorrectOption means a question cannot be scored because none of
	// its options is flagged correct.
	ErrNoCorrectOption = errors.New("question has no correct option")
)

// kindError carries a client-facing message and unwraps to its kind.
type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }

func kinded(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

// Invalid builds a validation error with a formatted message.
func Invalid(format string, args ...any) error {
	return kinded(ErrValidation, fmt.Sprintf(format, args...))
}

// Unauthorized builds an authentication error with a formatted message.
func Unauthorized(format string, args ...any) error {
	return kinded(ErrUnauthorized, fmt.Sprintf(format, args...))
}
