// Package adapter defines the error taxonomy shared by the mailbox
// and calendar collaborator boundaries. The lifecycle coordinator
// uses these types to decide between retrying a candidate and moving
// it to a terminal state.
package adapter

import (
	"errors"
	"fmt"
)

// TransientError indicates a recoverable adapter failure, e.g. a
// network timeout or a 5xx response. The failed operation is retried
// on the next polling cycle.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient adapter error (%s): %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// PermanentError indicates a failure that will not resolve by
// retrying, e.g. a malformed payload. Candidates hitting a permanent
// error are declined with an annotation.
type PermanentError struct {
	Op  string
	Err error
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("permanent adapter error (%s): %v", e.Op, e.Err)
}

func (e *PermanentError) Unwrap() error { return e.Err }

// AuthError indicates that authentication has failed or expired for
// an adapter. Treated as permanent until credentials are refreshed.
type AuthError struct {
	Op      string
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error (%s): %s", e.Op, e.Message)
}

// IsTransient reports whether err (or any error in its chain) is a
// TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsPermanent reports whether err is a PermanentError or an AuthError.
func IsPermanent(err error) bool {
	var pe *PermanentError
	if errors.As(err, &pe) {
		return true
	}
	return IsAuth(err)
}

// IsAuth reports whether err (or any error in its chain) is an
// AuthError.
func IsAuth(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}
