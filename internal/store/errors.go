package store

import (
	"errors"
	"fmt"

	"github.com/nhle/inbox-calendar/internal/model"
)

// DuplicateError reports an upsert rejected because the source
// message id already exists in a partition. Non-fatal: the original
// record is untouched.
type DuplicateError struct {
	MessageID string
	Existing  model.Status
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf(
		"candidate for message %s already exists with status %s",
		e.MessageID, e.Existing,
	)
}

// NotFoundError reports that a transition's precondition failed: the
// id is missing, or not in the partition the operation requires.
type NotFoundError struct {
	MessageID string
	Want      model.Status
}

func (e *NotFoundError) Error() string {
	if e.Want == "" {
		return fmt.Sprintf("no candidate for message %s", e.MessageID)
	}
	return fmt.Sprintf(
		"no %s candidate for message %s", e.Want, e.MessageID,
	)
}

// CorruptionError reports that persisted state could not be read.
// The current cycle must fail loudly; pending candidates are never
// silently dropped.
type CorruptionError struct {
	Path string
	Err  error
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("event store %s is unreadable: %v", e.Path, e.Err)
}

func (e *CorruptionError) Unwrap() error { return e.Err }

// IsDuplicate reports whether err is a DuplicateError.
func IsDuplicate(err error) bool {
	var de *DuplicateError
	return errors.As(err, &de)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var ne *NotFoundError
	return errors.As(err, &ne)
}

// IsCorruption reports whether err is a CorruptionError.
func IsCorruption(err error) bool {
	var ce *CorruptionError
	return errors.As(err, &ce)
}
