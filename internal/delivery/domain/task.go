// Package domain defines the delivery queue entities.
//
// A queued Task is pending by existing: the row is removed once the delivery reaches a terminal
// outcome (sent, or dropped after a failure).
package domain

import (
	"strings"
	"time"

	validation "github.com/jellydator/validation"

	"github.com/google/uuid"

	"github.com/allisson/newsletter/internal/errors"
	appValidation "github.com/allisson/newsletter/internal/validation"
)

// Task is one pending (issue, recipient) delivery.
type Task struct {
	IssueID         uuid.UUID
	SubscriberEmail string
	// NRetries counts failed send attempts so far.
	NRetries int
	// ExecuteAfter is the earliest time the task may be dequeued.
	ExecuteAfter time.Time
}

// Outcome is the result of one worker iteration.
type Outcome int

const (
	// OutcomeTaskCompleted means a task was dequeued and reached a decision (sent, dropped or rescheduled).
	OutcomeTaskCompleted Outcome = iota + 1
	// OutcomeEmptyQueue means no task was ready.
	OutcomeEmptyQueue
)

func (o Outcome) String() string {
	switch o {
	case OutcomeTaskCompleted:
		return "task_completed"
	case OutcomeEmptyQueue:
		return "empty_queue"
	default:
		return "unknown"
	}
}

// SubscriberEmail is a validated recipient address.
type SubscriberEmail string

// ParseSubscriberEmail validates s as a recipient address.
func ParseSubscriberEmail(s string) (SubscriberEmail, error) {
	if err := validation.Validate(s, validation.Required, validation.Length(1, 255), appValidation.Email); err != nil {
		return "", errors.NewValidationError("subscriber_email", strings.TrimSuffix(err.Error(), "."))
	}
	return SubscriberEmail(s), nil
}

func (e SubscriberEmail) String() string { return string(e) }

// ErrQueueEmpty indicates no task is ready to be processed.
var ErrQueueEmpty = errors.New("delivery queue is empty")
