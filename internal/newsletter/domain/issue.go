// Package domain defines newsletter issues and the publish request.
package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/allisson/newsletter/internal/errors"
	idempotencyDomain "github.com/allisson/newsletter/internal/idempotency/domain"
)

// Issue is a published newsletter issue. Issues are immutable once written.
type Issue struct {
	ID          uuid.UUID
	Title       string
	TextContent string
	HTMLContent string
	PublishedBy uuid.UUID
	PublishedAt time.Time
}

// PublishInput contains the content of an issue and the key guarding its publication.
type PublishInput struct {
	Title          string
	TextContent    string
	HTMLContent    string
	IdempotencyKey idempotencyDomain.Key
}

// IssueView is an issue together with the number of deliveries still queued for it.
type IssueView struct {
	Issue             *Issue
	PendingDeliveries int64
}

// AcceptedMessage is returned to the publisher once the issue and its deliveries are committed.
const AcceptedMessage = "The newsletter issue has been accepted - emails will go out shortly!"

// ErrIssueNotFound indicates the issue does not exist.
var ErrIssueNotFound = errors.Wrap(errors.ErrNotFound, "newsletter issue not found")
