package usecase

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/newsletter/internal/database"
	"github.com/allisson/newsletter/internal/errors"
	idempotencyDomain "github.com/allisson/newsletter/internal/idempotency/domain"
	idempotencyUseCase "github.com/allisson/newsletter/internal/idempotency/usecase"
	"github.com/allisson/newsletter/internal/newsletter/domain"
)

// IssuesPath is the URL prefix of issue resources.
const IssuesPath = "/v1/admin/newsletters"

type acceptedBody struct {
	IssueID string `json:"issue_id"`
	Message string `json:"message"`
}

type newsletterUseCase struct {
	txManager database.TxManager
	ledger    idempotencyUseCase.LedgerUseCase
	issues    IssueRepository
	queue     DeliveryQueue
	baseURL   string
	logger    *slog.Logger
	now       func() time.Time
}

// NewNewsletterUseCase creates a new newsletter UseCase. baseURL prefixes the Location of
// accepted publications and may be empty for a relative location.
func NewNewsletterUseCase(
	txManager database.TxManager,
	ledger idempotencyUseCase.LedgerUseCase,
	issues IssueRepository,
	queue DeliveryQueue,
	baseURL string,
	logger *slog.Logger,
) UseCase {
	return &newsletterUseCase{
		txManager: txManager,
		ledger:    ledger,
		issues:    issues,
		queue:     queue,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (n *newsletterUseCase) Publish(
	ctx context.Context,
	userID uuid.UUID,
	input *domain.PublishInput,
) (*idempotencyDomain.SavedResponse, error) {
	var resp *idempotencyDomain.SavedResponse

	err := n.txManager.WithTx(ctx, func(ctx context.Context) error {
		claim, err := n.ledger.Claim(ctx, userID, input.IdempotencyKey)
		if err != nil {
			return err
		}
		if claim.Outcome == idempotencyDomain.ClaimReplay {
			resp = claim.Saved
			return nil
		}

		now := n.now()
		issue := &domain.Issue{
			ID:          uuid.Must(uuid.NewV7()),
			Title:       input.Title,
			TextContent: input.TextContent,
			HTMLContent: input.HTMLContent,
			PublishedBy: userID,
			PublishedAt: now,
		}
		if err := n.issues.Create(ctx, issue); err != nil {
			return err
		}

		enqueued, err := n.queue.Enqueue(ctx, issue.ID, now)
		if err != nil {
			return err
		}

		accepted, err := n.acceptedResponse(issue.ID)
		if err != nil {
			return err
		}
		if err := n.ledger.Complete(ctx, userID, input.IdempotencyKey, *accepted); err != nil {
			return err
		}

		n.logger.Info("newsletter issue published",
			slog.String("issue_id", issue.ID.String()),
			slog.String("user_id", userID.String()),
			slog.Int64("enqueued", enqueued),
		)
		resp = accepted
		return nil
	})
	if err != nil {
		return nil, err
	}

	return resp, nil
}

// acceptedResponse builds the 303 returned to the publisher and saved for replay.
func (n *newsletterUseCase) acceptedResponse(issueID uuid.UUID) (*idempotencyDomain.SavedResponse, error) {
	body, err := json.Marshal(acceptedBody{
		IssueID: issueID.String(),
		Message: domain.AcceptedMessage,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode publish response")
	}

	header := http.Header{}
	header.Set("Content-Type", "application/json; charset=utf-8")
	header.Set("Location", n.baseURL+IssuesPath+"/"+issueID.String())

	return &idempotencyDomain.SavedResponse{
		StatusCode: http.StatusSeeOther,
		Headers:    idempotencyDomain.HeadersFromHTTP(header),
		Body:       body,
	}, nil
}

func (n *newsletterUseCase) Get(ctx context.Context, issueID uuid.UUID) (*domain.IssueView, error) {
	issue, err := n.issues.Get(ctx, issueID)
	if err != nil {
		return nil, err
	}

	pending, err := n.queue.CountPending(ctx, issueID)
	if err != nil {
		return nil, err
	}

	return &domain.IssueView{Issue: issue, PendingDeliveries: pending}, nil
}

func (n *newsletterUseCase) List(ctx context.Context, offset, limit int) ([]*domain.Issue, error) {
	return n.issues.List(ctx, offset, limit)
}
