package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/newsletter/internal/database"
	"github.com/allisson/newsletter/internal/delivery/domain"
	newsletterDomain "github.com/allisson/newsletter/internal/newsletter/domain"
	newsletterRepository "github.com/allisson/newsletter/internal/newsletter/repository"
	"github.com/allisson/newsletter/internal/testutil"
)

type queueRepository interface {
	Enqueue(ctx context.Context, issueID uuid.UUID, now time.Time) (int64, error)
	Dequeue(ctx context.Context, now time.Time) (*domain.Task, error)
	Delete(ctx context.Context, task *domain.Task) error
	Reschedule(ctx context.Context, task *domain.Task) error
	CountPending(ctx context.Context, issueID uuid.UUID) (int64, error)
}

type issueCreator interface {
	Create(ctx context.Context, issue *newsletterDomain.Issue) error
}

var queueCases = []struct {
	name   string
	driver string
	setup  func(t *testing.T) *sql.DB
	repo   func(db *sql.DB) queueRepository
	issues func(db *sql.DB) issueCreator
}{
	{
		name:   "postgres",
		driver: "postgres",
		setup:  testutil.SetupPostgresDB,
		repo:   func(db *sql.DB) queueRepository { return NewPostgreSQLQueueRepository(db) },
		issues: func(db *sql.DB) issueCreator { return newsletterRepository.NewPostgreSQLIssueRepository(db) },
	},
	{
		name:   "mysql",
		driver: "mysql",
		setup:  testutil.SetupMySQLDB,
		repo:   func(db *sql.DB) queueRepository { return NewMySQLQueueRepository(db) },
		issues: func(db *sql.DB) issueCreator { return newsletterRepository.NewMySQLIssueRepository(db) },
	},
}

func createIssue(t *testing.T, ctx context.Context, creator issueCreator, userID uuid.UUID) uuid.UUID {
	t.Helper()
	issue := &newsletterDomain.Issue{
		ID:          uuid.Must(uuid.NewV7()),
		Title:       "Issue",
		TextContent: "text",
		HTMLContent: "<p>html</p>",
		PublishedBy: userID,
		PublishedAt: time.Now().UTC(),
	}
	require.NoError(t, creator.Create(ctx, issue))
	return issue.ID
}

func TestQueueRepository_EnqueueSnapshotsConfirmedSubscribers(t *testing.T) {
	for _, tc := range queueCases {
		t.Run(tc.name, func(t *testing.T) {
			db := tc.setup(t)
			defer testutil.TeardownDB(t, db)

			repo := tc.repo(db)
			ctx := context.Background()
			userID := testutil.CreateTestUser(t, db, tc.driver, "admin@example.com")
			issueID := createIssue(t, ctx, tc.issues(db), userID)

			testutil.CreateTestSubscriber(t, db, tc.driver, "a@example.com", SubscriptionStatusConfirmed)
			testutil.CreateTestSubscriber(t, db, tc.driver, "b@example.com", SubscriptionStatusConfirmed)
			testutil.CreateTestSubscriber(t, db, tc.driver, "c@example.com", "pending_confirmation")

			count, err := repo.Enqueue(ctx, issueID, time.Now().UTC())
			require.NoError(t, err)
			assert.Equal(t, int64(2), count)

			// Confirmed after enqueue: not part of the snapshot.
			testutil.CreateTestSubscriber(t, db, tc.driver, "late@example.com", SubscriptionStatusConfirmed)

			pending, err := repo.CountPending(ctx, issueID)
			require.NoError(t, err)
			assert.Equal(t, int64(2), pending)
		})
	}
}

func TestQueueRepository_DequeueDeleteAndReschedule(t *testing.T) {
	for _, tc := range queueCases {
		t.Run(tc.name, func(t *testing.T) {
			db := tc.setup(t)
			defer testutil.TeardownDB(t, db)

			repo := tc.repo(db)
			txManager := database.NewTxManager(db)
			ctx := context.Background()
			userID := testutil.CreateTestUser(t, db, tc.driver, "admin@example.com")
			issueID := createIssue(t, ctx, tc.issues(db), userID)
			testutil.CreateTestSubscriber(t, db, tc.driver, "a@example.com", SubscriptionStatusConfirmed)

			now := time.Now().UTC()
			_, err := repo.Enqueue(ctx, issueID, now.Add(-time.Second))
			require.NoError(t, err)

			// Reschedule into the future: the task is no longer ready.
			err = txManager.WithTx(ctx, func(ctx context.Context) error {
				task, err := repo.Dequeue(ctx, now)
				require.NoError(t, err)
				assert.Equal(t, issueID, task.IssueID)
				assert.Equal(t, "a@example.com", task.SubscriberEmail)
				assert.Equal(t, 0, task.NRetries)

				task.NRetries = 1
				task.ExecuteAfter = now.Add(time.Hour)
				return repo.Reschedule(ctx, task)
			})
			require.NoError(t, err)

			err = txManager.WithTx(ctx, func(ctx context.Context) error {
				_, err := repo.Dequeue(ctx, now)
				return err
			})
			assert.ErrorIs(t, err, domain.ErrQueueEmpty)

			err = txManager.WithTx(ctx, func(ctx context.Context) error {
				task, err := repo.Dequeue(ctx, now.Add(2*time.Hour))
				require.NoError(t, err)
				assert.Equal(t, 1, task.NRetries)
				return repo.Delete(ctx, task)
			})
			require.NoError(t, err)

			pending, err := repo.CountPending(ctx, issueID)
			require.NoError(t, err)
			assert.Zero(t, pending)
		})
	}
}

func TestQueueRepository_DequeueSkipsLockedRows(t *testing.T) {
	for _, tc := range queueCases {
		t.Run(tc.name, func(t *testing.T) {
			db := tc.setup(t)
			defer testutil.TeardownDB(t, db)

			repo := tc.repo(db)
			ctx := context.Background()
			userID := testutil.CreateTestUser(t, db, tc.driver, "admin@example.com")
			issueID := createIssue(t, ctx, tc.issues(db), userID)
			testutil.CreateTestSubscriber(t, db, tc.driver, "a@example.com", SubscriptionStatusConfirmed)
			testutil.CreateTestSubscriber(t, db, tc.driver, "b@example.com", SubscriptionStatusConfirmed)

			now := time.Now().UTC()
			_, err := repo.Enqueue(ctx, issueID, now.Add(-time.Second))
			require.NoError(t, err)

			tx1, err := db.BeginTx(ctx, nil)
			require.NoError(t, err)
			defer tx1.Rollback() //nolint:errcheck
			tx2, err := db.BeginTx(ctx, nil)
			require.NoError(t, err)
			defer tx2.Rollback() //nolint:errcheck
			tx3, err := db.BeginTx(ctx, nil)
			require.NoError(t, err)
			defer tx3.Rollback() //nolint:errcheck

			first, err := repo.Dequeue(database.ContextWithTx(ctx, tx1), now)
			require.NoError(t, err)
			second, err := repo.Dequeue(database.ContextWithTx(ctx, tx2), now)
			require.NoError(t, err)
			assert.NotEqual(t, first.SubscriberEmail, second.SubscriberEmail)

			_, err = repo.Dequeue(database.ContextWithTx(ctx, tx3), now)
			assert.ErrorIs(t, err, domain.ErrQueueEmpty)
		})
	}
}
