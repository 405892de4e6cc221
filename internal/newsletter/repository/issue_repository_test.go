package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/newsletter/internal/newsletter/domain"
	"github.com/allisson/newsletter/internal/testutil"
)

type issueRepository interface {
	Create(ctx context.Context, issue *domain.Issue) error
	Get(ctx context.Context, issueID uuid.UUID) (*domain.Issue, error)
	List(ctx context.Context, offset, limit int) ([]*domain.Issue, error)
}

var issueCases = []struct {
	name   string
	driver string
	setup  func(t *testing.T) *sql.DB
	repo   func(db *sql.DB) issueRepository
}{
	{
		name:   "postgres",
		driver: "postgres",
		setup:  testutil.SetupPostgresDB,
		repo:   func(db *sql.DB) issueRepository { return NewPostgreSQLIssueRepository(db) },
	},
	{
		name:   "mysql",
		driver: "mysql",
		setup:  testutil.SetupMySQLDB,
		repo:   func(db *sql.DB) issueRepository { return NewMySQLIssueRepository(db) },
	},
}

func newIssue(publishedBy uuid.UUID, title string, publishedAt time.Time) *domain.Issue {
	return &domain.Issue{
		ID:          uuid.Must(uuid.NewV7()),
		Title:       title,
		TextContent: title + " text",
		HTMLContent: "<p>" + title + "</p>",
		PublishedBy: publishedBy,
		PublishedAt: publishedAt,
	}
}

func TestIssueRepository_CreateAndGet(t *testing.T) {
	for _, tc := range issueCases {
		t.Run(tc.name, func(t *testing.T) {
			db := tc.setup(t)
			defer testutil.TeardownDB(t, db)

			repo := tc.repo(db)
			ctx := context.Background()
			userID := testutil.CreateTestUser(t, db, tc.driver, "admin@example.com")

			issue := newIssue(userID, "Issue 1", time.Now().UTC())
			require.NoError(t, repo.Create(ctx, issue))

			got, err := repo.Get(ctx, issue.ID)
			require.NoError(t, err)
			assert.Equal(t, issue.ID, got.ID)
			assert.Equal(t, issue.Title, got.Title)
			assert.Equal(t, issue.TextContent, got.TextContent)
			assert.Equal(t, issue.HTMLContent, got.HTMLContent)
			assert.Equal(t, userID, got.PublishedBy)
			assert.WithinDuration(t, issue.PublishedAt, got.PublishedAt, time.Second)

			_, err = repo.Get(ctx, uuid.Must(uuid.NewV7()))
			assert.ErrorIs(t, err, domain.ErrIssueNotFound)

			// Duplicate IDs are rejected.
			assert.Error(t, repo.Create(ctx, issue))
		})
	}
}

func TestIssueRepository_List(t *testing.T) {
	for _, tc := range issueCases {
		t.Run(tc.name, func(t *testing.T) {
			db := tc.setup(t)
			defer testutil.TeardownDB(t, db)

			repo := tc.repo(db)
			ctx := context.Background()
			userID := testutil.CreateTestUser(t, db, tc.driver, "admin@example.com")

			base := time.Now().UTC().Add(-time.Hour)
			for i, title := range []string{"first", "second", "third"} {
				require.NoError(t, repo.Create(ctx, newIssue(userID, title, base.Add(time.Duration(i)*time.Minute))))
			}

			issues, err := repo.List(ctx, 0, 2)
			require.NoError(t, err)
			require.Len(t, issues, 2)
			assert.Equal(t, "third", issues[0].Title)
			assert.Equal(t, "second", issues[1].Title)

			issues, err = repo.List(ctx, 2, 2)
			require.NoError(t, err)
			require.Len(t, issues, 1)
			assert.Equal(t, "first", issues[0].Title)

			issues, err = repo.List(ctx, 10, 2)
			require.NoError(t, err)
			assert.Empty(t, issues)
		})
	}
}
