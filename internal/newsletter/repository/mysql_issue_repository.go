package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/allisson/newsletter/internal/database"
	apperrors "github.com/allisson/newsletter/internal/errors"
	"github.com/allisson/newsletter/internal/newsletter/domain"
)

// MySQLIssueRepository handles issue persistence for MySQL. IDs are stored as BINARY(16).
type MySQLIssueRepository struct {
	db *sql.DB
}

// NewMySQLIssueRepository creates a new MySQLIssueRepository.
func NewMySQLIssueRepository(db *sql.DB) *MySQLIssueRepository {
	return &MySQLIssueRepository{db: db}
}

// Create inserts a new issue.
func (r *MySQLIssueRepository) Create(ctx context.Context, issue *domain.Issue) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO newsletter_issues
			  (newsletter_issue_id, title, text_content, html_content, published_by, published_at)
			  VALUES (?, ?, ?, ?, ?, ?)`

	_, err := querier.ExecContext(ctx, query,
		issue.ID[:], issue.Title, issue.TextContent, issue.HTMLContent, issue.PublishedBy[:], issue.PublishedAt,
	)
	if err != nil {
		return apperrors.NewStorageError("insert newsletter issue", err)
	}
	return nil
}

// Get retrieves an issue by ID. Returns ErrIssueNotFound if absent.
func (r *MySQLIssueRepository) Get(ctx context.Context, issueID uuid.UUID) (*domain.Issue, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT newsletter_issue_id, title, text_content, html_content, published_by, published_at
			  FROM newsletter_issues
			  WHERE newsletter_issue_id = ?`

	issue, err := scanIssue(querier.QueryRowContext(ctx, query, issueID[:]))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrIssueNotFound
		}
		return nil, apperrors.NewStorageError("get newsletter issue", err)
	}
	return issue, nil
}

// List returns issues ordered by publication time, newest first.
func (r *MySQLIssueRepository) List(ctx context.Context, offset, limit int) ([]*domain.Issue, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT newsletter_issue_id, title, text_content, html_content, published_by, published_at
			  FROM newsletter_issues
			  ORDER BY published_at DESC, newsletter_issue_id DESC
			  LIMIT ? OFFSET ?`

	rows, err := querier.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, apperrors.NewStorageError("list newsletter issues", err)
	}
	defer rows.Close() //nolint:errcheck

	issues := make([]*domain.Issue, 0)
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, apperrors.NewStorageError("scan newsletter issue", err)
		}
		issues = append(issues, issue)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError("list newsletter issues", err)
	}
	return issues, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanIssue(row scanner) (*domain.Issue, error) {
	var issue domain.Issue
	var id, publishedBy []byte

	if err := row.Scan(
		&id, &issue.Title, &issue.TextContent, &issue.HTMLContent, &publishedBy, &issue.PublishedAt,
	); err != nil {
		return nil, err
	}
	if err := issue.ID.UnmarshalBinary(id); err != nil {
		return nil, err
	}
	if err := issue.PublishedBy.UnmarshalBinary(publishedBy); err != nil {
		return nil, err
	}
	return &issue, nil
}
