// Package repository provides data persistence implementations for newsletter issues.
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

// PostgreSQLIssueRepository handles issue persistence for PostgreSQL.
type PostgreSQLIssueRepository struct {
	db *sql.DB
}

// NewPostgreSQLIssueRepository creates a new PostgreSQLIssueRepository.
func NewPostgreSQLIssueRepository(db *sql.DB) *PostgreSQLIssueRepository {
	return &PostgreSQLIssueRepository{db: db}
}

// Create inserts a new issue.
func (r *PostgreSQLIssueRepository) Create(ctx context.Context, issue *domain.Issue) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO newsletter_issues
			  (newsletter_issue_id, title, text_content, html_content, published_by, published_at)
			  VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := querier.ExecContext(ctx, query,
		issue.ID, issue.Title, issue.TextContent, issue.HTMLContent, issue.PublishedBy, issue.PublishedAt,
	)
	if err != nil {
		return apperrors.NewStorageError("insert newsletter issue", err)
	}
	return nil
}

// Get retrieves an issue by ID. Returns ErrIssueNotFound if absent.
func (r *PostgreSQLIssueRepository) Get(ctx context.Context, issueID uuid.UUID) (*domain.Issue, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT newsletter_issue_id, title, text_content, html_content, published_by, published_at
			  FROM newsletter_issues
			  WHERE newsletter_issue_id = $1`

	var issue domain.Issue
	err := querier.QueryRowContext(ctx, query, issueID).Scan(
		&issue.ID, &issue.Title, &issue.TextContent, &issue.HTMLContent, &issue.PublishedBy, &issue.PublishedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrIssueNotFound
		}
		return nil, apperrors.NewStorageError("get newsletter issue", err)
	}
	return &issue, nil
}

// List returns issues ordered by publication time, newest first.
func (r *PostgreSQLIssueRepository) List(ctx context.Context, offset, limit int) ([]*domain.Issue, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT newsletter_issue_id, title, text_content, html_content, published_by, published_at
			  FROM newsletter_issues
			  ORDER BY published_at DESC, newsletter_issue_id DESC
			  LIMIT $1 OFFSET $2`

	rows, err := querier.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, apperrors.NewStorageError("list newsletter issues", err)
	}
	defer rows.Close() //nolint:errcheck

	issues := make([]*domain.Issue, 0)
	for rows.Next() {
		var issue domain.Issue
		if err := rows.Scan(
			&issue.ID, &issue.Title, &issue.TextContent, &issue.HTMLContent, &issue.PublishedBy, &issue.PublishedAt,
		); err != nil {
			return nil, apperrors.NewStorageError("scan newsletter issue", err)
		}
		issues = append(issues, &issue)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError("list newsletter issues", err)
	}
	return issues, nil
}
