package dto

import (
	"time"

	"github.com/allisson/newsletter/internal/newsletter/domain"
)

// IssueResponse represents an issue in API responses.
type IssueResponse struct {
	ID                string    `json:"id"`
	Title             string    `json:"title"`
	TextContent       string    `json:"text_content"`
	HTMLContent       string    `json:"html_content"`
	PublishedBy       string    `json:"published_by"`
	PublishedAt       time.Time `json:"published_at"`
	PendingDeliveries *int64    `json:"pending_deliveries,omitempty"`
}

// ListIssuesResponse represents a page of issues.
type ListIssuesResponse struct {
	Data []IssueResponse `json:"data"`
}

func mapIssue(issue *domain.Issue) IssueResponse {
	return IssueResponse{
		ID:          issue.ID.String(),
		Title:       issue.Title,
		TextContent: issue.TextContent,
		HTMLContent: issue.HTMLContent,
		PublishedBy: issue.PublishedBy.String(),
		PublishedAt: issue.PublishedAt,
	}
}

// MapIssueViewToResponse converts an issue view, including its pending delivery count.
func MapIssueViewToResponse(view *domain.IssueView) IssueResponse {
	resp := mapIssue(view.Issue)
	pending := view.PendingDeliveries
	resp.PendingDeliveries = &pending
	return resp
}

// MapIssuesToListResponse converts a slice of issues to a list response.
func MapIssuesToListResponse(issues []*domain.Issue) ListIssuesResponse {
	data := make([]IssueResponse, 0, len(issues))
	for _, issue := range issues {
		data = append(data, mapIssue(issue))
	}
	return ListIssuesResponse{Data: data}
}
