// Package dto provides data transfer objects for the newsletter HTTP layer.
package dto

import (
	validation "github.com/jellydator/validation"

	"github.com/allisson/newsletter/internal/newsletter/domain"
	appValidation "github.com/allisson/newsletter/internal/validation"
)

// PublishIssueRequest is the publish form. It binds from JSON or from a urlencoded form.
type PublishIssueRequest struct {
	Title          string `json:"title"           form:"title"`
	HTMLContent    string `json:"html_content"    form:"html_content"`
	TextContent    string `json:"text_content"    form:"text_content"`
	IdempotencyKey string `json:"idempotency_key" form:"idempotency_key"`
}

// Validate checks the issue content. The idempotency key is parsed separately.
func (r *PublishIssueRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Title,
			validation.Required.Error("title is required"),
			appValidation.NotBlank,
			validation.Length(1, 255),
		),
		validation.Field(&r.HTMLContent,
			validation.Required.Error("html_content is required"),
			appValidation.NotBlank,
		),
		validation.Field(&r.TextContent,
			validation.Required.Error("text_content is required"),
			appValidation.NotBlank,
		),
	)
}

// ToPublishInput converts the request into the use case input.
func (r *PublishIssueRequest) ToPublishInput() *domain.PublishInput {
	return &domain.PublishInput{
		Title:       r.Title,
		HTMLContent: r.HTMLContent,
		TextContent: r.TextContent,
	}
}
