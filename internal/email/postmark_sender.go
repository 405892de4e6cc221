package email

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mrz1836/postmark"

	"github.com/allisson/newsletter/internal/errors"
	"github.com/allisson/newsletter/internal/validation"
)

// ErrInvalidConfig is returned by NewPostmarkSender for incomplete configuration.
var ErrInvalidConfig = errors.New("invalid email configuration")

// Config holds the Postmark transport settings.
type Config struct {
	BaseURL            string
	Sender             string
	AuthorizationToken string
	AccountToken       string
	Timeout            time.Duration
}

// PostmarkSender sends emails through the Postmark API.
type PostmarkSender struct {
	config    Config
	transport http.RoundTripper
}

// NewPostmarkSender validates cfg and creates a PostmarkSender.
func NewPostmarkSender(cfg Config) (*PostmarkSender, error) {
	if cfg.AuthorizationToken == "" {
		return nil, fmt.Errorf("%w: authorization token is required", ErrInvalidConfig)
	}
	if err := validation.Email.Validate(cfg.Sender); err != nil || cfg.Sender == "" {
		return nil, fmt.Errorf("%w: sender must be a valid email address", ErrInvalidConfig)
	}
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("%w: timeout must be positive", ErrInvalidConfig)
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")

	return &PostmarkSender{config: cfg, transport: http.DefaultTransport}, nil
}

// Send posts one email. The call is bounded by the configured timeout, and any non-2xx answer or
// Postmark error code is reported as a TransportError.
func (s *PostmarkSender) Send(ctx context.Context, recipient, subject, htmlBody, textBody string) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	recorder := &statusRecorder{next: s.transport}
	client := postmark.NewClient(s.config.AuthorizationToken, s.config.AccountToken)
	client.HTTPClient = &http.Client{Timeout: s.config.Timeout, Transport: recorder}
	if s.config.BaseURL != "" {
		client.BaseURL = s.config.BaseURL
	}

	resp, err := client.SendEmail(ctx, postmark.Email{
		From:     s.config.Sender,
		To:       recipient,
		Subject:  subject,
		HTMLBody: htmlBody,
		TextBody: textBody,
		Tag:      "newsletter",
	})
	if err != nil {
		return &errors.TransportError{Recipient: recipient, StatusCode: recorder.status, Err: err}
	}
	if resp.ErrorCode != 0 || recorder.status >= http.StatusMultipleChoices {
		return &errors.TransportError{
			Recipient:  recipient,
			StatusCode: recorder.status,
			Code:       int64(resp.ErrorCode),
			Err:        fmt.Errorf("postmark: %s", resp.Message),
		}
	}
	return nil
}

// statusRecorder remembers the status code of the last response it carried.
type statusRecorder struct {
	next   http.RoundTripper
	status int
}

func (r *statusRecorder) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := r.next.RoundTrip(req)
	if resp != nil {
		r.status = resp.StatusCode
	}
	return resp, err
}
