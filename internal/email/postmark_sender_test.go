package email

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/newsletter/internal/errors"
)

func testConfig(baseURL string) Config {
	return Config{
		BaseURL:            baseURL,
		Sender:             "newsletter@example.com",
		AuthorizationToken: "server-token",
		Timeout:            time.Second,
	}
}

func TestNewPostmarkSender_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		modify func(cfg *Config)
	}{
		{name: "missing token", modify: func(cfg *Config) { cfg.AuthorizationToken = "" }},
		{name: "missing sender", modify: func(cfg *Config) { cfg.Sender = "" }},
		{name: "invalid sender", modify: func(cfg *Config) { cfg.Sender = "not-an-email" }},
		{name: "zero timeout", modify: func(cfg *Config) { cfg.Timeout = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig("http://localhost")
			tt.modify(&cfg)

			sender, err := NewPostmarkSender(cfg)
			assert.Nil(t, sender)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestPostmarkSender_Send(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		var payload map[string]any
		var token string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token = r.Header.Get("X-Postmark-Server-Token")
			_ = json.NewDecoder(r.Body).Decode(&payload)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"To":"reader@example.com","MessageID":"abc","ErrorCode":0,"Message":"OK"}`))
		}))
		defer server.Close()

		sender, err := NewPostmarkSender(testConfig(server.URL + "/"))
		require.NoError(t, err)

		err = sender.Send(context.Background(), "reader@example.com", "Issue 1", "<p>hi</p>", "hi")
		require.NoError(t, err)

		assert.Equal(t, "server-token", token)
		assert.Equal(t, "reader@example.com", payload["To"])
		assert.Equal(t, "newsletter@example.com", payload["From"])
		assert.Equal(t, "Issue 1", payload["Subject"])
	})

	t.Run("Error_PostmarkErrorCode", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"ErrorCode":300,"Message":"Invalid 'To' address"}`))
		}))
		defer server.Close()

		sender, err := NewPostmarkSender(testConfig(server.URL))
		require.NoError(t, err)

		err = sender.Send(context.Background(), "reader@example.com", "s", "h", "t")
		require.Error(t, err)
		assert.Equal(t, apperrors.KindTransport, apperrors.KindOf(err))

		var transportErr *apperrors.TransportError
		require.ErrorAs(t, err, &transportErr)
		assert.Equal(t, "reader@example.com", transportErr.Recipient)
		assert.Equal(t, http.StatusUnprocessableEntity, transportErr.StatusCode)
	})

	t.Run("Error_ServerError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte("internal error"))
		}))
		defer server.Close()

		sender, err := NewPostmarkSender(testConfig(server.URL))
		require.NoError(t, err)

		err = sender.Send(context.Background(), "reader@example.com", "s", "h", "t")
		assert.Equal(t, apperrors.KindTransport, apperrors.KindOf(err))
	})

	t.Run("Error_Timeout", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}))
		defer server.Close()

		cfg := testConfig(server.URL)
		cfg.Timeout = 50 * time.Millisecond
		sender, err := NewPostmarkSender(cfg)
		require.NoError(t, err)

		start := time.Now()
		err = sender.Send(context.Background(), "reader@example.com", "s", "h", "t")
		assert.Equal(t, apperrors.KindTransport, apperrors.KindOf(err))
		assert.Less(t, time.Since(start), time.Second)
	})
}

func TestLogSender_Send(t *testing.T) {
	sender := NewLogSender(slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.NoError(t, sender.Send(context.Background(), "reader@example.com", "s", "h", "t"))
}
