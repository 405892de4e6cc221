package repository

import (
	"database/sql"

	apperrors "github.com/allisson/newsletter/internal/errors"
	"github.com/allisson/newsletter/internal/idempotency/domain"
)

func rowsAffected(result sql.Result, op string) (bool, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.NewStorageError(op, err)
	}
	return n > 0, nil
}

func toSavedResponse(statusCode int, headers, body []byte) (*domain.SavedResponse, error) {
	pairs, err := domain.DecodeHeaders(headers)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to decode saved response headers")
	}
	return &domain.SavedResponse{
		StatusCode: statusCode,
		Headers:    pairs,
		Body:       nonNilBody(body),
	}, nil
}

// nonNilBody keeps empty bodies distinct from NULL.
func nonNilBody(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
