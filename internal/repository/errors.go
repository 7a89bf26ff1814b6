package repository

import (
	"errors"
	"fmt"

	"gatewarden/internal/models"

	"github.com/lib/pq"
)

// unavailable tags a driver error with the retryable sentinel so callers can
// keep their in-memory state untouched and try again.
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %v: %w", op, err, models.ErrUnavailable)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
