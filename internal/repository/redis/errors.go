package redis

import (
	"fmt"

	"github.com/Vaanter/alphapack-ledger/internal/repository"
)

// wrapUnavailable tags store round-trip failures (connection loss, timeouts,
// server errors) so callers can match repository.ErrUnavailable and decide
// whether to retry.
func wrapUnavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", repository.ErrUnavailable, op, err)
}
