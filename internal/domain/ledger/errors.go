package ledger

import (
	"errors"
	"fmt"

	"github.com/okian/ringside/internal/adapters/repository"
)

// Ledger errors.
var (
	ErrLedgerNotFound   = fmt.Errorf("ledger %w", repository.ErrNotFound)
	ErrRetriesExhausted = errors.New("ledger insert retries exhausted")
)
