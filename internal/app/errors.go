package service

import (
	"errors"
	"fmt"

	"github.com/okian/ringside/internal/adapters/repository"
	"github.com/okian/ringside/internal/domain/model"
)

// Service errors. Validation failures surface as model.ErrValidation.
var (
	ErrEngineNotInitialized = errors.New("scoring engine not initialized")
	ErrBoutClosed           = errors.New("bout is closed")
	ErrRoundNotFound        = fmt.Errorf("round %w", repository.ErrNotFound)
	ErrEmptyBatch           = fmt.Errorf("%w: detection batch is empty", model.ErrValidation)
)
