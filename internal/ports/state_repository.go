package ports

import (
	"context"

	"github.com/bnema/lfg-coordinator/internal/domain"
)

// StateRepository is the durable mirror of the registry. Load of an empty
// store returns an empty, normalized state rather than an error.
type StateRepository interface {
	Load(ctx context.Context) (domain.State, error)
	Save(ctx context.Context, state domain.State) error
}
