package channels

import (
	"context"

	"github.com/dmitrijs2005/cryptool/internal/models"
)

// Repository describes persistence operations for Channel records.
// Implementations are backed by the local SQLite database. Callers that need
// multi-statement atomicity construct the repository over a dbx transaction.
type Repository interface {
	// GetAll returns every channel.
	GetAll(ctx context.Context) ([]models.Channel, error)

	// GetByID returns a channel by id, or common.ErrNotFound.
	GetByID(ctx context.Context, id string) (*models.Channel, error)

	// Insert adds a new channel row.
	Insert(ctx context.Context, channel *models.Channel) error

	// Update rewrites every mutable column of the channel row identified by
	// channel.Id, or fails with common.ErrNotFound.
	Update(ctx context.Context, channel *models.Channel) error

	// Delete removes a channel row, or fails with common.ErrNotFound.
	Delete(ctx context.Context, id string) error

	// SetFavorite sets the favorite flag, or fails with common.ErrNotFound.
	// Setting the flag to its current value is a no-op.
	SetFavorite(ctx context.Context, id string, favorite bool) error

	// SetSource rebinds the channel's transport; nil unbinds. Fails with
	// common.ErrNotFound for an unknown id.
	SetSource(ctx context.Context, id string, source models.Source) error

	// GetAllWithSource returns channels bound exactly to the serialized
	// source value.
	GetAllWithSource(ctx context.Context, serialized string) ([]models.Channel, error)

	// GetAllWithSourcePrefix returns channels whose serialized source starts
	// with the prefix. Used to route inbound traffic by sender identity.
	GetAllWithSourcePrefix(ctx context.Context, prefix string) ([]models.Channel, error)

	// IncrementUnread bumps the unseen-message counter.
	IncrementUnread(ctx context.Context, id string) error

	// ResetUnread clears the unseen-message counter.
	ResetUnread(ctx context.Context, id string) error

	// Clear removes every channel row. Used by the gatekeeper reset.
	Clear(ctx context.Context) error
}
