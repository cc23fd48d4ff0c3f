package messages

import (
	"context"

	"github.com/dmitrijs2005/cryptool/internal/models"
)

// Repository describes persistence operations for Message records.
type Repository interface {
	// GetAll returns every message, oldest first.
	GetAll(ctx context.Context) ([]models.Message, error)

	// GetAllByChannel returns the messages of one channel, oldest first.
	GetAllByChannel(ctx context.Context, channelId string) ([]models.Message, error)

	// GetByID returns a message by id, or common.ErrNotFound.
	GetByID(ctx context.Context, id string) (*models.Message, error)

	// Insert adds a new message row.
	Insert(ctx context.Context, message *models.Message) error

	// Delete removes a message row, or fails with common.ErrNotFound.
	Delete(ctx context.Context, id string) error

	// DeleteByChannel removes every message of the channel. Used when a
	// channel is deleted (cascade).
	DeleteByChannel(ctx context.Context, channelId string) error

	// SetFavorite sets the favorite flag, or fails with common.ErrNotFound.
	// Setting the flag to its current value is a no-op.
	SetFavorite(ctx context.Context, id string, favorite bool) error

	// Clear removes every message row. Used by the gatekeeper reset.
	Clear(ctx context.Context) error
}
