package messages

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/cryptool/internal/common"
	"github.com/dmitrijs2005/cryptool/internal/dbx"
	"github.com/dmitrijs2005/cryptool/internal/models"
)

// SQLiteRepository implements Repository using a DBTX
// (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const messageColumns = `id, channel_id, text, envelope, timestamp_millis, favorite, ownership`

func scanMessage(scan func(dest ...any) error) (*models.Message, error) {
	var m models.Message
	var ownership string
	if err := scan(&m.Id, &m.ChannelId, &m.Text, &m.Envelope, &m.TimestampMillis, &m.Favorite, &ownership); err != nil {
		return nil, err
	}
	m.Ownership = models.Ownership(ownership)
	return &m, nil
}

func (r *SQLiteRepository) queryMessages(ctx context.Context, query string, args ...any) ([]models.Message, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select messages: %w", err)
	}
	defer rows.Close()

	var result []models.Message
	for rows.Next() {
		m, err := scanMessage(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) GetAll(ctx context.Context) ([]models.Message, error) {
	return r.queryMessages(ctx, `SELECT `+messageColumns+` FROM messages ORDER BY timestamp_millis, id`)
}

func (r *SQLiteRepository) GetAllByChannel(ctx context.Context, channelId string) ([]models.Message, error) {
	return r.queryMessages(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE channel_id = ? ORDER BY timestamp_millis, id`,
		channelId)
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Message, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = ?`, id)
	m, err := scanMessage(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select message: %w", err)
	}
	return m, nil
}

func (r *SQLiteRepository) Insert(ctx context.Context, message *models.Message) error {
	query := `INSERT INTO messages (` + messageColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		message.Id, message.ChannelId, message.Text, message.Envelope,
		message.TimestampMillis, message.Favorite, string(message.Ownership))
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM messages WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return requireAffected(result)
}

func (r *SQLiteRepository) DeleteByChannel(ctx context.Context, channelId string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM messages WHERE channel_id = ?`, channelId); err != nil {
		return fmt.Errorf("failed to delete channel messages: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) SetFavorite(ctx context.Context, id string, favorite bool) error {
	result, err := r.db.ExecContext(ctx, `UPDATE messages SET favorite = ? WHERE id = ?`, favorite, id)
	if err != nil {
		return fmt.Errorf("failed to update message: %w", err)
	}
	return requireAffected(result)
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM messages`); err != nil {
		return fmt.Errorf("failed to clear messages: %w", err)
	}
	return nil
}

func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return common.ErrNotFound
	}
	return nil
}
