package channels

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

const channelColumns = `id, name, password, cipher_version, source, favorite, unread`

func scanChannel(scan func(dest ...any) error) (*models.Channel, error) {
	var c models.Channel
	var cipher string
	var source sql.NullString
	if err := scan(&c.Id, &c.Name, &c.Password, &cipher, &source, &c.Favorite, &c.Unread); err != nil {
		return nil, err
	}
	c.Cipher = models.CipherVersion(cipher)
	if source.Valid {
		parsed, err := models.ParseSource(source.String)
		if err != nil {
			return nil, fmt.Errorf("channel %s: %w", c.Id, err)
		}
		c.Source = parsed
	}
	return &c, nil
}

func serializeSource(source models.Source) any {
	if source == nil {
		return nil
	}
	return source.Serialize()
}

func (r *SQLiteRepository) queryChannels(ctx context.Context, query string, args ...any) ([]models.Channel, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select channels: %w", err)
	}
	defer rows.Close()

	var result []models.Channel
	for rows.Next() {
		c, err := scanChannel(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) GetAll(ctx context.Context) ([]models.Channel, error) {
	return r.queryChannels(ctx, `SELECT `+channelColumns+` FROM channels ORDER BY name, id`)
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Channel, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+channelColumns+` FROM channels WHERE id = ?`, id)
	c, err := scanChannel(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select channel: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) Insert(ctx context.Context, channel *models.Channel) error {
	query := `INSERT INTO channels (` + channelColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		channel.Id, channel.Name, channel.Password, string(channel.Cipher),
		serializeSource(channel.Source), channel.Favorite, channel.Unread)
	if err != nil {
		return fmt.Errorf("failed to insert channel: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Update(ctx context.Context, channel *models.Channel) error {
	query := `UPDATE channels
		SET name = ?, password = ?, cipher_version = ?, source = ?, favorite = ?, unread = ?
		WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query,
		channel.Name, channel.Password, string(channel.Cipher),
		serializeSource(channel.Source), channel.Favorite, channel.Unread, channel.Id)
	if err != nil {
		return fmt.Errorf("failed to update channel: %w", err)
	}
	return requireAffected(result)
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM channels WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete channel: %w", err)
	}
	return requireAffected(result)
}

func (r *SQLiteRepository) SetFavorite(ctx context.Context, id string, favorite bool) error {
	return r.setColumn(ctx, id, `UPDATE channels SET favorite = ? WHERE id = ?`, favorite)
}

func (r *SQLiteRepository) SetSource(ctx context.Context, id string, source models.Source) error {
	return r.setColumn(ctx, id, `UPDATE channels SET source = ? WHERE id = ?`, serializeSource(source))
}

func (r *SQLiteRepository) GetAllWithSource(ctx context.Context, serialized string) ([]models.Channel, error) {
	return r.queryChannels(ctx, `SELECT `+channelColumns+` FROM channels WHERE source = ?`, serialized)
}

func (r *SQLiteRepository) GetAllWithSourcePrefix(ctx context.Context, prefix string) ([]models.Channel, error) {
	return r.queryChannels(ctx,
		`SELECT `+channelColumns+` FROM channels WHERE source IS NOT NULL AND source LIKE ? ESCAPE '\'`,
		escapeLike(prefix)+"%")
}

func (r *SQLiteRepository) IncrementUnread(ctx context.Context, id string) error {
	return r.setColumn(ctx, id, `UPDATE channels SET unread = unread + 1 WHERE id = ?`)
}

func (r *SQLiteRepository) ResetUnread(ctx context.Context, id string) error {
	return r.setColumn(ctx, id, `UPDATE channels SET unread = 0 WHERE id = ?`)
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM channels`); err != nil {
		return fmt.Errorf("failed to clear channels: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) setColumn(ctx context.Context, id string, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, append(args, id)...)
	if err != nil {
		return fmt.Errorf("failed to update channel: %w", err)
	}
	return requireAffected(result)
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

func escapeLike(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%', '_', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
