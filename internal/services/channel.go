// Package services contains the application services of Cryptool: the
// channel store, the message exchange, the access gatekeeper and the
// snapshot exporter/importer used by re-keying.
package services

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/cryptool/internal/common"
	"github.com/dmitrijs2005/cryptool/internal/dbx"
	"github.com/dmitrijs2005/cryptool/internal/feed"
	"github.com/dmitrijs2005/cryptool/internal/logging"
	"github.com/dmitrijs2005/cryptool/internal/models"
	"github.com/dmitrijs2005/cryptool/internal/repositories/channels"
)

// SetSourceAction is invoked after a channel's source binding changes,
// letting transport listeners re-subscribe.
type SetSourceAction func(source models.Source)

// ChannelService owns the lifecycle of encryption channels: creation,
// editing, deletion, favorites, source binding with exclusivity enforcement
// and the reactive list feed.
type ChannelService struct {
	db  *sql.DB
	log logging.Logger

	listFeed *feed.Feed[[]models.Channel]

	mu              sync.Mutex
	setSourceAction []SetSourceAction
}

// NewChannelService constructs a ChannelService over the local database.
func NewChannelService(db *sql.DB, log logging.Logger) *ChannelService {
	return &ChannelService{
		db:       db,
		log:      log.With("service", "channels"),
		listFeed: feed.New[[]models.Channel](),
	}
}

func (s *ChannelService) repo(db dbx.DBTX) channels.Repository {
	return channels.NewSQLiteRepository(db)
}

// GetAll returns every channel.
func (s *ChannelService) GetAll(ctx context.Context) ([]models.Channel, error) {
	return s.repo(s.db).GetAll(ctx)
}

// GetByID returns one channel, or common.ErrNotFound.
func (s *ChannelService) GetByID(ctx context.Context, id string) (*models.Channel, error) {
	return s.repo(s.db).GetByID(ctx, id)
}

// Observe returns a feed of full channel-list snapshots. The current list is
// delivered first; every subsequent mutation publishes a fresh snapshot.
func (s *ChannelService) Observe(ctx context.Context) (<-chan []models.Channel, error) {
	ch := s.listFeed.Subscribe(ctx)
	if err := s.Refresh(ctx); err != nil {
		return nil, err
	}
	return ch, nil
}

// ObserveChannel narrows Observe to a single channel. The subscriber channel
// closes when the channel disappears from the store.
func (s *ChannelService) ObserveChannel(ctx context.Context, id string) (<-chan models.Channel, error) {
	ctx, cancel := context.WithCancel(ctx)
	list, err := s.Observe(ctx)
	if err != nil {
		cancel()
		return nil, err
	}

	out := make(chan models.Channel, 1)
	go func() {
		defer cancel()
		defer close(out)
		for snapshot := range list {
			found := false
			for _, c := range snapshot {
				if c.Id == id {
					found = true
					select {
					case out <- c:
					case <-ctx.Done():
						return
					}
					break
				}
			}
			if !found {
				return
			}
		}
	}()
	return out, nil
}

// Refresh republishes the current list snapshot to all observers.
func (s *ChannelService) Refresh(ctx context.Context) error {
	all, err := s.repo(s.db).GetAll(ctx)
	if err != nil {
		return err
	}
	if all == nil {
		all = []models.Channel{}
	}
	s.listFeed.Publish(all)
	return nil
}

func validateChannelInput(name, password string, cipher models.CipherVersion) error {
	return validation.Errors{
		"name":     validation.Validate(name, validation.Required, validation.Length(1, 120)),
		"password": validation.Validate(password, validation.Required),
		"cipher": validation.Validate(string(cipher), validation.By(func(any) error {
			if !cipher.Valid() {
				return fmt.Errorf("unknown cipher version %q", cipher)
			}
			return nil
		})),
	}.Filter()
}

// Create adds a new channel and returns it.
func (s *ChannelService) Create(ctx context.Context, name, password string, cipher models.CipherVersion) (*models.Channel, error) {
	if err := validateChannelInput(name, password, cipher); err != nil {
		return nil, fmt.Errorf("invalid channel: %w", err)
	}

	channel := &models.Channel{
		Id:       uuid.NewString(),
		Name:     name,
		Password: password,
		Cipher:   cipher,
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repo(tx).Insert(ctx, channel)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	s.log.Info(ctx, "channel created", "id", channel.Id)
	return channel, s.Refresh(ctx)
}

// Edit updates name, password and cipher version of an existing channel.
// Identity, source binding, favorite flag and history are preserved; the new
// password/cipher apply only to future sends.
func (s *ChannelService) Edit(ctx context.Context, id, name, password string, cipher models.CipherVersion) (*models.Channel, error) {
	if err := validateChannelInput(name, password, cipher); err != nil {
		return nil, fmt.Errorf("invalid channel: %w", err)
	}

	var edited *models.Channel
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repo(tx)
		channel, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		channel.Name = name
		channel.Password = password
		channel.Cipher = cipher
		if err := repo.Update(ctx, channel); err != nil {
			return err
		}
		edited = channel
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "channel edited", "id", id)
	return edited, s.Refresh(ctx)
}

// Delete removes the given channels and cascades to their messages. If any
// id is absent the whole operation fails with common.ErrNotFound and nothing
// is deleted.
func (s *ChannelService) Delete(ctx context.Context, ids []string) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repo(tx)
		for _, id := range ids {
			if err := deleteChannelMessages(ctx, tx, id); err != nil {
				return err
			}
			if err := repo.Delete(ctx, id); err != nil {
				return fmt.Errorf("channel %s: %w", id, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info(ctx, "channels deleted", "count", len(ids))
	return s.Refresh(ctx)
}

// SetFavorite marks the given channels as favorite. Idempotent per id; an
// unknown id fails the whole call with common.ErrNotFound.
func (s *ChannelService) SetFavorite(ctx context.Context, ids []string) error {
	return s.setFavorite(ctx, ids, true)
}

// UnsetFavorite clears the favorite flag. Idempotent per id.
func (s *ChannelService) UnsetFavorite(ctx context.Context, ids []string) error {
	return s.setFavorite(ctx, ids, false)
}

func (s *ChannelService) setFavorite(ctx context.Context, ids []string, favorite bool) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repo(tx)
		for _, id := range ids {
			if err := repo.SetFavorite(ctx, id, favorite); err != nil {
				return fmt.Errorf("channel %s: %w", id, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	return s.Refresh(ctx)
}

// SetSource binds the channel to a transport source, or unbinds it when
// source is nil. Binding an exclusive source already held by a different
// channel fails with common.ErrExclusiveSourceCollision and leaves the
// binding unchanged.
func (s *ChannelService) SetSource(ctx context.Context, id string, source models.Source) error {
	if source != nil {
		if err := source.Validate(); err != nil {
			return fmt.Errorf("%w: %v", common.ErrMalformedSource, err)
		}
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repo(tx)
		if source != nil && source.Exclusive() {
			bound, err := repo.GetAllWithSource(ctx, source.Serialize())
			if err != nil {
				return err
			}
			for _, other := range bound {
				if other.Id != id {
					return common.ErrExclusiveSourceCollision
				}
			}
		}
		return repo.SetSource(ctx, id, source)
	})
	if err != nil {
		return err
	}

	s.log.Info(ctx, "channel source changed", "id", id)
	s.fireSetSourceActions(source)
	return s.Refresh(ctx)
}

// GetAllWith returns channels bound exactly to the given source.
func (s *ChannelService) GetAllWith(ctx context.Context, source models.Source) ([]models.Channel, error) {
	return s.repo(s.db).GetAllWithSource(ctx, source.Serialize())
}

// GetAllWithPrefix returns channels whose serialized source starts with the
// prefix. Used to route inbound messages by sender identity.
func (s *ChannelService) GetAllWithPrefix(ctx context.Context, prefix string) ([]models.Channel, error) {
	return s.repo(s.db).GetAllWithSourcePrefix(ctx, prefix)
}

// AcknowledgeUnreadMessages resets the unseen counter of the channel.
func (s *ChannelService) AcknowledgeUnreadMessages(ctx context.Context, id string) error {
	if err := s.repo(s.db).ResetUnread(ctx, id); err != nil {
		return err
	}
	return s.Refresh(ctx)
}

// AddAll bulk-inserts channels with their ids and bindings preserved.
// Used by the snapshot import path; exclusivity is not re-checked because a
// snapshot restores a store state that already satisfied it.
func (s *ChannelService) AddAll(ctx context.Context, list []models.Channel) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repo(tx)
		for i := range list {
			if err := repo.Insert(ctx, &list[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	return s.Refresh(ctx)
}

// AddOnSetSourceAction registers a callback fired after every successful
// source change, in registration order.
func (s *ChannelService) AddOnSetSourceAction(action SetSourceAction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setSourceAction = append(s.setSourceAction, action)
}

func (s *ChannelService) fireSetSourceActions(source models.Source) {
	s.mu.Lock()
	actions := make([]SetSourceAction, len(s.setSourceAction))
	copy(actions, s.setSourceAction)
	s.mu.Unlock()

	for _, action := range actions {
		action(source)
	}
}

// Close shuts down the observation feed.
func (s *ChannelService) Close() {
	s.listFeed.Close()
}
