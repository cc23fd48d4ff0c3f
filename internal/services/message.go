package services

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/cryptool/internal/common"
	"github.com/dmitrijs2005/cryptool/internal/cryptox"
	"github.com/dmitrijs2005/cryptool/internal/dbx"
	"github.com/dmitrijs2005/cryptool/internal/feed"
	"github.com/dmitrijs2005/cryptool/internal/logging"
	"github.com/dmitrijs2005/cryptool/internal/models"
	"github.com/dmitrijs2005/cryptool/internal/repositories/channels"
	"github.com/dmitrijs2005/cryptool/internal/repositories/messages"
	"github.com/dmitrijs2005/cryptool/internal/repositories/prefs"
)

// SendMessageAction delivers an encrypted envelope over the channel's bound
// source. Actions run after the message row is committed: a failing action
// leaves the message stored and delivery unconfirmed.
type SendMessageAction func(source models.Source, envelope string) error

const prefKeyVisibility = "messages_visible"

// MessageService implements the per-channel message exchange: sending
// through the envelope codec, the inbound receive path, favorites and the
// plaintext visibility preference.
type MessageService struct {
	db       *sql.DB
	log      logging.Logger
	channels *ChannelService

	feedMu       sync.Mutex
	channelFeeds map[string]*feed.Feed[[]models.Message]

	actionMu    sync.Mutex
	sendActions []SendMessageAction

	now func() time.Time
}

// NewMessageService constructs a MessageService over the local database.
// It cooperates with the channel service for password/cipher lookups and
// unread counters.
func NewMessageService(db *sql.DB, channelService *ChannelService, log logging.Logger) *MessageService {
	return &MessageService{
		db:           db,
		log:          log.With("service", "messages"),
		channels:     channelService,
		channelFeeds: make(map[string]*feed.Feed[[]models.Message]),
		now:          time.Now,
	}
}

func (s *MessageService) repo(db dbx.DBTX) messages.Repository {
	return messages.NewSQLiteRepository(db)
}

func deleteChannelMessages(ctx context.Context, tx dbx.DBTX, channelId string) error {
	return messages.NewSQLiteRepository(tx).DeleteByChannel(ctx, channelId)
}

// GetAll returns every stored message, oldest first.
func (s *MessageService) GetAll(ctx context.Context) ([]models.Message, error) {
	return s.repo(s.db).GetAll(ctx)
}

// GetAllByChannel returns the messages of one channel, oldest first.
func (s *MessageService) GetAllByChannel(ctx context.Context, channelId string) ([]models.Message, error) {
	return s.repo(s.db).GetAllByChannel(ctx, channelId)
}

func (s *MessageService) channelFeed(channelId string) *feed.Feed[[]models.Message] {
	s.feedMu.Lock()
	defer s.feedMu.Unlock()
	f, ok := s.channelFeeds[channelId]
	if !ok {
		f = feed.New[[]models.Message]()
		s.channelFeeds[channelId] = f
	}
	return f
}

// Observe returns a feed of full message-list snapshots for one channel.
func (s *MessageService) Observe(ctx context.Context, channelId string) (<-chan []models.Message, error) {
	ch := s.channelFeed(channelId).Subscribe(ctx)
	if err := s.notify(ctx, channelId); err != nil {
		return nil, err
	}
	return ch, nil
}

func (s *MessageService) notify(ctx context.Context, channelId string) error {
	list, err := s.repo(s.db).GetAllByChannel(ctx, channelId)
	if err != nil {
		return err
	}
	if list == nil {
		list = []models.Message{}
	}
	s.channelFeed(channelId).Publish(list)
	return nil
}

// RefreshAll republishes the current snapshot of every observed channel.
// Used after store-wide mutations like the gatekeeper reset.
func (s *MessageService) RefreshAll(ctx context.Context) error {
	s.feedMu.Lock()
	ids := make([]string, 0, len(s.channelFeeds))
	for id := range s.channelFeeds {
		ids = append(ids, id)
	}
	s.feedMu.Unlock()

	for _, id := range ids {
		if err := s.notify(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// AddAll bulk-inserts messages with their ids and envelopes preserved.
// Used by the receive and import paths.
func (s *MessageService) AddAll(ctx context.Context, list []models.Message) error {
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

	seen := make(map[string]struct{})
	for _, m := range list {
		if _, ok := seen[m.ChannelId]; ok {
			continue
		}
		seen[m.ChannelId] = struct{}{}
		if err := s.notify(ctx, m.ChannelId); err != nil {
			return err
		}
	}
	return nil
}

// SendMessage encrypts text under the channel's password and cipher version,
// persists it with ownership OWN and only then invokes the registered send
// actions in registration order. An action failure surfaces as
// common.ErrTransportSend; the stored message is not rolled back, so the
// caller must read that error as "saved locally, delivery unconfirmed".
func (s *MessageService) SendMessage(ctx context.Context, channelId, text string) (*models.Message, error) {
	channel, err := s.channels.GetByID(ctx, channelId)
	if err != nil {
		return nil, err
	}

	envelope, err := cryptox.Encode(text, channel.Password, channel.Cipher)
	if err != nil {
		return nil, fmt.Errorf("encryption error: %w", err)
	}

	message := &models.Message{
		Id:              uuid.NewString(),
		ChannelId:       channelId,
		Text:            text,
		Envelope:        envelope,
		TimestampMillis: s.now().UnixMilli(),
		Ownership:       models.OwnershipOwn,
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repo(tx).Insert(ctx, message)
	})
	if err != nil {
		return nil, fmt.Errorf("saving error: %w", err)
	}
	if err := s.notify(ctx, channelId); err != nil {
		return nil, err
	}

	if err := s.fireSendActions(channel.Source, envelope); err != nil {
		s.log.Warn(ctx, "message stored but not delivered", "id", message.Id, "error", err)
		return message, fmt.Errorf("%w: %w", common.ErrTransportSend, err)
	}
	return message, nil
}

// Receive routes an inbound envelope to the channel bound to the sender's
// source, decrypts it and stores it with ownership OTHER, bumping the
// channel's unread counter. Envelopes that do not decode under the channel's
// password are dropped and reported, never stored.
func (s *MessageService) Receive(ctx context.Context, sender models.Source, envelope string) (*models.Message, error) {
	channel, err := s.routeInbound(ctx, sender)
	if err != nil {
		return nil, err
	}

	text, err := cryptox.Decode(envelope, channel.Password)
	if err != nil {
		s.log.Warn(ctx, "dropping inbound message", "channel", channel.Id, "error", err)
		return nil, err
	}

	message := &models.Message{
		Id:              uuid.NewString(),
		ChannelId:       channel.Id,
		Text:            text,
		Envelope:        envelope,
		TimestampMillis: s.now().UnixMilli(),
		Ownership:       models.OwnershipOther,
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repo(tx).Insert(ctx, message); err != nil {
			return err
		}
		return channels.NewSQLiteRepository(tx).IncrementUnread(ctx, channel.Id)
	})
	if err != nil {
		return nil, fmt.Errorf("saving error: %w", err)
	}

	if err := s.notify(ctx, channel.Id); err != nil {
		return nil, err
	}
	return message, s.channels.Refresh(ctx)
}

// routeInbound finds the channel bound to the sender. LAN senders connect
// from an ephemeral port, so they fall back to an address-prefix match.
func (s *MessageService) routeInbound(ctx context.Context, sender models.Source) (*models.Channel, error) {
	bound, err := s.channels.GetAllWith(ctx, sender)
	if err != nil {
		return nil, err
	}
	if len(bound) == 0 {
		if lan, ok := sender.(models.SourceLan); ok {
			bound, err = s.channels.GetAllWithPrefix(ctx, "lan:"+lan.Address+":")
			if err != nil {
				return nil, err
			}
		}
	}
	if len(bound) == 0 {
		return nil, fmt.Errorf("no channel bound to %s: %w", sender.Serialize(), common.ErrNotFound)
	}
	return &bound[0], nil
}

// Delete removes the given messages. If any id is absent the whole operation
// fails with common.ErrNotFound and nothing is deleted.
func (s *MessageService) Delete(ctx context.Context, ids []string) error {
	affected := make(map[string]struct{})
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repo(tx)
		for _, id := range ids {
			m, err := repo.GetByID(ctx, id)
			if err != nil {
				return fmt.Errorf("message %s: %w", id, err)
			}
			if err := repo.Delete(ctx, id); err != nil {
				return fmt.Errorf("message %s: %w", id, err)
			}
			affected[m.ChannelId] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for channelId := range affected {
		if err := s.notify(ctx, channelId); err != nil {
			return err
		}
	}
	return nil
}

// SetFavorite marks the given messages as favorite. Idempotent per id; an
// unknown id fails the whole call with common.ErrNotFound.
func (s *MessageService) SetFavorite(ctx context.Context, ids []string) error {
	return s.setFavorite(ctx, ids, true)
}

// UnsetFavorite clears the favorite flag. Idempotent per id.
func (s *MessageService) UnsetFavorite(ctx context.Context, ids []string) error {
	return s.setFavorite(ctx, ids, false)
}

func (s *MessageService) setFavorite(ctx context.Context, ids []string, favorite bool) error {
	affected := make(map[string]struct{})
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repo(tx)
		for _, id := range ids {
			m, err := repo.GetByID(ctx, id)
			if err != nil {
				return fmt.Errorf("message %s: %w", id, err)
			}
			if err := repo.SetFavorite(ctx, id, favorite); err != nil {
				return fmt.Errorf("message %s: %w", id, err)
			}
			affected[m.ChannelId] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for channelId := range affected {
		if err := s.notify(ctx, channelId); err != nil {
			return err
		}
	}
	return nil
}

// GetVisibilityPreference reports whether plaintext should be shown in
// consuming UIs. Defaults to true. Pure preference, no crypto effect.
func (s *MessageService) GetVisibilityPreference(ctx context.Context) (bool, error) {
	value, err := prefs.NewSQLiteRepository(s.db).Get(ctx, prefKeyVisibility)
	if err != nil {
		return false, err
	}
	if value == nil {
		return true, nil
	}
	return string(value) == "1", nil
}

// SetVisibilityPreference stores the plaintext visibility preference.
func (s *MessageService) SetVisibilityPreference(ctx context.Context, visible bool) error {
	value := []byte("0")
	if visible {
		value = []byte("1")
	}
	return prefs.NewSQLiteRepository(s.db).Set(ctx, prefKeyVisibility, value)
}

// AddOnSendMessageAction registers a send action invoked after every
// committed send, in registration order.
func (s *MessageService) AddOnSendMessageAction(action SendMessageAction) {
	s.actionMu.Lock()
	defer s.actionMu.Unlock()
	s.sendActions = append(s.sendActions, action)
}

func (s *MessageService) fireSendActions(source models.Source, envelope string) error {
	s.actionMu.Lock()
	actions := make([]SendMessageAction, len(s.sendActions))
	copy(actions, s.sendActions)
	s.actionMu.Unlock()

	for _, action := range actions {
		if err := action(source, envelope); err != nil {
			return err
		}
	}
	return nil
}

// Close shuts down all observation feeds.
func (s *MessageService) Close() {
	s.feedMu.Lock()
	defer s.feedMu.Unlock()
	for _, f := range s.channelFeeds {
		f.Close()
	}
}
