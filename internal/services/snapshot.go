package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/cryptool/internal/models"
)

// Snapshot is the portable copy of the whole store: every channel and every
// message, with envelopes kept verbatim. Message payloads stay encrypted
// under their per-channel passwords, so a snapshot never depends on the
// access code and re-keying is a pure data copy.
type Snapshot struct {
	Channels []ChannelSnapshot `json:"channels"`
	Messages []MessageSnapshot `json:"messages"`
}

// ChannelSnapshot is the serialized form of one channel.
type ChannelSnapshot struct {
	Id       string `json:"id"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Cipher   string `json:"cipher"`
	Source   string `json:"source,omitempty"`
	Favorite bool   `json:"favorite,omitempty"`
	Unread   int    `json:"unread,omitempty"`
}

// MessageSnapshot is the serialized form of one message.
type MessageSnapshot struct {
	Id              string `json:"id"`
	ChannelId       string `json:"channelId"`
	Text            string `json:"text"`
	Envelope        string `json:"envelope"`
	TimestampMillis int64  `json:"timestampMillis"`
	Favorite        bool   `json:"favorite,omitempty"`
	Ownership       string `json:"ownership"`
}

// Exporter produces a full-store snapshot.
type Exporter interface {
	Export(ctx context.Context) (*Snapshot, error)
}

// Importer repopulates the store from a snapshot.
type Importer interface {
	Import(ctx context.Context, snapshot *Snapshot) error
}

// SnapshotService implements Exporter and Importer over the channel and
// message services. It backs both the re-keying protocol and the user-facing
// export/import commands.
type SnapshotService struct {
	channels *ChannelService
	messages *MessageService
}

// NewSnapshotService constructs a SnapshotService.
func NewSnapshotService(channelService *ChannelService, messageService *MessageService) *SnapshotService {
	return &SnapshotService{channels: channelService, messages: messageService}
}

// Export reads both stores into a snapshot.
func (s *SnapshotService) Export(ctx context.Context) (*Snapshot, error) {
	channelList, err := s.channels.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("export channels: %w", err)
	}
	messageList, err := s.messages.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("export messages: %w", err)
	}

	snapshot := &Snapshot{
		Channels: make([]ChannelSnapshot, 0, len(channelList)),
		Messages: make([]MessageSnapshot, 0, len(messageList)),
	}
	for _, c := range channelList {
		cs := ChannelSnapshot{
			Id:       c.Id,
			Name:     c.Name,
			Password: c.Password,
			Cipher:   string(c.Cipher),
			Favorite: c.Favorite,
			Unread:   c.Unread,
		}
		if c.Source != nil {
			cs.Source = c.Source.Serialize()
		}
		snapshot.Channels = append(snapshot.Channels, cs)
	}
	for _, m := range messageList {
		snapshot.Messages = append(snapshot.Messages, MessageSnapshot{
			Id:              m.Id,
			ChannelId:       m.ChannelId,
			Text:            m.Text,
			Envelope:        m.Envelope,
			TimestampMillis: m.TimestampMillis,
			Favorite:        m.Favorite,
			Ownership:       string(m.Ownership),
		})
	}
	return snapshot, nil
}

// Import bulk-inserts the snapshot contents into both stores, preserving
// ids, bindings and envelopes.
func (s *SnapshotService) Import(ctx context.Context, snapshot *Snapshot) error {
	channelList := make([]models.Channel, 0, len(snapshot.Channels))
	for _, cs := range snapshot.Channels {
		c := models.Channel{
			Id:       cs.Id,
			Name:     cs.Name,
			Password: cs.Password,
			Cipher:   models.CipherVersion(cs.Cipher),
			Favorite: cs.Favorite,
			Unread:   cs.Unread,
		}
		if cs.Source != "" {
			source, err := models.ParseSource(cs.Source)
			if err != nil {
				return fmt.Errorf("import channel %s: %w", cs.Id, err)
			}
			c.Source = source
		}
		channelList = append(channelList, c)
	}

	messageList := make([]models.Message, 0, len(snapshot.Messages))
	for _, ms := range snapshot.Messages {
		messageList = append(messageList, models.Message{
			Id:              ms.Id,
			ChannelId:       ms.ChannelId,
			Text:            ms.Text,
			Envelope:        ms.Envelope,
			TimestampMillis: ms.TimestampMillis,
			Favorite:        ms.Favorite,
			Ownership:       models.Ownership(ms.Ownership),
		})
	}

	if err := s.channels.AddAll(ctx, channelList); err != nil {
		return fmt.Errorf("import channels: %w", err)
	}
	if err := s.messages.AddAll(ctx, messageList); err != nil {
		return fmt.Errorf("import messages: %w", err)
	}
	return nil
}

// EncodeJSON serializes the snapshot for the export command.
func (s *Snapshot) EncodeJSON() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// DecodeSnapshotJSON parses a snapshot produced by EncodeJSON.
func DecodeSnapshotJSON(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("invalid snapshot: %w", err)
	}
	return &s, nil
}
