package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fatih/color"

	"github.com/dmitrijs2005/cryptool/internal/common"
	"github.com/dmitrijs2005/cryptool/internal/models"
)

// Send encrypts a message on a channel and hands it to the bound transport.
func (a *App) Send(ctx context.Context) error {
	id, err := getSimpleText(a.reader, "Enter channel id", a.out)
	if err != nil {
		return err
	}
	text, err := GetMultiline(a.reader, "Enter message text:", a.out)
	if err != nil {
		return err
	}
	if text == "" {
		fmt.Fprintln(a.out, "Nothing to send.")
		return nil
	}

	message, err := a.messages.SendMessage(ctx, id, text)
	if errors.Is(err, common.ErrTransportSend) {
		fmt.Fprintln(a.out, color.YellowString("Saved locally, but delivery failed: %v", err))
		fmt.Fprintf(a.out, "Envelope (share manually if needed):\n%s\n", message.Envelope)
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Sent %s\n", message.Id)
	return nil
}

// Read prints the message history of a channel, oldest first. With the
// visibility preference off, envelopes are shown instead of plaintext.
func (a *App) Read(ctx context.Context) error {
	id, err := getSimpleText(a.reader, "Enter channel id", a.out)
	if err != nil {
		return err
	}

	list, err := a.messages.GetAllByChannel(ctx, id)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No messages on this channel.")
		return nil
	}

	visible, err := a.messages.GetVisibilityPreference(ctx)
	if err != nil {
		return err
	}

	for _, m := range list {
		ts := time.UnixMilli(m.TimestampMillis).Format("2006-01-02 15:04:05")
		who := color.CyanString("me")
		if m.Ownership == models.OwnershipOther {
			who = color.MagentaString("peer")
		}
		marker := " "
		if m.Favorite {
			marker = color.YellowString("*")
		}
		body := m.Text
		if !visible {
			body = m.Envelope
		}
		fmt.Fprintf(a.out, "%s %s [%s] %s: %s\n", marker, m.Id, ts, who, body)
	}
	return nil
}

// Ack resets the unread counter of a channel.
func (a *App) Ack(ctx context.Context) error {
	id, err := getSimpleText(a.reader, "Enter channel id", a.out)
	if err != nil {
		return err
	}
	if err := a.channels.AcknowledgeUnreadMessages(ctx, id); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Marked as read.")
	return nil
}

// Visibility toggles whether 'read' prints plaintext or envelopes.
func (a *App) Visibility(ctx context.Context) error {
	visible, err := GetConfirmation(a.reader, "Show plaintext in message listings?", a.out)
	if err != nil {
		return err
	}
	if err := a.messages.SetVisibilityPreference(ctx, visible); err != nil {
		return err
	}
	if visible {
		fmt.Fprintln(a.out, "Plaintext is shown.")
	} else {
		fmt.Fprintln(a.out, "Only envelopes are shown.")
	}
	return nil
}
