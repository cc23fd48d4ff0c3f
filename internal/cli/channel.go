package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/dmitrijs2005/cryptool/internal/models"
)

// ListChannels prints one line per channel: id, name, cipher version, the
// bound source and the unread counter.
func (a *App) ListChannels(ctx context.Context) error {
	list, err := a.channels.GetAll(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No channels yet. Use 'create'.")
		return nil
	}

	for _, c := range list {
		marker := " "
		if c.Favorite {
			marker = color.YellowString("*")
		}
		source := "-"
		if c.Source != nil {
			source = c.Source.Serialize()
		}
		unread := ""
		if c.Unread > 0 {
			unread = color.GreenString(" [%d new]", c.Unread)
		}
		fmt.Fprintf(a.out, "%s %s  %-20s %s  %s%s\n", marker, c.Id, c.Name, c.Cipher, source, unread)
	}
	return nil
}

// CreateChannel collects name, password and cipher version and creates the
// channel.
func (a *App) CreateChannel(ctx context.Context) error {
	name, err := getSimpleText(a.reader, "Enter channel name", a.out)
	if err != nil {
		return err
	}
	password, err := getSecret("Enter channel password", a.out)
	if err != nil {
		return err
	}
	cipher, err := a.promptCipher()
	if err != nil {
		return err
	}

	channel, err := a.channels.Create(ctx, name, string(password), cipher)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Created channel %s\n", channel.Id)
	return nil
}

// EditChannel updates name, password and cipher version of an existing
// channel. History and source binding are preserved.
func (a *App) EditChannel(ctx context.Context) error {
	id, err := getSimpleText(a.reader, "Enter channel id", a.out)
	if err != nil {
		return err
	}
	name, err := getSimpleText(a.reader, "Enter new name", a.out)
	if err != nil {
		return err
	}
	password, err := getSecret("Enter new channel password", a.out)
	if err != nil {
		return err
	}
	cipher, err := a.promptCipher()
	if err != nil {
		return err
	}

	if _, err := a.channels.Edit(ctx, id, name, string(password), cipher); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Channel updated. Old messages keep decoding; the new password applies to future sends.")
	return nil
}

// DeleteChannels removes channels and their message history.
func (a *App) DeleteChannels(ctx context.Context) error {
	ids, err := a.promptIds("Enter channel ids to delete (space separated)")
	if err != nil || len(ids) == 0 {
		return err
	}
	ok, err := GetConfirmation(a.reader, fmt.Sprintf("Delete %d channel(s) and their messages?", len(ids)), a.out)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(a.out, "Aborted.")
		return nil
	}
	if err := a.channels.Delete(ctx, ids); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Deleted.")
	return nil
}

// ToggleFavorite sets or clears the favorite flag on channels or messages.
func (a *App) ToggleFavorite(ctx context.Context) error {
	kind, err := getSimpleText(a.reader, "Favorite a (c)hannel or a (m)essage?", a.out)
	if err != nil {
		return err
	}
	ids, err := a.promptIds("Enter ids (space separated)")
	if err != nil || len(ids) == 0 {
		return err
	}
	on, err := GetConfirmation(a.reader, "Mark as favorite? (n clears the flag)", a.out)
	if err != nil {
		return err
	}

	switch strings.ToLower(kind) {
	case "c", "channel":
		if on {
			return a.channels.SetFavorite(ctx, ids)
		}
		return a.channels.UnsetFavorite(ctx, ids)
	case "m", "message":
		if on {
			return a.messages.SetFavorite(ctx, ids)
		}
		return a.messages.UnsetFavorite(ctx, ids)
	default:
		fmt.Fprintln(a.out, "Expected 'c' or 'm'.")
		return nil
	}
}

// BindSource binds a channel to a transport source, or unbinds it.
//
// Accepted forms: manual, sms:<phone>, lan:<host>:<port>, file:<path>,
// or an empty line to unbind.
func (a *App) BindSource(ctx context.Context) error {
	id, err := getSimpleText(a.reader, "Enter channel id", a.out)
	if err != nil {
		return err
	}
	raw, err := getSimpleText(a.reader, "Enter source (manual | sms:<phone> | lan:<host>:<port> | file:<path>), empty to unbind", a.out)
	if err != nil {
		return err
	}

	var source models.Source
	if raw != "" {
		source, err = models.ParseSource(raw)
		if err != nil {
			return err
		}
	}

	if err := a.channels.SetSource(ctx, id, source); err != nil {
		return err
	}
	if source == nil {
		fmt.Fprintln(a.out, "Source unbound.")
	} else {
		fmt.Fprintf(a.out, "Source bound: %s\n", source.Serialize())
	}
	return nil
}

func (a *App) promptCipher() (models.CipherVersion, error) {
	raw, err := getSimpleText(a.reader, "Enter cipher version (V1 | V2), empty for V2", a.out)
	if err != nil {
		return "", err
	}
	if raw == "" {
		return models.CipherV2, nil
	}
	return models.CipherVersion(strings.ToUpper(raw)), nil
}

func (a *App) promptIds(prompt string) ([]string, error) {
	raw, err := getSimpleText(a.reader, prompt, a.out)
	if err != nil {
		return nil, err
	}
	return strings.Fields(raw), nil
}
