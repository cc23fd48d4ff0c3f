package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/cryptool/internal/common"
	"github.com/dmitrijs2005/cryptool/internal/services"
)

// Export writes a JSON snapshot of every channel and message to a file.
// Envelopes are exported verbatim; channel passwords are included, so the
// file itself is sensitive.
func (a *App) Export(ctx context.Context) error {
	path, err := getSimpleText(a.reader, "Enter export file path (empty for a generated name)", a.out)
	if err != nil {
		return err
	}
	if path == "" {
		suffix, err := common.MakeRandHexString(4)
		if err != nil {
			return err
		}
		path = fmt.Sprintf("cryptool-export-%s.json", suffix)
	}

	snapshot, err := a.snapshot.Export(ctx)
	if err != nil {
		return err
	}
	data, err := snapshot.EncodeJSON()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Exported %d channel(s) and %d message(s) to %s\n",
		len(snapshot.Channels), len(snapshot.Messages), path)
	fmt.Fprintln(a.out, "The file contains channel passwords. Keep it safe.")
	return nil
}

// Import restores channels and messages from a snapshot file.
func (a *App) Import(ctx context.Context) error {
	path, err := getSimpleText(a.reader, "Enter snapshot file path", a.out)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	snapshot, err := services.DecodeSnapshotJSON(data)
	if err != nil {
		return err
	}
	if err := a.snapshot.Import(ctx, snapshot); err != nil {
		return err
	}

	// newly imported file bindings need watchers
	if err := a.dispatcher.SyncFileWatches(ctx, a.channels); err != nil {
		a.log.Warn(ctx, "file watch sync failed", "error", err)
	}

	fmt.Fprintf(a.out, "Imported %d channel(s) and %d message(s)\n",
		len(snapshot.Channels), len(snapshot.Messages))
	return nil
}
