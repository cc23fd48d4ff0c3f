package transport

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/cryptool/internal/logging"
	"github.com/dmitrijs2005/cryptool/internal/models"
)

// SourceLister is the subset of the channel store the dispatcher needs to
// keep its file watchers aligned with the current bindings.
type SourceLister interface {
	GetAllWithPrefix(ctx context.Context, prefix string) ([]models.Channel, error)
}

// Dispatcher matches an outbound envelope to the driver for its source
// variant. It is registered with the message exchange as a send action.
type Dispatcher struct {
	log  logging.Logger
	lan  *LanTransport
	file *FileTransport
	sms  SmsGateway
}

// NewDispatcher constructs a Dispatcher. sms may be nil on platforms
// without telephony; sending on an SMS-bound channel then fails.
func NewDispatcher(lan *LanTransport, file *FileTransport, sms SmsGateway, log logging.Logger) *Dispatcher {
	return &Dispatcher{log: log.With("component", "dispatcher"), lan: lan, file: file, sms: sms}
}

// Send routes one envelope. Unbound channels and the manual source need no
// transport and succeed immediately.
func (d *Dispatcher) Send(source models.Source, envelope string) error {
	switch src := source.(type) {
	case nil:
		return nil
	case models.SourceManual:
		return nil
	case models.SourceSms:
		if d.sms == nil {
			return fmt.Errorf("no sms gateway available")
		}
		return d.sms.Send(context.Background(), src.Phone, envelope)
	case models.SourceLan:
		return d.lan.Send(src.Address, src.Port, envelope)
	case models.SourceFile:
		return d.file.Send(src.Path, envelope)
	default:
		return fmt.Errorf("unknown source variant %T", source)
	}
}

// SyncFileWatches reconciles the file watcher set with the channels
// currently bound to file sources. Call it at startup and whenever a
// channel's source changes.
func (d *Dispatcher) SyncFileWatches(ctx context.Context, store SourceLister) error {
	bound, err := store.GetAllWithPrefix(ctx, "file:")
	if err != nil {
		return err
	}

	want := make(map[string]struct{}, len(bound))
	for _, c := range bound {
		if src, ok := c.Source.(models.SourceFile); ok {
			want[src.Path] = struct{}{}
		}
	}

	d.file.mu.Lock()
	var stale []string
	for path := range d.file.watched {
		if _, ok := want[path]; !ok {
			stale = append(stale, path)
		}
	}
	d.file.mu.Unlock()

	for _, path := range stale {
		d.file.Unwatch(path)
	}
	for path := range want {
		if err := d.file.Watch(path); err != nil {
			d.log.Warn(ctx, "cannot watch exchange file", "path", path, "error", err)
		}
	}
	return nil
}
