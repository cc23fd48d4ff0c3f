package transport

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/dmitrijs2005/cryptool/internal/logging"
	"github.com/dmitrijs2005/cryptool/internal/models"
)

// FileTransport exchanges envelopes through shared files: sending appends a
// newline-terminated line, receiving tails bound files with fsnotify.
// Per-path read offsets are advanced on our own writes so the watcher only
// routes lines appended by the peer.
type FileTransport struct {
	log     logging.Logger
	inbound Inbound

	mu      sync.Mutex
	offsets map[string]int64
	watched map[string]struct{}
	watcher *fsnotify.Watcher
}

// NewFileTransport constructs a FileTransport delivering inbound envelopes
// to the given sink.
func NewFileTransport(inbound Inbound, log logging.Logger) (*FileTransport, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("file watcher: %w", err)
	}
	return &FileTransport{
		log:     log.With("transport", "file"),
		inbound: inbound,
		offsets: make(map[string]int64),
		watched: make(map[string]struct{}),
		watcher: watcher,
	}, nil
}

// Send appends one envelope line to the exchange file, creating it when
// missing.
func (t *FileTransport) Send(path, envelope string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("file open %s: %w", path, err)
	}
	defer f.Close()

	if _, err := fmt.Fprintln(f, envelope); err != nil {
		return fmt.Errorf("file write %s: %w", path, err)
	}

	end, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return fmt.Errorf("file seek %s: %w", path, err)
	}
	t.offsets[path] = end
	return nil
}

// Watch starts routing lines appended to path. Existing content is skipped;
// only lines written after the watch begins are treated as inbound.
func (t *FileTransport) Watch(path string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.watched[path]; ok {
		return nil
	}

	size := int64(0)
	if info, err := os.Stat(path); err == nil {
		size = info.Size()
	} else if f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o600); err == nil {
		// fsnotify needs the file to exist before it can be watched.
		_ = f.Close()
	}

	if err := t.watcher.Add(path); err != nil {
		return fmt.Errorf("file watch %s: %w", path, err)
	}
	t.watched[path] = struct{}{}
	if _, ok := t.offsets[path]; !ok {
		t.offsets[path] = size
	}
	return nil
}

// Unwatch stops routing from path.
func (t *FileTransport) Unwatch(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.watched[path]; !ok {
		return
	}
	_ = t.watcher.Remove(path)
	delete(t.watched, path)
	delete(t.offsets, path)
}

// Run consumes watcher events until ctx is done.
func (t *FileTransport) Run(ctx context.Context) error {
	defer t.watcher.Close()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-t.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Create) {
				t.consume(ctx, event.Name)
			}
		case err, ok := <-t.watcher.Errors:
			if !ok {
				return nil
			}
			t.log.Warn(ctx, "watcher error", "error", err)
		}
	}
}

// consume routes every complete line appended past the recorded offset.
func (t *FileTransport) consume(ctx context.Context, path string) {
	t.mu.Lock()
	_, watched := t.watched[path]
	offset := t.offsets[path]
	t.mu.Unlock()
	if !watched {
		return
	}

	f, err := os.Open(path)
	if err != nil {
		t.log.Warn(ctx, "cannot open exchange file", "path", path, "error", err)
		return
	}
	defer f.Close()

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		t.log.Warn(ctx, "cannot seek exchange file", "path", path, "error", err)
		return
	}

	reader := bufio.NewReader(f)
	consumed := offset
	sender := models.SourceFile{Path: path}
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			// Partial trailing line: wait for the rest.
			break
		}
		consumed += int64(len(line))
		envelope := line[:len(line)-1]
		if envelope == "" {
			continue
		}
		if _, err := t.inbound.Receive(ctx, sender, envelope); err != nil {
			t.log.Warn(ctx, "inbound envelope dropped", "path", path, "error", err)
		}
	}

	t.mu.Lock()
	if current, ok := t.offsets[path]; ok && current == offset {
		t.offsets[path] = consumed
	}
	t.mu.Unlock()
}
