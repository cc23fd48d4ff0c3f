package transport

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/cryptool/internal/logging"
	"github.com/dmitrijs2005/cryptool/internal/models"
)

type fakeSmsGateway struct {
	phone string
	body  string
	err   error
}

func (g *fakeSmsGateway) Send(_ context.Context, phone, body string) error {
	g.phone = phone
	g.body = body
	return g.err
}

type fakeSourceLister struct {
	channels []models.Channel
}

func (f *fakeSourceLister) GetAllWithPrefix(context.Context, string) ([]models.Channel, error) {
	return f.channels, nil
}

func newDispatcher(t *testing.T, sms SmsGateway) *Dispatcher {
	t.Helper()
	inbound := newFakeInbound()
	ft, err := NewFileTransport(inbound, logging.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = ft.watcher.Close() })
	lt := NewLanTransport(inbound, logging.NewNop())
	return NewDispatcher(lt, ft, sms, logging.NewNop())
}

func TestDispatcherManualAndUnboundAreNoops(t *testing.T) {
	d := newDispatcher(t, nil)

	assert.NoError(t, d.Send(nil, "envelope"))
	assert.NoError(t, d.Send(models.SourceManual{}, "envelope"))
}

func TestDispatcherSms(t *testing.T) {
	gateway := &fakeSmsGateway{}
	d := newDispatcher(t, gateway)

	require.NoError(t, d.Send(models.SourceSms{Phone: "+15551234567"}, "envelope"))
	assert.Equal(t, "+15551234567", gateway.phone)
	assert.Equal(t, "envelope", gateway.body)
}

func TestDispatcherSmsWithoutGateway(t *testing.T) {
	d := newDispatcher(t, nil)
	assert.Error(t, d.Send(models.SourceSms{Phone: "+15551234567"}, "envelope"))
}

func TestDispatcherFile(t *testing.T) {
	d := newDispatcher(t, nil)
	path := filepath.Join(t.TempDir(), "exchange.txt")

	require.NoError(t, d.Send(models.SourceFile{Path: path}, "envelope"))

	assert.FileExists(t, path)
}

func TestSyncFileWatches(t *testing.T) {
	d := newDispatcher(t, nil)
	ctx := context.Background()

	pathA := filepath.Join(t.TempDir(), "a.txt")
	pathB := filepath.Join(t.TempDir(), "b.txt")

	lister := &fakeSourceLister{channels: []models.Channel{
		{Id: "enc-A", Source: models.SourceFile{Path: pathA}},
		{Id: "enc-B", Source: models.SourceFile{Path: pathB}},
	}}
	require.NoError(t, d.SyncFileWatches(ctx, lister))

	d.file.mu.Lock()
	assert.Len(t, d.file.watched, 2)
	d.file.mu.Unlock()

	// Unbinding B drops its watch.
	lister.channels = lister.channels[:1]
	require.NoError(t, d.SyncFileWatches(ctx, lister))

	d.file.mu.Lock()
	_, hasA := d.file.watched[pathA]
	_, hasB := d.file.watched[pathB]
	d.file.mu.Unlock()
	assert.True(t, hasA)
	assert.False(t, hasB)
}
