package cli

import (
	"bufio"
	"context"
	"database/sql"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/fatih/color"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/cryptool/internal/config"
	"github.com/dmitrijs2005/cryptool/internal/logging"
	"github.com/dmitrijs2005/cryptool/internal/models"
	"github.com/dmitrijs2005/cryptool/internal/services"
	"github.com/dmitrijs2005/cryptool/internal/storage"
	"github.com/dmitrijs2005/cryptool/internal/transport"
)

// App is the interactive Cryptool client: services over the local store,
// transport drivers and the terminal I/O around them.
type App struct {
	config *config.Config
	log    logging.Logger

	db         *sql.DB
	channels   *services.ChannelService
	messages   *services.MessageService
	snapshot   *services.SnapshotService
	gate       *services.GatekeeperService
	dispatcher *transport.Dispatcher
	lan        *transport.LanTransport
	file       *transport.FileTransport

	reader *bufio.Reader
	out    io.Writer
}

// NewApp opens the local database, builds the service graph and registers
// the transport drivers with the message exchange.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	log := newLogger(c.LogLevel)

	db, err := storage.InitDatabase(ctx, c.DatabasePath)
	if err != nil {
		log.Error(ctx, "error initializing database", "error", err)
		return nil, err
	}

	cs := services.NewChannelService(db, log)
	ms := services.NewMessageService(db, cs, log)
	snap := services.NewSnapshotService(cs, ms)
	gate := services.NewGatekeeperService(db, cs, ms, log, services.GatekeeperOptions{
		Exporter:       snap,
		Importer:       snap,
		SessionTimeout: c.SessionTimeout,
	})

	lan := transport.NewLanTransport(ms, log)
	file, err := transport.NewFileTransport(ms, log)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	dispatcher := transport.NewDispatcher(lan, file, nil, log)

	ms.AddOnSendMessageAction(dispatcher.Send)
	cs.AddOnSetSourceAction(func(models.Source) {
		if err := dispatcher.SyncFileWatches(ctx, cs); err != nil {
			log.Warn(ctx, "file watch sync failed", "error", err)
		}
	})

	return &App{
		config:     c,
		log:        log,
		db:         db,
		channels:   cs,
		messages:   ms,
		snapshot:   snap,
		gate:       gate,
		dispatcher: dispatcher,
		lan:        lan,
		file:       file,
		reader:     bufio.NewReader(os.Stdin),
		out:        os.Stdout,
	}, nil
}

func newLogger(level string) logging.Logger {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})
	return logging.NewSlogLogger(slog.New(h))
}

func (a *App) isUnlocked() bool {
	return a.gate.IsOpen()
}

func (a *App) hasCode(ctx context.Context) bool {
	state, err := a.gate.State(ctx)
	if err != nil {
		return false
	}
	return state.HasCode
}

func (a *App) touch(ctx context.Context) {
	_ = a.gate.PushAccessValidity(ctx)
}

func (a *App) getStatus() string {
	if a.isUnlocked() {
		return color.GreenString("(unlocked)")
	}
	return color.RedString("(locked)")
}

// Run starts the background transports and the REPL. It blocks until the
// user exits or ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// pick up file bindings that existed before this start
	if err := a.dispatcher.SyncFileWatches(ctx, a.channels); err != nil {
		a.log.Warn(ctx, "file watch sync failed", "error", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.file.Run(ctx)
	})
	if a.config.LanListenAddr != "" {
		g.Go(func() error {
			return a.lan.Listen(ctx, a.config.LanListenAddr)
		})
	}
	g.Go(func() error {
		a.watchSession(ctx)
		return nil
	})

	resumed, rerr := a.gate.ResumeSession(ctx)
	if rerr != nil {
		a.log.Warn(ctx, "session resume check failed", "error", rerr)
	}

	color.Cyan("Cryptool CLI (type 'help' for commands)")
	if resumed {
		printlnFn(color.GreenString("Previous session resumed."))
	}
	scanner := bufio.NewScanner(os.Stdin)
	runREPL(ctx, a, a.getStatus, scanner)

	cancel()
	err := g.Wait()

	a.messages.Close()
	a.channels.Close()
	if cerr := a.db.Close(); err == nil {
		err = cerr
	}
	return err
}

// watchSession locks an idle session in the background so a terminal left
// unattended does not stay open.
func (a *App) watchSession(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			changed, err := a.gate.CheckAccessChange(ctx)
			if err != nil {
				a.log.Warn(ctx, "session check failed", "error", err)
				continue
			}
			if changed {
				printlnFn(color.YellowString("Session expired, the store is locked."))
			}
		case <-ctx.Done():
			return
		}
	}
}
