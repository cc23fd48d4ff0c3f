package services

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/dmitrijs2005/cryptool/internal/biometric"
	"github.com/dmitrijs2005/cryptool/internal/common"
	"github.com/dmitrijs2005/cryptool/internal/cryptox"
	"github.com/dmitrijs2005/cryptool/internal/dbx"
	"github.com/dmitrijs2005/cryptool/internal/logging"
	"github.com/dmitrijs2005/cryptool/internal/models"
	"github.com/dmitrijs2005/cryptool/internal/repositories/channels"
	"github.com/dmitrijs2005/cryptool/internal/repositories/messages"
	"github.com/dmitrijs2005/cryptool/internal/repositories/prefs"
)

const (
	prefKeyAccessSalt     = "access_salt"
	prefKeyAccessVerifier = "access_verifier"
	prefKeyBiometric      = "biometric_enabled"
	prefKeyWelcomeAck     = "welcome_acknowledged"
	prefKeyLegacyAck      = "legacy_migration_acknowledged"
	prefKeyLastActivity   = "last_activity_millis"
)

// DefaultSessionTimeout locks an idle unlocked session.
const DefaultSessionTimeout = 5 * time.Minute

// LegacyMigrator imports data from the legacy storage format once, on user
// request during onboarding.
type LegacyMigrator interface {
	Available(ctx context.Context) (bool, error)
	Migrate(ctx context.Context) error
}

// GatekeeperService guards the whole local store behind an access code with
// optional biometric unlock. It owns the access state machine
// (no code -> locked -> unlocked) and drives the export/reset/import
// re-keying protocol.
type GatekeeperService struct {
	db       *sql.DB
	log      logging.Logger
	verifier biometric.Verifier
	exporter Exporter
	importer Importer
	legacy   LegacyMigrator
	channels *ChannelService
	messages *MessageService

	sessionTimeout time.Duration
	now            func() time.Time

	mu           sync.Mutex
	open         bool
	lastActivity time.Time
}

// GatekeeperOptions collects the collaborators of the gatekeeper.
type GatekeeperOptions struct {
	Verifier       biometric.Verifier
	Exporter       Exporter
	Importer       Importer
	Legacy         LegacyMigrator
	SessionTimeout time.Duration
}

// NewGatekeeperService constructs a GatekeeperService.
func NewGatekeeperService(db *sql.DB, channelService *ChannelService, messageService *MessageService, log logging.Logger, opts GatekeeperOptions) *GatekeeperService {
	if opts.Verifier == nil {
		opts.Verifier = biometric.Unavailable{}
	}
	if opts.SessionTimeout <= 0 {
		opts.SessionTimeout = DefaultSessionTimeout
	}
	return &GatekeeperService{
		db:             db,
		log:            log.With("service", "gatekeeper"),
		verifier:       opts.Verifier,
		exporter:       opts.Exporter,
		importer:       opts.Importer,
		legacy:         opts.Legacy,
		channels:       channelService,
		messages:       messageService,
		sessionTimeout: opts.SessionTimeout,
		now:            time.Now,
	}
}

func (s *GatekeeperService) prefs() prefs.Repository {
	return prefs.NewSQLiteRepository(s.db)
}

// State returns the current access snapshot.
func (s *GatekeeperService) State(ctx context.Context) (models.AccessState, error) {
	repo := s.prefs()

	verifier, err := repo.Get(ctx, prefKeyAccessVerifier)
	if err != nil {
		return models.AccessState{}, err
	}
	biometricEnabled, err := s.flag(ctx, prefKeyBiometric)
	if err != nil {
		return models.AccessState{}, err
	}
	welcomeAck, err := s.flag(ctx, prefKeyWelcomeAck)
	if err != nil {
		return models.AccessState{}, err
	}
	legacyAck, err := s.flag(ctx, prefKeyLegacyAck)
	if err != nil {
		return models.AccessState{}, err
	}

	legacyAvailable := false
	if s.legacy != nil && !legacyAck {
		legacyAvailable, err = s.legacy.Available(ctx)
		if err != nil {
			return models.AccessState{}, err
		}
	}

	s.mu.Lock()
	open := s.open
	s.mu.Unlock()

	return models.AccessState{
		Open:                     open,
		HasCode:                  verifier != nil,
		BiometricEnabled:         verifier != nil && biometricEnabled,
		WelcomeAcknowledged:      welcomeAck,
		LegacyMigrationAvailable: legacyAvailable,
	}, nil
}

// IsOpen reports whether an unlocked session is active.
func (s *GatekeeperService) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// RequireOpen fails with common.ErrLocked when no unlocked session is active.
func (s *GatekeeperService) RequireOpen() error {
	if !s.IsOpen() {
		return common.ErrLocked
	}
	return nil
}

// SetNewCode derives and stores the access-code verifier and opens a
// session. Valid with no code set, or from the locked state on the re-keying
// path.
func (s *GatekeeperService) SetNewCode(ctx context.Context, code string, biometricEnabled bool) error {
	if code == "" {
		return errors.New("access code must not be empty")
	}

	salt := common.GenerateRandByteArray(32)
	key := cryptox.DeriveAccessKey([]byte(code), salt)
	defer common.WipeByteArray(key)
	verifier := cryptox.MakeVerifier(key)

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := prefs.NewSQLiteRepository(tx)
		if err := repo.Set(ctx, prefKeyAccessSalt, salt); err != nil {
			return err
		}
		if err := repo.Set(ctx, prefKeyAccessVerifier, verifier); err != nil {
			return err
		}
		return repo.Set(ctx, prefKeyBiometric, flagValue(biometricEnabled))
	})
	if err != nil {
		return fmt.Errorf("failed to store access code: %w", err)
	}

	s.log.Info(ctx, "access code set", "biometric", biometricEnabled)
	s.unlock(ctx)
	return nil
}

// ValidateCode checks the code against the stored verifier. Success opens
// the session and returns true; failure locks it and returns false with no
// other state change.
func (s *GatekeeperService) ValidateCode(ctx context.Context, code string) (bool, error) {
	ok, err := s.checkCode(ctx, code)
	if err != nil {
		return false, err
	}
	if !ok {
		s.lock()
		return false, nil
	}
	s.unlock(ctx)
	return true, nil
}

func (s *GatekeeperService) checkCode(ctx context.Context, code string) (bool, error) {
	repo := s.prefs()
	salt, err := repo.Get(ctx, prefKeyAccessSalt)
	if err != nil {
		return false, err
	}
	storedVerifier, err := repo.Get(ctx, prefKeyAccessVerifier)
	if err != nil {
		return false, err
	}
	if salt == nil || storedVerifier == nil {
		return false, nil
	}

	key := cryptox.DeriveAccessKey([]byte(code), salt)
	defer common.WipeByteArray(key)
	candidate := cryptox.MakeVerifier(key)

	return subtle.ConstantTimeCompare(storedVerifier, candidate) == 1, nil
}

// BiometricAccess delegates the unlock decision to the platform verifier.
// A lockout maps to common.ErrTooManyAttempts; any other failure behaves
// like a failed code validation. Success opens the session.
func (s *GatekeeperService) BiometricAccess(ctx context.Context) (bool, error) {
	state, err := s.State(ctx)
	if err != nil {
		return false, err
	}
	if !state.BiometricEnabled {
		return false, nil
	}

	if err := s.verifier.Verify(ctx); err != nil {
		s.lock()
		if errors.Is(err, biometric.ErrLockout) {
			return false, common.ErrTooManyAttempts
		}
		return false, nil
	}

	s.unlock(ctx)
	return true, nil
}

// Lock ends the unlocked session explicitly. The persisted last-activity
// mark is cleared so the session is not resumed on the next start.
func (s *GatekeeperService) Lock(ctx context.Context) error {
	s.lock()
	return s.prefs().Delete(ctx, prefKeyLastActivity)
}

// ResumeSession reopens the session when the persisted last activity falls
// within the session timeout, so restarting the client inside the window does
// not force a second code entry. Reports whether the session was resumed.
func (s *GatekeeperService) ResumeSession(ctx context.Context) (bool, error) {
	repo := s.prefs()
	verifier, err := repo.Get(ctx, prefKeyAccessVerifier)
	if err != nil {
		return false, err
	}
	raw, err := repo.Get(ctx, prefKeyLastActivity)
	if err != nil {
		return false, err
	}
	if verifier == nil || raw == nil {
		return false, nil
	}
	millis, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return false, nil
	}
	if s.now().Sub(time.UnixMilli(millis)) >= s.sessionTimeout {
		return false, nil
	}

	s.unlock(ctx)
	s.log.Info(ctx, "session resumed")
	return true, nil
}

// Reset wipes the access state, every channel and every message, returning
// the gatekeeper to the no-code state. Used both for "delete everything" and
// as the middle step of re-keying.
func (s *GatekeeperService) Reset(ctx context.Context) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := messages.NewSQLiteRepository(tx).Clear(ctx); err != nil {
			return err
		}
		if err := channels.NewSQLiteRepository(tx).Clear(ctx); err != nil {
			return err
		}
		return prefs.NewSQLiteRepository(tx).Clear(ctx)
	})
	if err != nil {
		return fmt.Errorf("reset failed: %w", err)
	}

	s.lock()
	s.log.Info(ctx, "store reset")

	if err := s.channels.Refresh(ctx); err != nil {
		return err
	}
	return s.messages.RefreshAll(ctx)
}

// ChangeAccessCode re-keys the store: it validates the old code, exports a
// full snapshot, resets everything, sets the new code and re-imports the
// snapshot. The snapshot never re-encrypts message payloads; they stay under
// their per-channel passwords.
//
// The sequence is not atomic end to end. If the final import fails the store
// is left empty under the new code and the error wraps common.ErrReKeyImport;
// the exported snapshot held by the caller is the only recovery path.
func (s *GatekeeperService) ChangeAccessCode(ctx context.Context, oldCode, newCode string) error {
	ok, err := s.checkCode(ctx, oldCode)
	if err != nil {
		return err
	}
	if !ok {
		return common.ErrInvalidOldCode
	}

	snapshot, err := s.exporter.Export(ctx)
	if err != nil {
		return fmt.Errorf("re-key export: %w", err)
	}

	if err := s.Reset(ctx); err != nil {
		return err
	}
	if err := s.SetNewCode(ctx, newCode, false); err != nil {
		return err
	}

	if err := s.importer.Import(ctx, snapshot); err != nil {
		s.log.Error(ctx, "re-key import failed, store left empty under new code", "error", err)
		return fmt.Errorf("%w: %w", common.ErrReKeyImport, err)
	}

	s.log.Info(ctx, "access code changed")
	return nil
}

// SetBiometricAccess toggles biometric unlock. Requires a code to be set.
func (s *GatekeeperService) SetBiometricAccess(ctx context.Context, enabled bool) error {
	verifier, err := s.prefs().Get(ctx, prefKeyAccessVerifier)
	if err != nil {
		return err
	}
	if verifier == nil {
		return errors.New("no access code set")
	}
	return s.prefs().Set(ctx, prefKeyBiometric, flagValue(enabled))
}

// CheckAccessChange auto-locks an unlocked session whose inactivity exceeded
// the session timeout. It reports whether a transition happened so callers
// refresh dependent state only when needed.
func (s *GatekeeperService) CheckAccessChange(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return false, nil
	}
	if s.now().Sub(s.lastActivity) < s.sessionTimeout {
		return false, nil
	}
	s.open = false
	s.log.Info(ctx, "session expired")
	return true, nil
}

// PushAccessValidity records activity, extending the unlocked session.
func (s *GatekeeperService) PushAccessValidity(ctx context.Context) error {
	s.mu.Lock()
	if !s.open {
		s.mu.Unlock()
		return nil
	}
	now := s.now()
	s.lastActivity = now
	s.mu.Unlock()

	return s.prefs().Set(ctx, prefKeyLastActivity, []byte(strconv.FormatInt(now.UnixMilli(), 10)))
}

// AcknowledgeWelcome records that onboarding was dismissed.
func (s *GatekeeperService) AcknowledgeWelcome(ctx context.Context) error {
	return s.prefs().Set(ctx, prefKeyWelcomeAck, flagValue(true))
}

// AcknowledgeLegacyMigration records the one-time migration decision and,
// when requested, runs the legacy import.
func (s *GatekeeperService) AcknowledgeLegacyMigration(ctx context.Context, migrate bool) error {
	if err := s.prefs().Set(ctx, prefKeyLegacyAck, flagValue(true)); err != nil {
		return err
	}
	if !migrate || s.legacy == nil {
		return nil
	}
	if err := s.legacy.Migrate(ctx); err != nil {
		return fmt.Errorf("legacy migration: %w", err)
	}
	return nil
}

func (s *GatekeeperService) unlock(ctx context.Context) {
	s.mu.Lock()
	s.open = true
	s.lastActivity = s.now()
	s.mu.Unlock()
	_ = s.PushAccessValidity(ctx)
}

func (s *GatekeeperService) lock() {
	s.mu.Lock()
	s.open = false
	s.mu.Unlock()
}

func (s *GatekeeperService) flag(ctx context.Context, key string) (bool, error) {
	value, err := s.prefs().Get(ctx, key)
	if err != nil {
		return false, err
	}
	return string(value) == "1", nil
}

func flagValue(b bool) []byte {
	if b {
		return []byte("1")
	}
	return []byte("0")
}
