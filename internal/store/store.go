// Package store is the public facade of the travel-document record
// store. It owns the database handle, the field cipher, and the
// repositories, and mirrors every mutating call into the audit log.
// Callers outside internal/ talk to Store only.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"tripvault/internal/common"
	"tripvault/internal/config"
	"tripvault/internal/cryptox"
	"tripvault/internal/filex"
	"tripvault/internal/logging"
	"tripvault/internal/models"
	"tripvault/internal/repositories/auditlog"
	"tripvault/internal/repositories/entryinfos"
	"tripvault/internal/repositories/funditems"
	"tripvault/internal/repositories/identitydocs"
	"tripvault/internal/repositories/owners"
	"tripvault/internal/repositories/profiles"
	"tripvault/internal/repositories/receipts"
	"tripvault/internal/repositories/settings"
	"tripvault/internal/repositories/snapshots"
	"tripvault/internal/repositories/tripplans"
	"tripvault/internal/schema"
)

// saltKey is the settings-table key holding the per-installation
// encryption salt.
const saltKey = "encryption_salt"

// Store wires the repositories behind one handle. A Store owns a single
// database connection; SQLite serializes writers anyway, and one
// connection keeps transactions and PRAGMA state coherent.
type Store struct {
	cfg *config.Config
	log logging.Logger

	mu     sync.Mutex
	db     *sql.DB
	closed bool

	schemaResult *schema.Result

	owners    owners.Repository
	settings  settings.Repository
	docs      identitydocs.Repository
	profiles  profiles.Repository
	plans     tripplans.Repository
	funds     funditems.Repository
	infos     entryinfos.Repository
	receipts  receipts.Repository
	snapshots snapshots.Repository
	audit     auditlog.Repository
}

// Open creates (if needed) and opens the store's database, brings the
// schema to the current version, and builds the field cipher per
// configuration. When encryption is enabled the passphrase is read from
// the environment variable named by cfg.PassphraseEnv.
func Open(cfg *config.Config, log logging.Logger) (*Store, error) {
	s := &Store{cfg: cfg, log: log}
	if err := s.open(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) open() error {
	dir, err := filex.EnsureDir(s.cfg.DatabaseDir)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	path := filepath.Join(dir, s.cfg.DatabaseFile)

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		`PRAGMA journal_mode = WAL`,
		`PRAGMA foreign_keys = ON`,
		`PRAGMA busy_timeout = 5000`,
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return fmt.Errorf("open store: %s: %w", pragma, err)
		}
	}

	res, err := schema.Ensure(context.Background(), db, s.log)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("open store: %w", err)
	}
	if res.StepErrors != nil {
		s.log.Warn(context.Background(), "schema migration finished with skipped steps", "errors", res.StepErrors)
	}

	settingsRepo := settings.NewSQLiteRepository(db)
	cipher, err := s.buildCipher(context.Background(), settingsRepo)
	if err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	s.closed = false
	s.schemaResult = res
	s.owners = owners.NewSQLiteRepository(db)
	s.settings = settingsRepo
	s.docs = identitydocs.NewSQLiteRepository(db, cipher)
	s.profiles = profiles.NewSQLiteRepository(db, cipher)
	s.plans = tripplans.NewSQLiteRepository(db, s.log)
	s.funds = funditems.NewSQLiteRepository(db, cipher)
	s.infos = entryinfos.NewSQLiteRepository(db, cipher)
	s.receipts = receipts.NewSQLiteRepository(db, cipher)
	s.snapshots = snapshots.NewSQLiteRepository(db, cipher)
	s.audit = auditlog.NewSQLiteRepository(db, s.cfg.AuditLogCap)

	s.log.Info(context.Background(), "store opened",
		"path", path,
		"fresh", res.FreshInstall,
		"from_version", res.FromVersion,
		"encryption", s.cfg.EncryptionEnabled)
	return nil
}

// buildCipher derives the field cipher from the configured passphrase
// and the per-installation salt. The salt is generated on first use and
// persisted in settings so the same passphrase keeps working across
// sessions.
func (s *Store) buildCipher(ctx context.Context, settingsRepo settings.Repository) (cryptox.FieldCipher, error) {
	if !s.cfg.EncryptionEnabled {
		return cryptox.NoopCipher{}, nil
	}

	passphrase := os.Getenv(s.cfg.PassphraseEnv)
	if passphrase == "" {
		return nil, fmt.Errorf("encryption enabled but %s is not set", s.cfg.PassphraseEnv)
	}

	saltHex, found, err := settingsRepo.Get(ctx, saltKey)
	if err != nil {
		return nil, err
	}
	if !found {
		if saltHex, err = common.MakeRandHexString(16); err != nil {
			return nil, fmt.Errorf("salt generation: %w", err)
		}
		if err := settingsRepo.Set(ctx, saltKey, saltHex); err != nil {
			return nil, err
		}
	}
	salt, err := cryptox.DecodeSalt(saltHex)
	if err != nil {
		return nil, err
	}

	key := cryptox.DeriveKey([]byte(passphrase), salt)
	defer common.WipeByteArray(key)

	return cryptox.NewAESGCMCipher(key)
}

// SchemaResult reports what schema.Ensure did at open time.
func (s *Store) SchemaResult() *schema.Result {
	return s.schemaResult
}

// guard returns ErrStoreClosed after Close.
func (s *Store) guard() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return common.ErrStoreClosed
	}
	return nil
}

// Initialize makes sure the owner row exists. Idempotent; every other
// operation assumes the owner has been initialized.
func (s *Store) Initialize(ctx context.Context, ownerID string) (*models.Owner, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	owner, err := s.owners.Ensure(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	s.record(ctx, ownerID, "initialize", "owners", ownerID, "")
	return owner, nil
}

// OwnerExists reports whether the owner has been initialized.
func (s *Store) OwnerExists(ctx context.Context, ownerID string) (bool, error) {
	if err := s.guard(); err != nil {
		return false, err
	}
	return s.owners.Exists(ctx, ownerID)
}

// Close releases the database handle. Further operations return
// ErrStoreClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.log.Info(context.Background(), "store closed")
	return s.db.Close()
}

// ForceReinitialize deletes the database files and opens a fresh, empty
// store in their place, then re-creates ownerID so the caller keeps a
// usable owner context. Pass an empty ownerID to reset without one.
// Unrecoverable; meant for the explicit "reset everything" path.
func (s *Store) ForceReinitialize(ctx context.Context, ownerID string) (*models.Owner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		if err := s.db.Close(); err != nil {
			return nil, fmt.Errorf("reinitialize: %w", err)
		}
		s.closed = true
	}

	path := filepath.Join(s.cfg.DatabaseDir, s.cfg.DatabaseFile)
	if err := filex.RemoveDatabase(path); err != nil {
		return nil, fmt.Errorf("reinitialize: %w", err)
	}

	s.log.Warn(ctx, "store reinitialized, all data deleted", "path", path)
	if err := s.open(); err != nil {
		return nil, err
	}
	if ownerID == "" {
		return nil, nil
	}
	owner, err := s.owners.Ensure(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	s.record(ctx, ownerID, "reinitialize", "owners", ownerID, "")
	return owner, nil
}

// DeleteAllOwnerData removes the owner row and, via the schema cascades,
// every record the owner stored. The owner's audit entries go too; one
// purge entry remains as the trace of the operation itself.
func (s *Store) DeleteAllOwnerData(ctx context.Context, ownerID string) error {
	if err := s.guard(); err != nil {
		return err
	}
	if err := s.owners.Delete(ctx, ownerID); err != nil {
		return err
	}
	if _, err := s.audit.DeleteByOwnerID(ctx, ownerID); err != nil {
		return err
	}
	s.record(ctx, ownerID, "purge", "owners", ownerID, "all owner data deleted")
	return nil
}

// AuditTrail lists the owner's audit entries, newest first.
func (s *Store) AuditTrail(ctx context.Context, ownerID string, limit int) ([]models.AuditEntry, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	return s.audit.ByOwner(ctx, ownerID, limit)
}

// record appends to the audit log. Audit is best-effort: a failed append
// is logged, never propagated, so bookkeeping cannot fail the operation
// it describes.
func (s *Store) record(ctx context.Context, ownerID, action, table, targetID, detail string) {
	_, err := s.audit.Append(ctx, &models.AuditEntry{
		OwnerID:     ownerID,
		Action:      action,
		TargetTable: table,
		TargetID:    targetID,
		Detail:      detail,
	})
	if err != nil {
		s.log.Error(ctx, "audit append failed", "action", action, "table", table, "error", err)
	}
}

// Stats summarizes an owner's record counts per table.
type Stats struct {
	IdentityDocuments int64 `json:"identityDocuments"`
	PersonalProfiles  int64 `json:"personalProfiles"`
	TripPlans         int64 `json:"tripPlans"`
	FundItems         int64 `json:"fundItems"`
	EntryInfos        int64 `json:"entryInfos"`
	Receipts          int64 `json:"receipts"`
	Snapshots         int64 `json:"snapshots"`
}

// OwnerStats counts an owner's records across every table.
func (s *Store) OwnerStats(ctx context.Context, ownerID string) (*Stats, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}

	var (
		st  Stats
		err error
	)
	if st.IdentityDocuments, err = s.docs.CountByOwnerID(ctx, ownerID); err != nil {
		return nil, err
	}
	if st.PersonalProfiles, err = s.profiles.CountByOwnerID(ctx, ownerID); err != nil {
		return nil, err
	}
	if st.TripPlans, err = s.plans.CountByOwnerID(ctx, ownerID); err != nil {
		return nil, err
	}
	if st.FundItems, err = s.funds.CountByOwnerID(ctx, ownerID); err != nil {
		return nil, err
	}
	if st.EntryInfos, err = s.infos.CountByOwnerID(ctx, ownerID); err != nil {
		return nil, err
	}
	if st.Receipts, err = s.receipts.CountByOwnerID(ctx, ownerID); err != nil {
		return nil, err
	}
	if st.Snapshots, err = s.snapshots.CountByOwnerID(ctx, ownerID); err != nil {
		return nil, err
	}
	return &st, nil
}
