package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Store defines the interface for database operations. The core pipeline
// only reads through it; mutation happens via the CLI and the message log.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// GetProfiles retrieves all persona profiles ordered by ID.
	GetProfiles(ctx context.Context) ([]Profile, error)

	// GetProfile retrieves a single profile by ID. Returns ErrNotFound if absent.
	GetProfile(ctx context.Context, id uint) (*Profile, error)

	// SaveProfile inserts the profile when ID is zero, otherwise updates it.
	SaveProfile(ctx context.Context, profile *Profile) error

	// DeleteProfile removes a profile by ID.
	DeleteProfile(ctx context.Context, id uint) error

	// ActivateProfile marks one profile active and deactivates all others in
	// a single transaction, preserving the single-active invariant.
	ActivateProfile(ctx context.Context, id uint) error

	// SaveMessageLog records a handled exchange.
	SaveMessageLog(ctx context.Context, entry *MessageLog) error

	// GetRecentMessageLogs retrieves the newest 'limit' exchanges, newest first.
	GetRecentMessageLogs(ctx context.Context, limit int) ([]MessageLog, error)

	// GetRecentMessageLogsForSender retrieves the newest 'limit' exchanges
	// with one sender, newest first.
	GetRecentMessageLogsForSender(ctx context.Context, sender string, limit int) ([]MessageLog, error)

	// CountMessageLogs returns the number of recorded exchanges.
	CountMessageLogs(ctx context.Context) (int, error)

	// GetKnownSenders returns the distinct sender keys present in the
	// message log.
	GetKnownSenders(ctx context.Context) ([]string, error)

	// DeleteAllMessageLogs clears the exchange log.
	DeleteAllMessageLogs(ctx context.Context) error

	// TrimMessageLogs deletes all but the newest 'keep' exchanges.
	TrimMessageLogs(ctx context.Context, keep int) (int64, error)

	// GetBlacklist retrieves all blocked sender keys.
	GetBlacklist(ctx context.Context) ([]BlacklistEntry, error)

	// IsBlacklisted reports whether the sender is blocked.
	IsBlacklisted(ctx context.Context, sender string) (bool, error)

	// AddToBlacklist blocks a sender. Adding an existing entry is a no-op.
	AddToBlacklist(ctx context.Context, sender string) error

	// RemoveFromBlacklist unblocks a sender.
	RemoveFromBlacklist(ctx context.Context, sender string) error

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx. It requires a
// connected sqlx.DB instance and a logger.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqlxStore) GetProfiles(ctx context.Context) ([]Profile, error) {
	var profiles []Profile
	if err := s.db.SelectContext(ctx, &profiles, `SELECT * FROM profiles ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to query profiles: %w", err)
	}
	return profiles, nil
}

func (s *sqlxStore) GetProfile(ctx context.Context, id uint) (*Profile, error) {
	var profile Profile
	err := s.db.GetContext(ctx, &profile, `SELECT * FROM profiles WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query profile %d: %w", id, err)
	}
	return &profile, nil
}

func (s *sqlxStore) SaveProfile(ctx context.Context, profile *Profile) error {
	if profile == nil {
		return errors.New("cannot save nil profile")
	}
	if profile.Name == "" {
		return errors.New("profile must have a non-empty name")
	}

	now := time.Now().UTC()
	profile.UpdatedAt = now

	if profile.ID == 0 {
		profile.CreatedAt = now
		query := `
            INSERT INTO profiles (created_at, updated_at, name, phone, tone, system_instruction, custom_style, learn_from_chat, active)
            VALUES (:created_at, :updated_at, :name, :phone, :tone, :system_instruction, :custom_style, :learn_from_chat, :active)`
		result, err := s.db.NamedExecContext(ctx, query, profile)
		if err != nil {
			return fmt.Errorf("failed to insert profile %q: %w", profile.Name, err)
		}
		if id, err := result.LastInsertId(); err == nil {
			profile.ID = uint(id)
		} else {
			s.logger.WarnContext(ctx, "Could not retrieve last insert ID after saving profile",
				"name", profile.Name, "error", err)
		}
		return nil
	}

	query := `
        UPDATE profiles
        SET updated_at = :updated_at, name = :name, phone = :phone, tone = :tone,
            system_instruction = :system_instruction, custom_style = :custom_style,
            learn_from_chat = :learn_from_chat, active = :active
        WHERE id = :id`
	result, err := s.db.NamedExecContext(ctx, query, profile)
	if err != nil {
		return fmt.Errorf("failed to update profile %d: %w", profile.ID, err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *sqlxStore) DeleteProfile(ctx context.Context, id uint) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM profiles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete profile %d: %w", id, err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *sqlxStore) ActivateProfile(ctx context.Context, id uint) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
		}
	}()

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `UPDATE profiles SET active = 0, updated_at = ? WHERE active = 1`, now); err != nil {
		return fmt.Errorf("failed to deactivate profiles: %w", err)
	}

	result, err := tx.ExecContext(ctx, `UPDATE profiles SET active = 1, updated_at = ? WHERE id = ?`, now, id)
	if err != nil {
		return fmt.Errorf("failed to activate profile %d: %w", id, err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit activation: %w", err)
	}
	return nil
}

func (s *sqlxStore) SaveMessageLog(ctx context.Context, entry *MessageLog) error {
	if entry == nil {
		return errors.New("cannot save nil message log entry")
	}
	if entry.Sender == "" {
		return errors.New("message log entry must have a non-empty sender")
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	entry.CreatedAt = time.Now().UTC()

	query := `
        INSERT INTO messages (created_at, sender, sender_name, body, reply, profile_used, timestamp)
        VALUES (:created_at, :sender, :sender_name, :body, :reply, :profile_used, :timestamp)`
	result, err := s.db.NamedExecContext(ctx, query, entry)
	if err != nil {
		return fmt.Errorf("failed to save message log (sender %s): %w", entry.Sender, err)
	}
	if id, err := result.LastInsertId(); err == nil {
		entry.ID = uint(id)
	}
	return nil
}

func (s *sqlxStore) GetRecentMessageLogs(ctx context.Context, limit int) ([]MessageLog, error) {
	var logs []MessageLog
	query := `SELECT * FROM messages ORDER BY timestamp DESC, id DESC LIMIT ?`
	if err := s.db.SelectContext(ctx, &logs, query, limit); err != nil {
		return nil, fmt.Errorf("failed to query recent message logs: %w", err)
	}
	return logs, nil
}

func (s *sqlxStore) GetRecentMessageLogsForSender(ctx context.Context, sender string, limit int) ([]MessageLog, error) {
	var logs []MessageLog
	query := `SELECT * FROM messages WHERE sender = ? ORDER BY timestamp DESC, id DESC LIMIT ?`
	if err := s.db.SelectContext(ctx, &logs, query, sender, limit); err != nil {
		return nil, fmt.Errorf("failed to query message logs for sender %s: %w", sender, err)
	}
	return logs, nil
}

func (s *sqlxStore) CountMessageLogs(ctx context.Context) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM messages`); err != nil {
		return 0, fmt.Errorf("failed to count message logs: %w", err)
	}
	return count, nil
}

func (s *sqlxStore) GetKnownSenders(ctx context.Context) ([]string, error) {
	var senders []string
	if err := s.db.SelectContext(ctx, &senders, `SELECT DISTINCT sender FROM messages ORDER BY sender`); err != nil {
		return nil, fmt.Errorf("failed to query known senders: %w", err)
	}
	return senders, nil
}

func (s *sqlxStore) DeleteAllMessageLogs(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM messages`); err != nil {
		return fmt.Errorf("failed to delete message logs: %w", err)
	}
	return nil
}

func (s *sqlxStore) TrimMessageLogs(ctx context.Context, keep int) (int64, error) {
	query := `
        DELETE FROM messages
        WHERE id NOT IN (SELECT id FROM messages ORDER BY timestamp DESC, id DESC LIMIT ?)`
	result, err := s.db.ExecContext(ctx, query, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to trim message logs: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count trimmed message logs: %w", err)
	}
	return n, nil
}

func (s *sqlxStore) GetBlacklist(ctx context.Context) ([]BlacklistEntry, error) {
	var entries []BlacklistEntry
	if err := s.db.SelectContext(ctx, &entries, `SELECT * FROM blacklist ORDER BY created_at`); err != nil {
		return nil, fmt.Errorf("failed to query blacklist: %w", err)
	}
	return entries, nil
}

func (s *sqlxStore) IsBlacklisted(ctx context.Context, sender string) (bool, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM blacklist WHERE sender = ?`, sender); err != nil {
		return false, fmt.Errorf("failed to check blacklist for %s: %w", sender, err)
	}
	return count > 0, nil
}

func (s *sqlxStore) AddToBlacklist(ctx context.Context, sender string) error {
	if sender == "" {
		return errors.New("blacklist sender must be non-empty")
	}
	query := `INSERT OR IGNORE INTO blacklist (sender, created_at) VALUES (?, ?)`
	if _, err := s.db.ExecContext(ctx, query, sender, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to add %s to blacklist: %w", sender, err)
	}
	return nil
}

func (s *sqlxStore) RemoveFromBlacklist(ctx context.Context, sender string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM blacklist WHERE sender = ?`, sender)
	if err != nil {
		return fmt.Errorf("failed to remove %s from blacklist: %w", sender, err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	s.logger.InfoContext(ctx, "Running SQL maintenance")
	if _, err := s.db.ExecContext(ctx, `VACUUM`); err != nil {
		return fmt.Errorf("failed to VACUUM database: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `ANALYZE`); err != nil {
		return fmt.Errorf("failed to ANALYZE database: %w", err)
	}
	return nil
}
