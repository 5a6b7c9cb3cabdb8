// Package storage persists reading progress and reader settings in SQLite
// database.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rupor-github/gencfg"
	"go.uber.org/zap"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"epr/config"
)

const (
	progressPrefix = "progress/"
	settingsKey    = "settings"

	// MemoryPath opens private in-memory database.
	MemoryPath = ":memory:"
)

var (
	ErrNoBookID = errors.New("progress record has no book id")
	ErrClosed   = errors.New("store is closed")
)

// Store keeps records as JSON documents keyed by name. Single connection is
// shared, so all access is serialized.
type Store struct {
	mu       sync.Mutex
	conn     *sqlite.Conn
	defaults Settings
	log      *zap.Logger
	now      func() time.Time
}

// Open opens or creates database at configured path. defaults are returned
// by GetSettings when nothing usable is stored.
func Open(cfg *config.StorageConfig, defaults config.SettingsConfig, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}

	flags := []sqlite.OpenFlags{sqlite.OpenReadWrite, sqlite.OpenCreate, sqlite.OpenWAL}
	if cfg.Path == MemoryPath {
		flags = []sqlite.OpenFlags{sqlite.OpenReadWrite, sqlite.OpenMemory}
	}
	conn, err := sqlite.OpenConn(cfg.Path, flags...)
	if err != nil {
		return nil, fmt.Errorf("unable to open database %s: %w", cfg.Path, err)
	}
	conn.SetBusyTimeout(cfg.BusyTimeout)

	err = sqlitex.Execute(conn, `CREATE TABLE IF NOT EXISTS records (
		key     TEXT PRIMARY KEY,
		value   TEXT NOT NULL,
		updated INTEGER NOT NULL
	)`, nil)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("unable to prepare database %s: %w", cfg.Path, err)
	}

	return &Store{
		conn:     conn,
		defaults: SettingsFromConfig(defaults),
		log:      log.Named("storage"),
		now:      time.Now,
	}, nil
}

// Close closes database, it is idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

func (s *Store) put(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("unable to encode %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return ErrClosed
	}
	err = sqlitex.Execute(s.conn, `INSERT INTO records (key, value, updated) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated = excluded.updated`,
		&sqlitex.ExecOptions{Args: []any{key, string(data), s.now().Unix()}})
	if err != nil {
		return fmt.Errorf("unable to store %s: %w", key, err)
	}
	return nil
}

// get returns raw value and whether it was found.
func (s *Store) get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return "", false, ErrClosed
	}
	var (
		value string
		found bool
	)
	err := sqlitex.Execute(s.conn, `SELECT value FROM records WHERE key = ?`,
		&sqlitex.ExecOptions{
			Args: []any{key},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				value, found = stmt.ColumnText(0), true
				return nil
			}})
	if err != nil {
		return "", false, fmt.Errorf("unable to read %s: %w", key, err)
	}
	return value, found, nil
}

func (s *Store) delete(prefix string, exact bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return ErrClosed
	}
	query, arg := `DELETE FROM records WHERE key = ?`, prefix
	if !exact {
		query, arg = `DELETE FROM records WHERE substr(key, 1, length(?1)) = ?1`, prefix
	}
	if err := sqlitex.Execute(s.conn, query, &sqlitex.ExecOptions{Args: []any{arg}}); err != nil {
		return fmt.Errorf("unable to delete %s: %w", prefix, err)
	}
	return nil
}

// SaveProgress overwrites progress record of the book.
func (s *Store) SaveProgress(p Progress) error {
	if p.BookID == "" {
		return ErrNoBookID
	}
	if p.ScrollPosition < 0 || math.IsNaN(p.ScrollPosition) || math.IsInf(p.ScrollPosition, 0) {
		p.ScrollPosition = 0
	}
	if p.LastReadDate.IsZero() {
		p.LastReadDate = s.now()
	}
	p.LastReadDate = p.LastReadDate.UTC()
	return s.put(progressPrefix+p.BookID, p)
}

// GetProgress returns stored record or nil when there is none. Unreadable
// records are treated as absent.
func (s *Store) GetProgress(bookID string) (*Progress, error) {
	value, found, err := s.get(progressPrefix + bookID)
	if err != nil || !found {
		return nil, err
	}

	var p Progress
	if err := json.Unmarshal([]byte(value), &p); err != nil {
		s.log.Warn("Ignoring corrupt progress record", zap.String("book", bookID), zap.Error(err))
		return nil, nil
	}
	if p.ChapterIdref == "" && p.ChapterHref == "" {
		s.log.Warn("Ignoring progress record without chapter", zap.String("book", bookID))
		return nil, nil
	}
	if p.BookID == "" {
		p.BookID = bookID
	}
	if p.ScrollPosition < 0 {
		p.ScrollPosition = 0
	}
	return &p, nil
}

// DeleteProgress forgets reading position of the book.
func (s *Store) DeleteProgress(bookID string) error {
	return s.delete(progressPrefix+bookID, true)
}

// SaveSettings validates and stores reader preferences.
func (s *Store) SaveSettings(settings Settings) error {
	if err := gencfg.Validate(&settings, gencfg.WithAdditionalChecks(enumChecks)); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	return s.put(settingsKey, settings)
}

// GetSettings never fails, anything missing or unusable yields defaults.
func (s *Store) GetSettings() Settings {
	value, found, err := s.get(settingsKey)
	if err != nil {
		s.log.Warn("Unable to read settings, using defaults", zap.Error(err))
		return s.defaults
	}
	if !found {
		return s.defaults
	}

	var settings Settings
	if err := json.Unmarshal([]byte(value), &settings); err != nil {
		s.log.Warn("Ignoring corrupt settings", zap.Error(err))
		return s.defaults
	}
	if err := gencfg.Validate(&settings, gencfg.WithAdditionalChecks(enumChecks)); err != nil {
		s.log.Warn("Ignoring invalid settings", zap.Error(err))
		return s.defaults
	}
	return settings
}

// Defaults returns settings used when nothing is stored.
func (s *Store) Defaults() Settings {
	return s.defaults
}

// Clear removes every stored record.
func (s *Store) Clear() error {
	return s.delete("", false)
}
