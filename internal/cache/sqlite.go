package cache

// SQLStore persists snapshots with SQLite. The database is opened lazily and
// created on first use. If opening the DB or executing queries fails, the
// store falls back to in-memory storage for the rest of the process.

import (
	"database/sql"
	"errors"
	"sync"
	"time"

	_ "github.com/glebarez/go-sqlite"

	"github.com/comigor/chatview/internal/conversation"
	"github.com/comigor/chatview/internal/logger"
)

type SQLStore struct {
	path string

	dbOnce  sync.Once
	db      *sql.DB
	initErr error

	fallback *MemoryStore
}

// NewSQLStore returns a store backed by the SQLite file at path.
func NewSQLStore(path string) *SQLStore {
	return &SQLStore{path: path, fallback: NewMemoryStore()}
}

// initDB lazily opens the SQLite database and creates the cache table if it doesn't exist.
func (s *SQLStore) initDB() {
	var err error
	s.db, err = sql.Open("sqlite", "file:"+s.path+"?_pragma=busy_timeout(10000)")
	if err != nil {
		s.initErr = err
		logger.L.Warn("sqlite open failed; using in-memory cache", "error", err)
		return
	}
	if _, err = s.db.Exec(`CREATE TABLE IF NOT EXISTS ` + Namespace + ` (
        thread_id TEXT PRIMARY KEY,
        payload BLOB NOT NULL,
        updated_at DATETIME
    );`); err != nil {
		s.initErr = err
		logger.L.Warn("sqlite table creation failed; using in-memory cache", "error", err)
		return
	}
	logger.L.Debug("sqlite cache DB initialized", "path", s.path)
}

func (s *SQLStore) ready() bool {
	s.dbOnce.Do(s.initDB)
	return s.initErr == nil && s.db != nil
}

func (s *SQLStore) Load(threadID string) (conversation.View, bool) {
	if !s.ready() {
		return s.fallback.Load(threadID)
	}
	var raw []byte
	err := s.db.QueryRow(`SELECT payload FROM `+Namespace+` WHERE thread_id = ?;`, threadID).Scan(&raw)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			logger.Thread(threadID).Error("failed to load from cache", "error", err)
		}
		return s.fallback.Load(threadID)
	}
	return Decode(raw)
}

// Save writes the snapshot to SQLite when available and always keeps an
// in-memory copy as fallback.
func (s *SQLStore) Save(threadID string, view conversation.View) {
	raw, err := Encode(view)
	if err != nil {
		logger.Thread(threadID).Error("failed to save to cache", "error", err)
		return
	}
	if s.ready() {
		_, err := s.db.Exec(`INSERT INTO `+Namespace+` (thread_id, payload, updated_at) VALUES (?,?,?)
            ON CONFLICT(thread_id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at;`,
			threadID, raw, time.Now().UTC())
		if err != nil {
			logger.Thread(threadID).Error("failed to store snapshot in sqlite; falling back to memory", "error", err)
		}
	}
	s.fallback.Put(threadID, raw)
}

func (s *SQLStore) Delete(threadID string) {
	if s.ready() {
		if _, err := s.db.Exec(`DELETE FROM `+Namespace+` WHERE thread_id = ?;`, threadID); err != nil {
			logger.Thread(threadID).Error("failed to delete cache entry", "error", err)
		}
	}
	s.fallback.Delete(threadID)
}

// put writes raw bytes without validation; tests use it to plant corrupt entries.
func (s *SQLStore) put(threadID string, raw []byte) error {
	if !s.ready() {
		return s.initErr
	}
	_, err := s.db.Exec(`INSERT OR REPLACE INTO `+Namespace+` (thread_id, payload, updated_at) VALUES (?,?,?);`,
		threadID, raw, time.Now().UTC())
	return err
}

func (s *SQLStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
