package cache

import (
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/comigor/chatview/internal/conversation"
	"github.com/comigor/chatview/internal/logger"
)

// BoltStore keeps all thread snapshots in one bucket of a BoltDB file.
type BoltStore struct {
	db *bolt.DB
}

// OpenBolt opens (creating if needed) the BoltDB file at path.
func OpenBolt(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(Namespace))
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Load(threadID string) (conversation.View, bool) {
	var raw []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(Namespace))
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(threadID)); v != nil {
			// v is only valid inside the transaction
			raw = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		logger.Thread(threadID).Error("failed to load from cache", "error", err)
		return conversation.View{}, false
	}
	if raw == nil {
		return conversation.View{}, false
	}
	return Decode(raw)
}

func (s *BoltStore) Save(threadID string, view conversation.View) {
	raw, err := Encode(view)
	if err != nil {
		logger.Thread(threadID).Error("failed to save to cache", "error", err)
		return
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(Namespace))
		if err != nil {
			return err
		}
		return b.Put([]byte(threadID), raw)
	})
	if err != nil {
		logger.Thread(threadID).Error("failed to save to cache", "error", err)
	}
}

func (s *BoltStore) Delete(threadID string) {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(Namespace))
		if b == nil {
			return nil
		}
		return b.Delete([]byte(threadID))
	})
	if err != nil {
		logger.Thread(threadID).Error("failed to delete cache entry", "error", err)
	}
}

// put writes raw bytes without validation; tests use it to plant corrupt entries.
func (s *BoltStore) put(threadID string, raw []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(Namespace)).Put([]byte(threadID), raw)
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
