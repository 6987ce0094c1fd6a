package storage

import (
	"encoding/json"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// Storage keys
const (
	keyConfig        = "config"
	keySessionPrefix = "session/"
)

// Config stores engine settings that survive restarts, so a GUI that sets
// options once gets them back on the next launch.
type Config struct {
	HashMB         int       `json:"hash_mb"`
	MoveOverheadMS int       `json:"move_overhead_ms"`
	LastUsed       time.Time `json:"last_used"`
}

// DefaultConfig returns the engine's default configuration.
func DefaultConfig() *Config {
	return &Config{
		HashMB:         64,
		MoveOverheadMS: 10,
		LastUsed:       time.Now(),
	}
}

// MoveOverhead returns the configured move overhead as a duration.
func (c *Config) MoveOverhead() time.Duration {
	return time.Duration(c.MoveOverheadMS) * time.Millisecond
}

// SessionStats summarises one engine session: how many searches ran and how
// much work they did.
type SessionStats struct {
	ID        string        `json:"id"`
	Started   time.Time     `json:"started"`
	Ended     time.Time     `json:"ended"`
	Searches  int           `json:"searches"`
	Nodes     uint64        `json:"nodes"`
	MaxDepth  int           `json:"max_depth"`
	ThinkTime time.Duration `json:"think_time"`
}

// Storage wraps BadgerDB for persistent storage
type Storage struct {
	db *badger.DB
}

// NewStorage opens the database in the platform data directory.
func NewStorage() (*Storage, error) {
	dbDir, err := GetDatabaseDir()
	if err != nil {
		return nil, err
	}
	return NewStorageAt(dbDir)
}

// NewStorageAt opens the database in a specific directory.
func NewStorageAt(dir string) (*Storage, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil // Badger's own logging is noise on a UCI stream

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &Storage{db: db}, nil
}

// Close closes the database
func (s *Storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveConfig saves the engine configuration.
func (s *Storage) SaveConfig(cfg *Config) error {
	cfg.LastUsed = time.Now()

	data, err := json.Marshal(cfg)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyConfig), data)
	})
}

// LoadConfig loads the engine configuration, returning defaults if none has
// been saved yet.
func (s *Storage) LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyConfig))
		if err == badger.ErrKeyNotFound {
			return nil // Use defaults
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, cfg)
		})
	})

	return cfg, err
}

// RecordSession stores a finished session under a fresh unique ID and
// returns the ID.
func (s *Storage) RecordSession(stats SessionStats) (string, error) {
	if stats.ID == "" {
		stats.ID = uuid.NewString()
	}

	data, err := json.Marshal(stats)
	if err != nil {
		return "", err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keySessionPrefix+stats.ID), data)
	})
	if err != nil {
		return "", err
	}
	return stats.ID, nil
}

// Sessions returns all recorded sessions, in key order.
func (s *Storage) Sessions() ([]SessionStats, error) {
	var sessions []SessionStats

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(keySessionPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var stats SessionStats
				if err := json.Unmarshal(val, &stats); err != nil {
					return err
				}
				sessions = append(sessions, stats)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})

	return sessions, err
}
