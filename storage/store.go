// Package storage owns the BadgerDB handle shared by the repositories.
package storage

import (
	"chat-relay/errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dgraph-io/badger/v4"
)

const sequenceBandwidth = 100

// Store wraps the database opened at startup.
// When the startup handshake failed the Store stays usable but every
// operation reports ErrStoreUnavailable, so the listener can still run.
type Store struct {
	mu        sync.Mutex
	db        *badger.DB
	log       *slog.Logger
	sequences map[string]*badger.Sequence
}

// Open performs the startup handshake with the database.
// A failure is logged, never returned.
func Open(options badger.Options, log *slog.Logger) *Store {
	db, err := badger.Open(options)
	if err != nil {
		log.Error("Unable to connect to the database", "dir", options.Dir, "error", err)
		return &Store{log: log, sequences: make(map[string]*badger.Sequence)}
	}
	log.Info("Connection to the database has been established successfully", "dir", options.Dir)
	return New(db, log)
}

func New(db *badger.DB, log *slog.Logger) *Store {
	return &Store{db: db, log: log, sequences: make(map[string]*badger.Sequence)}
}

func (s *Store) Available() bool {
	return s.db != nil
}

// DB exposes the raw handle, nil when the handshake failed.
func (s *Store) DB() *badger.DB {
	return s.db
}

func (s *Store) View(fn func(txn *badger.Txn) error) error {
	if s.db == nil {
		return errors.ErrStoreUnavailable
	}
	return s.db.View(fn)
}

func (s *Store) Update(fn func(txn *badger.Txn) error) error {
	if s.db == nil {
		return errors.ErrStoreUnavailable
	}
	return s.db.Update(fn)
}

// Next returns the next value of a named monotonic counter.
// Counters survive restarts: badger hands out leases persisted in the DB.
func (s *Store) Next(name string) (uint64, error) {
	if s.db == nil {
		return 0, errors.ErrStoreUnavailable
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	seq, ok := s.sequences[name]
	if !ok {
		var err error
		seq, err = s.db.GetSequence([]byte("seq:"+name), sequenceBandwidth)
		if err != nil {
			return 0, fmt.Errorf("sequence %s: %w", name, err)
		}
		s.sequences[name] = seq
	}
	return seq.Next()
}

// Close releases the counters leases then the database lock.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	s.mu.Lock()
	for name, seq := range s.sequences {
		if err := seq.Release(); err != nil {
			s.log.Warn("Sequence release failed", "name", name, "error", err)
		}
	}
	s.sequences = make(map[string]*badger.Sequence)
	s.mu.Unlock()
	return s.db.Close()
}
