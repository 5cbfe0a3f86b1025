package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"paperchat/internal/model"
)

var (
	ErrDuplicateID     = errors.New("document id already exists")
	ErrNotFound        = errors.New("document not found")
	ErrPersistence     = errors.New("persist document snapshot failed")
	ErrStoreClosed     = errors.New("document store is closed")
	ErrInvalidDocument = errors.New("invalid document")
)

// DocumentStore keeps every ingested document in memory and mirrors the whole
// collection into a JSON snapshot file on each mutation.
//
// Mutations are serialized by writeMu, which is held across the snapshot write,
// so two concurrent Adds can never persist out of order. A document becomes
// visible to readers only after the snapshot containing it has been renamed
// into place.
type DocumentStore struct {
	path string
	log  zerolog.Logger

	writeMu sync.Mutex
	closed  bool
	// blocked is set when an unreadable snapshot could not be moved aside.
	// Writing would replace it, so every mutation fails until restart.
	blocked error

	mu    sync.RWMutex
	docs  map[string]model.Document
	order []string
}

// OpenDocumentStore prepares the snapshot directory and loads any existing snapshot.
func OpenDocumentStore(path string, log zerolog.Logger) (*DocumentStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("open document store failed: empty snapshot path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot directory failed: %w", err)
	}

	s := &DocumentStore{
		path: path,
		log:  log,
		docs: make(map[string]model.Document),
	}
	s.Load()
	return s, nil
}

// Path returns the snapshot file location.
func (s *DocumentStore) Path() string {
	return s.path
}

// Add persists doc and then makes it visible. The store is left unchanged when
// the id is taken or the snapshot cannot be written.
func (s *DocumentStore) Add(_ context.Context, doc model.Document) error {
	if strings.TrimSpace(doc.ID) == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidDocument)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.writableLocked(); err != nil {
		return err
	}

	s.mu.RLock()
	_, exists := s.docs[doc.ID]
	var entries []snapshotEntry
	if !exists {
		entries = s.entriesLocked(len(s.order) + 1)
	}
	s.mu.RUnlock()
	if exists {
		return fmt.Errorf("%w: %s", ErrDuplicateID, doc.ID)
	}

	stored := doc.Clone()
	entries = append(entries, newSnapshotEntry(stored))

	start := time.Now()
	if err := writeSnapshot(s.path, entries); err != nil {
		s.log.Error().Err(err).Str("document_id", doc.ID).Msg("snapshot write failed, document not added")
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	s.mu.Lock()
	s.docs[stored.ID] = stored
	s.order = append(s.order, stored.ID)
	count := len(s.order)
	s.mu.Unlock()

	s.log.Debug().
		Str("document_id", stored.ID).
		Int("documents", count).
		Dur("snapshot_ms", time.Since(start)).
		Msg("document added")
	return nil
}

// Get returns a copy of the document with the given id.
func (s *DocumentStore) Get(_ context.Context, id string) (*model.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	cp := doc.Clone()
	return &cp, nil
}

// List returns copies of all documents in snapshot order.
func (s *DocumentStore) List(_ context.Context) ([]model.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Document, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.docs[id].Clone())
	}
	return out, nil
}

// Len reports the number of stored documents.
func (s *DocumentStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Save rewrites the snapshot with the current collection.
func (s *DocumentStore) Save() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.writableLocked(); err != nil {
		return err
	}

	s.mu.RLock()
	entries := s.entriesLocked(len(s.order))
	s.mu.RUnlock()

	if err := writeSnapshot(s.path, entries); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

// Load replaces the in-memory collection with the snapshot contents. A missing
// snapshot yields an empty store. A snapshot that cannot be read or decoded is
// moved aside so the next save cannot overwrite it; if that move fails the
// store refuses writes. Load never fails.
func (s *DocumentStore) Load() {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	docs := make(map[string]model.Document)
	var order []string
	defer func() {
		s.mu.Lock()
		s.docs = docs
		s.order = order
		s.mu.Unlock()
	}()
	s.blocked = nil

	entries, err := readSnapshot(s.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		s.log.Info().Str("path", s.path).Msg("no existing snapshot, starting with an empty store")
		return
	case err != nil:
		s.moveAsideLocked(err)
		return
	}

	for _, entry := range entries {
		if _, dup := docs[entry.ID]; dup {
			s.log.Warn().Str("document_id", entry.ID).Msg("duplicate id in snapshot, keeping first occurrence")
			continue
		}
		docs[entry.ID] = entry.document()
		order = append(order, entry.ID)
	}
	s.log.Info().Int("documents", len(order)).Str("path", s.path).Msg("loaded documents from snapshot")
}

func (s *DocumentStore) moveAsideLocked(cause error) {
	aside := fmt.Sprintf("%s.corrupt-%d", s.path, time.Now().Unix())
	if err := renameFile(s.path, aside); err != nil {
		s.blocked = fmt.Errorf("%w: snapshot %s unreadable (%v) and could not be moved aside: %v",
			ErrPersistence, s.path, cause, err)
		s.log.Error().Err(err).AnErr("cause", cause).Str("path", s.path).
			Msg("move unreadable snapshot aside failed, store is read-only")
		return
	}
	s.log.Warn().Err(cause).Str("path", s.path).Str("moved_to", aside).
		Msg("snapshot unreadable, starting with an empty store")
}

// Close rejects further mutations. Every Add is already durable, so there is
// nothing left to flush.
func (s *DocumentStore) Close() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.closed = true
	return nil
}

func (s *DocumentStore) writableLocked() error {
	if s.closed {
		return ErrStoreClosed
	}
	return s.blocked
}

func (s *DocumentStore) entriesLocked(capacity int) []snapshotEntry {
	entries := make([]snapshotEntry, 0, capacity)
	for _, id := range s.order {
		entries = append(entries, newSnapshotEntry(s.docs[id]))
	}
	return entries
}
