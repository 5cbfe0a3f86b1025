package repository

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"paperchat/internal/model"
)

var errCorruptSnapshot = errors.New("corrupt snapshot")

// renameFile is swapped in tests to simulate a snapshot that cannot be moved.
var renameFile = os.Rename

// snapshotRecord is the value half of a snapshot pair.
type snapshotRecord struct {
	Text       string                 `json:"text"`
	Metadata   model.DocumentMetadata `json:"metadata"`
	Embeddings []float64              `json:"embeddings"`
}

// snapshotEntry encodes as a two element JSON array: [id, record].
type snapshotEntry struct {
	ID     string
	Record snapshotRecord
}

func newSnapshotEntry(doc model.Document) snapshotEntry {
	return snapshotEntry{
		ID: doc.ID,
		Record: snapshotRecord{
			Text:       doc.Text,
			Metadata:   doc.Metadata,
			Embeddings: doc.Embedding,
		},
	}
}

func (e snapshotEntry) document() model.Document {
	return model.Document{
		ID:        e.ID,
		Text:      e.Record.Text,
		Metadata:  e.Record.Metadata,
		Embedding: e.Record.Embeddings,
	}
}

func (e snapshotEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{e.ID, e.Record})
}

func (e *snapshotEntry) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("snapshot entry has %d elements, want 2", len(pair))
	}
	if err := json.Unmarshal(pair[0], &e.ID); err != nil {
		return fmt.Errorf("decode snapshot entry id: %w", err)
	}
	if e.ID == "" {
		return fmt.Errorf("snapshot entry has empty id")
	}
	if err := json.Unmarshal(pair[1], &e.Record); err != nil {
		return fmt.Errorf("decode snapshot entry %s: %w", e.ID, err)
	}
	return nil
}

func readSnapshot(path string) ([]snapshotEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var entries []snapshotEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", errCorruptSnapshot, err)
	}
	return entries, nil
}

// writeSnapshot replaces path atomically: the data goes to a temp file in the
// same directory, is synced, then renamed over the old snapshot.
func writeSnapshot(path string, entries []snapshotEntry) error {
	if entries == nil {
		entries = []snapshotEntry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot failed: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp snapshot failed: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write temp snapshot failed: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync temp snapshot failed: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp snapshot failed: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		cleanup()
		return fmt.Errorf("rename snapshot failed: %w", err)
	}

	// Directory fsync is not supported everywhere; the rename already happened.
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}
