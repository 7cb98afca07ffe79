// Package audit keeps an append-only, hash-chained trail of every
// mutation the engine performs: ingests, retractions, link creation,
// promotions, and snapshot writes. Events are never hard-deleted, so
// the trail is the authoritative record of why a row looks the way it
// does.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrEntryNotFound = errors.New("audit entry not found")
	ErrChainBroken   = errors.New("audit hash chain is broken")
)

// EntryType categorizes trail entries.
type EntryType string

const (
	EntryIngest      EntryType = "ingest"
	EntryRetraction  EntryType = "retraction"
	EntryLinkCreated EntryType = "link_created"
	EntryPromotion   EntryType = "promotion"
	EntrySnapshot    EntryType = "snapshot"
)

// Entry is a single immutable record in the trail.
type Entry struct {
	EntryID      string            `json:"entry_id"`
	Sequence     uint64            `json:"sequence"`
	Timestamp    time.Time         `json:"timestamp"`
	EntryType    EntryType         `json:"entry_type"`
	Subject      string            `json:"subject"` // event id, link id, publisher, or snapshot day
	Action       string            `json:"action"`
	Payload      json.RawMessage   `json:"payload"`
	PayloadHash  string            `json:"payload_hash"`
	PreviousHash string            `json:"previous_hash"`
	EntryHash    string            `json:"entry_hash"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// Trail is an append-only audit log with hash chaining.
type Trail struct {
	mu        sync.RWMutex
	entries   []*Entry
	entryByID map[string]*Entry
	sequence  uint64
	chainHead string
	clock     func() time.Time
}

// NewTrail creates an empty trail.
func NewTrail() *Trail {
	return &Trail{
		entryByID: make(map[string]*Entry),
		chainHead: "genesis",
		clock:     time.Now,
	}
}

// WithClock overrides the clock for deterministic testing.
func (t *Trail) WithClock(clock func() time.Time) *Trail {
	t.clock = clock
	return t
}

// Append adds a new entry to the trail.
func (t *Trail) Append(entryType EntryType, subject, action string, payload any, metadata map[string]string) (*Entry, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize audit payload: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.sequence++
	entry := &Entry{
		EntryID:      uuid.New().String(),
		Sequence:     t.sequence,
		Timestamp:    t.clock().UTC(),
		EntryType:    entryType,
		Subject:      subject,
		Action:       action,
		Payload:      payloadBytes,
		PayloadHash:  computeHash(payloadBytes),
		PreviousHash: t.chainHead,
		Metadata:     metadata,
	}

	entryHash, err := computeEntryHash(entry)
	if err != nil {
		t.sequence--
		return nil, fmt.Errorf("failed to compute entry hash: %w", err)
	}
	entry.EntryHash = entryHash
	t.chainHead = entryHash

	t.entries = append(t.entries, entry)
	t.entryByID[entry.EntryID] = entry
	return entry, nil
}

// Get retrieves an entry by ID.
func (t *Trail) Get(entryID string) (*Entry, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	entry, ok := t.entryByID[entryID]
	if !ok {
		return nil, ErrEntryNotFound
	}
	return entry, nil
}

// BySubject returns all entries for a subject, in append order.
func (t *Trail) BySubject(subject string) []*Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []*Entry
	for _, e := range t.entries {
		if e.Subject == subject {
			out = append(out, e)
		}
	}
	return out
}

// Len returns the number of entries.
func (t *Trail) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// ChainHead returns the current head hash.
func (t *Trail) ChainHead() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.chainHead
}

// VerifyChain checks the integrity of the full hash chain.
func (t *Trail) VerifyChain() error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	expectedPrev := "genesis"
	for i, entry := range t.entries {
		if entry.PreviousHash != expectedPrev {
			return fmt.Errorf("%w: entry %d previous hash mismatch", ErrChainBroken, i)
		}
		recomputed, err := computeEntryHash(entry)
		if err != nil {
			return err
		}
		if recomputed != entry.EntryHash {
			return fmt.Errorf("%w: entry %d hash mismatch", ErrChainBroken, i)
		}
		expectedPrev = entry.EntryHash
	}
	return nil
}

func computeHash(data []byte) string {
	sum := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(sum[:])
}

func computeEntryHash(entry *Entry) (string, error) {
	hashable := struct {
		Sequence     uint64    `json:"sequence"`
		Timestamp    time.Time `json:"timestamp"`
		EntryType    EntryType `json:"entry_type"`
		Subject      string    `json:"subject"`
		Action       string    `json:"action"`
		PayloadHash  string    `json:"payload_hash"`
		PreviousHash string    `json:"previous_hash"`
	}{
		Sequence:     entry.Sequence,
		Timestamp:    entry.Timestamp,
		EntryType:    entry.EntryType,
		Subject:      entry.Subject,
		Action:       entry.Action,
		PayloadHash:  entry.PayloadHash,
		PreviousHash: entry.PreviousHash,
	}

	data, err := json.Marshal(hashable)
	if err != nil {
		return "", fmt.Errorf("failed to marshal entry for hashing: %w", err)
	}
	return computeHash(data), nil
}
