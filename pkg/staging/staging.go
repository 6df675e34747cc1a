package staging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/getvaultapp/vault-verify/pkg/compression"
	"github.com/getvaultapp/vault-verify/pkg/document"
	"github.com/getvaultapp/vault-verify/pkg/hashing"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const DefaultTTL = 15 * time.Minute

var (
	ErrStageNotFound = errors.New("staged document not found or expired")
	ErrHashMismatch  = errors.New("staged document no longer matches its hash")
)

// Staged describes a selected document waiting for confirmation
type Staged struct {
	ID          string
	FileName    string
	ContentType string
	Size        int
	Hash        string
	// Preview is a data URI for images, empty otherwise.
	Preview   string
	ExpiresAt time.Time
}

type entry struct {
	doc    Staged
	packed []byte
}

// Area holds selected documents in memory, compressed, until they are
// uploaded or expire. Safe for concurrent use.
type Area struct {
	mu       sync.Mutex
	entries  map[string]entry
	ttl      time.Duration
	maxBytes int64
	codec    compression.Compressor
	now      func() time.Time
	logger   *zap.Logger
}

// NewArea returns an empty staging area. maxBytes <= 0 means no size limit.
func NewArea(ttl time.Duration, maxBytes int64, logger *zap.Logger) *Area {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Area{
		entries:  make(map[string]entry),
		ttl:      ttl,
		maxBytes: maxBytes,
		codec:    compression.LZ4{},
		now:      time.Now,
		logger:   logger,
	}
}

// Put hashes data and stores it under a fresh id
func (a *Area) Put(name string, data []byte) (Staged, error) {
	if name == "" || len(data) == 0 {
		return Staged{}, document.ErrMissingFile
	}
	if err := document.CheckExtension(name); err != nil {
		return Staged{}, err
	}
	if err := document.CheckSize(int64(len(data)), a.maxBytes); err != nil {
		return Staged{}, err
	}

	packed, err := a.codec.Compress(data)
	if err != nil {
		return Staged{}, fmt.Errorf("failed to stage document: %w", err)
	}

	doc := Staged{
		ID:          uuid.New().String(),
		FileName:    name,
		ContentType: document.ContentType(data),
		Size:        len(data),
		Hash:        hashing.ContentHash(data),
		Preview:     document.Preview(data),
		ExpiresAt:   a.now().Add(a.ttl),
	}

	a.mu.Lock()
	a.entries[doc.ID] = entry{doc: doc, packed: packed}
	a.mu.Unlock()

	a.logger.Debug("Document staged", zap.String("stage_id", doc.ID), zap.String("file", name), zap.Int("size", doc.Size))
	return doc, nil
}

// Get returns the staged document and its original bytes. The document
// stays staged so it can be sent again.
func (a *Area) Get(id string) (Staged, []byte, error) {
	a.mu.Lock()
	e, ok := a.entries[id]
	if ok && !a.now().Before(e.doc.ExpiresAt) {
		delete(a.entries, id)
		ok = false
	}
	a.mu.Unlock()

	if !ok {
		return Staged{}, nil, ErrStageNotFound
	}

	data, err := a.codec.Decompress(e.packed)
	if err != nil {
		return Staged{}, nil, fmt.Errorf("failed to read staged document: %w", err)
	}
	if hashing.ContentHash(data) != e.doc.Hash {
		return Staged{}, nil, ErrHashMismatch
	}
	return e.doc, data, nil
}

// Lookup returns the staged document metadata without touching the bytes
func (a *Area) Lookup(id string) (Staged, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	e, ok := a.entries[id]
	if !ok || !a.now().Before(e.doc.ExpiresAt) {
		return Staged{}, false
	}
	return e.doc, true
}

func (a *Area) Remove(id string) {
	a.mu.Lock()
	delete(a.entries, id)
	a.mu.Unlock()
}

func (a *Area) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}

// Sweep drops every document expired at now and returns how many went
func (a *Area) Sweep(now time.Time) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	removed := 0
	for id, e := range a.entries {
		if !now.Before(e.doc.ExpiresAt) {
			delete(a.entries, id)
			removed++
		}
	}
	return removed
}

// Run sweeps expired documents every interval until ctx is done
func (a *Area) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.Sweep(a.now()); n > 0 {
				a.logger.Info("Expired staged documents removed", zap.Int("count", n))
			}
		}
	}
}
