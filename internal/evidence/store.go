package evidence

import (
	"context"
	"crypto/sha256"
	"sync"
)

// Store accepts a sanitization proof blob and returns its content hash. The
// production deployment backs this with an IPFS pinning service; the core only
// depends on the hash it returns.
type Store interface {
	Put(ctx context.Context, blob []byte) (string, error)
}

// InMemoryStore is a deterministic content-addressed store for tests and local
// development. Hashes are shaped like CIDv0 so they pass ValidHash.
type InMemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{blobs: make(map[string][]byte)}
}

func (s *InMemoryStore) Put(_ context.Context, blob []byte) (string, error) {
	hash := hashBlob(blob)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[hash] = append([]byte(nil), blob...)
	return hash, nil
}

// Get returns a stored blob, primarily for test assertions.
func (s *InMemoryStore) Get(hash string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	blob, ok := s.blobs[hash]
	return blob, ok
}

// hashBlob derives a CIDv0-shaped identifier from blob content. This is not a
// real multihash encoding; it only needs to be stable and format-valid.
func hashBlob(blob []byte) string {
	sum := sha256.Sum256(blob)
	out := make([]byte, 0, 46)
	out = append(out, 'Q', 'm')
	for i := 0; len(out) < 46; i++ {
		out = append(out, base58Alphabet[int(sum[i%len(sum)])%len(base58Alphabet)])
	}
	return string(out)
}
