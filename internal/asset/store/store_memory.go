package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"ecotrace/internal/asset/models"
	"ecotrace/pkg/sentinel"
)

// InMemory is the test and local-development store. Writes copy records in
// both directions so callers never alias internal state.
type InMemory struct {
	mu       sync.RWMutex
	assets   map[uuid.UUID]*models.Asset
	bySerial map[string]uuid.UUID
}

func NewInMemory() *InMemory {
	return &InMemory{
		assets:   make(map[uuid.UUID]*models.Asset),
		bySerial: make(map[string]uuid.UUID),
	}
}

func (s *InMemory) Get(_ context.Context, id uuid.UUID) (*models.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	asset, ok := s.assets[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return asset.Clone(), nil
}

func (s *InMemory) GetBySerial(_ context.Context, serial string) (*models.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.bySerial[normalizeSerial(serial)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.assets[id].Clone(), nil
}

func (s *InMemory) Create(_ context.Context, asset *models.Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := normalizeSerial(asset.SerialNumber)
	if _, exists := s.bySerial[key]; exists {
		return sentinel.ErrConflict
	}
	if _, exists := s.assets[asset.ID]; exists {
		return sentinel.ErrConflict
	}
	s.assets[asset.ID] = asset.Clone()
	s.bySerial[key] = asset.ID
	return nil
}

func (s *InMemory) Update(_ context.Context, asset *models.Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.assets[asset.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if current.Version != asset.Version {
		return sentinel.ErrVersionMismatch
	}
	next := asset.Clone()
	next.Version++
	s.assets[asset.ID] = next
	asset.Version = next.Version
	return nil
}

func (s *InMemory) List(_ context.Context, limit, offset int) ([]*models.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make([]*models.Asset, 0, len(s.assets))
	for _, asset := range s.assets {
		all = append(all, asset.Clone())
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].RegistrationTime.Before(all[j].RegistrationTime)
	})
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (s *InMemory) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.assets), nil
}

// normalizeSerial gives serial uniqueness a case-insensitive key, matching the
// unique index on the Postgres store.
func normalizeSerial(serial string) string {
	return strings.ToLower(strings.TrimSpace(serial))
}
