package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/prajwallshetty/ClientX/backend/model"
)

// ContractStore is an in-memory ContractRepository. Records are deep-copied
// on the way in and out so callers never share state with the store.
type ContractStore struct {
	contracts map[string]*model.Contract
	mu        sync.RWMutex
	now       func() time.Time
}

// NewContractStore returns an empty in-memory store.
func NewContractStore() *ContractStore {
	return &ContractStore{
		contracts: make(map[string]*model.Contract),
		now:       time.Now,
	}
}

func (s *ContractStore) Create(ctx context.Context, c *model.Contract) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.contracts[c.ID]; exists {
		return fmt.Errorf("contract %s already exists", c.ID)
	}
	c.UpdatedAt = s.now()
	s.contracts[c.ID] = c.Clone()
	return nil
}

func (s *ContractStore) Get(ctx context.Context, id, workspaceID string) (*model.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.contracts[id]
	if !ok || c.WorkspaceID != workspaceID {
		return nil, ErrNotFound
	}
	return c.Clone(), nil
}

// ListByWorkspace returns the workspace's contracts, newest first.
func (s *ContractStore) ListByWorkspace(ctx context.Context, workspaceID string) ([]*model.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*model.Contract, 0)
	for _, c := range s.contracts {
		if c.WorkspaceID == workspaceID {
			result = append(result, c.Clone())
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (s *ContractStore) Update(ctx context.Context, c *model.Contract) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.contracts[c.ID]
	if !ok || stored.WorkspaceID != c.WorkspaceID {
		return ErrNotFound
	}
	if stored.Version != c.Version {
		return ErrVersionConflict
	}
	c.Version++
	c.UpdatedAt = s.now()
	s.contracts[c.ID] = c.Clone()
	return nil
}

// Count returns the number of contracts in the store
func (s *ContractStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.contracts)
}
