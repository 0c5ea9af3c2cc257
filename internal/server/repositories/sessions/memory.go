package sessions

import (
	"context"
	"sort"
	"sync"

	"github.com/dmitrijs2005/uploadbroker/internal/common"
	"github.com/dmitrijs2005/uploadbroker/internal/server/models"
)

// MemoryRepository keeps sessions in a map for the lifetime of the process.
type MemoryRepository struct {
	mu       sync.RWMutex
	sessions map[string]*models.UploadSession
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{sessions: make(map[string]*models.UploadSession)}
}

func (r *MemoryRepository) Get(ctx context.Context, id string) (*models.UploadSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, common.NotFound("upload session %s not found", id)
	}
	return s.Clone(), nil
}

func (r *MemoryRepository) Put(ctx context.Context, s *models.UploadSession) error {
	if s == nil || s.ID == "" {
		return common.Validation("session id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[s.ID] = s.Clone()
	return nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; !ok {
		return common.NotFound("upload session %s not found", id)
	}
	delete(r.sessions, id)
	return nil
}

// List returns matching sessions ordered by creation time, oldest first.
func (r *MemoryRepository) List(ctx context.Context, f Filter) ([]*models.UploadSession, error) {
	r.mu.RLock()
	result := make([]*models.UploadSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		if f.Matches(s) {
			result = append(result, s.Clone())
		}
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// Len returns the number of stored sessions.
func (r *MemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
