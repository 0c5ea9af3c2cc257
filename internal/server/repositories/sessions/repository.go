// Package sessions is the session registry: the only owner of upload
// session records. Every mutation of a session goes through a Repository.
package sessions

import (
	"context"

	"github.com/dmitrijs2005/uploadbroker/internal/server/models"
)

// Filter narrows List. Zero fields match everything.
type Filter struct {
	OwnerID string
	State   models.State
}

// Matches reports whether s passes the filter.
func (f Filter) Matches(s *models.UploadSession) bool {
	if f.OwnerID != "" && s.OwnerID != f.OwnerID {
		return false
	}
	if f.State != "" && s.State != f.State {
		return false
	}
	return true
}

// Repository stores sessions by ID. Implementations hand out copies, never
// references to their own records.
//
// Put is last-writer-wins: there is no compare-and-swap, so two concurrent
// mutations of the same session may overwrite each other.
type Repository interface {
	Get(ctx context.Context, id string) (*models.UploadSession, error)
	Put(ctx context.Context, s *models.UploadSession) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f Filter) ([]*models.UploadSession, error)
}
