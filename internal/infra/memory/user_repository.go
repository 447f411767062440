// Package memory provides map-backed Repository implementations. They
// honor the same sentinel errors as the Postgres implementations and
// back the application-service tests.
package memory

import (
	"context"
	"sync"
	"time"

	"second_saturday/internal/domain/user"
)

type UserRepository struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]user.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{nextID: 1, users: make(map[int64]user.User)}
}

func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.SubjectID == u.SubjectID {
			return user.ErrDuplicateSubjectID
		}
	}
	u.ID = r.nextID
	r.nextID++
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	u.UpdatedAt = u.CreatedAt
	r.users[u.ID] = *u
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return &u, nil
}

func (r *UserRepository) GetBySubjectID(ctx context.Context, subjectID string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.SubjectID == subjectID {
			u := u
			return &u, nil
		}
	}
	return nil, user.ErrNotFound
}

func (r *UserRepository) Update(ctx context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.ID]; !ok {
		return user.ErrNotFound
	}
	u.UpdatedAt = time.Now().UTC()
	r.users[u.ID] = *u
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return user.ErrNotFound
	}
	delete(r.users, id)
	return nil
}
