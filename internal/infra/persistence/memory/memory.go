// Package memory provides an in-process implementation of the persistence
// ports. It backs integration tests and local development without PostgreSQL.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"fanpulse/internal/domain/entity"
	domainerrors "fanpulse/internal/domain/errors"
	"fanpulse/internal/domain/repository"

	"github.com/google/uuid"
)

// Store holds all records behind a single mutex. The transaction manager
// serializes callbacks on the same lock, which gives the same observable
// atomicity as the database-backed implementation for this data set.
type Store struct {
	mu     sync.Mutex
	users  map[uuid.UUID]*entity.User
	tokens map[string]*entity.RefreshToken
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		users:  make(map[uuid.UUID]*entity.User),
		tokens: make(map[string]*entity.RefreshToken),
	}
}

// NewTransactionManager returns a TransactionManager over the store.
func NewTransactionManager(store *Store) repository.TransactionManager {
	return &txManager{store: store}
}

// UserRepo returns a repository view over the store for direct (non-transactional) use.
func (s *Store) UserRepo() repository.UserRepository {
	return &userRepo{store: s, locked: false}
}

// RefreshTokenRepo returns a repository view over the store for direct use.
func (s *Store) RefreshTokenRepo() repository.RefreshTokenRepository {
	return &tokenRepo{store: s, locked: false}
}

type txManager struct {
	store *Store
}

func (tm *txManager) Execute(_ context.Context, fn func(repoFactory repository.RepositoryFactory) error) error {
	tm.store.mu.Lock()
	defer tm.store.mu.Unlock()

	// Repositories created here run under the already-held lock.
	return fn(&lockedFactory{store: tm.store})
}

type lockedFactory struct {
	store *Store
}

func (f *lockedFactory) UserRepo() repository.UserRepository {
	return &userRepo{store: f.store, locked: true}
}

func (f *lockedFactory) RefreshTokenRepo() repository.RefreshTokenRepository {
	return &tokenRepo{store: f.store, locked: true}
}

type userRepo struct {
	store  *Store
	locked bool
}

func (r *userRepo) lock() func() {
	if r.locked {
		return func() {}
	}
	r.store.mu.Lock()

	return r.store.mu.Unlock
}

func (r *userRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	defer r.lock()()

	user, ok := r.store.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cloned := *user

	return &cloned, nil
}

func (r *userRepo) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	defer r.lock()()

	for _, user := range r.store.users {
		if strings.EqualFold(user.Email, email) {
			cloned := *user

			return &cloned, nil
		}
	}

	return nil, repository.ErrUserNotFound
}

func (r *userRepo) Create(_ context.Context, user *entity.User) error {
	defer r.lock()()

	for _, existing := range r.store.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return domainerrors.ErrUserAlreadyExists
		}
	}

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	cloned := *user
	r.store.users[user.ID] = &cloned

	return nil
}

type tokenRepo struct {
	store  *Store
	locked bool
}

func (r *tokenRepo) lock() func() {
	if r.locked {
		return func() {}
	}
	r.store.mu.Lock()

	return r.store.mu.Unlock
}

func (r *tokenRepo) CreateRefreshToken(_ context.Context, token *entity.RefreshToken) error {
	defer r.lock()()

	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	token.CreatedAt = time.Now()

	cloned := *token
	r.store.tokens[token.Token] = &cloned

	return nil
}

func (r *tokenRepo) FindRefreshTokenByToken(_ context.Context, token string) (*entity.RefreshToken, error) {
	defer r.lock()()

	record, ok := r.store.tokens[token]
	if !ok {
		return nil, repository.ErrRefreshTokenNotFound
	}
	cloned := *record

	return &cloned, nil
}

func (r *tokenRepo) InvalidateRefreshToken(_ context.Context, token string) error {
	defer r.lock()()

	record, ok := r.store.tokens[token]
	if !ok {
		return repository.ErrRefreshTokenNotFound
	}
	if record.Invalidated {
		return repository.ErrRefreshTokenAlreadyInvalidated
	}
	record.Invalidated = true

	return nil
}

func (r *tokenRepo) InvalidateRefreshTokensByUserID(_ context.Context, userID uuid.UUID) (int, error) {
	defer r.lock()()

	count := 0
	for _, record := range r.store.tokens {
		if record.UserID == userID && !record.Invalidated {
			record.Invalidated = true
			count++
		}
	}

	return count, nil
}

func (r *tokenRepo) DeleteExpiredRefreshTokens(_ context.Context) error {
	defer r.lock()()

	now := time.Now()
	for key, record := range r.store.tokens {
		if record.ExpiresAt.Before(now) {
			delete(r.store.tokens, key)
		}
	}

	return nil
}
