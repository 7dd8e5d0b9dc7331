package account

import (
	"context"
	"errors"
	"fmt"

	"socialapi/internal/models"
	"socialapi/internal/storage"
)

var (
	// ErrUsernameTaken is returned when registering a username that already exists.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrInvalidCredentials covers both an unknown username and a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Store is the account persistence the service needs.
type Store interface {
	List(ctx context.Context) ([]models.Account, error)
	FindByUsername(ctx context.Context, username string) (*models.Account, error)
	FindByID(ctx context.Context, id int64) (*models.Account, error)
	Insert(ctx context.Context, account models.Account) (*models.Account, error)
	ListMessages(ctx context.Context, accountID int64) ([]models.Message, error)
}

// Service applies the registration and login rules around the account store.
type Service struct {
	store Store
}

// NewService builds an account service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Register creates the account unless the username is already in use.
// The lookup and the insert are separate statements; the unique index on
// username rejects whichever concurrent insert loses.
func (s *Service) Register(ctx context.Context, candidate models.Account) (*models.Account, error) {
	_, err := s.store.FindByUsername(ctx, candidate.Username)
	switch {
	case err == nil:
		return nil, ErrUsernameTaken
	case !errors.Is(err, storage.ErrNotFound):
		return nil, fmt.Errorf("check username: %w", err)
	}

	created, err := s.store.Insert(ctx, models.Account{
		Username: candidate.Username,
		Password: candidate.Password,
	})
	if err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("register account: %w", err)
	}
	return created, nil
}

// Authenticate returns the stored account when username and password match exactly.
// Passwords are compared as plain strings.
func (s *Service) Authenticate(ctx context.Context, candidate models.Account) (*models.Account, error) {
	stored, err := s.store.FindByUsername(ctx, candidate.Username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	if stored.Password != candidate.Password {
		return nil, ErrInvalidCredentials
	}
	return stored, nil
}

// FindByID returns storage.ErrNotFound for unknown ids.
func (s *Service) FindByID(ctx context.Context, id int64) (*models.Account, error) {
	return s.store.FindByID(ctx, id)
}

// ListAccounts returns every account ordered by id.
func (s *Service) ListAccounts(ctx context.Context) ([]models.Account, error) {
	return s.store.List(ctx)
}

// ListMessagesFor returns the messages posted by accountID, possibly none.
func (s *Service) ListMessagesFor(ctx context.Context, accountID int64) ([]models.Message, error) {
	return s.store.ListMessages(ctx, accountID)
}
