package message

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"socialapi/internal/models"
	"socialapi/internal/storage"
)

// ErrPosterNotFound is returned when posted_by does not reference an account.
var ErrPosterNotFound = errors.New("poster account not found")

// Store is the message persistence the service needs.
type Store interface {
	List(ctx context.Context) ([]models.Message, error)
	FindByID(ctx context.Context, id int64) (*models.Message, error)
	Insert(ctx context.Context, msg models.Message) (*models.Message, error)
	Delete(ctx context.Context, id int64) (*models.Message, error)
	UpdateText(ctx context.Context, id int64, text string) (*models.Message, error)
}

// Service passes message operations through to the store, keeping the
// optional read cache coherent.
//
// Reads fill the cache only if no delete or update finished while they were
// in flight; gen counts finished writes and is guarded by mu.
type Service struct {
	store Store
	cache Cache

	mu  sync.Mutex
	gen uint64
}

// NewService builds a message service. A nil cache disables caching.
func NewService(store Store, cache Cache) *Service {
	if cache == nil {
		cache = noopCache{}
	}
	return &Service{store: store, cache: cache}
}

// Create stores a new message. Text and poster are validated by the caller.
func (s *Service) Create(ctx context.Context, msg models.Message) (*models.Message, error) {
	created, err := s.store.Insert(ctx, models.Message{
		PostedBy:        msg.PostedBy,
		Text:            msg.Text,
		TimePostedEpoch: msg.TimePostedEpoch,
	})
	if err != nil {
		if errors.Is(err, storage.ErrForeignKey) {
			return nil, ErrPosterNotFound
		}
		return nil, fmt.Errorf("create message: %w", err)
	}
	return created, nil
}

func (s *Service) List(ctx context.Context) ([]models.Message, error) {
	return s.store.List(ctx)
}

// FindByID returns storage.ErrNotFound for unknown ids.
func (s *Service) FindByID(ctx context.Context, id int64) (*models.Message, error) {
	if msg, ok := s.cache.Get(ctx, id); ok {
		return msg, nil
	}
	seen := s.generation()
	msg, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.fill(ctx, msg, seen)
	return msg, nil
}

// Delete returns the removed message, or storage.ErrNotFound if there was none.
func (s *Service) Delete(ctx context.Context, id int64) (*models.Message, error) {
	msg, err := s.store.Delete(ctx, id)
	s.evict(ctx, id)
	return msg, err
}

// UpdateText returns the updated message, or storage.ErrNotFound if there was none.
// The cache entry is dropped rather than replaced so concurrent updates cannot
// leave an older text behind.
func (s *Service) UpdateText(ctx context.Context, id int64, text string) (*models.Message, error) {
	msg, err := s.store.UpdateText(ctx, id, text)
	s.evict(ctx, id)
	if err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *Service) generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

func (s *Service) fill(ctx context.Context, msg *models.Message, seen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != seen {
		return
	}
	s.cache.Put(ctx, msg)
}

func (s *Service) evict(ctx context.Context, id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.cache.Invalidate(ctx, id)
}
