package storage

import (
	"context"
	"slices"
	"sync"

	"github.com/rodneyosodo/hypcluster/pkg/errors"
)

type inMemoryStorage[T any] struct {
	sync.Mutex

	data  map[string]T
	order []string
}

func NewInMemoryStorage[T any]() Storage[T] {
	return &inMemoryStorage[T]{
		data: make(map[string]T),
	}
}

func (s *inMemoryStorage[T]) Create(_ context.Context, key string, value T) error {
	if key == "" {
		return errors.ErrEmptyKey
	}

	s.Lock()
	defer s.Unlock()

	if _, ok := s.data[key]; ok {
		return errors.ErrEntityExists
	}

	s.data[key] = value
	s.order = append(s.order, key)

	return nil
}

func (s *inMemoryStorage[T]) Get(_ context.Context, key string) (T, error) {
	var zero T
	if key == "" {
		return zero, errors.ErrEmptyKey
	}

	s.Lock()
	defer s.Unlock()

	if val, ok := s.data[key]; ok {
		return val, nil
	}

	return zero, errors.ErrNotFound
}

func (s *inMemoryStorage[T]) Update(_ context.Context, key string, value T) error {
	if key == "" {
		return errors.ErrEmptyKey
	}

	s.Lock()
	defer s.Unlock()

	if _, ok := s.data[key]; !ok {
		return errors.ErrNotFound
	}

	s.data[key] = value

	return nil
}

func (s *inMemoryStorage[T]) List(_ context.Context, offset, limit uint64) ([]T, uint64, error) {
	s.Lock()
	defer s.Unlock()

	total := uint64(len(s.order))
	if offset >= total {
		return nil, total, nil
	}

	end := offset + limit
	if end > total {
		end = total
	}

	result := make([]T, 0, end-offset)
	for _, key := range s.order[offset:end] {
		result = append(result, s.data[key])
	}

	return result, total, nil
}

func (s *inMemoryStorage[T]) Delete(_ context.Context, key string) error {
	if key == "" {
		return errors.ErrEmptyKey
	}

	s.Lock()
	defer s.Unlock()

	delete(s.data, key)
	if i := slices.Index(s.order, key); i >= 0 {
		s.order = slices.Delete(s.order, i, i+1)
	}

	return nil
}
