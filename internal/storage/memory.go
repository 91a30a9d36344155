package storage

import (
	"context"
	"sync"
)

// Memory keeps carts in process memory. Contents are lost on restart.
type Memory struct {
	m    sync.RWMutex
	data map[string]string
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

func (s *Memory) Get(_ context.Context, key string) (string, bool, error) {
	s.m.RLock()
	defer s.m.RUnlock()

	v, ok := s.data[key]
	return v, ok, nil
}

func (s *Memory) Set(_ context.Context, key, value string) error {
	s.m.Lock()
	defer s.m.Unlock()

	s.data[key] = value
	return nil
}

func (s *Memory) Close() error {
	return nil
}
