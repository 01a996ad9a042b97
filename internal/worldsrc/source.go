// Package worldsrc загружает конфигурацию миров из внешних источников:
// каталога YAML-файлов, MongoDB или памяти процесса.
package worldsrc

import (
	"context"
	"errors"
	"sync"

	"github.com/yuribrpr/anima-mmorpg-sub000/internal/population"
)

// ErrWorldNotFound - мир с таким идентификатором неизвестен источнику
var ErrWorldNotFound = errors.New("мир не найден")

// Source - источник конфигурации миров
type Source interface {
	// LastModified возвращает метку последнего изменения мира (мс). Она же - версия.
	LastModified(ctx context.Context, worldID string) (int64, error)
	// Load возвращает полную конфигурацию мира
	Load(ctx context.Context, worldID string) (*population.WorldConfig, error)
}

// MemorySource хранит конфигурации миров в памяти (демо-режим и тесты)
type MemorySource struct {
	mu     sync.RWMutex
	worlds map[string]*population.WorldConfig
	loads  int
}

// NewMemorySource создает пустой источник
func NewMemorySource() *MemorySource {
	return &MemorySource{worlds: make(map[string]*population.WorldConfig)}
}

// Put добавляет или заменяет мир. Версия берется из cfg.Version.
func (m *MemorySource) Put(cfg *population.WorldConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.worlds[cfg.ID] = cfg
}

// LastModified возвращает версию мира
func (m *MemorySource) LastModified(ctx context.Context, worldID string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cfg, ok := m.worlds[worldID]
	if !ok {
		return 0, ErrWorldNotFound
	}
	return cfg.Version, nil
}

// Load возвращает конфигурацию мира
func (m *MemorySource) Load(ctx context.Context, worldID string) (*population.WorldConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg, ok := m.worlds[worldID]
	if !ok {
		return nil, ErrWorldNotFound
	}
	m.loads++
	return cfg, nil
}

// Loads возвращает число полных загрузок конфигурации
func (m *MemorySource) Loads() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loads
}
