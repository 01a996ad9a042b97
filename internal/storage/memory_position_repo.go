package storage

import (
	"context"
	"fmt"
	"sync"
)

// MemoryPositionRepo реализует PositionRepo в памяти.
// Используется как fallback, когда MariaDB и Redis недоступны,
// или для CI/локальной разработки без БД.
// ВНИМАНИЕ: Данные теряются при перезапуске сервера!
type MemoryPositionRepo struct {
	mu   sync.RWMutex
	data map[uint64]Position // userID -> позиция
}

// NewMemoryPositionRepo создает новый репозиторий позиций в памяти.
func NewMemoryPositionRepo() *MemoryPositionRepo {
	return &MemoryPositionRepo{
		data: make(map[uint64]Position),
	}
}

// Save сохраняет позицию участника в памяти.
func (r *MemoryPositionRepo) Save(ctx context.Context, userID uint64, pos Position) error {
	if err := validatePosition(userID, pos); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.data[userID] = pos
	return nil
}

// Load загружает позицию участника из памяти.
func (r *MemoryPositionRepo) Load(ctx context.Context, userID uint64) (Position, bool, error) {
	if userID == 0 {
		return Position{}, false, fmt.Errorf("недействительный userID: %d", userID)
	}

	select {
	case <-ctx.Done():
		return Position{}, false, ctx.Err()
	default:
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	pos, exists := r.data[userID]
	return pos, exists, nil
}

// Delete удаляет сохраненную позицию участника из памяти.
func (r *MemoryPositionRepo) Delete(ctx context.Context, userID uint64) error {
	if userID == 0 {
		return fmt.Errorf("недействительный userID: %d", userID)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.data[userID]; !exists {
		return fmt.Errorf("позиция для пользователя %d не найдена", userID)
	}

	delete(r.data, userID)
	return nil
}

// BatchSave сохраняет позиции нескольких участников в памяти.
func (r *MemoryPositionRepo) BatchSave(ctx context.Context, positions map[uint64]Position) error {
	if len(positions) == 0 {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	// Валидация всех записей перед сохранением
	for userID, pos := range positions {
		if err := validatePosition(userID, pos); err != nil {
			return fmt.Errorf("batch: %w", err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for userID, pos := range positions {
		r.data[userID] = pos
	}
	return nil
}

// GetAllPositions возвращает копию всех сохраненных позиций (для отладки).
func (r *MemoryPositionRepo) GetAllPositions() map[uint64]Position {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[uint64]Position, len(r.data))
	for userID, pos := range r.data {
		result[userID] = pos
	}
	return result
}

// Count возвращает количество сохраненных позиций.
func (r *MemoryPositionRepo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.data)
}

// Clear очищает все сохраненные позиции (для тестов).
func (r *MemoryPositionRepo) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data = make(map[uint64]Position)
}
