package storage

import (
	"context"
	"fmt"
)

// Position - сохраняемая позиция участника в мире
type Position struct {
	TileX int     `json:"tileX"`
	TileY int     `json:"tileY"`
	Scale float64 `json:"scale"` // Масштаб спрайта участника
}

// PositionRepo определяет интерфейс для сохранения и загрузки позиций участников.
// Позиции привязаны к UserID (постоянный идентификатор аккаунта), поэтому
// переживают перезапуск клиента.
type PositionRepo interface {
	// Save сохраняет позицию участника.
	Save(ctx context.Context, userID uint64, pos Position) error

	// Load загружает позицию. bool = false, если позиция еще не сохранялась (первый вход).
	Load(ctx context.Context, userID uint64) (Position, bool, error)

	// Delete удаляет сохраненную позицию (для тестов или сброса).
	Delete(ctx context.Context, userID uint64) error

	// BatchSave сохраняет позиции нескольких участников одновременно.
	BatchSave(ctx context.Context, positions map[uint64]Position) error
}

// validatePosition проверяет входные данные перед записью
func validatePosition(userID uint64, pos Position) error {
	if userID == 0 {
		return fmt.Errorf("недействительный userID: %d", userID)
	}
	if pos.TileX < 0 || pos.TileY < 0 {
		return fmt.Errorf("недействительный тайл (%d,%d) для пользователя %d", pos.TileX, pos.TileY, userID)
	}
	if pos.Scale < 0 {
		return fmt.Errorf("недействительный масштаб %.2f для пользователя %d", pos.Scale, userID)
	}
	return nil
}
