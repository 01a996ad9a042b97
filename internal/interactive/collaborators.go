package interactive

import (
	"context"

	"github.com/yuribrpr/anima-mmorpg-sub000/internal/presence"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/storage"
)

// Inventory - внешний инвентарь участника
type Inventory interface {
	Collect(ctx context.Context, itemID string, quantity int) error
}

// PositionSaver - периодическое сохранение позиции участника
type PositionSaver interface {
	Save(ctx context.Context, userID uint64, pos storage.Position) error
}

type resultKind int

const (
	resultCollect resultKind = iota
	resultSave
	resultPresence
)

// asyncResult - результат внешнего вызова, применяемый на следующем шаге
type asyncResult struct {
	kind   resultKind
	dropID string
	peers  []presence.Peer
	err    error
}
