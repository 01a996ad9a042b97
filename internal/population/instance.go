package population

import (
	"fmt"

	"github.com/yuribrpr/anima-mmorpg-sub000/internal/vec"
)

// State - состояние экземпляра существа
type State int

const (
	StateDespawned State = iota
	StateIdle
	StateMoving
	StateChase
	StateFlee
	StateDying
)

func (s State) String() string {
	switch s {
	case StateDespawned:
		return "despawned"
	case StateIdle:
		return "idle"
	case StateMoving:
		return "moving"
	case StateChase:
		return "chase"
	case StateFlee:
		return "flee"
	case StateDying:
		return "dying"
	default:
		return "unknown"
	}
}

// Spawned сообщает, что экземпляр присутствует в мире и занимает тайл
func (s State) Spawned() bool {
	return s != StateDespawned
}

// Alive сообщает, что экземпляр может двигаться, атаковать и получать урон
func (s State) Alive() bool {
	return s != StateDespawned && s != StateDying
}

// Instance - один экземпляр существа группы.
// Dest совпадает с Tile, пока экземпляр не находится в переходе между тайлами.
type Instance struct {
	ID      string `json:"id"`
	GroupID string `json:"groupId"`
	Ordinal int    `json:"ordinal"`

	State  State      `json:"state"`
	Tile   vec.Vec2   `json:"tile"`
	Dest   vec.Vec2   `json:"dest"`
	Facing int        `json:"facing"`
	Path   []vec.Vec2 `json:"path,omitempty"`

	HP    int `json:"hp"`
	MaxHP int `json:"maxHp"`

	NextDecisionAt int64 `json:"nextDecisionAt"`
	MoveStartedAt  int64 `json:"moveStartedAt"`
	ArriveAt       int64 `json:"arriveAt"`
	RespawnAt      int64 `json:"respawnAt"`
	DiedAt         int64 `json:"diedAt"`
	LastAttackAt   int64 `json:"lastAttackAt"`
	AggroUntil     int64 `json:"aggroUntil"`
	UpdatedAt      int64 `json:"updatedAt"`
}

// InstanceID формирует идентификатор экземпляра: <groupID>#<порядковый номер>
func InstanceID(groupID string, ordinal int) string {
	return fmt.Sprintf("%s#%d", groupID, ordinal)
}

// InTransit сообщает, что экземпляр переходит на соседний тайл
func (i *Instance) InTransit() bool {
	return i.Dest != i.Tile
}

// Occupies сообщает, что экземпляр занимает тайл (текущий или целевой)
func (i *Instance) Occupies(t vec.Vec2) bool {
	if !i.State.Spawned() {
		return false
	}
	return i.Tile == t || i.Dest == t
}

// RenderAt возвращает интерполированную позицию для отрисовки
func (i *Instance) RenderAt(now int64) vec.Vec2Float {
	if !i.InTransit() || i.ArriveAt <= i.MoveStartedAt {
		return vec.FromVec2(i.Tile)
	}
	t := float64(now-i.MoveStartedAt) / float64(i.ArriveAt-i.MoveStartedAt)
	return vec.Lerp(i.Tile, i.Dest, t)
}

// Snapshot - публичный вид экземпляра
type Snapshot struct {
	ID        string `json:"id"`
	GroupID   string `json:"groupId"`
	TileX     int    `json:"tileX"`
	TileY     int    `json:"tileY"`
	Facing    int    `json:"facing"`
	Spawned   bool   `json:"spawned"`
	UpdatedAt int64  `json:"updatedAt"`
}

// Snapshot возвращает публичный вид экземпляра
func (i *Instance) Snapshot() Snapshot {
	return Snapshot{
		ID:        i.ID,
		GroupID:   i.GroupID,
		TileX:     i.Tile.X,
		TileY:     i.Tile.Y,
		Facing:    i.Facing,
		Spawned:   i.State.Spawned(),
		UpdatedAt: i.UpdatedAt,
	}
}
