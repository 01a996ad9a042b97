package interactive

import (
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/combat"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/presence"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/vec"
)

// ParticipantView - состояние участника для отрисовки
type ParticipantView struct {
	UserID      uint64        `json:"userId"`
	DisplayName string        `json:"displayName"`
	Tile        vec.Vec2      `json:"tile"`
	Render      vec.Vec2Float `json:"render"`
	Facing      int           `json:"facing"`
	HP          int           `json:"hp"`
	MaxHP       int           `json:"maxHp"`
	TargetID    string        `json:"targetId,omitempty"`
}

// CreatureView - состояние существа для отрисовки
type CreatureView struct {
	ID      string        `json:"id"`
	GroupID string        `json:"groupId"`
	Name    string        `json:"name"`
	State   string        `json:"state"`
	Tile    vec.Vec2      `json:"tile"`
	Render  vec.Vec2Float `json:"render"`
	Facing  int           `json:"facing"`
	HP      int           `json:"hp"`
	MaxHP   int           `json:"maxHp"`
	Aggro   bool          `json:"aggro"`
}

// View - покадровое состояние симуляции
type View struct {
	WorldID     string              `json:"worldId"`
	Now         int64               `json:"now"`
	Participant ParticipantView     `json:"participant"`
	Creatures   []CreatureView      `json:"creatures"`
	Drops       []combat.GroundDrop `json:"drops"`
	Peers       []presence.Peer     `json:"peers"`
	Notices     []Notice            `json:"notices"`
}

// View собирает состояние на момент последнего шага.
// Деспавненные существа и подбираемые предметы не показываются.
func (s *Simulator) View() View {
	now := s.now
	p := s.participant

	v := View{
		WorldID: s.worldID,
		Now:     now,
		Participant: ParticipantView{
			UserID:      p.UserID,
			DisplayName: p.DisplayName,
			Tile:        p.Tile,
			Render:      p.RenderAt(now),
			Facing:      p.Facing,
			HP:          p.HP,
			MaxHP:       p.MaxHP,
			TargetID:    p.TargetID,
		},
		Creatures: make([]CreatureView, 0, len(s.registry.Instances)),
		Drops:     make([]combat.GroundDrop, 0, len(s.drops)),
		Peers:     append([]presence.Peer(nil), s.peers...),
		Notices:   append([]Notice(nil), s.notices...),
	}

	for _, inst := range s.registry.Instances {
		if !inst.State.Spawned() {
			continue
		}
		name := ""
		if g := s.registry.GroupOf(inst); g != nil {
			name = g.Archetype.Name
		}
		v.Creatures = append(v.Creatures, CreatureView{
			ID:      inst.ID,
			GroupID: inst.GroupID,
			Name:    name,
			State:   inst.State.String(),
			Tile:    inst.Tile,
			Render:  inst.RenderAt(now),
			Facing:  inst.Facing,
			HP:      inst.HP,
			MaxHP:   inst.MaxHP,
			Aggro:   inst.AggroUntil > now,
		})
	}
	for _, d := range s.drops {
		if !d.collecting {
			v.Drops = append(v.Drops, d.GroundDrop)
		}
	}
	return v
}
