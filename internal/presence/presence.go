package presence

import (
	"context"
	"sort"
	"sync"
)

// StaleMs - запись присутствия старше этого возраста считается устаревшей
const StaleMs int64 = 20000

// Peer - другой участник, находящийся в том же мире
type Peer struct {
	UserID      uint64 `json:"userId"`
	TileX       int    `json:"tileX"`
	TileY       int    `json:"tileY"`
	Facing      int    `json:"facing"`
	DisplayName string `json:"displayName"`
	LastUpdate  int64  `json:"lastUpdate"` // мс
}

// Feed - источник присутствия других участников
type Feed interface {
	Poll(ctx context.Context) ([]Peer, error)
}

// Publisher - запись собственного присутствия
type Publisher interface {
	Publish(ctx context.Context, p Peer) error
}

// FilterFresh оставляет свежие записи чужих участников, отсортированные по UserID
func FilterFresh(peers []Peer, selfID uint64, now int64) []Peer {
	out := make([]Peer, 0, len(peers))
	for _, p := range peers {
		if p.UserID == selfID {
			continue
		}
		if now-p.LastUpdate > StaleMs {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// MemoryFeed - присутствие в памяти процесса
type MemoryFeed struct {
	mu    sync.RWMutex
	peers map[uint64]Peer

	// Err, если задан, возвращается из Poll (для тестов сбоев)
	Err error
}

// NewMemoryFeed создает пустую ленту присутствия
func NewMemoryFeed() *MemoryFeed {
	return &MemoryFeed{peers: make(map[uint64]Peer)}
}

// Publish записывает или обновляет участника
func (m *MemoryFeed) Publish(ctx context.Context, p Peer) error {
	m.mu.Lock()
	m.peers[p.UserID] = p
	m.mu.Unlock()
	return nil
}

// Remove удаляет участника
func (m *MemoryFeed) Remove(userID uint64) {
	m.mu.Lock()
	delete(m.peers, userID)
	m.mu.Unlock()
}

// Poll возвращает всех известных участников
func (m *MemoryFeed) Poll(ctx context.Context) ([]Peer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]Peer, 0, len(m.peers))
	for _, p := range m.peers {
		out = append(out, p)
	}
	return out, nil
}
