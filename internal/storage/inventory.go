package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// InventoryItem - строка инвентаря участника
type InventoryItem struct {
	ItemID   string `json:"itemId"`
	Quantity int64  `json:"quantity"`
}

func validateCollect(itemID string, quantity int) error {
	if itemID == "" {
		return fmt.Errorf("пустой идентификатор предмета")
	}
	if quantity <= 0 {
		return fmt.Errorf("недействительное количество %d для предмета %s", quantity, itemID)
	}
	return nil
}

// MemoryInventory - инвентарь в памяти. Данные теряются при перезапуске.
type MemoryInventory struct {
	mu    sync.RWMutex
	items map[string]int64

	// FailNext заставляет следующие N вызовов Collect вернуть ошибку (для тестов отката)
	FailNext int
}

// NewMemoryInventory создает пустой инвентарь в памяти
func NewMemoryInventory() *MemoryInventory {
	return &MemoryInventory{items: make(map[string]int64)}
}

// Collect зачисляет предмет в инвентарь
func (m *MemoryInventory) Collect(ctx context.Context, itemID string, quantity int) error {
	if err := validateCollect(itemID, quantity); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailNext > 0 {
		m.FailNext--
		return fmt.Errorf("инвентарь недоступен")
	}
	m.items[itemID] += int64(quantity)
	return nil
}

// Quantity возвращает количество предмета
func (m *MemoryInventory) Quantity(itemID string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.items[itemID]
}

// Items возвращает содержимое инвентаря, отсортированное по идентификатору
func (m *MemoryInventory) Items() []InventoryItem {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]InventoryItem, 0, len(m.items))
	for id, q := range m.items {
		out = append(out, InventoryItem{ItemID: id, Quantity: q})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })
	return out
}
