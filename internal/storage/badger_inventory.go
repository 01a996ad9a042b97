package storage

import (
	"context"
	"encoding/binary"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v3"
)

const inventoryKeyPrefix = "inv:"

// BadgerInventory - журнал инвентаря участника в BadgerDB.
// Ключ inv:<itemID>, значение - количество (uint64, big endian).
type BadgerInventory struct {
	db      *badger.DB
	dbPath  string
	mutex   sync.RWMutex
	isReady bool
}

// NewBadgerInventory открывает (или создает) журнал инвентаря в dataPath/inventory
func NewBadgerInventory(dataPath string) (*BadgerInventory, error) {
	dbPath := filepath.Join(dataPath, "inventory")
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil // Отключаем логирование BadgerDB

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	return &BadgerInventory{
		db:      db,
		dbPath:  dbPath,
		isReady: true,
	}, nil
}

// Close закрывает хранилище
func (b *BadgerInventory) Close() error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if !b.isReady {
		return nil
	}
	b.isReady = false
	return b.db.Close()
}

// Collect атомарно увеличивает количество предмета
func (b *BadgerInventory) Collect(ctx context.Context, itemID string, quantity int) error {
	if err := validateCollect(itemID, quantity); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mutex.RLock()
	defer b.mutex.RUnlock()
	if !b.isReady {
		return fmt.Errorf("хранилище не готово")
	}

	key := []byte(inventoryKeyPrefix + itemID)
	err := b.db.Update(func(txn *badger.Txn) error {
		var current uint64
		item, err := txn.Get(key)
		switch {
		case err == badger.ErrKeyNotFound:
		case err != nil:
			return err
		default:
			if err := item.Value(func(val []byte) error {
				if len(val) != 8 {
					return fmt.Errorf("повреждена запись %s", key)
				}
				current = binary.BigEndian.Uint64(val)
				return nil
			}); err != nil {
				return err
			}
		}

		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, current+uint64(quantity))
		return txn.Set(key, buf)
	})
	if err != nil {
		return fmt.Errorf("ошибка зачисления %s: %w", itemID, err)
	}
	return nil
}

// Quantity возвращает количество предмета (0, если его нет)
func (b *BadgerInventory) Quantity(itemID string) (int64, error) {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	if !b.isReady {
		return 0, fmt.Errorf("хранилище не готово")
	}

	var q int64
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(inventoryKeyPrefix + itemID))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			q = int64(binary.BigEndian.Uint64(val))
			return nil
		})
	})
	return q, err
}

// Items возвращает все предметы журнала в порядке ключей
func (b *BadgerInventory) Items() ([]InventoryItem, error) {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	if !b.isReady {
		return nil, fmt.Errorf("хранилище не готово")
	}

	items := make([]InventoryItem, 0)
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(inventoryKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			id := strings.TrimPrefix(string(item.Key()), inventoryKeyPrefix)
			if err := item.Value(func(val []byte) error {
				items = append(items, InventoryItem{ItemID: id, Quantity: int64(binary.BigEndian.Uint64(val))})
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	return items, err
}
