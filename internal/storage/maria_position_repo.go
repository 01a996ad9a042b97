package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
)

// MariaPositionRepo реализует PositionRepo для базы данных MariaDB/MySQL.
// Использует таблицу participant_positions.
type MariaPositionRepo struct {
	db *sql.DB
}

const upsertPositionQuery = `
	INSERT INTO participant_positions (user_id, tile_x, tile_y, scale)
	VALUES (?, ?, ?, ?)
	ON DUPLICATE KEY UPDATE
		tile_x = VALUES(tile_x),
		tile_y = VALUES(tile_y),
		scale = VALUES(scale),
		updated_at = CURRENT_TIMESTAMP
`

// NewMariaPositionRepo создает репозиторий позиций для MariaDB.
// dsn - строка подключения (user:pass@tcp(host:port)/dbname).
// Таблица создается автоматически, если ее нет.
func NewMariaPositionRepo(dsn string) (*MariaPositionRepo, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("не удалось подключиться к MariaDB: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось проверить соединение с MariaDB: %w", err)
	}

	repo := &MariaPositionRepo{db: db}
	if err := repo.createTable(); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось создать таблицу: %w", err)
	}

	return repo, nil
}

func (r *MariaPositionRepo) createTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS participant_positions (
			user_id    BIGINT UNSIGNED PRIMARY KEY,
			tile_x     INT             NOT NULL,
			tile_y     INT             NOT NULL,
			scale      DOUBLE          NOT NULL DEFAULT 1,
			updated_at TIMESTAMP       DEFAULT CURRENT_TIMESTAMP
			           ON UPDATE       CURRENT_TIMESTAMP,
			INDEX idx_updated_at (updated_at)
		) ENGINE=InnoDB
	`

	if _, err := r.db.Exec(query); err != nil {
		return fmt.Errorf("ошибка создания таблицы participant_positions: %w", err)
	}
	return nil
}

// Save сохраняет позицию участника (INSERT ... ON DUPLICATE KEY UPDATE).
func (r *MariaPositionRepo) Save(ctx context.Context, userID uint64, pos Position) error {
	if err := validatePosition(userID, pos); err != nil {
		return err
	}

	_, err := r.db.ExecContext(ctx, upsertPositionQuery, userID, pos.TileX, pos.TileY, pos.Scale)
	if err != nil {
		return fmt.Errorf("ошибка сохранения позиции для пользователя %d: %w", userID, err)
	}
	return nil
}

// Load загружает позицию участника из базы данных.
func (r *MariaPositionRepo) Load(ctx context.Context, userID uint64) (Position, bool, error) {
	if userID == 0 {
		return Position{}, false, fmt.Errorf("недействительный userID: %d", userID)
	}

	query := `SELECT tile_x, tile_y, scale FROM participant_positions WHERE user_id = ?`

	var pos Position
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&pos.TileX, &pos.TileY, &pos.Scale)
	if err == sql.ErrNoRows {
		// Первый вход пользователя
		return Position{}, false, nil
	}
	if err != nil {
		return Position{}, false, fmt.Errorf("ошибка загрузки позиции для пользователя %d: %w", userID, err)
	}

	return pos, true, nil
}

// Delete удаляет сохраненную позицию участника.
func (r *MariaPositionRepo) Delete(ctx context.Context, userID uint64) error {
	if userID == 0 {
		return fmt.Errorf("недействительный userID: %d", userID)
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM participant_positions WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("ошибка удаления позиции для пользователя %d: %w", userID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ошибка получения количества затронутых строк: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("позиция для пользователя %d не найдена", userID)
	}
	return nil
}

// BatchSave сохраняет позиции нескольких участников в одной транзакции.
func (r *MariaPositionRepo) BatchSave(ctx context.Context, positions map[uint64]Position) error {
	if len(positions) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertPositionQuery)
	if err != nil {
		return fmt.Errorf("ошибка подготовки запроса: %w", err)
	}
	defer stmt.Close()

	for userID, pos := range positions {
		if err := validatePosition(userID, pos); err != nil {
			return fmt.Errorf("batch: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, userID, pos.TileX, pos.TileY, pos.Scale); err != nil {
			return fmt.Errorf("ошибка сохранения позиции для пользователя %d в batch: %w", userID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}
	return nil
}

// Close закрывает соединение с базой данных.
func (r *MariaPositionRepo) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}
