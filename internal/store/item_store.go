package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rajivgeraev/barter-api/internal/models"
)

// ItemStore — доступ к вещам, участвующим в обменах. Само хранилище вещей —
// внешняя подсистема; ядро читает владельца и срез для отображения.
type ItemStore struct {
	db DBTX
}

// NewItemStore создает новый экземпляр ItemStore
func NewItemStore(db DBTX) *ItemStore {
	return &ItemStore{db: db}
}

// Get возвращает вещь или (nil, nil), если ее нет
func (s *ItemStore) Get(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	var item models.Item
	err := s.db.QueryRow(ctx, `
        SELECT id, user_id, title, status
        FROM items
        WHERE id = $1
    `, id).Scan(
		&item.ID,
		&item.OwnerID,
		&item.Title,
		&item.Status,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, storageErr("Ошибка получения вещи", err)
	}
	return &item, nil
}
