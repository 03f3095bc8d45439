package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rajivgeraev/barter-api/internal/models"
)

// UserStore — доступ к профилям пользователей. Хранилище профилей — внешняя
// подсистема, ядру нужны только отображаемые данные и факт существования.
type UserStore struct {
	db DBTX
}

// NewUserStore создает новый экземпляр UserStore
func NewUserStore(db DBTX) *UserStore {
	return &UserStore{db: db}
}

// Get возвращает пользователя или (nil, nil), если его нет
func (s *UserStore) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := s.db.QueryRow(ctx, `
        SELECT id, username, first_name, last_name, avatar_url, country
        FROM users
        WHERE id = $1 AND is_active = true
    `, id).Scan(
		&user.ID,
		&user.Username,
		&user.FirstName,
		&user.LastName,
		&user.AvatarURL,
		&user.Country,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, storageErr("Ошибка получения пользователя", err)
	}
	return &user, nil
}
