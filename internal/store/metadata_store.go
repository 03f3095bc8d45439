package store

import (
	"context"

	"github.com/google/uuid"
)

// MetadataStore — пользовательские метаданные диалогов. Строки создаются
// лениво при первом архивировании или отключении уведомлений.
type MetadataStore struct {
	db DBTX
}

// NewMetadataStore создает новый экземпляр MetadataStore
func NewMetadataStore(db DBTX) *MetadataStore {
	return &MetadataStore{db: db}
}

// SetArchived помечает диалог архивным или возвращает его из архива
// только для этого пользователя
func (s *MetadataStore) SetArchived(ctx context.Context, conversationID, userID uuid.UUID, archived bool) error {
	_, err := s.db.Exec(ctx, `
        INSERT INTO conversation_metadata (conversation_id, user_id, archived, muted)
        VALUES ($1, $2, $3, false)
        ON CONFLICT (conversation_id, user_id)
        DO UPDATE SET archived = EXCLUDED.archived
    `, conversationID, userID, archived)
	if err != nil {
		return storageErr("Ошибка обновления метаданных диалога", err)
	}
	return nil
}

// SetMuted включает или выключает беззвучный режим диалога для пользователя
func (s *MetadataStore) SetMuted(ctx context.Context, conversationID, userID uuid.UUID, muted bool) error {
	_, err := s.db.Exec(ctx, `
        INSERT INTO conversation_metadata (conversation_id, user_id, archived, muted)
        VALUES ($1, $2, false, $3)
        ON CONFLICT (conversation_id, user_id)
        DO UPDATE SET muted = EXCLUDED.muted
    `, conversationID, userID, muted)
	if err != nil {
		return storageErr("Ошибка обновления метаданных диалога", err)
	}
	return nil
}
