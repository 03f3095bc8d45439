package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rajivgeraev/barter-api/internal/apperrors"
	"github.com/rajivgeraev/barter-api/internal/models"
)

// MessageStore — хранилище сообщений
type MessageStore struct {
	db DBTX
}

// NewMessageStore создает новый экземпляр MessageStore
func NewMessageStore(db DBTX) *MessageStore {
	return &MessageStore{db: db}
}

// Append добавляет сообщение и в той же транзакции обновляет превью
// последнего сообщения диалога
func (s *MessageStore) Append(ctx context.Context, msg *models.Message) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return storageErr("Ошибка начала транзакции", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
        INSERT INTO messages (id, conversation_id, sender_id, recipient_id, content, created_at, read_at, deleted)
        VALUES ($1, $2, $3, $4, $5, $6, NULL, false)
    `, msg.ID, msg.ConversationID, msg.SenderID, msg.RecipientID, msg.Content, msg.CreatedAt)
	if err != nil {
		return storageErr("Ошибка сохранения сообщения", err)
	}

	_, err = tx.Exec(ctx, `
        UPDATE conversations
        SET last_message_text = $1, last_message_at = $2, updated_at = $2
        WHERE id = $3
    `, msg.Content, msg.CreatedAt, msg.ConversationID)
	if err != nil {
		return storageErr("Ошибка обновления информации о диалоге", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return storageErr("Ошибка фиксации транзакции", err)
	}
	return nil
}

// ListThread возвращает неудаленные сообщения диалога не новее before
// (строго старше), от новых к старым, не более limit штук. Сервис
// разворачивает срез в хронологический порядок.
func (s *MessageStore) ListThread(ctx context.Context, conversationID uuid.UUID, limit int, before *time.Time) ([]models.Message, error) {
	rows, err := s.db.Query(ctx, `
        SELECT id, conversation_id, sender_id, recipient_id, content, created_at, read_at
        FROM messages
        WHERE conversation_id = $1 AND deleted = false
          AND ($2::timestamptz IS NULL OR created_at < $2)
        ORDER BY created_at DESC
        LIMIT $3
    `, conversationID, before, limit)
	if err != nil {
		return nil, storageErr("Ошибка запроса сообщений", err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(
			&msg.ID,
			&msg.ConversationID,
			&msg.SenderID,
			&msg.RecipientID,
			&msg.Content,
			&msg.CreatedAt,
			&msg.ReadAt,
		); err != nil {
			return nil, storageErr("Ошибка сканирования сообщения", err)
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, storageErr("Ошибка чтения сообщений", err)
	}
	return messages, nil
}

// MarkRead проставляет время прочтения всем непрочитанным сообщениям,
// адресованным пользователю в диалоге. Повторный вызов ничего не меняет
// и возвращает 0: read_at выставляется однократно.
func (s *MessageStore) MarkRead(ctx context.Context, conversationID, userID uuid.UUID) (int64, error) {
	tag, err := s.db.Exec(ctx, `
        UPDATE messages
        SET read_at = NOW()
        WHERE conversation_id = $1 AND recipient_id = $2 AND read_at IS NULL
    `, conversationID, userID)
	if err != nil {
		return 0, storageErr("Ошибка обновления статуса прочтения", err)
	}
	return tag.RowsAffected(), nil
}

// UnreadTotal возвращает число непрочитанных неудаленных сообщений
// пользователя по всем диалогам
func (s *MessageStore) UnreadTotal(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := s.db.QueryRow(ctx, `
        SELECT COUNT(*)
        FROM messages
        WHERE recipient_id = $1 AND read_at IS NULL AND deleted = false
    `, userID).Scan(&count)
	if err != nil {
		return 0, storageErr("Ошибка подсчета непрочитанных", err)
	}
	return count, nil
}

// GetByID возвращает сообщение по идентификатору
func (s *MessageStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Message, error) {
	var msg models.Message
	err := s.db.QueryRow(ctx, `
        SELECT id, conversation_id, sender_id, recipient_id, content, created_at, read_at, deleted
        FROM messages
        WHERE id = $1
    `, id).Scan(
		&msg.ID,
		&msg.ConversationID,
		&msg.SenderID,
		&msg.RecipientID,
		&msg.Content,
		&msg.CreatedAt,
		&msg.ReadAt,
		&msg.Deleted,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrMessageNotFound
		}
		return nil, storageErr("Ошибка получения сообщения", err)
	}
	return &msg, nil
}

// SoftDelete помечает сообщение удаленным. Обратного перехода нет.
func (s *MessageStore) SoftDelete(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.Exec(ctx, `
        UPDATE messages SET deleted = true WHERE id = $1
    `, id)
	if err != nil {
		return storageErr("Ошибка удаления сообщения", err)
	}
	return nil
}
