package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rajivgeraev/barter-api/internal/apperrors"
	"github.com/rajivgeraev/barter-api/internal/models"
)

// ConversationStore — хранилище диалогов
type ConversationStore struct {
	db DBTX
}

// NewConversationStore создает новый экземпляр ConversationStore
func NewConversationStore(db DBTX) *ConversationStore {
	return &ConversationStore{db: db}
}

const conversationColumns = `id, participant_low, participant_high, context_type, context_id,
       created_at, updated_at, last_message_text, last_message_at`

func scanConversation(row pgx.Row) (*models.Conversation, error) {
	var conv models.Conversation
	err := row.Scan(
		&conv.ID,
		&conv.ParticipantLow,
		&conv.ParticipantHigh,
		&conv.ContextType,
		&conv.ContextID,
		&conv.CreatedAt,
		&conv.UpdatedAt,
		&conv.LastMessageText,
		&conv.LastMessageAt,
	)
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// FindByTriple ищет диалог по тройке идентичности. Пара участников
// нормализуется, поэтому порядок аргументов не важен. Возвращает (nil, nil),
// если диалога нет.
func (s *ConversationStore) FindByTriple(ctx context.Context, userA, userB uuid.UUID, contextType models.ContextType, contextID string) (*models.Conversation, error) {
	low, high := models.NormalizePair(userA, userB)

	conv, err := scanConversation(s.db.QueryRow(ctx, `
        SELECT `+conversationColumns+`
        FROM conversations
        WHERE participant_low = $1 AND participant_high = $2
          AND context_type = $3 AND context_id = $4
    `, low, high, contextType, contextID))

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, storageErr("Ошибка поиска диалога", err)
	}
	return conv, nil
}

// Create вставляет новый диалог. Конкурирующая вставка той же тройки
// завершается ErrConversationExists за счет уникального индекса.
func (s *ConversationStore) Create(ctx context.Context, conv *models.Conversation) error {
	_, err := s.db.Exec(ctx, `
        INSERT INTO conversations (id, participant_low, participant_high, context_type, context_id,
                                   created_at, updated_at, last_message_text, last_message_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `, conv.ID, conv.ParticipantLow, conv.ParticipantHigh, conv.ContextType, conv.ContextID,
		conv.CreatedAt, conv.UpdatedAt, conv.LastMessageText, conv.LastMessageAt)

	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrConversationExists
		}
		return storageErr("Ошибка создания диалога", err)
	}
	return nil
}

// GetByID возвращает диалог по идентификатору
func (s *ConversationStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	conv, err := scanConversation(s.db.QueryRow(ctx, `
        SELECT `+conversationColumns+`
        FROM conversations
        WHERE id = $1
    `, id))

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrConversationNotFound
		}
		return nil, storageErr("Ошибка получения диалога", err)
	}
	return conv, nil
}

// FindAnyBetween возвращает любой диалог между двумя участниками независимо
// от контекста — деградированный запасной путь резолвера. (nil, nil), если нет.
func (s *ConversationStore) FindAnyBetween(ctx context.Context, userA, userB uuid.UUID) (*models.Conversation, error) {
	low, high := models.NormalizePair(userA, userB)

	conv, err := scanConversation(s.db.QueryRow(ctx, `
        SELECT `+conversationColumns+`
        FROM conversations
        WHERE participant_low = $1 AND participant_high = $2
        ORDER BY created_at ASC
        LIMIT 1
    `, low, high))

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, storageErr("Ошибка поиска диалога пары", err)
	}
	return conv, nil
}

// ListForUser возвращает диалоги пользователя по убыванию последней активности
// с его счетчиками непрочитанного и метаданными. Архивные исключаются, если
// includeArchived не запрошен. Для контекста place подтягивается имя места.
func (s *ConversationStore) ListForUser(ctx context.Context, userID uuid.UUID, contextType *models.ContextType, includeArchived bool) ([]models.Conversation, error) {
	rows, err := s.db.Query(ctx, `
        SELECT c.id, c.participant_low, c.participant_high, c.context_type, c.context_id,
               c.created_at, c.updated_at, c.last_message_text, c.last_message_at,
               COALESCE(md.archived, false), COALESCE(md.muted, false),
               (SELECT COUNT(*) FROM messages m
                 WHERE m.conversation_id = c.id AND m.recipient_id = $1
                   AND m.read_at IS NULL AND m.deleted = false) AS unread_count,
               CASE WHEN c.context_type = 'place'
                    THEN (SELECT p.name FROM places p WHERE p.id::text = c.context_id)
               END AS context_name
        FROM conversations c
        LEFT JOIN conversation_metadata md
               ON md.conversation_id = c.id AND md.user_id = $1
        WHERE (c.participant_low = $1 OR c.participant_high = $1)
          AND ($2::text IS NULL OR c.context_type = $2)
          AND ($3::boolean OR COALESCE(md.archived, false) = false)
        ORDER BY COALESCE(c.last_message_at, c.created_at) DESC
    `, userID, contextType, includeArchived)

	if err != nil {
		return nil, storageErr("Ошибка запроса диалогов", err)
	}
	defer rows.Close()

	var conversations []models.Conversation
	for rows.Next() {
		var conv models.Conversation
		var contextName *string

		if err := rows.Scan(
			&conv.ID,
			&conv.ParticipantLow,
			&conv.ParticipantHigh,
			&conv.ContextType,
			&conv.ContextID,
			&conv.CreatedAt,
			&conv.UpdatedAt,
			&conv.LastMessageText,
			&conv.LastMessageAt,
			&conv.Archived,
			&conv.Muted,
			&conv.UnreadCount,
			&contextName,
		); err != nil {
			return nil, storageErr("Ошибка сканирования диалога", err)
		}

		if contextName != nil {
			conv.ContextName = *contextName
		}
		conversations = append(conversations, conv)
	}

	if err := rows.Err(); err != nil {
		return nil, storageErr("Ошибка чтения диалогов", err)
	}
	return conversations, nil
}
