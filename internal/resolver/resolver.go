package resolver

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/rajivgeraev/barter-api/internal/apperrors"
	"github.com/rajivgeraev/barter-api/internal/models"
)

// Store — часть хранилища диалогов, нужная резолверу. Поиск по тройке
// возвращает (nil, nil) при отсутствии; Create обязан завершаться
// apperrors.ErrConversationExists при конкурирующей вставке той же тройки.
type Store interface {
	FindByTriple(ctx context.Context, userA, userB uuid.UUID, contextType models.ContextType, contextID string) (*models.Conversation, error)
	Create(ctx context.Context, conv *models.Conversation) error
	FindAnyBetween(ctx context.Context, userA, userB uuid.UUID) (*models.Conversation, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error)
}

// Resolver находит или создает единственный диалог для тройки идентичности
// (неупорядоченная пара участников, тип контекста, идентификатор контекста).
// Создание идемпотентно при любом числе конкурирующих вызовов.
type Resolver struct {
	store Store

	// fallbackEnabled разрешает деградированный поиск любого диалога пары
	// без учета контекста, если после проигранной гонки создание и повторный
	// поиск не дали результата. Срабатывание — сигнал о расхождении формы
	// ограничения уникальности с логической идентичностью.
	fallbackEnabled bool
}

// New создает новый экземпляр Resolver
func New(store Store, fallbackEnabled bool) *Resolver {
	return &Resolver{store: store, fallbackEnabled: fallbackEnabled}
}

// createAttempts ограничивает цикл «создать → проиграть гонку → перечитать»
const createAttempts = 2

// Resolve возвращает диалог для тройки идентичности, создавая его при
// необходимости. Пустой contextType означает personal; contextID
// нормализуется к пустой строке, null-представления не допускаются.
func (r *Resolver) Resolve(ctx context.Context, callerID, otherID uuid.UUID, contextType models.ContextType, contextID string) (*models.Conversation, error) {
	if callerID == otherID {
		return nil, apperrors.ErrSelfMessage
	}
	if contextType == "" {
		contextType = models.ContextPersonal
	}
	if !contextType.IsValid() {
		return nil, apperrors.ErrBadContextType
	}

	for attempt := 0; attempt < createAttempts; attempt++ {
		conv, err := r.store.FindByTriple(ctx, callerID, otherID, contextType, contextID)
		if err != nil {
			return nil, err
		}
		if conv != nil {
			return conv, nil
		}

		low, high := models.NormalizePair(callerID, otherID)
		now := time.Now()
		conv = &models.Conversation{
			ID:              uuid.New(),
			ParticipantLow:  low,
			ParticipantHigh: high,
			ContextType:     contextType,
			ContextID:       contextID,
			CreatedAt:       now,
			UpdatedAt:       now,
		}

		err = r.store.Create(ctx, conv)
		if err == nil {
			return conv, nil
		}
		if !errors.Is(err, apperrors.ErrConversationExists) {
			return nil, err
		}
		// Гонку выиграл конкурирующий вызов — перечитываем его строку
	}

	// Повторный поиск после конфликта ничего не нашел: ограничение
	// уникальности сработало по более узкому ключу, чем тройка идентичности
	if r.fallbackEnabled {
		conv, err := r.store.FindAnyBetween(ctx, callerID, otherID)
		if err != nil {
			return nil, err
		}
		if conv != nil {
			log.Printf("⚠️ Резолвер: деградированный возврат диалога %s для пары (%s, %s) вне контекста %s/%s",
				conv.ID, callerID, otherID, contextType, contextID)
			return conv, nil
		}
	}

	return nil, apperrors.Internal("Не удалось разрешить диалог после конфликта уникальности", apperrors.ErrConversationExists)
}

// VerifyParticipant — быстрый путь по известному идентификатору диалога.
// Перед записью проверяется, что вызывающий входит в пару участников,
// иначе возможна запись в чужой диалог.
func (r *Resolver) VerifyParticipant(ctx context.Context, conversationID, callerID uuid.UUID) (*models.Conversation, error) {
	conv, err := r.store.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(callerID) {
		return nil, apperrors.ErrNotParticipant
	}
	return conv, nil
}
