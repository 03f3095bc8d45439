package messaging

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rajivgeraev/barter-api/internal/apperrors"
	"github.com/rajivgeraev/barter-api/internal/models"
)

// defaultThreadLimit ограничивает выборку сообщений за один запрос
const defaultThreadLimit = 50

// ConversationResolver находит или создает диалог для тройки идентичности
type ConversationResolver interface {
	Resolve(ctx context.Context, callerID, otherID uuid.UUID, contextType models.ContextType, contextID string) (*models.Conversation, error)
	VerifyParticipant(ctx context.Context, conversationID, callerID uuid.UUID) (*models.Conversation, error)
}

// ConversationStore — чтение диалогов пользователя
type ConversationStore interface {
	ListForUser(ctx context.Context, userID uuid.UUID, contextType *models.ContextType, includeArchived bool) ([]models.Conversation, error)
}

// MessageStore — операции над сообщениями
type MessageStore interface {
	Append(ctx context.Context, msg *models.Message) error
	ListThread(ctx context.Context, conversationID uuid.UUID, limit int, before *time.Time) ([]models.Message, error)
	MarkRead(ctx context.Context, conversationID, userID uuid.UUID) (int64, error)
	UnreadTotal(ctx context.Context, userID uuid.UUID) (int, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Message, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

// MetadataStore — пользовательские метаданные диалогов
type MetadataStore interface {
	SetArchived(ctx context.Context, conversationID, userID uuid.UUID, archived bool) error
	SetMuted(ctx context.Context, conversationID, userID uuid.UUID, muted bool) error
}

// UserStore — данные профилей для отображения и проверки получателя
type UserStore interface {
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Notifier — канал realtime-уведомлений. Вызывается после успешной записи;
// сбой доставки не влияет на результат операции.
type Notifier interface {
	NewMessage(conv *models.Conversation, msg *models.Message)
	MessagesRead(conversationID, readerID, otherID uuid.UUID, count int64)
	UnreadCount(userID uuid.UUID, count int)
}

// Service реализует операции обмена сообщениями поверх хранилищ и резолвера
type Service struct {
	resolver      ConversationResolver
	conversations ConversationStore
	messages      MessageStore
	metadata      MetadataStore
	users         UserStore
	notifier      Notifier
}

// NewService создает новый экземпляр Service
func NewService(
	resolver ConversationResolver,
	conversations ConversationStore,
	messages MessageStore,
	metadata MetadataStore,
	users UserStore,
	notifier Notifier,
) *Service {
	return &Service{
		resolver:      resolver,
		conversations: conversations,
		messages:      messages,
		metadata:      metadata,
		users:         users,
		notifier:      notifier,
	}
}

// SendInput — параметры отправки сообщения
type SendInput struct {
	RecipientID    uuid.UUID
	Content        string
	ContextType    models.ContextType
	ContextID      string
	ConversationID *uuid.UUID
}

// Send проверяет и сохраняет сообщение, при необходимости создавая диалог.
// Возвращает сохраненное сообщение с серверным id и временем, чтобы клиент
// сверил оптимистичную локальную копию.
func (s *Service) Send(ctx context.Context, senderID uuid.UUID, in SendInput) (*models.Message, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, apperrors.ErrEmptyContent
	}

	var conv *models.Conversation
	var err error

	if in.ConversationID != nil {
		// Быстрый путь по известному диалогу: проверяем участие вызывающего,
		// получателя выводим из пары участников
		conv, err = s.resolver.VerifyParticipant(ctx, *in.ConversationID, senderID)
		if err != nil {
			return nil, err
		}
		other := conv.OtherParticipant(senderID)
		if in.RecipientID != uuid.Nil && in.RecipientID != other {
			return nil, apperrors.Validation("Получатель не является участником указанного диалога")
		}
		in.RecipientID = other
	} else {
		if senderID == in.RecipientID {
			return nil, apperrors.ErrSelfMessage
		}
		recipient, err := s.users.Get(ctx, in.RecipientID)
		if err != nil {
			return nil, err
		}
		if recipient == nil {
			return nil, apperrors.ErrRecipientNotFound
		}

		conv, err = s.resolver.Resolve(ctx, senderID, in.RecipientID, in.ContextType, in.ContextID)
		if err != nil {
			return nil, err
		}
	}

	msg := &models.Message{
		ID:             uuid.New(),
		ConversationID: conv.ID,
		SenderID:       senderID,
		RecipientID:    in.RecipientID,
		Content:        content,
		CreatedAt:      time.Now(),
	}

	if err := s.messages.Append(ctx, msg); err != nil {
		return nil, err
	}

	if sender, err := s.users.Get(ctx, senderID); err == nil {
		msg.Sender = sender
	}

	// Уведомления идут после фиксации записи и не влияют на результат
	s.notifier.NewMessage(conv, msg)
	if count, err := s.messages.UnreadTotal(ctx, in.RecipientID); err == nil {
		s.notifier.UnreadCount(in.RecipientID, count)
	}

	return msg, nil
}

// Thread возвращает неудаленные сообщения диалога в хронологическом порядке
// (от старых к новым) и признак наличия более старых страниц
func (s *Service) Thread(ctx context.Context, callerID, conversationID uuid.UUID, limit int, before *time.Time) ([]models.Message, bool, error) {
	if _, err := s.resolver.VerifyParticipant(ctx, conversationID, callerID); err != nil {
		return nil, false, err
	}

	if limit <= 0 || limit > defaultThreadLimit {
		limit = defaultThreadLimit
	}

	// Скан идет от новых к старым ради пагинации
	messages, err := s.messages.ListThread(ctx, conversationID, limit, before)
	if err != nil {
		return nil, false, err
	}
	hasMore := len(messages) == limit

	// Разворачиваем в хронологический порядок
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, hasMore, nil
}

// MarkRead проставляет время прочтения всем сообщениям диалога, адресованным
// вызывающему. Идемпотентна: повторный вызов возвращает 0.
func (s *Service) MarkRead(ctx context.Context, callerID, conversationID uuid.UUID) (int64, error) {
	conv, err := s.resolver.VerifyParticipant(ctx, conversationID, callerID)
	if err != nil {
		return 0, err
	}

	count, err := s.messages.MarkRead(ctx, conversationID, callerID)
	if err != nil {
		return 0, err
	}

	s.notifier.MessagesRead(conversationID, callerID, conv.OtherParticipant(callerID), count)
	if total, err := s.messages.UnreadTotal(ctx, callerID); err == nil {
		s.notifier.UnreadCount(callerID, total)
	}

	return count, nil
}

// UnreadTotal возвращает суммарное число непрочитанных сообщений вызывающего
func (s *Service) UnreadTotal(ctx context.Context, callerID uuid.UUID) (int, error) {
	return s.messages.UnreadTotal(ctx, callerID)
}

// ListConversations возвращает диалоги вызывающего по убыванию активности
// с данными второго участника. Архивные исключаются, если не запрошены.
func (s *Service) ListConversations(ctx context.Context, callerID uuid.UUID, contextType string, includeArchived bool) ([]models.Conversation, error) {
	var filter *models.ContextType
	if contextType != "" {
		ct := models.ContextType(contextType)
		if !ct.IsValid() {
			return nil, apperrors.ErrBadContextType
		}
		filter = &ct
	}

	conversations, err := s.conversations.ListForUser(ctx, callerID, filter, includeArchived)
	if err != nil {
		return nil, err
	}

	for i := range conversations {
		otherID := conversations[i].OtherParticipant(callerID)
		if other, err := s.users.Get(ctx, otherID); err == nil {
			conversations[i].OtherUser = other
		}
	}

	return conversations, nil
}

// SetArchived архивирует диалог или возвращает его из архива только для
// вызывающего; второй участник своего представления не теряет
func (s *Service) SetArchived(ctx context.Context, callerID, conversationID uuid.UUID, archived bool) error {
	if _, err := s.resolver.VerifyParticipant(ctx, conversationID, callerID); err != nil {
		return err
	}
	return s.metadata.SetArchived(ctx, conversationID, callerID, archived)
}

// SetMuted включает или выключает беззвучный режим диалога для вызывающего
func (s *Service) SetMuted(ctx context.Context, callerID, conversationID uuid.UUID, muted bool) error {
	if _, err := s.resolver.VerifyParticipant(ctx, conversationID, callerID); err != nil {
		return err
	}
	return s.metadata.SetMuted(ctx, conversationID, callerID, muted)
}

// DeleteMessage помечает сообщение удаленным. Доступно только отправителю.
func (s *Service) DeleteMessage(ctx context.Context, callerID, messageID uuid.UUID) error {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.SenderID != callerID {
		return apperrors.ErrNotMessageSender
	}
	if msg.Deleted {
		// Удаление одностороннее и идемпотентное
		return nil
	}
	return s.messages.SoftDelete(ctx, messageID)
}
