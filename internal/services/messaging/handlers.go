package messaging

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/rajivgeraev/barter-api/internal/apperrors"
	"github.com/rajivgeraev/barter-api/internal/db"
	"github.com/rajivgeraev/barter-api/internal/models"
)

// API — операции сервиса сообщений, нужные обработчикам
type API interface {
	Send(ctx context.Context, senderID uuid.UUID, in SendInput) (*models.Message, error)
	Thread(ctx context.Context, callerID, conversationID uuid.UUID, limit int, before *time.Time) ([]models.Message, bool, error)
	MarkRead(ctx context.Context, callerID, conversationID uuid.UUID) (int64, error)
	UnreadTotal(ctx context.Context, callerID uuid.UUID) (int, error)
	ListConversations(ctx context.Context, callerID uuid.UUID, contextType string, includeArchived bool) ([]models.Conversation, error)
	SetArchived(ctx context.Context, callerID, conversationID uuid.UUID, archived bool) error
	SetMuted(ctx context.Context, callerID, conversationID uuid.UUID, muted bool) error
	DeleteMessage(ctx context.Context, callerID, messageID uuid.UUID) error
}

// Handler обрабатывает HTTP-запросы API сообщений
type Handler struct {
	svc API
}

// NewHandler создает новый экземпляр Handler
func NewHandler(svc API) *Handler {
	return &Handler{svc: svc}
}

// callerID извлекает проверенный middleware идентификатор вызывающего
func callerID(c fiber.Ctx) (uuid.UUID, error) {
	userID, _ := c.Locals("userID").(string)
	id, err := uuid.Parse(userID)
	if err != nil {
		return uuid.Nil, apperrors.Unauthorized("Пользователь не авторизован")
	}
	return id, nil
}

// pathUUID разбирает UUID из параметра маршрута
func pathUUID(c fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, apperrors.Validation("Неверный формат идентификатора")
	}
	return id, nil
}

// SendMessage отправляет новое сообщение
func (h *Handler) SendMessage(c fiber.Ctx) error {
	senderID, err := callerID(c)
	if err != nil {
		return apperrors.Respond(c, err)
	}

	var requestData struct {
		RecipientID    string `json:"recipient_id"`
		Content        string `json:"content"`
		ContextType    string `json:"context_type"`
		ContextID      string `json:"context_id"`
		ConversationID string `json:"conversation_id"`
	}
	if err := c.Bind().Body(&requestData); err != nil {
		return apperrors.Respond(c, apperrors.Validation("Неверный формат данных"))
	}

	in := SendInput{
		Content:     requestData.Content,
		ContextType: models.ContextType(requestData.ContextType),
		ContextID:   requestData.ContextID,
	}

	if requestData.ConversationID != "" {
		convID, err := uuid.Parse(requestData.ConversationID)
		if err != nil {
			return apperrors.Respond(c, apperrors.Validation("Неверный формат ID диалога"))
		}
		in.ConversationID = &convID
	}
	if requestData.RecipientID != "" {
		recipientID, err := uuid.Parse(requestData.RecipientID)
		if err != nil {
			return apperrors.Respond(c, apperrors.Validation("Неверный формат ID получателя"))
		}
		in.RecipientID = recipientID
	}
	if in.ConversationID == nil && in.RecipientID == uuid.Nil {
		return apperrors.Respond(c, apperrors.Validation("ID получателя не указан"))
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	msg, err := h.svc.Send(ctx, senderID, in)
	if err != nil {
		return apperrors.Respond(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": msg,
		"success": true,
	})
}

// GetConversations возвращает список диалогов пользователя
func (h *Handler) GetConversations(c fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return apperrors.Respond(c, err)
	}

	contextType := c.Query("context_type")
	includeArchived := c.Query("include_archived") == "true"

	ctx, cancel := db.GetContext()
	defer cancel()

	conversations, err := h.svc.ListConversations(ctx, userID, contextType, includeArchived)
	if err != nil {
		return apperrors.Respond(c, err)
	}

	return c.JSON(fiber.Map{
		"conversations": conversations,
		"count":         len(conversations),
	})
}

// GetThread возвращает сообщения диалога с пагинацией от новых к старым
func (h *Handler) GetThread(c fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return apperrors.Respond(c, err)
	}
	conversationID, err := pathUUID(c, "id")
	if err != nil {
		return apperrors.Respond(c, err)
	}

	limit := fiber.Query(c, "limit", defaultThreadLimit)

	var before *time.Time
	if raw := c.Query("before"); raw != "" {
		parsed, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return apperrors.Respond(c, apperrors.Validation("Неверный формат курсора before"))
		}
		before = &parsed
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	messages, hasMore, err := h.svc.Thread(ctx, userID, conversationID, limit, before)
	if err != nil {
		return apperrors.Respond(c, err)
	}

	return c.JSON(fiber.Map{
		"messages": messages,
		"has_more": hasMore,
	})
}

// MarkRead отмечает все адресованные пользователю сообщения диалога прочитанными
func (h *Handler) MarkRead(c fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return apperrors.Respond(c, err)
	}
	conversationID, err := pathUUID(c, "id")
	if err != nil {
		return apperrors.Respond(c, err)
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	count, err := h.svc.MarkRead(ctx, userID, conversationID)
	if err != nil {
		return apperrors.Respond(c, err)
	}

	return c.JSON(fiber.Map{
		"marked":  count,
		"success": true,
	})
}

// GetUnreadCount возвращает суммарное число непрочитанных сообщений
func (h *Handler) GetUnreadCount(c fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return apperrors.Respond(c, err)
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	count, err := h.svc.UnreadTotal(ctx, userID)
	if err != nil {
		return apperrors.Respond(c, err)
	}

	return c.JSON(fiber.Map{"count": count})
}

// setArchived — общая часть архивирования и возврата из архива
func (h *Handler) setArchived(c fiber.Ctx, archived bool) error {
	userID, err := callerID(c)
	if err != nil {
		return apperrors.Respond(c, err)
	}
	conversationID, err := pathUUID(c, "id")
	if err != nil {
		return apperrors.Respond(c, err)
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	if err := h.svc.SetArchived(ctx, userID, conversationID, archived); err != nil {
		return apperrors.Respond(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// Archive архивирует диалог для вызывающего
func (h *Handler) Archive(c fiber.Ctx) error {
	return h.setArchived(c, true)
}

// Unarchive возвращает диалог из архива
func (h *Handler) Unarchive(c fiber.Ctx) error {
	return h.setArchived(c, false)
}

// setMuted — общая часть включения и выключения беззвучного режима
func (h *Handler) setMuted(c fiber.Ctx, muted bool) error {
	userID, err := callerID(c)
	if err != nil {
		return apperrors.Respond(c, err)
	}
	conversationID, err := pathUUID(c, "id")
	if err != nil {
		return apperrors.Respond(c, err)
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	if err := h.svc.SetMuted(ctx, userID, conversationID, muted); err != nil {
		return apperrors.Respond(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// Mute включает беззвучный режим диалога
func (h *Handler) Mute(c fiber.Ctx) error {
	return h.setMuted(c, true)
}

// Unmute выключает беззвучный режим диалога
func (h *Handler) Unmute(c fiber.Ctx) error {
	return h.setMuted(c, false)
}

// DeleteMessage помечает свое сообщение удаленным
func (h *Handler) DeleteMessage(c fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return apperrors.Respond(c, err)
	}
	messageID, err := pathUUID(c, "id")
	if err != nil {
		return apperrors.Respond(c, err)
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	if err := h.svc.DeleteMessage(ctx, userID, messageID); err != nil {
		return apperrors.Respond(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}
