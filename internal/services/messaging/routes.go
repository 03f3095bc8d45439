package messaging

import (
	"github.com/gofiber/fiber/v3"
)

// SetupRoutes настраивает маршруты API сообщений и диалогов
func (h *Handler) SetupRoutes(app *fiber.App, authMiddleware fiber.Handler) {
	messages := app.Group("/api/messages")
	messages.Use(authMiddleware)

	// Отправка сообщения (диалог создается при необходимости)
	messages.Post("/", h.SendMessage)

	// Суммарное число непрочитанных сообщений
	messages.Get("/unread", h.GetUnreadCount)

	// Удаление своего сообщения
	messages.Delete("/:id", h.DeleteMessage)

	conversations := app.Group("/api/conversations")
	conversations.Use(authMiddleware)

	// Список диалогов пользователя
	conversations.Get("/", h.GetConversations)

	// Сообщения диалога
	conversations.Get("/:id/messages", h.GetThread)

	// Отметка о прочтении
	conversations.Post("/:id/read", h.MarkRead)

	// Архивирование и беззвучный режим
	conversations.Post("/:id/archive", h.Archive)
	conversations.Post("/:id/unarchive", h.Unarchive)
	conversations.Post("/:id/mute", h.Mute)
	conversations.Post("/:id/unmute", h.Unmute)
}
