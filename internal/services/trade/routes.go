package trade

import (
	"github.com/gofiber/fiber/v3"
)

// SetupRoutes настраивает маршруты API обменов и сделок
func (h *Handler) SetupRoutes(app *fiber.App, authMiddleware fiber.Handler) {
	trades := app.Group("/api/trades")
	trades.Use(authMiddleware)

	// Создание предложения обмена
	trades.Post("/", h.CreateProposal)

	// Список предложений обмена
	trades.Get("/", h.GetProposals)

	// Принятие, отклонение или отзыв предложения
	trades.Put("/:id/status", h.UpdateProposalStatus)

	deals := app.Group("/api/deals")
	deals.Use(authMiddleware)

	// Список сделок
	deals.Get("/", h.GetDeals)

	// Продвижение или отмена сделки
	deals.Put("/:id/status", h.UpdateDealStatus)
}
