package trade

import (
	"context"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/rajivgeraev/barter-api/internal/apperrors"
	"github.com/rajivgeraev/barter-api/internal/db"
	"github.com/rajivgeraev/barter-api/internal/models"
)

// API — операции сервиса обменов, нужные обработчикам
type API interface {
	Propose(ctx context.Context, callerID, targetItemID, offeredItemID uuid.UUID, message string) (*models.TradeProposal, error)
	ListProposals(ctx context.Context, callerID uuid.UUID, direction string, status string) ([]models.TradeProposal, error)
	UpdateProposalStatus(ctx context.Context, callerID, proposalID uuid.UUID, requested models.ProposalStatus) (*models.TradeProposal, *models.TradeDeal, error)
	ListDeals(ctx context.Context, callerID uuid.UUID) ([]models.TradeDeal, error)
	UpdateDealStatus(ctx context.Context, callerID, dealID uuid.UUID, requested models.DealStatus) (*models.TradeDeal, error)
}

// Handler обрабатывает HTTP-запросы API обменов
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

// CreateProposal создает новое предложение обмена
func (h *Handler) CreateProposal(c fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return apperrors.Respond(c, err)
	}

	var requestData struct {
		TargetItemID  string `json:"target_item_id"`
		OfferedItemID string `json:"offered_item_id"`
		Message       string `json:"message"`
	}
	if err := c.Bind().Body(&requestData); err != nil {
		return apperrors.Respond(c, apperrors.Validation("Неверный формат данных"))
	}

	if requestData.TargetItemID == "" || requestData.OfferedItemID == "" {
		return apperrors.Respond(c, apperrors.Validation("Необходимо указать вещи для обмена"))
	}

	targetItemID, err := uuid.Parse(requestData.TargetItemID)
	if err != nil {
		return apperrors.Respond(c, apperrors.Validation("Неверный формат ID целевой вещи"))
	}
	offeredItemID, err := uuid.Parse(requestData.OfferedItemID)
	if err != nil {
		return apperrors.Respond(c, apperrors.Validation("Неверный формат ID предлагаемой вещи"))
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	proposal, err := h.svc.Propose(ctx, userID, targetItemID, offeredItemID, requestData.Message)
	if err != nil {
		return apperrors.Respond(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"proposal": proposal,
		"success":  true,
	})
}

// GetProposals возвращает входящие и исходящие предложения обмена
func (h *Handler) GetProposals(c fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return apperrors.Respond(c, err)
	}

	direction := c.Query("type", "all") // all, incoming, outgoing
	status := c.Query("status", "all")  // all, pending, accepted, rejected, cancelled

	ctx, cancel := db.GetContext()
	defer cancel()

	proposals, err := h.svc.ListProposals(ctx, userID, direction, status)
	if err != nil {
		return apperrors.Respond(c, err)
	}

	return c.JSON(fiber.Map{
		"proposals": proposals,
		"count":     len(proposals),
	})
}

// UpdateProposalStatus принимает, отклоняет или отзывает предложение обмена
func (h *Handler) UpdateProposalStatus(c fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return apperrors.Respond(c, err)
	}

	proposalID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperrors.Respond(c, apperrors.Validation("Неверный формат ID предложения обмена"))
	}

	var requestData struct {
		Status string `json:"status"` // accepted, rejected, cancelled
	}
	if err := c.Bind().Body(&requestData); err != nil {
		return apperrors.Respond(c, apperrors.Validation("Неверный формат данных"))
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	proposal, deal, err := h.svc.UpdateProposalStatus(ctx, userID, proposalID, models.ProposalStatus(requestData.Status))
	if err != nil {
		return apperrors.Respond(c, err)
	}

	response := fiber.Map{
		"success":  true,
		"proposal": proposal,
	}
	// При принятии клиенту сразу нужен диалог и созданная сделка
	if deal != nil {
		response["deal"] = deal
		response["conversation_id"] = deal.ConversationID
	}

	return c.JSON(response)
}

// GetDeals возвращает сделки пользователя
func (h *Handler) GetDeals(c fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return apperrors.Respond(c, err)
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	deals, err := h.svc.ListDeals(ctx, userID)
	if err != nil {
		return apperrors.Respond(c, err)
	}

	return c.JSON(fiber.Map{
		"deals": deals,
		"count": len(deals),
	})
}

// UpdateDealStatus продвигает сделку на следующий шаг или отменяет ее
func (h *Handler) UpdateDealStatus(c fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return apperrors.Respond(c, err)
	}

	dealID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperrors.Respond(c, apperrors.Validation("Неверный формат ID сделки"))
	}

	var requestData struct {
		Status string `json:"status"` // agreed, shipping, completed, cancelled
	}
	if err := c.Bind().Body(&requestData); err != nil {
		return apperrors.Respond(c, apperrors.Validation("Неверный формат данных"))
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	deal, err := h.svc.UpdateDealStatus(ctx, userID, dealID, models.DealStatus(requestData.Status))
	if err != nil {
		return apperrors.Respond(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"deal":    deal,
	})
}
