package trade

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/rajivgeraev/barter-api/internal/apperrors"
	"github.com/rajivgeraev/barter-api/internal/lifecycle"
	"github.com/rajivgeraev/barter-api/internal/models"
)

// Store — хранилище предложений обмена и сделок
type Store interface {
	CreateProposal(ctx context.Context, p *models.TradeProposal) error
	GetProposal(ctx context.Context, id uuid.UUID) (*models.TradeProposal, error)
	ListProposals(ctx context.Context, userID uuid.UUID, direction string, status models.ProposalStatus) ([]models.TradeProposal, error)
	UpdateProposalStatus(ctx context.Context, id uuid.UUID, from, to models.ProposalStatus) (bool, error)
	AcceptProposal(ctx context.Context, p *models.TradeProposal, fallbackEnabled bool) (*models.TradeDeal, *models.Conversation, error)
	GetDeal(ctx context.Context, id uuid.UUID) (*models.TradeDeal, error)
	ListDeals(ctx context.Context, userID uuid.UUID) ([]models.TradeDeal, error)
	UpdateDealStatus(ctx context.Context, id uuid.UUID, from, to models.DealStatus) (bool, error)
}

// ItemStore — доступ к вещам для проверки владения и срезов отображения
type ItemStore interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Item, error)
}

// UserStore — данные профилей сторон
type UserStore interface {
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Notifier — realtime-уведомления сторон. Вызывается после успешной записи
// и не влияет на результат операции.
type Notifier interface {
	ProposalUpdated(p *models.TradeProposal)
	DealUpdated(d *models.TradeDeal)
}

// Service реализует жизненный цикл предложений обмена и сделок
type Service struct {
	store    Store
	items    ItemStore
	users    UserStore
	notifier Notifier

	// fallbackEnabled передается резолверу диалогов при принятии предложения
	fallbackEnabled bool
}

// NewService создает новый экземпляр Service
func NewService(store Store, items ItemStore, users UserStore, notifier Notifier, fallbackEnabled bool) *Service {
	return &Service{
		store:           store,
		items:           items,
		users:           users,
		notifier:        notifier,
		fallbackEnabled: fallbackEnabled,
	}
}

// Propose создает предложение обмена offeredItem на targetItem.
// Предлагать можно только свою вещь и только владельцу другой вещи.
func (s *Service) Propose(ctx context.Context, callerID, targetItemID, offeredItemID uuid.UUID, message string) (*models.TradeProposal, error) {
	if targetItemID == offeredItemID {
		return nil, apperrors.Validation("Нельзя обменять вещь на саму себя")
	}

	offered, err := s.items.Get(ctx, offeredItemID)
	if err != nil {
		return nil, err
	}
	if offered == nil {
		return nil, apperrors.ErrItemNotFound
	}
	if offered.OwnerID != callerID {
		return nil, apperrors.ErrNotItemOwner
	}

	target, err := s.items.Get(ctx, targetItemID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, apperrors.ErrItemNotFound
	}
	if target.OwnerID == callerID {
		return nil, apperrors.ErrSelfTrade
	}

	now := time.Now()
	proposal := &models.TradeProposal{
		ID:            uuid.New(),
		ProposerID:    callerID,
		OwnerID:       target.OwnerID,
		TargetItemID:  targetItemID,
		OfferedItemID: offeredItemID,
		Status:        models.ProposalPending,
		Message:       message,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.store.CreateProposal(ctx, proposal); err != nil {
		return nil, err
	}

	s.notifier.ProposalUpdated(proposal)
	return proposal, nil
}

// ListProposals возвращает предложения пользователя. Во входящих pending
// предложениях данные инициатора маскируются: до принятия получатель видит
// только страну.
func (s *Service) ListProposals(ctx context.Context, callerID uuid.UUID, direction string, status string) ([]models.TradeProposal, error) {
	switch direction {
	case "incoming", "outgoing", "all":
	case "":
		direction = "all"
	default:
		return nil, apperrors.Validation("Недопустимый тип выборки предложений")
	}

	var statusFilter models.ProposalStatus
	if status != "" && status != "all" {
		statusFilter = models.ProposalStatus(status)
		switch statusFilter {
		case models.ProposalPending, models.ProposalAccepted, models.ProposalRejected, models.ProposalCancelled:
		default:
			return nil, apperrors.Validation("Недопустимый статус предложения обмена")
		}
	}

	proposals, err := s.store.ListProposals(ctx, callerID, direction, statusFilter)
	if err != nil {
		return nil, err
	}

	for i := range proposals {
		s.annotateProposal(ctx, &proposals[i], callerID)
	}
	return proposals, nil
}

// annotateProposal подтягивает срезы вещей и профили сторон,
// маскируя инициатора во входящих нерассмотренных предложениях
func (s *Service) annotateProposal(ctx context.Context, p *models.TradeProposal, callerID uuid.UUID) {
	if item, err := s.items.Get(ctx, p.TargetItemID); err == nil {
		p.TargetItem = item
	}
	if item, err := s.items.Get(ctx, p.OfferedItemID); err == nil {
		p.OfferedItem = item
	}
	if owner, err := s.users.Get(ctx, p.OwnerID); err == nil {
		p.Owner = owner
	}

	proposer, err := s.users.Get(ctx, p.ProposerID)
	if err != nil {
		return
	}
	if p.Status == models.ProposalPending && p.OwnerID == callerID {
		// Личность инициатора раскрывается только после принятия
		p.Proposer = proposer.Masked()
		return
	}
	p.Proposer = proposer
}

// UpdateProposalStatus рассматривает предложение: владелец целевой вещи
// принимает или отклоняет, инициатор отзывает. Принятие атомарно создает
// диалог и сделку; возвращаемая сделка не nil только при принятии.
func (s *Service) UpdateProposalStatus(ctx context.Context, callerID, proposalID uuid.UUID, requested models.ProposalStatus) (*models.TradeProposal, *models.TradeDeal, error) {
	proposal, err := s.store.GetProposal(ctx, proposalID)
	if err != nil {
		return nil, nil, err
	}

	actor := lifecycle.ProposalActor{
		IsProposer: proposal.ProposerID == callerID,
		IsOwner:    proposal.OwnerID == callerID,
	}
	next, err := lifecycle.ProposalTransition(proposal.Status, requested, actor)
	if err != nil {
		return nil, nil, err
	}

	if next == models.ProposalAccepted {
		deal, conv, err := s.store.AcceptProposal(ctx, proposal, s.fallbackEnabled)
		if err != nil {
			return nil, nil, err
		}
		proposal.Status = models.ProposalAccepted
		proposal.ConversationID = &conv.ID

		s.notifier.ProposalUpdated(proposal)
		s.notifier.DealUpdated(deal)
		return proposal, deal, nil
	}

	ok, err := s.store.UpdateProposalStatus(ctx, proposal.ID, models.ProposalPending, next)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		// Конкурирующий вызов успел рассмотреть предложение первым
		return nil, nil, apperrors.ErrProposalResolved
	}
	proposal.Status = next

	s.notifier.ProposalUpdated(proposal)
	return proposal, nil, nil
}

// ListDeals возвращает сделки пользователя с данными второй стороны
func (s *Service) ListDeals(ctx context.Context, callerID uuid.UUID) ([]models.TradeDeal, error) {
	deals, err := s.store.ListDeals(ctx, callerID)
	if err != nil {
		return nil, err
	}

	for i := range deals {
		d := &deals[i]
		if item, err := s.items.Get(ctx, d.ItemA); err == nil {
			d.ItemASnapshot = item
		}
		if d.ItemB != nil {
			if item, err := s.items.Get(ctx, *d.ItemB); err == nil {
				d.ItemBSnapshot = item
			}
		}

		counterpartID := d.UserA
		if d.UserA == callerID {
			counterpartID = d.UserB
		}
		if user, err := s.users.Get(ctx, counterpartID); err == nil {
			d.Counterpart = user
		}
	}
	return deals, nil
}

// UpdateDealStatus продвигает сделку ровно на один шаг вперед или отменяет
// ее из нетерминального статуса. Доступно любой из сторон. Переход защищен
// compare-and-swap по текущему статусу.
func (s *Service) UpdateDealStatus(ctx context.Context, callerID, dealID uuid.UUID, requested models.DealStatus) (*models.TradeDeal, error) {
	deal, err := s.store.GetDeal(ctx, dealID)
	if err != nil {
		return nil, err
	}
	if !deal.HasParticipant(callerID) {
		return nil, apperrors.ErrNotDealParticipant
	}

	next, err := lifecycle.DealTransition(deal.Status, requested)
	if err != nil {
		return nil, err
	}

	ok, err := s.store.UpdateDealStatus(ctx, deal.ID, deal.Status, next)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Статус сделки изменился после чтения — клиент должен перечитать
		return nil, apperrors.InvalidState("Статус сделки изменился, обновите данные")
	}
	deal.Status = next
	deal.UpdatedAt = time.Now()

	s.notifier.DealUpdated(deal)
	return deal, nil
}
