package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rajivgeraev/barter-api/internal/apperrors"
	"github.com/rajivgeraev/barter-api/internal/models"
	"github.com/rajivgeraev/barter-api/internal/resolver"
)

// acceptedSystemMessage отправляется в диалог в момент принятия предложения
const acceptedSystemMessage = "Обмен был принят. Вы можете обсудить детали здесь."

// TradeStore — хранилище предложений обмена и сделок
type TradeStore struct {
	db DBTX
}

// NewTradeStore создает новый экземпляр TradeStore
func NewTradeStore(db DBTX) *TradeStore {
	return &TradeStore{db: db}
}

const proposalColumns = `id, proposer_id, owner_id, target_item_id, offered_item_id,
       status, message, conversation_id, created_at, updated_at`

func scanProposal(row pgx.Row) (*models.TradeProposal, error) {
	var p models.TradeProposal
	err := row.Scan(
		&p.ID,
		&p.ProposerID,
		&p.OwnerID,
		&p.TargetItemID,
		&p.OfferedItemID,
		&p.Status,
		&p.Message,
		&p.ConversationID,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateProposal вставляет предложение обмена. Повторное pending-предложение
// той же пары вещей отклоняется частичным уникальным индексом.
func (s *TradeStore) CreateProposal(ctx context.Context, p *models.TradeProposal) error {
	_, err := s.db.Exec(ctx, `
        INSERT INTO trade_proposals (id, proposer_id, owner_id, target_item_id, offered_item_id,
                                     status, message, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
    `, p.ID, p.ProposerID, p.OwnerID, p.TargetItemID, p.OfferedItemID, p.Status, p.Message, p.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrDuplicateProposal
		}
		return storageErr("Ошибка сохранения предложения обмена", err)
	}
	return nil
}

// GetProposal возвращает предложение обмена по идентификатору
func (s *TradeStore) GetProposal(ctx context.Context, id uuid.UUID) (*models.TradeProposal, error) {
	p, err := scanProposal(s.db.QueryRow(ctx, `
        SELECT `+proposalColumns+`
        FROM trade_proposals
        WHERE id = $1
    `, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrProposalNotFound
		}
		return nil, storageErr("Ошибка получения предложения обмена", err)
	}
	return p, nil
}

// ListProposals возвращает предложения пользователя: входящие (он владелец
// целевой вещи), исходящие (он инициатор) или все, с фильтром по статусу
func (s *TradeStore) ListProposals(ctx context.Context, userID uuid.UUID, direction string, status models.ProposalStatus) ([]models.TradeProposal, error) {
	rows, err := s.db.Query(ctx, `
        SELECT `+proposalColumns+`
        FROM trade_proposals
        WHERE (($2 = 'incoming' AND owner_id = $1)
            OR ($2 = 'outgoing' AND proposer_id = $1)
            OR ($2 = 'all' AND (owner_id = $1 OR proposer_id = $1)))
          AND ($3::text = '' OR status = $3)
        ORDER BY created_at DESC
    `, userID, direction, string(status))
	if err != nil {
		return nil, storageErr("Ошибка запроса предложений обмена", err)
	}
	defer rows.Close()

	var proposals []models.TradeProposal
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, storageErr("Ошибка сканирования предложения", err)
		}
		proposals = append(proposals, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, storageErr("Ошибка чтения предложений", err)
	}
	return proposals, nil
}

// UpdateProposalStatus переводит предложение из from в to по принципу
// compare-and-swap: возвращает false, если текущий статус уже не from
func (s *TradeStore) UpdateProposalStatus(ctx context.Context, id uuid.UUID, from, to models.ProposalStatus) (bool, error) {
	tag, err := s.db.Exec(ctx, `
        UPDATE trade_proposals
        SET status = $1, updated_at = NOW()
        WHERE id = $2 AND status = $3
    `, to, id, from)
	if err != nil {
		return false, storageErr("Ошибка обновления статуса предложения", err)
	}
	return tag.RowsAffected() == 1, nil
}

// AcceptProposal атомарно принимает предложение: CAS pending → accepted,
// находит или создает диалог контекста swap с contextID = id предложения,
// добавляет системное сообщение, создает сделку в статусе negotiating и
// записывает conversation_id обратно в предложение. Либо выполняется все,
// либо ничего: сделка без диалога невозможна.
func (s *TradeStore) AcceptProposal(ctx context.Context, p *models.TradeProposal, fallbackEnabled bool) (*models.TradeDeal, *models.Conversation, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, nil, storageErr("Ошибка начала транзакции", err)
	}
	defer tx.Rollback(ctx)

	txTrades := NewTradeStore(tx)
	ok, err := txTrades.UpdateProposalStatus(ctx, p.ID, models.ProposalPending, models.ProposalAccepted)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		// Конкурирующий вызов успел рассмотреть предложение первым
		return nil, nil, apperrors.ErrProposalResolved
	}

	res := resolver.New(NewConversationStore(tx), fallbackEnabled)
	conv, err := res.Resolve(ctx, p.OwnerID, p.ProposerID, models.ContextSwap, p.ID.String())
	if err != nil {
		return nil, nil, err
	}

	now := time.Now()
	sysMsg := &models.Message{
		ID:             uuid.New(),
		ConversationID: conv.ID,
		SenderID:       p.OwnerID,
		RecipientID:    p.ProposerID,
		Content:        acceptedSystemMessage,
		CreatedAt:      now,
	}
	if err := NewMessageStore(tx).Append(ctx, sysMsg); err != nil {
		return nil, nil, err
	}

	offeredItem := p.OfferedItemID
	deal := &models.TradeDeal{
		ID:             uuid.New(),
		ProposalID:     p.ID,
		UserA:          p.OwnerID,
		UserB:          p.ProposerID,
		ItemA:          p.TargetItemID,
		ItemB:          &offeredItem,
		ConversationID: conv.ID,
		Status:         models.DealNegotiating,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	_, err = tx.Exec(ctx, `
        INSERT INTO trade_deals (id, proposal_id, user_a, user_b, item_a, item_b,
                                 conversation_id, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
    `, deal.ID, deal.ProposalID, deal.UserA, deal.UserB, deal.ItemA, deal.ItemB,
		deal.ConversationID, deal.Status, now)
	if err != nil {
		return nil, nil, storageErr("Ошибка создания сделки", err)
	}

	_, err = tx.Exec(ctx, `
        UPDATE trade_proposals SET conversation_id = $1, updated_at = NOW() WHERE id = $2
    `, conv.ID, p.ID)
	if err != nil {
		return nil, nil, storageErr("Ошибка привязки диалога к предложению", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, nil, storageErr("Ошибка фиксации транзакции", err)
	}
	return deal, conv, nil
}

const dealColumns = `id, proposal_id, user_a, user_b, item_a, item_b,
       conversation_id, status, created_at, updated_at`

func scanDeal(row pgx.Row) (*models.TradeDeal, error) {
	var d models.TradeDeal
	err := row.Scan(
		&d.ID,
		&d.ProposalID,
		&d.UserA,
		&d.UserB,
		&d.ItemA,
		&d.ItemB,
		&d.ConversationID,
		&d.Status,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// GetDeal возвращает сделку по идентификатору
func (s *TradeStore) GetDeal(ctx context.Context, id uuid.UUID) (*models.TradeDeal, error) {
	d, err := scanDeal(s.db.QueryRow(ctx, `
        SELECT `+dealColumns+`
        FROM trade_deals
        WHERE id = $1
    `, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrDealNotFound
		}
		return nil, storageErr("Ошибка получения сделки", err)
	}
	return d, nil
}

// ListDeals возвращает сделки пользователя по убыванию последней активности
func (s *TradeStore) ListDeals(ctx context.Context, userID uuid.UUID) ([]models.TradeDeal, error) {
	rows, err := s.db.Query(ctx, `
        SELECT `+dealColumns+`
        FROM trade_deals
        WHERE user_a = $1 OR user_b = $1
        ORDER BY updated_at DESC
    `, userID)
	if err != nil {
		return nil, storageErr("Ошибка запроса сделок", err)
	}
	defer rows.Close()

	var deals []models.TradeDeal
	for rows.Next() {
		d, err := scanDeal(rows)
		if err != nil {
			return nil, storageErr("Ошибка сканирования сделки", err)
		}
		deals = append(deals, *d)
	}

	if err := rows.Err(); err != nil {
		return nil, storageErr("Ошибка чтения сделок", err)
	}
	return deals, nil
}

// UpdateDealStatus переводит сделку из from в to по принципу compare-and-swap
func (s *TradeStore) UpdateDealStatus(ctx context.Context, id uuid.UUID, from, to models.DealStatus) (bool, error) {
	tag, err := s.db.Exec(ctx, `
        UPDATE trade_deals
        SET status = $1, updated_at = NOW()
        WHERE id = $2 AND status = $3
    `, to, id, from)
	if err != nil {
		return false, storageErr("Ошибка обновления статуса сделки", err)
	}
	return tag.RowsAffected() == 1, nil
}
