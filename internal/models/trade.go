package models

import (
	"time"

	"github.com/google/uuid"
)

// ProposalStatus — статус предложения обмена
type ProposalStatus string

const (
	ProposalPending   ProposalStatus = "pending"
	ProposalAccepted  ProposalStatus = "accepted"
	ProposalRejected  ProposalStatus = "rejected"
	ProposalCancelled ProposalStatus = "cancelled"
)

// IsTerminal сообщает, что статус предложения окончательный
func (s ProposalStatus) IsTerminal() bool {
	return s == ProposalAccepted || s == ProposalRejected || s == ProposalCancelled
}

// DealStatus — статус сделки после принятия предложения
type DealStatus string

const (
	DealNegotiating DealStatus = "negotiating"
	DealAgreed      DealStatus = "agreed"
	DealShipping    DealStatus = "shipping"
	DealCompleted   DealStatus = "completed"
	DealCancelled   DealStatus = "cancelled"
)

// IsTerminal сообщает, что статус сделки окончательный
func (s DealStatus) IsTerminal() bool {
	return s == DealCompleted || s == DealCancelled
}

// TradeProposal представляет предложение обмена одной вещи на другую.
// conversation_id пуст до принятия и заполняется ровно один раз.
type TradeProposal struct {
	ID             uuid.UUID      `json:"id"`
	ProposerID     uuid.UUID      `json:"proposer_id"`
	OwnerID        uuid.UUID      `json:"owner_id"`
	TargetItemID   uuid.UUID      `json:"target_item_id"`
	OfferedItemID  uuid.UUID      `json:"offered_item_id"`
	Status         ProposalStatus `json:"status"`
	Message        string         `json:"message,omitempty"`
	ConversationID *uuid.UUID     `json:"conversation_id,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`

	// Дополнительные поля для API. До принятия предложения данные
	// инициатора во входящих предложениях маскируются (только страна).
	Proposer    *User `json:"proposer,omitempty"`
	Owner       *User `json:"owner,omitempty"`
	TargetItem  *Item `json:"target_item,omitempty"`
	OfferedItem *Item `json:"offered_item,omitempty"`
}

// TradeDeal представляет сделку, создаваемую в момент принятия предложения
// вместе с диалогом контекста swap.
type TradeDeal struct {
	ID             uuid.UUID  `json:"id"`
	ProposalID     uuid.UUID  `json:"proposal_id"`
	UserA          uuid.UUID  `json:"user_a"`
	UserB          uuid.UUID  `json:"user_b"`
	ItemA          uuid.UUID  `json:"item_a"`
	ItemB          *uuid.UUID `json:"item_b,omitempty"`
	ConversationID uuid.UUID  `json:"conversation_id"`
	Status         DealStatus `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	// Дополнительные поля для API
	ItemASnapshot *Item `json:"item_a_snapshot,omitempty"`
	ItemBSnapshot *Item `json:"item_b_snapshot,omitempty"`
	Counterpart   *User `json:"counterpart,omitempty"`
}

// HasParticipant проверяет, что пользователь является стороной сделки
func (d *TradeDeal) HasParticipant(userID uuid.UUID) bool {
	return d.UserA == userID || d.UserB == userID
}

// Item — минимальный срез данных о вещи, участвующей в обмене.
// Хранилище вещей — внешняя подсистема, ядру нужны только владелец и название.
type Item struct {
	ID      uuid.UUID `json:"id"`
	OwnerID uuid.UUID `json:"owner_id"`
	Title   string    `json:"title"`
	Status  string    `json:"status"`
}
