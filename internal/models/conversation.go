package models

import (
	"bytes"
	"time"

	"github.com/google/uuid"
)

// ContextType определяет область платформы, к которой привязан диалог
type ContextType string

const (
	ContextPersonal     ContextType = "personal"     // личная переписка
	ContextOrganization ContextType = "organization" // диалог от имени организации
	ContextSwap         ContextType = "swap"         // диалог в рамках обмена
	ContextSwag         ContextType = "swag"         // диалог по заказу
	ContextRFP          ContextType = "rfp"          // диалог по запросу предложений
	ContextPlace        ContextType = "place"        // диалог, привязанный к месту
)

// IsValid проверяет, что тип контекста входит в список допустимых
func (t ContextType) IsValid() bool {
	switch t {
	case ContextPersonal, ContextOrganization, ContextSwap, ContextSwag, ContextRFP, ContextPlace:
		return true
	}
	return false
}

// Conversation представляет диалог между двумя пользователями в рамках контекста.
// Идентичность диалога — неупорядоченная пара участников + (context_type, context_id);
// пара хранится в каноническом порядке (low, high), чтобы уникальный индекс
// совпадал с логической идентичностью.
type Conversation struct {
	ID              uuid.UUID   `json:"id"`
	ParticipantLow  uuid.UUID   `json:"-"`
	ParticipantHigh uuid.UUID   `json:"-"`
	ContextType     ContextType `json:"context_type"`
	ContextID       string      `json:"context_id,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
	LastMessageText string      `json:"last_message_text,omitempty"`
	LastMessageAt   *time.Time  `json:"last_message_at,omitempty"`

	// Дополнительные поля для API
	OtherUser   *User  `json:"other_user,omitempty"`
	UnreadCount int    `json:"unread_count"`
	Archived    bool   `json:"archived"`
	Muted       bool   `json:"muted"`
	ContextName string `json:"context_name,omitempty"`
}

// HasParticipant проверяет, что пользователь является участником диалога
func (c *Conversation) HasParticipant(userID uuid.UUID) bool {
	return c.ParticipantLow == userID || c.ParticipantHigh == userID
}

// OtherParticipant возвращает второго участника диалога
func (c *Conversation) OtherParticipant(userID uuid.UUID) uuid.UUID {
	if c.ParticipantLow == userID {
		return c.ParticipantHigh
	}
	return c.ParticipantLow
}

// NormalizePair приводит пару участников к каноническому порядку (low, high)
func NormalizePair(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if bytes.Compare(a[:], b[:]) <= 0 {
		return a, b
	}
	return b, a
}

// ConversationMetadata — пользовательские настройки диалога (архив, беззвучный режим).
// Строка принадлежит одному участнику; у второго участника своя независимая строка.
type ConversationMetadata struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	UserID         uuid.UUID `json:"user_id"`
	Archived       bool      `json:"archived"`
	Muted          bool      `json:"muted"`
}
