package models

import (
	"time"

	"github.com/google/uuid"
)

// Message представляет сообщение в диалоге. После создания меняются только
// read_at (однократно, null → время прочтения) и deleted (false → true).
type Message struct {
	ID             uuid.UUID  `json:"id"`
	ConversationID uuid.UUID  `json:"conversation_id"`
	SenderID       uuid.UUID  `json:"sender_id"`
	RecipientID    uuid.UUID  `json:"recipient_id"`
	Content        string     `json:"content"`
	CreatedAt      time.Time  `json:"created_at"`
	ReadAt         *time.Time `json:"read_at,omitempty"`
	Deleted        bool       `json:"-"`

	// Дополнительные поля для API
	Sender *User `json:"sender,omitempty"`
}
