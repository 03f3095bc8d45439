package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rajivgeraev/barter-api/internal/models"
)

// Manager представляет центральный менеджер для всех WebSocket соединений.
// Доставка событий — best-effort и at-least-once: клиенты дедуплицируют
// сообщения по id, сбой доставки никогда не влияет на записанные данные.
type Manager struct {
	clients      map[uuid.UUID]*Client
	clientsMutex sync.RWMutex
	userClients  map[string]map[uuid.UUID]bool // userID -> map[clientID]bool
	userMutex    sync.RWMutex
	ctx          context.Context
	cancel       context.CancelFunc
}

// EventType определяет тип события WebSocket
type EventType string

const (
	EventNewMessage  EventType = "new_message"
	EventMessageRead EventType = "message_read"
	EventUnreadCount EventType = "unread_count"
	EventTradeUpdate EventType = "trade_update"
	EventDealUpdate  EventType = "deal_update"
	EventTyping      EventType = "typing"
	EventStopTyping  EventType = "stop_typing"
)

// Event представляет структуру сообщения для WebSocket
type Event struct {
	Type           EventType       `json:"type"`
	ConversationID string          `json:"conversation_id,omitempty"`
	MessageID      string          `json:"message_id,omitempty"`
	UserID         string          `json:"user_id,omitempty"`
	Timestamp      time.Time       `json:"timestamp"`
	Payload        json.RawMessage `json:"payload,omitempty"`
}

// NewManager создает новый экземпляр Manager
func NewManager() *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		clients:     make(map[uuid.UUID]*Client),
		userClients: make(map[string]map[uuid.UUID]bool),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// AddClient регистрирует нового клиента
func (m *Manager) AddClient(client *Client) {
	m.clientsMutex.Lock()
	m.clients[client.ID] = client
	m.clientsMutex.Unlock()

	// Связываем клиент с пользователем
	m.userMutex.Lock()
	if _, exists := m.userClients[client.UserID]; !exists {
		m.userClients[client.UserID] = make(map[uuid.UUID]bool)
	}
	m.userClients[client.UserID][client.ID] = true
	m.userMutex.Unlock()

	log.Printf("WebSocket client %s connected for user %s", client.ID, client.UserID)
}

// RemoveClient удаляет клиента
func (m *Manager) RemoveClient(clientID uuid.UUID) {
	m.clientsMutex.RLock()
	client, exists := m.clients[clientID]
	m.clientsMutex.RUnlock()

	if !exists {
		return
	}

	userID := client.UserID

	m.userMutex.Lock()
	if clients, ok := m.userClients[userID]; ok {
		delete(clients, clientID)
		// Если это был последний клиент пользователя, удаляем запись пользователя
		if len(clients) == 0 {
			delete(m.userClients, userID)
		}
	}
	m.userMutex.Unlock()

	m.clientsMutex.Lock()
	delete(m.clients, clientID)
	m.clientsMutex.Unlock()

	log.Printf("WebSocket client %s disconnected for user %s", clientID, userID)
}

// SendToUser отправляет событие всем соединениям конкретного пользователя.
// Пользователь офлайн — событие просто пропускается: данные уже в БД.
func (m *Manager) SendToUser(userID string, event Event) {
	if userID == "" {
		return
	}

	m.userMutex.RLock()
	clientIDs, exists := m.userClients[userID]
	m.userMutex.RUnlock()

	if !exists || len(clientIDs) == 0 {
		return
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		log.Printf("Error marshaling event: %v", err)
		return
	}

	for clientID := range clientIDs {
		m.clientsMutex.RLock()
		client, exists := m.clients[clientID]
		m.clientsMutex.RUnlock()

		if !exists {
			continue
		}

		go func(c *Client) {
			select {
			case c.send <- eventJSON:
				// Сообщение добавлено в очередь отправки
			default:
				// Канал заполнен, клиент слишком медленный — закрываем соединение
				log.Printf("Send channel full for client %s, closing connection", c.ID)
				c.conn.Close()
				m.RemoveClient(c.ID)
			}
		}(client)
	}
}

// NewMessage уведомляет обоих участников о новом сообщении. Отправитель
// получает эхо с серверным id для сверки с оптимистичной локальной копией.
func (m *Manager) NewMessage(conv *models.Conversation, msg *models.Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Error marshaling message payload: %v", err)
		return
	}

	event := Event{
		Type:           EventNewMessage,
		ConversationID: conv.ID.String(),
		MessageID:      msg.ID.String(),
		UserID:         msg.SenderID.String(),
		Timestamp:      msg.CreatedAt,
		Payload:        payload,
	}

	m.SendToUser(msg.RecipientID.String(), event)
	m.SendToUser(msg.SenderID.String(), event)
}

// MessagesRead уведомляет второго участника, что его сообщения прочитаны
func (m *Manager) MessagesRead(conversationID, readerID, otherID uuid.UUID, count int64) {
	if count == 0 {
		return
	}

	payload, _ := json.Marshal(map[string]int64{"count": count})
	m.SendToUser(otherID.String(), Event{
		Type:           EventMessageRead,
		ConversationID: conversationID.String(),
		UserID:         readerID.String(),
		Timestamp:      time.Now(),
		Payload:        payload,
	})
}

// UnreadCount отправляет пользователю обновленное число непрочитанных
func (m *Manager) UnreadCount(userID uuid.UUID, count int) {
	payload, _ := json.Marshal(map[string]int{"count": count})
	m.SendToUser(userID.String(), Event{
		Type:      EventUnreadCount,
		UserID:    userID.String(),
		Timestamp: time.Now(),
		Payload:   payload,
	})
}

// TradeUpdate уведомляет стороны об изменении предложения или сделки
func (m *Manager) TradeUpdate(eventType EventType, userIDs []uuid.UUID, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Error marshaling trade payload: %v", err)
		return
	}

	event := Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Payload:   data,
	}
	for _, id := range userIDs {
		m.SendToUser(id.String(), event)
	}
}

// ProposalUpdated уведомляет обе стороны об изменении предложения обмена
func (m *Manager) ProposalUpdated(p *models.TradeProposal) {
	m.TradeUpdate(EventTradeUpdate, []uuid.UUID{p.ProposerID, p.OwnerID}, p)
}

// DealUpdated уведомляет обе стороны об изменении сделки
func (m *Manager) DealUpdated(d *models.TradeDeal) {
	m.TradeUpdate(EventDealUpdate, []uuid.UUID{d.UserA, d.UserB}, d)
}

// Shutdown корректно завершает работу менеджера WebSocket
func (m *Manager) Shutdown() {
	m.cancel()

	m.clientsMutex.Lock()
	for _, client := range m.clients {
		if client.conn != nil {
			client.conn.Close()
		}
	}
	m.clients = make(map[uuid.UUID]*Client)
	m.clientsMutex.Unlock()

	m.userMutex.Lock()
	m.userClients = make(map[string]map[uuid.UUID]bool)
	m.userMutex.Unlock()
}
