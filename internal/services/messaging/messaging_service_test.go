package messaging

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/rajivgeraev/barter-api/internal/apperrors"
	"github.com/rajivgeraev/barter-api/internal/models"
)

// fakeResolver отдает заранее подготовленные диалоги по тройке и по id
type fakeResolver struct {
	conversations []*models.Conversation
	resolveCalls  int
}

func (r *fakeResolver) Resolve(_ context.Context, callerID, otherID uuid.UUID, contextType models.ContextType, contextID string) (*models.Conversation, error) {
	r.resolveCalls++
	if callerID == otherID {
		return nil, apperrors.ErrSelfMessage
	}
	if contextType == "" {
		contextType = models.ContextPersonal
	}
	if !contextType.IsValid() {
		return nil, apperrors.ErrBadContextType
	}
	low, high := models.NormalizePair(callerID, otherID)
	for _, conv := range r.conversations {
		if conv.ParticipantLow == low && conv.ParticipantHigh == high &&
			conv.ContextType == contextType && conv.ContextID == contextID {
			return conv, nil
		}
	}
	conv := &models.Conversation{
		ID: uuid.New(), ParticipantLow: low, ParticipantHigh: high,
		ContextType: contextType, ContextID: contextID,
	}
	r.conversations = append(r.conversations, conv)
	return conv, nil
}

func (r *fakeResolver) VerifyParticipant(_ context.Context, conversationID, callerID uuid.UUID) (*models.Conversation, error) {
	for _, conv := range r.conversations {
		if conv.ID == conversationID {
			if !conv.HasParticipant(callerID) {
				return nil, apperrors.ErrNotParticipant
			}
			return conv, nil
		}
	}
	return nil, apperrors.ErrConversationNotFound
}

// fakeMessageStore хранит сообщения в памяти
type fakeMessageStore struct {
	messages []*models.Message
}

func (s *fakeMessageStore) Append(_ context.Context, msg *models.Message) error {
	s.messages = append(s.messages, msg)
	return nil
}

func (s *fakeMessageStore) ListThread(_ context.Context, conversationID uuid.UUID, limit int, before *time.Time) ([]models.Message, error) {
	// От новых к старым, как в хранилище
	var out []models.Message
	for i := len(s.messages) - 1; i >= 0; i-- {
		msg := s.messages[i]
		if msg.ConversationID != conversationID || msg.Deleted {
			continue
		}
		if before != nil && !msg.CreatedAt.Before(*before) {
			continue
		}
		out = append(out, *msg)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *fakeMessageStore) MarkRead(_ context.Context, conversationID, userID uuid.UUID) (int64, error) {
	var count int64
	now := time.Now()
	for _, msg := range s.messages {
		if msg.ConversationID == conversationID && msg.RecipientID == userID && msg.ReadAt == nil {
			msg.ReadAt = &now
			count++
		}
	}
	return count, nil
}

func (s *fakeMessageStore) UnreadTotal(_ context.Context, userID uuid.UUID) (int, error) {
	count := 0
	for _, msg := range s.messages {
		if msg.RecipientID == userID && msg.ReadAt == nil && !msg.Deleted {
			count++
		}
	}
	return count, nil
}

func (s *fakeMessageStore) GetByID(_ context.Context, id uuid.UUID) (*models.Message, error) {
	for _, msg := range s.messages {
		if msg.ID == id {
			return msg, nil
		}
	}
	return nil, apperrors.ErrMessageNotFound
}

func (s *fakeMessageStore) SoftDelete(_ context.Context, id uuid.UUID) error {
	for _, msg := range s.messages {
		if msg.ID == id {
			msg.Deleted = true
			return nil
		}
	}
	return apperrors.ErrMessageNotFound
}

type fakeConversationStore struct {
	result []models.Conversation
}

func (s *fakeConversationStore) ListForUser(_ context.Context, _ uuid.UUID, contextType *models.ContextType, includeArchived bool) ([]models.Conversation, error) {
	var out []models.Conversation
	for _, conv := range s.result {
		if contextType != nil && conv.ContextType != *contextType {
			continue
		}
		if !includeArchived && conv.Archived {
			continue
		}
		out = append(out, conv)
	}
	return out, nil
}

type fakeMetadataStore struct {
	archived map[uuid.UUID]bool
	muted    map[uuid.UUID]bool
}

func newFakeMetadataStore() *fakeMetadataStore {
	return &fakeMetadataStore{archived: map[uuid.UUID]bool{}, muted: map[uuid.UUID]bool{}}
}

func (s *fakeMetadataStore) SetArchived(_ context.Context, conversationID, _ uuid.UUID, archived bool) error {
	s.archived[conversationID] = archived
	return nil
}

func (s *fakeMetadataStore) SetMuted(_ context.Context, conversationID, _ uuid.UUID, muted bool) error {
	s.muted[conversationID] = muted
	return nil
}

type fakeUserStore struct {
	users map[uuid.UUID]*models.User
}

func (s *fakeUserStore) Get(_ context.Context, id uuid.UUID) (*models.User, error) {
	return s.users[id], nil
}

// recordingNotifier фиксирует уведомления, не доставляя их
type recordingNotifier struct {
	newMessages  []*models.Message
	readEvents   []int64
	unreadCounts map[uuid.UUID]int
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{unreadCounts: map[uuid.UUID]int{}}
}

func (n *recordingNotifier) NewMessage(_ *models.Conversation, msg *models.Message) {
	n.newMessages = append(n.newMessages, msg)
}

func (n *recordingNotifier) MessagesRead(_, _, _ uuid.UUID, count int64) {
	n.readEvents = append(n.readEvents, count)
}

func (n *recordingNotifier) UnreadCount(userID uuid.UUID, count int) {
	n.unreadCounts[userID] = count
}

type fixture struct {
	svc      *Service
	resolver *fakeResolver
	messages *fakeMessageStore
	convs    *fakeConversationStore
	metadata *fakeMetadataStore
	users    *fakeUserStore
	notifier *recordingNotifier
}

func newFixture(users ...*models.User) *fixture {
	f := &fixture{
		resolver: &fakeResolver{},
		messages: &fakeMessageStore{},
		convs:    &fakeConversationStore{},
		metadata: newFakeMetadataStore(),
		users:    &fakeUserStore{users: map[uuid.UUID]*models.User{}},
		notifier: newRecordingNotifier(),
	}
	for _, u := range users {
		f.users.users[u.ID] = u
	}
	f.svc = NewService(f.resolver, f.convs, f.messages, f.metadata, f.users, f.notifier)
	return f
}

func TestSendCreatesConversationAndNotifies(t *testing.T) {
	alice := &models.User{ID: uuid.New(), Username: "alice"}
	bob := &models.User{ID: uuid.New(), Username: "bob"}
	f := newFixture(alice, bob)

	msg, err := f.svc.Send(context.Background(), alice.ID, SendInput{
		RecipientID: bob.ID,
		Content:     "Привет!",
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, msg.ID)
	require.Equal(t, alice.ID, msg.SenderID)
	require.Equal(t, bob.ID, msg.RecipientID)
	require.False(t, msg.CreatedAt.IsZero())

	require.Len(t, f.messages.messages, 1)
	require.Len(t, f.notifier.newMessages, 1)
	require.Equal(t, 1, f.notifier.unreadCounts[bob.ID])
}

func TestSendTrimsContentAndRejectsEmpty(t *testing.T) {
	alice := &models.User{ID: uuid.New()}
	bob := &models.User{ID: uuid.New()}
	f := newFixture(alice, bob)

	_, err := f.svc.Send(context.Background(), alice.ID, SendInput{RecipientID: bob.ID, Content: "   \n\t  "})
	require.ErrorIs(t, err, apperrors.ErrEmptyContent)
	require.Empty(t, f.messages.messages)

	msg, err := f.svc.Send(context.Background(), alice.ID, SendInput{RecipientID: bob.ID, Content: "  текст  "})
	require.NoError(t, err)
	require.Equal(t, "текст", msg.Content)
}

func TestSendRejectsSelfAndUnknownRecipient(t *testing.T) {
	alice := &models.User{ID: uuid.New()}
	f := newFixture(alice)

	_, err := f.svc.Send(context.Background(), alice.ID, SendInput{RecipientID: alice.ID, Content: "себе"})
	require.ErrorIs(t, err, apperrors.ErrSelfMessage)

	_, err = f.svc.Send(context.Background(), alice.ID, SendInput{RecipientID: uuid.New(), Content: "в пустоту"})
	require.ErrorIs(t, err, apperrors.ErrRecipientNotFound)
}

func TestSendRejectsUnknownContextType(t *testing.T) {
	alice := &models.User{ID: uuid.New()}
	bob := &models.User{ID: uuid.New()}
	f := newFixture(alice, bob)

	_, err := f.svc.Send(context.Background(), alice.ID, SendInput{
		RecipientID: bob.ID,
		Content:     "привет",
		ContextType: models.ContextType("group"),
	})
	require.ErrorIs(t, err, apperrors.ErrBadContextType)
}

func TestSendReusesConversationForSameTriple(t *testing.T) {
	alice := &models.User{ID: uuid.New()}
	bob := &models.User{ID: uuid.New()}
	f := newFixture(alice, bob)

	first, err := f.svc.Send(context.Background(), alice.ID, SendInput{RecipientID: bob.ID, Content: "раз"})
	require.NoError(t, err)

	second, err := f.svc.Send(context.Background(), bob.ID, SendInput{RecipientID: alice.ID, Content: "два"})
	require.NoError(t, err)
	require.Equal(t, first.ConversationID, second.ConversationID)
	require.Len(t, f.resolver.conversations, 1)
}

func TestSendByConversationIDVerifiesParticipant(t *testing.T) {
	alice := &models.User{ID: uuid.New()}
	bob := &models.User{ID: uuid.New()}
	mallory := &models.User{ID: uuid.New()}
	f := newFixture(alice, bob, mallory)

	first, err := f.svc.Send(context.Background(), alice.ID, SendInput{RecipientID: bob.ID, Content: "раз"})
	require.NoError(t, err)
	convID := first.ConversationID

	// Участник пишет по id диалога, получатель выводится из пары
	msg, err := f.svc.Send(context.Background(), bob.ID, SendInput{ConversationID: &convID, Content: "два"})
	require.NoError(t, err)
	require.Equal(t, alice.ID, msg.RecipientID)

	// Посторонний доступа не имеет
	_, err = f.svc.Send(context.Background(), mallory.ID, SendInput{ConversationID: &convID, Content: "взлом"})
	require.ErrorIs(t, err, apperrors.ErrNotParticipant)

	// Явно указанный получатель обязан совпадать с парой диалога
	_, err = f.svc.Send(context.Background(), alice.ID, SendInput{
		ConversationID: &convID, RecipientID: mallory.ID, Content: "не туда",
	})
	require.Equal(t, apperrors.CodeValidationFailed, apperrors.CodeOf(err))
}

func TestThreadOrderAndPaging(t *testing.T) {
	alice := &models.User{ID: uuid.New()}
	bob := &models.User{ID: uuid.New()}
	f := newFixture(alice, bob)

	var convID uuid.UUID
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		msg, err := f.svc.Send(context.Background(), alice.ID, SendInput{RecipientID: bob.ID, Content: "сообщение"})
		require.NoError(t, err)
		convID = msg.ConversationID
		// Раздвигаем время создания для устойчивой пагинации
		f.messages.messages[i].CreatedAt = base.Add(time.Duration(i) * time.Minute)
	}

	messages, hasMore, err := f.svc.Thread(context.Background(), bob.ID, convID, 3, nil)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	require.True(t, hasMore)
	// Хронологический порядок: самая новая страница, от старых к новым
	require.True(t, messages[0].CreatedAt.Before(messages[1].CreatedAt))
	require.True(t, messages[1].CreatedAt.Before(messages[2].CreatedAt))

	// Вторая страница по курсору before
	older, hasMore, err := f.svc.Thread(context.Background(), bob.ID, convID, 3, &messages[0].CreatedAt)
	require.NoError(t, err)
	require.Len(t, older, 2)
	require.False(t, hasMore)
	require.True(t, older[len(older)-1].CreatedAt.Before(messages[0].CreatedAt))
}

func TestThreadRequiresParticipation(t *testing.T) {
	alice := &models.User{ID: uuid.New()}
	bob := &models.User{ID: uuid.New()}
	f := newFixture(alice, bob)

	msg, err := f.svc.Send(context.Background(), alice.ID, SendInput{RecipientID: bob.ID, Content: "тайна"})
	require.NoError(t, err)

	_, _, err = f.svc.Thread(context.Background(), uuid.New(), msg.ConversationID, 10, nil)
	require.ErrorIs(t, err, apperrors.ErrNotParticipant)
}

func TestMarkReadIdempotent(t *testing.T) {
	alice := &models.User{ID: uuid.New()}
	bob := &models.User{ID: uuid.New()}
	f := newFixture(alice, bob)

	var convID uuid.UUID
	for i := 0; i < 3; i++ {
		msg, err := f.svc.Send(context.Background(), alice.ID, SendInput{RecipientID: bob.ID, Content: "непрочитанное"})
		require.NoError(t, err)
		convID = msg.ConversationID
	}

	count, err := f.svc.MarkRead(context.Background(), bob.ID, convID)
	require.NoError(t, err)
	require.EqualValues(t, 3, count)

	// Повторный вызов ничего не находит
	count, err = f.svc.MarkRead(context.Background(), bob.ID, convID)
	require.NoError(t, err)
	require.Zero(t, count)

	total, err := f.svc.UnreadTotal(context.Background(), bob.ID)
	require.NoError(t, err)
	require.Zero(t, total)
}

func TestMarkReadDoesNotTouchOwnMessages(t *testing.T) {
	alice := &models.User{ID: uuid.New()}
	bob := &models.User{ID: uuid.New()}
	f := newFixture(alice, bob)

	msg, err := f.svc.Send(context.Background(), alice.ID, SendInput{RecipientID: bob.ID, Content: "привет"})
	require.NoError(t, err)

	// Отправитель не может прочитать собственное сообщение за получателя
	count, err := f.svc.MarkRead(context.Background(), alice.ID, msg.ConversationID)
	require.NoError(t, err)
	require.Zero(t, count)

	total, err := f.svc.UnreadTotal(context.Background(), bob.ID)
	require.NoError(t, err)
	require.Equal(t, 1, total)
}

func TestListConversationsFiltering(t *testing.T) {
	alice := &models.User{ID: uuid.New()}
	bob := &models.User{ID: uuid.New(), Username: "bob"}
	f := newFixture(alice, bob)

	low, high := models.NormalizePair(alice.ID, bob.ID)
	f.convs.result = []models.Conversation{
		{ID: uuid.New(), ParticipantLow: low, ParticipantHigh: high, ContextType: models.ContextPersonal},
		{ID: uuid.New(), ParticipantLow: low, ParticipantHigh: high, ContextType: models.ContextSwap, ContextID: "trade-1"},
		{ID: uuid.New(), ParticipantLow: low, ParticipantHigh: high, ContextType: models.ContextPersonal, Archived: true},
	}

	all, err := f.svc.ListConversations(context.Background(), alice.ID, "", false)
	require.NoError(t, err)
	require.Len(t, all, 2)
	for _, conv := range all {
		require.NotNil(t, conv.OtherUser)
		require.Equal(t, "bob", conv.OtherUser.Username)
	}

	swaps, err := f.svc.ListConversations(context.Background(), alice.ID, "swap", false)
	require.NoError(t, err)
	require.Len(t, swaps, 1)

	withArchived, err := f.svc.ListConversations(context.Background(), alice.ID, "", true)
	require.NoError(t, err)
	require.Len(t, withArchived, 3)

	_, err = f.svc.ListConversations(context.Background(), alice.ID, "group", false)
	require.ErrorIs(t, err, apperrors.ErrBadContextType)
}

func TestSetArchivedAndMutedRequireParticipation(t *testing.T) {
	alice := &models.User{ID: uuid.New()}
	bob := &models.User{ID: uuid.New()}
	f := newFixture(alice, bob)

	msg, err := f.svc.Send(context.Background(), alice.ID, SendInput{RecipientID: bob.ID, Content: "привет"})
	require.NoError(t, err)
	convID := msg.ConversationID

	require.NoError(t, f.svc.SetArchived(context.Background(), alice.ID, convID, true))
	require.True(t, f.metadata.archived[convID])

	require.NoError(t, f.svc.SetMuted(context.Background(), bob.ID, convID, true))
	require.True(t, f.metadata.muted[convID])

	err = f.svc.SetArchived(context.Background(), uuid.New(), convID, true)
	require.ErrorIs(t, err, apperrors.ErrNotParticipant)
}

func TestDeleteMessageOnlyBySender(t *testing.T) {
	alice := &models.User{ID: uuid.New()}
	bob := &models.User{ID: uuid.New()}
	f := newFixture(alice, bob)

	msg, err := f.svc.Send(context.Background(), alice.ID, SendInput{RecipientID: bob.ID, Content: "лишнее"})
	require.NoError(t, err)

	err = f.svc.DeleteMessage(context.Background(), bob.ID, msg.ID)
	require.ErrorIs(t, err, apperrors.ErrNotMessageSender)

	require.NoError(t, f.svc.DeleteMessage(context.Background(), alice.ID, msg.ID))
	// Повторное удаление идемпотентно
	require.NoError(t, f.svc.DeleteMessage(context.Background(), alice.ID, msg.ID))

	// Удаленное сообщение исчезает из треда и из счетчика
	messages, _, err := f.svc.Thread(context.Background(), bob.ID, msg.ConversationID, 10, nil)
	require.NoError(t, err)
	require.Empty(t, messages)

	total, err := f.svc.UnreadTotal(context.Background(), bob.ID)
	require.NoError(t, err)
	require.Zero(t, total)
}
