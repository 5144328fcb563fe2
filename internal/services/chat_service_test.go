package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Salahaddin50/islamic-marriage-app-sub003/internal/models"
	"github.com/jackc/pgx/v5"
)

// fakeChatStore backs both the conversation and message store interfaces so
// the append path can advance last_message_at the way the real store does in
// one statement.
type fakeChatStore struct {
	nextConversationID int64
	nextMessageID      int64
	now                time.Time
	conversations      []*models.Conversation
	messages           []models.ChatMessage
	lastListLimit      int
}

func newFakeChatStore() *fakeChatStore {
	return &fakeChatStore{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeChatStore) tick() time.Time {
	f.now = f.now.Add(time.Second)
	return f.now
}

func (f *fakeChatStore) CreateOrGet(_ context.Context, userA, userB int64) (*models.Conversation, error) {
	for _, conversation := range f.conversations {
		samePair := (conversation.UserA == userA && conversation.UserB == userB) ||
			(conversation.UserA == userB && conversation.UserB == userA)
		if samePair {
			found := *conversation
			return &found, nil
		}
	}

	f.nextConversationID++
	conversation := &models.Conversation{
		ID:        f.nextConversationID,
		UserA:     userA,
		UserB:     userB,
		CreatedAt: f.tick(),
	}
	f.conversations = append(f.conversations, conversation)
	created := *conversation
	return &created, nil
}

func (f *fakeChatStore) GetByID(_ context.Context, conversationID int64) (*models.Conversation, error) {
	for _, conversation := range f.conversations {
		if conversation.ID == conversationID {
			found := *conversation
			return &found, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeChatStore) MarkRead(_ context.Context, conversationID, readerID int64) error {
	for _, conversation := range f.conversations {
		if conversation.ID != conversationID {
			continue
		}
		ts := f.tick()
		switch readerID {
		case conversation.UserA:
			conversation.LastReadAtUserA = &ts
		case conversation.UserB:
			conversation.LastReadAtUserB = &ts
		default:
			return pgx.ErrNoRows
		}
		return nil
	}
	return pgx.ErrNoRows
}

func (f *fakeChatStore) ListForParticipant(_ context.Context, participantID int64) ([]models.ConversationSummary, error) {
	summaries := make([]models.ConversationSummary, 0)
	for _, conversation := range f.conversations {
		if conversation.UserA == participantID || conversation.UserB == participantID {
			summaries = append(summaries, models.ConversationSummary{Conversation: *conversation})
		}
	}
	return summaries, nil
}

func (f *fakeChatStore) Append(_ context.Context, conversationID, senderID int64, content *string, messageType string) (*models.ChatMessage, error) {
	var target *models.Conversation
	for _, conversation := range f.conversations {
		if conversation.ID == conversationID {
			target = conversation
			break
		}
	}
	if target == nil {
		return nil, pgx.ErrNoRows
	}

	f.nextMessageID++
	ts := f.tick()
	message := models.ChatMessage{
		ID:             f.nextMessageID,
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		MessageType:    messageType,
		CreatedAt:      ts,
	}
	f.messages = append(f.messages, message)
	target.LastMessageAt = &ts
	return &message, nil
}

func (f *fakeChatStore) ListByConversation(_ context.Context, conversationID int64, limit int) ([]models.ChatMessage, error) {
	f.lastListLimit = limit
	messages := make([]models.ChatMessage, 0)
	for _, message := range f.messages {
		if message.ConversationID == conversationID {
			messages = append(messages, message)
		}
	}
	if limit > 0 && len(messages) > limit {
		messages = messages[:limit]
	}
	return messages, nil
}

func newChatService(store *fakeChatStore, users *stubUserReader) *ChatService {
	return NewChatService(store, store, users)
}

func TestGetOrCreateReturnsSameConversationBothOrders(t *testing.T) {
	store := newFakeChatStore()
	service := newChatService(store, knownUsers(1, 2))

	first, err := service.GetOrCreate(context.Background(), 1, 2)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}

	second, err := service.GetOrCreate(context.Background(), 2, 1)
	if err != nil {
		t.Fatalf("GetOrCreate reversed: %v", err)
	}

	if first.ID != second.ID {
		t.Fatalf("expected same conversation, got %d and %d", first.ID, second.ID)
	}
}

func TestGetOrCreateRejectsSelfAndUnknownTarget(t *testing.T) {
	service := newChatService(newFakeChatStore(), knownUsers(1))

	if _, err := service.GetOrCreate(context.Background(), 1, 1); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for self, got %v", err)
	}
	if _, err := service.GetOrCreate(context.Background(), 1, 99); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestSendTextAppendsAndAdvancesLastMessageAt(t *testing.T) {
	store := newFakeChatStore()
	service := newChatService(store, knownUsers(1, 2))

	conversation, err := service.GetOrCreate(context.Background(), 1, 2)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}

	delivery, err := service.SendText(context.Background(), 1, conversation.ID, "Assalamu alaikum")
	if err != nil {
		t.Fatalf("SendText: %v", err)
	}
	if delivery.RecipientID != 2 {
		t.Fatalf("expected recipient 2, got %d", delivery.RecipientID)
	}

	messages, err := service.ListMessages(context.Background(), 2, conversation.ID, 0)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}

	last := messages[len(messages)-1]
	if last.Content == nil || *last.Content != "Assalamu alaikum" {
		t.Fatalf("unexpected content: %v", last.Content)
	}
	if last.SenderID != 1 || last.MessageType != models.MessageTypeText {
		t.Fatalf("unexpected message: %+v", last)
	}

	refreshed, err := store.GetByID(context.Background(), conversation.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if refreshed.LastMessageAt == nil || refreshed.LastMessageAt.Before(last.CreatedAt) {
		t.Fatalf("expected last_message_at >= message created_at, got %v", refreshed.LastMessageAt)
	}
}

func TestSendTextValidation(t *testing.T) {
	store := newFakeChatStore()
	service := newChatService(store, knownUsers(1, 2))

	conversation, _ := service.GetOrCreate(context.Background(), 1, 2)

	if _, err := service.SendText(context.Background(), 1, conversation.ID, "   "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for blank content, got %v", err)
	}
	if _, err := service.SendText(context.Background(), 3, conversation.ID, "hi"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for outsider, got %v", err)
	}
	if _, err := service.SendText(context.Background(), 1, 42, "hi"); !errors.Is(err, pgx.ErrNoRows) {
		t.Fatalf("expected pgx.ErrNoRows for missing conversation, got %v", err)
	}
}

func TestListMessagesAppliesDefaultAndCap(t *testing.T) {
	store := newFakeChatStore()
	service := newChatService(store, knownUsers(1, 2))

	conversation, _ := service.GetOrCreate(context.Background(), 1, 2)

	if _, err := service.ListMessages(context.Background(), 1, conversation.ID, 0); err != nil {
		t.Fatalf("ListMessages default: %v", err)
	}
	if store.lastListLimit != defaultMessageLimit {
		t.Fatalf("expected default limit %d, got %d", defaultMessageLimit, store.lastListLimit)
	}

	if _, err := service.ListMessages(context.Background(), 1, conversation.ID, 10_000); err != nil {
		t.Fatalf("ListMessages capped: %v", err)
	}
	if store.lastListLimit != maxMessageLimit {
		t.Fatalf("expected capped limit %d, got %d", maxMessageLimit, store.lastListLimit)
	}

	if _, err := service.ListMessages(context.Background(), 3, conversation.ID, 0); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for outsider, got %v", err)
	}
}

func TestMessagesOrderedOldestFirst(t *testing.T) {
	store := newFakeChatStore()
	service := newChatService(store, knownUsers(1, 2))

	conversation, _ := service.GetOrCreate(context.Background(), 1, 2)

	for _, content := range []string{"first", "second", "third"} {
		if _, err := service.SendText(context.Background(), 1, conversation.ID, content); err != nil {
			t.Fatalf("SendText %q: %v", content, err)
		}
	}

	messages, err := service.ListMessages(context.Background(), 2, conversation.ID, 0)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(messages))
	}
	for i := 1; i < len(messages); i++ {
		if messages[i].CreatedAt.Before(messages[i-1].CreatedAt) {
			t.Fatalf("messages out of order at %d", i)
		}
	}
	if *messages[0].Content != "first" || *messages[2].Content != "third" {
		t.Fatalf("unexpected order: %v, %v", *messages[0].Content, *messages[2].Content)
	}
}

func TestMarkReadIsRepeatable(t *testing.T) {
	store := newFakeChatStore()
	service := newChatService(store, knownUsers(1, 2))

	conversation, _ := service.GetOrCreate(context.Background(), 1, 2)

	if err := service.MarkRead(context.Background(), 1, conversation.ID); err != nil {
		t.Fatalf("first MarkRead: %v", err)
	}
	first, _ := store.GetByID(context.Background(), conversation.ID)
	if first.LastReadAtUserA == nil {
		t.Fatalf("expected watermark set for user_a")
	}

	if err := service.MarkRead(context.Background(), 1, conversation.ID); err != nil {
		t.Fatalf("second MarkRead: %v", err)
	}
	second, _ := store.GetByID(context.Background(), conversation.ID)
	if !second.LastReadAtUserA.After(*first.LastReadAtUserA) {
		t.Fatalf("expected watermark to advance, got %v then %v", first.LastReadAtUserA, second.LastReadAtUserA)
	}
	if second.LastReadAtUserB != nil {
		t.Fatalf("expected other side untouched, got %v", second.LastReadAtUserB)
	}

	if err := service.MarkRead(context.Background(), 3, conversation.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for outsider, got %v", err)
	}
}

func TestSendSystemAllowsNilContent(t *testing.T) {
	store := newFakeChatStore()
	service := newChatService(store, knownUsers(1, 2))

	conversation, _ := service.GetOrCreate(context.Background(), 1, 2)

	message, err := service.SendSystem(context.Background(), conversation.ID, 2, nil)
	if err != nil {
		t.Fatalf("SendSystem: %v", err)
	}
	if message.MessageType != models.MessageTypeSystem || message.Content != nil {
		t.Fatalf("unexpected system message: %+v", message)
	}
}
