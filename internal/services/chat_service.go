package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Salahaddin50/islamic-marriage-app-sub003/internal/models"
	"github.com/jackc/pgx/v5"
)

const (
	defaultMessageLimit = 200
	maxMessageLimit     = 200
)

type conversationStore interface {
	CreateOrGet(ctx context.Context, userA int64, userB int64) (*models.Conversation, error)
	GetByID(ctx context.Context, conversationID int64) (*models.Conversation, error)
	MarkRead(ctx context.Context, conversationID int64, readerID int64) error
	ListForParticipant(ctx context.Context, participantID int64) ([]models.ConversationSummary, error)
}

type messageStore interface {
	Append(ctx context.Context, conversationID int64, senderID int64, content *string, messageType string) (*models.ChatMessage, error)
	ListByConversation(ctx context.Context, conversationID int64, limit int) ([]models.ChatMessage, error)
}

// ChatService owns the single conversation thread between two users and its
// append-only message log.
type ChatService struct {
	conversationRepo conversationStore
	messageRepo      messageStore
	userRepo         userReader
}

type ChatDelivery struct {
	Conversation *models.Conversation
	Message      *models.ChatMessage
	RecipientID  int64
}

func NewChatService(
	conversationRepo conversationStore,
	messageRepo messageStore,
	userRepo userReader,
) *ChatService {
	return &ChatService{
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		userRepo:         userRepo,
	}
}

// GetOrCreate returns the conversation between the actor and target, creating
// it on first contact. Argument order is preserved on insert; lookups match
// the pair in either order.
func (s *ChatService) GetOrCreate(
	ctx context.Context,
	actorID int64,
	targetID int64,
) (*models.Conversation, error) {
	if actorID <= 0 || targetID <= 0 || actorID == targetID {
		return nil, ErrInvalidInput
	}

	if _, err := s.userRepo.GetByID(ctx, targetID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return s.conversationRepo.CreateOrGet(ctx, actorID, targetID)
}

func (s *ChatService) ListConversations(
	ctx context.Context,
	actorID int64,
) ([]models.ConversationSummary, error) {
	if actorID <= 0 {
		return nil, ErrInvalidInput
	}
	return s.conversationRepo.ListForParticipant(ctx, actorID)
}

// ListMessages returns up to limit messages oldest first. A non-positive
// limit falls back to the default of 200.
func (s *ChatService) ListMessages(
	ctx context.Context,
	actorID int64,
	conversationID int64,
	limit int,
) ([]models.ChatMessage, error) {
	if conversationID <= 0 {
		return nil, ErrInvalidInput
	}
	if limit <= 0 {
		limit = defaultMessageLimit
	}
	if limit > maxMessageLimit {
		limit = maxMessageLimit
	}

	conversation, err := s.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conversation.HasParticipant(actorID) {
		return nil, ErrForbidden
	}

	return s.messageRepo.ListByConversation(ctx, conversationID, limit)
}

func (s *ChatService) SendText(
	ctx context.Context,
	actorID int64,
	conversationID int64,
	content string,
) (*ChatDelivery, error) {
	if conversationID <= 0 {
		return nil, ErrInvalidInput
	}

	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil, ErrInvalidInput
	}

	conversation, err := s.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conversation.HasParticipant(actorID) {
		return nil, ErrForbidden
	}

	message, err := s.messageRepo.Append(ctx, conversationID, actorID, &trimmed, models.MessageTypeText)
	if err != nil {
		return nil, err
	}

	return &ChatDelivery{
		Conversation: conversation,
		Message:      message,
		RecipientID:  conversation.OtherParticipant(actorID),
	}, nil
}

// SendSystem appends a system message attributed to senderID. Content may be
// nil.
func (s *ChatService) SendSystem(
	ctx context.Context,
	conversationID int64,
	senderID int64,
	content *string,
) (*models.ChatMessage, error) {
	if conversationID <= 0 || senderID <= 0 {
		return nil, ErrInvalidInput
	}
	return s.messageRepo.Append(ctx, conversationID, senderID, content, models.MessageTypeSystem)
}

// MarkRead advances the actor's read watermark to now. Calling it again just
// moves the watermark forward; there is nothing to undo.
func (s *ChatService) MarkRead(
	ctx context.Context,
	actorID int64,
	conversationID int64,
) error {
	if conversationID <= 0 {
		return ErrInvalidInput
	}

	conversation, err := s.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		return err
	}
	if !conversation.HasParticipant(actorID) {
		return ErrForbidden
	}

	return s.conversationRepo.MarkRead(ctx, conversationID, actorID)
}

func FormatChatTimestamp(ts time.Time) string {
	return ts.UTC().Format(time.RFC3339)
}
