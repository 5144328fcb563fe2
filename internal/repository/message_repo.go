package repository

import (
	"context"

	"github.com/Salahaddin50/islamic-marriage-app-sub003/internal/models"
)

type MessageRepository struct {
	db DBTX
}

func NewMessageRepository(db DBTX) *MessageRepository {
	return &MessageRepository{db: db}
}

// Append inserts a message and advances the conversation's last_message_at in
// one statement. The append is indivisible at the store, so concurrent senders
// cannot lose each other's writes.
func (r *MessageRepository) Append(
	ctx context.Context,
	conversationID int64,
	senderID int64,
	content *string,
	messageType string,
) (*models.ChatMessage, error) {
	query := `
		WITH new_message AS (
			INSERT INTO messages (conversation_id, sender_id, content, message_type)
			VALUES ($1, $2, $3, $4)
			RETURNING id, conversation_id, sender_id, content, message_type, created_at
		), touched AS (
			UPDATE conversations
			SET last_message_at = new_message.created_at
			FROM new_message
			WHERE conversations.id = new_message.conversation_id
		)
		SELECT id, conversation_id, sender_id, content, message_type, created_at
		FROM new_message
	`

	var message models.ChatMessage
	err := r.db.QueryRow(ctx, query, conversationID, senderID, content, messageType).Scan(
		&message.ID,
		&message.ConversationID,
		&message.SenderID,
		&message.Content,
		&message.MessageType,
		&message.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &message, nil
}

// ListByConversation returns messages oldest first, the stored read order.
func (r *MessageRepository) ListByConversation(
	ctx context.Context,
	conversationID int64,
	limit int,
) ([]models.ChatMessage, error) {
	query := `
		SELECT id, conversation_id, sender_id, content, message_type, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC, id ASC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, conversationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]models.ChatMessage, 0)
	for rows.Next() {
		var message models.ChatMessage
		if err := rows.Scan(
			&message.ID,
			&message.ConversationID,
			&message.SenderID,
			&message.Content,
			&message.MessageType,
			&message.CreatedAt,
		); err != nil {
			return nil, err
		}

		messages = append(messages, message)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return messages, nil
}
