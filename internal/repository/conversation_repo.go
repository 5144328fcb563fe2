package repository

import (
	"context"
	"database/sql"

	"github.com/Salahaddin50/islamic-marriage-app-sub003/internal/models"
	"github.com/jackc/pgx/v5"
)

type ConversationRepository struct {
	db DBTX
}

func NewConversationRepository(db DBTX) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// CreateOrGet returns the single conversation between the two users, creating
// it on first contact. The unique index on the normalized pair makes racing
// first calls land on the same row instead of double-creating.
func (r *ConversationRepository) CreateOrGet(
	ctx context.Context,
	userA int64,
	userB int64,
) (*models.Conversation, error) {
	query := `
		INSERT INTO conversations (user_a, user_b)
		VALUES ($1, $2)
		ON CONFLICT ((LEAST(user_a, user_b)), (GREATEST(user_a, user_b)))
		DO UPDATE SET last_message_at = conversations.last_message_at
		RETURNING id, user_a, user_b, created_at, last_message_at,
				  last_read_at_user_a, last_read_at_user_b
	`

	var conversation models.Conversation
	err := r.db.QueryRow(ctx, query, userA, userB).Scan(
		&conversation.ID,
		&conversation.UserA,
		&conversation.UserB,
		&conversation.CreatedAt,
		&conversation.LastMessageAt,
		&conversation.LastReadAtUserA,
		&conversation.LastReadAtUserB,
	)
	if err != nil {
		return nil, err
	}

	return &conversation, nil
}

func (r *ConversationRepository) GetByID(ctx context.Context, conversationID int64) (*models.Conversation, error) {
	query := `
		SELECT id, user_a, user_b, created_at, last_message_at,
			   last_read_at_user_a, last_read_at_user_b
		FROM conversations
		WHERE id = $1
	`

	var conversation models.Conversation
	err := r.db.QueryRow(ctx, query, conversationID).Scan(
		&conversation.ID,
		&conversation.UserA,
		&conversation.UserB,
		&conversation.CreatedAt,
		&conversation.LastMessageAt,
		&conversation.LastReadAtUserA,
		&conversation.LastReadAtUserB,
	)
	if err != nil {
		return nil, err
	}

	return &conversation, nil
}

// MarkRead advances the caller's own read watermark in a single statement so
// concurrent readers never clobber the other side's column.
func (r *ConversationRepository) MarkRead(
	ctx context.Context,
	conversationID int64,
	readerID int64,
) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE conversations
		SET last_read_at_user_a = CASE WHEN user_a = $2 THEN NOW() ELSE last_read_at_user_a END,
			last_read_at_user_b = CASE WHEN user_b = $2 THEN NOW() ELSE last_read_at_user_b END
		WHERE id = $1 AND (user_a = $2 OR user_b = $2)
	`, conversationID, readerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ConversationRepository) ListForParticipant(
	ctx context.Context,
	participantID int64,
) ([]models.ConversationSummary, error) {
	query := `
		SELECT
			c.id,
			c.user_a,
			c.user_b,
			c.created_at,
			c.last_message_at,
			c.last_read_at_user_a,
			c.last_read_at_user_b,
			lm.id,
			lm.sender_id,
			lm.content,
			lm.message_type,
			lm.created_at,
			COALESCE(uc.unread_count, 0)
		FROM conversations c
		LEFT JOIN LATERAL (
			SELECT id, sender_id, content, message_type, created_at
			FROM messages
			WHERE conversation_id = c.id
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		) lm ON TRUE
		LEFT JOIN LATERAL (
			SELECT COUNT(*) AS unread_count
			FROM messages m
			WHERE m.conversation_id = c.id
			  AND m.sender_id <> $1
			  AND m.created_at > COALESCE(
					CASE WHEN c.user_a = $1 THEN c.last_read_at_user_a ELSE c.last_read_at_user_b END,
					'epoch'::timestamptz)
		) uc ON TRUE
		WHERE c.user_a = $1 OR c.user_b = $1
		ORDER BY COALESCE(lm.created_at, c.last_message_at, c.created_at) DESC, c.id DESC
	`

	rows, err := r.db.Query(ctx, query, participantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := make([]models.ConversationSummary, 0)
	for rows.Next() {
		var summary models.ConversationSummary
		var messageID sql.NullInt64
		var messageSenderID sql.NullInt64
		var messageContent sql.NullString
		var messageType sql.NullString
		var messageCreatedAt sql.NullTime

		if err := rows.Scan(
			&summary.ID,
			&summary.UserA,
			&summary.UserB,
			&summary.CreatedAt,
			&summary.LastMessageAt,
			&summary.LastReadAtUserA,
			&summary.LastReadAtUserB,
			&messageID,
			&messageSenderID,
			&messageContent,
			&messageType,
			&messageCreatedAt,
			&summary.UnreadCount,
		); err != nil {
			return nil, err
		}

		if messageID.Valid {
			lastMessage := &models.ChatMessage{
				ID:             messageID.Int64,
				ConversationID: summary.ID,
				SenderID:       messageSenderID.Int64,
				MessageType:    messageType.String,
				CreatedAt:      messageCreatedAt.Time,
			}
			if messageContent.Valid {
				content := messageContent.String
				lastMessage.Content = &content
			}
			summary.LastMessage = lastMessage
		}

		summaries = append(summaries, summary)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return summaries, nil
}
