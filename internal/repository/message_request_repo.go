package repository

import (
	"context"

	"github.com/Salahaddin50/islamic-marriage-app-sub003/internal/models"
	"github.com/jackc/pgx/v5"
)

type MessageRequestRepository struct {
	db DBTX
}

func NewMessageRequestRepository(db DBTX) *MessageRequestRepository {
	return &MessageRequestRepository{db: db}
}

func (r *MessageRequestRepository) Create(
	ctx context.Context,
	senderID int64,
	receiverID int64,
) (*models.MessageRequest, error) {
	query := `
		INSERT INTO message_requests (sender_id, receiver_id, status)
		VALUES ($1, $2, 'pending')
		RETURNING id, sender_id, receiver_id, status, created_at, updated_at
	`

	var request models.MessageRequest
	err := r.db.QueryRow(ctx, query, senderID, receiverID).Scan(
		&request.ID,
		&request.SenderID,
		&request.ReceiverID,
		&request.Status,
		&request.CreatedAt,
		&request.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &request, nil
}

func (r *MessageRequestRepository) GetByID(ctx context.Context, requestID int64) (*models.MessageRequest, error) {
	query := `
		SELECT id, sender_id, receiver_id, status, created_at, updated_at
		FROM message_requests
		WHERE id = $1
	`

	var request models.MessageRequest
	err := r.db.QueryRow(ctx, query, requestID).Scan(
		&request.ID,
		&request.SenderID,
		&request.ReceiverID,
		&request.Status,
		&request.CreatedAt,
		&request.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &request, nil
}

// UpdateStatusIfPending transitions a request out of the pending state.
// Returns pgx.ErrNoRows when the row is gone or no longer pending.
func (r *MessageRequestRepository) UpdateStatusIfPending(
	ctx context.Context,
	requestID int64,
	status string,
) (*models.MessageRequest, error) {
	query := `
		UPDATE message_requests
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING id, sender_id, receiver_id, status, created_at, updated_at
	`

	var request models.MessageRequest
	err := r.db.QueryRow(ctx, query, requestID, status).Scan(
		&request.ID,
		&request.SenderID,
		&request.ReceiverID,
		&request.Status,
		&request.CreatedAt,
		&request.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &request, nil
}

func (r *MessageRequestRepository) Delete(ctx context.Context, requestID int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM message_requests WHERE id = $1`, requestID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *MessageRequestRepository) ListPendingForReceiver(
	ctx context.Context,
	userID int64,
) ([]models.MessageRequest, error) {
	query := `
		SELECT id, sender_id, receiver_id, status, created_at, updated_at
		FROM message_requests
		WHERE receiver_id = $1 AND status = 'pending'
		ORDER BY created_at DESC, id DESC
	`
	return r.list(ctx, query, userID)
}

func (r *MessageRequestRepository) ListPendingFromSender(
	ctx context.Context,
	userID int64,
) ([]models.MessageRequest, error) {
	query := `
		SELECT id, sender_id, receiver_id, status, created_at, updated_at
		FROM message_requests
		WHERE sender_id = $1 AND status = 'pending'
		ORDER BY created_at DESC, id DESC
	`
	return r.list(ctx, query, userID)
}

func (r *MessageRequestRepository) ListAcceptedForUser(
	ctx context.Context,
	userID int64,
) ([]models.MessageRequest, error) {
	query := `
		SELECT id, sender_id, receiver_id, status, created_at, updated_at
		FROM message_requests
		WHERE (sender_id = $1 OR receiver_id = $1) AND status = 'accepted'
		ORDER BY updated_at DESC, id DESC
	`
	return r.list(ctx, query, userID)
}

// LatestBetween resolves the authoritative request between two users: the
// most-recently-created row in either direction.
func (r *MessageRequestRepository) LatestBetween(
	ctx context.Context,
	userID int64,
	otherID int64,
) (*models.MessageRequest, error) {
	query := `
		SELECT id, sender_id, receiver_id, status, created_at, updated_at
		FROM message_requests
		WHERE (sender_id = $1 AND receiver_id = $2)
		   OR (sender_id = $2 AND receiver_id = $1)
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	var request models.MessageRequest
	err := r.db.QueryRow(ctx, query, userID, otherID).Scan(
		&request.ID,
		&request.SenderID,
		&request.ReceiverID,
		&request.Status,
		&request.CreatedAt,
		&request.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &request, nil
}

func (r *MessageRequestRepository) list(ctx context.Context, query string, userID int64) ([]models.MessageRequest, error) {
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	requests := make([]models.MessageRequest, 0)
	for rows.Next() {
		var request models.MessageRequest
		if err := rows.Scan(
			&request.ID,
			&request.SenderID,
			&request.ReceiverID,
			&request.Status,
			&request.CreatedAt,
			&request.UpdatedAt,
		); err != nil {
			return nil, err
		}
		requests = append(requests, request)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return requests, nil
}
