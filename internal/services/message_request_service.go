package services

import (
	"context"
	"errors"

	"github.com/Salahaddin50/islamic-marriage-app-sub003/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrForbidden              = errors.New("forbidden")
	ErrConflict               = errors.New("conflict")
	ErrInvalidInput           = errors.New("invalid input")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrUserNotFound           = errors.New("user not found")
)

type messageRequestStore interface {
	Create(ctx context.Context, senderID int64, receiverID int64) (*models.MessageRequest, error)
	GetByID(ctx context.Context, requestID int64) (*models.MessageRequest, error)
	UpdateStatusIfPending(ctx context.Context, requestID int64, status string) (*models.MessageRequest, error)
	Delete(ctx context.Context, requestID int64) error
	ListPendingForReceiver(ctx context.Context, userID int64) ([]models.MessageRequest, error)
	ListPendingFromSender(ctx context.Context, userID int64) ([]models.MessageRequest, error)
	ListAcceptedForUser(ctx context.Context, userID int64) ([]models.MessageRequest, error)
	LatestBetween(ctx context.Context, userID int64, otherID int64) (*models.MessageRequest, error)
}

type userReader interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

// MessageRequestService mediates whether two users may start messaging each
// other: it owns the pending/accepted/rejected lifecycle of a request.
type MessageRequestService struct {
	requestRepo messageRequestStore
	userRepo    userReader
}

func NewMessageRequestService(requestRepo messageRequestStore, userRepo userReader) *MessageRequestService {
	return &MessageRequestService{
		requestRepo: requestRepo,
		userRepo:    userRepo,
	}
}

// RequestStatus is the resolved state of the latest request between two
// users. Degraded marks a lookup that failed at the store and was coerced to
// "none" so the caller can still offer the send-request action.
type RequestStatus struct {
	Status   string `json:"status"`
	IsSender bool   `json:"is_sender"`
	Degraded bool   `json:"-"`
}

func (s *MessageRequestService) Send(
	ctx context.Context,
	senderID int64,
	targetID int64,
) (*models.MessageRequest, error) {
	if senderID <= 0 || targetID <= 0 || senderID == targetID {
		return nil, ErrInvalidInput
	}

	if _, err := s.userRepo.GetByID(ctx, targetID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	request, err := s.requestRepo.Create(ctx, senderID, targetID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, err
	}

	return request, nil
}

func (s *MessageRequestService) Accept(
	ctx context.Context,
	actorID int64,
	requestID int64,
) (*models.MessageRequest, error) {
	return s.resolve(ctx, actorID, requestID, models.RequestStatusAccepted)
}

func (s *MessageRequestService) Reject(
	ctx context.Context,
	actorID int64,
	requestID int64,
) (*models.MessageRequest, error) {
	return s.resolve(ctx, actorID, requestID, models.RequestStatusRejected)
}

// resolve moves a pending request to its final state. Only the receiver may
// act, and only while the request is still pending.
func (s *MessageRequestService) resolve(
	ctx context.Context,
	actorID int64,
	requestID int64,
	status string,
) (*models.MessageRequest, error) {
	if requestID <= 0 {
		return nil, ErrInvalidInput
	}

	request, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.ReceiverID != actorID {
		return nil, ErrForbidden
	}
	if request.Status != models.RequestStatusPending {
		return nil, ErrInvalidStateTransition
	}

	updated, err := s.requestRepo.UpdateStatusIfPending(ctx, requestID, status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidStateTransition
		}
		return nil, err
	}

	return updated, nil
}

// Cancel withdraws a request the actor sent. The row is deleted outright, in
// any state.
func (s *MessageRequestService) Cancel(
	ctx context.Context,
	actorID int64,
	requestID int64,
) error {
	if requestID <= 0 {
		return ErrInvalidInput
	}

	request, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return err
	}
	if request.SenderID != actorID {
		return ErrForbidden
	}

	return s.requestRepo.Delete(ctx, requestID)
}

func (s *MessageRequestService) ListIncoming(ctx context.Context, userID int64) ([]models.MessageRequest, error) {
	return s.requestRepo.ListPendingForReceiver(ctx, userID)
}

func (s *MessageRequestService) ListOutgoing(ctx context.Context, userID int64) ([]models.MessageRequest, error) {
	return s.requestRepo.ListPendingFromSender(ctx, userID)
}

func (s *MessageRequestService) ListApproved(ctx context.Context, userID int64) ([]models.MessageRequest, error) {
	return s.requestRepo.ListAcceptedForUser(ctx, userID)
}

// StatusForTarget resolves the authoritative request state between the caller
// and target. A failed lookup degrades to "none" instead of surfacing an
// error, so the UI can always offer the send-request action.
func (s *MessageRequestService) StatusForTarget(
	ctx context.Context,
	callerID int64,
	targetID int64,
) RequestStatus {
	request, err := s.requestRepo.LatestBetween(ctx, callerID, targetID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return RequestStatus{Status: models.RequestStatusNone}
		}
		return RequestStatus{Status: models.RequestStatusNone, Degraded: true}
	}

	return RequestStatus{
		Status:   request.Status,
		IsSender: request.SenderID == callerID,
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
