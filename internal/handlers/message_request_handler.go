package handlers

import (
	"context"
	"errors"
	"log"
	"strconv"

	"github.com/Salahaddin50/islamic-marriage-app-sub003/internal/models"
	"github.com/Salahaddin50/islamic-marriage-app-sub003/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
)

type messageRequestApplicationService interface {
	Send(ctx context.Context, senderID int64, targetID int64) (*models.MessageRequest, error)
	Accept(ctx context.Context, actorID int64, requestID int64) (*models.MessageRequest, error)
	Reject(ctx context.Context, actorID int64, requestID int64) (*models.MessageRequest, error)
	Cancel(ctx context.Context, actorID int64, requestID int64) error
	ListIncoming(ctx context.Context, userID int64) ([]models.MessageRequest, error)
	ListOutgoing(ctx context.Context, userID int64) ([]models.MessageRequest, error)
	ListApproved(ctx context.Context, userID int64) ([]models.MessageRequest, error)
	StatusForTarget(ctx context.Context, callerID int64, targetID int64) services.RequestStatus
}

// conversationOpener is the slice of the chat service the accept flow needs
// to unlock the thread for a newly matched pair.
type conversationOpener interface {
	GetOrCreate(ctx context.Context, actorID int64, targetID int64) (*models.Conversation, error)
	SendSystem(ctx context.Context, conversationID int64, senderID int64, content *string) (*models.ChatMessage, error)
}

type deliveryBroadcaster interface {
	Broadcast(delivery *services.ChatDelivery)
}

type MessageRequestHandler struct {
	service messageRequestApplicationService
	chat    conversationOpener
	hub     deliveryBroadcaster
}

type sendRequestBody struct {
	TargetID int64 `json:"target_id"`
}

func NewMessageRequestHandler(
	service messageRequestApplicationService,
	chat conversationOpener,
	hub deliveryBroadcaster,
) *MessageRequestHandler {
	return &MessageRequestHandler{
		service: service,
		chat:    chat,
		hub:     hub,
	}
}

func (h *MessageRequestHandler) Send(c *fiber.Ctx) error {
	userID, err := parseAuthedUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req sendRequestBody
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	request, err := h.service.Send(c.Context(), userID, req.TargetID)
	if err != nil {
		return mapRequestError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"request": request})
}

func (h *MessageRequestHandler) Accept(c *fiber.Ctx) error {
	userID, err := parseAuthedUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	requestID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || requestID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request id"})
	}

	request, err := h.service.Accept(c.Context(), userID, requestID)
	if err != nil {
		return mapRequestError(c, err)
	}

	// Approval unlocks the thread: open (or fetch) the conversation and drop
	// a system row so both clients render the match event.
	conversation, err := h.chat.GetOrCreate(c.Context(), request.ReceiverID, request.SenderID)
	if err != nil {
		log.Printf("open conversation after accept: %v", err)
		return c.JSON(fiber.Map{"request": request})
	}
	note := "You are now connected"
	systemMessage, err := h.chat.SendSystem(c.Context(), conversation.ID, request.ReceiverID, &note)
	if err != nil {
		log.Printf("seed system message after accept: %v", err)
	} else {
		// Let both open sockets see the match event immediately.
		h.hub.Broadcast(&services.ChatDelivery{
			Conversation: conversation,
			Message:      systemMessage,
			RecipientID:  request.SenderID,
		})
	}

	return c.JSON(fiber.Map{
		"request":      request,
		"conversation": conversation,
	})
}

func (h *MessageRequestHandler) Reject(c *fiber.Ctx) error {
	userID, err := parseAuthedUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	requestID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || requestID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request id"})
	}

	request, err := h.service.Reject(c.Context(), userID, requestID)
	if err != nil {
		return mapRequestError(c, err)
	}

	return c.JSON(fiber.Map{"request": request})
}

func (h *MessageRequestHandler) Cancel(c *fiber.Ctx) error {
	userID, err := parseAuthedUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	requestID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || requestID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request id"})
	}

	if err := h.service.Cancel(c.Context(), userID, requestID); err != nil {
		return mapRequestError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *MessageRequestHandler) ListIncoming(c *fiber.Ctx) error {
	return h.listWith(c, h.service.ListIncoming)
}

func (h *MessageRequestHandler) ListOutgoing(c *fiber.Ctx) error {
	return h.listWith(c, h.service.ListOutgoing)
}

func (h *MessageRequestHandler) ListApproved(c *fiber.Ctx) error {
	return h.listWith(c, h.service.ListApproved)
}

func (h *MessageRequestHandler) Status(c *fiber.Ctx) error {
	userID, err := parseAuthedUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	targetID, err := strconv.ParseInt(c.Query("target_id"), 10, 64)
	if err != nil || targetID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid target id"})
	}

	status := h.service.StatusForTarget(c.Context(), userID, targetID)
	return c.JSON(status)
}

func (h *MessageRequestHandler) listWith(
	c *fiber.Ctx,
	list func(ctx context.Context, userID int64) ([]models.MessageRequest, error),
) error {
	userID, err := parseAuthedUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	requests, err := list(c.Context(), userID)
	if err != nil {
		return mapRequestError(c, err)
	}

	return c.JSON(fiber.Map{"requests": requests})
}

func mapRequestError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	case errors.Is(err, services.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "A pending request already exists"})
	case errors.Is(err, services.ErrInvalidStateTransition):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Request already resolved"})
	case errors.Is(err, services.ErrUserNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
	case errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Request not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process message request"})
	}
}
