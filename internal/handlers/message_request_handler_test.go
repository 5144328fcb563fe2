package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Salahaddin50/islamic-marriage-app-sub003/internal/models"
	"github.com/Salahaddin50/islamic-marriage-app-sub003/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
)

type stubRequestService struct {
	sendResult    *models.MessageRequest
	sendErr       error
	acceptResult  *models.MessageRequest
	acceptErr     error
	rejectResult  *models.MessageRequest
	rejectErr     error
	cancelErr     error
	listResult    []models.MessageRequest
	listErr       error
	statusResult  services.RequestStatus
	lastActorID   int64
	lastTargetID  int64
	lastRequestID int64
	resolveCalls  int
	cancelCalls   int
	listedMethod  string
}

func (s *stubRequestService) Send(_ context.Context, senderID int64, targetID int64) (*models.MessageRequest, error) {
	s.lastActorID = senderID
	s.lastTargetID = targetID
	return s.sendResult, s.sendErr
}

func (s *stubRequestService) Accept(_ context.Context, actorID int64, requestID int64) (*models.MessageRequest, error) {
	s.lastActorID = actorID
	s.lastRequestID = requestID
	s.resolveCalls++
	return s.acceptResult, s.acceptErr
}

func (s *stubRequestService) Reject(_ context.Context, actorID int64, requestID int64) (*models.MessageRequest, error) {
	s.lastActorID = actorID
	s.lastRequestID = requestID
	s.resolveCalls++
	return s.rejectResult, s.rejectErr
}

func (s *stubRequestService) Cancel(_ context.Context, actorID int64, requestID int64) error {
	s.lastActorID = actorID
	s.lastRequestID = requestID
	s.cancelCalls++
	return s.cancelErr
}

func (s *stubRequestService) ListIncoming(_ context.Context, userID int64) ([]models.MessageRequest, error) {
	s.lastActorID = userID
	s.listedMethod = "incoming"
	return s.listResult, s.listErr
}

func (s *stubRequestService) ListOutgoing(_ context.Context, userID int64) ([]models.MessageRequest, error) {
	s.lastActorID = userID
	s.listedMethod = "outgoing"
	return s.listResult, s.listErr
}

func (s *stubRequestService) ListApproved(_ context.Context, userID int64) ([]models.MessageRequest, error) {
	s.lastActorID = userID
	s.listedMethod = "approved"
	return s.listResult, s.listErr
}

func (s *stubRequestService) StatusForTarget(_ context.Context, callerID int64, targetID int64) services.RequestStatus {
	s.lastActorID = callerID
	s.lastTargetID = targetID
	return s.statusResult
}

type stubConversationOpener struct {
	conversation     *models.Conversation
	openErr          error
	systemErr        error
	lastPair         [2]int64
	lastSystemConvID int64
	lastSystemNote   *string
}

func (s *stubConversationOpener) GetOrCreate(_ context.Context, actorID int64, targetID int64) (*models.Conversation, error) {
	s.lastPair = [2]int64{actorID, targetID}
	return s.conversation, s.openErr
}

func (s *stubConversationOpener) SendSystem(_ context.Context, conversationID int64, senderID int64, content *string) (*models.ChatMessage, error) {
	s.lastSystemConvID = conversationID
	s.lastSystemNote = content
	return &models.ChatMessage{ID: 1, ConversationID: conversationID, SenderID: senderID, Content: content, MessageType: models.MessageTypeSystem}, s.systemErr
}

type stubBroadcaster struct {
	deliveries []*services.ChatDelivery
}

func (s *stubBroadcaster) Broadcast(delivery *services.ChatDelivery) {
	s.deliveries = append(s.deliveries, delivery)
}

func newRequestApp(handler *MessageRequestHandler, userID string) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", userID)
		c.Locals("gender", "male")
		return c.Next()
	})
	app.Post("/api/v1/requests", handler.Send)
	app.Post("/api/v1/requests/:id/accept", handler.Accept)
	app.Post("/api/v1/requests/:id/reject", handler.Reject)
	app.Delete("/api/v1/requests/:id", handler.Cancel)
	app.Get("/api/v1/requests/incoming", handler.ListIncoming)
	app.Get("/api/v1/requests/outgoing", handler.ListOutgoing)
	app.Get("/api/v1/requests/approved", handler.ListApproved)
	app.Get("/api/v1/requests/status", handler.Status)
	return app
}

func TestSendRequestReturnsCreatedRequest(t *testing.T) {
	service := &stubRequestService{
		sendResult: &models.MessageRequest{ID: 5, SenderID: 42, ReceiverID: 7, Status: models.RequestStatusPending},
	}
	handler := NewMessageRequestHandler(service, &stubConversationOpener{}, &stubBroadcaster{})
	app := newRequestApp(handler, "42")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/requests", strings.NewReader(`{"target_id":7}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if service.lastActorID != 42 || service.lastTargetID != 7 {
		t.Fatalf("unexpected forwarded args: actor=%d target=%d", service.lastActorID, service.lastTargetID)
	}

	var body struct {
		Request models.MessageRequest `json:"request"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if body.Request.ID != 5 || body.Request.Status != models.RequestStatusPending {
		t.Fatalf("unexpected response: %+v", body.Request)
	}
}

func TestSendRequestConflictReturns409(t *testing.T) {
	service := &stubRequestService{sendErr: services.ErrConflict}
	handler := NewMessageRequestHandler(service, &stubConversationOpener{}, &stubBroadcaster{})
	app := newRequestApp(handler, "42")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/requests", strings.NewReader(`{"target_id":7}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

func TestAcceptOpensConversationAndSeedsSystemMessage(t *testing.T) {
	service := &stubRequestService{
		acceptResult: &models.MessageRequest{ID: 3, SenderID: 7, ReceiverID: 42, Status: models.RequestStatusAccepted},
	}
	opener := &stubConversationOpener{
		conversation: &models.Conversation{ID: 11, UserA: 42, UserB: 7},
	}
	hub := &stubBroadcaster{}
	handler := NewMessageRequestHandler(service, opener, hub)
	app := newRequestApp(handler, "42")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/requests/3/accept", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastActorID != 42 || service.lastRequestID != 3 {
		t.Fatalf("unexpected forwarded args: actor=%d request=%d", service.lastActorID, service.lastRequestID)
	}
	if opener.lastPair != [2]int64{42, 7} {
		t.Fatalf("expected conversation opened as receiver->sender, got %v", opener.lastPair)
	}
	if opener.lastSystemConvID != 11 || opener.lastSystemNote == nil {
		t.Fatalf("expected system message in conversation 11, got %d %v", opener.lastSystemConvID, opener.lastSystemNote)
	}
	if len(hub.deliveries) != 1 || hub.deliveries[0].RecipientID != 7 {
		t.Fatalf("expected match event broadcast to the sender, got %+v", hub.deliveries)
	}

	var body struct {
		Request      models.MessageRequest `json:"request"`
		Conversation models.Conversation   `json:"conversation"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if body.Request.Status != models.RequestStatusAccepted || body.Conversation.ID != 11 {
		t.Fatalf("unexpected response body: %+v %+v", body.Request, body.Conversation)
	}
}

func TestAcceptStillSucceedsWhenConversationOpenFails(t *testing.T) {
	service := &stubRequestService{
		acceptResult: &models.MessageRequest{ID: 3, SenderID: 7, ReceiverID: 42, Status: models.RequestStatusAccepted},
	}
	opener := &stubConversationOpener{openErr: pgx.ErrNoRows}
	handler := NewMessageRequestHandler(service, opener, &stubBroadcaster{})
	app := newRequestApp(handler, "42")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/requests/3/accept", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body struct {
		Request models.MessageRequest `json:"request"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if body.Request.Status != models.RequestStatusAccepted {
		t.Fatalf("unexpected response: %+v", body.Request)
	}
}

func TestAcceptResolvedRequestReturnsConflict(t *testing.T) {
	service := &stubRequestService{acceptErr: services.ErrInvalidStateTransition}
	handler := NewMessageRequestHandler(service, &stubConversationOpener{}, &stubBroadcaster{})
	app := newRequestApp(handler, "42")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/requests/3/accept", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

func TestResolveRejectsNonNumericRequestID(t *testing.T) {
	service := &stubRequestService{
		acceptResult: &models.MessageRequest{ID: 3, SenderID: 7, ReceiverID: 42, Status: models.RequestStatusAccepted},
	}
	opener := &stubConversationOpener{}
	handler := NewMessageRequestHandler(service, opener, &stubBroadcaster{})
	app := newRequestApp(handler, "42")

	for _, target := range []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/v1/requests/abc/accept"},
		{http.MethodPost, "/api/v1/requests/abc/reject"},
		{http.MethodDelete, "/api/v1/requests/abc"},
	} {
		req := httptest.NewRequest(target.method, target.path, nil)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test %s: %v", target.path, err)
		}

		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", target.path, resp.StatusCode)
		}

		var body struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatalf("%s: Decode: %v", target.path, err)
		}
		resp.Body.Close()
		if body.Error != "Invalid request id" {
			t.Fatalf("%s: unexpected error body: %q", target.path, body.Error)
		}
	}

	// The handlers must stop at the bad id: no service call, no glue.
	if service.resolveCalls != 0 || service.cancelCalls != 0 {
		t.Fatalf("expected no service calls, got resolve=%d cancel=%d", service.resolveCalls, service.cancelCalls)
	}
	if opener.lastPair != [2]int64{} {
		t.Fatalf("expected conversation glue untouched, got %v", opener.lastPair)
	}
}

func TestRejectByOutsiderReturnsForbidden(t *testing.T) {
	service := &stubRequestService{rejectErr: services.ErrForbidden}
	handler := NewMessageRequestHandler(service, &stubConversationOpener{}, &stubBroadcaster{})
	app := newRequestApp(handler, "42")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/requests/3/reject", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestCancelReturnsNoContent(t *testing.T) {
	service := &stubRequestService{}
	handler := NewMessageRequestHandler(service, &stubConversationOpener{}, &stubBroadcaster{})
	app := newRequestApp(handler, "42")

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/requests/6", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	if service.lastActorID != 42 || service.lastRequestID != 6 {
		t.Fatalf("unexpected forwarded args: actor=%d request=%d", service.lastActorID, service.lastRequestID)
	}
}

func TestCancelMissingRequestReturnsNotFound(t *testing.T) {
	service := &stubRequestService{cancelErr: pgx.ErrNoRows}
	handler := NewMessageRequestHandler(service, &stubConversationOpener{}, &stubBroadcaster{})
	app := newRequestApp(handler, "42")

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/requests/6", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestListEndpointsForwardActor(t *testing.T) {
	service := &stubRequestService{
		listResult: []models.MessageRequest{{ID: 1, SenderID: 7, ReceiverID: 42, Status: models.RequestStatusPending}},
	}
	handler := NewMessageRequestHandler(service, &stubConversationOpener{}, &stubBroadcaster{})
	app := newRequestApp(handler, "42")

	paths := map[string]string{
		"/api/v1/requests/incoming": "incoming",
		"/api/v1/requests/outgoing": "outgoing",
		"/api/v1/requests/approved": "approved",
	}
	for path, want := range paths {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test %s: %v", path, err)
		}

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, resp.StatusCode)
		}
		if service.lastActorID != 42 || service.listedMethod != want {
			t.Fatalf("%s: unexpected forwarding: actor=%d method=%q", path, service.lastActorID, service.listedMethod)
		}

		var body struct {
			Requests []models.MessageRequest `json:"requests"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatalf("%s: Decode: %v", path, err)
		}
		resp.Body.Close()
		if len(body.Requests) != 1 {
			t.Fatalf("%s: unexpected requests: %+v", path, body.Requests)
		}
	}
}

func TestStatusReturnsRelationshipState(t *testing.T) {
	service := &stubRequestService{
		statusResult: services.RequestStatus{Status: models.RequestStatusPending, IsSender: true},
	}
	handler := NewMessageRequestHandler(service, &stubConversationOpener{}, &stubBroadcaster{})
	app := newRequestApp(handler, "42")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/requests/status?target_id=7", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastActorID != 42 || service.lastTargetID != 7 {
		t.Fatalf("unexpected forwarded args: actor=%d target=%d", service.lastActorID, service.lastTargetID)
	}

	var body services.RequestStatus
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if body.Status != models.RequestStatusPending || !body.IsSender {
		t.Fatalf("unexpected status: %+v", body)
	}
}

func TestStatusRequiresTargetID(t *testing.T) {
	handler := NewMessageRequestHandler(&stubRequestService{}, &stubConversationOpener{}, &stubBroadcaster{})
	app := newRequestApp(handler, "42")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/requests/status", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}
