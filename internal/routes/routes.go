package routes

import (
	"github.com/Salahaddin50/islamic-marriage-app-sub003/internal/config"
	"github.com/Salahaddin50/islamic-marriage-app-sub003/internal/handlers"
	"github.com/Salahaddin50/islamic-marriage-app-sub003/internal/middleware"
	"github.com/Salahaddin50/islamic-marriage-app-sub003/internal/repository"
	"github.com/Salahaddin50/islamic-marriage-app-sub003/internal/services"
	chatws "github.com/Salahaddin50/islamic-marriage-app-sub003/internal/websocket"
	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
)

func RegisterRoutes(app *fiber.App, cfg *config.Config, db *pgxpool.Pool) {
	userRepo := repository.NewUserRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	requestRepo := repository.NewMessageRequestRepository(db)
	conversationRepo := repository.NewConversationRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	var storageService services.StorageService
	if cfg.SupabaseURL != "" && cfg.SupabaseBucket != "" && cfg.SupabaseServiceKey != "" {
		storageService = services.NewSupabaseStorageService(cfg.SupabaseURL, cfg.SupabaseBucket, cfg.SupabaseServiceKey)
	}

	authHandler := handlers.NewAuthHandler(db, userRepo, profileRepo, cfg.JWTSecret)
	profileHandler := handlers.NewProfileHandler(profileRepo, storageService)

	chatHub := chatws.NewHub()
	go chatHub.Run()
	chatService := services.NewChatService(conversationRepo, messageRepo, userRepo)
	chatHandler := handlers.NewChatHandler(chatService, chatHub, cfg.JWTSecret)

	requestService := services.NewMessageRequestService(requestRepo, userRepo)
	requestHandler := handlers.NewMessageRequestHandler(requestService, chatService, chatHub)

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Get("/me", middleware.AuthRequired(cfg.JWTSecret), authHandler.Me)

	authProtected := api.Group("/v1", middleware.AuthRequired(cfg.JWTSecret))

	profile := authProtected.Group("/profile")
	profile.Get("", profileHandler.GetProfile)
	profile.Put("", profileHandler.UpdateProfile)
	profile.Post("/photo", profileHandler.UploadPhoto)

	requests := authProtected.Group("/requests")
	requests.Post("", requestHandler.Send)
	requests.Get("/incoming", requestHandler.ListIncoming)
	requests.Get("/outgoing", requestHandler.ListOutgoing)
	requests.Get("/approved", requestHandler.ListApproved)
	requests.Get("/status", requestHandler.Status)
	requests.Post("/:id/accept", requestHandler.Accept)
	requests.Post("/:id/reject", requestHandler.Reject)
	requests.Delete("/:id", requestHandler.Cancel)

	conversations := authProtected.Group("/conversations")
	conversations.Get("", chatHandler.ListConversations)
	conversations.Post("", chatHandler.OpenConversation)
	conversations.Get("/:id/messages", chatHandler.GetMessages)
	conversations.Post("/:id/messages", chatHandler.SendMessage)
	conversations.Post("/:id/read", chatHandler.MarkRead)

	api.Use("/v1/ws", chatHandler.WebSocketAuth)
	api.Get("/v1/ws", websocket.New(chatHandler.HandleWebSocket))
}
