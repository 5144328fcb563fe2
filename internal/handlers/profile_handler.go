package handlers

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/Salahaddin50/islamic-marriage-app-sub003/internal/repository"
	"github.com/Salahaddin50/islamic-marriage-app-sub003/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const maxPhotoSizeBytes = 5 * 1024 * 1024

type ProfileHandler struct {
	profileRepo    *repository.ProfileRepository
	storageService services.StorageService
}

type updateProfileRequest struct {
	DisplayName *string `json:"display_name"`
	BirthYear   *int    `json:"birth_year"`
	Country     *string `json:"country"`
	City        *string `json:"city"`
	Bio         *string `json:"bio"`
}

func NewProfileHandler(profileRepo *repository.ProfileRepository, storageService services.StorageService) *ProfileHandler {
	return &ProfileHandler{
		profileRepo:    profileRepo,
		storageService: storageService,
	}
}

func (h *ProfileHandler) GetProfile(c *fiber.Ctx) error {
	userID, err := parseAuthedUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	profile, err := h.profileRepo.GetByUserID(c.Context(), userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Profile not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch profile"})
	}

	return c.JSON(fiber.Map{"profile": profile})
}

func (h *ProfileHandler) UpdateProfile(c *fiber.Ctx) error {
	userID, err := parseAuthedUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req updateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if req.BirthYear != nil {
		currentYear := time.Now().Year()
		if *req.BirthYear < 1900 || *req.BirthYear > currentYear-18 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid birth year"})
		}
	}

	profile, err := h.profileRepo.UpdatePartial(c.Context(), userID, repository.UpdateProfileInput{
		DisplayName: req.DisplayName,
		BirthYear:   req.BirthYear,
		Country:     req.Country,
		City:        req.City,
		Bio:         req.Bio,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Profile not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update profile"})
	}

	return c.JSON(fiber.Map{"profile": profile})
}

func (h *ProfileHandler) UploadPhoto(c *fiber.Ctx) error {
	if h.storageService == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Storage service is not configured"})
	}

	userID, err := parseAuthedUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	fileHeader, err := c.FormFile("photo")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "photo file is required"})
	}
	if fileHeader.Size <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "photo file is empty"})
	}
	if fileHeader.Size > maxPhotoSizeBytes {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "photo file exceeds 5MB limit"})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to open photo file"})
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".webp":
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "photo must be a jpg, jpeg, png, or webp file"})
	}

	filename := fmt.Sprintf("%d-%s%s", userID, uuid.NewString(), ext)
	photoURL, err := h.storageService.UploadFile(c.Context(), file, filename, "profiles/photos")
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to upload photo"})
	}

	currentProfile, err := h.profileRepo.GetByUserID(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch profile"})
	}
	if currentProfile.PhotoURL != nil && *currentProfile.PhotoURL != "" && *currentProfile.PhotoURL != photoURL {
		_ = h.storageService.DeleteFile(c.Context(), *currentProfile.PhotoURL)
	}

	profile, err := h.profileRepo.UpdatePartial(c.Context(), userID, repository.UpdateProfileInput{
		PhotoURL: &photoURL,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save photo"})
	}

	return c.JSON(fiber.Map{
		"photo_url": photoURL,
		"profile":   profile,
	})
}
