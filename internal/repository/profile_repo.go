package repository

import (
	"context"

	"github.com/Salahaddin50/islamic-marriage-app-sub003/internal/models"
)

type ProfileRepository struct {
	db DBTX
}

func NewProfileRepository(db DBTX) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) CreateEmpty(ctx context.Context, userID int64) error {
	query := `INSERT INTO profiles (user_id) VALUES ($1)`
	_, err := r.db.Exec(ctx, query, userID)
	return err
}

func (r *ProfileRepository) GetByUserID(ctx context.Context, userID int64) (*models.Profile, error) {
	query := `
		SELECT id, user_id, display_name, birth_year, country, city, bio,
			   photo_url, onboarding_complete, created_at, updated_at
		FROM profiles
		WHERE user_id = $1
	`
	var profile models.Profile
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&profile.ID,
		&profile.UserID,
		&profile.DisplayName,
		&profile.BirthYear,
		&profile.Country,
		&profile.City,
		&profile.Bio,
		&profile.PhotoURL,
		&profile.OnboardingComplete,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

type UpdateProfileInput struct {
	DisplayName *string
	BirthYear   *int
	Country     *string
	City        *string
	Bio         *string
	PhotoURL    *string
}

func (r *ProfileRepository) UpdatePartial(ctx context.Context, userID int64, req UpdateProfileInput) (*models.Profile, error) {
	query := `
		UPDATE profiles
		SET display_name = COALESCE($1, display_name),
			birth_year = COALESCE($2, birth_year),
			country = COALESCE($3, country),
			city = COALESCE($4, city),
			bio = COALESCE($5, bio),
			photo_url = COALESCE($6, photo_url),
			onboarding_complete = TRUE,
			updated_at = NOW()
		WHERE user_id = $7
		RETURNING id, user_id, display_name, birth_year, country, city, bio,
				  photo_url, onboarding_complete, created_at, updated_at
	`
	var profile models.Profile
	err := r.db.QueryRow(ctx, query,
		req.DisplayName,
		req.BirthYear,
		req.Country,
		req.City,
		req.Bio,
		req.PhotoURL,
		userID,
	).Scan(
		&profile.ID,
		&profile.UserID,
		&profile.DisplayName,
		&profile.BirthYear,
		&profile.Country,
		&profile.City,
		&profile.Bio,
		&profile.PhotoURL,
		&profile.OnboardingComplete,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}
