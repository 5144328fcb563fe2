package models

import "time"

type Profile struct {
	ID                 int64     `json:"id"`
	UserID             int64     `json:"user_id"`
	DisplayName        *string   `json:"display_name"`
	BirthYear          *int      `json:"birth_year"`
	Country            *string   `json:"country"`
	City               *string   `json:"city"`
	Bio                *string   `json:"bio"`
	PhotoURL           *string   `json:"photo_url"`
	OnboardingComplete bool      `json:"onboarding_complete"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}
