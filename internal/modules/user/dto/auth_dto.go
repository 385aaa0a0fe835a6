package dto

import (
	"anoa.com/blooddonation/internal/entity"
	profileDto "anoa.com/blooddonation/internal/modules/profile/dto"
	"anoa.com/blooddonation/pkg/token"
)

// RegisterInput is accepted as JSON or multipart form (with a "photo" file).
type RegisterInput struct {
	Name         string `json:"name" form:"name" binding:"required,max=200"`
	Email        string `json:"email" form:"email" binding:"required,email,max=100"`
	Password     string `json:"password" form:"password" binding:"required,min=6,max=72"`
	BloodGroup   string `json:"blood_group" form:"blood_group" binding:"required,bloodgroup"`
	City         string `json:"city" form:"city" binding:"required,max=100"`
	Role         string `json:"role" form:"role" binding:"omitempty,oneof=donor patient"`
	EverDonated  bool   `json:"ever_donated" form:"ever_donated"`
	LastDonation string `json:"last_donation" form:"last_donation" binding:"omitempty,datetime=2006-01-02"`
	Bio          string `json:"bio" form:"bio" binding:"max=2000"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshInput struct {
	Refresh string `json:"refresh" binding:"required"`
}

type AuthResponse struct {
	*token.Pair
	User        *entity.User                `json:"user"`
	Profile     *profileDto.ProfileResponse `json:"profile"`
	SearchToken string                      `json:"search_token,omitempty"`
}

type RefreshResponse struct {
	Access    string `json:"access"`
	TokenType string `json:"token_type"`
	ExpiresAt int64  `json:"expires_at"` // unix seconds
}
