package dto

import (
	"time"

	"anoa.com/blooddonation/internal/entity"
	"anoa.com/blooddonation/internal/modules/eligibility"
	profileDto "anoa.com/blooddonation/internal/modules/profile/dto"
)

type CreateRequestInput struct {
	Message string `json:"message" form:"message" binding:"max=1000"`
}

type RespondInput struct {
	Action string `json:"action" form:"action" binding:"required,oneof=accept reject"`
}

type RequestResponse struct {
	ID          uint                        `json:"id"`
	Requester   *profileDto.ProfileResponse `json:"requester"`
	Donor       *profileDto.ProfileResponse `json:"donor"`
	Message     string                      `json:"message"`
	Status      string                      `json:"status"`
	RequestedAt time.Time                   `json:"requested_at"`
	RespondedAt *time.Time                  `json:"responded_at"`
}

// NewRequestResponse embeds both parties' profiles. Either profile may be nil.
func NewRequestResponse(req *entity.BloodRequest, requester, donor *entity.Profile, engine *eligibility.Engine) *RequestResponse {
	return &RequestResponse{
		ID:          req.ID,
		Requester:   profileDto.NewProfileResponse(requester, engine),
		Donor:       profileDto.NewProfileResponse(donor, engine),
		Message:     req.Message,
		Status:      string(req.Status),
		RequestedAt: req.RequestedAt,
		RespondedAt: req.RespondedAt,
	}
}

// ProfileOf returns the profile preloaded on a request party.
func ProfileOf(u *entity.User) *entity.Profile {
	if u == nil {
		return nil
	}
	return u.Profile
}
