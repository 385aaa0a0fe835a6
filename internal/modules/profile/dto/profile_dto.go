package dto

import (
	"strings"
	"time"

	"anoa.com/blooddonation/internal/entity"
	"anoa.com/blooddonation/internal/modules/eligibility"
	"anoa.com/blooddonation/pkg/clock"
	"github.com/google/uuid"
)

// UpdateProfileInput lists the fields a user may change. Anything else in the
// payload is ignored. An empty last_donation clears the date.
type UpdateProfileInput struct {
	Name         *string `json:"name" form:"name" binding:"omitempty,min=1,max=200"`
	BloodGroup   *string `json:"blood_group" form:"blood_group" binding:"omitempty,bloodgroup"`
	City         *string `json:"city" form:"city" binding:"omitempty,min=1,max=100"`
	Bio          *string `json:"bio" form:"bio" binding:"omitempty,max=2000"`
	EverDonated  *bool   `json:"ever_donated" form:"ever_donated"`
	LastDonation *string `json:"last_donation" form:"last_donation" binding:"omitempty,datetime=2006-01-02"`
}

type DonorFilter struct {
	Blood     string `form:"blood"`
	City      string `form:"city"`
	Available string `form:"available"`
}

// Normalize restores a "+" that an unencoded query string turned into a
// trailing space, so ?blood=O+ means O+ and not "O ".
func (f *DonorFilter) Normalize() {
	blood := strings.TrimLeft(f.Blood, " ")
	if strings.HasSuffix(blood, " ") {
		blood = strings.TrimRight(blood, " ") + "+"
	}
	f.Blood = blood
}

type UserSummary struct {
	ID      uuid.UUID `json:"id"`
	Email   string    `json:"email"`
	IsStaff bool      `json:"is_staff"`
}

type ProfileResponse struct {
	ID                   uint         `json:"id"`
	User                 *UserSummary `json:"user,omitempty"`
	Name                 string       `json:"name"`
	BloodGroup           string       `json:"blood_group"`
	City                 string       `json:"city"`
	Role                 string       `json:"role"`
	EverDonated          bool         `json:"ever_donated"`
	LastDonation         *string      `json:"last_donation"`
	Bio                  string       `json:"bio"`
	Photo                *string      `json:"photo"`
	DateCreated          time.Time    `json:"date_created"`
	CanDonateNow         bool         `json:"can_donate_now"`
	NextPossibleDonation *string      `json:"next_possible_donation"`
}

// NewProfileResponse renders a profile with its computed eligibility fields.
func NewProfileResponse(p *entity.Profile, engine *eligibility.Engine) *ProfileResponse {
	if p == nil {
		return nil
	}

	res := &ProfileResponse{
		ID:                   p.ID,
		Name:                 p.Name,
		BloodGroup:           string(p.BloodGroup),
		City:                 p.City,
		Role:                 string(p.Role),
		EverDonated:          p.EverDonated,
		LastDonation:         clock.FormatDate(p.LastDonation),
		Bio:                  p.Bio,
		Photo:                p.PhotoURL,
		DateCreated:          p.CreatedAt,
		CanDonateNow:         engine.CanDonateNow(p),
		NextPossibleDonation: clock.FormatDate(engine.NextPossibleDonationDate(p)),
	}
	if p.User != nil {
		res.User = &UserSummary{
			ID:      p.User.ID,
			Email:   p.User.Email,
			IsStaff: p.User.IsStaff,
		}
	}
	return res
}
