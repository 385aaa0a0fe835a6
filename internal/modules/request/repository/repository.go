package repository

import (
	"context"
	"errors"
	"time"

	"anoa.com/blooddonation/internal/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrNotPending is returned when a conditional transition finds the request
// no longer pending (already answered, possibly by a concurrent call).
var ErrNotPending = errors.New("request is no longer pending")

// Transition describes a pending → terminal move. DonationDate is set when
// the donor profile must be marked as having donated on that date.
type Transition struct {
	RequestID    uint
	DonorID      uuid.UUID
	Status       entity.RequestStatus
	RespondedAt  time.Time
	DonationDate *time.Time
}

type RequestRepository interface {
	Create(ctx context.Context, req *entity.BloodRequest) error
	FindByID(ctx context.Context, id uint) (*entity.BloodRequest, error)
	HasPending(ctx context.Context, requesterID, donorID uuid.UUID) (bool, error)
	ListByDonor(ctx context.Context, donorID uuid.UUID) ([]*entity.BloodRequest, error)
	ListByRequester(ctx context.Context, requesterID uuid.UUID) ([]*entity.BloodRequest, error)
	CountByStatus(ctx context.Context, status entity.RequestStatus) (int64, error)
	Respond(ctx context.Context, t Transition) error
}

type requestRepository struct {
	db *gorm.DB
}

func NewRequestRepository(db *gorm.DB) RequestRepository {
	return &requestRepository{db: db}
}

func (r *requestRepository) Create(ctx context.Context, req *entity.BloodRequest) error {
	return r.db.WithContext(ctx).Omit("Requester", "Donor").Create(req).Error
}

func (r *requestRepository) FindByID(ctx context.Context, id uint) (*entity.BloodRequest, error) {
	var req entity.BloodRequest
	if err := r.withParties(r.db.WithContext(ctx)).
		Where("id = ?", id).
		First(&req).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *requestRepository) HasPending(ctx context.Context, requesterID, donorID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&entity.BloodRequest{}).
		Where("requester_id = ? AND donor_id = ? AND status = ?", requesterID, donorID, entity.RequestStatusPending).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *requestRepository) ListByDonor(ctx context.Context, donorID uuid.UUID) ([]*entity.BloodRequest, error) {
	var reqs []*entity.BloodRequest
	if err := r.withParties(r.db.WithContext(ctx)).
		Where("donor_id = ?", donorID).
		Order("requested_at DESC, id DESC").
		Find(&reqs).Error; err != nil {
		return nil, err
	}
	return reqs, nil
}

func (r *requestRepository) ListByRequester(ctx context.Context, requesterID uuid.UUID) ([]*entity.BloodRequest, error) {
	var reqs []*entity.BloodRequest
	if err := r.withParties(r.db.WithContext(ctx)).
		Where("requester_id = ?", requesterID).
		Order("requested_at DESC, id DESC").
		Find(&reqs).Error; err != nil {
		return nil, err
	}
	return reqs, nil
}

func (r *requestRepository) CountByStatus(ctx context.Context, status entity.RequestStatus) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&entity.BloodRequest{}).
		Where("status = ?", status).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Respond moves a pending request to its terminal status with a conditional
// update. When no row matches, the request was not pending anymore and
// ErrNotPending is returned; nothing is written in that case.
func (r *requestRepository) Respond(ctx context.Context, t Transition) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&entity.BloodRequest{}).
			Where("id = ? AND donor_id = ? AND status = ?", t.RequestID, t.DonorID, entity.RequestStatusPending).
			Updates(map[string]interface{}{
				"status":       t.Status,
				"responded_at": t.RespondedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotPending
		}

		if t.DonationDate != nil {
			res = tx.Model(&entity.Profile{}).
				Where("user_id = ?", t.DonorID).
				Updates(map[string]interface{}{
					"ever_donated":  true,
					"last_donation": *t.DonationDate,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return gorm.ErrRecordNotFound
			}
		}

		return nil
	})
}

func (r *requestRepository) withParties(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Requester").
		Preload("Requester.Profile").
		Preload("Donor").
		Preload("Donor.Profile")
}
