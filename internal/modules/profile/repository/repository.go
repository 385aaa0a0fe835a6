package repository

import (
	"context"
	"strings"

	"anoa.com/blooddonation/internal/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DonorFilter narrows the donor listing. Empty fields are ignored.
type DonorFilter struct {
	BloodGroup string
	City       string
}

type ProfileRepository interface {
	FindByID(ctx context.Context, id uint) (*entity.Profile, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) (*entity.Profile, error)
	ListDonors(ctx context.Context, filter DonorFilter) ([]*entity.Profile, error)
	ListByRole(ctx context.Context, role entity.Role) ([]*entity.Profile, error)
	CountByRole(ctx context.Context, role entity.Role) (int64, error)
	Update(ctx context.Context, profile *entity.Profile) error
}

type profileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) FindByID(ctx context.Context, id uint) (*entity.Profile, error) {
	var profile entity.Profile
	if err := r.db.WithContext(ctx).
		Preload("User").
		Where("id = ?", id).
		First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *profileRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*entity.Profile, error) {
	var profile entity.Profile
	if err := r.db.WithContext(ctx).
		Preload("User").
		Where("user_id = ?", userID).
		First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// ListDonors returns donor-role profiles ordered by id. Blood group is an exact
// case-insensitive match, city a case-insensitive substring match.
func (r *profileRepository) ListDonors(ctx context.Context, filter DonorFilter) ([]*entity.Profile, error) {
	query := r.db.WithContext(ctx).
		Preload("User").
		Where("role = ?", entity.RoleDonor)

	if filter.BloodGroup != "" {
		query = query.Where("LOWER(blood_group) = LOWER(?)", filter.BloodGroup)
	}
	if filter.City != "" {
		query = query.Where("LOWER(city) LIKE LOWER(?) ESCAPE '\\'", "%"+escapeLike(filter.City)+"%")
	}

	var profiles []*entity.Profile
	if err := query.Order("id ASC").Find(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}

func (r *profileRepository) ListByRole(ctx context.Context, role entity.Role) ([]*entity.Profile, error) {
	var profiles []*entity.Profile
	if err := r.db.WithContext(ctx).
		Preload("User").
		Where("role = ?", role).
		Order("id ASC").
		Find(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}

func (r *profileRepository) CountByRole(ctx context.Context, role entity.Role) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&entity.Profile{}).
		Where("role = ?", role).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Update writes the user-editable columns of the profile.
func (r *profileRepository) Update(ctx context.Context, profile *entity.Profile) error {
	return r.db.WithContext(ctx).
		Model(profile).
		Select("name", "blood_group", "city", "bio", "ever_donated", "last_donation", "photo_url").
		Updates(profile).Error
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
