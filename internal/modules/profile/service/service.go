package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"anoa.com/blooddonation/internal/entity"
	"anoa.com/blooddonation/internal/modules/eligibility"
	profileDto "anoa.com/blooddonation/internal/modules/profile/dto"
	profileRepo "anoa.com/blooddonation/internal/modules/profile/repository"
	search "anoa.com/blooddonation/internal/modules/search/service"
	"anoa.com/blooddonation/pkg/apperror"
	"anoa.com/blooddonation/pkg/clock"
	commonDto "anoa.com/blooddonation/pkg/dto"
	"anoa.com/blooddonation/pkg/storage"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const photoFolder = "profiles"

type ProfileService interface {
	GetProfile(ctx context.Context, id uint) (*profileDto.ProfileResponse, error)
	GetCurrentProfile(ctx context.Context, userID uuid.UUID) (*profileDto.ProfileResponse, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, input profileDto.UpdateProfileInput, photo *commonDto.PhotoFile) (*profileDto.ProfileResponse, error)
	ListDonors(ctx context.Context, filter profileDto.DonorFilter) ([]*profileDto.ProfileResponse, error)
}

type profileService struct {
	repo         profileRepo.ProfileRepository
	imageStorage storage.ImageStorage
	search       search.SearchService
	engine       *eligibility.Engine
	sanitizer    *bluemonday.Policy
	logger       *zap.Logger
}

// NewProfileService builds the service. imageStorage and searchSvc may be nil.
func NewProfileService(repo profileRepo.ProfileRepository, imageStorage storage.ImageStorage, searchSvc search.SearchService, engine *eligibility.Engine, logger *zap.Logger) ProfileService {
	return &profileService{
		repo:         repo,
		imageStorage: imageStorage,
		search:       searchSvc,
		engine:       engine,
		sanitizer:    bluemonday.StrictPolicy(),
		logger:       logger,
	}
}

func (s *profileService) GetProfile(ctx context.Context, id uint) (*profileDto.ProfileResponse, error) {
	profile, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return profileDto.NewProfileResponse(profile, s.engine), nil
}

func (s *profileService) GetCurrentProfile(ctx context.Context, userID uuid.UUID) (*profileDto.ProfileResponse, error) {
	profile, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, notFound(err)
	}
	return profileDto.NewProfileResponse(profile, s.engine), nil
}

func (s *profileService) UpdateProfile(ctx context.Context, userID uuid.UUID, input profileDto.UpdateProfileInput, photo *commonDto.PhotoFile) (*profileDto.ProfileResponse, error) {
	profile, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, notFound(err)
	}

	if err := s.applyInput(profile, input); err != nil {
		return nil, err
	}
	profile.NormalizeDonation()

	var oldPhoto, newPhoto string
	if photo != nil && photo.Reader != nil {
		if s.imageStorage == nil {
			return nil, fmt.Errorf("photo uploads are disabled: %w", apperror.ErrInvalidInput)
		}
		url, err := s.imageStorage.UploadImage(ctx, photo.Reader, photoFolder, photo.FileName)
		if err != nil {
			return nil, err
		}
		if profile.PhotoURL != nil {
			oldPhoto = *profile.PhotoURL
		}
		newPhoto = url
		profile.PhotoURL = &url
	}

	if err := s.repo.Update(ctx, profile); err != nil {
		if newPhoto != "" {
			s.deletePhoto(ctx, newPhoto)
		}
		return nil, err
	}

	if oldPhoto != "" {
		s.deletePhoto(ctx, oldPhoto)
	}
	s.reindex(profile)

	return profileDto.NewProfileResponse(profile, s.engine), nil
}

func (s *profileService) applyInput(profile *entity.Profile, input profileDto.UpdateProfileInput) error {
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return fmt.Errorf("name must not be empty: %w", apperror.ErrInvalidInput)
		}
		profile.Name = name
	}
	if input.BloodGroup != nil {
		profile.BloodGroup = entity.BloodGroup(*input.BloodGroup)
	}
	if input.City != nil {
		city := strings.TrimSpace(*input.City)
		if city == "" {
			return fmt.Errorf("city must not be empty: %w", apperror.ErrInvalidInput)
		}
		profile.City = city
	}
	if input.Bio != nil {
		profile.Bio = strings.TrimSpace(s.sanitizer.Sanitize(*input.Bio))
	}
	if input.EverDonated != nil {
		profile.EverDonated = *input.EverDonated
	}
	if input.LastDonation != nil {
		if *input.LastDonation == "" {
			profile.LastDonation = nil
			return nil
		}
		date, err := clock.ParseDate(*input.LastDonation)
		if err != nil {
			return fmt.Errorf("last_donation must be a date in YYYY-MM-DD format: %w", apperror.ErrInvalidInput)
		}
		if date.After(s.engine.Today()) {
			return fmt.Errorf("last_donation cannot be in the future: %w", apperror.ErrInvalidInput)
		}
		profile.LastDonation = &date
	}
	return nil
}

// ListDonors returns donor profiles matching the filter, ordered by id.
// available=true keeps only donors out of their cooldown window.
func (s *profileService) ListDonors(ctx context.Context, filter profileDto.DonorFilter) ([]*profileDto.ProfileResponse, error) {
	profiles, err := s.repo.ListDonors(ctx, profileRepo.DonorFilter{
		BloodGroup: strings.TrimSpace(filter.Blood),
		City:       strings.TrimSpace(filter.City),
	})
	if err != nil {
		return nil, err
	}

	onlyAvailable := strings.EqualFold(filter.Available, "true")
	res := make([]*profileDto.ProfileResponse, 0, len(profiles))
	for _, p := range profiles {
		if onlyAvailable && !s.engine.CanDonateNow(p) {
			continue
		}
		res = append(res, profileDto.NewProfileResponse(p, s.engine))
	}
	return res, nil
}

func (s *profileService) deletePhoto(ctx context.Context, url string) {
	if err := s.imageStorage.DeleteImage(ctx, url); err != nil {
		s.logger.Warn("failed to delete profile photo", zap.String("url", url), zap.Error(err))
	}
}

func (s *profileService) reindex(profile *entity.Profile) {
	if s.search == nil {
		return
	}
	if err := s.search.IndexDonor(profile); err != nil {
		s.logger.Warn("failed to index donor", zap.Uint("profile_id", profile.ID), zap.Error(err))
	}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("profile not found: %w", apperror.ErrNotFound)
	}
	return err
}
