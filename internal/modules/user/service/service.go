package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"anoa.com/blooddonation/internal/entity"
	"anoa.com/blooddonation/internal/modules/eligibility"
	profileDto "anoa.com/blooddonation/internal/modules/profile/dto"
	search "anoa.com/blooddonation/internal/modules/search/service"
	"anoa.com/blooddonation/internal/modules/user/dto"
	"anoa.com/blooddonation/internal/modules/user/repository"
	"anoa.com/blooddonation/pkg/apperror"
	"anoa.com/blooddonation/pkg/clock"
	commonDto "anoa.com/blooddonation/pkg/dto"
	"anoa.com/blooddonation/pkg/storage"
	"anoa.com/blooddonation/pkg/token"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var errInvalidCredentials = fmt.Errorf("invalid credentials: %w", apperror.ErrUnauthorized)

type AuthService interface {
	Register(ctx context.Context, input dto.RegisterInput, photo *commonDto.PhotoFile) (*dto.AuthResponse, error)
	Login(ctx context.Context, input dto.LoginInput) (*dto.AuthResponse, error)
	Refresh(ctx context.Context, input dto.RefreshInput) (*dto.RefreshResponse, error)
}

type authService struct {
	repo         repository.UserRepository
	imageStorage storage.ImageStorage
	search       search.SearchService
	tokens       *token.Manager
	engine       *eligibility.Engine
	sanitizer    *bluemonday.Policy
	logger       *zap.Logger
}

// NewAuthService builds the service. imageStorage and searchSvc may be nil.
func NewAuthService(repo repository.UserRepository, imageStorage storage.ImageStorage, searchSvc search.SearchService, tokens *token.Manager, engine *eligibility.Engine, logger *zap.Logger) AuthService {
	return &authService{
		repo:         repo,
		imageStorage: imageStorage,
		search:       searchSvc,
		tokens:       tokens,
		engine:       engine,
		sanitizer:    bluemonday.StrictPolicy(),
		logger:       logger,
	}
}

func (s *authService) Register(ctx context.Context, input dto.RegisterInput, photo *commonDto.PhotoFile) (*dto.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))

	exists, err := s.repo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("email already registered: %w", apperror.ErrConflict)
	}

	role := entity.Role(input.Role)
	if role == "" {
		role = entity.RolePatient
	}

	profile := &entity.Profile{
		Name:        strings.TrimSpace(input.Name),
		BloodGroup:  entity.BloodGroup(input.BloodGroup),
		City:        strings.TrimSpace(input.City),
		Role:        role,
		EverDonated: input.EverDonated,
		Bio:         strings.TrimSpace(s.sanitizer.Sanitize(input.Bio)),
	}
	if profile.Name == "" || profile.City == "" {
		return nil, fmt.Errorf("name and city must not be empty: %w", apperror.ErrInvalidInput)
	}

	if input.LastDonation != "" {
		date, err := clock.ParseDate(input.LastDonation)
		if err != nil {
			return nil, fmt.Errorf("last_donation must be a date in YYYY-MM-DD format: %w", apperror.ErrInvalidInput)
		}
		if date.After(s.engine.Today()) {
			return nil, fmt.Errorf("last_donation cannot be in the future: %w", apperror.ErrInvalidInput)
		}
		profile.LastDonation = &date
	}
	if role == entity.RoleDonor && profile.EverDonated && profile.LastDonation == nil {
		return nil, fmt.Errorf("last_donation is required when ever_donated is true: %w", apperror.ErrInvalidInput)
	}
	profile.NormalizeDonation()

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	if photo != nil && photo.Reader != nil {
		if s.imageStorage == nil {
			return nil, fmt.Errorf("photo uploads are disabled: %w", apperror.ErrInvalidInput)
		}
		url, err := s.imageStorage.UploadImage(ctx, photo.Reader, "profiles", photo.FileName)
		if err != nil {
			return nil, err
		}
		profile.PhotoURL = &url
	}

	user := &entity.User{
		Email:        email,
		PasswordHash: string(hashed),
	}
	if err := s.repo.Create(ctx, user, profile); err != nil {
		if profile.PhotoURL != nil {
			if delErr := s.imageStorage.DeleteImage(ctx, *profile.PhotoURL); delErr != nil {
				s.logger.Warn("failed to delete orphan photo", zap.Error(delErr))
			}
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("email already registered: %w", apperror.ErrConflict)
		}
		return nil, err
	}

	profile.User = user
	if s.search != nil {
		if err := s.search.IndexDonor(profile); err != nil {
			s.logger.Warn("failed to index donor", zap.Uint("profile_id", profile.ID), zap.Error(err))
		}
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID.String()), zap.String("role", string(role)))
	return s.buildAuthResponse(user)
}

func (s *authService) Login(ctx context.Context, input dto.LoginInput) (*dto.AuthResponse, error) {
	user, err := s.repo.FindByEmail(ctx, strings.TrimSpace(input.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, errInvalidCredentials
	}

	return s.buildAuthResponse(user)
}

func (s *authService) Refresh(ctx context.Context, input dto.RefreshInput) (*dto.RefreshResponse, error) {
	claims, err := s.tokens.Parse(input.Refresh, token.TypeRefresh)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh token: %w", apperror.ErrUnauthorized)
	}

	user, err := s.repo.FindByID(ctx, uuidFromSubject(claims.Subject))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user no longer exists: %w", apperror.ErrUnauthorized)
		}
		return nil, err
	}

	access, expiresAt, err := s.tokens.IssueAccess(user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	return &dto.RefreshResponse{
		Access:    access,
		TokenType: "Bearer",
		ExpiresAt: expiresAt,
	}, nil
}

func (s *authService) buildAuthResponse(user *entity.User) (*dto.AuthResponse, error) {
	pair, err := s.tokens.IssuePair(user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	var searchToken string
	if s.search != nil {
		st, err := s.search.GenerateSearchToken()
		if err != nil {
			s.logger.Warn("failed to generate search token", zap.String("user_id", user.ID.String()), zap.Error(err))
		} else {
			searchToken = st
		}
	}

	profile := user.Profile
	if profile != nil {
		profile.User = user
	}

	return &dto.AuthResponse{
		Pair:        pair,
		User:        user,
		Profile:     profileDto.NewProfileResponse(profile, s.engine),
		SearchToken: searchToken,
	}, nil
}
