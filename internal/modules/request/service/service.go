package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"anoa.com/blooddonation/internal/entity"
	"anoa.com/blooddonation/internal/modules/eligibility"
	notifService "anoa.com/blooddonation/internal/modules/notification/service"
	profileRepo "anoa.com/blooddonation/internal/modules/profile/repository"
	"anoa.com/blooddonation/internal/modules/request/dto"
	requestRepo "anoa.com/blooddonation/internal/modules/request/repository"
	search "anoa.com/blooddonation/internal/modules/search/service"
	"anoa.com/blooddonation/pkg/apperror"
	"anoa.com/blooddonation/pkg/ratelimiter"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const sendRequestAction = "send_request"

type RequestService interface {
	CreateRequest(ctx context.Context, requesterID uuid.UUID, donorProfileID uint, input dto.CreateRequestInput) (*dto.RequestResponse, error)
	RespondToRequest(ctx context.Context, donorID uuid.UUID, requestID uint, input dto.RespondInput) (*dto.RequestResponse, error)
	ListForDonor(ctx context.Context, donorID uuid.UUID) ([]*dto.RequestResponse, error)
	ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*dto.RequestResponse, error)
}

type requestService struct {
	requests      requestRepo.RequestRepository
	profiles      profileRepo.ProfileRepository
	notifications notifService.NotificationService
	search        search.SearchService
	limiter       *ratelimiter.Limiter
	rateWindow    time.Duration
	engine        *eligibility.Engine
	sanitizer     *bluemonday.Policy
	logger        *zap.Logger
}

type Deps struct {
	Requests      requestRepo.RequestRepository
	Profiles      profileRepo.ProfileRepository
	Notifications notifService.NotificationService // optional
	Search        search.SearchService             // optional
	Limiter       *ratelimiter.Limiter
	RateWindow    time.Duration
	Engine        *eligibility.Engine
	Logger        *zap.Logger
}

func NewRequestService(d Deps) RequestService {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &requestService{
		requests:      d.Requests,
		profiles:      d.Profiles,
		notifications: d.Notifications,
		search:        d.Search,
		limiter:       d.Limiter,
		rateWindow:    d.RateWindow,
		engine:        d.Engine,
		sanitizer:     bluemonday.StrictPolicy(),
		logger:        logger,
	}
}

func (s *requestService) CreateRequest(ctx context.Context, requesterID uuid.UUID, donorProfileID uint, input dto.CreateRequestInput) (*dto.RequestResponse, error) {
	requester, err := s.requireRole(ctx, requesterID, entity.RolePatient, "only patients can send blood requests")
	if err != nil {
		return nil, err
	}

	donor, err := s.profiles.FindByID(ctx, donorProfileID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("donor not found: %w", apperror.ErrNotFound)
		}
		return nil, err
	}
	if donor.Role != entity.RoleDonor {
		return nil, fmt.Errorf("profile %d is not a donor: %w", donor.ID, apperror.ErrInvalidInput)
	}
	if donor.UserID == requesterID {
		return nil, fmt.Errorf("cannot send a request to yourself: %w", apperror.ErrInvalidInput)
	}
	if donor.BloodGroup != requester.BloodGroup {
		return nil, fmt.Errorf("blood group must match: %w", apperror.ErrInvalidInput)
	}
	if !s.engine.CanDonateNow(donor) {
		next := s.engine.NextPossibleDonationDate(donor)
		return nil, fmt.Errorf("donor not available until %s: %w", next.Format(time.DateOnly), apperror.ErrInvalidInput)
	}

	pending, err := s.requests.HasPending(ctx, requesterID, donor.UserID)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, fmt.Errorf("a pending request to this donor already exists: %w", apperror.ErrConflict)
	}

	release, err := s.limiter.Acquire(ctx, requesterID, sendRequestAction, s.rateWindow)
	if err != nil {
		return nil, err
	}

	req := &entity.BloodRequest{
		RequesterID: requesterID,
		DonorID:     donor.UserID,
		Message:     strings.TrimSpace(s.sanitizer.Sanitize(input.Message)),
		Status:      entity.RequestStatusPending,
	}
	if err := s.requests.Create(ctx, req); err != nil {
		release()
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("a pending request to this donor already exists: %w", apperror.ErrConflict)
		}
		return nil, err
	}

	s.notify(ctx, &entity.Notification{
		UserID:    donor.UserID,
		ActorID:   requesterID,
		RequestID: req.ID,
		Type:      entity.NotificationRequestReceived,
		Message:   fmt.Sprintf("%s (%s) sent you a blood request", requester.Name, requester.BloodGroup),
	})

	return dto.NewRequestResponse(req, requester, donor, s.engine), nil
}

func (s *requestService) RespondToRequest(ctx context.Context, donorID uuid.UUID, requestID uint, input dto.RespondInput) (*dto.RequestResponse, error) {
	decision := entity.Decision(strings.ToLower(strings.TrimSpace(input.Action)))
	status, ok := decision.Status()
	if !ok {
		return nil, fmt.Errorf("action must be accept or reject: %w", apperror.ErrInvalidInput)
	}

	donor, err := s.requireRole(ctx, donorID, entity.RoleDonor, "only donors can respond to blood requests")
	if err != nil {
		return nil, err
	}

	req, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("request not found: %w", apperror.ErrNotFound)
		}
		return nil, err
	}
	if req.DonorID != donorID {
		return nil, fmt.Errorf("request is addressed to another donor: %w", apperror.ErrForbidden)
	}
	if !req.IsPending() {
		return nil, fmt.Errorf("request already responded: %w", apperror.ErrState)
	}

	respondedAt := s.engine.Now().UTC()
	transition := requestRepo.Transition{
		RequestID:   req.ID,
		DonorID:     donorID,
		Status:      status,
		RespondedAt: respondedAt,
	}
	var today time.Time
	if decision == entity.DecisionAccept {
		today = s.engine.Today()
		transition.DonationDate = &today
	}

	if err := s.requests.Respond(ctx, transition); err != nil {
		if errors.Is(err, requestRepo.ErrNotPending) {
			return nil, fmt.Errorf("request already responded: %w", apperror.ErrState)
		}
		return nil, err
	}

	req.Status = status
	req.RespondedAt = &respondedAt
	if decision == entity.DecisionAccept {
		donor.EverDonated = true
		donor.LastDonation = &today
		s.reindex(donor)
	}

	notifType := entity.NotificationRequestRejected
	if decision == entity.DecisionAccept {
		notifType = entity.NotificationRequestAccepted
	}
	s.notify(ctx, &entity.Notification{
		UserID:    req.RequesterID,
		ActorID:   donorID,
		RequestID: req.ID,
		Type:      notifType,
		Message:   fmt.Sprintf("%s %s your blood request", donor.Name, status),
	})

	return dto.NewRequestResponse(req, dto.ProfileOf(req.Requester), donor, s.engine), nil
}

func (s *requestService) ListForDonor(ctx context.Context, donorID uuid.UUID) ([]*dto.RequestResponse, error) {
	if _, err := s.requireRole(ctx, donorID, entity.RoleDonor, "only donors have incoming requests"); err != nil {
		return nil, err
	}

	reqs, err := s.requests.ListByDonor(ctx, donorID)
	if err != nil {
		return nil, err
	}
	return s.toResponses(reqs), nil
}

func (s *requestService) ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*dto.RequestResponse, error) {
	if _, err := s.requireRole(ctx, patientID, entity.RolePatient, "only patients have sent requests"); err != nil {
		return nil, err
	}

	reqs, err := s.requests.ListByRequester(ctx, patientID)
	if err != nil {
		return nil, err
	}
	return s.toResponses(reqs), nil
}

func (s *requestService) requireRole(ctx context.Context, userID uuid.UUID, role entity.Role, msg string) (*entity.Profile, error) {
	profile, err := s.profiles.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%s: %w", msg, apperror.ErrForbidden)
		}
		return nil, err
	}
	if profile.Role != role {
		return nil, fmt.Errorf("%s: %w", msg, apperror.ErrForbidden)
	}
	return profile, nil
}

func (s *requestService) toResponses(reqs []*entity.BloodRequest) []*dto.RequestResponse {
	res := make([]*dto.RequestResponse, 0, len(reqs))
	for _, r := range reqs {
		res = append(res, dto.NewRequestResponse(r, dto.ProfileOf(r.Requester), dto.ProfileOf(r.Donor), s.engine))
	}
	return res
}

// notify never fails the calling operation.
func (s *requestService) notify(ctx context.Context, n *entity.Notification) {
	if s.notifications == nil {
		return
	}
	if err := s.notifications.CreateNotification(ctx, n); err != nil {
		s.logger.Warn("failed to create notification",
			zap.String("type", string(n.Type)),
			zap.Uint("request_id", n.RequestID),
			zap.Error(err),
		)
	}
}

func (s *requestService) reindex(profile *entity.Profile) {
	if s.search == nil {
		return
	}
	if err := s.search.IndexDonor(profile); err != nil {
		s.logger.Warn("failed to index donor", zap.Uint("profile_id", profile.ID), zap.Error(err))
	}
}
