package service

import (
	"context"

	"anoa.com/blooddonation/internal/entity"
	"anoa.com/blooddonation/internal/modules/eligibility"
	profileRepo "anoa.com/blooddonation/internal/modules/profile/repository"
	requestRepo "anoa.com/blooddonation/internal/modules/request/repository"
	"anoa.com/blooddonation/internal/modules/stat/dto"
)

type StatService interface {
	ComputeStats(ctx context.Context) (*dto.StatsResponse, error)
	ExportDonors(ctx context.Context) ([]byte, error)
}

type statService struct {
	profiles profileRepo.ProfileRepository
	requests requestRepo.RequestRepository
	engine   *eligibility.Engine
}

func NewStatService(profiles profileRepo.ProfileRepository, requests requestRepo.RequestRepository, engine *eligibility.Engine) StatService {
	return &statService{
		profiles: profiles,
		requests: requests,
		engine:   engine,
	}
}

// ComputeStats counts donors and patients, pending requests, and available
// donors per blood group. Only donor-role profiles count toward availability.
func (s *statService) ComputeStats(ctx context.Context) (*dto.StatsResponse, error) {
	totalDonors, err := s.profiles.CountByRole(ctx, entity.RoleDonor)
	if err != nil {
		return nil, err
	}
	totalPatients, err := s.profiles.CountByRole(ctx, entity.RolePatient)
	if err != nil {
		return nil, err
	}
	pending, err := s.requests.CountByStatus(ctx, entity.RequestStatusPending)
	if err != nil {
		return nil, err
	}

	donors, err := s.profiles.ListByRole(ctx, entity.RoleDonor)
	if err != nil {
		return nil, err
	}

	byGroup := make(map[string]int64, len(entity.BloodGroups))
	for _, g := range entity.BloodGroups {
		byGroup[string(g)] = 0
	}
	for _, d := range donors {
		if _, known := byGroup[string(d.BloodGroup)]; !known {
			continue
		}
		if s.engine.CanDonateNow(d) {
			byGroup[string(d.BloodGroup)]++
		}
	}

	return &dto.StatsResponse{
		TotalDonors:         totalDonors,
		TotalPatients:       totalPatients,
		RequestsPending:     pending,
		AvailabilityByGroup: byGroup,
	}, nil
}

func (s *statService) ExportDonors(ctx context.Context) ([]byte, error) {
	donors, err := s.profiles.ListByRole(ctx, entity.RoleDonor)
	if err != nil {
		return nil, err
	}
	return generateDonorExport(donors, s.engine)
}
