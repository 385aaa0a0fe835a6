package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"anoa.com/blooddonation/internal/entity"
	profileRepo "anoa.com/blooddonation/internal/modules/profile/repository"
	requestRepo "anoa.com/blooddonation/internal/modules/request/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// store is an in-memory stand-in for the profile and request tables.
type store struct {
	mu       sync.Mutex
	profiles map[uint]*entity.Profile
	requests map[uint]*entity.BloodRequest
	nextID   uint
	now      time.Time
}

func newStore(now time.Time) *store {
	return &store{
		profiles: map[uint]*entity.Profile{},
		requests: map[uint]*entity.BloodRequest{},
		now:      now,
	}
}

func (s *store) addProfile(id uint, role entity.Role, group entity.BloodGroup) *entity.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	userID := uuid.New()
	p := &entity.Profile{
		ID:         id,
		UserID:     userID,
		Name:       string(role) + "-" + string(group),
		BloodGroup: group,
		City:       "Bandung",
		Role:       role,
		User:       &entity.User{ID: userID, Email: userID.String() + "@example.com"},
	}
	s.profiles[id] = p
	return p
}

func (s *store) byUser(userID uuid.UUID) *entity.Profile {
	for _, p := range s.profiles {
		if p.UserID == userID {
			return p
		}
	}
	return nil
}

func clone(p *entity.Profile) *entity.Profile {
	if p == nil {
		return nil
	}
	cp := *p
	return &cp
}

type fakeProfiles struct{ s *store }

func (f fakeProfiles) FindByID(_ context.Context, id uint) (*entity.Profile, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if p, ok := f.s.profiles[id]; ok {
		return clone(p), nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f fakeProfiles) FindByUserID(_ context.Context, userID uuid.UUID) (*entity.Profile, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if p := f.s.byUser(userID); p != nil {
		return clone(p), nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f fakeProfiles) ListDonors(context.Context, profileRepo.DonorFilter) ([]*entity.Profile, error) {
	return nil, nil
}

func (f fakeProfiles) ListByRole(context.Context, entity.Role) ([]*entity.Profile, error) {
	return nil, nil
}

func (f fakeProfiles) CountByRole(context.Context, entity.Role) (int64, error) {
	return 0, nil
}

func (f fakeProfiles) Update(_ context.Context, p *entity.Profile) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.profiles[p.ID] = clone(p)
	return nil
}

type fakeRequests struct{ s *store }

func (f fakeRequests) withParties(r *entity.BloodRequest) *entity.BloodRequest {
	cp := *r
	if p := f.s.byUser(r.RequesterID); p != nil {
		cp.Requester = &entity.User{ID: p.UserID, Profile: clone(p)}
	}
	if p := f.s.byUser(r.DonorID); p != nil {
		cp.Donor = &entity.User{ID: p.UserID, Profile: clone(p)}
	}
	return &cp
}

func (f fakeRequests) Create(_ context.Context, req *entity.BloodRequest) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, r := range f.s.requests {
		if r.IsPending() && r.RequesterID == req.RequesterID && r.DonorID == req.DonorID {
			return gorm.ErrDuplicatedKey
		}
	}
	f.s.nextID++
	req.ID = f.s.nextID
	req.RequestedAt = f.s.now.Add(time.Duration(req.ID) * time.Second)
	cp := *req
	f.s.requests[req.ID] = &cp
	return nil
}

func (f fakeRequests) FindByID(_ context.Context, id uint) (*entity.BloodRequest, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if r, ok := f.s.requests[id]; ok {
		return f.withParties(r), nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f fakeRequests) HasPending(_ context.Context, requesterID, donorID uuid.UUID) (bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, r := range f.s.requests {
		if r.IsPending() && r.RequesterID == requesterID && r.DonorID == donorID {
			return true, nil
		}
	}
	return false, nil
}

func (f fakeRequests) list(match func(*entity.BloodRequest) bool) []*entity.BloodRequest {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []*entity.BloodRequest
	for _, r := range f.s.requests {
		if match(r) {
			out = append(out, f.withParties(r))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RequestedAt.Equal(out[j].RequestedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].RequestedAt.After(out[j].RequestedAt)
	})
	return out
}

func (f fakeRequests) ListByDonor(_ context.Context, donorID uuid.UUID) ([]*entity.BloodRequest, error) {
	return f.list(func(r *entity.BloodRequest) bool { return r.DonorID == donorID }), nil
}

func (f fakeRequests) ListByRequester(_ context.Context, requesterID uuid.UUID) ([]*entity.BloodRequest, error) {
	return f.list(func(r *entity.BloodRequest) bool { return r.RequesterID == requesterID }), nil
}

func (f fakeRequests) CountByStatus(_ context.Context, status entity.RequestStatus) (int64, error) {
	return int64(len(f.list(func(r *entity.BloodRequest) bool { return r.Status == status }))), nil
}

// Respond mirrors the conditional update: it only applies to a pending
// request owned by the donor.
func (f fakeRequests) Respond(_ context.Context, t requestRepo.Transition) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	r, ok := f.s.requests[t.RequestID]
	if !ok || r.DonorID != t.DonorID || !r.IsPending() {
		return requestRepo.ErrNotPending
	}
	r.Status = t.Status
	respondedAt := t.RespondedAt
	r.RespondedAt = &respondedAt
	if t.DonationDate != nil {
		p := f.s.byUser(t.DonorID)
		if p == nil {
			return gorm.ErrRecordNotFound
		}
		date := *t.DonationDate
		p.EverDonated = true
		p.LastDonation = &date
	}
	return nil
}
