package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"anoa.com/blooddonation/internal/entity"
	profileRepo "anoa.com/blooddonation/internal/modules/profile/repository"
	userRepo "anoa.com/blooddonation/internal/modules/user/repository"
	"anoa.com/blooddonation/pkg/response"
	"anoa.com/blooddonation/pkg/token"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type stubUsers struct {
	userRepo.UserRepository
	users map[uuid.UUID]*entity.User
}

func (s stubUsers) FindByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type stubProfiles struct {
	profileRepo.ProfileRepository
	profiles map[uuid.UUID]*entity.Profile
}

func (s stubProfiles) FindByUserID(_ context.Context, id uuid.UUID) (*entity.Profile, error) {
	if p, ok := s.profiles[id]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type fixture struct {
	tokens  *token.Manager
	staff   uuid.UUID
	donor   uuid.UUID
	patient uuid.UUID
	router  *gin.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &fixture{
		tokens:  token.NewManager("middleware-secret", time.Minute, time.Hour),
		staff:   uuid.New(),
		donor:   uuid.New(),
		patient: uuid.New(),
	}
	users := stubUsers{users: map[uuid.UUID]*entity.User{
		f.staff: {ID: f.staff, IsStaff: true},
		f.donor: {ID: f.donor},
	}}
	profiles := stubProfiles{profiles: map[uuid.UUID]*entity.Profile{
		f.donor:   {UserID: f.donor, Role: entity.RoleDonor},
		f.patient: {UserID: f.patient, Role: entity.RolePatient},
	}}
	m := NewAuthMiddleware(f.tokens, users, profiles)

	ok := func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(response.ContextUserID))
	}
	r := gin.New()
	authed := r.Group("", m.RequireAuth())
	authed.GET("/me", ok)
	authed.GET("/admin", m.RequireStaff(), ok)
	authed.GET("/donor-only", m.RequireRole(entity.RoleDonor), ok)
	f.router = r
	return f
}

func (f *fixture) do(t *testing.T, path, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	f.router.ServeHTTP(w, req)
	return w
}

func (f *fixture) access(t *testing.T, id uuid.UUID) string {
	t.Helper()
	pair, err := f.tokens.IssuePair(id, "x@example.com")
	require.NoError(t, err)
	return pair.Access
}

func TestRequireAuth(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, "/me", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, "/me", "garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, "/me", f.access(t, f.donor))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, f.donor.String(), w.Body.String())
}

func TestRequireAuth_RejectsRefreshToken(t *testing.T) {
	f := newFixture(t)
	pair, err := f.tokens.IssuePair(f.donor, "x@example.com")
	require.NoError(t, err)

	w := f.do(t, "/me", pair.Refresh)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuth_QueryToken(t *testing.T) {
	f := newFixture(t)

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me?token="+f.access(t, f.patient), nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireStaff(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusOK, f.do(t, "/admin", f.access(t, f.staff)).Code)
	assert.Equal(t, http.StatusForbidden, f.do(t, "/admin", f.access(t, f.donor)).Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(t, "/admin", f.access(t, uuid.New())).Code)
}

func TestRequireRole(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusOK, f.do(t, "/donor-only", f.access(t, f.donor)).Code)
	assert.Equal(t, http.StatusForbidden, f.do(t, "/donor-only", f.access(t, f.patient)).Code)
	assert.Equal(t, http.StatusForbidden, f.do(t, "/donor-only", f.access(t, f.staff)).Code)
}
