package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	profileDto "anoa.com/blooddonation/internal/modules/profile/dto"
	"anoa.com/blooddonation/pkg/apperror"
	commonDto "anoa.com/blooddonation/pkg/dto"
	"anoa.com/blooddonation/pkg/response"
	"anoa.com/blooddonation/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockProfileService struct {
	mock.Mock
}

func (m *mockProfileService) GetProfile(ctx context.Context, id uint) (*profileDto.ProfileResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*profileDto.ProfileResponse), args.Error(1)
}

func (m *mockProfileService) GetCurrentProfile(ctx context.Context, userID uuid.UUID) (*profileDto.ProfileResponse, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*profileDto.ProfileResponse), args.Error(1)
}

func (m *mockProfileService) UpdateProfile(ctx context.Context, userID uuid.UUID, input profileDto.UpdateProfileInput, photo *commonDto.PhotoFile) (*profileDto.ProfileResponse, error) {
	args := m.Called(ctx, userID, input, photo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*profileDto.ProfileResponse), args.Error(1)
}

func (m *mockProfileService) ListDonors(ctx context.Context, filter profileDto.DonorFilter) ([]*profileDto.ProfileResponse, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*profileDto.ProfileResponse), args.Error(1)
}

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	if err := validator.RegisterCustomValidations(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func newRouter(h *ProfileHandler, userID uuid.UUID) *gin.Engine {
	r := gin.New()
	r.GET("/donors", h.ListDonors)
	r.GET("/profile/:id", h.GetProfile)
	authed := r.Group("", func(c *gin.Context) {
		c.Set(response.ContextUserID, userID.String())
	})
	authed.PUT("/profile/update", h.UpdateProfile)
	return r
}

func TestListDonors_BindsQuery(t *testing.T) {
	svc := new(mockProfileService)
	svc.On("ListDonors", mock.Anything, profileDto.DonorFilter{Blood: "O+", City: "bandung", Available: "true"}).
		Return([]*profileDto.ProfileResponse{{ID: 1, BloodGroup: "O+", CanDonateNow: true}}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/donors?blood=O%2B&city=bandung&available=true", nil)
	newRouter(NewProfileHandler(svc), uuid.New()).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body, 1)
	assert.Equal(t, true, body[0]["can_donate_now"])
}

func TestListDonors_UnencodedPlusInBloodGroup(t *testing.T) {
	cases := map[string]string{
		"/donors?blood=O+":      "O+",
		"/donors?blood=AB+":     "AB+",
		"/donors?blood=O-":      "O-",
		"/donors?blood=%20B%2B": "B+",
		"/donors?city=bandung":  "",
	}

	for url, want := range cases {
		t.Run(url, func(t *testing.T) {
			svc := new(mockProfileService)
			svc.On("ListDonors", mock.Anything, mock.MatchedBy(func(f profileDto.DonorFilter) bool {
				return f.Blood == want
			})).Return([]*profileDto.ProfileResponse{}, nil)

			w := httptest.NewRecorder()
			newRouter(NewProfileHandler(svc), uuid.New()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, url, nil))

			assert.Equal(t, http.StatusOK, w.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestGetProfile_IDOutOfRange(t *testing.T) {
	svc := new(mockProfileService)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/profile/9223372036854775808", nil)
	newRouter(NewProfileHandler(svc), uuid.New()).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "GetProfile", mock.Anything, mock.Anything)
}

func TestGetProfile_InvalidID(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/profile/abc", nil)
	newRouter(NewProfileHandler(new(mockProfileService)), uuid.New()).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), apperror.KindValidation)
}

func TestGetProfile_NotFound(t *testing.T) {
	svc := new(mockProfileService)
	svc.On("GetProfile", mock.Anything, uint(9)).Return(nil, apperror.ErrNotFound)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/profile/9", nil)
	newRouter(NewProfileHandler(svc), uuid.New()).ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), apperror.KindNotFound)
}

func TestUpdateProfile_RejectsUnknownBloodGroup(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/profile/update", strings.NewReader(`{"blood_group":"C+"}`))
	req.Header.Set("Content-Type", "application/json")
	newRouter(NewProfileHandler(new(mockProfileService)), uuid.New()).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "blood_group must be one of")
}

func TestUpdateProfile_PassesAllowListedFields(t *testing.T) {
	svc := new(mockProfileService)
	userID := uuid.New()
	svc.On("UpdateProfile", mock.Anything, userID, mock.MatchedBy(func(in profileDto.UpdateProfileInput) bool {
		return in.City != nil && *in.City == "Bogor" && in.Name == nil
	}), (*commonDto.PhotoFile)(nil)).Return(&profileDto.ProfileResponse{ID: 3, City: "Bogor"}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/profile/update", strings.NewReader(`{"city":"Bogor","role":"admin"}`))
	req.Header.Set("Content-Type", "application/json")
	newRouter(NewProfileHandler(svc), userID).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}
