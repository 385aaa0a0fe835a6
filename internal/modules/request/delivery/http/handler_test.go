package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"anoa.com/blooddonation/internal/modules/request/dto"
	"anoa.com/blooddonation/pkg/apperror"
	"anoa.com/blooddonation/pkg/ratelimiter"
	"anoa.com/blooddonation/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockRequestService struct {
	mock.Mock
}

func (m *mockRequestService) CreateRequest(ctx context.Context, requesterID uuid.UUID, donorProfileID uint, input dto.CreateRequestInput) (*dto.RequestResponse, error) {
	args := m.Called(ctx, requesterID, donorProfileID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.RequestResponse), args.Error(1)
}

func (m *mockRequestService) RespondToRequest(ctx context.Context, donorID uuid.UUID, requestID uint, input dto.RespondInput) (*dto.RequestResponse, error) {
	args := m.Called(ctx, donorID, requestID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.RequestResponse), args.Error(1)
}

func (m *mockRequestService) ListForDonor(ctx context.Context, donorID uuid.UUID) ([]*dto.RequestResponse, error) {
	args := m.Called(ctx, donorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*dto.RequestResponse), args.Error(1)
}

func (m *mockRequestService) ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*dto.RequestResponse, error) {
	args := m.Called(ctx, patientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*dto.RequestResponse), args.Error(1)
}

func newRouter(svc *mockRequestService, userID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewRequestHandler(svc)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(response.ContextUserID, userID.String())
	})
	r.POST("/requests/send/:donor_id", h.SendRequest)
	r.POST("/requests/respond/:request_id", h.RespondToRequest)
	r.GET("/requests/donor", h.ListDonorRequests)
	return r
}

func TestSendRequest_Created(t *testing.T) {
	svc := new(mockRequestService)
	userID := uuid.New()
	svc.On("CreateRequest", mock.Anything, userID, uint(5), dto.CreateRequestInput{Message: "urgent"}).
		Return(&dto.RequestResponse{ID: 1, Status: "pending"}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/requests/send/5", strings.NewReader(`{"message":"urgent"}`))
	req.Header.Set("Content-Type", "application/json")
	newRouter(svc, userID).ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"pending"`)
}

func TestSendRequest_EmptyBody(t *testing.T) {
	svc := new(mockRequestService)
	userID := uuid.New()
	svc.On("CreateRequest", mock.Anything, userID, uint(5), dto.CreateRequestInput{}).
		Return(&dto.RequestResponse{ID: 1, Status: "pending"}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/requests/send/5", nil)
	newRouter(svc, userID).ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestSendRequest_RateLimitedSetsRetryAfter(t *testing.T) {
	svc := new(mockRequestService)
	svc.On("CreateRequest", mock.Anything, mock.Anything, uint(5), mock.Anything).
		Return(nil, &ratelimiter.RateLimitError{Message: "please wait 12 seconds before trying again", RetryAfter: 11500 * time.Millisecond})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/requests/send/5", nil)
	newRouter(svc, uuid.New()).ServeHTTP(w, req)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "12", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), apperror.KindRateLimit)
}

func TestSendRequest_InvalidDonorID(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/requests/send/x", nil)
	newRouter(new(mockRequestService), uuid.New()).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIDsAboveBigintRange(t *testing.T) {
	svc := new(mockRequestService)
	router := newRouter(svc, uuid.New())

	for _, path := range []string{
		"/requests/send/18446744073709551615",
		"/requests/respond/9223372036854775808",
	} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"action":"accept"}`))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code, path)
	}

	svc.AssertNotCalled(t, "CreateRequest", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	svc.AssertNotCalled(t, "RespondToRequest", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSendRequest_LargestBigintID(t *testing.T) {
	svc := new(mockRequestService)
	svc.On("CreateRequest", mock.Anything, mock.Anything, uint(9223372036854775807), dto.CreateRequestInput{}).
		Return(nil, apperror.ErrNotFound)

	w := httptest.NewRecorder()
	newRouter(svc, uuid.New()).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/requests/send/9223372036854775807", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRespond_InvalidAction(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/requests/respond/3", strings.NewReader(`{"action":"maybe"}`))
	req.Header.Set("Content-Type", "application/json")
	newRouter(new(mockRequestService), uuid.New()).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "action must be one of: accept reject")
}

func TestRespond_StateError(t *testing.T) {
	svc := new(mockRequestService)
	svc.On("RespondToRequest", mock.Anything, mock.Anything, uint(3), dto.RespondInput{Action: "accept"}).
		Return(nil, apperror.ErrState)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/requests/respond/3", strings.NewReader(`{"action":"accept"}`))
	req.Header.Set("Content-Type", "application/json")
	newRouter(svc, uuid.New()).ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), apperror.KindState)
}

func TestListDonorRequests_Forbidden(t *testing.T) {
	svc := new(mockRequestService)
	svc.On("ListForDonor", mock.Anything, mock.Anything).Return(nil, apperror.ErrForbidden)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/requests/donor", nil)
	newRouter(svc, uuid.New()).ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), apperror.KindAuthorization)
}
