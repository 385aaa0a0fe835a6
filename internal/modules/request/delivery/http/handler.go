package handler

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"anoa.com/blooddonation/internal/modules/request/dto"
	"anoa.com/blooddonation/internal/modules/request/service"
	"anoa.com/blooddonation/pkg/ratelimiter"
	"anoa.com/blooddonation/pkg/response"
	"anoa.com/blooddonation/pkg/validator"
	"github.com/gin-gonic/gin"
)

type RequestHandler struct {
	service service.RequestService
}

func NewRequestHandler(service service.RequestService) *RequestHandler {
	return &RequestHandler{service: service}
}

func (h *RequestHandler) SendRequest(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	donorID, err := strconv.ParseUint(c.Param("donor_id"), 10, 63)
	if err != nil {
		response.ValidationError(c, "invalid donor id")
		return
	}

	var input dto.CreateRequestInput
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBind(&input); err != nil {
			response.ValidationError(c, validator.FormatValidationError(err))
			return
		}
	}

	res, err := h.service.CreateRequest(c.Request.Context(), userID, uint(donorID), input)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, res)
}

func (h *RequestHandler) RespondToRequest(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	requestID, err := strconv.ParseUint(c.Param("request_id"), 10, 63)
	if err != nil {
		response.ValidationError(c, "invalid request id")
		return
	}

	var input dto.RespondInput
	if err := c.ShouldBind(&input); err != nil {
		response.ValidationError(c, validator.FormatValidationError(err))
		return
	}

	res, err := h.service.RespondToRequest(c.Request.Context(), userID, uint(requestID), input)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *RequestHandler) ListDonorRequests(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.service.ListForDonor(c.Request.Context(), userID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *RequestHandler) ListPatientRequests(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.service.ListForPatient(c.Request.Context(), userID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *RequestHandler) writeError(c *gin.Context, err error) {
	var rl *ratelimiter.RateLimitError
	if errors.As(err, &rl) {
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(rl.RetryAfter.Seconds()))))
	}
	response.ResponseError(c, err)
}
