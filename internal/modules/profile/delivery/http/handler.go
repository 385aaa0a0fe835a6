package handler

import (
	"net/http"
	"strconv"

	profileDto "anoa.com/blooddonation/internal/modules/profile/dto"
	profile "anoa.com/blooddonation/internal/modules/profile/service"
	commonDto "anoa.com/blooddonation/pkg/dto"
	"anoa.com/blooddonation/pkg/response"
	"anoa.com/blooddonation/pkg/validator"
	"github.com/gin-gonic/gin"
)

type ProfileHandler struct {
	profileService profile.ProfileService
}

func NewProfileHandler(profileService profile.ProfileService) *ProfileHandler {
	return &ProfileHandler{
		profileService: profileService,
	}
}

func (h *ProfileHandler) ListDonors(c *gin.Context) {
	var filter profileDto.DonorFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.ValidationError(c, validator.FormatValidationError(err))
		return
	}
	filter.Normalize()

	donors, err := h.profileService.ListDonors(c.Request.Context(), filter)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, donors)
}

func (h *ProfileHandler) GetProfile(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 63)
	if err != nil {
		response.ValidationError(c, "invalid profile id")
		return
	}

	res, err := h.profileService.GetProfile(c.Request.Context(), uint(id))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *ProfileHandler) GetCurrentProfile(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.profileService.GetCurrentProfile(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var input profileDto.UpdateProfileInput
	if err := c.ShouldBind(&input); err != nil {
		response.ValidationError(c, validator.FormatValidationError(err))
		return
	}

	var photo *commonDto.PhotoFile
	if fileHeader, err := c.FormFile("photo"); err == nil && fileHeader != nil {
		file, err := fileHeader.Open()
		if err != nil {
			response.ValidationError(c, "failed to read photo")
			return
		}
		defer file.Close()

		photo = &commonDto.PhotoFile{
			Reader:   file,
			FileName: fileHeader.Filename,
		}
	}

	res, err := h.profileService.UpdateProfile(c.Request.Context(), userID, input, photo)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}
