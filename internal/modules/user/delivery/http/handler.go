package handler

import (
	"net/http"

	"anoa.com/blooddonation/internal/modules/user/dto"
	"anoa.com/blooddonation/internal/modules/user/service"
	commonDto "anoa.com/blooddonation/pkg/dto"
	"anoa.com/blooddonation/pkg/response"
	"anoa.com/blooddonation/pkg/validator"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authService service.AuthService
}

func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var input dto.RegisterInput
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

	res, err := h.authService.Register(c.Request.Context(), input, photo)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, res)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var input dto.LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.ValidationError(c, validator.FormatValidationError(err))
		return
	}

	res, err := h.authService.Login(c.Request.Context(), input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var input dto.RefreshInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.ValidationError(c, validator.FormatValidationError(err))
		return
	}

	res, err := h.authService.Refresh(c.Request.Context(), input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}
