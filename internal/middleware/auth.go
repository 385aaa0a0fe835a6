package middleware

import (
	"errors"
	"fmt"
	"strings"

	"anoa.com/blooddonation/internal/entity"
	profileRepo "anoa.com/blooddonation/internal/modules/profile/repository"
	userRepo "anoa.com/blooddonation/internal/modules/user/repository"
	"anoa.com/blooddonation/pkg/apperror"
	"anoa.com/blooddonation/pkg/response"
	"anoa.com/blooddonation/pkg/token"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type AuthMiddleware struct {
	tokens   *token.Manager
	userRepo userRepo.UserRepository
	profiles profileRepo.ProfileRepository
}

func NewAuthMiddleware(tokens *token.Manager, userRepo userRepo.UserRepository, profiles profileRepo.ProfileRepository) *AuthMiddleware {
	return &AuthMiddleware{
		tokens:   tokens,
		userRepo: userRepo,
		profiles: profiles,
	}
}

// RequireAuth accepts an access token from the Authorization header or, for
// websocket upgrades, the "token" query parameter.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ""
		authHeader := c.GetHeader("Authorization")

		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
				tokenString = parts[1]
			}
		}

		if tokenString == "" {
			tokenString = c.Query("token")
		}

		if tokenString == "" {
			abort(c, fmt.Errorf("authorization required: %w", apperror.ErrUnauthorized))
			return
		}

		claims, err := m.tokens.Parse(tokenString, token.TypeAccess)
		if err != nil {
			abort(c, fmt.Errorf("invalid or expired token: %w", apperror.ErrUnauthorized))
			return
		}

		c.Set(response.ContextUserID, claims.Subject)
		c.Next()
	}
}

// RequireStaff lets through users flagged is_staff.
func (m *AuthMiddleware) RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := response.GetUserID(c)
		if err != nil {
			abort(c, err)
			return
		}

		user, err := m.userRepo.FindByID(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				abort(c, fmt.Errorf("user not found: %w", apperror.ErrUnauthorized))
				return
			}
			abort(c, err)
			return
		}

		if !user.IsStaff {
			abort(c, fmt.Errorf("admin access required: %w", apperror.ErrForbidden))
			return
		}

		c.Next()
	}
}

// RequireRole lets through users whose profile has the given role.
func (m *AuthMiddleware) RequireRole(role entity.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := response.GetUserID(c)
		if err != nil {
			abort(c, err)
			return
		}

		profile, err := m.profiles.FindByUserID(c.Request.Context(), userID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			abort(c, err)
			return
		}

		if profile == nil || profile.Role != role {
			abort(c, fmt.Errorf("%s role required: %w", role, apperror.ErrForbidden))
			return
		}

		c.Next()
	}
}

func abort(c *gin.Context, err error) {
	response.ResponseError(c, err)
	c.Abort()
}
