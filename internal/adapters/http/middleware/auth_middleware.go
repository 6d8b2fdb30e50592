package middleware

import (
	"context"
	"errors"
	"strings"

	"royal-collector/internal/config"
	"royal-collector/internal/core/domain"
	"royal-collector/internal/pkg/jwt"
	"royal-collector/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

const principalKey = "principal"

// PrincipalResolver turns a token subject into the principal the services authorize against
type PrincipalResolver interface {
	Principal(ctx context.Context, userID uint) (domain.Principal, error)
}

// AuthMiddleware creates authentication middleware. The token only names the user;
// role and active flag are read fresh on every request.
func AuthMiddleware(cfg *config.Config, resolver PrincipalResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// 1. Bearer header, then cookie
		var accessToken string
		authHeader := c.Get(fiber.HeaderAuthorization)
		if strings.HasPrefix(authHeader, "Bearer ") {
			accessToken = strings.TrimPrefix(authHeader, "Bearer ")
		}
		if accessToken == "" {
			accessToken = c.Cookies("access_token")
		}
		if accessToken == "" {
			return response.Unauthorized(c, "Access token required")
		}

		// 2. Validate token
		claims, err := jwt.ValidateAccessToken(accessToken, cfg.JWT.Secret)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				return response.Unauthorized(c, "Access token expired")
			}
			return response.Unauthorized(c, "Invalid access token")
		}

		// 3. Resolve principal
		principal, err := resolver.Principal(c.Context(), claims.UserID)
		if err != nil {
			return response.FromError(c, err)
		}

		c.Locals(principalKey, principal)
		return c.Next()
	}
}

// GetPrincipal returns the principal set by AuthMiddleware
func GetPrincipal(c *fiber.Ctx) (domain.Principal, bool) {
	p, ok := c.Locals(principalKey).(domain.Principal)
	return p, ok && p.UserID != 0
}

// RoleMiddleware creates role-based authorization middleware
func RoleMiddleware(allowedRoles ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, ok := GetPrincipal(c)
		if !ok {
			return response.Unauthorized(c, "Unauthorized")
		}

		for _, allowedRole := range allowedRoles {
			if p.Role == allowedRole {
				return c.Next()
			}
		}

		return response.Forbidden(c, "You don't have permission to access this resource")
	}
}

// AdminOnly allows ADMIN and SUPER_ADMIN
func AdminOnly() fiber.Handler {
	return RoleMiddleware(domain.RoleAdmin, domain.RoleSuperAdmin)
}

// StaffOnly allows administrators and team workers
func StaffOnly() fiber.Handler {
	return RoleMiddleware(domain.RoleAdmin, domain.RoleSuperAdmin, domain.RoleTeamWorker)
}
