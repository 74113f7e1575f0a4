package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	RoleCustomer = "customer"
	RoleMerchant = "merchant"
	RoleAdmin    = "admin"
)

// AuthUser represents an authenticated caller from JWT
type AuthUser struct {
	UserID string `json:"user_id"` // customer id or merchant id, from "sub"
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// contextKey is used for storing user in context
type contextKey string

const (
	userContextKey contextKey = "authenticated_user"
)

// JWTConfig holds the configuration for JWT middleware
type JWTConfig struct {
	Secret    string
	Issuer    string
	Logger    *zap.Logger
	SkipPaths []string // Paths to skip JWT validation
}

// Enabled reports whether bearer tokens are checked at all.
func (c JWTConfig) Enabled() bool { return c.Secret != "" }

func unauthorized(c echo.Context, code, message string) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{
		"success": false,
		"message": message,
		"code":    code,
	})
}

// JWTMiddleware validates HS256 bearer tokens. With an empty secret every
// request passes through unauthenticated.
func JWTMiddleware(config JWTConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !config.Enabled() {
				return next(c)
			}

			// Skip JWT validation for certain paths
			path := c.Request().URL.Path
			for _, skipPath := range config.SkipPaths {
				if strings.HasPrefix(path, skipPath) {
					return next(c)
				}
			}

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				config.Logger.Warn("Missing authorization header",
					zap.String("path", path),
					zap.String("method", c.Request().Method))
				return unauthorized(c, "MISSING_AUTH_HEADER", "Authorization header required")
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				config.Logger.Warn("Invalid authorization header format",
					zap.String("path", path))
				return unauthorized(c, "INVALID_AUTH_FORMAT", "Invalid authorization header format. Expected: Bearer <token>")
			}

			opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
			if config.Issuer != "" {
				opts = append(opts, jwt.WithIssuer(config.Issuer))
			}
			token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
				return []byte(config.Secret), nil
			}, opts...)
			if err != nil {
				config.Logger.Warn("JWT validation failed",
					zap.Error(err),
					zap.String("path", path))
				return unauthorized(c, "INVALID_TOKEN", "Invalid or expired token")
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok || !token.Valid {
				return unauthorized(c, "INVALID_CLAIMS", "Invalid token claims")
			}

			subject, err := claims.GetSubject()
			if err != nil || subject == "" {
				config.Logger.Warn("Token without subject", zap.String("path", path))
				return unauthorized(c, "INVALID_CLAIMS", "Invalid token claims")
			}
			email, _ := claims["email"].(string)
			role, _ := claims["role"].(string)

			authUser := &AuthUser{
				UserID: subject,
				Email:  email,
				Role:   role,
			}

			ctx := context.WithValue(c.Request().Context(), userContextKey, authUser)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Set("user_id", subject)

			config.Logger.Debug("User authenticated successfully",
				zap.String("user_id", subject),
				zap.String("role", role),
				zap.String("path", path))

			return next(c)
		}
	}
}

// RequireRole rejects authenticated callers whose role is not listed. Admins
// always pass. Requests without a user pass through so the group works
// with auth disabled.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, err := GetUserFromContext(c)
			if err != nil {
				return next(c)
			}
			if user.Role == RoleAdmin {
				return next(c)
			}
			for _, r := range roles {
				if user.Role == r {
					return next(c)
				}
			}
			return c.JSON(http.StatusForbidden, echo.Map{
				"success": false,
				"message": "Insufficient role for this resource",
				"code":    "ROLE_FORBIDDEN",
			})
		}
	}
}

// CheckSubject fails with 403 when an authenticated non-admin caller acts
// for another customer or merchant.
func CheckSubject(c echo.Context, id string) error {
	user, err := GetUserFromContext(c)
	if err != nil || user.Role == RoleAdmin || user.UserID == id {
		return nil
	}
	return echo.NewHTTPError(http.StatusForbidden, "Cannot act on behalf of another account")
}

// GetUserFromContext extracts the authenticated user from the request context
func GetUserFromContext(c echo.Context) (*AuthUser, error) {
	user, ok := c.Request().Context().Value(userContextKey).(*AuthUser)
	if !ok || user == nil {
		return nil, fmt.Errorf("no authenticated user found in context")
	}
	return user, nil
}

// GetUserID is a helper function to get the subject from context
func GetUserID(c echo.Context) (string, error) {
	user, err := GetUserFromContext(c)
	if err != nil {
		return "", err
	}
	return user.UserID, nil
}
