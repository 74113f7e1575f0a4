package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func createValidJWT(subject, email, role string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   subject,
		"email": email,
		"role":  role,
		"exp":   time.Now().Add(time.Hour).Unix(),
		"iat":   time.Now().Unix(),
	})

	tokenString, _ := token.SignedString([]byte("test-secret"))
	return tokenString
}

func runMiddleware(t *testing.T, config JWTConfig, path, authHeader string, handler echo.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := JWTMiddleware(config)(handler)(c)
	require.NoError(t, err) // Middleware handles the error response
	return rec
}

func ok(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func TestJWTMiddleware_SuccessfulAuthentication(t *testing.T) {
	config := JWTConfig{Secret: "test-secret", Logger: zap.NewNop()}

	rec := runMiddleware(t, config, "/qr-payment/customer/transactions",
		"Bearer "+createValidJWT("cust-1", "jane@example.com", RoleCustomer),
		func(c echo.Context) error {
			user, err := GetUserFromContext(c)
			assert.NoError(t, err)
			assert.Equal(t, "cust-1", user.UserID)
			assert.Equal(t, "jane@example.com", user.Email)
			assert.Equal(t, RoleCustomer, user.Role)
			assert.Equal(t, "cust-1", c.Get("user_id"))
			return ok(c)
		})

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestJWTMiddleware_Rejections(t *testing.T) {
	config := JWTConfig{Secret: "test-secret", Issuer: "", Logger: zap.NewNop()}

	wrongKey := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "cust-1", "exp": time.Now().Add(time.Hour).Unix()})
	wrongKeyString, _ := wrongKey.SignedString([]byte("other-secret"))

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "cust-1", "exp": time.Now().Add(-time.Hour).Unix()})
	expiredString, _ := expired.SignedString([]byte("test-secret"))

	noSubject := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"role": "customer", "exp": time.Now().Add(time.Hour).Unix()})
	noSubjectString, _ := noSubject.SignedString([]byte("test-secret"))

	tests := []struct {
		name   string
		header string
		code   string
	}{
		{"missing header", "", "MISSING_AUTH_HEADER"},
		{"not bearer", "Basic abc", "INVALID_AUTH_FORMAT"},
		{"wrong key", "Bearer " + wrongKeyString, "INVALID_TOKEN"},
		{"expired", "Bearer " + expiredString, "INVALID_TOKEN"},
		{"garbage", "Bearer not.a.jwt", "INVALID_TOKEN"},
		{"no subject", "Bearer " + noSubjectString, "INVALID_CLAIMS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := runMiddleware(t, config, "/test", tt.header, ok)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.code)
			assert.Contains(t, rec.Body.String(), `"success":false`)
		})
	}
}

func TestJWTMiddleware_Issuer(t *testing.T) {
	config := JWTConfig{Secret: "test-secret", Issuer: "qr-payment", Logger: zap.NewNop()}

	rec := runMiddleware(t, config, "/test", "Bearer "+createValidJWT("cust-1", "", RoleCustomer), ok)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "cust-1",
		"iss": "qr-payment",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	tokenString, _ := token.SignedString([]byte("test-secret"))
	rec = runMiddleware(t, config, "/test", "Bearer "+tokenString, ok)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestJWTMiddleware_SkipPathsAndDisabled(t *testing.T) {
	t.Run("skip path", func(t *testing.T) {
		config := JWTConfig{Secret: "test-secret", Logger: zap.NewNop(), SkipPaths: []string{"/health"}}
		rec := runMiddleware(t, config, "/health", "", ok)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("no secret disables auth", func(t *testing.T) {
		config := JWTConfig{Logger: zap.NewNop()}
		rec := runMiddleware(t, config, "/test", "", func(c echo.Context) error {
			_, err := GetUserFromContext(c)
			assert.Error(t, err)
			return ok(c)
		})
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func withUser(c echo.Context, user *AuthUser) {
	ctx := context.WithValue(c.Request().Context(), userContextKey, user)
	c.SetRequest(c.Request().WithContext(ctx))
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name string
		user *AuthUser
		want int
	}{
		{"anonymous passes", nil, http.StatusOK},
		{"matching role", &AuthUser{UserID: "m-1", Role: RoleMerchant}, http.StatusOK},
		{"admin", &AuthUser{UserID: "ops", Role: RoleAdmin}, http.StatusOK},
		{"other role", &AuthUser{UserID: "cust-1", Role: RoleCustomer}, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/test", nil), rec)
			if tt.user != nil {
				withUser(c, tt.user)
			}

			require.NoError(t, RequireRole(RoleMerchant)(ok)(c))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestCheckSubject(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/test", nil), httptest.NewRecorder())

	assert.NoError(t, CheckSubject(c, "cust-1"), "no user in context")

	withUser(c, &AuthUser{UserID: "cust-1", Role: RoleCustomer})
	assert.NoError(t, CheckSubject(c, "cust-1"))

	err := CheckSubject(c, "cust-2")
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusForbidden, he.Code)

	id, err := GetUserID(c)
	require.NoError(t, err)
	assert.Equal(t, "cust-1", id)
}
