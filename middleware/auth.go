package middleware

import (
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/fullmargin/factures/identity"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Token uses. A token is only accepted where its use matches.
const (
	TokenAccess  = "access"
	TokenRefresh = "refresh"
)

// Claims represents the JWT claims
type Claims struct {
	UserID uint   `json:"user_id"`
	Role   string `json:"role"`
	Use    string `json:"use"`
	jwt.RegisteredClaims
}

// GenerateToken creates a new JWT token for a user
func GenerateToken(userID uint, role, use, secret string, expiry time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: userID,
		Role:   role,
		Use:    use,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken validates an HMAC-signed token of the given use against secret and
// returns its claims.
func ParseToken(tokenString, secret, use string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.UserID == 0 || claims.Use != use {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

func abort(c *gin.Context, status int, message, code string) {
	body := gin.H{"success": false, "message": message}
	if code != "" {
		body["code"] = code
	}
	c.AbortWithStatusJSON(status, body)
}

// JwtAuthMiddleware validates the bearer token and attaches the caller's identity
// to both the gin context and the request context.
func JwtAuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abort(c, http.StatusUnauthorized, "Authorization header is required", "")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			abort(c, http.StatusUnauthorized, "Invalid authorization header format", "")
			return
		}

		claims, err := ParseToken(parts[1], secret, TokenAccess)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				abort(c, http.StatusUnauthorized, "Token has expired", "ExpiredToken")
			} else {
				abort(c, http.StatusUnauthorized, "Invalid token", "InvalidToken")
			}
			return
		}

		c.Set("userID", claims.UserID)
		c.Set("role", claims.Role)
		c.Request = c.Request.WithContext(identity.NewContext(c.Request.Context(), identity.Identity{
			UserID: claims.UserID,
			Role:   claims.Role,
		}))

		c.Next()
	}
}

// CurrentIdentity returns the caller authenticated by JwtAuthMiddleware.
func CurrentIdentity(c *gin.Context) (identity.Identity, bool) {
	return identity.FromContext(c.Request.Context())
}

// RequireRole checks if the user has specific roles
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole, exists := c.Get("role")
		if !exists {
			abort(c, http.StatusUnauthorized, "User role not found in context", "")
			return
		}

		roleStr, ok := userRole.(string)
		if !ok {
			abort(c, http.StatusInternalServerError, "Invalid role type in context", "")
			return
		}

		if !slices.Contains(roles, roleStr) {
			abort(c, http.StatusForbidden, "Forbidden: insufficient permissions", "")
			return
		}

		c.Next()
	}
}
