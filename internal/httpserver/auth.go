package httpserver

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"commerce-backoffice/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	identityKey   = "identity"
	sessionHeader = "X-Session-ID"
	roleAdmin     = "admin"
)

// Claims carries the caller's user id in the subject and an optional role.
type Claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Identity is who is calling: a registered user, a guest session or nobody.
type Identity struct {
	UserID    *int64
	SessionID string
	Role      string
}

func (i Identity) Admin() bool { return i.Role == roleAdmin }

// Owner returns the cart owner matching the identity.
func (i Identity) Owner() domain.Owner {
	o := domain.Owner{UserID: i.UserID}
	if i.UserID == nil && i.SessionID != "" {
		s := i.SessionID
		o.SessionID = &s
	}
	return o
}

// IssueToken signs an HS256 token for userID with the given role.
func IssueToken(secret string, userID int64, role string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("jwt secret not configured")
	}
	now := time.Now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func parseToken(secret, raw string) (*Claims, error) {
	if secret == "" {
		return nil, errors.New("token authentication disabled")
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// identityMiddleware resolves the caller from a bearer token or, for
// guests, from the session header. Requests without either pass through
// anonymously; a malformed or invalid token is rejected.
func identityMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var id Identity
		if header := c.GetHeader("Authorization"); header != "" {
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token format"})
				return
			}
			claims, err := parseToken(secret, strings.TrimSpace(raw))
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
				return
			}
			uid, err := strconv.ParseInt(claims.Subject, 10, 64)
			if err != nil || uid <= 0 {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token subject"})
				return
			}
			id.UserID = &uid
			id.Role = claims.Role
		}
		id.SessionID = strings.TrimSpace(c.GetHeader(sessionHeader))
		c.Set(identityKey, id)
		c.Next()
	}
}

// adminRequired lets only callers with the admin role through.
func adminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := identityOf(c)
		if id.UserID == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		if !id.Admin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin privileges required"})
			return
		}
		c.Next()
	}
}

func identityOf(c *gin.Context) Identity {
	if v, ok := c.Get(identityKey); ok {
		if id, ok := v.(Identity); ok {
			return id
		}
	}
	return Identity{}
}
