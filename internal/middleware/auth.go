// Package middleware provides request-scoped logging, authentication,
// rate limiting, metrics and tracing for the HTTP layer.
package middleware

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"lcnetwork/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token claims shared by issuing and verifying code.
const (
	TokenIssuer      = "lcnetwork-api"
	TokenAudience    = "lcnetwork-client"
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var (
	ErrMissingToken   = errors.New("authorization required")
	ErrMalformedToken = errors.New("invalid authorization header format")
	ErrInvalidToken   = errors.New("invalid or expired token")
	ErrWrongTokenType = errors.New("wrong token type")
)

// TokenClaims is the verified content of a bearer token.
type TokenClaims struct {
	UserID    uint
	Username  string
	Type      string
	JTI       string
	ExpiresAt time.Time
}

// RevocationCheck reports whether a token id has been revoked.
type RevocationCheck func(ctx context.Context, jti string) bool

// IssueToken signs an HS256 token of the given type for the user.
func IssueToken(secret string, userID uint, username, tokenType string, ttl time.Duration) (string, *TokenClaims, error) {
	now := time.Now()
	jti := fmt.Sprintf("%d-%s", now.Unix(), uuid.New().String()[:8])
	exp := now.Add(ttl)

	claims := jwt.MapClaims{
		"sub":      strconv.FormatUint(uint64(userID), 10),
		"username": username,
		"typ":      tokenType,
		"iss":      TokenIssuer,
		"aud":      TokenAudience,
		"exp":      exp.Unix(),
		"iat":      now.Unix(),
		"nbf":      now.Unix(),
		"jti":      jti,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", nil, err
	}
	return signed, &TokenClaims{
		UserID:    userID,
		Username:  username,
		Type:      tokenType,
		JTI:       jti,
		ExpiresAt: time.Unix(exp.Unix(), 0),
	}, nil
}

// ParseToken verifies signature, expiry, issuer and audience, and that the
// token is of wantType.
func ParseToken(secret, raw, wantType string) (*TokenClaims, error) {
	token, err := jwt.Parse(raw, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(secret), nil
	},
		jwt.WithIssuer(TokenIssuer),
		jwt.WithAudience(TokenAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return nil, ErrInvalidToken
	}
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil {
		return nil, ErrInvalidToken
	}

	// Tokens without typ predate refresh tokens and count as access tokens.
	typ, _ := claims["typ"].(string)
	if typ == "" {
		typ = TokenTypeAccess
	}
	if typ != wantType {
		return nil, ErrWrongTokenType
	}

	out := &TokenClaims{UserID: uint(userID), Type: typ}
	out.Username, _ = claims["username"].(string)
	out.JTI, _ = claims["jti"].(string)
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	return out, nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(c *fiber.Ctx) (string, error) {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return "", ErrMissingToken
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", ErrMalformedToken
	}
	return strings.TrimSpace(token), nil
}

// RequireToken rejects requests without a valid, unrevoked token of
// tokenType. On success it stores "userID" (uint) and "token" (*TokenClaims)
// in locals and the user id in the request context.
func RequireToken(secret, tokenType string, revoked RevocationCheck) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw, err := BearerToken(c)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized, models.NewUnauthorizedError(capitalize(err.Error())))
		}

		claims, err := ParseToken(secret, raw, tokenType)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized, models.NewUnauthorizedError(capitalize(err.Error())))
		}

		if revoked != nil && claims.JTI != "" && revoked(c.UserContext(), claims.JTI) {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Token has been revoked"))
		}

		c.Locals("userID", claims.UserID)
		c.Locals("token", claims)
		c.SetUserContext(WithUserID(c.UserContext(), claims.UserID))

		return c.Next()
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
