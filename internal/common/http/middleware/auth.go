package middleware

import (
	"errors"
	"fmt"
	"strings"

	pkgerrors "debugoj/pkg/errors"
	"debugoj/pkg/utils/contextkey"
	"debugoj/pkg/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// AuthConfig configures bearer token verification. An empty Secret disables auth.
type AuthConfig struct {
	Secret string `yaml:"secret"`
	Issuer string `yaml:"issuer"`
}

type accessClaims struct {
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// TokenVerifier validates HS256 access tokens and returns the subject.
type TokenVerifier struct {
	secret []byte
	issuer string
}

func NewTokenVerifier(cfg AuthConfig) *TokenVerifier {
	return &TokenVerifier{secret: []byte(cfg.Secret), issuer: cfg.Issuer}
}

// Verify returns the token subject.
func (v *TokenVerifier) Verify(raw string) (string, error) {
	if raw == "" || len(v.secret) == 0 {
		return "", pkgerrors.New(pkgerrors.TokenInvalid)
	}
	parsed, err := jwt.ParseWithClaims(raw, &accessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", pkgerrors.New(pkgerrors.TokenExpired)
		}
		return "", pkgerrors.New(pkgerrors.TokenInvalid)
	}
	claims, ok := parsed.Claims.(*accessClaims)
	if !ok || !parsed.Valid {
		return "", pkgerrors.New(pkgerrors.TokenInvalid)
	}
	if v.issuer != "" && claims.Issuer != v.issuer {
		return "", pkgerrors.New(pkgerrors.TokenInvalid)
	}
	if claims.TokenType != "" && claims.TokenType != "access" {
		return "", pkgerrors.New(pkgerrors.TokenInvalid)
	}
	if claims.Subject == "" {
		return "", pkgerrors.New(pkgerrors.TokenInvalid)
	}
	return claims.Subject, nil
}

// AuthMiddleware rejects requests without a valid bearer token.
// A nil verifier lets every request through.
func AuthMiddleware(verifier *TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if verifier == nil {
			c.Next()
			return
		}
		subject, err := verifier.Verify(extractBearerToken(c.GetHeader("Authorization")))
		if err != nil {
			response.AbortWithError(c, err)
			return
		}
		c.Set(contextkey.UserID.String(), subject)
		c.Request = c.Request.WithContext(contextWithUser(c, subject))
		c.Next()
	}
}

func extractBearerToken(authHeader string) string {
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
