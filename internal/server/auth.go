package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"google.golang.org/api/idtoken"

	"pensionguru/backend/internal/apperr"
)

const authSubjectKey = "authSubject"

// Identity is what a verified sign-in tells us about the user.
type Identity struct {
	Subject string
	Name    string
	Email   string
}

// IdentityVerifier checks a credential issued by an external identity provider.
type IdentityVerifier interface {
	Verify(ctx context.Context, credential string) (Identity, error)
}

type googleVerifier struct {
	audience string
}

// NewGoogleVerifier validates Google ID tokens issued for clientID.
func NewGoogleVerifier(clientID string) IdentityVerifier {
	return googleVerifier{audience: strings.TrimSpace(clientID)}
}

func (v googleVerifier) Verify(ctx context.Context, credential string) (Identity, error) {
	payload, err := idtoken.Validate(ctx, credential, v.audience)
	if err != nil {
		return Identity{}, apperr.Wrap(err, apperr.CodeAuthUnauthorized, "google credential rejected")
	}
	identity := Identity{Subject: strings.TrimSpace(payload.Subject)}
	if name, ok := payload.Claims["name"].(string); ok {
		identity.Name = strings.TrimSpace(name)
	}
	if email, ok := payload.Claims["email"].(string); ok {
		identity.Email = strings.TrimSpace(email)
	}
	if identity.Subject == "" {
		return Identity{}, apperr.New(apperr.CodeAuthUnauthorized, "google credential has no subject")
	}
	return identity, nil
}

func (a *App) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
			writeError(c, http.StatusUnauthorized, "Bearer token required")
			return
		}
		tokenString := strings.TrimSpace(authHeader[len("Bearer "):])
		if tokenString == "" {
			writeError(c, http.StatusUnauthorized, "Bearer token required")
			return
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
			if token.Method == nil || token.Method.Alg() != a.cfg.JWTAlgorithm {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(a.cfg.JWTSecret), nil
		}, jwt.WithTimeFunc(a.now))
		if err != nil || !token.Valid {
			writeError(c, http.StatusUnauthorized, "Invalid bearer token")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			writeError(c, http.StatusUnauthorized, "Invalid token payload")
			return
		}
		if a.cfg.JWTAudience != "" && !claimHasAudience(claims["aud"], a.cfg.JWTAudience) {
			writeError(c, http.StatusUnauthorized, "Invalid token audience")
			return
		}
		if a.cfg.JWTIssuer != "" {
			issuer, _ := claims["iss"].(string)
			if issuer != a.cfg.JWTIssuer {
				writeError(c, http.StatusUnauthorized, "Invalid token issuer")
				return
			}
		}
		sub, _ := claims["sub"].(string)
		sub = strings.TrimSpace(sub)
		if sub == "" {
			writeError(c, http.StatusUnauthorized, "Token subject missing")
			return
		}

		c.Set(authSubjectKey, sub)
		c.Next()
	}
}

func claimHasAudience(value any, audience string) bool {
	switch v := value.(type) {
	case string:
		return v == audience
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && s == audience {
				return true
			}
		}
	case []string:
		for _, item := range v {
			if item == audience {
				return true
			}
		}
	}
	return false
}

func authSubjectFromContext(c *gin.Context) (string, bool) {
	raw, ok := c.Get(authSubjectKey)
	if !ok {
		return "", false
	}
	sub, ok := raw.(string)
	return sub, ok && sub != ""
}

// issueAccessToken signs a session token for userID, or returns "" when no
// JWT secret is configured.
func (a *App) issueAccessToken(userID, name string) (string, error) {
	secret := strings.TrimSpace(a.cfg.JWTSecret)
	if secret == "" {
		return "", nil
	}
	method := jwt.GetSigningMethod(a.cfg.JWTAlgorithm)
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return "", apperr.Errorf(apperr.CodeInternal, "JWT_ALGORITHM %q is not an HMAC method", a.cfg.JWTAlgorithm)
	}

	now := a.now().UTC()
	ttl := time.Duration(a.cfg.JWTTTLMinutes) * time.Minute
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	claims := jwt.MapClaims{
		"sub": userID,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	if name != "" {
		claims["name"] = name
	}
	if a.cfg.JWTAudience != "" {
		claims["aud"] = a.cfg.JWTAudience
	}
	if a.cfg.JWTIssuer != "" {
		claims["iss"] = a.cfg.JWTIssuer
	}
	signed, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	if err != nil {
		return "", apperr.Wrap(err, apperr.CodeInternal, "signing access token")
	}
	return signed, nil
}
