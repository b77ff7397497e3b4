package httpadapter

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/convergelabs/onboarding-service/internal/core/domain"
)

type principalContextKey struct{}

func principalFromContext(ctx context.Context) (domain.Principal, bool) {
	principal, ok := ctx.Value(principalContextKey{}).(domain.Principal)
	return principal, ok
}

type accessClaims struct {
	Role   string `json:"role"`
	Active bool   `json:"active"`
	jwt.RegisteredClaims
}

// authMiddleware verifies the bearer token and stores the resulting
// principal in the request context. Handlers read it from there and pass
// it to use cases explicitly.
func authMiddleware(secret string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, err := principalFromBearer(r.Header.Get("Authorization"), secret)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
			return
		}

		ctx := context.WithValue(r.Context(), principalContextKey{}, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func principalFromBearer(headerValue, secret string) (domain.Principal, error) {
	token, err := parseBearerToken(headerValue)
	if err != nil {
		return domain.Principal{}, err
	}

	claims := &accessClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil {
		return domain.Principal{}, domain.WrapError(domain.ErrUnauthenticated, "auth.verify", err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return domain.Principal{}, domain.WrapError(domain.ErrUnauthenticated, "auth.verify", jwt.ErrTokenInvalidClaims)
	}
	if !claims.Active {
		return domain.Principal{}, domain.WrapError(domain.ErrUnauthenticated, "auth.verify", jwt.ErrTokenInvalidClaims)
	}

	role := domain.RoleClient
	if claims.Role == string(domain.RoleAdmin) {
		role = domain.RoleAdmin
	}

	return domain.Principal{
		ID:     claims.Subject,
		Role:   role,
		Active: claims.Active,
	}, nil
}

func parseBearerToken(headerValue string) (string, error) {
	headerValue = strings.TrimSpace(headerValue)
	const bearerPrefix = "Bearer "
	if headerValue == "" || !strings.HasPrefix(headerValue, bearerPrefix) {
		return "", domain.WrapError(domain.ErrUnauthenticated, "auth.header", jwt.ErrTokenMalformed)
	}
	token := strings.TrimSpace(strings.TrimPrefix(headerValue, bearerPrefix))
	if token == "" {
		return "", domain.WrapError(domain.ErrUnauthenticated, "auth.header", jwt.ErrTokenMalformed)
	}
	return token, nil
}
