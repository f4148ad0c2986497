package services

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/prepwise/prepwise-backend/internal/apierr"
	"github.com/prepwise/prepwise-backend/internal/logger"
	"github.com/prepwise/prepwise-backend/internal/requestdata"
)

// AuthService verifies bearer credentials issued by the identity
// service and stamps the opaque user id into the request context.
// Token issuance lives elsewhere; this side only verifies.
type AuthService interface {
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
}

type authService struct {
	log       *logger.Logger
	jwtSecret []byte
}

func NewAuthService(baseLog *logger.Logger, jwtSecret string) AuthService {
	return &authService{
		log:       baseLog.With("service", "AuthService"),
		jwtSecret: []byte(jwtSecret),
	}
}

func (s *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return ctx, apierr.Unauthorized("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return ctx, apierr.Unauthorized("invalid token claims")
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return ctx, apierr.Unauthorized("token has no subject")
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return ctx, apierr.Unauthorized("token subject is not a user id")
	}

	return requestdata.WithRequestData(ctx, &requestdata.RequestData{
		TokenString: tokenString,
		UserID:      userID,
	}), nil
}
