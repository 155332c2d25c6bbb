package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "internhub/pkg/domain"
	dErrors "internhub/pkg/domain-errors"
)

// Claims represents the JWT claims for portal access tokens.
type Claims struct {
	ActorID   string `json:"actor_id"`
	ActorKind string `json:"actor_kind"`
	jwt.RegisteredClaims
}

// JWTService handles JWT creation and validation
type JWTService struct {
	signingKey []byte
	issuer     string
	audience   string
}

func NewJWTService(signingKey string, issuer string, audience string) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
	}
}

func (s *JWTService) GenerateAccessToken(
	actorID id.ActorID,
	actorKind id.ActorKind,
	expiresIn time.Duration) (string, error) {
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		ActorID:   actorID.String(),
		ActorKind: string(actorKind),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			ID:        uuid.NewString(),
		},
	})

	signedToken, err := newToken.SignedString(s.signingKey)
	if err != nil {
		return "", err
	}
	return signedToken, nil
}

func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}

	return claims, nil
}

// Actor resolves the typed actor identity from a validated token.
func (s *JWTService) Actor(tokenString string) (id.ActorID, id.ActorKind, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return id.ActorID{}, "", err
	}
	actorID, err := id.ParseActorID(claims.ActorID)
	if err != nil {
		return id.ActorID{}, "", dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	kind, err := id.ParseActorKind(claims.ActorKind)
	if err != nil {
		return id.ActorID{}, "", dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return actorID, kind, nil
}
