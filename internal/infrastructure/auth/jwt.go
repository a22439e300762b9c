package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/betonplant/backend/internal/domain/shared"
	"github.com/betonplant/backend/internal/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Common errors
var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrExpiredToken   = errors.New("token has expired")
	ErrInvalidClaims  = errors.New("invalid token claims")
	ErrMissingActorID = errors.New("missing actor_id in claims")
	ErrUnknownRole    = errors.New("unknown role in claims")
)

// Claims carries the authenticated plant actor. Role gates every operation in
// the HTTP layer, so it travels in the token rather than being looked up per
// request.
type Claims struct {
	jwt.RegisteredClaims
	ActorID  string `json:"actor_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Token is an issued access token with its expiry
type Token struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	TokenType   string    `json:"token_type"` // Bearer
}

// JWTService signs and verifies access tokens
type JWTService struct {
	secret     []byte
	expiration time.Duration
	issuer     string
}

// NewJWTService creates a new JWT service
func NewJWTService(cfg *config.JWTConfig) *JWTService {
	return &JWTService{
		secret:     []byte(cfg.Secret),
		expiration: cfg.AccessTokenExpiration,
		issuer:     cfg.Issuer,
	}
}

// GenerateToken issues an access token for the given actor
func (s *JWTService) GenerateToken(actorID uuid.UUID, username string, role shared.Role) (*Token, error) {
	if !role.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRole, role)
	}

	now := time.Now()
	expiresAt := now.Add(s.expiration)

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    s.issuer,
			Subject:   actorID.String(),
			Audience:  jwt.ClaimStrings{s.issuer},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		ActorID:  actorID.String(),
		Username: username,
		Role:     string(role),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &Token{
		AccessToken: signed,
		ExpiresAt:   expiresAt,
		TokenType:   "Bearer",
	}, nil
}

// ValidateToken verifies a token string and returns the actor it represents
func (s *JWTService) ValidateToken(tokenString string) (shared.Actor, *Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("%w: unexpected signing method %v", ErrInvalidToken, t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return shared.Actor{}, nil, ErrExpiredToken
		}
		return shared.Actor{}, nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return shared.Actor{}, nil, ErrInvalidClaims
	}
	if claims.ActorID == "" {
		return shared.Actor{}, nil, ErrMissingActorID
	}

	actorID, err := uuid.Parse(claims.ActorID)
	if err != nil {
		return shared.Actor{}, nil, fmt.Errorf("%w: malformed actor_id", ErrInvalidClaims)
	}
	role := shared.Role(claims.Role)
	if !role.IsValid() {
		return shared.Actor{}, nil, fmt.Errorf("%w: %s", ErrUnknownRole, claims.Role)
	}

	return shared.NewActor(actorID, role), claims, nil
}
