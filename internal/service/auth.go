package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/devgenerative/controlefinanciero/internal/model"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims carry the acting user in the subject and the family whose data the
// token grants access to.
type Claims struct {
	FamilyID string `json:"family_id"`
	jwt.RegisteredClaims
}

type AuthService struct {
	jwtSecret   string
	tokenExpiry time.Duration
	logger      *logrus.Logger
}

func NewAuthService(jwtSecret string, tokenExpiry time.Duration, logger *logrus.Logger) *AuthService {
	return &AuthService{
		jwtSecret:   jwtSecret,
		tokenExpiry: tokenExpiry,
		logger:      logger,
	}
}

// GenerateToken issues a signed token for user.
func (s *AuthService) GenerateToken(user model.User) (string, error) {
	now := time.Now()
	claims := Claims{
		FamilyID: user.FamilyID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

// ParseToken validates tokenString and resolves the caller scope from it.
func (s *AuthService) ParseToken(tokenString string) (model.Scope, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.jwtSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		s.logger.WithError(err).Warn("Invalid JWT token")
		return model.Scope{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return model.Scope{}, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	familyID, err := uuid.Parse(claims.FamilyID)
	if err != nil {
		return model.Scope{}, fmt.Errorf("%w: bad family_id", ErrInvalidToken)
	}

	s.logger.WithField("user_id", userID).Debug("JWT token parsed")
	return model.Scope{UserID: userID, FamilyID: familyID}, nil
}
