package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/uploadbroker/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the registered claims plus the owner the token speaks for.
type Claims struct {
	jwt.RegisteredClaims
	OwnerID string
}

func GenerateToken(ownerID string, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
		},
		OwnerID: ownerID,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// GetOwnerIDFromToken validates an HS256 token and returns its owner.
// Every failure is reported as common.ErrUnauthorized.
func GetOwnerIDFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", common.Unauthorized(err, "token expired")
		}
		return "", common.Unauthorized(err, "invalid token")
	}

	if !token.Valid || claims.OwnerID == "" {
		return "", common.Unauthorized(nil, "invalid token")
	}

	return claims.OwnerID, nil
}
