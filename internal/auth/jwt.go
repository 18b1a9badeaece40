package auth

import (
	"errors"

	"github.com/golang-jwt/jwt"
)

var (
	ErrInvalidToken = errors.New("auth token is invalid")
	ErrExpiredToken = errors.New("auth token is expired")
)

// Identity is what the identity provider vouches for. UserID is the opaque
// identifier the rest of the system partitions all per-user data by.
type Identity struct {
	UserID string
	Email  string
}

type accessTokenClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.StandardClaims
}

// Verifier validates bearer tokens minted by the identity provider and
// extracts the caller's identity. Token issuance lives with the provider,
// not here.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses and validates an HS256 token and returns the identity it
// carries.
func (v *Verifier) Verify(tokenString string) (Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &accessTokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return v.secret, nil
	})

	if err != nil {
		var validationErr *jwt.ValidationError
		if errors.As(err, &validationErr) {
			if validationErr.Errors&jwt.ValidationErrorExpired != 0 {
				return Identity{}, ErrExpiredToken
			}
		}
		return Identity{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(*accessTokenClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return Identity{}, ErrInvalidToken
	}

	return Identity{UserID: claims.UserID, Email: claims.Email}, nil
}
