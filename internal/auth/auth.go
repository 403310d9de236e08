package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
)

const (
	userIdClaim = "user-id"
	emailClaim  = "email"
	expClaim    = "exp"
)

var ErrInvalidToken = errors.New("invalid token")

// Identity is the authenticated principal behind a token.
type Identity struct {
	UserId string
	Email  string
}

type Verifier interface {
	Verify(token string) (Identity, error)
}

// JWTVerifier verifies HS256 tokens signed with a shared key.
type JWTVerifier struct {
	signingKey []byte
}

func NewJWTVerifier(signingKey []byte) *JWTVerifier {
	return &JWTVerifier{signingKey: signingKey}
}

func (v *JWTVerifier) keyFunc(t *jwt.Token) (interface{}, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method %q", t.Header["alg"])
	}
	return v.signingKey, nil
}

func (v *JWTVerifier) Verify(tokenString string) (Identity, error) {
	if tokenString == "" {
		return Identity{}, fmt.Errorf("%w: empty token", ErrInvalidToken)
	}

	token, err := jwt.Parse(tokenString, v.keyFunc)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %s", ErrInvalidToken, err.Error())
	}

	if !token.Valid {
		return Identity{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, fmt.Errorf("%w: invalid token claims", ErrInvalidToken)
	}

	userId, ok := claims[userIdClaim].(string)
	if !ok || userId == "" {
		return Identity{}, fmt.Errorf("%w: invalid user id claim", ErrInvalidToken)
	}

	email, _ := claims[emailClaim].(string)

	return Identity{UserId: userId, Email: email}, nil
}

// Issue signs a token for the identity. Only used for local development and
// tests; production tokens come from the web application.
func Issue(signingKey []byte, id Identity, exp time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		userIdClaim: id.UserId,
		emailClaim:  id.Email,
		expClaim:    time.Now().Add(exp).Unix(),
	})

	return token.SignedString(signingKey)
}
