package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenIssuer signs HS256 tokens whose subject is a session id. The token is
// only a handle: the persisted session row decides validity.
type TokenIssuer struct {
	secret []byte
	now    func() time.Time
}

type sessionClaims struct {
	jwt.RegisteredClaims
}

func NewTokenIssuer(secret []byte) (*TokenIssuer, error) {
	if len(secret) == 0 {
		return nil, errors.New("token secret is empty")
	}
	return &TokenIssuer{secret: secret, now: time.Now}, nil
}

// Issue signs a token for sessionID. A zero expiresAt omits the exp claim.
func (i *TokenIssuer) Issue(sessionID uuid.UUID, issuedAt, expiresAt time.Time) (string, error) {
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  sessionID.String(),
			IssuedAt: jwt.NewNumericDate(issuedAt),
		},
	}
	if !expiresAt.IsZero() {
		claims.ExpiresAt = jwt.NewNumericDate(expiresAt)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// Verify checks the signature and returns the session id. Any failure
// (bad signature, wrong algorithm, expired, unparsable subject) is
// ErrInvalidSession.
func (i *TokenIssuer) Verify(tokenStr string) (uuid.UUID, error) {
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSession
		}
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !token.Valid {
		return uuid.Nil, newError(KindInvalidSession, err)
	}

	sessionID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, newError(KindInvalidSession, err)
	}
	return sessionID, nil
}
