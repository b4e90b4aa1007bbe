package video

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer mints short-lived room tokens for the external media provider.
// Media itself never touches this process; once a call is accepted both
// parties attach to the provider directly using these tokens.
type Issuer struct {
	appID  string
	secret []byte
	ttl    time.Duration
}

var ErrNotConfigured = errors.New("video provider credentials not configured")

func NewIssuer(appID, appSecret string, ttl time.Duration) *Issuer {
	return &Issuer{
		appID:  appID,
		secret: []byte(appSecret),
		ttl:    ttl,
	}
}

// RoomToken returns a signed token granting identity access to the media room
// named after the consultation.
func (i *Issuer) RoomToken(consultationID, identity string) (string, error) {
	if i.appID == "" || len(i.secret) == 0 {
		return "", ErrNotConfigured
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"iss":      i.appID,
		"room":     consultationID,
		"identity": identity,
		"iat":      now.Unix(),
		"exp":      now.Add(i.ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}
