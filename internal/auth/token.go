// Package auth issues and verifies the HS256 bearer tokens accepted by the
// vault API.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/juju/clock"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims identify a user acting within one organization.
type Claims struct {
	Sub string `json:"sub"`
	Org string `json:"org"`
	Exp int64  `json:"exp"`
	Iat int64  `json:"iat"`
	Iss string `json:"iss"`
}

// Tokens signs and validates tokens with a shared secret.
type Tokens struct {
	secret []byte
	issuer string
	clock  clock.Clock
}

func NewTokens(secret, issuer string, clk clock.Clock) *Tokens {
	return &Tokens{secret: []byte(secret), issuer: issuer, clock: clk}
}

// Issue creates a signed token for the user within the organization.
func (t *Tokens) Issue(userID, organizationID string, ttl time.Duration) (string, error) {
	now := t.clock.Now()
	claims := Claims{
		Sub: userID,
		Org: organizationID,
		Iat: now.Unix(),
		Exp: now.Add(ttl).Unix(),
		Iss: t.issuer,
	}

	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	claimsJSON, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("encode claims: %w", err)
	}
	signingInput := header + "." + base64.RawURLEncoding.EncodeToString(claimsJSON)
	sig := base64.RawURLEncoding.EncodeToString(t.sign([]byte(signingInput)))

	return signingInput + "." + sig, nil
}

// Validate verifies the signature, issuer and expiry of a token.
func (t *Tokens) Validate(token string) (*Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: malformed", ErrInvalidToken)
	}

	actualSig, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return nil, fmt.Errorf("%w: signature encoding", ErrInvalidToken)
	}
	if subtle.ConstantTimeCompare(t.sign([]byte(parts[0]+"."+parts[1])), actualSig) != 1 {
		return nil, fmt.Errorf("%w: signature mismatch", ErrInvalidToken)
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: payload encoding", ErrInvalidToken)
	}
	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, fmt.Errorf("%w: claims: %v", ErrInvalidToken, err)
	}

	if claims.Iss != t.issuer {
		return nil, fmt.Errorf("%w: unexpected issuer", ErrInvalidToken)
	}
	if t.clock.Now().Unix() > claims.Exp {
		return nil, fmt.Errorf("%w: expired", ErrInvalidToken)
	}
	if claims.Sub == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return &claims, nil
}

func (t *Tokens) sign(data []byte) []byte {
	mac := hmac.New(sha256.New, t.secret)
	mac.Write(data)
	return mac.Sum(nil)
}
