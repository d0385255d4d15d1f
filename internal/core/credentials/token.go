package credentials

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

// Precision is the resolution of token issue times. Revocation times must be
// stored with the same resolution.
const Precision = time.Microsecond

func init() {
	// Keep sub-second digits in iat/exp. Decoded values go through float64, so
	// Verify rounds them back to Precision.
	jwt.TimePrecision = time.Nanosecond
}

// Claims are carried by every session token.
type Claims struct {
	AccountID string `json:"id"`
	jwt.RegisteredClaims
}

// Signer issues RS256 session tokens.
type Signer struct {
	key *rsa.PrivateKey
}

func NewSigner(key *rsa.PrivateKey) *Signer {
	return &Signer{key: key}
}

func (s *Signer) Sign(accountID uuid.UUID, issuedAt time.Time, ttl time.Duration) (string, error) {
	issuedAt = issuedAt.Truncate(Precision)
	claims := Claims{
		AccountID: accountID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verifier checks session tokens with only the public key.
type Verifier struct {
	key *rsa.PublicKey
	now func() time.Time
}

func NewVerifier(key *rsa.PublicKey) *Verifier {
	return &Verifier{key: key, now: time.Now}
}

// TokenInfo is what a verified token says about its holder.
type TokenInfo struct {
	AccountID uuid.UUID
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Verify checks the signature and expiry of token. It does not know about
// revocation; that needs the account.
func (v *Verifier) Verify(token string) (*TokenInfo, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return v.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	id, err := uuid.Parse(claims.AccountID)
	if err != nil {
		return nil, fmt.Errorf("%w: bad account id", ErrInvalidToken)
	}
	if claims.IssuedAt == nil {
		return nil, fmt.Errorf("%w: missing iat", ErrInvalidToken)
	}

	return &TokenInfo{
		AccountID: id,
		IssuedAt:  claims.IssuedAt.Time.Round(Precision),
		ExpiresAt: claims.ExpiresAt.Time.Round(Precision),
	}, nil
}
