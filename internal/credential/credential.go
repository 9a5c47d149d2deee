// Package credential defines the commit signing/verification boundary. The
// engine itself never decides what counts as a valid signer -- it calls
// Signer/Verifier and records whatever opaque signature comes back on the
// commit document -- but ships one concrete JWT-based implementation so the
// engine is usable standalone.
package credential

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/graphledger/graphledger/internal/engine/errs"
)

// Signer produces an opaque signature over a commit's content hash.
type Signer interface {
	Sign(ctx context.Context, commitHash string) (signature string, err error)
}

// Verifier checks a signature produced by a Signer against the commit hash
// it was supposedly produced over, returning the authenticated identity.
type Verifier interface {
	Verify(ctx context.Context, commitHash, signature string) (identity string, err error)
}

// claims is the JWT payload: just the commit hash and issuer identity, kept
// minimal since the signature's only job is proving "this identity attests
// to this exact content hash".
type claims struct {
	jwt.RegisteredClaims
	CommitHash string `json:"gh"`
}

// JWTSigner signs commit hashes as HS256 JWTs under a shared secret. This
// is the engine's default: adequate for a single-org deployment where the
// signing key itself is distributed out of band; multi-party signing
// belongs to a Signer/Verifier pair the embedder supplies.
type JWTSigner struct {
	Identity string
	secret   []byte
}

func NewJWTSigner(identity string, secret []byte) *JWTSigner {
	return &JWTSigner{Identity: identity, secret: secret}
}

func (s *JWTSigner) Sign(_ context.Context, commitHash string) (string, error) {
	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.Identity,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
		CommitHash: commitHash,
	})
	signed, err := tok.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("credential: sign: %w", err)
	}
	return signed, nil
}

// JWTVerifier verifies tokens produced by a JWTSigner sharing the same
// secret.
type JWTVerifier struct {
	secret []byte
}

func NewJWTVerifier(secret []byte) *JWTVerifier {
	return &JWTVerifier{secret: secret}
}

func (v *JWTVerifier) Verify(_ context.Context, commitHash, signature string) (string, error) {
	var c claims
	tok, err := jwt.ParseWithClaims(signature, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !tok.Valid {
		return "", fmt.Errorf("%w: %v", errs.ErrInvalidCredential, err)
	}
	if c.CommitHash != commitHash {
		return "", fmt.Errorf("%w: signature covers a different commit hash", errs.ErrInvalidCredential)
	}
	return c.Issuer, nil
}

var _ Signer = (*JWTSigner)(nil)
var _ Verifier = (*JWTVerifier)(nil)
