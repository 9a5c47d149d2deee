package credential

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/graphledger/graphledger/internal/engine/errs"
)

func TestJWTSignVerifyRoundTrips(t *testing.T) {
	ctx := context.Background()
	secret := []byte("shared-secret")

	signer := NewJWTSigner("gl-cli", secret)
	verifier := NewJWTVerifier(secret)

	sig, err := signer.Sign(ctx, "sha256:deadbeef")
	require.NoError(t, err)
	require.NotEmpty(t, sig)

	identity, err := verifier.Verify(ctx, "sha256:deadbeef", sig)
	require.NoError(t, err)
	require.Equal(t, "gl-cli", identity)
}

func TestJWTVerifyRejectsMismatchedHash(t *testing.T) {
	ctx := context.Background()
	secret := []byte("shared-secret")

	signer := NewJWTSigner("gl-cli", secret)
	verifier := NewJWTVerifier(secret)

	sig, err := signer.Sign(ctx, "sha256:deadbeef")
	require.NoError(t, err)

	_, err = verifier.Verify(ctx, "sha256:somethingelse", sig)
	require.ErrorIs(t, err, errs.ErrInvalidCredential)
}

func TestJWTVerifyRejectsWrongSecret(t *testing.T) {
	ctx := context.Background()
	signer := NewJWTSigner("gl-cli", []byte("secret-a"))
	verifier := NewJWTVerifier([]byte("secret-b"))

	sig, err := signer.Sign(ctx, "sha256:deadbeef")
	require.NoError(t, err)

	_, err = verifier.Verify(ctx, "sha256:deadbeef", sig)
	require.ErrorIs(t, err, errs.ErrInvalidCredential)
}
