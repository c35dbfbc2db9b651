package core

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketwatch/agentcore/internal/domain"
)

func TestEnvCredentialResolver_ResolvesFromEnv(t *testing.T) {
	t.Setenv("CRED_U1_POLYMARKET_API_KEY", "key123")
	t.Setenv("CRED_U1_POLYMARKET_API_SECRET", "secret456")

	r := NewEnvCredentialResolver()
	creds, err := r.Resolve(context.Background(), "u1", domain.VenuePolymarket)
	require.NoError(t, err)
	assert.Equal(t, "key123", creds.APIKey)
	assert.Equal(t, "secret456", creds.APISecret)
}

func TestEnvCredentialResolver_MissingKeyReturnsError(t *testing.T) {
	os.Unsetenv("CRED_U2_KALSHI_API_KEY")
	r := NewEnvCredentialResolver()
	_, err := r.Resolve(context.Background(), "u2", domain.VenueKalshi)
	assert.Error(t, err)
}

func TestEnvCredentialResolver_NonAlphanumericUserIDIsFolded(t *testing.T) {
	t.Setenv("CRED_USER_1_MANIFOLD_API_KEY", "k")
	r := NewEnvCredentialResolver()
	creds, err := r.Resolve(context.Background(), "user-1", domain.VenueManifold)
	require.NoError(t, err)
	assert.Equal(t, "k", creds.APIKey)
}
