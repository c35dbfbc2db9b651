package core

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/marketwatch/agentcore/internal/coreerr"
	"github.com/marketwatch/agentcore/internal/domain"
	"github.com/marketwatch/agentcore/internal/venues"
)

// EnvCredentialResolver resolves venue API credentials from the
// process environment, keyed by user and platform. The Store only ever
// tracks credential *enablement* (domain.TradingCredential has no
// secret fields by design); actual key material lives wherever the
// deployment keeps its secrets, which for this build is the same
// environment the rest of internal/config reads from.
//
// Lookup keys follow CRED_<USERID>_<PLATFORM>_{API_KEY,API_SECRET,WALLET},
// with userID and platform upper-cased and non-alphanumerics folded to
// underscores.
type EnvCredentialResolver struct{}

func NewEnvCredentialResolver() EnvCredentialResolver { return EnvCredentialResolver{} }

func (EnvCredentialResolver) Resolve(_ context.Context, userID string, platform domain.Venue) (venues.Credentials, error) {
	prefix := "CRED_" + envKey(userID) + "_" + envKey(string(platform)) + "_"
	apiKey := os.Getenv(prefix + "API_KEY")
	if apiKey == "" {
		return venues.Credentials{}, fmt.Errorf("%w: no credentials configured for user=%s platform=%s", coreerr.ErrConfigInvalid, userID, platform)
	}
	return venues.Credentials{
		APIKey:    apiKey,
		APISecret: os.Getenv(prefix + "API_SECRET"),
		Wallet:    os.Getenv(prefix + "WALLET"),
	}, nil
}

func envKey(s string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(s) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}
