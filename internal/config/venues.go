package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/marketwatch/agentcore/internal/httpfabric"
)

// HostRateOverride is one host's sliding-window rate limit, as loaded
// from the optional per-host overrides file (spec §4.B:
// "PerHostOverride" exceptions to the default rate rule — e.g. a venue
// whose published rate limit differs from the fabric's 60/60s default).
type HostRateOverride struct {
	Host        string `yaml:"host"`
	MaxRequests int    `yaml:"maxRequests"`
	WindowMS    int64  `yaml:"windowMs"`
}

// LoadHostRateOverrides reads a YAML file of per-host rate overrides
// and converts it to the map httpfabric.Config.PerHostOverride expects.
// Absence of the file is not an error — the fabric's DefaultRate alone
// governs every host in that case.
func LoadHostRateOverrides(path string) (map[string]httpfabric.RateRule, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var entries []HostRateOverride
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	overrides := make(map[string]httpfabric.RateRule, len(entries))
	for _, e := range entries {
		overrides[e.Host] = httpfabric.RateRule{MaxRequests: e.MaxRequests, WindowMS: e.WindowMS}
	}
	return overrides, nil
}
