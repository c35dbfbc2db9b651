// Package marketindex implements the cross-venue market catalog: paged
// ingestion, deterministic content hashing, hybrid lexical+vector
// search, and staleness pruning (spec §4.D).
package marketindex

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/marketwatch/agentcore/internal/domain"
)

// hashable is the subset of MarketIndexEntry that participates in the
// content hash — everything except ContentHash and UpdatedAt, which
// would otherwise make the hash depend on when it was computed (spec
// §4.D's hybrid invariant: identical inputs must yield an identical hash
// across runs).
type hashable struct {
	Platform     domain.Venue `json:"platform"`
	MarketID     string       `json:"marketId"`
	Slug         string       `json:"slug"`
	Question     string       `json:"question"`
	Description  string       `json:"description"`
	OutcomesJSON string       `json:"outcomesJson"`
	TagsJSON     string       `json:"tagsJson"`
	Status       string       `json:"status"`
	URL          string       `json:"url"`
	EndDate      int64        `json:"endDate"`
	Resolved     bool         `json:"resolved"`
	Volume24h    *float64     `json:"volume24h,omitempty"`
	Liquidity    *float64     `json:"liquidity,omitempty"`
	OpenInterest *float64     `json:"openInterest,omitempty"`
	Predictions  *float64     `json:"predictions,omitempty"`
}

// ContentHash computes a deterministic hash of an entry's hashed
// fields. Go's encoding/json marshals struct fields in declaration
// order, which is fixed across runs/processes, making this "canonical"
// without needing a separate key-sorting pass.
func ContentHash(e domain.MarketIndexEntry) string {
	h := hashable{
		Platform: e.Platform, MarketID: e.MarketID, Slug: e.Slug, Question: e.Question,
		Description: e.Description, OutcomesJSON: e.OutcomesJSON, TagsJSON: e.TagsJSON,
		Status: e.Status, URL: e.URL, EndDate: e.EndDate, Resolved: e.Resolved,
		Volume24h: e.Volume24h, Liquidity: e.Liquidity, OpenInterest: e.OpenInterest, Predictions: e.Predictions,
	}
	b, err := json.Marshal(h)
	if err != nil {
		// Marshal of a plain value struct cannot fail; this is
		// unreachable in practice but kept explicit over a panic.
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
