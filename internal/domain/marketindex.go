package domain

// MarketIndexEntry is a row in the cross-venue market catalog (spec §3/§4.D).
type MarketIndexEntry struct {
	Platform     Venue   `json:"platform"`
	MarketID     string  `json:"marketId"`
	Slug         string  `json:"slug"`
	Question     string  `json:"question"`
	Description  string  `json:"description"`
	OutcomesJSON string  `json:"outcomesJson"`
	TagsJSON     string  `json:"tagsJson"`
	Status       string  `json:"status"`
	URL          string  `json:"url"`
	EndDate      int64   `json:"endDate,omitempty"`
	Resolved     bool    `json:"resolved"`
	Volume24h    *float64 `json:"volume24h,omitempty"`
	Liquidity    *float64 `json:"liquidity,omitempty"`
	OpenInterest *float64 `json:"openInterest,omitempty"`
	Predictions  *float64 `json:"predictions,omitempty"`
	ContentHash  string  `json:"contentHash"`
	UpdatedAt    int64   `json:"updatedAtMs"`
}

// Embedding is a cached vector for a MarketIndexEntry, valid only for
// the ContentHash it was computed from (spec §3, §4.D hybrid invariant).
type Embedding struct {
	Platform    Venue     `json:"platform"`
	MarketID    string    `json:"marketId"`
	ContentHash string    `json:"contentHash"`
	Vector      []float32 `json:"vector"`
}
