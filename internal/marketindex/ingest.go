package marketindex

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/marketwatch/agentcore/internal/clock"
	"github.com/marketwatch/agentcore/internal/domain"
	"github.com/marketwatch/agentcore/internal/store"
	"github.com/marketwatch/agentcore/internal/venues"
)

var defaultSportsTags = map[string]bool{
	"nfl": true, "nba": true, "mlb": true, "nhl": true, "soccer": true,
	"football": true, "basketball": true, "baseball": true, "hockey": true,
	"tennis": true, "golf": true, "ufc": true, "mma": true, "boxing": true,
}

// SyncOptions configures one ingestion pass (spec §4.D).
type SyncOptions struct {
	Platforms        []domain.Venue
	Status           string // open|closed|settled|all
	LimitPerPlatform int
	ExcludeSports    bool
	ExcludeResolved  bool
	MinLiquidity     *float64
	MinVolume24h     *float64
	MinOpenInterest  *float64
	MinPredictions   *float64
	Prune            bool
	StaleAfterMS     int64
}

const pageSize = 100

// Engine owns the MarketIndex's ingestion, hashing, search, and prune
// responsibilities (spec §4.D).
type Engine struct {
	db       *store.DB
	registry venues.Registry
	embedder Embedder
	clock    clock.Clock
	log      zerolog.Logger
}

func NewEngine(db *store.DB, registry venues.Registry, embedder Embedder, clk clock.Clock, log zerolog.Logger) *Engine {
	if embedder == nil {
		embedder = HashEmbedder{}
	}
	return &Engine{db: db, registry: registry, embedder: embedder, clock: clk, log: log.With().Str("component", "marketindex").Logger()}
}

// Sync ingests every requested platform independently, returning a
// per-platform count of upserted entries. A venue error is logged and
// contributes 0 to that platform's count rather than aborting the run
// (spec §4.D: "a venue error logs a warning and yields {platform: 0}").
func (e *Engine) Sync(ctx context.Context, opts SyncOptions) (map[domain.Venue]int, error) {
	if opts.LimitPerPlatform <= 0 {
		opts.LimitPerPlatform = 5000
	}
	if opts.StaleAfterMS <= 0 {
		opts.StaleAfterMS = 7 * 24 * 3600 * 1000
	}

	results := make(map[domain.Venue]int, len(opts.Platforms))
	for _, v := range opts.Platforms {
		n, err := e.syncOne(ctx, v, opts)
		if err != nil {
			e.log.Warn().Err(err).Str("platform", string(v)).Msg("market index sync failed for venue")
			results[v] = 0
			continue
		}
		results[v] = n

		if opts.Prune {
			cutoff := e.clock.Now().Add(-time.Duration(opts.StaleAfterMS) * time.Millisecond).UnixMilli()
			pruned, err := e.db.PruneMarketIndexBefore(ctx, cutoff)
			if err != nil {
				e.log.Warn().Err(err).Str("platform", string(v)).Msg("prune failed")
			} else if pruned > 0 {
				e.log.Info().Int64("count", pruned).Str("platform", string(v)).Msg("pruned stale market index entries")
			}
		}
	}
	return results, nil
}

func (e *Engine) syncOne(ctx context.Context, v domain.Venue, opts SyncOptions) (int, error) {
	adapter, ok := e.registry.Get(v)
	if !ok {
		return 0, nil
	}
	lister, ok := adapter.(venues.Lister)
	if !ok {
		return 0, nil
	}

	upserted := 0
	for page := 0; upserted < opts.LimitPerPlatform; page++ {
		result, err := lister.ListMarketPage(ctx, opts.Status, page, pageSize)
		if err != nil {
			return upserted, err
		}

		for _, entry := range result.Entries {
			if !passesFilters(entry, opts) {
				continue
			}
			entry.ContentHash = ContentHash(entry)
			entry.UpdatedAt = e.clock.Now().UnixMilli()

			existing, err := e.db.GetMarketIndexEntry(ctx, entry.Platform, entry.MarketID)
			if err == nil && existing.ContentHash == entry.ContentHash {
				continue
			}
			if err := e.db.UpsertMarketIndexEntry(ctx, entry); err != nil {
				return upserted, err
			}
			upserted++
		}

		if !result.HasMore {
			break
		}
		e.clock.Sleep(100 * time.Millisecond)
	}
	return upserted, nil
}

func passesFilters(e domain.MarketIndexEntry, opts SyncOptions) bool {
	if opts.ExcludeSports && isSports(e) {
		return false
	}
	if opts.ExcludeResolved && e.Resolved {
		return false
	}
	if e.Status == "settled" && !e.Resolved {
		return false
	}
	if !passesThreshold(opts.MinLiquidity, e.Liquidity) {
		return false
	}
	if !passesThreshold(opts.MinVolume24h, e.Volume24h) {
		return false
	}
	if !passesThreshold(opts.MinOpenInterest, e.OpenInterest) {
		return false
	}
	if !passesThreshold(opts.MinPredictions, e.Predictions) {
		return false
	}
	return true
}

func passesThreshold(min *float64, val *float64) bool {
	if min == nil {
		return true
	}
	if val == nil {
		return false
	}
	return *val >= *min
}

func isSports(e domain.MarketIndexEntry) bool {
	haystack := strings.ToLower(e.Question + " " + e.TagsJSON)
	for tag := range defaultSportsTags {
		if strings.Contains(haystack, tag) {
			return true
		}
	}
	return false
}

// Search runs the hybrid lexical+vector search (spec §4.D).
func (e *Engine) Search(ctx context.Context, opts SearchOptions) ([]ScoredEntry, error) {
	opts = opts.withDefaults()

	var candidates []domain.MarketIndexEntry
	var err error
	if opts.Platform != "" {
		candidates, err = e.db.ListMarketIndexByPlatform(ctx, opts.Platform)
	} else {
		candidates, err = e.db.ListMarketIndexAll(ctx)
	}
	if err != nil {
		return nil, err
	}

	candidates = lexicalPreFilter(opts.Query, candidates)
	if len(candidates) > opts.MaxCandidates {
		candidates = candidates[:opts.MaxCandidates]
	}

	queryVecs, err := e.embedder.Embed(ctx, []string{opts.Query})
	if err != nil {
		return nil, err
	}
	queryVec := queryVecs[0]

	var missing []domain.MarketIndexEntry
	vectors := make(map[string][]float32, len(candidates))
	for _, c := range candidates {
		hash := ContentHash(c)
		emb, err := e.db.GetEmbedding(ctx, c.Platform, c.MarketID)
		if err != nil || emb.ContentHash != hash {
			missing = append(missing, c)
			continue
		}
		vectors[embedKey(c.Platform, c.MarketID)] = emb.Vector
	}

	if len(missing) > 0 {
		texts := make([]string, len(missing))
		for i, c := range missing {
			texts[i] = c.Question + " " + c.Description
		}
		embs, err := e.embedder.Embed(ctx, texts)
		if err != nil {
			return nil, err
		}
		for i, c := range missing {
			vec := embs[i]
			vectors[embedKey(c.Platform, c.MarketID)] = vec
			_ = e.db.UpsertEmbedding(ctx, domain.Embedding{
				Platform: c.Platform, MarketID: c.MarketID, ContentHash: ContentHash(c), Vector: vec,
			})
		}
	}

	scored := make([]ScoredEntry, 0, len(candidates))
	for _, c := range candidates {
		vec, ok := vectors[embedKey(c.Platform, c.MarketID)]
		if !ok {
			continue
		}
		score := cosineSimilarity(queryVec, vec)*platformWeight(opts.PlatformWeight, c.Platform) + lexicalBoost(opts.Query, c)
		if opts.MinScore != nil && score < *opts.MinScore {
			continue
		}
		scored = append(scored, ScoredEntry{Entry: c, Score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > opts.Limit {
		scored = scored[:opts.Limit]
	}
	return scored, nil
}

func embedKey(platform domain.Venue, marketID string) string {
	return string(platform) + "/" + marketID
}
