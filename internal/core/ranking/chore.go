package ranking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"Wire/internal/core/posts"
	"Wire/internal/identity"
	"Wire/internal/kv"
)

const (
	// KeyExplore holds the ranked candidate list.
	KeyExplore = "explore:ranked"

	exploreTTL    = 15 * time.Minute
	exploreCap    = 500
	exploreWindow = 7 * 24 * time.Hour
	scanBatchSize = 100

	// Author diversity: reject a candidate whose author already holds
	// two of the last four slots.
	diversityWindow = 4
	diversityMax    = 2
)

// Candidate is one explore entry. The timeline joins the live snapshot
// at read time, so only the merge filters are denormalized here.
type Candidate struct {
	PostID   string  `json:"postId"`
	AuthorID string  `json:"authorId"`
	Score    float64 `json:"score"`
}

// Chore rebuilds the explore cache on a fixed interval.
type Chore struct {
	store    kv.Store
	log      zerolog.Logger
	interval time.Duration
	now      func() time.Time
}

func NewChore(store kv.Store, interval time.Duration, log zerolog.Logger) *Chore {
	if interval <= 0 {
		interval = exploreTTL
	}
	return &Chore{store: store, log: log, interval: interval, now: time.Now}
}

// Run rebuilds immediately, then on every tick until ctx is canceled.
// Rebuild failures are logged and retried next tick; the previous cache
// serves reads meanwhile.
func (c *Chore) Run(ctx context.Context) error {
	if err := c.Rebuild(ctx); err != nil {
		c.log.Error().Err(err).Msg("explore rebuild failed")
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := c.Rebuild(ctx); err != nil {
				c.log.Error().Err(err).Msg("explore rebuild failed")
			}
		}
	}
}

// Rebuild scans snapshots of the last seven days, scores the live ones,
// applies author diversity and caches the top of the list.
func (c *Chore) Rebuild(ctx context.Context) error {
	started := c.now()

	keys, err := c.store.Keys(ctx, "post:", 0)
	if err != nil {
		return fmt.Errorf("ranking scan: %w", err)
	}

	// The id inside the key carries its creation time, so stale posts
	// drop out before any snapshot fetch.
	horizon := started.Add(-exploreWindow)
	recent := keys[:0]
	for _, key := range keys {
		id := strings.TrimPrefix(key, "post:")
		if ts := identity.Timestamp(id); !ts.IsZero() && ts.After(horizon) {
			recent = append(recent, key)
		}
	}

	var candidates []Candidate
	for start := 0; start < len(recent); start += scanBatchSize {
		end := start + scanBatchSize
		if end > len(recent) {
			end = len(recent)
		}
		found, err := c.store.MGet(ctx, recent[start:end])
		if err != nil {
			return fmt.Errorf("ranking fetch: %w", err)
		}
		for _, raw := range found {
			var snap posts.Snapshot
			if err := json.Unmarshal([]byte(raw), &snap); err != nil {
				continue
			}
			if snap.Gone() {
				continue
			}
			score := Score(snap.LikeCount, snap.ReplyCount, snap.RepostCount, started.Sub(snap.CreatedAt))
			if score <= 0 {
				continue
			}
			candidates = append(candidates, Candidate{PostID: snap.ID, AuthorID: snap.AuthorID, Score: score})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].PostID > candidates[j].PostID
	})
	ranked := diversify(candidates)

	raw, err := json.Marshal(ranked)
	if err != nil {
		return fmt.Errorf("ranking encode: %w", err)
	}
	if err := c.store.Set(ctx, KeyExplore, string(raw), exploreTTL); err != nil {
		return fmt.Errorf("ranking store: %w", err)
	}

	c.log.Info().Int("scanned", len(recent)).Int("ranked", len(ranked)).
		Dur("took", time.Since(started)).Msg("explore cache rebuilt")
	return nil
}

// Explore returns the cached candidate list, empty when the cache has
// expired and the next rebuild has not landed yet.
func (c *Chore) Explore(ctx context.Context) ([]Candidate, error) {
	raw, err := c.store.Get(ctx, KeyExplore)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []Candidate
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("ranking decode: %w", err)
	}
	return out, nil
}

// diversify walks the score-ordered candidates, skipping any author
// holding two of the last four output slots. When every remaining
// author is saturated the best remaining goes through anyway.
func diversify(sorted []Candidate) []Candidate {
	out := make([]Candidate, 0, min(len(sorted), exploreCap))
	remaining := append([]Candidate(nil), sorted...)

	for len(remaining) > 0 && len(out) < exploreCap {
		picked := 0
		found := false
		for i, cand := range remaining {
			if recentAuthorCount(out, cand.AuthorID) < diversityMax {
				picked, found = i, true
				break
			}
		}
		if !found {
			picked = 0
		}
		out = append(out, remaining[picked])
		remaining = append(remaining[:picked], remaining[picked+1:]...)
	}
	return out
}

func recentAuthorCount(out []Candidate, authorID string) int {
	start := len(out) - diversityWindow
	if start < 0 {
		start = 0
	}
	n := 0
	for _, c := range out[start:] {
		if c.AuthorID == authorID {
			n++
		}
	}
	return n
}
