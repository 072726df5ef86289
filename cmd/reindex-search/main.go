// cmd/reindex-search/main.go
// Rebuilds the search indexes from the authoritative kv blobs. Use
// after an index wipe or a tokenizer change; the tool is safe to rerun.
package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/rs/zerolog"

	"Wire/internal/coord"
	"Wire/internal/core/posts"
	"Wire/internal/core/search"
	"Wire/internal/core/users"
	"Wire/internal/kv"
)

// indexPrefixes are the derived keyspaces the rebuild owns outright.
var indexPrefixes = []string{"word:", "idx:", "handle-idx:", "name-idx:"}

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379/0"
	}

	ctx := context.Background()
	store, err := kv.NewRedisStore(ctx, redisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("connecting to redis")
	}
	defer store.Close()

	svc := search.NewService(store, coord.NewGroup(), nil, nil, log)

	// Reset the old indexes first; a partial index would satisfy
	// queries with stale hits.
	log.Info().Msg("clearing search indexes")
	for _, prefix := range indexPrefixes {
		keys, err := store.Keys(ctx, prefix, 0)
		if err != nil {
			log.Fatal().Err(err).Str("prefix", prefix).Msg("listing index keys")
		}
		if len(keys) == 0 {
			continue
		}
		if err := store.Delete(ctx, keys...); err != nil {
			log.Fatal().Err(err).Str("prefix", prefix).Msg("clearing index keys")
		}
	}

	indexedUsers := reindexUsers(ctx, store, svc, log)
	indexedPosts := reindexPosts(ctx, store, svc, log)

	log.Info().
		Int("users", indexedUsers).
		Int("posts", indexedPosts).
		Msg("reindex complete")
}

func reindexUsers(ctx context.Context, store kv.Store, svc search.Service, log zerolog.Logger) int {
	keys, err := store.Keys(ctx, "user:", 0)
	if err != nil {
		log.Fatal().Err(err).Msg("listing user blobs")
	}

	indexed := 0
	for _, key := range keys {
		raw, err := store.Get(ctx, key)
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("skipping unreadable user")
			continue
		}
		var st users.State
		if err := json.Unmarshal([]byte(raw), &st); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("skipping undecodable user")
			continue
		}
		if err := svc.IndexUser(ctx, st.ID, st.Handle, st.Profile.DisplayName); err != nil {
			log.Warn().Err(err).Str("userId", st.ID).Msg("indexing user")
			continue
		}
		indexed++
	}
	return indexed
}

func reindexPosts(ctx context.Context, store kv.Store, svc search.Service, log zerolog.Logger) int {
	keys, err := store.Keys(ctx, "post:", 0)
	if err != nil {
		log.Fatal().Err(err).Msg("listing post snapshots")
	}

	indexed := 0
	for _, key := range keys {
		raw, err := store.Get(ctx, key)
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("skipping unreadable post")
			continue
		}
		var snap posts.Snapshot
		if err := json.Unmarshal([]byte(raw), &snap); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("skipping undecodable post")
			continue
		}
		// Tombstones and contentless reposts stay out of the index,
		// same as on the live path.
		if snap.Gone() || snap.Content == "" {
			continue
		}
		if err := svc.IndexPost(ctx, snap.ID, snap.Content, snap.CreatedAt); err != nil {
			log.Warn().Err(err).Str("postId", snap.ID).Msg("indexing post")
			continue
		}
		indexed++
	}
	return indexed
}
