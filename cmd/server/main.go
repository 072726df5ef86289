// Command server runs a Wire node: the HTTP and websocket API, the
// fan-out consumer, and the explore ranking chore, all over one Redis
// kv tier.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	authapi "Wire/internal/api/handlers/auth"
	feedapi "Wire/internal/api/handlers/feed"
	mediaapi "Wire/internal/api/handlers/media"
	modapi "Wire/internal/api/handlers/moderation"
	notifapi "Wire/internal/api/handlers/notification"
	postapi "Wire/internal/api/handlers/post"
	searchapi "Wire/internal/api/handlers/search"
	userapi "Wire/internal/api/handlers/user"
	wsapi "Wire/internal/api/handlers/ws"
	"Wire/internal/api/middleware"
	"Wire/internal/api/routes"
	"Wire/internal/config"
	"Wire/internal/coord"
	"Wire/internal/core/auth"
	"Wire/internal/core/fanout"
	"Wire/internal/core/feeds"
	"Wire/internal/core/notifications"
	"Wire/internal/core/posts"
	"Wire/internal/core/ranking"
	"Wire/internal/core/search"
	"Wire/internal/core/timeline"
	"Wire/internal/core/users"
	"Wire/internal/identity"
	"Wire/internal/kv"
	"Wire/internal/media"
	"Wire/internal/queue"
	"Wire/internal/realtime"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := newLogger(cfg)

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
	log.Info().Msg("shutdown complete")
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("env", cfg.Environment).
		Int64("issuer", cfg.IssuerID).
		Msg("starting wire")

	store, err := kv.NewRedisStore(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer store.Close()
	log.Info().Msg("redis connected")

	ids, err := identity.NewGenerator(cfg.IssuerID)
	if err != nil {
		return fmt.Errorf("creating id generator: %w", err)
	}

	var q eventQueue
	if cfg.NatsURL != "" {
		nq, err := queue.NewNATS(cfg.NatsURL, log)
		if err != nil {
			return fmt.Errorf("connecting to nats: %w", err)
		}
		q = nq
		log.Info().Msg("nats connected")
	} else {
		q = queue.NewMem(log)
		log.Warn().Msg("NATS_URL not set; using the in-process queue (single node only)")
	}
	defer q.Close()

	group := coord.NewGroup()
	gateway := realtime.NewGateway(log)

	// The user service indexes into search and notifies through the
	// notification service, both of which read back through the user
	// service. The hooks below break those construction cycles; they
	// are bound before any request is served.
	indexer := &searchIndexer{}
	follows := &followNotifier{}

	userSvc := users.NewService(users.NewCoordinator(store, group, log), store, indexer, follows, log)

	notifSvc := notifications.NewService(notifications.NewCoordinator(store, group, log), userSvc, ids, gateway, log)
	follows.inner = notifSvc

	postSvc := posts.NewService(posts.NewCoordinator(store, group, log), store, ids, q,
		userOps{userSvc}, notifSvc, indexer, cfg.MaxPostLength, log)

	searchSvc := search.NewService(store, group, postSvc, userSvc, log)
	indexer.inner = searchSvc

	feedSvc := feeds.NewService(feeds.NewCoordinator(store, group, log), postSvc, log)
	chore := ranking.NewChore(store, cfg.RankingInterval, log)
	timelineSvc := timeline.NewService(feedSvc, chore, userSvc, postSvc, log)
	worker := fanout.NewWorker(feedSvc, userSvc, postSvc, gateway, cfg.FanoutParallel, log)

	tokens := auth.NewTokens([]byte(cfg.JWTSecret), cfg.JWTExpiry)
	limiter := auth.NewLimiter(store)
	authSvc := auth.NewService(store, group, userSvc, ids, tokens, limiter, log)
	bans := auth.NewBanGate(store, userSvc, log)

	blobs, err := media.NewFSStore(cfg.MediaDir)
	if err != nil {
		return fmt.Errorf("opening media dir: %w", err)
	}
	mediaSvc := media.NewService(blobs, log)

	if cfg.AdminHandle != "" {
		grantAdmin(ctx, userSvc, cfg.AdminHandle, log)
	}

	authMW := middleware.NewAuth(authSvc, bans, log)
	rl := middleware.NewRateLimit(limiter, log)

	router := routes.New(routes.Deps{
		Log:       log,
		AuthMW:    authMW,
		RateLimit: rl,
		Admins:    userSvc,

		Auth:         authapi.NewHandler(authSvc, userSvc, log),
		User:         userapi.NewHandler(userSvc, postSvc, log),
		Post:         postapi.NewHandler(postSvc, log),
		Feed:         feedapi.NewHandler(timelineSvc, log),
		Notification: notifapi.NewHandler(notifSvc, log),
		Search:       searchapi.NewHandler(searchSvc, log),
		Moderation:   modapi.NewHandler(userSvc, postSvc, log),
		Media:        mediaapi.NewHandler(mediaSvc, userSvc, log),
		WS:           wsapi.NewHandler(authSvc, bans, gateway, log),

		Ping: store.Ping,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return gateway.Run(gctx) })
	g.Go(func() error { return chore.Run(gctx) })

	if err := q.Start(gctx, worker); err != nil {
		return fmt.Errorf("starting fan-out consumer: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	log.Info().Str("addr", cfg.Addr).Msg("wire api listening")

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var out = os.Stderr
	if cfg.LogFormat == "pretty" {
		return zerolog.New(zerolog.ConsoleWriter{Out: out}).Level(level).With().Timestamp().Logger()
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// grantAdmin promotes the configured operator handle. The account may
// not have signed up yet; each boot retries until it exists.
func grantAdmin(ctx context.Context, svc users.Service, handle string, log zerolog.Logger) {
	id, err := svc.ResolveHandle(ctx, handle)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			log.Warn().Str("handle", handle).Msg("admin handle not registered yet")
		} else {
			log.Error().Err(err).Str("handle", handle).Msg("resolving admin handle")
		}
		return
	}
	if err := svc.SetAdmin(ctx, id, true); err != nil {
		log.Error().Err(err).Str("handle", handle).Msg("granting admin")
	}
}

// eventQueue is the publish and consume surface of either queue
// implementation.
type eventQueue interface {
	queue.Publisher
	queue.Consumer
}

// userOps adapts the user service to the slice the post domain needs.
type userOps struct {
	users users.Service
}

func (a userOps) Get(ctx context.Context, id string) (*posts.UserCard, error) {
	st, err := a.users.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &posts.UserCard{
		ID:          st.ID,
		Handle:      st.Handle,
		DisplayName: st.Profile.DisplayName,
		AvatarURL:   st.Profile.AvatarURL,
	}, nil
}

func (a userOps) ResolveHandle(ctx context.Context, handle string) (string, error) {
	return a.users.ResolveHandle(ctx, handle)
}

func (a userOps) IncrementPostCount(ctx context.Context, id string) error {
	return a.users.IncrementPostCount(ctx, id)
}

func (a userOps) DecrementPostCount(ctx context.Context, id string) error {
	return a.users.DecrementPostCount(ctx, id)
}

func (a userOps) RecordLike(ctx context.Context, userID, postID string) error {
	return a.users.RecordLike(ctx, userID, postID)
}

func (a userOps) ForgetLike(ctx context.Context, userID, postID string) error {
	return a.users.ForgetLike(ctx, userID, postID)
}

// searchIndexer forwards index writes to the search service once it
// exists. It satisfies both the user and post domains' indexer
// collaborators.
type searchIndexer struct {
	inner search.Service
}

func (h *searchIndexer) IndexUser(ctx context.Context, userID, handle, displayName string) error {
	return h.inner.IndexUser(ctx, userID, handle, displayName)
}

func (h *searchIndexer) ReindexDisplayName(ctx context.Context, userID, oldName, newName string) error {
	return h.inner.ReindexDisplayName(ctx, userID, oldName, newName)
}

func (h *searchIndexer) IndexPost(ctx context.Context, postID, content string, createdAt time.Time) error {
	return h.inner.IndexPost(ctx, postID, content, createdAt)
}

func (h *searchIndexer) RemovePost(ctx context.Context, postID string) error {
	return h.inner.RemovePost(ctx, postID)
}

// followNotifier forwards follow notifications to the notification
// service once it exists.
type followNotifier struct {
	inner notifications.Service
}

func (h *followNotifier) NotifyFollow(ctx context.Context, recipientID, actorID string) error {
	return h.inner.NotifyFollow(ctx, recipientID, actorID)
}
