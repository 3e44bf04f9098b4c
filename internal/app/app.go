// Package app is the composition root: it picks the storage, cache and
// broker backends from config, builds every service and handler, and runs
// the HTTP server next to the background workers.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"

	chatexpiry "rankgate/internal/chat/expiry"
	chathandler "rankgate/internal/chat/handler"
	chatmetrics "rankgate/internal/chat/metrics"
	chatmodels "rankgate/internal/chat/models"
	chatservice "rankgate/internal/chat/service"
	chatstore "rankgate/internal/chat/store"
	"rankgate/internal/chatchannel"
	"rankgate/internal/events"
	"rankgate/internal/events/outbox"
	forumhandler "rankgate/internal/forum/handler"
	forummetrics "rankgate/internal/forum/metrics"
	forumservice "rankgate/internal/forum/service"
	forumstore "rankgate/internal/forum/store"
	"rankgate/internal/identity"
	memberhandler "rankgate/internal/member/handler"
	membermetrics "rankgate/internal/member/metrics"
	memberservice "rankgate/internal/member/service"
	memberstore "rankgate/internal/member/store"
	"rankgate/internal/platform/authtoken"
	"rankgate/internal/platform/config"
	"rankgate/internal/platform/fieldcrypt"
	"rankgate/internal/platform/httpserver"
	"rankgate/internal/platform/kafka"
	"rankgate/internal/platform/metrics"
	"rankgate/internal/platform/postgres"
	"rankgate/internal/platform/redis"
	"rankgate/internal/ratelimit"
	httptransport "rankgate/internal/transport/http"
	vclient "rankgate/internal/verification/client"
	vhandler "rankgate/internal/verification/handler"
	vmetrics "rankgate/internal/verification/metrics"
	"rankgate/internal/verification/ports"
	vservice "rankgate/internal/verification/service"
	vstore "rankgate/internal/verification/store"
	id "rankgate/pkg/domain"
	"rankgate/pkg/platform/circuit"
)

const profileCipherPurpose = "member-profile"

// App owns every long-lived component of the process.
type App struct {
	cfg     config.Config
	logger  *slog.Logger
	handler http.Handler
	expiry  *chatexpiry.Service
	sweeper *chatexpiry.Sweeper
	relay   *outbox.Relay
	closers []func() error
}

type stores struct {
	members       memberservice.Store
	forums        forumservice.Store
	chats         chatStore
	verifications verificationStore
	publisher     events.Publisher
}

type chatStore interface {
	chatservice.Store
	chatexpiry.ChatStore
}

type verificationStore interface {
	vservice.SessionStore
	chatexpiry.VerificationStore
}

// New wires the process from cfg. Call Close when done, even if Run was never
// called.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger}
	if err := a.build(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context) error {
	reg := metrics.NewRegistry()
	checks := map[string]httptransport.HealthCheck{}

	sink, err := a.eventSink(ctx, checks)
	if err != nil {
		return err
	}

	var db *sqlx.DB
	if a.cfg.Postgres.DSN != "" {
		db, err = postgres.Open(ctx, a.cfg.Postgres)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, db.Close)
		checks["postgres"] = db.PingContext
		if a.cfg.Postgres.Migrate {
			if err := postgres.Migrate(ctx, db); err != nil {
				return err
			}
		}
	}

	rdb, err := redis.New(ctx, a.cfg.Redis)
	if err != nil {
		return err
	}
	if rdb != nil {
		a.closers = append(a.closers, rdb.Close)
		checks["redis"] = rdb.Health
	}

	st, err := a.buildStores(db, rdb, sink)
	if err != nil {
		return err
	}
	if db != nil {
		src := outbox.NewStore(db)
		a.relay = outbox.NewRelay(src, sink, a.cfg.Outbox.RelayInterval, a.cfg.Outbox.BatchSize,
			outbox.WithLogger(a.logger),
			outbox.WithMetrics(outbox.NewMetrics(reg)),
		)
	}

	channels, err := chatchannel.NewLocal()
	if err != nil {
		return err
	}
	identities := identity.NewVerifier(a.cfg.Auth.IDTokenKey, a.cfg.Auth.IDTokenIssuer, a.cfg.Auth.IDTokenAudience)
	tokens := authtoken.New(a.cfg.Auth.SigningKey, a.cfg.Auth.Issuer, a.cfg.Auth.Audience, a.cfg.Auth.TokenTTL)

	members := memberservice.New(st.members, st.forums, identities,
		memberservice.WithLogger(a.logger),
		memberservice.WithMetrics(membermetrics.New(reg)),
	)
	forums := forumservice.New(st.forums, st.members, channels,
		forumservice.WithLogger(a.logger),
		forumservice.WithMetrics(forummetrics.New(reg)),
		forumservice.WithJoinRetryAttempts(a.cfg.Forum.JoinRetryAttempts),
	)
	chats := chatservice.New(st.chats, st.members, channels,
		chatservice.WithLogger(a.logger),
		chatservice.WithMetrics(chatmetrics.New(reg)),
		chatservice.WithPolicies(map[chatmodels.SessionType]chatmodels.ExpiryPolicy{
			chatmodels.SessionTypeDailyMatch:     {Name: chatmodels.DailyMatchPolicy.Name, Duration: a.cfg.Expiry.DailyMatchTTL},
			chatmodels.SessionTypeGroupInitiated: {Name: chatmodels.GroupInitiatedPolicy.Name, Duration: a.cfg.Expiry.GroupInitiatedTTL},
		}),
		chatservice.WithRetryAttempts(a.cfg.Expiry.SaveRetryAttempts),
	)

	verifier, err := a.rankCardVerifier()
	if err != nil {
		return err
	}
	verifications := vservice.New(st.verifications, st.members, verifier, members,
		vservice.WithLogger(a.logger),
		vservice.WithMetrics(vmetrics.New(reg)),
		vservice.WithSessionTTL(a.cfg.Expiry.VerificationTTL),
	)

	a.expiry = chatexpiry.New(st.chats,
		chatexpiry.WithMetrics(chatexpiry.NewMetrics(reg)),
		chatexpiry.WithGracePeriod(a.cfg.Expiry.GracePeriod),
		chatexpiry.WithSaveRetryAttempts(a.cfg.Expiry.SaveRetryAttempts),
		chatexpiry.WithVerificationSessions(st.verifications),
	)
	a.sweeper = chatexpiry.NewSweeper(a.expiry, a.cfg.Expiry.SweepInterval, a.logger)

	limiter := a.limiter(rdb)
	a.handler = httptransport.NewRouter(httptransport.Deps{
		Members:        memberhandler.New(members, tokens, a.logger),
		Forums:         forumhandler.New(forums, a.logger),
		Chats:          chathandler.New(chats, a.logger),
		Verifications:  vhandler.New(verifications, a.logger),
		Authenticator:  tokens,
		Limiter:        ratelimit.NewMiddleware(limiter, a.logger, ratelimit.WithMetrics(ratelimit.NewMetrics(reg))).Limit,
		Metrics:        metrics.New(reg),
		Registry:       reg,
		Checks:         checks,
		RequestTimeout: a.cfg.Server.RequestTimeout,
		Logger:         a.logger,
	})
	return nil
}

// eventSink returns the Kafka sink when a broker is enabled, else the log sink.
func (a *App) eventSink(ctx context.Context, checks map[string]httptransport.HealthCheck) (outbox.Sink, error) {
	if !a.cfg.Kafka.Enabled {
		return outbox.NewLogSink(a.logger), nil
	}
	client, err := kafka.NewClient(a.cfg.Kafka)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() error {
		client.Close()
		return nil
	})
	if err := kafka.EnsureTopic(ctx, client, a.cfg.Kafka.Topic, 3, 1); err != nil {
		a.logger.WarnContext(ctx, "could not ensure kafka topic", "topic", a.cfg.Kafka.Topic, "error", err)
	}
	checks["kafka"] = client.Ping
	return outbox.NewKafkaSink(client, a.cfg.Kafka.Topic), nil
}

// buildStores picks Postgres when db is set and the in-memory stores
// otherwise. Verification sessions live in Redis when it is configured.
func (a *App) buildStores(db *sqlx.DB, rdb *redis.Client, sink outbox.Sink) (*stores, error) {
	st := &stores{}
	if db != nil {
		cipher, err := fieldcrypt.New(a.cfg.Crypto.FieldKey, profileCipherPurpose)
		if err != nil {
			return nil, err
		}
		st.publisher = outbox.NewStore(db)
		st.members = memberstore.NewPostgres(db, st.publisher, memberstore.WithCipher(cipher))
		st.forums = forumstore.NewPostgres(db, st.publisher)
		st.chats = chatstore.NewPostgres(db, st.publisher)
	} else {
		a.logger.Warn("no database configured, using in-memory stores")
		st.publisher = outbox.NewDirect(sink)
		st.members = memberstore.NewInMemory(st.publisher)
		st.forums = forumstore.NewInMemory(st.publisher)
		st.chats = chatstore.NewInMemory(st.publisher)
	}

	if rdb != nil {
		st.verifications = vstore.NewRedisStore(rdb.Client)
	} else {
		st.verifications = vstore.NewInMemory()
	}
	return st, nil
}

func (a *App) rankCardVerifier() (ports.Verifier, error) {
	if a.cfg.Verifier.BaseURL != "" {
		return vclient.NewHTTPVerifier(a.cfg.Verifier.BaseURL, a.cfg.Verifier.Timeout), nil
	}
	rank, err := id.ParseRank(a.cfg.Verifier.DevRank)
	if err != nil {
		return nil, fmt.Errorf("verifier dev rank: %w", err)
	}
	a.logger.Warn("no verifier configured, every rank card resolves to the dev rank", "rank", rank.String())
	return vclient.NewStatic(rank), nil
}

func (a *App) limiter(rdb *redis.Client) ratelimit.Limiter {
	rl := a.cfg.RateLimit
	local := ratelimit.NewMemoryLimiter(rl.PerMinute, rl.Burst, rl.IdleTTL)
	if rl.Backend != "redis" || rdb == nil {
		return local
	}
	breaker := circuit.New("redis-ratelimit",
		circuit.WithFailureThreshold(rl.BreakerFailures),
		circuit.WithSuccessThreshold(rl.BreakerSuccesses),
	)
	return ratelimit.NewFallbackLimiter(ratelimit.NewRedisLimiter(rdb.Client, rl.PerMinute, time.Minute), local, breaker, a.logger)
}

// Handler is the root HTTP handler.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Expiry exposes the session expiry service for one-shot sweeps.
func (a *App) Expiry() *chatexpiry.Service {
	return a.expiry
}

// Run serves HTTP and runs the sweeper and outbox relay until ctx is
// cancelled or one of them fails.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	srv := httpserver.New(a.cfg.Server.Addr, a.handler)
	g.Go(func() error {
		return httpserver.Run(ctx, srv, a.cfg.Server.ShutdownTimeout, a.logger)
	})
	g.Go(func() error {
		return a.sweeper.Run(ctx)
	})
	if a.relay != nil {
		g.Go(func() error {
			return a.relay.Run(ctx)
		})
	}
	return g.Wait()
}

// Close releases connections in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
