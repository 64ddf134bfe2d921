package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/marigold-events/wedding-rsvp-api/internal/adapters/httpapi"
	"github.com/marigold-events/wedding-rsvp-api/internal/adapters/livefeed"
	"github.com/marigold-events/wedding-rsvp-api/internal/adapters/observability"
	"github.com/marigold-events/wedding-rsvp-api/internal/app/activity"
	"github.com/marigold-events/wedding-rsvp-api/internal/app/comms"
	"github.com/marigold-events/wedding-rsvp-api/internal/app/groups"
	"github.com/marigold-events/wedding-rsvp-api/internal/app/guests"
	"github.com/marigold-events/wedding-rsvp-api/internal/app/lodging"
	"github.com/marigold-events/wedding-rsvp-api/internal/app/portal"
	"github.com/marigold-events/wedding-rsvp-api/internal/app/webhooks"
	"github.com/marigold-events/wedding-rsvp-api/internal/domain"
	"github.com/marigold-events/wedding-rsvp-api/internal/platform/auth/jwtverifier"
	platformclock "github.com/marigold-events/wedding-rsvp-api/internal/platform/clock"
	"github.com/marigold-events/wedding-rsvp-api/internal/platform/config"
	"github.com/marigold-events/wedding-rsvp-api/internal/ports/out/activityfeed"
	clockport "github.com/marigold-events/wedding-rsvp-api/internal/ports/out/clock"
	idempotencyport "github.com/marigold-events/wedding-rsvp-api/internal/ports/out/idempotency"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg, err := config.LoadAppConfigFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}
	logger := observability.NewLogger(cfg.Env, os.Getenv("LOG_LEVEL"))
	log.Logger = logger
	zerolog.DefaultContextLogger = &logger

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clk := platformclock.NewSystemClock()
	reg := observability.InitRegistry()

	store, err := openStorage(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.StorageBackend).Msg("storage init failed")
	}
	defer store.close()

	var rdb *redis.Client
	if cfg.SessionBackend == "redis" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		defer rdb.Close()
	}
	sessions, err := openSessions(ctx, cfg, rdb, clk)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.SessionBackend).Msg("session store init failed")
	}

	// Live feed: local hub, relayed through Redis pub/sub when replicas share Redis.
	hub := livefeed.NewHub(logger)
	defer hub.Close()
	var publisher activityfeed.Publisher = hub
	if rdb != nil {
		relay := livefeed.NewRedisRelay(rdb, cfg.LiveFeedChannel, hub, logger)
		publisher = relay
		go func() {
			if err := relay.Run(ctx, nil); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("livefeed relay stopped")
			}
		}()
	}

	rec := activity.NewRecorder(store.activity, clk,
		activity.WithPublisher(publisher),
		activity.WithObserver(func(k domain.ActivityKind) { observability.ObserveActivity(string(k)) }),
		activity.WithLogger(logger),
	)

	email, sms := openProviders(cfg, logger)
	guestSvc := guests.NewService(store.guests, store.groups, store.lodging, rec, clk)
	commsSvc := comms.NewService(store.guests, store.groups, rec, clk, email, comms.Options{
		PortalBaseURL: cfg.PortalBaseURL,
		Workers:       cfg.NudgeWorkers,
		SMS:           sms,
		Observe:       observability.ObserveMessage,
		Logger:        logger,
	})

	api := &httpapi.Server{
		Guests:   guestSvc,
		Groups:   groups.NewService(store.groups, store.guests, rec, clk),
		Lodging:  lodging.NewService(store.lodging, store.guests, rec, clk),
		Comms:    commsSvc,
		Activity: activity.NewService(store.activity, store.guests, clk),
		Webhooks: webhooks.NewService(store.guests, rec, clk),
		Portal: portal.NewService(portal.Deps{
			Guests:     store.guests,
			Groups:     store.groups,
			Sessions:   sessions,
			RSVP:       guestSvc,
			Invites:    commsSvc,
			Recorder:   rec,
			Clock:      clk,
			SessionTTL: cfg.SessionTTL,
		}),
		Idem:         store.idem,
		Clock:        clk,
		WebhookToken: cfg.WebhookToken,
	}

	handler := httpapi.NewRouter(api, httpapi.RouterOptions{
		AdminAuth:    adminAuth(cfg),
		Logger:       logger,
		Metrics:      observability.MetricsHandler(reg),
		LiveFeed:     hub,
		StaticDir:    cfg.StaticDir,
		LoginLimiter: httpapi.NewIPRateLimiter(cfg.LoginRPS, cfg.LoginBurst),
	})

	go purgeIdempotency(ctx, store.idem, clk, cfg.IdempotencyTTL)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().
			Str("port", cfg.Port).
			Str("storage", cfg.StorageBackend).
			Str("sessions", cfg.SessionBackend).
			Str("auth", cfg.AuthMode).
			Str("email", cfg.EmailProvider).
			Bool("sms", sms != nil).
			Msg("api listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

// adminAuth selects the admin guard:
//   - jwt (default): Supabase bearer tokens, optionally restricted to ADMIN_EMAILS
//   - basic: a single shared ADMIN_USER / ADMIN_PASSWORD
//   - dev: X-Debug-Subject, local only
func adminAuth(cfg config.AppConfig) func(http.Handler) http.Handler {
	switch cfg.AuthMode {
	case "dev":
		log.Warn().Msg("AUTH_MODE=dev: admin routes accept X-Debug-Subject")
		return httpapi.NewDevAuthMiddleware(cfg.DevSubject)
	case "basic":
		return httpapi.NewBasicAuthMiddleware(cfg.AdminUser, cfg.AdminPassword)
	default:
		return httpapi.NewAuthMiddleware(jwtverifier.New(cfg.JWT), cfg.AdminEmails)
	}
}

func purgeIdempotency(ctx context.Context, store idempotencyport.Store, clk clockport.Clock, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	t := time.NewTicker(time.Hour)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := store.PurgeBefore(ctx, clk.Now().Add(-ttl))
			if err != nil {
				log.Warn().Err(err).Msg("idempotency purge failed")
				continue
			}
			if n > 0 {
				log.Debug().Int("purged", n).Msg("idempotency records purged")
			}
		}
	}
}
