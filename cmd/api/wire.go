package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	memactivityrepo "github.com/marigold-events/wedding-rsvp-api/internal/adapters/memory/activityrepo"
	memgrouprepo "github.com/marigold-events/wedding-rsvp-api/internal/adapters/memory/grouprepo"
	memguestrepo "github.com/marigold-events/wedding-rsvp-api/internal/adapters/memory/guestrepo"
	memidempotency "github.com/marigold-events/wedding-rsvp-api/internal/adapters/memory/idempotency"
	memlodgingrepo "github.com/marigold-events/wedding-rsvp-api/internal/adapters/memory/lodgingrepo"
	memsessionstore "github.com/marigold-events/wedding-rsvp-api/internal/adapters/memory/sessionstore"
	"github.com/marigold-events/wedding-rsvp-api/internal/adapters/notify"
	postgres "github.com/marigold-events/wedding-rsvp-api/internal/adapters/postgres"
	pgactivityrepo "github.com/marigold-events/wedding-rsvp-api/internal/adapters/postgres/activityrepo"
	pggrouprepo "github.com/marigold-events/wedding-rsvp-api/internal/adapters/postgres/grouprepo"
	pgguestrepo "github.com/marigold-events/wedding-rsvp-api/internal/adapters/postgres/guestrepo"
	pgidempotency "github.com/marigold-events/wedding-rsvp-api/internal/adapters/postgres/idempotency"
	pglodgingrepo "github.com/marigold-events/wedding-rsvp-api/internal/adapters/postgres/lodgingrepo"
	redissessionstore "github.com/marigold-events/wedding-rsvp-api/internal/adapters/redis/sessionstore"
	"github.com/marigold-events/wedding-rsvp-api/internal/platform/config"
	"github.com/marigold-events/wedding-rsvp-api/internal/ports/out/activityrepo"
	clockport "github.com/marigold-events/wedding-rsvp-api/internal/ports/out/clock"
	"github.com/marigold-events/wedding-rsvp-api/internal/ports/out/grouprepo"
	"github.com/marigold-events/wedding-rsvp-api/internal/ports/out/guestrepo"
	"github.com/marigold-events/wedding-rsvp-api/internal/ports/out/idempotency"
	"github.com/marigold-events/wedding-rsvp-api/internal/ports/out/lodgingrepo"
	"github.com/marigold-events/wedding-rsvp-api/internal/ports/out/messaging"
	"github.com/marigold-events/wedding-rsvp-api/internal/ports/out/sessionstore"
)

type storage struct {
	guests   guestrepo.Repository
	groups   grouprepo.Repository
	lodging  lodgingrepo.Repository
	activity activityrepo.Repository
	idem     idempotency.Store
	close    func()
}

func openStorage(ctx context.Context, cfg config.AppConfig) (storage, error) {
	switch cfg.StorageBackend {
	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, postgres.PoolOptions{MaxConns: 10})
		if err != nil {
			return storage{}, err
		}
		applied, err := postgres.Migrate(ctx, pool)
		if err != nil {
			pool.Close()
			return storage{}, fmt.Errorf("migrate: %w", err)
		}
		if len(applied) > 0 {
			log.Info().Strs("migrations", applied).Msg("schema migrated")
		}
		return storage{
			guests:   pgguestrepo.NewRepo(pool),
			groups:   pggrouprepo.NewRepo(pool),
			lodging:  pglodgingrepo.NewRepo(pool),
			activity: pgactivityrepo.NewRepo(pool),
			idem:     pgidempotency.NewStore(pool),
			close:    pool.Close,
		}, nil
	case "memory":
		log.Warn().Msg("STORAGE_BACKEND=memory: data is lost on restart")
		return storage{
			guests:   memguestrepo.NewRepo(),
			groups:   memgrouprepo.NewRepo(),
			lodging:  memlodgingrepo.NewRepo(),
			activity: memactivityrepo.NewRepo(),
			idem:     memidempotency.NewStore(),
			close:    func() {},
		}, nil
	}
	return storage{}, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
}

func openSessions(ctx context.Context, cfg config.AppConfig, rdb *redis.Client, clk clockport.Clock) (sessionstore.Store, error) {
	if rdb == nil {
		return memsessionstore.NewStore(clk), nil
	}
	s := redissessionstore.NewWithClient(rdb, clk)
	if err := s.Ping(ctx); err != nil {
		return nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
	}
	return s, nil
}

// openProviders returns the email sender and, when Twilio is configured, the SMS sender.
func openProviders(cfg config.AppConfig, l zerolog.Logger) (messaging.EmailSender, messaging.SMSSender) {
	var email messaging.EmailSender
	switch cfg.EmailProvider {
	case "sendgrid":
		email = notify.NewSendGrid(notify.SendGridOptions{
			APIKey:   cfg.SendGridAPIKey,
			From:     cfg.EmailFrom,
			FromName: cfg.EmailFromName,
			RPS:      cfg.OutboundRPS,
		})
	case "mailtrap":
		email = notify.NewMailtrap(notify.MailtrapOptions{
			APIToken: cfg.MailtrapAPIToken,
			InboxID:  cfg.MailtrapInboxID,
			From:     cfg.EmailFrom,
			FromName: cfg.EmailFromName,
			RPS:      cfg.OutboundRPS,
		})
	default:
		email = notify.NewLogSink(l)
	}
	if !cfg.SMSEnabled() {
		return email, nil
	}
	return email, notify.NewTwilio(notify.TwilioOptions{
		AccountSID: cfg.TwilioAccountSID,
		AuthToken:  cfg.TwilioAuthToken,
		From:       cfg.TwilioFrom,
		RPS:        cfg.OutboundRPS,
	})
}
