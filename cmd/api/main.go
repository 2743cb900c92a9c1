package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/PaulBabatuyi/supportchat/internal/auth"
	"github.com/PaulBabatuyi/supportchat/internal/chat"
	"github.com/PaulBabatuyi/supportchat/internal/config"
	"github.com/PaulBabatuyi/supportchat/internal/data"
	"github.com/PaulBabatuyi/supportchat/internal/db"
	"github.com/PaulBabatuyi/supportchat/internal/gateway"
	"github.com/PaulBabatuyi/supportchat/internal/history"
	"github.com/PaulBabatuyi/supportchat/internal/logging"
	"github.com/PaulBabatuyi/supportchat/internal/middleware"
)

// tokenTTL only matters for tokens minted by this process; verification
// trusts the exp claim.
const tokenTTL = 24 * time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("invalid configuration")
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logging.Fatal().Err(err).Msg("server exited")
	}
	logging.Info().Msg("server stopped")
}

// backend is the storage chosen by store.driver.
type backend struct {
	conversations chat.Store
	users         chat.UserDirectory
	pinger        Pinger
	close         func(context.Context) error
}

func openBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	if cfg.Store.Driver == config.DriverMemory {
		logging.Warn().Msg("using in-memory store; conversations are lost on restart")
		return &backend{
			conversations: data.NewMemoryConversationsStore(),
			users:         data.MemoryUsers{},
			close:         func(context.Context) error { return nil },
		}, nil
	}

	dbClient, err := db.New(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
	if err != nil {
		return nil, err
	}
	if err := dbClient.CreateIndexes(ctx); err != nil {
		_ = dbClient.Close(ctx)
		return nil, err
	}
	return &backend{
		conversations: data.NewConversationsStore(dbClient.ConversationsCollection(), cfg.Mongo.Timeout),
		users:         data.NewUsersStore(dbClient.UsersCollection()),
		pinger:        dbClient,
		close:         dbClient.Close,
	}, nil
}

// newVerifier prefers the rotating key set and falls back to the single
// secret.
func newVerifier(a config.AuthConfig) (*auth.JWTManager, error) {
	keys, err := a.KeyMap()
	if err != nil {
		return nil, err
	}
	if len(keys) > 0 {
		return auth.NewJWTManagerFromKeys(keys, a.ActiveKid, tokenTTL), nil
	}
	return auth.NewJWTManager(a.Secret, tokenTTL), nil
}

func run(ctx context.Context, cfg *config.Config) error {
	be, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := be.close(closeCtx); err != nil {
			logging.Warn().Err(err).Msg("failed to close store")
		}
	}()

	verifier, err := newVerifier(cfg.Auth)
	if err != nil {
		return err
	}

	limiter := middleware.NewLimiterStore(cfg.Gateway.EventsPerMinute, cfg.Gateway.Burst, time.Minute)

	handle, err := gateway.Init(gateway.Options{
		Store:        be.conversations,
		Verifier:     verifier,
		Limiter:      limiter,
		StoreTimeout: cfg.Mongo.Timeout,
		SendBuffer:   cfg.Gateway.SendBuffer,
	})
	if err != nil {
		return err
	}

	srv := newServer(
		history.NewService(be.conversations, be.users),
		handle,
		verifier,
		be.pinger,
		cfg.Gateway.Origins(),
		cfg.HTTP.RateLimitRPM,
	)

	sup := newSupervisor(cfg.Server.ShutdownTimeout)
	sup.Add(limiter)
	sup.Add(&httpService{
		server: &http.Server{
			Addr:              ":" + cfg.Server.Port,
			Handler:           srv.routes(),
			ReadHeaderTimeout: 10 * time.Second,
		},
		shutdownTimeout: cfg.Server.ShutdownTimeout,
	})

	logging.Info().
		Str("port", cfg.Server.Port).
		Str("store", cfg.Store.Driver).
		Msg("starting support chat server")

	err = sup.Serve(ctx)
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
