// Command identity serves the user and role API.
//
// @title                       Identity Service API
// @version                     1.0
// @description                 User accounts, roles and authorization policy.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	_ "github.com/identitystore/identity-service/docs"
	"github.com/identitystore/identity-service/internal/api"
	"github.com/identitystore/identity-service/internal/api/handler"
	"github.com/identitystore/identity-service/internal/core/domain"
	"github.com/identitystore/identity-service/internal/core/ports"
	"github.com/identitystore/identity-service/internal/core/service"
	mongodb "github.com/identitystore/identity-service/internal/infrastructure/db/mongo"
	"github.com/identitystore/identity-service/internal/infrastructure/db/postgres"
	redisdb "github.com/identitystore/identity-service/internal/infrastructure/db/redis"
	"github.com/identitystore/identity-service/internal/infrastructure/queue"
	"github.com/identitystore/identity-service/internal/infrastructure/security"
	"github.com/identitystore/identity-service/internal/pkg/config"
	"github.com/identitystore/identity-service/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: cfg.LogPretty, Service: "identity"})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("identity service stopped")
	}
}

type stores struct {
	users ports.UserRepository
	roles ports.RoleRepository
	check handler.Check
	name  string
	close func()
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	if cfg.StoreDriver == config.DriverPostgres {
		pool, err := postgres.Connect(ctx, postgres.Config{DSN: cfg.Postgres.DSN})
		if err != nil {
			return nil, err
		}
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		return &stores{
			users: postgres.NewUserRepository(pool),
			roles: postgres.NewRoleRepository(pool),
			check: postgres.Probe(pool),
			name:  "postgres",
			close: pool.Close,
		}, nil
	}

	client, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database, AppName: "identity"})
	if err != nil {
		return nil, err
	}
	users := mongodb.NewUserRepository(db)
	if err := users.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return &stores{
		users: users,
		roles: mongodb.NewRoleRepository(db),
		check: mongodb.Probe(client),
		name:  "mongodb",
		close: func() { _ = client.Disconnect(context.Background()) },
	}, nil
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()
	log.Info().Str("store", st.name).Msg("store connected")

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return err
	}
	defer rdb.Close()

	var cache ports.UserCache = redisdb.NewUserCache(rdb, cfg.Cache.TTL)
	if cfg.Cache.Workers > 0 {
		projector := queue.NewProjector(cfg.Cache.Workers, cache, logger.Component("projector"))
		projectorCtx, cancel := context.WithCancel(context.Background())
		projector.Start(projectorCtx)
		defer func() {
			cancel()
			projector.Wait()
		}()
		cache = projector
	}

	roleService := service.NewRoleService(st.roles, logger.Component("role_service"))
	userService := service.NewUserService(
		st.users,
		st.roles,
		security.NewBcryptHasher(bcrypt.DefaultCost),
		cache,
		logger.Component("user_service"),
	)

	if err := service.NewBootstrap(roleService, userService, logger.Component("bootstrap")).
		Run(ctx, seedUsers(cfg)); err != nil {
		return err
	}

	e := api.NewRouter(api.Deps{
		Users:     userService,
		Roles:     roleService,
		JWTSecret: cfg.JWTSecret,
		Checks: map[string]handler.Check{
			st.name: st.check,
			"redis": redisdb.Probe(rdb),
		},
		Logger: log,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Msg("http server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func seedUsers(cfg *config.Config) []service.SeedUser {
	if cfg.Seed.AdminUsername == "" {
		return nil
	}
	return []service.SeedUser{{
		Username:  cfg.Seed.AdminUsername,
		Password:  cfg.Seed.AdminPassword,
		FirstName: "Admin",
		DOB:       time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC),
		Role:      domain.RoleAdmin,
	}}
}
