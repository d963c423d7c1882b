package main

import (
	"context"
	"fmt"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/vatsl808/appointix/internal/config"
	"github.com/vatsl808/appointix/internal/domain/appointment"
	"github.com/vatsl808/appointix/internal/domain/doctor"
	"github.com/vatsl808/appointix/internal/domain/identity"
	"github.com/vatsl808/appointix/internal/platform/db"
	"github.com/vatsl808/appointix/internal/platform/mongostore"
)

// store bundles the repositories of one storage driver.
type store struct {
	users        identity.Repository
	doctors      doctor.Repository
	appointments appointment.Repository
	tx           identity.Transactor
	health       echo.HandlerFunc
	close        func()
}

func openStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*store, error) {
	switch cfg.StoreDriver {
	case config.DriverMongo:
		client, err := mongostore.Connect(ctx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		database := client.Database(cfg.MongoDatabase)
		if err := mongostore.EnsureIndexes(ctx, database); err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		logger.Info().Str("database", cfg.MongoDatabase).Msg("connected to mongo")
		return &store{
			users:        identity.NewRepoMongo(database),
			doctors:      doctor.NewRepoMongo(database),
			appointments: appointment.NewRepoMongo(database),
			tx:           mongostore.Transactor{},
			health:       db.HealthHandler(mongostore.Pinger{DB: database}, nil),
			close: func() {
				if err := client.Disconnect(context.Background()); err != nil {
					logger.Warn().Err(err).Msg("mongo disconnect failed")
				}
			},
		}, nil

	case config.DriverPostgres:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, db.PoolOptions{
			MaxConns:        cfg.DBMaxConns,
			MinConns:        cfg.DBMinConns,
			ApplicationName: "appointix",
		})
		if err != nil {
			return nil, err
		}
		logger.Info().Msg("connected to database")
		return &store{
			users:        identity.NewRepoPG(pool),
			doctors:      doctor.NewRepoPG(pool),
			appointments: appointment.NewRepoPG(pool),
			tx:           db.NewTransactor(pool),
			health:       db.PoolHealthHandler(pool),
			close:        pool.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
