package config

import (
	"context"
	"fmt"
	"time"

	"civicreporter-be/store"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
)

const connectTimeout = 10 * time.Second

// OpenStore connects the backend selected by cfg.DBDriver.
func OpenStore(ctx context.Context, cfg *Config, log *zap.Logger) (store.Store, error) {
	switch cfg.DBDriver {
	case DriverPostgres:
		s, err := store.NewGormStore(postgres.Open(cfg.DatabaseURL), log)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		log.Info("connected to postgres")
		return s, nil
	case DriverSQLite:
		s, err := store.NewGormStore(sqlite.Open(cfg.DatabaseURL), log)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		log.Info("opened sqlite database", zap.String("path", cfg.DatabaseURL))
		return s, nil
	case DriverMongo:
		return openMongo(ctx, cfg, log)
	case DriverMemory:
		log.Warn("using in-memory store, data is lost on restart")
		return store.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
}

func openMongo(ctx context.Context, cfg *Config, log *zap.Logger) (store.Store, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	s, err := store.NewMongoStore(ctx, client, cfg.MongoDatabase)
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	log.Info("connected to mongodb", zap.String("database", cfg.MongoDatabase))
	return s, nil
}
