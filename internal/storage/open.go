package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/fjod/foodcart/pkg/circuitbreaker"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverMongo    = "mongo"
)

type Options struct {
	Driver        string
	SQLitePath    string
	PostgresDSN   string
	RedisAddr     string
	RedisPassword string
	RedisTTL      time.Duration
	MongoURI      string
	MongoDBName   string
}

// Open builds the backend selected by opts.Driver. Network backends are
// wrapped in a circuit breaker.
func Open(ctx context.Context, opts Options, logger *zap.Logger) (Backend, error) {
	switch opts.Driver {
	case DriverMemory:
		return NewMemory(), nil

	case DriverSQLite:
		return OpenSQLite(opts.SQLitePath)

	case DriverPostgres:
		store, err := OpenPostgres(ctx, opts.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return WithBreaker(store, "postgres", circuitbreaker.DefaultConfig(), logger), nil

	case DriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     opts.RedisAddr,
			Password: opts.RedisPassword,
			DB:       0,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("redis connection failed: %w", err)
		}
		return WithBreaker(NewRedisStore(client, opts.RedisTTL), "redis", circuitbreaker.DefaultConfig(), logger), nil

	case DriverMongo:
		db, err := ConnectMongoDB(ctx, opts.MongoURI, opts.MongoDBName)
		if err != nil {
			return nil, err
		}
		store := NewMongoStore(db)
		if err := store.CreateIndexes(ctx); err != nil {
			store.Close()
			return nil, err
		}
		return WithBreaker(store, "mongo", circuitbreaker.DefaultConfig(), logger), nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", opts.Driver)
	}
}
