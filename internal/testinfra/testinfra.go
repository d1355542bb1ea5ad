//go:build integration

// Package testinfra starts throwaway MongoDB, Redis and Kafka containers for
// integration tests.
package testinfra

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	redisclient "github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	kafkamodule "github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	redismodule "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"inabottle/pkg/migrations"
)

const containerStartupTimeout = 60 * time.Second

type Options struct {
	Mongo bool
	Redis bool
	Kafka bool
}

type Infra struct {
	MongoClient  *mongo.Client
	MongoDB      *mongo.Database
	RedisClient  *redisclient.Client
	KafkaBrokers []string
}

func Setup(t *testing.T, opts Options) *Infra {
	t.Helper()

	ctx := context.Background()

	if os.Getenv("TESTCONTAINERS_RYUK_DISABLED") == "" {
		os.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")
	}

	infra := &Infra{}
	if opts.Mongo {
		setupMongo(t, ctx, infra)
	}
	if opts.Redis {
		setupRedis(t, ctx, infra)
	}
	if opts.Kafka {
		setupKafka(t, ctx, infra)
	}
	return infra
}

// MongoDatabase returns a fresh database with the collection indexes applied,
// so tests sharing a container do not see each other's documents.
func (i *Infra) MongoDatabase(t *testing.T, collections ...string) *mongo.Database {
	t.Helper()

	db := i.MongoClient.Database(fmt.Sprintf("test_%d", time.Now().UnixNano()))
	if err := migrations.EnsureMongoIndexes(context.Background(), db, collections...); err != nil {
		t.Fatalf("failed to ensure mongo indexes: %v", err)
	}
	t.Cleanup(func() {
		db.Drop(context.Background())
	})
	return db
}

func setupMongo(t *testing.T, ctx context.Context, infra *Infra) {
	container, err := mongodb.Run(ctx, "mongo:6",
		mongodb.WithUsername("test_user"),
		mongodb.WithPassword("test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("Waiting for connections").WithStartupTimeout(containerStartupTimeout),
		),
	)
	if err != nil {
		t.Fatalf("failed to start mongo container: %v", err)
	}
	t.Cleanup(func() {
		container.Terminate(ctx)
	})

	conn, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("failed to get mongo uri: %v", err)
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(conn))
	if err != nil {
		t.Fatalf("failed to connect to mongo: %v", err)
	}

	infra.MongoClient = client
	infra.MongoDB = client.Database("test_db")
	t.Cleanup(func() {
		client.Disconnect(ctx)
	})
}

func setupRedis(t *testing.T, ctx context.Context, infra *Infra) {
	container, err := redismodule.Run(ctx, "redis:8.4.0-alpine")
	if err != nil {
		t.Fatalf("failed to start redis container: %v", err)
	}
	t.Cleanup(func() {
		container.Terminate(ctx)
	})

	uri, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("failed to get redis uri: %v", err)
	}

	opt, err := redisclient.ParseURL(uri)
	if err != nil {
		t.Fatalf("failed to parse redis URL: %v", err)
	}

	client := redisclient.NewClient(opt)

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := client.Ping(ctxWithTimeout).Err(); err != nil {
		client.Close()
		t.Fatalf("failed to ping redis: %v", err)
	}

	infra.RedisClient = client
	t.Cleanup(func() {
		client.Close()
	})
}

func setupKafka(t *testing.T, ctx context.Context, infra *Infra) {
	container, err := kafkamodule.Run(ctx, "confluentinc/confluent-local:7.5.0",
		kafkamodule.WithClusterID("inabottle-test"),
	)
	if err != nil {
		t.Fatalf("failed to start kafka container: %v", err)
	}
	t.Cleanup(func() {
		container.Terminate(ctx)
	})

	brokers, err := container.Brokers(ctx)
	if err != nil {
		t.Fatalf("failed to get kafka brokers: %v", err)
	}

	infra.KafkaBrokers = brokers
}
