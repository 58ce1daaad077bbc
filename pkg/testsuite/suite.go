//go:build integration

package testsuite

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Nemeth89/ECOMMERCE-Backend/pkg/db"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Infra selects which containers SetupInfrastructure starts.
type Infra struct {
	Postgres bool
	Kafka    bool
	Mongo    bool
}

type BaseSuite struct {
	suite.Suite
	PgContainer    *postgres.PostgresContainer
	KafkaContainer *kafka.KafkaContainer
	MongoContainer *mongodb.MongoDBContainer
	DbPool         *pgxpool.Pool
	MongoClient    *mongo.Client
	MongoDB        *mongo.Database
	KafkaBrokers   []string
	Ctx            context.Context
}

func (s *BaseSuite) SetupInfrastructure(migrationsRelPath string, infra Infra) {
	s.Ctx = context.Background()

	var err error

	if infra.Postgres {
		s.PgContainer, err = postgres.Run(
			s.Ctx,
			"postgres:17-alpine",
			postgres.WithDatabase("test_db"),
			postgres.WithUsername("test_user"),
			postgres.WithPassword("test_password"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second),
			),
		)
		s.Require().NoError(err)

		connStr, err := s.PgContainer.ConnectionString(s.Ctx, "sslmode=disable")
		s.Require().NoError(err)

		s.Require().NoError(db.Migrate(connStr, migrationsRelPath))

		s.DbPool, err = pgxpool.New(s.Ctx, connStr)
		s.Require().NoError(err)
	}

	if infra.Kafka {
		s.KafkaContainer, err = kafka.Run(
			s.Ctx,
			"confluentinc/cp-kafka:7.5.0",
			kafka.WithClusterID("test-cluster"),
		)
		s.Require().NoError(err)

		s.KafkaBrokers, err = s.KafkaContainer.Brokers(s.Ctx)
		s.Require().NoError(err)
	}

	if infra.Mongo {
		s.MongoContainer, err = mongodb.Run(s.Ctx, "mongo:7")
		s.Require().NoError(err)

		uri, err := s.MongoContainer.ConnectionString(s.Ctx)
		s.Require().NoError(err)

		s.MongoClient, err = mongo.Connect(options.Client().ApplyURI(uri))
		s.Require().NoError(err)

		s.MongoDB = s.MongoClient.Database("shop_test")
	}
}

func (s *BaseSuite) TearDownInfrastructure() {
	if s.DbPool != nil {
		s.DbPool.Close()
	}
	if s.MongoClient != nil {
		_ = s.MongoClient.Disconnect(s.Ctx)
	}

	if s.PgContainer != nil {
		if err := s.PgContainer.Terminate(s.Ctx); err != nil {
			log.Printf("Failed to terminate postgres container: %v", err)
		}
	}
	if s.KafkaContainer != nil {
		if err := s.KafkaContainer.Terminate(s.Ctx); err != nil {
			log.Printf("Failed to terminate kafka container: %v", err)
		}
	}
	if s.MongoContainer != nil {
		if err := s.MongoContainer.Terminate(s.Ctx); err != nil {
			log.Printf("Failed to terminate mongo container: %v", err)
		}
	}
}

func (s *BaseSuite) TruncateTable(tableName string) {
	_, err := s.DbPool.Exec(s.Ctx, fmt.Sprintf("TRUNCATE %s RESTART IDENTITY CASCADE", tableName))
	s.Require().NoError(err)
}
