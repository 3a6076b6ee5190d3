package config

import (
	"context"
	"log"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"latch-backend/repository"
)

const connectTimeout = 10 * time.Second

// Store is the opened driver repository plus whatever closes it.
type Store struct {
	Drivers repository.DriverRepository
	Close   func(ctx context.Context) error
}

// ConnectStore opens the configured backend and prepares its schema or indexes.
func ConnectStore(ctx context.Context, cfg *Config) (*Store, error) {
	switch cfg.StoreDriver {
	case StoreMongo:
		return connectMongo(ctx, cfg)
	case StorePostgres:
		return connectGorm(postgres.Open(cfg.DBURL))
	case StoreSQLite:
		return connectGorm(sqlite.Open(cfg.DBURL))
	case StoreMemory:
		log.Println("Using in-memory driver store, data is lost on restart")
		return &Store{
			Drivers: repository.NewMemoryDriverRepository(),
			Close:   func(context.Context) error { return nil },
		}, nil
	default:
		return nil, errors.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

func connectMongo(ctx context.Context, cfg *Config) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, errors.Wrap(err, "connect mongo")
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(err, "ping mongo")
	}

	drivers := repository.NewMongoDriverRepository(client.Database(cfg.MongoDatabase))
	if err := drivers.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	log.Printf("Connected to MongoDB database %q", cfg.MongoDatabase)
	return &Store{Drivers: drivers, Close: client.Disconnect}, nil
}

func connectGorm(dialector gorm.Dialector) (*Store, error) {
	db, err := gorm.Open(dialector, &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, errors.Wrap(err, "connect database")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "database handle")
	}
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	drivers := repository.NewGormDriverRepository(db)
	if err := drivers.Migrate(); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	log.Printf("Connected to %s database", dialector.Name())
	return &Store{
		Drivers: drivers,
		Close:   func(context.Context) error { return sqlDB.Close() },
	}, nil
}
