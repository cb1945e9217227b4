package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
	"github.com/linemk/clothing-shop/internal/config"
	"github.com/linemk/clothing-shop/internal/imagestore"
	security "github.com/linemk/clothing-shop/internal/jwt-new"
	"github.com/linemk/clothing-shop/internal/lib/logger/sl"
	"github.com/linemk/clothing-shop/internal/storage"
	"github.com/linemk/clothing-shop/internal/storage/cartstore"
	"github.com/linemk/clothing-shop/internal/storage/mongodb"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

type App struct {
	Config *config.Config
	Logger *slog.Logger

	// ровно одно из DB / Mongo не nil, в зависимости от storage.driver
	DB    *sql.DB
	Mongo *mongo.Database
	Redis *redis.Client

	Users    storage.UserStorage
	Products storage.ProductStorage
	Orders   storage.OrderStorage
	Carts    *cartstore.Store
	Images   *imagestore.Store
	Issuer   *security.Issuer
}

// NewApp создаёт новый экземпляр App: подключения к хранилищам и репозитории
func NewApp(ctx context.Context, log *slog.Logger, cfg *config.Config) (*App, error) {
	const op = "app.NewApp"

	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("%s: JWT_SECRET is not set", op)
	}

	app := &App{
		Config: cfg,
		Logger: log,
		Issuer: security.NewIssuer(cfg.JWT.Secret, time.Duration(cfg.JWT.TokenTTL)*time.Minute),
	}

	switch cfg.Storage.Driver {
	case config.StorageDriverPostgres:
		if err := app.openPostgres(ctx); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	case config.StorageDriverMongo:
		if err := app.openMongo(ctx); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	default:
		return nil, fmt.Errorf("%s: unknown storage driver %q", op, cfg.Storage.Driver)
	}

	rdb, err := cartstore.Connect(ctx, cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	app.Redis = rdb
	app.Carts = cartstore.New(rdb, cfg.Redis.CartTTL)

	images, err := imagestore.NewCloudinary(log, cfg.Images.CloudName, cfg.Images.APIKey, cfg.Images.APISecret, imagestore.Settings{
		Folder:      cfg.Images.Folder,
		MaxFailures: cfg.Images.MaxFailures,
		OpenTimeout: cfg.Images.OpenTimeout,
	})
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	app.Images = images

	log.Info("storage initialized",
		slog.String("driver", cfg.Storage.Driver),
		slog.String("redis", cfg.Redis.Address),
	)
	return app, nil
}

func (a *App) openPostgres(ctx context.Context) error {
	cfg := a.Config.Database
	if cfg.Password == "" {
		return fmt.Errorf("DB_PASSWORD environment variable is not set")
	}
	// реализуем подключение к БД через DSN
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	a.DB = db
	a.Users = storage.NewUserRepository(db)
	a.Products = storage.NewProductRepository(db)
	a.Orders = storage.NewOrderRepository(db)
	return nil
}

func (a *App) openMongo(ctx context.Context) error {
	cfg := a.Config.Mongo
	db, err := mongodb.Connect(ctx, cfg.URI, cfg.Name, cfg.Timeout)
	if err != nil {
		return err
	}
	if err := mongodb.CreateIndexes(ctx, db); err != nil {
		_ = db.Client().Disconnect(ctx)
		return err
	}

	a.Mongo = db
	a.Users = mongodb.NewUserRepository(db)
	a.Products = mongodb.NewProductRepository(db)
	a.Orders = mongodb.NewOrderRepository(db)
	return nil
}

// Close закрывает все открытые подключения
func (a *App) Close() {
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Error("failed to close database", sl.Err(err))
		}
	}
	if a.Mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.Mongo.Client().Disconnect(ctx); err != nil {
			a.Logger.Error("failed to disconnect mongo", sl.Err(err))
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Error("failed to close redis", sl.Err(err))
		}
	}
}
