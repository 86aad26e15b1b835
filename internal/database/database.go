package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/joho/godotenv/autoload"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/vailabel/vailabel-studio-sub002/internal/config"
)

// implements usecase.Repository
type service struct {
	db *gorm.DB
}

type Config struct {
	Driver             string
	SQLitePath         string
	Host               string
	Port               string
	User               string
	Password           string
	Database           string
	MaxOpenConnections int
}

func ConfigFromEnv() Config {
	c := Config{
		Driver:     os.Getenv(config.ENV_KEY_DB_DRIVER),
		SQLitePath: os.Getenv(config.ENV_KEY_DB_SQLITE_PATH),
		Host:       os.Getenv(config.ENV_KEY_DB_HOST),
		Port:       os.Getenv(config.ENV_KEY_DB_PORT),
		User:       os.Getenv(config.ENV_KEY_DB_USER),
		Password:   os.Getenv(config.ENV_KEY_DB_PASSWORD),
		Database:   os.Getenv(config.ENV_KEY_DB_DATABASE),
	}
	if c.Driver == "" {
		c.Driver = config.DB_DRIVER_SQLITE
	}
	if c.SQLitePath == "" {
		c.SQLitePath = "vailabel.sqlite"
	}
	if m, err := strconv.Atoi(os.Getenv(config.ENV_KEY_DB_MAX_OPEN_CONNECTIONS)); err == nil {
		c.MaxOpenConnections = m
	}
	return c
}

// Open connects with the dialect named by c.Driver. The desktop host uses a
// SQLite file, the hosted web app Postgres through pgx.
func Open(c Config, l *slog.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch c.Driver {
	case config.DB_DRIVER_SQLITE:
		dialector = sqlite.Open(c.SQLitePath)
	case config.DB_DRIVER_POSTGRES:
		connStr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", c.User, c.Password, c.Host, c.Port, c.Database)
		sqlDB, err := sql.Open("pgx", connStr)
		if err != nil {
			return nil, fmt.Errorf("failed to open database connection: %w", err)
		}
		dialector = postgres.New(postgres.Config{Conn: sqlDB})
	default:
		return nil, fmt.Errorf("unknown database driver %q", c.Driver)
	}

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		Logger: NewSlogGormLogger(l),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm database connection: %w", err)
	}
	if err := gormDB.Use(tracing.NewPlugin()); err != nil {
		return nil, fmt.Errorf("failed to register tracing plugin: %w", err)
	}

	if c.MaxOpenConnections > 0 {
		db, err := gormDB.DB()
		if err != nil {
			return nil, err
		}
		db.SetMaxOpenConns(c.MaxOpenConnections)
	}
	return gormDB, nil
}

// New migrates the schema and wraps db.
func New(db *gorm.DB) (*service, error) {
	if err := db.AutoMigrate(
		Project{},
		Image{},
		Label{},
		Annotation{},
		Job{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return &service{db: db}, nil
}

// Health checks the health of the database connection by pinging the database.
func (s *service) Health() map[string]string {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	stats := make(map[string]string)

	db, err := s.db.DB()
	if err == nil {
		err = db.PingContext(ctx)
	}
	if err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db down: %v", err)
		return stats
	}

	stats["status"] = "up"
	stats["message"] = "It's healthy"
	stats["dialect"] = s.db.Dialector.Name()

	dbStats := db.Stats()
	stats["open_connections"] = strconv.Itoa(dbStats.OpenConnections)
	stats["in_use"] = strconv.Itoa(dbStats.InUse)
	stats["idle"] = strconv.Itoa(dbStats.Idle)
	stats["wait_count"] = strconv.FormatInt(dbStats.WaitCount, 10)
	stats["wait_duration"] = dbStats.WaitDuration.String()

	if dbStats.WaitCount > 1000 {
		stats["message"] = "The database has a high number of wait events, indicating potential bottlenecks."
	}

	return stats
}

func (s *service) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}
