package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/emilythestrangee/newsforum/backend/internal/models"
)

// Options configures Open.
type Options struct {
	URL         string
	AutoMigrate bool
	LogLevel    logger.LogLevel
}

type Database struct {
	DB *gorm.DB
}

// Open connects to Postgres through the pgx database/sql driver and wraps the
// connection in gorm.
func Open(opts Options) (*Database, error) {
	sqlDB, err := sql.Open("pgx", opts.URL)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	level := opts.LogLevel
	if level == 0 {
		level = logger.Warn
	}

	// Configure GORM logger
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: gormLogger,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("error opening gorm session: %w", err)
	}

	log.Println("✅ Database connected successfully")

	d := &Database{DB: db}
	if opts.AutoMigrate {
		if err := d.Migrate(); err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
	}
	return d, nil
}

// Migrate creates or updates the tables. Hosted projects usually own their
// schema, so this only runs when asked for.
func (d *Database) Migrate() error {
	err := d.DB.AutoMigrate(
		&models.Profile{},
		&models.Category{},
		&models.News{},
		&models.Post{},
		&models.Comment{},
	)
	if err != nil {
		return fmt.Errorf("error migrating database: %w", err)
	}

	log.Println("✅ Database migrations completed")
	return nil
}

// Health checks the health of the database connection by pinging the database.
func (d *Database) Health(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	stats := make(map[string]string)

	sqlDB, err := d.DB.DB()
	if err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db error: %v", err)
		return stats
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db down: %v", err)
		return stats
	}

	stats["status"] = "up"
	stats["message"] = "It's healthy"

	dbStats := sqlDB.Stats()
	stats["open_connections"] = fmt.Sprintf("%d", dbStats.OpenConnections)
	stats["in_use"] = fmt.Sprintf("%d", dbStats.InUse)
	stats["idle"] = fmt.Sprintf("%d", dbStats.Idle)

	return stats
}

// Close closes the database connection.
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}

	log.Println("Disconnected from database")
	return sqlDB.Close()
}
