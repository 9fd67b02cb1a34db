package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"landsphere/server/internal/models"
)

// Database is the record store backing users, listings, the ledger and the catalog.
type Database struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewDatabase(dbPath string, logger *logrus.Logger) (*Database, error) {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// WAL keeps readers on the last committed snapshot while a trade is being written.
	dsn := dbPath + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
	db, err := open(dsn)
	if err != nil {
		return nil, err
	}

	logger.WithField("path", dbPath).Info("Opened database")
	return &Database{db: db, logger: logger}, nil
}

// NewTestDB opens a private in-memory database.
func NewTestDB() (*gorm.DB, error) {
	return open("file::memory:")
}

// New wraps an already opened connection, typically one from NewTestDB.
func New(db *gorm.DB, logger *logrus.Logger) *Database {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	return &Database{db: db, logger: logger}
}

func open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get connection pool: %w", err)
	}
	// SQLite has a single writer; one connection also keeps :memory: databases alive.
	sqlDB.SetMaxOpenConns(1)

	return db, nil
}

func (d *Database) GetDB() *gorm.DB {
	return d.db
}

func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (d *Database) RunMigrations() error {
	d.logger.Info("Running database migrations")
	return MigrateSchema(d.db)
}

// Commit runs fn inside one transaction. Every write made through tx is committed
// together, or none is.
func (d *Database) Commit(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return d.db.WithContext(ctx).Transaction(fn)
}

func (d *Database) Catalog(ctx context.Context) ([]models.PropertyRecord, error) {
	return LoadAll[models.PropertyRecord](ctx, d.db)
}

func (d *Database) Listings(ctx context.Context) ([]models.Listing, error) {
	return LoadAll[models.Listing](ctx, d.db)
}

func (d *Database) Accounts(ctx context.Context) ([]models.UserAccount, error) {
	return LoadAll[models.UserAccount](ctx, d.db)
}

func (d *Database) Transactions(ctx context.Context) ([]models.TransactionRecord, error) {
	return LoadAll[models.TransactionRecord](ctx, d.db)
}

// TransactionsForUser returns the ledger entries of one user in id order.
func (d *Database) TransactionsForUser(ctx context.Context, userID int64) ([]models.TransactionRecord, error) {
	var records []models.TransactionRecord
	err := d.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions for user %d: %w", userID, err)
	}
	return records, nil
}

// ListingsOwnedBy returns the listings currently held by one user.
func (d *Database) ListingsOwnedBy(ctx context.Context, ownerID int64) ([]models.Listing, error) {
	var listings []models.Listing
	err := d.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("property_id").
		Find(&listings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load listings for owner %d: %w", ownerID, err)
	}
	return listings, nil
}

func (d *Database) Account(ctx context.Context, id int64) (*models.UserAccount, error) {
	return FindAccount(d.db.WithContext(ctx), id)
}

func (d *Database) AccountByUsername(ctx context.Context, username string) (*models.UserAccount, error) {
	return FindAccountByUsername(d.db.WithContext(ctx), username)
}

func (d *Database) CountListings(ctx context.Context) (int64, error) {
	return Count[models.Listing](ctx, d.db)
}
