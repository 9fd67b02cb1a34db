package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"landsphere/server/internal/apperr"
	"landsphere/server/internal/models"
)

const replaceBatchSize = 500

// Record is any persisted marketplace collection.
type Record interface {
	models.PropertyRecord | models.Listing | models.UserAccount | models.TransactionRecord
	TableName() string
	KeyColumn() string
}

// LoadAll reads the current contents of a collection in key order. A collection whose
// table does not exist yet is empty.
func LoadAll[T Record](ctx context.Context, db *gorm.DB) ([]T, error) {
	var zero T
	db = db.WithContext(ctx)

	if !db.Migrator().HasTable(zero.TableName()) {
		return []T{}, nil
	}

	records := []T{}
	if err := db.Order(zero.KeyColumn()).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", zero.TableName(), err)
	}
	return records, nil
}

// Count returns the number of records in a collection; a missing table counts as empty.
func Count[T Record](ctx context.Context, db *gorm.DB) (int64, error) {
	var zero T
	db = db.WithContext(ctx)

	if !db.Migrator().HasTable(zero.TableName()) {
		return 0, nil
	}

	var count int64
	if err := db.Model(&zero).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", zero.TableName(), err)
	}
	return count, nil
}

// ReplaceAll overwrites a whole collection. Call it inside Commit so the delete and the
// inserts land together.
func ReplaceAll[T Record](ctx context.Context, tx *gorm.DB, records []T) error {
	var zero T
	tx = tx.WithContext(ctx)

	if err := tx.Where("1 = 1").Delete(&zero).Error; err != nil {
		return fmt.Errorf("failed to clear %s: %w", zero.TableName(), err)
	}
	if len(records) == 0 {
		return nil
	}
	if err := tx.CreateInBatches(&records, replaceBatchSize).Error; err != nil {
		return fmt.Errorf("failed to write %s: %w", zero.TableName(), err)
	}
	return nil
}

func FindListing(tx *gorm.DB, propertyID int64) (*models.Listing, error) {
	var listing models.Listing
	err := tx.Where("property_id = ?", propertyID).First(&listing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("listing %d: %w", propertyID, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load listing %d: %w", propertyID, err)
	}
	return &listing, nil
}

// FindAccount loads a user account. The platform owner id never names an account.
func FindAccount(tx *gorm.DB, id int64) (*models.UserAccount, error) {
	if id == models.PlatformOwnerID {
		return nil, fmt.Errorf("account %d: %w", id, apperr.ErrNotFound)
	}

	var account models.UserAccount
	err := tx.Where("id = ?", id).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("account %d: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load account %d: %w", id, err)
	}
	return &account, nil
}

func FindAccountByUsername(tx *gorm.DB, username string) (*models.UserAccount, error) {
	var account models.UserAccount
	err := tx.Where("username = ?", username).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("account %q: %w", username, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load account %q: %w", username, err)
	}
	return &account, nil
}

func SaveListing(tx *gorm.DB, listing *models.Listing) error {
	if err := tx.Save(listing).Error; err != nil {
		return fmt.Errorf("failed to save listing %d: %w", listing.PropertyID, err)
	}
	return nil
}

func SaveAccount(tx *gorm.DB, account *models.UserAccount) error {
	if err := tx.Save(account).Error; err != nil {
		return fmt.Errorf("failed to save account %d: %w", account.ID, err)
	}
	return nil
}

// CreateAccount inserts a new account. A username collision is reported as ErrInvalidState.
func CreateAccount(tx *gorm.DB, account *models.UserAccount) error {
	err := tx.Create(account).Error
	if isUniqueViolation(err) {
		return fmt.Errorf("username %q already exists: %w", account.Username, apperr.ErrInvalidState)
	}
	if err != nil {
		return fmt.Errorf("failed to create account %q: %w", account.Username, err)
	}
	return nil
}

// AppendTransactions adds ledger entries. Entries are never updated afterwards.
func AppendTransactions(tx *gorm.DB, records []models.TransactionRecord) error {
	if len(records) == 0 {
		return nil
	}
	err := tx.Create(&records).Error
	if isUniqueViolation(err) {
		return fmt.Errorf("transaction id reused: %w", apperr.ErrInvalidState)
	}
	if err != nil {
		return fmt.Errorf("failed to append transactions: %w", err)
	}
	return nil
}

func NextTransactionID(tx *gorm.DB) (int64, error) {
	return nextID(tx, &models.TransactionRecord{})
}

// NextAccountID returns the id for a new account; the first account gets 1.
func NextAccountID(tx *gorm.DB) (int64, error) {
	return nextID(tx, &models.UserAccount{})
}

func nextID(tx *gorm.DB, model interface{}) (int64, error) {
	var maxID int64
	err := tx.Model(model).Select("COALESCE(MAX(id), 0)").Scan(&maxID).Error
	if err != nil {
		return 0, fmt.Errorf("failed to read max id: %w", err)
	}
	return maxID + 1, nil
}

// UpsertCatalog inserts catalog records, replacing any record with the same property id.
func UpsertCatalog(tx *gorm.DB, batch []*models.PropertyRecord) error {
	if len(batch) == 0 {
		return nil
	}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "property_id"}},
		UpdateAll: true,
	}).Create(&batch).Error
	if err != nil {
		return fmt.Errorf("failed to upsert catalog batch: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
