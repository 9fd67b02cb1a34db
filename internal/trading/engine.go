// Package trading executes buy and sell trades and account creation against the record
// store. It is the only writer of users, listings and the ledger.
package trading

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"landsphere/server/config"
	"landsphere/server/internal/apperr"
	"landsphere/server/internal/catalog"
	"landsphere/server/internal/database"
	"landsphere/server/internal/models"
)

// Policy holds the account rules of the marketplace.
type Policy struct {
	StartingBalance decimal.Decimal
	// BalanceFloor rejects a buy that would leave the buyer below it. Nil allows
	// balances to go negative without limit.
	BalanceFloor *decimal.Decimal
	// AdminUserID sees every ledger entry on its dashboard.
	AdminUserID int64
}

func DefaultPolicy() Policy {
	return Policy{
		StartingBalance: decimal.NewFromInt(10_000_000),
		AdminUserID:     1,
	}
}

// PolicyFromConfig reads the account rules from the trading configuration.
func PolicyFromConfig(cfg *config.Config) (Policy, error) {
	floor, err := cfg.BalanceFloor()
	if err != nil {
		return Policy{}, err
	}
	return Policy{
		StartingBalance: cfg.Trading.StartingBalance,
		BalanceFloor:    floor,
		AdminUserID:     cfg.Trading.AdminUserID,
	}, nil
}

// Engine serialises every mutation behind one lock and commits each one in a single
// database transaction, so a trade either lands completely or not at all.
type Engine struct {
	mu      sync.Mutex
	db      *database.Database
	catalog *catalog.Catalog
	policy  Policy
	now     func() time.Time
	logger  *logrus.Logger
}

func NewEngine(db *database.Database, c *catalog.Catalog, policy Policy, logger *logrus.Logger) *Engine {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	return &Engine{
		db:      db,
		catalog: c,
		policy:  policy,
		now:     time.Now,
		logger:  logger,
	}
}

func (e *Engine) today() time.Time {
	return e.now().UTC().Truncate(24 * time.Hour)
}

// Buy transfers an available listing to the buyer. The buyer is debited the listing
// price and a previous owner, if any, is credited. The ledger gets a Buy entry for the
// buyer and, for a resale, a Sell entry for the previous owner with the next id.
func (e *Engine) Buy(ctx context.Context, propertyID, buyerID int64) (*models.Receipt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var receipt models.Receipt
	err := e.db.Commit(ctx, func(tx *gorm.DB) error {
		listing, err := database.FindListing(tx, propertyID)
		if err != nil {
			return err
		}
		if listing.Status != models.StatusAvailable {
			return fmt.Errorf("property %d is %s: %w", propertyID, listing.Status, apperr.ErrInvalidState)
		}
		if listing.OwnerID == buyerID {
			return fmt.Errorf("user %d already owns property %d: %w", buyerID, propertyID, apperr.ErrInvalidState)
		}

		buyer, err := database.FindAccount(tx, buyerID)
		if err != nil {
			return err
		}

		price := listing.Price
		buyer.Balance = buyer.Balance.Sub(price)
		if floor := e.policy.BalanceFloor; floor != nil && buyer.Balance.LessThan(*floor) {
			return fmt.Errorf("insufficient balance for property %d: %w", propertyID, apperr.ErrInvalidState)
		}
		if err := database.SaveAccount(tx, buyer); err != nil {
			return err
		}

		previousOwner := listing.OwnerID
		if previousOwner != models.PlatformOwnerID {
			seller, err := database.FindAccount(tx, previousOwner)
			if err != nil {
				return fmt.Errorf("failed to load seller of property %d: %w", propertyID, err)
			}
			seller.Balance = seller.Balance.Add(price)
			if err := database.SaveAccount(tx, seller); err != nil {
				return err
			}
		}

		listing.Status = models.StatusSold
		listing.OwnerID = buyerID
		if err := database.SaveListing(tx, listing); err != nil {
			return err
		}

		id, err := database.NextTransactionID(tx)
		if err != nil {
			return err
		}
		date := e.today()
		records := []models.TransactionRecord{{
			ID:         id,
			UserID:     buyerID,
			PropertyID: propertyID,
			Date:       date,
			Price:      price,
			Type:       models.TransactionBuy,
		}}
		if previousOwner != models.PlatformOwnerID {
			records = append(records, models.TransactionRecord{
				ID:         id + 1,
				UserID:     previousOwner,
				PropertyID: propertyID,
				Date:       date,
				Price:      price,
				Type:       models.TransactionSell,
			})
		}
		if err := database.AppendTransactions(tx, records); err != nil {
			return err
		}

		receipt = models.Receipt{Listing: *listing, Transactions: records, BuyerBalance: buyer.Balance}
		return nil
	})
	if err != nil {
		e.logger.WithError(err).WithFields(logrus.Fields{
			"property_id": propertyID,
			"buyer_id":    buyerID,
		}).Warn("Buy rejected")
		return nil, err
	}

	e.logger.WithFields(logrus.Fields{
		"property_id": propertyID,
		"buyer_id":    buyerID,
		"price":       receipt.Listing.Price.String(),
		"resale":      len(receipt.Transactions) > 1,
	}).Info("Property bought")
	return &receipt, nil
}

// Sell puts a property held by ownerID back on the market at newPrice. Relisting is not
// a completed trade, so nothing is written to the ledger.
func (e *Engine) Sell(ctx context.Context, propertyID, ownerID int64, newPrice decimal.Decimal) (*models.Listing, error) {
	if !newPrice.IsPositive() {
		return nil, fmt.Errorf("price must be positive: %w", apperr.ErrInvalidInput)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var listing *models.Listing
	err := e.db.Commit(ctx, func(tx *gorm.DB) error {
		var err error
		listing, err = database.FindListing(tx, propertyID)
		if err != nil {
			return err
		}
		if ownerID == models.PlatformOwnerID || listing.OwnerID != ownerID {
			return fmt.Errorf("user %d does not own property %d: %w", ownerID, propertyID, apperr.ErrInvalidState)
		}

		listing.Status = models.StatusAvailable
		listing.Price = newPrice
		return database.SaveListing(tx, listing)
	})
	if err != nil {
		e.logger.WithError(err).WithFields(logrus.Fields{
			"property_id": propertyID,
			"owner_id":    ownerID,
		}).Warn("Sell rejected")
		return nil, err
	}

	e.logger.WithFields(logrus.Fields{
		"property_id": propertyID,
		"owner_id":    ownerID,
		"price":       newPrice.String(),
	}).Info("Property listed for sale")
	return listing, nil
}

// EnsureListings seeds one platform-owned listing per catalog property when no listings
// exist yet. It reports how many listings were written.
func (e *Engine) EnsureListings(ctx context.Context) (int, error) {
	return e.seed(ctx, false)
}

// ResetListings overwrites every listing with a fresh platform-owned seed.
func (e *Engine) ResetListings(ctx context.Context) (int, error) {
	return e.seed(ctx, true)
}

func (e *Engine) seed(ctx context.Context, force bool) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	written := 0
	err := e.db.Commit(ctx, func(tx *gorm.DB) error {
		if !force {
			count, err := database.Count[models.Listing](ctx, tx)
			if err != nil {
				return err
			}
			if count > 0 {
				return nil
			}
		}

		listings := e.catalog.SeedListings()
		if err := database.ReplaceAll(ctx, tx, listings); err != nil {
			return err
		}
		written = len(listings)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to seed listings: %w", err)
	}

	if written > 0 {
		e.logger.WithField("count", written).Info("Seeded listings from catalog")
	}
	return written, nil
}
