package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PlatformOwnerID marks a listing that is owned by the platform rather than a user account.
const PlatformOwnerID int64 = 0

type ListingStatus string

const (
	StatusAvailable ListingStatus = "Available"
	StatusSold      ListingStatus = "Sold"
)

type TransactionType string

const (
	TransactionBuy  TransactionType = "Buy"
	TransactionSell TransactionType = "Sell"
)

// PropertyRecord is the immutable catalog entry for a property.
type PropertyRecord struct {
	PropertyID   int64           `gorm:"column:property_id;primaryKey;autoIncrement:false" json:"property_id"`
	Region       string          `gorm:"column:region;not null;index" json:"region"`
	State        string          `gorm:"column:state;not null;index" json:"state"`
	City         string          `gorm:"column:city;not null;index" json:"city"`
	PropertyType string          `gorm:"column:property_type;not null" json:"property_type"`
	AreaSqFt     int             `gorm:"column:area_sqft" json:"area_sqft"`
	PricePerSqFt decimal.Decimal `gorm:"column:price_per_sqft;type:decimal(18,2)" json:"price_per_sqft"`
	BasePrice    decimal.Decimal `gorm:"column:base_price;type:decimal(18,2)" json:"base_price"`
	YearBuilt    int             `gorm:"column:year_built" json:"year_built"`
	GrowthRate   float64         `gorm:"column:growth_rate" json:"growth_rate"`
	RiskScore    int             `gorm:"column:risk_score" json:"risk_score"`
}

func (PropertyRecord) TableName() string { return "property_catalog" }
func (PropertyRecord) KeyColumn() string { return "property_id" }

// Listing is the live trade state of a catalog property.
type Listing struct {
	PropertyID int64           `gorm:"column:property_id;primaryKey;autoIncrement:false" json:"property_id"`
	Price      decimal.Decimal `gorm:"column:price;type:decimal(18,2);not null" json:"price"`
	OwnerID    int64           `gorm:"column:owner_id;not null;index" json:"owner_id"`
	Status     ListingStatus   `gorm:"column:status;type:varchar(16);not null;index" json:"status"`
}

func (Listing) TableName() string { return "listings" }
func (Listing) KeyColumn() string { return "property_id" }

// IsPlatformOwned reports whether nobody holds the listing yet.
func (l Listing) IsPlatformOwned() bool { return l.OwnerID == PlatformOwnerID }

type UserAccount struct {
	ID         int64           `gorm:"column:id;primaryKey;autoIncrement:false" json:"id"`
	Username   string          `gorm:"column:username;uniqueIndex;not null" json:"username"`
	Credential string          `gorm:"column:credential;not null" json:"-"`
	Email      string          `gorm:"column:email" json:"email"`
	Balance    decimal.Decimal `gorm:"column:balance;type:decimal(18,2);not null" json:"balance"`
	FullName   string          `gorm:"column:full_name" json:"full_name"`
	Phone      string          `gorm:"column:phone" json:"phone"`
	Address    string          `gorm:"column:address" json:"address"`
	CreatedAt  time.Time       `gorm:"column:created_at" json:"created_at"`
}

func (UserAccount) TableName() string { return "users" }
func (UserAccount) KeyColumn() string { return "id" }

// DisplayName is what the marketplace shows as the owner of a listing.
func (u UserAccount) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}

// TransactionRecord is an append-only ledger entry.
type TransactionRecord struct {
	ID         int64           `gorm:"column:id;primaryKey;autoIncrement:false" json:"id"`
	UserID     int64           `gorm:"column:user_id;not null;index" json:"user_id"`
	PropertyID int64           `gorm:"column:property_id;not null;index" json:"property_id"`
	Date       time.Time       `gorm:"column:date;not null" json:"date"`
	Price      decimal.Decimal `gorm:"column:price;type:decimal(18,2);not null" json:"price"`
	Type       TransactionType `gorm:"column:type;type:varchar(8);not null" json:"type"`
}

func (TransactionRecord) TableName() string { return "transactions" }
func (TransactionRecord) KeyColumn() string { return "id" }

// MarketEntry joins a catalog record with its live listing.
// Price, owner and status come from the listing; everything else from the catalog.
type MarketEntry struct {
	PropertyRecord
	Price     decimal.Decimal `json:"price"`
	OwnerID   int64           `json:"owner_id"`
	OwnerName string          `json:"owner_name,omitempty"`
	Status    ListingStatus   `json:"status"`
}

// Available reports whether the entry can be bought.
func (e MarketEntry) Available() bool { return e.Status == StatusAvailable }
