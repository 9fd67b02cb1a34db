package models

import "github.com/shopspring/decimal"

// CityNode is a vertex of the proximity graph.
type CityNode struct {
	City   string `json:"city"`
	State  string `json:"state"`
	Region string `json:"region"`
}

type CityStats struct {
	Name             string                     `json:"name"`
	State            string                     `json:"state"`
	Region           string                     `json:"region"`
	Count            int                        `json:"count"`
	AvgPrice         decimal.Decimal            `json:"avg_price"`
	MinPrice         decimal.Decimal            `json:"min_price"`
	MaxPrice         decimal.Decimal            `json:"max_price"`
	TypeDistribution map[string]int             `json:"type_distribution"`
	TypeAvgPrices    map[string]decimal.Decimal `json:"type_avg_prices"`
	Nearby           []string                   `json:"nearby"`
}

// SummaryRow is one line of a drill-down overview.
type SummaryRow struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Receipt describes the outcome of a completed buy.
type Receipt struct {
	Listing      Listing             `json:"listing"`
	Transactions []TransactionRecord `json:"transactions"`
	BuyerBalance decimal.Decimal     `json:"buyer_balance"`
}

type Dashboard struct {
	Account      UserAccount         `json:"account"`
	Transactions []TransactionRecord `json:"transactions"`
	Properties   []MarketEntry       `json:"properties"`
	IsAdmin      bool                `json:"is_admin"`
}
