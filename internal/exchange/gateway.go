// Package exchange abstracts live order execution behind a gateway interface
// keyed by account. The orchestrator talks to gateways only; which venue and
// account type sit behind a key is configuration.
package exchange

import (
	"context"

	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/types"
)

// AccountRef identifies one tradable account. The same user can run the same
// strategy on separate accounts, so the full triple is the key.
type AccountRef struct {
	UserID      string `yaml:"user_id" json:"user_id"`
	Exchange    string `yaml:"exchange" json:"exchange"`
	AccountType string `yaml:"account_type" json:"account_type"`
}

// OrderRequest is a market order to open or reduce a position.
type OrderRequest struct {
	Symbol   string
	Side     types.Direction
	Quantity float64
	// ReduceOnly prevents the order from flipping the position.
	ReduceOnly bool
}

// Balance is the quote-currency account balance.
type Balance struct {
	Asset     string
	Total     float64
	Available float64
}

// PositionInfo is an open position as reported by the venue.
type PositionInfo struct {
	Symbol        string
	Side          types.Direction
	Quantity      float64
	EntryPrice    float64
	UnrealizedPnl float64
	Leverage      float64
}

// Gateway executes orders and reads account state on one venue. All calls are
// bounded by the gateway's configured timeout on top of the caller's context.
// Connectivity failures and venue rejections surface as distinguishable error
// codes so callers can decide between retrying and halting.
type Gateway interface {
	// Name identifies the venue.
	Name() string
	// PlaceOrder submits a market order and returns the venue order ID.
	PlaceOrder(ctx context.Context, account AccountRef, order OrderRequest) (string, error)
	// GetBalance returns the quote balance of the account.
	GetBalance(ctx context.Context, account AccountRef) (Balance, error)
	// GetPositions returns all open positions of the account.
	GetPositions(ctx context.Context, account AccountRef) ([]PositionInfo, error)
	// ClosePosition market-closes the position on the symbol, if any.
	ClosePosition(ctx context.Context, account AccountRef, symbol string) error
	// Ping verifies connectivity to the venue.
	Ping(ctx context.Context) error
}
