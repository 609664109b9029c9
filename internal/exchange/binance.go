package exchange

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
	"go.uber.org/zap"

	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/logger"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/types"
	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/pkg/errors"
)

// DefaultCallTimeout bounds each venue call when the caller's context has no
// earlier deadline.
const DefaultCallTimeout = 10 * time.Second

// quantityPrecision is a fallback; production sizing should use the symbol's
// LOT_SIZE filter from exchange info.
const quantityPrecision = 8

// Credentials are the API keys for one account.
type Credentials struct {
	APIKey    string `yaml:"api_key" json:"api_key" validate:"required"`
	SecretKey string `yaml:"secret_key" json:"secret_key" validate:"required"`
}

// futuresAPI is the slice of the Binance futures client the gateway uses,
// narrowed so tests can fake it.
type futuresAPI interface {
	CreateOrder(ctx context.Context, symbol string, side futures.SideType, quantity string, reduceOnly bool) (*futures.CreateOrderResponse, error)
	Balances(ctx context.Context) ([]*futures.Balance, error)
	PositionRisk(ctx context.Context) ([]*futures.PositionRisk, error)
	Ping(ctx context.Context) error
}

// realFuturesClient adapts *futures.Client to futuresAPI.
type realFuturesClient struct {
	client *futures.Client
}

func (r *realFuturesClient) CreateOrder(ctx context.Context, symbol string, side futures.SideType, quantity string, reduceOnly bool) (*futures.CreateOrderResponse, error) {
	service := r.client.NewCreateOrderService().
		Symbol(symbol).
		Side(side).
		Type(futures.OrderTypeMarket).
		Quantity(quantity)

	if reduceOnly {
		service = service.ReduceOnly(true)
	}

	return service.Do(ctx)
}

func (r *realFuturesClient) Balances(ctx context.Context) ([]*futures.Balance, error) {
	return r.client.NewGetBalanceService().Do(ctx)
}

func (r *realFuturesClient) PositionRisk(ctx context.Context) ([]*futures.PositionRisk, error) {
	return r.client.NewGetPositionRiskService().Do(ctx)
}

func (r *realFuturesClient) Ping(ctx context.Context) error {
	return r.client.NewPingService().Do(ctx)
}

// BinanceGateway executes on Binance USDT-margined futures. Clients are built
// lazily per account and cached.
type BinanceGateway struct {
	creds     map[AccountRef]Credentials
	clients   map[AccountRef]futuresAPI
	newClient func(Credentials) futuresAPI
	timeout   time.Duration
	log       *logger.Logger
	mu        sync.Mutex
}

// NewBinanceGateway creates a gateway over the given account credentials.
func NewBinanceGateway(creds map[AccountRef]Credentials, log *logger.Logger) *BinanceGateway {
	return &BinanceGateway{
		creds:   creds,
		clients: make(map[AccountRef]futuresAPI),
		newClient: func(c Credentials) futuresAPI {
			return &realFuturesClient{client: futures.NewClient(c.APIKey, c.SecretKey)}
		},
		timeout: DefaultCallTimeout,
		log:     log,
		mu:      sync.Mutex{},
	}
}

// Name implements Gateway.
func (g *BinanceGateway) Name() string {
	return "binance-futures"
}

func (g *BinanceGateway) clientFor(account AccountRef) (futuresAPI, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if client, ok := g.clients[account]; ok {
		return client, nil
	}

	cred, ok := g.creds[account]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeBalanceUnavailable,
			"no credentials for account %s/%s/%s", account.UserID, account.Exchange, account.AccountType)
	}

	client := g.newClient(cred)
	g.clients[account] = client

	return client, nil
}

func (g *BinanceGateway) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, g.timeout)
}

// PlaceOrder implements Gateway.
func (g *BinanceGateway) PlaceOrder(ctx context.Context, account AccountRef, order OrderRequest) (string, error) {
	if order.Quantity <= 0 {
		return "", errors.New(errors.ErrCodeInvalidParameter, "order quantity must be greater than zero")
	}

	var side futures.SideType

	switch order.Side {
	case types.DirectionLong:
		side = futures.SideTypeBuy
	case types.DirectionShort:
		side = futures.SideTypeSell
	default:
		return "", errors.Newf(errors.ErrCodeInvalidParameter, "unsupported order side: %s", order.Side)
	}

	client, err := g.clientFor(account)
	if err != nil {
		return "", err
	}

	callCtx, cancel := g.callContext(ctx)
	defer cancel()

	quantity := strconv.FormatFloat(order.Quantity, 'f', quantityPrecision, 64)

	response, err := client.CreateOrder(callCtx, order.Symbol, side, quantity, order.ReduceOnly)
	if err != nil {
		return "", mapVenueError(err, "failed to place order")
	}

	g.log.Info("order placed",
		zap.String("symbol", order.Symbol),
		zap.String("side", string(order.Side)),
		zap.Float64("quantity", order.Quantity),
		zap.Int64("order_id", response.OrderID))

	return strconv.FormatInt(response.OrderID, 10), nil
}

// GetBalance implements Gateway. It reports the USDT wallet.
func (g *BinanceGateway) GetBalance(ctx context.Context, account AccountRef) (Balance, error) {
	client, err := g.clientFor(account)
	if err != nil {
		return Balance{}, err
	}

	callCtx, cancel := g.callContext(ctx)
	defer cancel()

	balances, err := client.Balances(callCtx)
	if err != nil {
		return Balance{}, mapVenueError(err, "failed to get balance")
	}

	for _, b := range balances {
		if b.Asset != "USDT" {
			continue
		}

		total, _ := strconv.ParseFloat(b.Balance, 64)
		available, _ := strconv.ParseFloat(b.AvailableBalance, 64)

		return Balance{Asset: b.Asset, Total: total, Available: available}, nil
	}

	return Balance{}, errors.New(errors.ErrCodeBalanceUnavailable, "no USDT balance on account")
}

// GetPositions implements Gateway. Zero-quantity entries are filtered out.
func (g *BinanceGateway) GetPositions(ctx context.Context, account AccountRef) ([]PositionInfo, error) {
	client, err := g.clientFor(account)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := g.callContext(ctx)
	defer cancel()

	risks, err := client.PositionRisk(callCtx)
	if err != nil {
		return nil, mapVenueError(err, "failed to get positions")
	}

	positions := make([]PositionInfo, 0, len(risks))

	for _, risk := range risks {
		amount, _ := strconv.ParseFloat(risk.PositionAmt, 64)
		if amount == 0 {
			continue
		}

		entry, _ := strconv.ParseFloat(risk.EntryPrice, 64)
		pnl, _ := strconv.ParseFloat(risk.UnRealizedProfit, 64)
		leverage, _ := strconv.ParseFloat(risk.Leverage, 64)

		side := types.DirectionLong
		if amount < 0 {
			side = types.DirectionShort
			amount = -amount
		}

		positions = append(positions, PositionInfo{
			Symbol:        risk.Symbol,
			Side:          side,
			Quantity:      amount,
			EntryPrice:    entry,
			UnrealizedPnl: pnl,
			Leverage:      leverage,
		})
	}

	return positions, nil
}

// ClosePosition implements Gateway with a reduce-only market order in the
// opposite direction. A symbol with no position is a no-op.
func (g *BinanceGateway) ClosePosition(ctx context.Context, account AccountRef, symbol string) error {
	positions, err := g.GetPositions(ctx, account)
	if err != nil {
		return err
	}

	for _, pos := range positions {
		if pos.Symbol != symbol {
			continue
		}

		_, err := g.PlaceOrder(ctx, account, OrderRequest{
			Symbol:     symbol,
			Side:       pos.Side.Opposite(),
			Quantity:   pos.Quantity,
			ReduceOnly: true,
		})

		return err
	}

	return nil
}

// Ping implements Gateway using the public endpoint, which needs no account.
func (g *BinanceGateway) Ping(ctx context.Context) error {
	client := g.newClient(Credentials{})

	callCtx, cancel := g.callContext(ctx)
	defer cancel()

	if err := client.Ping(callCtx); err != nil {
		return mapVenueError(err, "venue unreachable")
	}

	return nil
}

// mapVenueError classifies a venue failure: deadline overruns become timeout
// errors, API-level rejections become order rejections, and everything else
// is treated as connectivity trouble.
func mapVenueError(err error, message string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return errors.Wrap(errors.ErrCodeExchangeTimeout, message, err)
	}

	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		return errors.Wrap(errors.ErrCodeOrderRejected, message, err)
	}

	return errors.Wrap(errors.ErrCodeExchangeUnavailable, message, err)
}

var _ Gateway = (*BinanceGateway)(nil)
