package exchange

import (
	"context"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/rxtech-lab/argo-bot/internal/types"
	"github.com/rxtech-lab/argo-bot/pkg/errors"
)

const (
	// BinanceDepthLimit is the number of levels requested per side for the REST order book.
	BinanceDepthLimit = 100

	// binanceUnknownOrderCode is returned for cancels of orders the venue does not know,
	// including a cancel-all on a product with nothing open.
	binanceUnknownOrderCode = -2011
)

// Service interfaces for mocking the Binance API

// TickerService interface for the 24h rolling ticker.
type TickerService interface {
	Symbol(symbol string) TickerService
	Do(ctx context.Context) ([]*binance.PriceChangeStats, error)
}

// DepthService interface for the REST order book.
type DepthService interface {
	Symbol(symbol string) DepthService
	Limit(limit int) DepthService
	Do(ctx context.Context) (*binance.DepthResponse, error)
}

// ListOpenOrdersService interface for listing open orders.
type ListOpenOrdersService interface {
	Symbol(symbol string) ListOpenOrdersService
	Do(ctx context.Context) ([]*binance.Order, error)
}

// CancelOrderService interface for canceling orders.
type CancelOrderService interface {
	Symbol(symbol string) CancelOrderService
	OrderID(orderID int64) CancelOrderService
	Do(ctx context.Context) (*binance.CancelOrderResponse, error)
}

// CancelOpenOrdersService interface for canceling all open orders for a symbol.
type CancelOpenOrdersService interface {
	Symbol(symbol string) CancelOpenOrdersService
	Do(ctx context.Context) error
}

// BinanceAPI abstracts the Binance client for testing.
type BinanceAPI interface {
	NewTickerService() TickerService
	NewDepthService() DepthService
	NewListOpenOrdersService() ListOpenOrdersService
	NewCancelOrderService() CancelOrderService
	NewCancelOpenOrdersService() CancelOpenOrdersService
}

// realBinanceAPI wraps the actual binance.Client.
type realBinanceAPI struct {
	client *binance.Client
}

func (r *realBinanceAPI) NewTickerService() TickerService {
	return &realTickerService{service: r.client.NewListPriceChangeStatsService()}
}

func (r *realBinanceAPI) NewDepthService() DepthService {
	return &realDepthService{service: r.client.NewDepthService()}
}

func (r *realBinanceAPI) NewListOpenOrdersService() ListOpenOrdersService {
	return &realListOpenOrdersService{service: r.client.NewListOpenOrdersService()}
}

func (r *realBinanceAPI) NewCancelOrderService() CancelOrderService {
	return &realCancelOrderService{service: r.client.NewCancelOrderService()}
}

func (r *realBinanceAPI) NewCancelOpenOrdersService() CancelOpenOrdersService {
	return &realCancelOpenOrdersService{service: r.client.NewCancelOpenOrdersService()}
}

// Real service wrappers

type realTickerService struct {
	service *binance.ListPriceChangeStatsService
}

func (s *realTickerService) Symbol(symbol string) TickerService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realTickerService) Do(ctx context.Context) ([]*binance.PriceChangeStats, error) {
	return s.service.Do(ctx)
}

type realDepthService struct {
	service *binance.DepthService
}

func (s *realDepthService) Symbol(symbol string) DepthService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realDepthService) Limit(limit int) DepthService {
	s.service = s.service.Limit(limit)

	return s
}

func (s *realDepthService) Do(ctx context.Context) (*binance.DepthResponse, error) {
	return s.service.Do(ctx)
}

type realListOpenOrdersService struct {
	service *binance.ListOpenOrdersService
}

func (s *realListOpenOrdersService) Symbol(symbol string) ListOpenOrdersService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realListOpenOrdersService) Do(ctx context.Context) ([]*binance.Order, error) {
	return s.service.Do(ctx)
}

type realCancelOrderService struct {
	service *binance.CancelOrderService
}

func (s *realCancelOrderService) Symbol(symbol string) CancelOrderService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realCancelOrderService) OrderID(orderID int64) CancelOrderService {
	s.service = s.service.OrderID(orderID)

	return s
}

func (s *realCancelOrderService) Do(ctx context.Context) (*binance.CancelOrderResponse, error) {
	return s.service.Do(ctx)
}

type realCancelOpenOrdersService struct {
	service *binance.CancelOpenOrdersService
}

func (s *realCancelOpenOrdersService) Symbol(symbol string) CancelOpenOrdersService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realCancelOpenOrdersService) Do(ctx context.Context) error {
	_, err := s.service.Do(ctx)

	return err
}

// BinanceClient implements Client using the Binance spot REST API.
// It is stateless - all data is fetched directly from the Binance API.
type BinanceClient struct {
	api BinanceAPI
}

// NewBinanceClient creates a Binance client from validated credentials.
// If creds.BaseURL is set, it takes precedence over creds.Testnet.
func NewBinanceClient(creds Credentials) (*BinanceClient, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	client := binance.NewClient(creds.APIKey, creds.SecretKey)

	// binance.UseTestnet is process-wide, so the endpoint is set per client instead
	switch {
	case creds.BaseURL != "":
		client.BaseURL = creds.BaseURL
	case creds.Testnet:
		client.BaseURL = binance.BaseAPITestnetURL
	default:
		client.BaseURL = binance.BaseAPIMainURL
	}

	return &BinanceClient{
		api: &realBinanceAPI{client: client},
	}, nil
}

// newBinanceClientWithAPI creates a Binance client over a custom API.
// This is used for testing with mock services.
func newBinanceClientWithAPI(api BinanceAPI) *BinanceClient {
	return &BinanceClient{
		api: api,
	}
}

// FetchTicker implements Client using the 24h rolling window statistics endpoint.
func (b *BinanceClient) FetchTicker(ctx context.Context, product string) (types.Ticker, error) {
	stats, err := b.api.NewTickerService().Symbol(product).Do(ctx)
	if err != nil {
		return types.Ticker{}, errors.Wrap(errors.ErrCodeTickerFetchFailed, "failed to fetch ticker from Binance", err)
	}

	if len(stats) == 0 || stats[0] == nil {
		return types.Ticker{}, errors.Newf(errors.ErrCodeMalformedResponse, "empty ticker response for %s", product)
	}

	return convertPriceChangeStats(product, stats[0]), nil
}

// FetchOrderBook implements Client.
func (b *BinanceClient) FetchOrderBook(ctx context.Context, product string) (types.OrderBook, error) {
	depth, err := b.api.NewDepthService().Symbol(product).Limit(BinanceDepthLimit).Do(ctx)
	if err != nil {
		return types.OrderBook{}, errors.Wrap(errors.ErrCodeOrderBookFetchFailed, "failed to fetch order book from Binance", err)
	}

	if depth == nil {
		return types.OrderBook{}, errors.Newf(errors.ErrCodeMalformedResponse, "empty depth response for %s", product)
	}

	book := types.OrderBook{
		Product:  product,
		Sequence: depth.LastUpdateID,
		Time:     time.Now(),
		Bids:     make([]types.PriceLevel, 0, len(depth.Bids)),
		Asks:     make([]types.PriceLevel, 0, len(depth.Asks)),
	}

	for _, bid := range depth.Bids {
		book.Bids = append(book.Bids, convertPriceLevel(bid.Price, bid.Quantity))
	}

	for _, ask := range depth.Asks {
		book.Asks = append(book.Asks, convertPriceLevel(ask.Price, ask.Quantity))
	}

	return book, nil
}

// FetchOpenOrders implements Client. The exchange's ordering is preserved.
func (b *BinanceClient) FetchOpenOrders(ctx context.Context, product string) ([]types.Order, error) {
	binanceOrders, err := b.api.NewListOpenOrdersService().Symbol(product).Do(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeOpenOrdersFetchFailed, "failed to get open orders from Binance", err)
	}

	orders := make([]types.Order, 0, len(binanceOrders))

	for _, bo := range binanceOrders {
		if bo == nil {
			continue
		}

		orders = append(orders, convertBinanceOrder(bo))
	}

	return orders, nil
}

// CancelOrder implements Client. Binance order ids are numeric; an unknown id is a no-op.
func (b *BinanceClient) CancelOrder(ctx context.Context, product string, orderID string) error {
	binanceOrderID, err := strconv.ParseInt(orderID, 10, 64)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidOrderID, err, "invalid order ID format: %q", orderID)
	}

	_, err = b.api.NewCancelOrderService().
		Symbol(product).
		OrderID(binanceOrderID).
		Do(ctx)
	if err != nil {
		if isUnknownOrder(err) {
			return nil
		}

		return errors.Wrapf(errors.ErrCodeCancelOrderFailed, err, "failed to cancel order %s on Binance", orderID)
	}

	return nil
}

// CancelAllOrders implements Client.
func (b *BinanceClient) CancelAllOrders(ctx context.Context, product string) error {
	err := b.api.NewCancelOpenOrdersService().
		Symbol(product).
		Do(ctx)
	if err != nil {
		if isUnknownOrder(err) {
			return nil
		}

		return errors.Wrap(errors.ErrCodeCancelAllFailed, "failed to cancel orders on Binance", err)
	}

	return nil
}

// Helper functions

func isUnknownOrder(err error) bool {
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == binanceUnknownOrderCode
	}

	return false
}

func convertPriceChangeStats(product string, stats *binance.PriceChangeStats) types.Ticker {
	return types.Ticker{
		Product: product,
		Price:   types.ParseDecimalOrZero(stats.LastPrice),
		Bid:     types.ParseDecimal(stats.BidPrice),
		Ask:     types.ParseDecimal(stats.AskPrice),
		Size:    types.ParseDecimalOrZero(stats.LastQty),
		Volume:  types.ParseDecimalOrZero(stats.Volume),
		Time:    time.UnixMilli(stats.CloseTime),
	}
}

func convertPriceLevel(price, quantity string) types.PriceLevel {
	return types.PriceLevel{
		Price:      types.ParseDecimalOrZero(price),
		Size:       types.ParseDecimalOrZero(quantity),
		OrderCount: 0, // Binance aggregates without order counts
	}
}

// convertBinanceOrder converts a Binance order to our Order type.
func convertBinanceOrder(bo *binance.Order) types.Order {
	var side types.Side

	switch bo.Side {
	case binance.SideTypeBuy:
		side = types.SideBuy
	case binance.SideTypeSell:
		side = types.SideSell
	default:
		side = types.Side(bo.Side)
	}

	var orderType types.OrderType

	switch bo.Type {
	case binance.OrderTypeMarket:
		orderType = types.OrderTypeMarket
	case binance.OrderTypeLimit, binance.OrderTypeLimitMaker:
		orderType = types.OrderTypeLimit
	default:
		orderType = types.OrderTypeOther
	}

	return types.Order{
		ID:         strconv.FormatInt(bo.OrderID, 10),
		Product:    bo.Symbol,
		Side:       side,
		Type:       orderType,
		Price:      types.ParseDecimalOrZero(bo.Price),
		Size:       types.ParseDecimalOrZero(bo.OrigQuantity),
		FilledSize: types.ParseDecimalOrZero(bo.ExecutedQuantity),
		Status:     string(bo.Status),
		CreatedAt:  time.UnixMilli(bo.Time),
	}
}

// Ensure BinanceClient implements Client.
var _ Client = (*BinanceClient)(nil)
