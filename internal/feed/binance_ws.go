package feed

import (
	"github.com/adshao/go-binance/v2"
)

// BinanceWsPriceLevel is one price level of a depth event.
type BinanceWsPriceLevel struct {
	Price    string
	Quantity string
}

// BinanceWsDepthEvent represents a partial book depth update.
type BinanceWsDepthEvent struct {
	Symbol       string
	LastUpdateID int64
	Bids         []BinanceWsPriceLevel
	Asks         []BinanceWsPriceLevel
}

// BinanceWsTradeEvent represents a single trade.
type BinanceWsTradeEvent struct {
	Symbol    string
	TradeID   int64
	Price     string
	Quantity  string
	TradeTime int64
}

// WsDepthHandler handles depth events.
type WsDepthHandler func(event *BinanceWsDepthEvent)

// WsTradeHandler handles trade events.
type WsTradeHandler func(event *BinanceWsTradeEvent)

// WsErrorHandler handles stream errors.
type WsErrorHandler func(err error)

// BinanceWebSocketService abstracts the Binance websocket streams for testing.
// Both methods return a done channel closed when the stream ends and a stop channel
// the caller closes to end it.
type BinanceWebSocketService interface {
	WsPartialDepthServe(
		symbol string,
		levels string,
		handler WsDepthHandler,
		errHandler WsErrorHandler,
	) (doneC chan struct{}, stopC chan struct{}, err error)
	WsTradeServe(
		symbol string,
		handler WsTradeHandler,
		errHandler WsErrorHandler,
	) (doneC chan struct{}, stopC chan struct{}, err error)
}

// realBinanceWebSocketService forwards to the go-binance package level stream functions.
type realBinanceWebSocketService struct{}

// NewBinanceWebSocketService returns the production websocket service.
// Testnet endpoints are selected through binance.UseTestnet, which the exchange client sets.
func NewBinanceWebSocketService() BinanceWebSocketService {
	return realBinanceWebSocketService{}
}

func (realBinanceWebSocketService) WsPartialDepthServe(
	symbol string,
	levels string,
	handler WsDepthHandler,
	errHandler WsErrorHandler,
) (chan struct{}, chan struct{}, error) {
	return binance.WsPartialDepthServe100Ms(symbol, levels, func(event *binance.WsPartialDepthEvent) {
		handler(convertWsDepthEvent(event))
	}, binance.ErrHandler(errHandler))
}

func (realBinanceWebSocketService) WsTradeServe(
	symbol string,
	handler WsTradeHandler,
	errHandler WsErrorHandler,
) (chan struct{}, chan struct{}, error) {
	return binance.WsTradeServe(symbol, func(event *binance.WsTradeEvent) {
		handler(convertWsTradeEvent(event))
	}, binance.ErrHandler(errHandler))
}

func convertWsDepthEvent(event *binance.WsPartialDepthEvent) *BinanceWsDepthEvent {
	if event == nil {
		return nil
	}

	converted := &BinanceWsDepthEvent{
		Symbol:       event.Symbol,
		LastUpdateID: event.LastUpdateID,
		Bids:         make([]BinanceWsPriceLevel, 0, len(event.Bids)),
		Asks:         make([]BinanceWsPriceLevel, 0, len(event.Asks)),
	}

	for _, bid := range event.Bids {
		converted.Bids = append(converted.Bids, BinanceWsPriceLevel{Price: bid.Price, Quantity: bid.Quantity})
	}

	for _, ask := range event.Asks {
		converted.Asks = append(converted.Asks, BinanceWsPriceLevel{Price: ask.Price, Quantity: ask.Quantity})
	}

	return converted
}

func convertWsTradeEvent(event *binance.WsTradeEvent) *BinanceWsTradeEvent {
	if event == nil {
		return nil
	}

	return &BinanceWsTradeEvent{
		Symbol:    event.Symbol,
		TradeID:   event.TradeID,
		Price:     event.Price,
		Quantity:  event.Quantity,
		TradeTime: event.TradeTime,
	}
}
