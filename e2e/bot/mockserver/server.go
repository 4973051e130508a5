// Package mockserver provides a mock Binance server for testing.
// It serves the REST endpoints and websocket streams the bot consumes.
package mockserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-bot/internal/types"
	"github.com/rxtech-lab/argo-bot/mocks"
	"github.com/shopspring/decimal"
)

const (
	// unknownOrderCode is what Binance answers for a cancel of an order it does not know.
	unknownOrderCode   = -2011
	internalErrCode    = -1001
	malformedParamCode = -1100
	mandatoryParamCode = -1102
	invalidSymbolCode  = -1121
)

// ServerConfig holds configuration for the mock server.
type ServerConfig struct {
	// Product is the only symbol the server quotes
	Product string
	// InitialPrice seeds the random walk
	InitialPrice float64
	// Levels is the number of book levels per side
	Levels int
	// Seed makes the generated market reproducible
	Seed uint64
	// StreamInterval is the interval between websocket events
	StreamInterval time.Duration
}

// MockBinanceServer provides a mock Binance server for testing.
type MockBinanceServer struct {
	mu sync.RWMutex

	httpServer *http.Server
	listener   net.Listener
	upgrader   websocket.Upgrader

	product     string
	price       float64
	sequence    int64
	tradeID     int64
	fixedBook   optional.Option[types.OrderBook]
	orders      []types.Order
	orderIDSeq  int64
	failCancels bool
	cancelCalls int

	generator *mocks.DataGenerator
	genConfig mocks.GeneratorConfig

	wsConnections map[*websocket.Conn]bool
	wsMu          sync.Mutex

	streamInterval time.Duration
	stopStreaming  chan struct{}
	stopOnce       sync.Once
}

// NewMockBinanceServer creates a new mock Binance server.
func NewMockBinanceServer(config ServerConfig) *MockBinanceServer {
	genConfig := mocks.DefaultConfig()

	if config.Product != "" {
		genConfig.Product = config.Product
	}

	if config.InitialPrice > 0 {
		genConfig.InitialPrice = config.InitialPrice
	}

	if config.Levels > 0 {
		genConfig.Levels = config.Levels
	}

	genConfig.Count = 1

	streamInterval := config.StreamInterval
	if streamInterval == 0 {
		streamInterval = 100 * time.Millisecond
	}

	return &MockBinanceServer{
		mu:         sync.RWMutex{},
		httpServer: nil,
		listener:   nil,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(_ *http.Request) bool { return true },
		},
		product:        genConfig.Product,
		price:          genConfig.InitialPrice,
		sequence:       1,
		tradeID:        1,
		fixedBook:      optional.None[types.OrderBook](),
		orders:         make([]types.Order, 0),
		orderIDSeq:     1000,
		failCancels:    false,
		cancelCalls:    0,
		generator:      mocks.NewDataGenerator(config.Seed),
		genConfig:      genConfig,
		wsConnections:  make(map[*websocket.Conn]bool),
		wsMu:           sync.Mutex{},
		streamInterval: streamInterval,
		stopStreaming:  make(chan struct{}),
		stopOnce:       sync.Once{},
	}
}

// Start starts the mock server on the given address.
// If address is empty or ":0", a random available port is used.
func (s *MockBinanceServer) Start(address string) error {
	if address == "" {
		address = ":0"
	}

	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}

	s.listener = listener

	router := mux.NewRouter()

	router.HandleFunc("/api/v3/ticker/24hr", s.handleTicker).Methods("GET")
	router.HandleFunc("/api/v3/depth", s.handleDepth).Methods("GET")
	router.HandleFunc("/api/v3/openOrders", s.handleOpenOrders).Methods("GET")
	router.HandleFunc("/api/v3/openOrders", s.handleCancelAllOrders).Methods("DELETE")
	router.HandleFunc("/api/v3/order", s.handleCancelOrder).Methods("DELETE")

	router.HandleFunc("/ws/{stream}", s.handleWebSocket)

	s.httpServer = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != http.ErrServerClosed {
			fmt.Printf("HTTP server error: %v\n", err)
		}
	}()

	return nil
}

// Stop stops the mock server.
func (s *MockBinanceServer) Stop() error {
	s.stopOnce.Do(func() { close(s.stopStreaming) })
	s.DropConnections()

	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		return s.httpServer.Shutdown(ctx)
	}

	return nil
}

// DropConnections closes every open websocket, as a venue-side disconnect would.
func (s *MockBinanceServer) DropConnections() {
	s.wsMu.Lock()
	defer s.wsMu.Unlock()

	for conn := range s.wsConnections {
		conn.Close()
	}

	s.wsConnections = make(map[*websocket.Conn]bool)
}

// Connections returns the number of open websockets.
func (s *MockBinanceServer) Connections() int {
	s.wsMu.Lock()
	defer s.wsMu.Unlock()

	return len(s.wsConnections)
}

// Address returns the address the server is listening on.
func (s *MockBinanceServer) Address() string {
	if s.listener == nil {
		return ""
	}

	return s.listener.Addr().String()
}

// BaseURL returns the REST base URL for the server.
func (s *MockBinanceServer) BaseURL() string {
	return "http://" + s.Address()
}

// WebSocketURL returns the websocket base URL, including the /ws prefix.
func (s *MockBinanceServer) WebSocketURL() string {
	return "ws://" + s.Address() + "/ws"
}

// SetPrice sets the last trade price.
func (s *MockBinanceServer) SetPrice(price float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.price = price
}

// Price returns the last trade price.
func (s *MockBinanceServer) Price() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.price
}

// SetOrderBook pins the book served by REST and streamed over websocket.
func (s *MockBinanceServer) SetOrderBook(book types.OrderBook) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.fixedBook = optional.Some(book)
}

// AddOrder rests a new limit order and returns its id.
func (s *MockBinanceServer) AddOrder(side types.Side, price, size float64) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.orderIDSeq++
	id := strconv.FormatInt(s.orderIDSeq, 10)

	s.orders = append(s.orders, types.Order{
		ID:         id,
		Product:    s.product,
		Side:       side,
		Type:       types.OrderTypeLimit,
		Price:      decimal.NewFromFloat(price),
		Size:       decimal.NewFromFloat(size),
		FilledSize: decimal.Zero,
		Status:     "NEW",
		CreatedAt:  time.Now(),
	})

	return id
}

// OpenOrders returns the resting orders in placement order.
func (s *MockBinanceServer) OpenOrders() []types.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.orders)
}

// SetFailCancelAll makes cancel-all answer with an internal error.
func (s *MockBinanceServer) SetFailCancelAll(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failCancels = fail
}

// CancelAllCalls returns how many cancel-all requests were received.
func (s *MockBinanceServer) CancelAllCalls() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.cancelCalls
}

// REST handlers

// handleTicker handles GET /api/v3/ticker/24hr
func (s *MockBinanceServer) handleTicker(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	if symbol != "" && symbol != s.product {
		writeAPIError(w, http.StatusBadRequest, invalidSymbolCode, "Invalid symbol.")

		return
	}

	s.mu.Lock()
	book := s.currentBookLocked()
	price := s.price
	s.mu.Unlock()

	bid, ask := "0.00000000", "0.00000000"
	if level, err := book.BestBid().Take(); err == nil {
		bid = level.Price.StringFixed(8)
	}

	if level, err := book.BestAsk().Take(); err == nil {
		ask = level.Price.StringFixed(8)
	}

	writeJSON(w, map[string]interface{}{
		"symbol":    s.product,
		"lastPrice": strconv.FormatFloat(price, 'f', 8, 64),
		"lastQty":   "0.01000000",
		"bidPrice":  bid,
		"askPrice":  ask,
		"volume":    "1000.00000000",
		"openTime":  time.Now().Add(-24 * time.Hour).UnixMilli(),
		"closeTime": time.Now().UnixMilli(),
	})
}

// handleDepth handles GET /api/v3/depth
func (s *MockBinanceServer) handleDepth(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("symbol") != s.product {
		writeAPIError(w, http.StatusBadRequest, invalidSymbolCode, "Invalid symbol.")

		return
	}

	s.mu.Lock()
	book := s.currentBookLocked()
	s.mu.Unlock()

	writeJSON(w, depthPayload(book))
}

// handleOpenOrders handles GET /api/v3/openOrders
func (s *MockBinanceServer) handleOpenOrders(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	openOrders := make([]map[string]interface{}, 0, len(s.orders))
	for _, order := range s.orders {
		openOrders = append(openOrders, orderPayload(order))
	}

	writeJSON(w, openOrders)
}

// handleCancelOrder handles DELETE /api/v3/order
func (s *MockBinanceServer) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	params, ok := s.cancelParams(w, r)
	if !ok {
		return
	}

	orderID := params.Get("orderId")
	if orderID == "" {
		writeAPIError(w, http.StatusBadRequest, mandatoryParamCode, "Mandatory parameter 'orderId' was not sent.")

		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := slices.IndexFunc(s.orders, func(o types.Order) bool { return o.ID == orderID })
	if idx < 0 {
		writeAPIError(w, http.StatusBadRequest, unknownOrderCode, "Unknown order sent.")

		return
	}

	order := s.orders[idx]
	order.Status = "CANCELED"
	s.orders = slices.Delete(s.orders, idx, idx+1)

	writeJSON(w, orderPayload(order))
}

// handleCancelAllOrders handles DELETE /api/v3/openOrders
func (s *MockBinanceServer) handleCancelAllOrders(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.cancelParams(w, r); !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelCalls++

	if s.failCancels {
		writeAPIError(w, http.StatusInternalServerError, internalErrCode, "Internal error; unable to process your request.")

		return
	}

	if len(s.orders) == 0 {
		writeAPIError(w, http.StatusBadRequest, unknownOrderCode, "Unknown order sent.")

		return
	}

	canceled := make([]map[string]interface{}, 0, len(s.orders))
	for _, order := range s.orders {
		order.Status = "CANCELED"
		canceled = append(canceled, orderPayload(order))
	}

	s.orders = s.orders[:0]

	writeJSON(w, canceled)
}

// requestParams merges the query string with a form-encoded body. Signed DELETE
// requests from go-binance carry their parameters in the body, which
// http.Request.ParseForm only reads for POST, PUT and PATCH.
func requestParams(r *http.Request) (url.Values, error) {
	params := r.URL.Query()

	if r.Body == nil {
		return params, nil
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}

	form, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, err
	}

	for key, values := range form {
		for _, value := range values {
			params.Add(key, value)
		}
	}

	return params, nil
}

// cancelParams reads the parameters of a cancel request and checks its symbol. It
// writes the error response and returns false when the request is rejected.
func (s *MockBinanceServer) cancelParams(w http.ResponseWriter, r *http.Request) (url.Values, bool) {
	params, err := requestParams(r)
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, malformedParamCode, "Illegal characters found in a parameter.")

		return nil, false
	}

	symbol := params.Get("symbol")
	if symbol == "" {
		writeAPIError(w, http.StatusBadRequest, mandatoryParamCode, "Mandatory parameter 'symbol' was not sent.")

		return nil, false
	}

	if !strings.EqualFold(symbol, s.product) {
		writeAPIError(w, http.StatusBadRequest, invalidSymbolCode, "Invalid symbol.")

		return nil, false
	}

	return params, true
}

// WebSocket handlers

// handleWebSocket serves <symbol>@depth<levels>@100ms and <symbol>@trade streams.
func (s *MockBinanceServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	stream := mux.Vars(r)["stream"]

	symbol, kind, ok := strings.Cut(stream, "@")
	if !ok || !strings.EqualFold(symbol, s.product) {
		http.Error(w, "Invalid WebSocket path", http.StatusBadRequest)

		return
	}

	var next func() interface{}

	switch {
	case kind == "trade":
		next = s.nextTradeEvent
	case strings.HasPrefix(kind, "depth"):
		next = s.nextDepthEvent
	default:
		http.Error(w, "Unsupported stream", http.StatusBadRequest)

		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	s.wsMu.Lock()
	s.wsConnections[conn] = true
	s.wsMu.Unlock()

	defer func() {
		s.wsMu.Lock()
		delete(s.wsConnections, conn)
		s.wsMu.Unlock()
		conn.Close()
	}()

	s.stream(conn, next)
}

func (s *MockBinanceServer) stream(conn *websocket.Conn, next func() interface{}) {
	ticker := time.NewTicker(s.streamInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopStreaming:
			return
		case <-ticker.C:
			if err := conn.WriteJSON(next()); err != nil {
				return
			}
		}
	}
}

func (s *MockBinanceServer) nextDepthEvent() interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	return depthPayload(s.currentBookLocked())
}

func (s *MockBinanceServer) nextTradeEvent() interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.genConfig.InitialPrice = s.price
	tick := s.generator.GenerateTickers(s.genConfig)[0]

	s.price = tick.Price.InexactFloat64()
	s.tradeID++
	now := time.Now().UnixMilli()

	return map[string]interface{}{
		"e": "trade",
		"E": now,
		"s": s.product,
		"t": s.tradeID,
		"p": tick.Price.StringFixed(8),
		"q": tick.Size.StringFixed(8),
		"T": now,
		"m": false,
		"M": true,
	}
}

// currentBookLocked returns the pinned book or a fresh one around the last price.
// Callers hold s.mu.
func (s *MockBinanceServer) currentBookLocked() types.OrderBook {
	s.sequence++

	if book, err := s.fixedBook.Take(); err == nil {
		book.Sequence = s.sequence

		return book
	}

	return s.generator.GenerateOrderBook(s.genConfig, s.price, s.sequence)
}

func depthPayload(book types.OrderBook) map[string]interface{} {
	return map[string]interface{}{
		"lastUpdateId": book.Sequence,
		"bids":         levelsPayload(book.Bids),
		"asks":         levelsPayload(book.Asks),
	}
}

func levelsPayload(levels []types.PriceLevel) [][]string {
	out := make([][]string, 0, len(levels))
	for _, level := range levels {
		out = append(out, []string{level.Price.StringFixed(8), level.Size.StringFixed(8)})
	}

	return out
}

func orderPayload(order types.Order) map[string]interface{} {
	id, _ := strconv.ParseInt(order.ID, 10, 64)

	return map[string]interface{}{
		"symbol":              order.Product,
		"orderId":             id,
		"orderListId":         -1,
		"clientOrderId":       "",
		"price":               order.Price.StringFixed(8),
		"origQty":             order.Size.StringFixed(8),
		"executedQty":         order.FilledSize.StringFixed(8),
		"cummulativeQuoteQty": "0.00000000",
		"status":              order.Status,
		"timeInForce":         "GTC",
		"type":                string(order.Type),
		"side":                string(order.Side),
		"time":                order.CreatedAt.UnixMilli(),
		"updateTime":          order.CreatedAt.UnixMilli(),
		"isWorking":           true,
		"origQuoteOrderQty":   "0.00000000",
	}
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payload)
}

func writeAPIError(w http.ResponseWriter, status int, code int64, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"code": code,
		"msg":  msg,
	})
}
