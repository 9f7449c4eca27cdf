package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	pingInterval         = 30 * time.Second
	defaultReconnect     = 5 * time.Second
	maxReconnectAttempts = 10
)

// BinanceStream receives bookTicker updates from the Binance spot stream.
// Instrument symbols quoted in USD are mapped to their USDT pair.
type BinanceStream struct {
	wsURL       string
	conn        *websocket.Conn
	connMux     sync.RWMutex
	writeMux    sync.Mutex
	isConnected bool

	handler    func(Quote)
	handlerMux sync.RWMutex

	// exchange symbol -> instrument symbol
	subscribed    map[string]string
	subscribedMux sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	reconnectDelay    time.Duration
	reconnectAttempts int
	logger            *zap.Logger
}

// NewBinanceStream creates a stream client for wsURL
func NewBinanceStream(wsURL string, logger *zap.Logger) *BinanceStream {
	return &BinanceStream{
		wsURL:          wsURL,
		subscribed:     make(map[string]string),
		reconnectDelay: defaultReconnect,
		logger:         logger,
	}
}

// SetHandler sets the callback invoked for each quote
func (b *BinanceStream) SetHandler(h func(Quote)) {
	b.handlerMux.Lock()
	defer b.handlerMux.Unlock()
	b.handler = h
}

// IsConnected returns whether the WebSocket is connected
func (b *BinanceStream) IsConnected() bool {
	b.connMux.RLock()
	defer b.connMux.RUnlock()
	return b.isConnected
}

// Connect dials the stream and starts the read and ping loops
func (b *BinanceStream) Connect(ctx context.Context) error {
	b.ctx, b.cancel = context.WithCancel(ctx)

	if err := b.connect(); err != nil {
		return err
	}

	b.wg.Add(2)
	go b.messageLoop()
	go b.pingLoop()
	return nil
}

func (b *BinanceStream) connect() error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(b.ctx, b.wsURL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to Binance WebSocket: %w", err)
	}

	b.connMux.Lock()
	b.conn = conn
	b.isConnected = true
	b.reconnectAttempts = 0
	b.connMux.Unlock()

	b.logger.Info("binance stream connected", zap.String("url", b.wsURL))

	b.subscribedMux.RLock()
	streams := make([]string, 0, len(b.subscribed))
	for pair := range b.subscribed {
		streams = append(streams, pair)
	}
	b.subscribedMux.RUnlock()

	if len(streams) > 0 {
		return b.send("SUBSCRIBE", streams)
	}
	return nil
}

// ExchangeSymbol maps an instrument symbol to its Binance pair
func ExchangeSymbol(symbol string) string {
	s := strings.ToUpper(symbol)
	if strings.HasSuffix(s, "USD") {
		return s + "T"
	}
	return s
}

// Subscribe starts bookTicker streams for instrument symbols
func (b *BinanceStream) Subscribe(symbols []string) error {
	pairs := make([]string, 0, len(symbols))
	b.subscribedMux.Lock()
	for _, symbol := range symbols {
		pair := ExchangeSymbol(symbol)
		b.subscribed[pair] = strings.ToUpper(symbol)
		pairs = append(pairs, pair)
	}
	b.subscribedMux.Unlock()

	if !b.IsConnected() {
		return errors.New("not connected")
	}
	if err := b.send("SUBSCRIBE", pairs); err != nil {
		return err
	}
	b.logger.Info("binance stream subscribed", zap.Int("symbols", len(pairs)))
	return nil
}

func (b *BinanceStream) send(method string, pairs []string) error {
	streams := make([]string, len(pairs))
	for i, pair := range pairs {
		streams[i] = strings.ToLower(pair) + "@bookTicker"
	}

	msg := map[string]interface{}{
		"method": method,
		"params": streams,
		"id":     time.Now().UnixNano(),
	}

	b.connMux.RLock()
	conn := b.conn
	b.connMux.RUnlock()
	if conn == nil {
		return errors.New("not connected")
	}

	b.writeMux.Lock()
	defer b.writeMux.Unlock()
	if err := conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("failed to %s: %w", strings.ToLower(method), err)
	}
	return nil
}

func (b *BinanceStream) messageLoop() {
	defer b.wg.Done()

	for {
		select {
		case <-b.ctx.Done():
			return
		default:
		}

		b.connMux.RLock()
		conn := b.conn
		b.connMux.RUnlock()

		if conn == nil {
			if !b.reconnect() {
				return
			}
			continue
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				b.logger.Warn("binance stream error", zap.Error(err))
			}
			b.dropConn()
			continue
		}

		b.handleMessage(message)
	}
}

func (b *BinanceStream) handleMessage(message []byte) {
	q, ok := parseBookTicker(message, time.Now())
	if !ok {
		return
	}

	b.subscribedMux.RLock()
	symbol, known := b.subscribed[q.Symbol]
	b.subscribedMux.RUnlock()
	if !known {
		return
	}
	q.Symbol = symbol

	b.handlerMux.RLock()
	h := b.handler
	b.handlerMux.RUnlock()
	if h != nil {
		h(q)
	}
}

// bookTicker names the quantity keys so the case-insensitive field match in
// encoding/json cannot land "B" and "A" on the prices.
type bookTicker struct {
	Symbol string          `json:"s"`
	Bid    decimal.Decimal `json:"b"`
	BidQty decimal.Decimal `json:"B"`
	Ask    decimal.Decimal `json:"a"`
	AskQty decimal.Decimal `json:"A"`
}

// parseBookTicker accepts both raw and combined-stream payloads. Symbol is
// left as the exchange pair.
func parseBookTicker(message []byte, now time.Time) (Quote, bool) {
	var envelope struct {
		Stream string          `json:"stream"`
		Data   json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(message, &envelope); err == nil && len(envelope.Data) > 0 {
		message = envelope.Data
	}

	var t bookTicker
	if err := json.Unmarshal(message, &t); err != nil || t.Symbol == "" {
		return Quote{}, false
	}
	return Quote{Symbol: t.Symbol, Bid: t.Bid, Ask: t.Ask, Time: now}, true
}

func (b *BinanceStream) dropConn() {
	b.connMux.Lock()
	b.isConnected = false
	if b.conn != nil {
		b.conn.Close()
		b.conn = nil
	}
	b.connMux.Unlock()
}

// reconnect retries the dial until it succeeds, the context ends or the
// attempt budget runs out
func (b *BinanceStream) reconnect() bool {
	for b.reconnectAttempts < maxReconnectAttempts {
		select {
		case <-b.ctx.Done():
			return false
		case <-time.After(b.reconnectDelay):
		}

		b.reconnectAttempts++
		b.logger.Info("binance stream reconnecting",
			zap.Int("attempt", b.reconnectAttempts),
			zap.Int("max", maxReconnectAttempts))

		if err := b.connect(); err != nil {
			b.logger.Warn("binance stream reconnect failed", zap.Error(err))
			continue
		}
		return true
	}

	b.logger.Error("binance stream gave up reconnecting")
	return false
}

func (b *BinanceStream) pingLoop() {
	defer b.wg.Done()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.ctx.Done():
			return
		case <-ticker.C:
			b.connMux.RLock()
			conn := b.conn
			b.connMux.RUnlock()
			if conn == nil {
				continue
			}

			b.writeMux.Lock()
			err := conn.WriteMessage(websocket.PongMessage, nil)
			b.writeMux.Unlock()
			if err != nil {
				b.logger.Warn("binance stream ping failed", zap.Error(err))
			}
		}
	}
}

// Close stops the loops and closes the connection
func (b *BinanceStream) Close() error {
	if b.cancel != nil {
		b.cancel()
	}
	b.dropConn()
	b.wg.Wait()

	b.logger.Info("binance stream closed")
	return nil
}
