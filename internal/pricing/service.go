package pricing

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/brokerdesk/internal/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Instruments looks up catalog entries
type Instruments interface {
	GetBySymbol(symbol string) (*models.Instrument, error)
	List(activeOnly bool) ([]models.Instrument, error)
}

// Service answers quote requests from memory, then the shared cache, then
// the REST provider. Crypto quotes only come from the stream.
type Service struct {
	instruments Instruments
	cache       Cache
	rest        Provider
	stream      *BinanceStream
	staleAfter  time.Duration
	logger      *zap.Logger
	now         func() time.Time

	quotes    map[string]Quote
	quotesMux sync.RWMutex
}

// Option configures optional collaborators
type Option func(*Service)

func WithCache(c Cache) Option {
	return func(s *Service) { s.cache = c }
}

func WithREST(p Provider) Option {
	return func(s *Service) { s.rest = p }
}

func WithStream(b *BinanceStream) Option {
	return func(s *Service) { s.stream = b }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a new pricing Service
func NewService(instruments Instruments, staleAfter time.Duration, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		instruments: instruments,
		staleAfter:  staleAfter,
		logger:      logger,
		now:         time.Now,
		quotes:      make(map[string]Quote),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.stream != nil {
		s.stream.SetHandler(s.OnQuote)
	}
	return s
}

// Start connects the stream and subscribes every active crypto instrument
func (s *Service) Start(ctx context.Context) error {
	if s.stream == nil {
		return nil
	}
	if err := s.stream.Connect(ctx); err != nil {
		return err
	}

	insts, err := s.instruments.List(true)
	if err != nil {
		return err
	}
	var symbols []string
	for _, inst := range insts {
		if inst.Segment == models.SegmentCrypto {
			symbols = append(symbols, inst.Symbol)
		}
	}
	if len(symbols) == 0 {
		return nil
	}
	return s.stream.Subscribe(symbols)
}

// Stop closes the stream
func (s *Service) Stop() {
	if s.stream != nil {
		_ = s.stream.Close()
	}
}

// OnQuote records a streamed or fetched quote
func (s *Service) OnQuote(q Quote) {
	if err := q.Validate(); err != nil {
		s.logger.Warn("dropping quote", zap.String("symbol", q.Symbol), zap.Error(err))
		return
	}

	s.quotesMux.Lock()
	s.quotes[q.Symbol] = q
	s.quotesMux.Unlock()

	if s.cache != nil {
		if err := s.cache.Put(context.Background(), q); err != nil {
			s.logger.Warn("cache quote", zap.String("symbol", q.Symbol), zap.Error(err))
		}
	}
}

func (s *Service) fresh(q Quote) bool {
	return s.now().Sub(q.Time) <= s.staleAfter
}

// GetQuote returns a fresh quote for symbol or an error wrapping
// ErrQuoteUnavailable. It never returns a zero price.
func (s *Service) GetQuote(ctx context.Context, symbol string) (Quote, error) {
	s.quotesMux.RLock()
	q, ok := s.quotes[symbol]
	s.quotesMux.RUnlock()
	if ok && s.fresh(q) {
		return q, nil
	}

	if s.cache != nil {
		if q, err := s.cache.Get(ctx, symbol); err == nil && s.fresh(q) && q.Validate() == nil {
			s.quotesMux.Lock()
			s.quotes[symbol] = q
			s.quotesMux.Unlock()
			return q, nil
		}
	}

	inst, err := s.instruments.GetBySymbol(symbol)
	if err != nil {
		return Quote{}, fmt.Errorf("%w: %s: %v", ErrQuoteUnavailable, symbol, err)
	}
	if inst.Segment == models.SegmentCrypto || s.rest == nil {
		return Quote{}, fmt.Errorf("%w: no fresh quote for %s", ErrQuoteUnavailable, symbol)
	}

	q, err = s.rest.Quote(ctx, symbol)
	if err != nil {
		if errors.Is(err, ErrQuoteUnavailable) {
			return Quote{}, err
		}
		return Quote{}, fmt.Errorf("%w: %s: %v", ErrQuoteUnavailable, symbol, err)
	}
	if err := q.Validate(); err != nil {
		return Quote{}, err
	}
	if !s.fresh(q) {
		return Quote{}, fmt.Errorf("%w: %s quote is stale (%s)", ErrQuoteUnavailable, symbol, q.Time.Format(time.RFC3339))
	}
	s.OnQuote(q)
	return q, nil
}

// PointValuePerLot is pointSize × contractSize of the instrument
func (s *Service) PointValuePerLot(symbol string) (decimal.Decimal, error) {
	inst, err := s.instruments.GetBySymbol(symbol)
	if err != nil {
		return decimal.Zero, err
	}
	return inst.PointValuePerLot(), nil
}

// Snapshot returns the fresh quotes held in memory, sorted by symbol
func (s *Service) Snapshot() []Quote {
	s.quotesMux.RLock()
	defer s.quotesMux.RUnlock()

	out := make([]Quote, 0, len(s.quotes))
	for _, q := range s.quotes {
		if s.fresh(q) {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Connected reports the stream state. Without a stream it is always true.
func (s *Service) Connected() bool {
	if s.stream == nil {
		return true
	}
	return s.stream.IsConnected()
}
