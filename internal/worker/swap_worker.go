package worker

import (
	"context"
	"errors"
	"time"

	"github.com/brokerdesk/internal/economics"
	"github.com/brokerdesk/internal/service"
	"go.uber.org/zap"
)

// SwapWorker accrues one night of swap on every open trade once a day at the
// rollover hour.
type SwapWorker struct {
	desk     TradeDesk
	hour     int
	interval time.Duration
	now      func() time.Time
	logger   *zap.Logger
	lastRun  string
	stopChan chan struct{}
}

// NewSwapWorker creates a worker rolling over at hour (UTC)
func NewSwapWorker(desk TradeDesk, hour int, logger *zap.Logger) *SwapWorker {
	return &SwapWorker{
		desk:     desk,
		hour:     hour,
		interval: time.Minute,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start runs the rollover loop until Stop is called or ctx is done
func (w *SwapWorker) Start(ctx context.Context) {
	w.logger.Info("swap worker started", zap.Int("rollover_hour", w.hour))
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.Tick(ctx)
		case <-ctx.Done():
			w.logger.Info("swap worker stopped")
			return
		case <-w.stopChan:
			w.logger.Info("swap worker stopped")
			return
		}
	}
}

// Stop stops the rollover loop
func (w *SwapWorker) Stop() {
	close(w.stopChan)
}

// Tick rolls over when the rollover hour is reached and today has not run yet
func (w *SwapWorker) Tick(ctx context.Context) {
	now := w.now()
	day := now.Format("2006-01-02")
	if now.Hour() != w.hour || w.lastRun == day {
		return
	}
	w.lastRun = day
	w.Rollover(ctx, now)
}

// Rollover accrues one night on every open trade not yet charged today and
// returns how many trades were charged.
func (w *SwapWorker) Rollover(ctx context.Context, now time.Time) int {
	trades, err := w.desk.ByStatus(economics.StatusOpen)
	if err != nil {
		w.logger.Error("list open trades", zap.Error(err))
		return 0
	}

	charged := 0
	for i := range trades {
		t := &trades[i]
		if t.LastSwapAt != nil && sameDay(*t.LastSwapAt, now) {
			continue
		}
		_, err := w.desk.AccrueSwap(ctx, t, 1)
		switch {
		case errors.Is(err, service.ErrNoSwapRule):
			continue
		case err != nil:
			w.logger.Error("accrue swap", zap.Uint("trade_id", t.ID), zap.Error(err))
			continue
		}
		charged++
	}
	w.logger.Info("swap rollover done", zap.Int("open_trades", len(trades)), zap.Int("charged", charged))
	return charged
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
