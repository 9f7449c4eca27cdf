package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestKafkaPublisher(t *testing.T) {
	w := &fakeWriter{}
	p := NewKafkaPublisher(w, zap.NewNop())

	err := p.Publish(context.Background(),
		New(TradeClosed, "01HTRADE", map[string]string{"realizedPnl": "1000"}),
		New(WalletTransaction, "DEP-1", nil),
	)
	require.NoError(t, err)
	require.Len(t, w.msgs, 2)

	assert.Equal(t, "01HTRADE", string(w.msgs[0].Key))
	assert.Equal(t, "trade.closed", string(w.msgs[0].Headers[0].Value))

	var got Event
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	assert.Equal(t, TradeClosed, got.Type)
	assert.Equal(t, map[string]interface{}{"realizedPnl": "1000"}, got.Payload)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestKafkaPublisherError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	p := NewKafkaPublisher(w, zap.NewNop())

	err := p.Publish(context.Background(), New(TradeOpened, "x", nil))
	assert.EqualError(t, err, "broker down")
	assert.NoError(t, p.Publish(context.Background()))
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	require.NoError(t, r.Publish(context.Background(), New(TradeOpened, "a", nil), New(TradeClosed, "a", nil)))

	assert.Len(t, r.Events(), 2)
	assert.Len(t, r.OfType(TradeClosed), 1)
	assert.Empty(t, r.OfType(TradeCancelled))
}
