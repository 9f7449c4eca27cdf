package pricing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseBookTicker(t *testing.T) {
	ts := time.Unix(1700000000, 0)
	tests := []struct {
		name   string
		msg    string
		ok     bool
		symbol string
		bid    string
		ask    string
	}{
		{"raw", `{"u":1,"s":"BTCUSDT","b":"60000.10","B":"1.5","a":"60000.20","A":"2.25"}`, true, "BTCUSDT", "60000.1", "60000.2"},
		{"combined", `{"stream":"ethusdt@bookTicker","data":{"u":2,"s":"ETHUSDT","b":"3000","B":"7","a":"3000.5","A":"9"}}`, true, "ETHUSDT", "3000", "3000.5"},
		{"quantities before prices", `{"u":3,"s":"SOLUSDT","B":"40","A":"50","b":"150.1","a":"150.2"}`, true, "SOLUSDT", "150.1", "150.2"},
		{"subscribe ack", `{"result":null,"id":1}`, false, "", "", ""},
		{"garbage", `not json`, false, "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, ok := parseBookTicker([]byte(tt.msg), ts)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.symbol, q.Symbol)
				assert.True(t, d(tt.bid).Equal(q.Bid), "bid %s", q.Bid)
				assert.True(t, d(tt.ask).Equal(q.Ask), "ask %s", q.Ask)
				assert.Equal(t, ts, q.Time)
			}
		})
	}
}

func TestExchangeSymbol(t *testing.T) {
	assert.Equal(t, "BTCUSDT", ExchangeSymbol("btcusd"))
	assert.Equal(t, "ETHBTC", ExchangeSymbol("ETHBTC"))
}

func TestBinanceStreamDeliversQuotes(t *testing.T) {
	upgrader := websocket.Upgrader{}
	subscribed := make(chan []string, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var req struct {
			Method string   `json:"method"`
			Params []string `json:"params"`
		}
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		subscribed <- req.Params

		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"result":null,"id":1}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"s":"DOGEUSDT","b":"0.1","a":"0.2"}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"s":"BTCUSDT","b":"60000","a":"60005"}`))

		// keep the connection open until the client goes away
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	quotes := make(chan Quote, 4)
	stream := NewBinanceStream("ws"+strings.TrimPrefix(server.URL, "http"), zap.NewNop())
	stream.SetHandler(func(q Quote) { quotes <- q })

	require.NoError(t, stream.Connect(context.Background()))
	defer stream.Close()
	assert.True(t, stream.IsConnected())

	require.NoError(t, stream.Subscribe([]string{"BTCUSD"}))

	select {
	case params := <-subscribed:
		assert.Equal(t, []string{"btcusdt@bookTicker"}, params)
	case <-time.After(2 * time.Second):
		t.Fatal("no subscription received")
	}

	select {
	case q := <-quotes:
		assert.Equal(t, "BTCUSD", q.Symbol)
		assert.True(t, d("60005").Equal(q.Ask))
	case <-time.After(2 * time.Second):
		t.Fatal("no quote received")
	}
}
