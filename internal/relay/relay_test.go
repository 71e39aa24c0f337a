package relay

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) (*Hub, string) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	h := NewHub()
	go h.Run(ctx)
	srv := httptest.NewServer(h)
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return h, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?type=signal"
}

func dial(t *testing.T, url string) *Client {
	t.Helper()
	c, err := Dial(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func waitPeers(t *testing.T, h *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return h.PeerCount() == n }, 2*time.Second, 10*time.Millisecond)
}

func TestHubRelaysToOtherPeersOnly(t *testing.T) {
	h, url := startHub(t)
	sender := dial(t, url)
	listener := dial(t, url)
	waitPeers(t, h, 2)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	echoed := make(chan []byte, 1)
	go sender.Listen(ctx, func(data []byte) { echoed <- data })
	got := make(chan []byte, 1)
	go listener.Listen(ctx, func(data []byte) { got <- data })

	sig := TradeSignal{Signal: "sniper_pump1", Mint: "66BEASEApHs5LMFoQV8LTEZUavBKNSbgBy3TRpD9pump", Timestamp: 1700000000}
	require.NoError(t, sender.SendJSON(sig))

	select {
	case data := <-got:
		var decoded TradeSignal
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, sig, decoded)
	case <-ctx.Done():
		t.Fatal("listener never received the signal")
	}

	select {
	case data := <-echoed:
		t.Fatalf("sender received its own frame: %s", data)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestHubForgetsClosedPeers(t *testing.T) {
	h, url := startHub(t)
	a := dial(t, url)
	dial(t, url)
	waitPeers(t, h, 2)

	require.NoError(t, a.Close())
	waitPeers(t, h, 1)
}

func TestListenStopsOnCancel(t *testing.T) {
	_, url := startHub(t)
	c := dial(t, url)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Listen(ctx, func([]byte) {}) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Listen did not return after cancel")
	}
}

func TestDialFailure(t *testing.T) {
	_, err := Dial(context.Background(), "ws://127.0.0.1:1/ws")
	require.Error(t, err)
}

func TestNewTradeSignal(t *testing.T) {
	s := NewTradeSignal("sniper_pump1", "mint")
	assert.Equal(t, "sniper_pump1", s.Signal)
	assert.InDelta(t, time.Now().Unix(), s.Timestamp, 2)

	b, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"signal":"sniper_pump1"`)
	assert.Contains(t, string(b), `"mint":"mint"`)
}
