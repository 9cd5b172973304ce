package client

import (
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

var testUpgrader = websocket.Upgrader{}

// newChannelServer поднимает сервер, говорящий на протоколе realtime-канала:
// приветствие, аутентификация, затем произвольные сообщения из push.
func newChannelServer(t *testing.T, push <-chan ChannelMessage) string {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		if err := conn.WriteJSON(ChannelMessage{Type: "connected", ClientID: "srv-client-1"}); err != nil {
			return
		}

		var auth ChannelMessage
		if err := conn.ReadJSON(&auth); err != nil || auth.Type != "auth" {
			return
		}
		if err := conn.WriteJSON(ChannelMessage{Type: "auth-success", UserID: auth.UserID}); err != nil {
			return
		}

		go func() {
			for msg := range push {
				if err := conn.WriteJSON(msg); err != nil {
					return
				}
			}
		}()

		// Отвечаем на ping до закрытия соединения
		for {
			var msg ChannelMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			if msg.Type == "ping" {
				if err := conn.WriteJSON(ChannelMessage{Type: "pong"}); err != nil {
					return
				}
			}
		}
	}))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func newTestChannel(url string) *Channel {
	return NewChannel(&ChannelConfig{
		URL:          url,
		UserID:       "terminal-1",
		BaseInterval: 10 * time.Millisecond,
		MaxInterval:  100 * time.Millisecond,
		MaxAttempts:  3,
		PingInterval: 20 * time.Millisecond,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestChannel_ConnectHandshake(t *testing.T) {
	push := make(chan ChannelMessage)
	defer close(push)

	ch := newTestChannel(newChannelServer(t, push))
	defer ch.Close()

	require.NoError(t, ch.Connect())

	assert.Eventually(t, func() bool {
		return ch.State() == StateConnected
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "srv-client-1", ch.ClientID())
}

func TestChannel_DeliversApplicationMessages(t *testing.T) {
	push := make(chan ChannelMessage, 1)
	defer close(push)

	ch := newTestChannel(newChannelServer(t, push))
	defer ch.Close()

	received := make(chan ChannelMessage, 1)
	ch.OnMessage(func(msg ChannelMessage) {
		received <- msg
	})

	require.NoError(t, ch.Connect())

	data, _ := json.Marshal(map[string]any{"offlineId": "loc-1", "stock": 5})
	push <- ChannelMessage{Type: "stock-changed", Data: data}

	select {
	case msg := <-received:
		assert.Equal(t, "stock-changed", msg.Type)

		var payload struct {
			OfflineID string `json:"offlineId"`
			Stock     int    `json:"stock"`
		}
		require.NoError(t, json.Unmarshal(msg.Data, &payload))
		assert.Equal(t, 5, payload.Stock)
	case <-time.After(2 * time.Second):
		t.Fatal("сообщение не дошло до обработчика")
	}
}

func TestChannel_FirstAttemptRefusedClosesImmediately(t *testing.T) {
	// Занимаем порт и освобождаем: по этому адресу гарантированно никого нет
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	ch := newTestChannel("ws://" + addr)

	err = ch.Connect()
	require.Error(t, err)
	assert.Equal(t, StateClosed, ch.State())

	// Явный повторный вызов начинает новый цикл: снова одна попытка,
	// снова отказ, снова Closed
	err = ch.Connect()
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrChannelClosed)
	assert.Equal(t, StateClosed, ch.State())
}

// recordingDialer подменяет транспорт и всегда возвращает заданную ошибку
type recordingDialer struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (d *recordingDialer) Dial(_ string, _ map[string][]string) (*websocket.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	return nil, d.err
}

func (d *recordingDialer) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

func TestChannel_FirstAttemptTimeoutSchedulesReconnect(t *testing.T) {
	// Таймаут не означает отсутствие сервера: канал обязан уйти
	// в Reconnecting, а не закрыться с первой попытки
	dialer := &recordingDialer{
		err: &net.OpError{Op: "dial", Net: "tcp", Err: os.ErrDeadlineExceeded},
	}

	ch := NewChannel(&ChannelConfig{
		URL:          "ws://127.0.0.1:1",
		UserID:       "terminal-1",
		BaseInterval: 50 * time.Millisecond,
		MaxInterval:  time.Second,
		MaxAttempts:  10,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ch.SetDialer(dialer)

	require.NoError(t, ch.Connect())
	assert.Equal(t, StateReconnecting, ch.State())

	// Попытки продолжаются по расписанию
	assert.Eventually(t, func() bool {
		return dialer.callCount() >= 2
	}, 2*time.Second, 10*time.Millisecond)

	ch.Close()
}

func TestChannel_ConnectRevivesClosedChannel(t *testing.T) {
	push := make(chan ChannelMessage)
	defer close(push)

	ch := newTestChannel(newChannelServer(t, push))

	require.NoError(t, ch.Connect())
	assert.Eventually(t, func() bool {
		return ch.State() == StateConnected
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, ch.Close())
	assert.Equal(t, StateClosed, ch.State())

	// Явный Connect из Closed начинает новый жизненный цикл
	require.NoError(t, ch.Connect())
	assert.Eventually(t, func() bool {
		return ch.State() == StateConnected
	}, 2*time.Second, 10*time.Millisecond)

	ch.Close()
}

func TestChannel_BackoffGrowsAndCaps(t *testing.T) {
	ch := NewChannel(&ChannelConfig{
		URL:          "ws://unused",
		BaseInterval: time.Second,
		MaxInterval:  30 * time.Second,
		MaxAttempts:  10,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	var prev time.Duration
	for attempt := 1; attempt <= 10; attempt++ {
		delay := ch.backoff(attempt)
		assert.GreaterOrEqual(t, delay, prev, "задержка не убывает")
		assert.LessOrEqual(t, delay, 30*time.Second, "задержка не выше потолка")
		prev = delay
	}

	assert.Equal(t, time.Second, ch.backoff(1))
	assert.Equal(t, 2*time.Second, ch.backoff(2))
	assert.Equal(t, 30*time.Second, ch.backoff(10))
}

func TestChannel_CloseIsIdempotent(t *testing.T) {
	push := make(chan ChannelMessage)
	defer close(push)

	ch := newTestChannel(newChannelServer(t, push))
	require.NoError(t, ch.Connect())

	require.NoError(t, ch.Close())
	require.NoError(t, ch.Close())
	assert.Equal(t, StateClosed, ch.State())
}

func TestChannel_AttemptResetAfterSuccess(t *testing.T) {
	push := make(chan ChannelMessage)
	defer close(push)

	ch := newTestChannel(newChannelServer(t, push))
	defer ch.Close()

	// Имитируем прошлые неудачи
	ch.mu.Lock()
	ch.attempt = 2
	ch.mu.Unlock()

	require.NoError(t, ch.Connect())
	assert.Eventually(t, func() bool {
		return ch.State() == StateConnected
	}, 2*time.Second, 10*time.Millisecond)

	ch.mu.Lock()
	attempt := ch.attempt
	ch.mu.Unlock()
	assert.Equal(t, 0, attempt)
}
