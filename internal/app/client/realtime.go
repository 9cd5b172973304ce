package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/exp/slog"
)

// ChannelState — состояние realtime-канала
type ChannelState int32

const (
	StateIdle ChannelState = iota
	StateConnecting
	StateAuthenticating
	StateConnected
	StateReconnecting
	StateClosed
)

func (s ChannelState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ChannelMessage — сообщение realtime-канала в обе стороны
type ChannelMessage struct {
	Type     string          `json:"type"`
	ClientID string          `json:"clientId,omitempty"`
	UserID   string          `json:"userId,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// ChannelConfig настройки канала
type ChannelConfig struct {
	URL          string
	UserID       string
	BaseInterval time.Duration // база экспоненциального переподключения
	MaxInterval  time.Duration // потолок задержки переподключения
	MaxAttempts  int           // после этого числа попыток канал закрывается
	PingInterval time.Duration
}

// Dialer абстрагирует установку websocket-соединения (подменяется в тестах)
type Dialer interface {
	Dial(urlStr string, requestHeader map[string][]string) (*websocket.Conn, error)
}

type defaultDialer struct{}

func (defaultDialer) Dial(urlStr string, requestHeader map[string][]string) (*websocket.Conn, error) {
	conn, _, err := websocket.DefaultDialer.Dial(urlStr, requestHeader)
	return conn, err
}

// Channel — переподключающийся realtime-канал терминала.
// После обрыва соединения переподключается с экспоненциальной задержкой;
// отказ сервера на самой первой попытке означает, что сервера нет,
// и канал закрывается сразу.
type Channel struct {
	config *ChannelConfig
	log    *slog.Logger
	dialer Dialer

	mu             sync.Mutex
	conn           *websocket.Conn
	state          ChannelState
	attempt        int
	clientID       string
	handler        func(ChannelMessage)
	pingTicker     *time.Ticker
	pingDone       chan struct{}
	reconnectTimer *time.Timer
	closed         bool
}

// NewChannel создает канал. Соединение не открывается до вызова Connect.
func NewChannel(cfg *ChannelConfig, log *slog.Logger) *Channel {
	if cfg.BaseInterval <= 0 {
		cfg.BaseInterval = time.Second
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = 30 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 10
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 25 * time.Second
	}

	return &Channel{
		config: cfg,
		log:    log,
		dialer: defaultDialer{},
		state:  StateIdle,
	}
}

// SetDialer подменяет способ установки соединения
func (c *Channel) SetDialer(d Dialer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dialer = d
}

// OnMessage регистрирует обработчик прикладных сообщений.
// Обработчик ровно один: повторный вызов заменяет предыдущий.
func (c *Channel) OnMessage(handler func(ChannelMessage)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = handler
}

// State возвращает текущее состояние канала
func (c *Channel) State() ChannelState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ClientID возвращает идентификатор, выданный сервером при подключении
func (c *Channel) ClientID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clientID
}

// Connect открывает соединение и выполняет рукопожатие.
// Явный вызов всегда начинает новый жизненный цикл: закрытый канал
// оживает, счетчик попыток обнуляется. Возвращает ошибку только если
// канал не удалось открыть и переподключения не будет.
func (c *Channel) Connect() error {
	c.mu.Lock()
	c.closed = false
	c.attempt = 0
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	c.mu.Unlock()

	return c.connect()
}

// connect — одна попытка установить соединение; переподключения
// планируют именно ее, чтобы не оживлять закрытый канал.
func (c *Channel) connect() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrChannelClosed
	}
	c.state = StateConnecting
	firstAttempt := c.attempt == 0
	c.mu.Unlock()

	conn, err := c.dialer.Dial(c.config.URL, nil)
	if err != nil {
		if firstAttempt && isConnectionRefused(err) {
			// Сервера нет вовсе: переподключаться бессмысленно
			c.mu.Lock()
			c.state = StateClosed
			c.closed = true
			c.mu.Unlock()
			return fmt.Errorf("сервер не принимает соединения: %w", err)
		}
		c.scheduleReconnect()
		return nil
	}

	if err := c.handshake(conn); err != nil {
		conn.Close()
		c.log.Warn("Рукопожатие не удалось", "error", err.Error())
		c.scheduleReconnect()
		return nil
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		conn.Close()
		return ErrChannelClosed
	}
	c.conn = conn
	c.state = StateConnected
	c.attempt = 0
	c.mu.Unlock()

	c.log.Info("Realtime-канал подключен", "client_id", c.ClientID())

	c.startPing()
	go c.readLoop(conn)

	return nil
}

// handshake ожидает приветствие сервера и проходит аутентификацию
func (c *Channel) handshake(conn *websocket.Conn) error {
	conn.SetReadDeadline(time.Now().Add(10 * time.Second))

	var hello ChannelMessage
	if err := conn.ReadJSON(&hello); err != nil {
		return fmt.Errorf("ошибка чтения приветствия: %w", err)
	}
	if hello.Type != "connected" {
		return fmt.Errorf("неожиданное первое сообщение: %s", hello.Type)
	}

	c.mu.Lock()
	c.clientID = hello.ClientID
	c.state = StateAuthenticating
	c.mu.Unlock()

	if err := conn.WriteJSON(ChannelMessage{Type: "auth", UserID: c.config.UserID}); err != nil {
		return fmt.Errorf("ошибка отправки аутентификации: %w", err)
	}

	var authResp ChannelMessage
	if err := conn.ReadJSON(&authResp); err != nil {
		return fmt.Errorf("ошибка чтения ответа аутентификации: %w", err)
	}
	if authResp.Type != "auth-success" {
		return fmt.Errorf("аутентификация отклонена: %s", authResp.Type)
	}

	conn.SetReadDeadline(time.Time{})
	return nil
}

func (c *Channel) readLoop(conn *websocket.Conn) {
	for {
		var msg ChannelMessage
		if err := conn.ReadJSON(&msg); err != nil {
			c.mu.Lock()
			closed := c.closed
			c.mu.Unlock()

			if closed {
				return
			}

			c.stopPing()

			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				// Сервер попрощался штатно, не переподключаемся
				c.mu.Lock()
				c.state = StateClosed
				c.closed = true
				c.mu.Unlock()
				return
			}

			c.log.Warn("Соединение потеряно", "error", err.Error())
			c.scheduleReconnect()
			return
		}

		switch msg.Type {
		case "pong":
			// Сервер жив, ничего делать не нужно
		case "connected", "auth-success":
			// Служебные сообщения рукопожатия вне handshake игнорируются
		default:
			c.mu.Lock()
			handler := c.handler
			c.mu.Unlock()
			if handler != nil {
				handler(msg)
			}
		}
	}
}

func (c *Channel) startPing() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pingTicker = time.NewTicker(c.config.PingInterval)
	c.pingDone = make(chan struct{})

	go func(ticker *time.Ticker, done chan struct{}) {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				c.mu.Lock()
				conn := c.conn
				c.mu.Unlock()
				if conn == nil {
					return
				}
				if err := conn.WriteJSON(ChannelMessage{Type: "ping"}); err != nil {
					return
				}
			}
		}
	}(c.pingTicker, c.pingDone)
}

func (c *Channel) stopPing() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopPingLocked()
}

func (c *Channel) stopPingLocked() {
	if c.pingTicker != nil {
		c.pingTicker.Stop()
		c.pingTicker = nil
	}
	if c.pingDone != nil {
		close(c.pingDone)
		c.pingDone = nil
	}
}

// scheduleReconnect планирует следующую попытку с экспоненциальной
// задержкой, ограниченной сверху MaxInterval
func (c *Channel) scheduleReconnect() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}

	c.attempt++
	if c.attempt >= c.config.MaxAttempts {
		c.state = StateClosed
		c.closed = true
		c.mu.Unlock()
		c.log.Error("Исчерпаны попытки переподключения")
		return
	}

	c.state = StateReconnecting
	c.conn = nil
	delay := c.backoff(c.attempt)
	c.reconnectTimer = time.AfterFunc(delay, func() {
		if err := c.connect(); err != nil && !errors.Is(err, ErrChannelClosed) {
			c.log.Warn("Переподключение не удалось", "error", err.Error())
		}
	})
	c.mu.Unlock()

	c.log.Info("Переподключение запланировано", "attempt", c.attempt, "delay", delay)
}

func (c *Channel) backoff(attempt int) time.Duration {
	delay := c.config.BaseInterval << uint(attempt-1)
	if delay > c.config.MaxInterval || delay <= 0 {
		delay = c.config.MaxInterval
	}
	return delay
}

// Close окончательно закрывает канал. Сначала гасятся таймеры,
// чтобы отмененное переподключение не подняло соединение заново,
// затем закрывается транспорт.
func (c *Channel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.state = StateClosed

	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	c.stopPingLocked()

	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		return conn.Close()
	}

	return nil
}

// isConnectionRefused различает "слушателя нет" и прочие сетевые сбои.
// Таймауты и ошибки DNS сюда не попадают: они временные, по ним канал
// переподключается по обычному расписанию.
func isConnectionRefused(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ENOENT)
}
