package realtime

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/exp/slog"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	sendBufferSize = 64
)

// Message — конверт wire-протокола realtime-канала.
// Служебные типы: connected, auth, auth-success, ping, pong.
// Любой другой type — прикладное сообщение, доставляется клиентам как есть.
type Message struct {
	Type     string          `json:"type"`
	ClientID string          `json:"clientId,omitempty"`
	UserID   string          `json:"userId,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// Терминалы и Electron-оболочка ходят с произвольных origin.
		return true
	},
}

// Hub держит активные сессии терминалов и рассылает им события.
type Hub struct {
	sessions   map[string]*session
	register   chan *session
	unregister chan *session
	broadcast  chan []byte
	log        *slog.Logger
	mu         sync.RWMutex
}

func NewHub(log *slog.Logger) *Hub {
	hub := &Hub{
		sessions:   make(map[string]*session),
		register:   make(chan *session),
		unregister: make(chan *session),
		broadcast:  make(chan []byte, 256),
		log:        log.With(slog.String("component", "realtime")),
	}
	go hub.run()
	return hub
}

func (h *Hub) run() {
	for {
		select {
		case s := <-h.register:
			h.mu.Lock()
			h.sessions[s.clientID] = s
			total := len(h.sessions)
			h.mu.Unlock()
			h.log.Info("терминал подключен",
				slog.String("client_id", s.clientID),
				slog.Int("total", total))

		case s := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.sessions[s.clientID]; ok {
				delete(h.sessions, s.clientID)
				close(s.send)
			}
			total := len(h.sessions)
			h.mu.Unlock()
			h.log.Info("терминал отключен",
				slog.String("client_id", s.clientID),
				slog.Int("total", total))

		case message := <-h.broadcast:
			h.mu.Lock()
			for id, s := range h.sessions {
				select {
				case s.send <- message:
				default:
					// Буфер сессии переполнен — сбрасываем соединение,
					// терминал переподключится сам.
					close(s.send)
					delete(h.sessions, id)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast рассылает прикладное сообщение всем подключенным терминалам.
func (h *Hub) Broadcast(event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.Error("ошибка сериализации события", slog.String("event", event))
		return
	}

	raw, err := json.Marshal(Message{Type: event, Data: data})
	if err != nil {
		h.log.Error("ошибка сериализации конверта", slog.String("event", event))
		return
	}

	h.broadcast <- raw
}

// SessionCount возвращает число активных сессий.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Handler апгрейдит HTTP-соединение и запускает сессию.
// Первое сообщение сервера — всегда connected с назначенным clientId.
func (h *Hub) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.log.Error("ошибка апгрейда соединения", slog.String("error", err.Error()))
			return
		}

		s := &session{
			clientID: uuid.NewString(),
			conn:     conn,
			send:     make(chan []byte, sendBufferSize),
			hub:      h,
		}

		// Приветствие встает в буфер до регистрации: рассылка видит
		// сессию только после него, connected всегда уходит первым.
		s.sendMessage(Message{Type: "connected", ClientID: s.clientID})

		h.register <- s

		go s.writePump()
		go s.readPump()
	}
}
