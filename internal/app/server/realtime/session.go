package realtime

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/exp/slog"
)

// session — одно живое соединение терминала. Не персистентна:
// создается на открытии сокета, умирает вместе с ним.
type session struct {
	clientID   string
	userID     string
	conn       *websocket.Conn
	send       chan []byte
	hub        *Hub
	lastPingAt time.Time
}

func (s *session) readPump() {
	defer func() {
		s.hub.unregister <- s
		s.conn.Close()
	}()

	s.conn.SetReadDeadline(time.Now().Add(pongWait))

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.hub.log.Warn("ошибка чтения сессии",
					slog.String("client_id", s.clientID),
					slog.String("error", err.Error()))
			}
			return
		}

		s.conn.SetReadDeadline(time.Now().Add(pongWait))

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.hub.log.Warn("некорректное сообщение от терминала",
				slog.String("client_id", s.clientID))
			continue
		}

		switch msg.Type {
		case "auth":
			// Проверка учетных данных — забота сессионного слоя;
			// канал лишь запоминает заявленного пользователя.
			s.userID = msg.UserID
			s.sendMessage(Message{Type: "auth-success", UserID: msg.UserID})

		case "ping":
			s.lastPingAt = time.Now()
			s.sendMessage(Message{Type: "pong"})

		default:
			// Терминалы не шлют прикладных сообщений наверх.
		}
	}
}

func (s *session) writePump() {
	defer s.conn.Close()

	for message := range s.send {
		s.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}

	// Канал закрыт хабом — вежливо закрываем сокет.
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	s.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (s *session) sendMessage(msg Message) {
	raw, err := json.Marshal(msg)
	if err != nil {
		return
	}

	select {
	case s.send <- raw:
	default:
	}
}
