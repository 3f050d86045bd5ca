// Package websocket доставляет состояние презентаций подключённым экранам.
package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client - подключённый экран презентации.
type Client struct {
	Hub       *Hub
	Conn      *websocket.Conn
	Send      chan []byte
	EventCode string
	Layout    string
}

// Hub держит подключённые экраны, сгруппированные по комнатам
// (событие + вариант презентации), и рассылает им сообщения.
type Hub struct {
	Clients    map[string]map[*Client]bool // room -> clients
	Broadcast  chan *Message
	Register   chan *Client
	Unregister chan *Client
	Mu         sync.RWMutex

	// OnJoin вызывается при подключении экрана; возвращённое сообщение
	// отправляется только этому экрану.
	OnJoin func(c *Client) *Message
	// OnLeave вызывается, когда экран отключён.
	OnLeave func(c *Client)
	// OnMessage обрабатывает сообщения от экрана.
	OnMessage func(c *Client, msg *Message)

	done chan struct{}
}

// Message - сообщение между сервером и экраном.
type Message struct {
	Type      string          `json:"type"`
	EventCode string          `json:"event_code"`
	Layout    string          `json:"layout"`
	Key       string          `json:"key,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Типы сообщений
const (
	MSG_SLIDESHOW_SNAPSHOT = "slideshow.snapshot"
	MSG_PRESENTER_KEY      = "presenter.key"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 16
)

// NewHub создаёт хаб.
func NewHub() *Hub {
	return &Hub{
		Clients:    make(map[string]map[*Client]bool),
		Broadcast:  make(chan *Message, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Room - имя комнаты экранов варианта layout события eventCode.
func Room(eventCode, layout string) string {
	return eventCode + "/" + layout
}

// NewClient создаёт клиента для установленного соединения.
func (h *Hub) NewClient(conn *websocket.Conn, eventCode, layout string) *Client {
	return &Client{Hub: h, Conn: conn, Send: make(chan []byte, sendBuffer), EventCode: eventCode, Layout: layout}
}

// Join регистрирует клиента. Возвращает false, если хаб уже остановлен.
func (h *Hub) Join(c *Client) bool {
	select {
	case h.Register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Count - число экранов в комнате.
func (h *Hub) Count(eventCode, layout string) int {
	h.Mu.RLock()
	defer h.Mu.RUnlock()
	return len(h.Clients[Room(eventCode, layout)])
}

// Publish ставит сообщение в очередь рассылки. Если очередь переполнена,
// сообщение отбрасывается: следующее состояние всё равно придёт.
func (h *Hub) Publish(msgType, eventCode, layout string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("Ошибка сериализации сообщения", "type", msgType, "error", err)
		return
	}
	msg := &Message{Type: msgType, EventCode: eventCode, Layout: layout, Data: data, Timestamp: time.Now()}
	select {
	case h.Broadcast <- msg:
	default:
		slog.Warn("Очередь рассылки переполнена, сообщение отброшено", "type", msgType, "event", eventCode)
	}
}

// Run обрабатывает подключения и рассылку до отмены ctx.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.Mu.Lock()
			for room, clients := range h.Clients {
				for client := range clients {
					close(client.Send)
				}
				delete(h.Clients, room)
			}
			h.Mu.Unlock()
			return

		case client := <-h.Register:
			room := Room(client.EventCode, client.Layout)
			h.Mu.Lock()
			if h.Clients[room] == nil {
				h.Clients[room] = make(map[*Client]bool)
			}
			h.Clients[room][client] = true
			h.Mu.Unlock()
			if h.OnJoin != nil {
				if msg := h.OnJoin(client); msg != nil {
					select {
					case client.Send <- mustMarshal(msg):
					default:
					}
				}
			}

		case client := <-h.Unregister:
			h.remove(client)

		case message := <-h.Broadcast:
			h.Mu.RLock()
			var slow []*Client
			payload := mustMarshal(message)
			for client := range h.Clients[Room(message.EventCode, message.Layout)] {
				select {
				case client.Send <- payload:
				default:
					slow = append(slow, client)
				}
			}
			h.Mu.RUnlock()
			for _, client := range slow {
				h.remove(client)
			}
		}
	}
}

// remove отключает клиента, если он ещё зарегистрирован.
func (h *Hub) remove(client *Client) {
	room := Room(client.EventCode, client.Layout)
	h.Mu.Lock()
	clients, ok := h.Clients[room]
	if ok && clients[client] {
		delete(clients, client)
		close(client.Send)
		if len(clients) == 0 {
			delete(h.Clients, room)
		}
	} else {
		ok = false
	}
	h.Mu.Unlock()

	if ok && h.OnLeave != nil {
		h.OnLeave(client)
	}
}

func mustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		slog.Error("Ошибка сериализации", "error", err)
		return []byte("{}")
	}
	return b
}
