package handlers

import (
	// Стандартные библиотеки
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	// Внутренние пакеты
	"eventphotos/internal/slideshow"
	"eventphotos/internal/websocket"

	// Сторонние библиотеки
	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"
)

var upgrader = gorilla.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Экраны презентации открываются с того же хоста, что и API.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// PublishTo возвращает функцию публикации состояний презентаций через хаб.
func PublishTo(hub *websocket.Hub) func(slideshow.Snapshot) {
	return func(s slideshow.Snapshot) {
		hub.Publish(websocket.MSG_SLIDESHOW_SNAPSHOT, s.EventCode, string(s.Layout), s)
	}
}

// BindDisplays связывает подключения экранов с жизненным циклом презентаций:
// первый экран запускает презентацию, уход последнего её останавливает.
func BindDisplays(hub *websocket.Hub, shows *slideshow.Manager) {
	hub.OnJoin = func(c *websocket.Client) *websocket.Message {
		snap, err := shows.Join(c.EventCode, slideshow.Layout(c.Layout))
		if err != nil {
			slog.Warn("Не удалось запустить презентацию", "event", c.EventCode, "layout", c.Layout, "error", err)
			return nil
		}
		data, err := json.Marshal(snap)
		if err != nil {
			return nil
		}
		return &websocket.Message{
			Type:      websocket.MSG_SLIDESHOW_SNAPSHOT,
			EventCode: c.EventCode,
			Layout:    c.Layout,
			Data:      data,
			Timestamp: time.Now(),
		}
	}
	hub.OnLeave = func(c *websocket.Client) {
		shows.Leave(c.EventCode, slideshow.Layout(c.Layout))
	}
	hub.OnMessage = func(c *websocket.Client, msg *websocket.Message) {
		if msg.Type == websocket.MSG_PRESENTER_KEY {
			shows.Key(c.EventCode, slideshow.Layout(c.Layout), msg.Key)
		}
	}
}

// slideshowParams проверяет событие и вариант из URL.
func (h *Handler) slideshowParams(c *gin.Context) (string, slideshow.Layout, bool) {
	layout, err := slideshow.ParseLayout(c.Param("layout"))
	if err != nil {
		badRequest(c, err.Error())
		return "", "", false
	}
	event, err := h.Events.GetEventByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return "", "", false
	}
	return event.Code, layout, true
}

// HandleSlideshowState возвращает текущее состояние презентации.
func (h *Handler) HandleSlideshowState(c *gin.Context) {
	code, layout, ok := h.slideshowParams(c)
	if !ok {
		return
	}
	snap, err := h.Shows.Snapshot(c.Request.Context(), code, layout)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// HandleSlideshowWS подключает экран презентации по WebSocket.
func (h *Handler) HandleSlideshowWS(c *gin.Context) {
	code, layout, ok := h.slideshowParams(c)
	if !ok {
		return
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("Не удалось установить WebSocket", "event", code, "error", err)
		return
	}

	client := h.Hub.NewClient(conn, code, string(layout))
	if !h.Hub.Join(client) {
		slog.Warn("Экран не подключён: сервис останавливается", "event", code)
		conn.Close()
		return
	}
	go client.WritePump()
	go client.ReadPump()
}
