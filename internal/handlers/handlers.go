package handlers

import (
	// Стандартные библиотеки
	"errors"
	"log/slog"
	"net/http"

	// Внутренние пакеты
	"eventphotos/internal/camera"
	"eventphotos/internal/database"
	"eventphotos/internal/middleware"
	"eventphotos/internal/models"
	"eventphotos/internal/review"
	"eventphotos/internal/slideshow"
	"eventphotos/internal/staging"
	"eventphotos/internal/storage"
	"eventphotos/internal/upload"
	"eventphotos/internal/websocket"

	// Сторонние библиотеки
	"github.com/gin-gonic/gin"
)

// Ограничения запросов
const (
	MaxUploadSize = 10 << 20 // 10 МБ на кадр или объект
	QRCodeSize    = 512
)

// Handler - HTTP-обработчики сервиса. Все зависимости передаются явно.
type Handler struct {
	DB      *database.Store
	Events  database.Events
	Staging *staging.Store
	Cameras *camera.Registry
	Reviews *review.Registry
	Uploads *upload.Pipeline
	Objects storage.ObjectStore
	Local   *storage.LocalStore // nil, если фото хранятся в S3
	Shows   *slideshow.Manager
	Hub     *websocket.Hub
	BaseURL string
}

// JoinURL - ссылка, зашитая в QR-код события.
func (h *Handler) JoinURL(code string) string {
	return h.BaseURL + "/e/" + code
}

// HandleHealthcheck отвечает 503, пока сервис останавливается.
func (h *Handler) HandleHealthcheck(c *gin.Context) {
	if h.Uploads != nil && h.Uploads.Closed() {
		respondError(c, upload.ErrClosed)
		return
	}
	c.String(http.StatusOK, "OK")
}

func deviceID(c *gin.Context) string {
	return c.GetString(middleware.KeyDeviceID)
}

func currentEvent(c *gin.Context) *models.Event {
	ev, _ := c.MustGet(middleware.KeyEvent).(*models.Event)
	return ev
}

// respondError переводит ошибки пакетов в HTTP-ответ {"error": "..."}.
func respondError(c *gin.Context, err error) {
	status, message := http.StatusInternalServerError, "Внутренняя ошибка сервера."
	switch {
	case errors.Is(err, staging.ErrFull):
		status, message = http.StatusConflict, "Достигнут лимит непросмотренных снимков. Просмотрите снимки, чтобы продолжить."
	case errors.Is(err, staging.ErrNotFound), errors.Is(err, database.ErrNotFound):
		status, message = http.StatusNotFound, "Не найдено."
	case errors.Is(err, database.ErrDuplicate):
		status, message = http.StatusConflict, "Запись уже существует."
	case errors.Is(err, camera.ErrNoStream):
		status, message = http.StatusConflict, "Камера недоступна. Разрешите доступ к камере."
	case errors.Is(err, camera.ErrNotPreviewing):
		status, message = http.StatusConflict, "Камера не запущена."
	case errors.Is(err, camera.ErrZoomLevel), errors.Is(err, camera.ErrNoFrame):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, review.ErrUnknownKey):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, storage.ErrBadSignature), errors.Is(err, storage.ErrExpired):
		status, message = http.StatusForbidden, err.Error()
	case errors.Is(err, storage.ErrBadKey):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, slideshow.ErrClosed), errors.Is(err, upload.ErrClosed):
		status, message = http.StatusServiceUnavailable, "Сервис останавливается."
	}
	if status >= http.StatusInternalServerError {
		slog.Error("Ошибка обработки запроса", "path", c.Request.URL.Path, "error", err)
	} else {
		slog.Debug("Запрос отклонён", "path", c.Request.URL.Path, "status", status, "error", err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

func badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": message})
}
