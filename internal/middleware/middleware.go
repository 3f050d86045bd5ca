package middleware

import (
	// Стандартные библиотеки
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	// Внутренние пакеты
	"eventphotos/internal/database"

	// Сторонние библиотеки
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// Ключи сессии и контекста Gin.
const (
	KeyUserID    = "userID"
	KeyUsername  = "username"
	KeyDeviceID  = "deviceID"
	KeyEventCode = "eventCode"
	KeyEvent     = "event"
)

// AuthRequired пропускает только вошедшего хоста.
// Неаутентифицированный запрос перенаправляется на страницу входа.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		userIDRaw := session.Get(KeyUserID)

		if userIDRaw == nil {
			slog.Info("Доступ запрещен (не аутентифицирован)", "path", c.Request.URL.Path, "ip", c.ClientIP())
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}

		userID, ok := userIDRaw.(int64)
		if !ok {
			// Повреждённая сессия: очищаем и отправляем на вход.
			slog.Warn("Некорректный тип userID в сессии, сессия будет очищена", "type", fmt.Sprintf("%T", userIDRaw), "ip", c.ClientIP())
			session.Delete(KeyUserID)
			session.Delete(KeyUsername)
			session.Options(sessions.Options{MaxAge: -1})
			if err := session.Save(); err != nil {
				slog.Error("Ошибка сохранения сессии при очистке", "error", err)
			}
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}

		c.Set(KeyUserID, userID)
		c.Next()
	}
}

// GuestRequired пропускает только устройство гостя, присоединившееся к событию
// из параметра :code. В контекст кладутся ID устройства и событие.
func GuestRequired(events database.Events) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		deviceID, _ := session.Get(KeyDeviceID).(string)
		joined, _ := session.Get(KeyEventCode).(string)
		code := c.Param("code")

		if deviceID == "" || joined != code {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Сначала присоединитесь к событию."})
			return
		}

		event, err := events.GetEventByCode(c.Request.Context(), code)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Событие не найдено."})
				return
			}
			slog.Error("Ошибка получения события", "code", code, "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Ошибка сервера."})
			return
		}

		c.Set(KeyDeviceID, deviceID)
		c.Set(KeyEvent, event)
		c.Next()
	}
}
