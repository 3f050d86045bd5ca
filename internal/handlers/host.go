package handlers

import (
	// Стандартные библиотеки
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	// Внутренние пакеты
	"eventphotos/internal/auth"
	"eventphotos/internal/database"
	"eventphotos/internal/export"
	"eventphotos/internal/middleware"
	"eventphotos/internal/models"
	"eventphotos/internal/services"

	// Сторонние библиотеки
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// ShowLoginPage отображает страницу входа.
func (h *Handler) ShowLoginPage(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", gin.H{"title": "Вход"})
}

// ShowRegisterPage отображает страницу регистрации.
func (h *Handler) ShowRegisterPage(c *gin.Context) {
	c.HTML(http.StatusOK, "register.html", gin.H{"title": "Регистрация"})
}

// HandleRegister обрабатывает форму регистрации хоста.
// При ошибке форма показывается снова, при успехе - страница входа.
func (h *Handler) HandleRegister(c *gin.Context) {
	username := strings.TrimSpace(c.PostForm("username"))
	password := strings.TrimSpace(c.PostForm("password"))
	passwordConfirm := strings.TrimSpace(c.PostForm("password_confirm"))

	renderRegisterWithError := func(status int, message string) {
		c.HTML(status, "register.html", gin.H{
			"title":    "Регистрация",
			"error":    message,
			"username": username,
		})
	}

	if err := auth.ValidateRegistration(username, password, passwordConfirm); err != nil {
		renderRegisterWithError(http.StatusBadRequest, err.Error())
		return
	}

	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		slog.Error("Ошибка хеширования пароля", "username", username, "error", err)
		renderRegisterWithError(http.StatusInternalServerError, "Произошла внутренняя ошибка при обработке пароля.")
		return
	}

	if _, err := h.DB.CreateUser(c.Request.Context(), username, hashedPassword); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			renderRegisterWithError(http.StatusConflict, fmt.Sprintf("Пользователь '%s' уже существует.", username))
			return
		}
		slog.Error("Ошибка создания пользователя", "username", username, "error", err)
		renderRegisterWithError(http.StatusInternalServerError, "Произошла внутренняя ошибка при создании пользователя.")
		return
	}

	slog.Info("Пользователь зарегистрирован", "username", username)
	c.HTML(http.StatusOK, "login.html", gin.H{
		"title":   "Вход",
		"success": "Вы успешно зарегистрированы! Теперь вы можете войти.",
	})
}

// HandleLogin проверяет пароль и сохраняет хоста в сессии.
func (h *Handler) HandleLogin(c *gin.Context) {
	username := strings.TrimSpace(c.PostForm("username"))
	password := strings.TrimSpace(c.PostForm("password"))

	renderLoginWithError := func(status int, message string) {
		c.HTML(status, "login.html", gin.H{"title": "Вход", "error": message})
	}

	if username == "" || password == "" {
		renderLoginWithError(http.StatusUnauthorized, "Имя пользователя и пароль не могут быть пустыми")
		return
	}

	user, err := h.DB.GetUserByUsername(c.Request.Context(), username)
	if err != nil {
		slog.Error("Ошибка получения пользователя из БД", "username", username, "error", err)
		renderLoginWithError(http.StatusInternalServerError, "Ошибка сервера при проверке данных.")
		return
	}
	if user == nil || !auth.CheckPasswordHash(password, user.PasswordHash) {
		slog.Info("Неудачная попытка входа", "username", username, "ip", c.ClientIP())
		renderLoginWithError(http.StatusUnauthorized, "Неверное имя пользователя или пароль.")
		return
	}

	session := sessions.Default(c)
	session.Set(middleware.KeyUserID, user.ID)
	session.Set(middleware.KeyUsername, user.Username)
	if err := session.Save(); err != nil {
		slog.Error("Ошибка сохранения сессии после входа", "user_id", user.ID, "error", err)
		renderLoginWithError(http.StatusInternalServerError, "Не удалось сохранить данные сессии.")
		return
	}

	slog.Info("Пользователь вошел в систему", "username", user.Username, "user_id", user.ID)
	c.Redirect(http.StatusFound, "/dashboard")
}

// HandleLogout удаляет хоста из сессии. Данные гостевого устройства сохраняются.
func (h *Handler) HandleLogout(c *gin.Context) {
	session := sessions.Default(c)
	userID := session.Get(middleware.KeyUserID)

	session.Delete(middleware.KeyUserID)
	session.Delete(middleware.KeyUsername)
	if err := session.Save(); err != nil {
		slog.Error("Ошибка сохранения сессии после выхода", "user_id", userID, "error", err)
	} else {
		slog.Info("Пользователь вышел из системы", "user_id", userID)
	}
	c.Redirect(http.StatusFound, "/")
}

// eventView - строка события на панели хоста.
type eventView struct {
	models.Event
	JoinURL string
	Photos  int
}

// ShowDashboard отображает события хоста.
func (h *Handler) ShowDashboard(c *gin.Context) {
	userID := c.GetInt64(middleware.KeyUserID)
	username, _ := sessions.Default(c).Get(middleware.KeyUsername).(string)
	ctx := c.Request.Context()

	events, err := h.Events.ListEventsByOwner(ctx, userID)
	if err != nil {
		slog.Error("Ошибка получения событий хоста", "user_id", userID, "error", err)
		c.HTML(http.StatusInternalServerError, "error.html", gin.H{"title": "Ошибка сервера", "message": "Не удалось загрузить список событий."})
		return
	}

	views := make([]eventView, 0, len(events))
	for _, ev := range events {
		v := eventView{Event: ev, JoinURL: h.JoinURL(ev.Code)}
		if recs, err := h.DB.ListUploadedByEvent(ctx, ev.Code); err == nil {
			v.Photos = len(recs)
		} else {
			slog.Warn("Не удалось посчитать фото события", "code", ev.Code, "error", err)
		}
		views = append(views, v)
	}

	c.HTML(http.StatusOK, "dashboard.html", gin.H{
		"title":    "Мои события",
		"username": username,
		"events":   views,
		"error":    c.Query("error"),
	})
}

// HandleCreateEvent создаёт событие с новым кодом присоединения.
func (h *Handler) HandleCreateEvent(c *gin.Context) {
	userID := c.GetInt64(middleware.KeyUserID)
	name := strings.TrimSpace(c.PostForm("name"))
	if name == "" {
		c.Redirect(http.StatusFound, "/dashboard?error="+url.QueryEscape("Укажите название события"))
		return
	}

	event, err := services.CreateEvent(c.Request.Context(), h.Events, name, userID)
	if err != nil {
		slog.Error("Ошибка создания события", "user_id", userID, "error", err)
		c.HTML(http.StatusInternalServerError, "error.html", gin.H{"title": "Ошибка сервера", "message": "Не удалось создать событие."})
		return
	}
	slog.Info("Событие создано", "code", event.Code, "user_id", userID)
	c.Redirect(http.StatusFound, "/dashboard")
}

// ownedEvent возвращает событие из :code, если оно принадлежит вошедшему хосту.
func (h *Handler) ownedEvent(c *gin.Context) (*models.Event, bool) {
	event, err := h.Events.GetEventByCode(c.Request.Context(), c.Param("code"))
	if err != nil || event.OwnerID != c.GetInt64(middleware.KeyUserID) {
		if err != nil && !errors.Is(err, database.ErrNotFound) {
			slog.Error("Ошибка получения события", "code", c.Param("code"), "error", err)
		}
		c.HTML(http.StatusNotFound, "error.html", gin.H{"title": "Не найдено", "message": "Событие не найдено."})
		return nil, false
	}
	return event, true
}

// HandleEventQR отдаёт PNG с QR-кодом ссылки присоединения.
func (h *Handler) HandleEventQR(c *gin.Context) {
	event, ok := h.ownedEvent(c)
	if !ok {
		return
	}
	png, err := services.JoinQRCode(h.JoinURL(event.Code), QRCodeSize)
	if err != nil {
		slog.Error("Ошибка построения QR-кода", "code", event.Code, "error", err)
		c.HTML(http.StatusInternalServerError, "error.html", gin.H{"title": "Ошибка сервера", "message": "Не удалось построить QR-код."})
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// HandleExport выгружает список загруженных фото события (?format=yaml|parquet).
func (h *Handler) HandleExport(c *gin.Context) {
	event, ok := h.ownedEvent(c)
	if !ok {
		return
	}
	format := c.DefaultQuery("format", export.FormatYAML)
	if format != export.FormatYAML && format != export.FormatParquet {
		c.HTML(http.StatusBadRequest, "error.html", gin.H{"title": "Ошибка запроса", "message": "Неизвестный формат выгрузки."})
		return
	}

	records, err := h.DB.ListUploadedByEvent(c.Request.Context(), event.Code)
	if err != nil {
		slog.Error("Ошибка получения фото для выгрузки", "code", event.Code, "error", err)
		c.HTML(http.StatusInternalServerError, "error.html", gin.H{"title": "Ошибка сервера", "message": "Не удалось подготовить выгрузку."})
		return
	}

	c.Header("Content-Type", export.ContentType(format))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.%s"`, event.Code, format))
	if err := export.Write(c.Writer, format, export.NewManifest(*event, records, time.Now())); err != nil {
		slog.Error("Ошибка записи выгрузки", "code", event.Code, "format", format, "error", err)
	}
}
