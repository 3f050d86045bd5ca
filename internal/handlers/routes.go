package handlers

import (
	// Стандартные библиотеки
	"log/slog"
	"net/http"

	// Внутренние пакеты
	"eventphotos/internal/middleware"

	// Сторонние библиотеки
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

// RouterOptions - настройки HTTP-роутера.
type RouterOptions struct {
	CookieSecret  string
	SecureCookie  bool   // Cookie только по HTTPS
	TemplatesGlob string // например web/templates/*
	StaticDir     string // пусто - статика не раздаётся
}

// NewRouter собирает gin-роутер со всеми маршрутами сервиса.
func NewRouter(h *Handler, opts RouterOptions) *gin.Engine {
	router := gin.Default()

	// За обратным прокси доверяем заголовкам любого прокси.
	if err := router.SetTrustedProxies(nil); err != nil {
		slog.Warn("Ошибка установки доверенных прокси", "error", err)
	}
	router.MaxMultipartMemory = MaxUploadSize

	store := cookie.NewStore([]byte(opts.CookieSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		Secure:   opts.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	router.Use(sessions.Sessions("eventphotos", store))

	router.LoadHTMLGlob(opts.TemplatesGlob)
	if opts.StaticDir != "" {
		router.Static("/static", opts.StaticDir)
	}

	router.GET("/healthcheck", h.HandleHealthcheck)

	// Хост
	public := router.Group("/")
	{
		public.GET("/", h.ShowLoginPage)
		public.GET("/login", h.ShowLoginPage)
		public.POST("/login", h.HandleLogin)
		public.GET("/register", h.ShowRegisterPage)
		public.POST("/register", h.HandleRegister)
		public.GET("/e/:code", h.ShowGuestPage)
	}

	protected := router.Group("/")
	protected.Use(middleware.AuthRequired())
	{
		protected.GET("/dashboard", h.ShowDashboard)
		protected.POST("/dashboard/events", h.HandleCreateEvent)
		protected.GET("/dashboard/events/:code/qr.png", h.HandleEventQR)
		protected.GET("/dashboard/events/:code/export", h.HandleExport)
		protected.POST("/logout", h.HandleLogout)
	}

	// Гость
	router.POST("/api/e/:code/join", h.HandleJoin)
	router.GET("/api/e/:code/slideshow/:layout", h.HandleSlideshowState)
	router.GET("/api/e/:code/slideshow/:layout/ws", h.HandleSlideshowWS)

	guest := router.Group("/api/e/:code")
	guest.Use(middleware.GuestRequired(h.Events))
	{
		guest.GET("/camera", h.HandleCameraStatus)
		guest.POST("/camera/open", h.HandleCameraOpen)
		guest.POST("/camera/flip", h.HandleCameraFlip)
		guest.POST("/camera/tap", h.HandleCameraTap)
		guest.POST("/camera/zoom", h.HandleCameraZoom)
		guest.POST("/camera/flash", h.HandleCameraFlash)
		guest.POST("/camera/capture", h.HandleCapture)
		guest.DELETE("/camera", h.HandleCameraClose)

		guest.GET("/staged", h.HandleStagedList)
		guest.GET("/staged/:id", h.HandleStagedImage)

		guest.POST("/review", h.HandleReviewEnter)
		guest.GET("/review", h.HandleReviewState)
		guest.POST("/review/drag", h.HandleReviewDrag)
		guest.POST("/review/move", h.HandleReviewMove)
		guest.POST("/review/release", h.HandleReviewRelease)
		guest.POST("/review/key", h.HandleReviewKey)

		guest.POST("/gallery", h.HandleGalleryEnter)
		guest.GET("/gallery", h.HandleGalleryList)
		guest.DELETE("/gallery/:file", h.HandleGalleryDelete)

		guest.GET("/photos", h.HandlePhotos)
	}

	// Локальное объектное хранилище
	if h.Local != nil {
		router.PUT("/objects/*key", h.HandleObjectPut)
		router.GET("/objects/*key", h.HandleObjectGet)
	}

	return router
}
