package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"eventphotos/internal/camera"
	"eventphotos/internal/config"
	"eventphotos/internal/handlers"
	"eventphotos/internal/review"
	"eventphotos/internal/slideshow"
	"eventphotos/internal/staging"
	"eventphotos/internal/upload"
	"eventphotos/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var (
		port      string
		templates string
		static    string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Запустить веб-сервис",
		Long: `Запускает HTTP-сервис: панель хоста, API гостевых устройств,
экраны презентации и локальное объектное хранилище.`,
		Example: `  # Порт из LISTEN_PORT (по умолчанию 8080)
  eventphotos serve

  # Другой порт
  eventphotos serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := config.Load()
			for _, w := range cfg.Warnings() {
				slog.Warn(w)
			}
			if port == "" {
				port = cfg.ListenPort
			}

			st, err := openStores(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			objects, local, err := openObjects(ctx, cfg)
			if err != nil {
				return err
			}

			staged := staging.New(st.db, staging.Limit)
			cameras := camera.NewRegistry(staged)
			defer cameras.CloseAll()
			pipeline := upload.New(objects, st.db, staged, nil)
			defer pipeline.Close()

			hub := websocket.NewHub()
			shows := slideshow.NewManager(slideshow.ObjectSource{Store: objects}, handlers.PublishTo(hub))
			defer shows.Close()
			handlers.BindDisplays(hub, shows)
			hubCtx, stopHub := context.WithCancel(context.Background())
			defer stopHub()
			go hub.Run(hubCtx)

			h := &handlers.Handler{
				DB:      st.db,
				Events:  st.events,
				Staging: staged,
				Cameras: cameras,
				Reviews: review.NewRegistry(staged, pipeline),
				Uploads: pipeline,
				Objects: objects,
				Local:   local,
				Shows:   shows,
				Hub:     hub,
				BaseURL: cfg.BaseURL,
			}

			gin.SetMode(gin.ReleaseMode)
			router := handlers.NewRouter(h, handlers.RouterOptions{
				CookieSecret:  cfg.CookieSecret,
				SecureCookie:  strings.HasPrefix(cfg.BaseURL, "https://"),
				TemplatesGlob: templates,
				StaticDir:     static,
			})

			addr := ":" + port
			server := &http.Server{
				Addr:              addr,
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Сервер запущен", "addr", addr, "url", cfg.BaseURL)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			select {
			case <-ctx.Done():
				slog.Info("Остановка сервера...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Ошибка остановки сервера", "error", err)
					return err
				}
				slog.Info("Сервер остановлен")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "Порт (по умолчанию LISTEN_PORT)")
	cmd.Flags().StringVar(&templates, "templates", "web/templates/*", "Шаблоны HTML")
	cmd.Flags().StringVar(&static, "static", "./web/static", "Директория статики; пусто - не раздавать")

	return cmd
}
