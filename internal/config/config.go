// Package config читает настройки сервиса из переменных окружения.
package config

import (
	"log/slog"
	"os"
	"strings"
)

// Config - настройки сервиса.
type Config struct {
	CookieSecret string // Секрет для подписи cookie
	DBPath       string // Путь к файлу БД
	ListenPort   string
	UploadPath   string // Корень локального хранилища фото
	BaseURL      string // Внешний адрес сервиса, используется в QR и ссылках

	StorageBackend string // local | s3
	S3Bucket       string
	S3Region       string
	S3PublicURL    string

	EventsBackend        string // sqlite | firestore
	FirestoreProject     string
	FirestoreCredentials string

	SigningSecret string // Секрет подписи ссылок на запись в локальное хранилище
	LogLevel      string
}

// Backends
const (
	StorageLocal    = "local"
	StorageS3       = "s3"
	EventsSQLite    = "sqlite"
	EventsFirestore = "firestore"
)

// getEnv получает значение переменной окружения по ключу.
// Если переменная не установлена, возвращает fallback.
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	slog.Debug("Переменная окружения не установлена, используется значение по умолчанию", "key", key, "value", fallback)
	return fallback
}

// Load читает настройки. Значения по умолчанию подходят для запуска в контейнере.
func Load() Config {
	cfg := Config{
		CookieSecret: getEnv("COOKIE_SECRET", "fallback-secret-change-in-production"),
		DBPath:       getEnv("DB_PATH", "/app/data/service.db"),
		ListenPort:   getEnv("LISTEN_PORT", "8080"),
		UploadPath:   getEnv("UPLOAD_PATH", "/app/uploads"),
		BaseURL:      strings.TrimRight(getEnv("BASE_URL", "http://localhost:8080"), "/"),

		StorageBackend: getEnv("STORAGE_BACKEND", StorageLocal),
		S3Bucket:       getEnv("S3_BUCKET", ""),
		S3Region:       getEnv("S3_REGION", "us-east-1"),
		S3PublicURL:    getEnv("S3_PUBLIC_URL", ""),

		EventsBackend:        getEnv("EVENTS_BACKEND", EventsSQLite),
		FirestoreProject:     getEnv("FIRESTORE_PROJECT", ""),
		FirestoreCredentials: getEnv("FIRESTORE_CREDENTIALS", ""),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
	cfg.SigningSecret = getEnv("SIGNING_SECRET", cfg.CookieSecret)
	return cfg
}

// Warnings возвращает замечания к небезопасным или неполным настройкам.
func (c Config) Warnings() []string {
	var w []string
	if c.CookieSecret == "fallback-secret-change-in-production" {
		w = append(w, "COOKIE_SECRET не задан, используется небезопасное значение по умолчанию")
	}
	if c.StorageBackend == StorageS3 && c.S3Bucket == "" {
		w = append(w, "STORAGE_BACKEND=s3, но S3_BUCKET не задан")
	}
	if c.EventsBackend == EventsFirestore && c.FirestoreProject == "" {
		w = append(w, "EVENTS_BACKEND=firestore, но FIRESTORE_PROJECT не задан")
	}
	return w
}

// ParseLevel переводит название уровня журнала в slog.Level.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetupLogger настраивает текстовый журнал в stderr.
func SetupLogger(level string) {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: ParseLevel(level)})
	slog.SetDefault(slog.New(handler))
}
