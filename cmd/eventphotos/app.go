package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"eventphotos/internal/config"
	"eventphotos/internal/database"
	"eventphotos/internal/services"
	"eventphotos/internal/storage"
)

// checkOrCreateDir проверяет существование директории и создаёт её при необходимости.
// Путь, существующий, но не являющийся директорией, считается ошибкой.
func checkOrCreateDir(dirPath string) error {
	if dirPath == "" {
		return errors.New("путь к директории не может быть пустым")
	}
	// Корень и текущая директория не создаются
	if dirPath == "/" || dirPath == "." {
		return fmt.Errorf("небезопасный путь для создания директории: %s", dirPath)
	}

	info, err := os.Stat(dirPath)
	if os.IsNotExist(err) {
		slog.Info("Папка не найдена, создаем", "path", dirPath)
		if err := os.MkdirAll(dirPath, 0755); err != nil {
			return fmt.Errorf("не удалось создать папку %s: %w", dirPath, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("ошибка при проверке папки %s: %w", dirPath, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("путь %s существует, но не является директорией", dirPath)
	}
	slog.Debug("Папка найдена", "path", dirPath)
	return nil
}

// stores - открытые хранилища сервиса.
type stores struct {
	db     *database.Store
	events database.Events
	closer func()
}

func (s *stores) Close() {
	if s.closer != nil {
		s.closer()
	}
	if err := s.db.Close(); err != nil {
		slog.Warn("Ошибка закрытия базы данных", "error", err)
	}
}

// openStores открывает SQLite и выбранное хранилище событий.
func openStores(ctx context.Context, cfg config.Config) (*stores, error) {
	if err := checkOrCreateDir(filepath.Dir(cfg.DBPath)); err != nil {
		return nil, err
	}
	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	s := &stores{db: db, events: db}
	switch cfg.EventsBackend {
	case config.EventsSQLite, "":
	case config.EventsFirestore:
		fs, err := database.NewFirestoreEvents(ctx, cfg.FirestoreProject, cfg.FirestoreCredentials)
		if err != nil {
			db.Close()
			return nil, err
		}
		s.events = fs
		s.closer = func() {
			if err := fs.Close(); err != nil {
				slog.Warn("Ошибка закрытия клиента Firestore", "error", err)
			}
		}
	default:
		db.Close()
		return nil, fmt.Errorf("неизвестное хранилище событий %q", cfg.EventsBackend)
	}
	slog.Info("Хранилище событий выбрано", "backend", cfg.EventsBackend)
	return s, nil
}

// openObjects создаёт объектное хранилище фото. Для локального хранилища
// возвращается также *storage.LocalStore, обслуживающий маршрут /objects.
func openObjects(ctx context.Context, cfg config.Config) (storage.ObjectStore, *storage.LocalStore, error) {
	switch cfg.StorageBackend {
	case config.StorageLocal, "":
		if err := checkOrCreateDir(cfg.UploadPath); err != nil {
			return nil, nil, err
		}
		secret := cfg.SigningSecret
		if secret == "" {
			// Ссылки перестанут действовать после перезапуска
			token, err := services.GenerateSecureToken(32)
			if err != nil {
				return nil, nil, err
			}
			slog.Warn("SIGNING_SECRET пуст, используется случайный секрет")
			secret = token
		}
		local := storage.NewLocalStore(cfg.UploadPath, cfg.BaseURL, []byte(secret))
		return local, local, nil
	case config.StorageS3:
		s3, err := storage.NewS3Store(ctx, cfg.S3Bucket, cfg.S3Region, cfg.S3PublicURL)
		if err != nil {
			return nil, nil, err
		}
		return s3, nil, nil
	default:
		return nil, nil, fmt.Errorf("неизвестное хранилище фото %q", cfg.StorageBackend)
	}
}
