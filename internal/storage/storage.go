// Package storage - объектное хранилище фотографий событий: выдача
// ограниченных по времени учётных данных на запись, список объектов и
// детерминированные публичные URL для чтения.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"
)

// DefaultPutTTL - срок действия учётных данных на запись.
const DefaultPutTTL = 15 * time.Minute

var (
	// ErrBadSignature - подпись URL не совпала.
	ErrBadSignature = errors.New("неверная подпись ссылки")
	// ErrExpired - срок действия ссылки истёк.
	ErrExpired = errors.New("срок действия ссылки истёк")
	// ErrBadKey - недопустимый ключ объекта.
	ErrBadKey = errors.New("недопустимый ключ объекта")
)

// ObjectStore - объектное хранилище.
type ObjectStore interface {
	// PresignPut выдаёт URL, по которому клиент может записать объект key методом PUT.
	PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error)
	// List возвращает ключи объектов с префиксом prefix в лексикографическом порядке.
	List(ctx context.Context, prefix string) ([]string, error)
	// ReadURL - публичный URL объекта, подпись не нужна.
	ReadURL(key string) string
	Delete(ctx context.Context, key string) error
}

// EventPrefix - префикс ключей фотографий события.
func EventPrefix(eventCode string) string {
	return "events/" + eventCode + "/"
}

// ObjectKey - ключ объекта для файла события.
func ObjectKey(eventCode, fileName string) string {
	return EventPrefix(eventCode) + fileName
}

// CleanKey проверяет ключ объекта и приводит его к каноническому виду.
func CleanKey(key string) (string, error) {
	key = strings.TrimPrefix(key, "/")
	if key == "" {
		return "", ErrBadKey
	}
	cleaned := path.Clean(key)
	if cleaned != key || strings.HasPrefix(cleaned, "../") || cleaned == ".." || strings.Contains(cleaned, "\\") {
		return "", fmt.Errorf("%w: %q", ErrBadKey, key)
	}
	return cleaned, nil
}
