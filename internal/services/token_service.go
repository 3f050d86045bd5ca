package services

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/skip2/go-qrcode"
)

// GenerateSecureToken возвращает URL-безопасную строку из length случайных байт.
func GenerateSecureToken(length int) (string, error) {
	b := make([]byte, length)
	// Читаем случайные байты из криптографического источника ОС
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("не удалось сгенерировать случайные байты: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Без 0/O и 1/I, чтобы код было легко продиктовать.
const eventCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateEventCode возвращает код присоединения к событию длиной n.
func GenerateEventCode(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("не удалось сгенерировать код события: %w", err)
	}
	for i := range b {
		b[i] = eventCodeAlphabet[int(b[i])%len(eventCodeAlphabet)]
	}
	return string(b), nil
}

// JoinQRCode кодирует ссылку присоединения в PNG с QR-кодом.
func JoinQRCode(joinURL string, size int) ([]byte, error) {
	png, err := qrcode.Encode(joinURL, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("не удалось построить QR-код для %s: %w", joinURL, err)
	}
	return png, nil
}
