package handlers

import (
	// Стандартные библиотеки
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"

	// Внутренние пакеты
	"eventphotos/internal/services"
	"eventphotos/internal/storage"

	// Сторонние библиотеки
	"github.com/gin-gonic/gin"
)

// MaxThumbnailWidth ограничивает ?w= при выдаче превью.
const MaxThumbnailWidth = 1920

// HandleObjectPut принимает запись объекта по подписанной ссылке локального хранилища.
func (h *Handler) HandleObjectPut(c *gin.Context) {
	key, err := storage.CleanKey(c.Param("key"))
	if err != nil {
		respondError(c, err)
		return
	}
	contentType := c.Query("content_type")
	if err := h.Local.VerifyPut(key, contentType, c.Query("expires"), c.Query("sig")); err != nil {
		slog.Warn("Отклонена запись по подписанной ссылке", "key", key, "ip", c.ClientIP(), "error", err)
		respondError(c, err)
		return
	}
	if c.ContentType() != contentType {
		badRequest(c, "Тип содержимого не совпадает с подписанным.")
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadSize))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Объект слишком большой."})
		return
	}
	detected, err := services.DetectImageType(data)
	if err != nil || detected != contentType {
		badRequest(c, "Недопустимый тип файла.")
		return
	}

	n, err := h.Local.Write(key, bytes.NewReader(data))
	if err != nil {
		respondError(c, err)
		return
	}
	slog.Debug("Объект записан", "key", key, "bytes", n)
	c.Status(http.StatusOK)
}

// HandleObjectGet отдаёт объект локального хранилища. ?w= - превью заданной ширины.
func (h *Handler) HandleObjectGet(c *gin.Context) {
	p, err := h.Local.Path(c.Param("key"))
	if err != nil {
		respondError(c, err)
		return
	}
	if _, err := os.Stat(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Не найдено."})
			return
		}
		respondError(c, err)
		return
	}

	c.Header("Cache-Control", "public, max-age=86400")
	w, _ := strconv.ParseUint(c.Query("w"), 10, 32)
	if w == 0 || w > MaxThumbnailWidth {
		c.Header("Content-Type", services.GetImageContentType(p))
		c.File(p)
		return
	}

	data, err := os.ReadFile(p)
	if err != nil {
		respondError(c, err)
		return
	}
	thumb, err := services.Thumbnail(data, uint(w))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/jpeg", thumb)
}
