package services

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/nfnt/resize"
)

// AllowedImageTypes - разрешённые MIME-типы кадров и загружаемых объектов.
var AllowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

const (
	// MaxStillDimension - наибольшая сторона сохраняемого снимка в пикселях.
	MaxStillDimension = 1920
	// StillQuality - качество JPEG для снимков.
	StillQuality = 85
)

// DetectImageType определяет реальный тип данных по первым 512 байтам
// и проверяет, что он разрешён.
func DetectImageType(data []byte) (string, error) {
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	contentType := http.DetectContentType(head)
	if !AllowedImageTypes[contentType] {
		return "", fmt.Errorf("недопустимый тип файла: %s", contentType)
	}
	return contentType, nil
}

// DecodeFrame читает кадр из r, проверяет тип и декодирует изображение.
// Декодирование отбрасывает большинство метаданных.
func DecodeFrame(r io.Reader) (image.Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать кадр: %w", err)
	}
	if _, err := DetectImageType(data); err != nil {
		return nil, err
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("не удалось декодировать изображение: %w, формат: %s", err, format)
	}
	return img, nil
}

// MirrorHorizontal возвращает зеркальную по горизонтали копию изображения.
func MirrorHorizontal(src image.Image) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)

	w := b.Dx()
	for y := 0; y < b.Dy(); y++ {
		row := dst.Pix[y*dst.Stride : y*dst.Stride+w*4]
		for left, right := 0, w-1; left < right; left, right = left+1, right-1 {
			l, r := left*4, right*4
			for k := 0; k < 4; k++ {
				row[l+k], row[r+k] = row[r+k], row[l+k]
			}
		}
	}
	return dst
}

// EncodeStill превращает кадр в сжатый JPEG-снимок.
// mirror отражает кадр, чтобы снимок совпадал с тем, что пользователь видел в превью фронтальной камеры.
func EncodeStill(frame image.Image, mirror bool) ([]byte, error) {
	var img image.Image = frame
	if mirror {
		img = MirrorHorizontal(frame)
	}
	b := img.Bounds()
	if b.Dx() > MaxStillDimension || b.Dy() > MaxStillDimension {
		img = resize.Thumbnail(MaxStillDimension, MaxStillDimension, img, resize.Lanczos3)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: StillQuality}); err != nil {
		return nil, fmt.Errorf("не удалось закодировать снимок: %w", err)
	}
	return buf.Bytes(), nil
}

// Thumbnail уменьшает изображение data так, чтобы оно вписалось в квадрат size×size.
func Thumbnail(data []byte, size uint) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("не удалось декодировать изображение для миниатюры: %w", err)
	}
	thumb := resize.Thumbnail(size, size, img, resize.Lanczos3)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: 80}); err != nil {
		return nil, fmt.Errorf("не удалось закодировать миниатюру: %w", err)
	}
	return buf.Bytes(), nil
}

// GetImageContentType определяет Content-Type по расширению для ответа клиенту.
func GetImageContentType(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	default:
		return "application/octet-stream"
	}
}
