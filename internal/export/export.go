// Package export выгружает список загруженных фото события в YAML или Parquet.
package export

import (
	"fmt"
	"io"
	"time"

	"eventphotos/internal/models"

	"github.com/parquet-go/parquet-go"
	"gopkg.in/yaml.v3"
)

// Форматы выгрузки
const (
	FormatYAML    = "yaml"
	FormatParquet = "parquet"
)

// Manifest - описание фото события для YAML.
type Manifest struct {
	EventCode   string     `yaml:"event_code"`
	EventName   string     `yaml:"event_name,omitempty"`
	GeneratedAt time.Time  `yaml:"generated_at"`
	Count       int        `yaml:"count"`
	Photos      []PhotoRow `yaml:"photos"`
}

// PhotoRow - одна строка выгрузки.
type PhotoRow struct {
	FileName   string `yaml:"file_name" parquet:"file_name"`
	URL        string `yaml:"url" parquet:"url"`
	DeviceID   string `yaml:"device_id" parquet:"device_id"`
	EventCode  string `yaml:"event_code" parquet:"event_code"`
	UploadedAt int64  `yaml:"uploaded_at_ms" parquet:"uploaded_at_ms"` // Unix, миллисекунды
}

// Rows переводит записи о загрузках в строки выгрузки.
func Rows(records []models.UploadedPhotoRecord) []PhotoRow {
	rows := make([]PhotoRow, len(records))
	for i, r := range records {
		rows[i] = PhotoRow{
			FileName:   r.FileName,
			URL:        r.URL,
			DeviceID:   r.DeviceID,
			EventCode:  r.EventCode,
			UploadedAt: r.UploadedAt.UnixMilli(),
		}
	}
	return rows
}

// NewManifest собирает манифест события.
func NewManifest(event models.Event, records []models.UploadedPhotoRecord, now time.Time) Manifest {
	rows := Rows(records)
	return Manifest{
		EventCode:   event.Code,
		EventName:   event.Name,
		GeneratedAt: now.UTC(),
		Count:       len(rows),
		Photos:      rows,
	}
}

// WriteYAML пишет манифест в формате YAML.
func WriteYAML(w io.Writer, m Manifest) error {
	data, err := yaml.Marshal(&m)
	if err != nil {
		return fmt.Errorf("не удалось сериализовать манифест в YAML: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("не удалось записать YAML: %w", err)
	}
	return nil
}

// WriteParquet пишет строки манифеста в формате Parquet.
func WriteParquet(w io.Writer, m Manifest) error {
	pw := parquet.NewGenericWriter[PhotoRow](w)
	if _, err := pw.Write(m.Photos); err != nil {
		return fmt.Errorf("не удалось записать строки Parquet: %w", err)
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("не удалось завершить файл Parquet: %w", err)
	}
	return nil
}

// Write пишет манифест в формате format.
func Write(w io.Writer, format string, m Manifest) error {
	switch format {
	case FormatYAML:
		return WriteYAML(w, m)
	case FormatParquet:
		return WriteParquet(w, m)
	default:
		return fmt.Errorf("неизвестный формат выгрузки %q", format)
	}
}

// ContentType - MIME-тип формата.
func ContentType(format string) string {
	if format == FormatParquet {
		return "application/vnd.apache.parquet"
	}
	return "application/yaml"
}
