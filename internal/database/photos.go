package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"eventphotos/internal/models"
)

// StagedRow - строка таблицы staged_photos.
type StagedRow struct {
	ImageID   int64
	EventCode string
	CreatedAt time.Time
	Data      []byte // Заполняется только GetStaged/TakeStaged
}

// AppendStaged добавляет снимок устройства в конец промежуточного списка события.
// Если limit > 0, проверка лимита и вставка выполняются в одной транзакции;
// лимит считается отдельно для каждого события.
// ID снимка берётся из времени создания в миллисекундах и строго возрастает для устройства.
func (s *Store) AppendStaged(ctx context.Context, deviceID, eventCode string, data []byte, createdAt time.Time, limit int) (int64, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("ошибка начала транзакции AppendStaged: %w", err)
	}
	defer tx.Rollback()

	var count int
	var maxID sql.NullInt64
	err = tx.QueryRowContext(ctx,
		"SELECT COUNT(CASE WHEN event_code = ? THEN 1 END), MAX(image_id) FROM staged_photos WHERE device_id = ?",
		eventCode, deviceID).Scan(&count, &maxID)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчёта снимков AppendStaged: %w", err)
	}
	if limit > 0 && count >= limit {
		return 0, ErrLimitReached
	}

	imageID := createdAt.UnixMilli()
	if maxID.Valid && imageID <= maxID.Int64 {
		imageID = maxID.Int64 + 1
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO staged_photos (device_id, image_id, event_code, data, created_at) VALUES (?, ?, ?, ?, ?)",
		deviceID, imageID, eventCode, data, createdAt.UTC())
	if err != nil {
		return 0, fmt.Errorf("ошибка вставки снимка AppendStaged: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("ошибка фиксации транзакции AppendStaged: %w", err)
	}
	return imageID, nil
}

// RestoreStaged возвращает ранее изъятый снимок в конец списка устройства без проверки лимита.
func (s *Store) RestoreStaged(ctx context.Context, deviceID string, row StagedRow) error {
	_, err := s.DB.ExecContext(ctx,
		"INSERT INTO staged_photos (device_id, image_id, event_code, data, created_at) VALUES (?, ?, ?, ?, ?)",
		deviceID, row.ImageID, row.EventCode, row.Data, row.CreatedAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("снимок %d устройства %s: %w", row.ImageID, deviceID, ErrDuplicate)
		}
		return fmt.Errorf("ошибка вставки снимка RestoreStaged: %w", err)
	}
	return nil
}

// ListStaged возвращает снимки устройства в событии в порядке списка, без байтов.
func (s *Store) ListStaged(ctx context.Context, deviceID, eventCode string) ([]StagedRow, error) {
	rows, err := s.DB.QueryContext(ctx,
		"SELECT image_id, event_code, created_at FROM staged_photos WHERE device_id = ? AND event_code = ? ORDER BY seq",
		deviceID, eventCode)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса ListStaged для %s: %w", deviceID, err)
	}
	defer rows.Close()

	var list []StagedRow
	for rows.Next() {
		var r StagedRow
		if err := rows.Scan(&r.ImageID, &r.EventCode, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования ListStaged: %w", err)
		}
		list = append(list, r)
	}
	return list, rows.Err()
}

// GetStaged возвращает снимок события вместе с байтами.
func (s *Store) GetStaged(ctx context.Context, deviceID, eventCode string, imageID int64) (*StagedRow, error) {
	return getStaged(ctx, s.DB, deviceID, eventCode, imageID)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getStaged(ctx context.Context, q queryRower, deviceID, eventCode string, imageID int64) (*StagedRow, error) {
	r := &StagedRow{ImageID: imageID}
	err := q.QueryRowContext(ctx,
		"SELECT event_code, data, created_at FROM staged_photos WHERE device_id = ? AND event_code = ? AND image_id = ?",
		deviceID, eventCode, imageID).Scan(&r.EventCode, &r.Data, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("снимок %d устройства %s: %w", imageID, deviceID, ErrNotFound)
		}
		return nil, fmt.Errorf("ошибка сканирования GetStaged: %w", err)
	}
	return r, nil
}

// TakeStaged атомарно удаляет снимок из списка события и возвращает его с байтами.
func (s *Store) TakeStaged(ctx context.Context, deviceID, eventCode string, imageID int64) (*StagedRow, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка начала транзакции TakeStaged: %w", err)
	}
	defer tx.Rollback()

	r, err := getStaged(ctx, tx, deviceID, eventCode, imageID)
	if err != nil {
		return nil, err
	}
	if _, err = tx.ExecContext(ctx,
		"DELETE FROM staged_photos WHERE device_id = ? AND image_id = ?", deviceID, imageID); err != nil {
		return nil, fmt.Errorf("ошибка удаления снимка TakeStaged: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("ошибка фиксации транзакции TakeStaged: %w", err)
	}
	return r, nil
}

// ClearStaged удаляет все промежуточные снимки устройства во всех событиях и возвращает их число.
func (s *Store) ClearStaged(ctx context.Context, deviceID string) (int64, error) {
	res, err := s.DB.ExecContext(ctx, "DELETE FROM staged_photos WHERE device_id = ?", deviceID)
	if err != nil {
		return 0, fmt.Errorf("ошибка выполнения ClearStaged для %s: %w", deviceID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("ошибка получения rowsAffected в ClearStaged: %w", err)
	}
	return n, nil
}

// AppendUploaded добавляет запись о загруженном фото в долговременный список.
func (s *Store) AppendUploaded(ctx context.Context, rec models.UploadedPhotoRecord) error {
	_, err := s.DB.ExecContext(ctx,
		"INSERT INTO uploaded_photos (file_name, url, device_id, event_code, uploaded_at) VALUES (?, ?, ?, ?, ?)",
		rec.FileName, rec.URL, rec.DeviceID, rec.EventCode, rec.UploadedAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			slog.Error("КРИТИЧЕСКАЯ ОШИБКА: дубликат имени файла", "file_name", rec.FileName, "device_id", rec.DeviceID)
			return fmt.Errorf("файл '%s': %w", rec.FileName, ErrDuplicate)
		}
		return fmt.Errorf("ошибка выполнения запроса AppendUploaded: %w", err)
	}
	return nil
}

// ListUploadedByDevice возвращает загруженные устройством фото в порядке загрузки.
func (s *Store) ListUploadedByDevice(ctx context.Context, deviceID string) ([]models.UploadedPhotoRecord, error) {
	return s.listUploaded(ctx, "device_id", deviceID)
}

// ListUploadedByEvent возвращает все загруженные фото события.
func (s *Store) ListUploadedByEvent(ctx context.Context, eventCode string) ([]models.UploadedPhotoRecord, error) {
	return s.listUploaded(ctx, "event_code", eventCode)
}

func (s *Store) listUploaded(ctx context.Context, column, value string) ([]models.UploadedPhotoRecord, error) {
	// column приходит только из констант выше, не от пользователя.
	rows, err := s.DB.QueryContext(ctx,
		"SELECT file_name, url, device_id, event_code, uploaded_at FROM uploaded_photos WHERE "+column+" = ? ORDER BY id", value)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса списка загрузок по %s: %w", column, err)
	}
	defer rows.Close()

	var list []models.UploadedPhotoRecord
	for rows.Next() {
		var rec models.UploadedPhotoRecord
		if err := rows.Scan(&rec.FileName, &rec.URL, &rec.DeviceID, &rec.EventCode, &rec.UploadedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования списка загрузок: %w", err)
		}
		list = append(list, rec)
	}
	return list, rows.Err()
}

// DeleteUploaded удаляет запись устройства о загруженном фото.
func (s *Store) DeleteUploaded(ctx context.Context, deviceID, fileName string) (*models.UploadedPhotoRecord, error) {
	rec := &models.UploadedPhotoRecord{}
	err := s.DB.QueryRowContext(ctx,
		"SELECT file_name, url, device_id, event_code, uploaded_at FROM uploaded_photos WHERE device_id = ? AND file_name = ?",
		deviceID, fileName).Scan(&rec.FileName, &rec.URL, &rec.DeviceID, &rec.EventCode, &rec.UploadedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("файл '%s': %w", fileName, ErrNotFound)
		}
		return nil, fmt.Errorf("ошибка сканирования DeleteUploaded: %w", err)
	}

	if _, err = s.DB.ExecContext(ctx,
		"DELETE FROM uploaded_photos WHERE device_id = ? AND file_name = ?", deviceID, fileName); err != nil {
		return nil, fmt.Errorf("ошибка удаления записи DeleteUploaded: %w", err)
	}
	slog.Info("Запись о загруженном фото удалена", "file_name", fileName, "device_id", deviceID)
	return rec, nil
}
