// Package upload превращает снимок из промежуточного списка в объект
// хранилища и запись в долговременном списке загруженных фото.
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"eventphotos/internal/models"
	"eventphotos/internal/services"
	"eventphotos/internal/storage"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ErrClosed - конвейер остановлен.
var ErrClosed = errors.New("конвейер загрузки остановлен")

// Recorder - долговременный список загруженных фото.
type Recorder interface {
	AppendUploaded(ctx context.Context, rec models.UploadedPhotoRecord) error
}

// Stager - промежуточный список: чтение байтов снимка и возврат после ошибки.
type Stager interface {
	Get(ctx context.Context, deviceID, eventCode string, imageID int64) (models.CapturedImage, error)
	Restore(ctx context.Context, deviceID, eventCode string, img models.CapturedImage) error
}

// Pipeline выполняет загрузки. Каждая загрузка - отдельная горутина без
// ограничения параллелизма; все они привязаны к контексту конвейера.
type Pipeline struct {
	store   storage.ObjectStore
	records Recorder
	staged  Stager
	client  *http.Client
	now     func() time.Time
	suffix  func() string

	ctx    context.Context
	cancel context.CancelFunc
	group  errgroup.Group

	mu     sync.Mutex
	closed bool
}

// New создаёт конвейер. client может быть nil - тогда используется клиент с таймаутом 60 секунд.
func New(store storage.ObjectStore, records Recorder, staged Stager, client *http.Client) *Pipeline {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pipeline{
		store:   store,
		records: records,
		staged:  staged,
		client:  client,
		now:     time.Now,
		suffix:  func() string { return uuid.NewString()[:8] },
		ctx:     ctx,
		cancel:  cancel,
	}
}

// FileName строит уникальное имя файла из высокоточной временной метки.
func FileName(t time.Time, suffix string) string {
	return fmt.Sprintf("%d-%s.jpg", t.UnixNano(), suffix)
}

// Submit запускает загрузку в фоне. removed сообщает, что снимок уже изъят
// из промежуточного списка: при ошибке он будет возвращён в конец списка.
func (p *Pipeline) Submit(deviceID, eventCode string, img models.CapturedImage, removed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		slog.Warn("Загрузка отклонена: конвейер остановлен", "device_id", deviceID, "image_id", img.ID)
		p.fail(context.Background(), deviceID, eventCode, img, removed, ErrClosed)
		return
	}

	p.group.Go(func() error {
		if _, err := p.Upload(p.ctx, deviceID, eventCode, img); err != nil {
			p.fail(p.ctx, deviceID, eventCode, img, removed, err)
		}
		return nil
	})
}

func (p *Pipeline) fail(ctx context.Context, deviceID, eventCode string, img models.CapturedImage, removed bool, cause error) {
	slog.Error("Ошибка загрузки снимка", "device_id", deviceID, "image_id", img.ID, "error", cause)
	if !removed {
		return
	}
	// Возврат должен состояться даже при остановке конвейера.
	if err := p.staged.Restore(context.WithoutCancel(ctx), deviceID, eventCode, img); err != nil {
		slog.Error("Не удалось вернуть снимок после ошибки загрузки", "device_id", deviceID, "image_id", img.ID, "error", err)
	}
}

// Upload последовательно выполняет шаги загрузки одного снимка.
func (p *Pipeline) Upload(ctx context.Context, deviceID, eventCode string, img models.CapturedImage) (models.UploadedPhotoRecord, error) {
	// 1. Получаем байты снимка.
	data := img.Data
	if len(data) == 0 {
		stored, err := p.staged.Get(ctx, deviceID, eventCode, img.ID)
		if err != nil {
			return models.UploadedPhotoRecord{}, fmt.Errorf("не удалось получить байты снимка %d: %w", img.ID, err)
		}
		data = stored.Data
	}
	contentType, err := services.DetectImageType(data)
	if err != nil {
		return models.UploadedPhotoRecord{}, err
	}

	// 2. Уникальное имя файла.
	fileName := FileName(p.now(), p.suffix())
	key := storage.ObjectKey(eventCode, fileName)

	// 3. Учётные данные на запись.
	signedURL, err := p.store.PresignPut(ctx, key, contentType, storage.DefaultPutTTL)
	if err != nil {
		return models.UploadedPhotoRecord{}, fmt.Errorf("не удалось получить ссылку на запись: %w", err)
	}

	// 4. Запись.
	if err := p.put(ctx, signedURL, contentType, data); err != nil {
		return models.UploadedPhotoRecord{}, err
	}

	// 5. Запись в долговременный список.
	rec := models.UploadedPhotoRecord{
		FileName:   fileName,
		URL:        p.store.ReadURL(key),
		DeviceID:   deviceID,
		EventCode:  eventCode,
		UploadedAt: p.now().UTC(),
	}
	if err := p.records.AppendUploaded(ctx, rec); err != nil {
		return models.UploadedPhotoRecord{}, fmt.Errorf("не удалось сохранить запись о загрузке: %w", err)
	}

	slog.Info("Снимок загружен", "device_id", deviceID, "image_id", img.ID, "file_name", fileName, "bytes", len(data))
	return rec, nil
}

func (p *Pipeline) put(ctx context.Context, signedURL, contentType string, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, signedURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("не удалось создать запрос на запись: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = int64(len(data))

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("ошибка записи в хранилище: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("хранилище отклонило запись: %s", resp.Status)
	}
	return nil
}

// Wait дожидается завершения всех начатых загрузок.
func (p *Pipeline) Wait() {
	p.group.Wait()
}

// Closed сообщает, что конвейер остановлен и новые загрузки не принимаются.
func (p *Pipeline) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Close отменяет незавершённые загрузки и дожидается их горутин.
// Отменённые снимки возвращаются в промежуточный список.
func (p *Pipeline) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.cancel()
	p.group.Wait()
}
