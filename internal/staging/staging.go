// Package staging хранит снятые, но ещё не просмотренные снимки устройства.
//
// Источник истины - таблица staged_photos. Список ведётся отдельно для каждой
// пары (устройство, событие). Список в памяти выводится из таблицы и
// сбрасывается при каждой записи.
package staging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"eventphotos/internal/database"
	"eventphotos/internal/models"
)

// Limit - максимальное число непросмотренных снимков на устройство в событии.
const Limit = 5

// ErrFull возвращается Append, когда список уже заполнен.
var ErrFull = errors.New("промежуточный список заполнен")

// ErrNotFound - снимок отсутствует в списке.
var ErrNotFound = errors.New("снимок не найден в промежуточном списке")

// Store - промежуточный список снимков с кэшем поверх базы данных.
type Store struct {
	db    *database.Store
	limit int
	now   func() time.Time

	mu sync.Mutex
	// cache: устройство -> событие -> список.
	cache map[string]map[string][]models.CapturedImage
	// gen увеличивается при каждом сбросе кэша устройства. Прочитанный из базы
	// список попадает в кэш, только если поколение не изменилось за время чтения.
	gen map[string]uint64

	afterLoad func() // вызывается между чтением из базы и записью в кэш (тесты)
}

// New создаёт хранилище с лимитом limit (0 означает Limit).
func New(db *database.Store, limit int) *Store {
	if limit <= 0 {
		limit = Limit
	}
	return &Store{
		db:    db,
		limit: limit,
		now:   time.Now,
		cache: make(map[string]map[string][]models.CapturedImage),
		gen:   make(map[string]uint64),
	}
}

// Limit возвращает лимит списка.
func (s *Store) Limit() int { return s.limit }

// URL формирует локальную ссылку на снимок.
func URL(eventCode string, imageID int64) string {
	return fmt.Sprintf("/api/e/%s/staged/%d", eventCode, imageID)
}

func toImage(r database.StagedRow) models.CapturedImage {
	return models.CapturedImage{
		ID:        r.ImageID,
		URL:       URL(r.EventCode, r.ImageID),
		EventCode: r.EventCode,
		CreatedAt: r.CreatedAt,
		Data:      r.Data,
	}
}

func (s *Store) invalidate(deviceID string) {
	s.mu.Lock()
	delete(s.cache, deviceID)
	s.gen[deviceID]++
	s.mu.Unlock()
}

// Append добавляет снимок в конец списка устройства в событии.
// При заполненном списке возвращает ErrFull и ничего не создаёт.
func (s *Store) Append(ctx context.Context, deviceID, eventCode string, data []byte) (models.CapturedImage, error) {
	createdAt := s.now()
	id, err := s.db.AppendStaged(ctx, deviceID, eventCode, data, createdAt, s.limit)
	if err != nil {
		if errors.Is(err, database.ErrLimitReached) {
			return models.CapturedImage{}, ErrFull
		}
		return models.CapturedImage{}, fmt.Errorf("не удалось сохранить снимок: %w", err)
	}
	s.invalidate(deviceID)

	img := models.CapturedImage{ID: id, URL: URL(eventCode, id), EventCode: eventCode, CreatedAt: createdAt}
	slog.Debug("Снимок добавлен в промежуточный список", "device_id", deviceID, "event", eventCode, "image_id", id)
	return img, nil
}

// List возвращает список устройства в событии в порядке съёмки (без байтов).
func (s *Store) List(ctx context.Context, deviceID, eventCode string) ([]models.CapturedImage, error) {
	s.mu.Lock()
	cached, ok := s.cache[deviceID][eventCode]
	gen := s.gen[deviceID]
	s.mu.Unlock()
	if ok {
		return append([]models.CapturedImage(nil), cached...), nil
	}

	rows, err := s.db.ListStaged(ctx, deviceID, eventCode)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать промежуточный список: %w", err)
	}
	list := make([]models.CapturedImage, 0, len(rows))
	for _, r := range rows {
		list = append(list, toImage(r))
	}
	if s.afterLoad != nil {
		s.afterLoad()
	}

	s.mu.Lock()
	if s.gen[deviceID] == gen {
		byEvent := s.cache[deviceID]
		if byEvent == nil {
			byEvent = make(map[string][]models.CapturedImage)
			s.cache[deviceID] = byEvent
		}
		byEvent[eventCode] = list
	}
	s.mu.Unlock()
	return append([]models.CapturedImage(nil), list...), nil
}

// Len возвращает текущую длину списка.
func (s *Store) Len(ctx context.Context, deviceID, eventCode string) (int, error) {
	list, err := s.List(ctx, deviceID, eventCode)
	return len(list), err
}

// Get возвращает снимок вместе с байтами, не изменяя список.
func (s *Store) Get(ctx context.Context, deviceID, eventCode string, imageID int64) (models.CapturedImage, error) {
	r, err := s.db.GetStaged(ctx, deviceID, eventCode, imageID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return models.CapturedImage{}, ErrNotFound
		}
		return models.CapturedImage{}, err
	}
	return toImage(*r), nil
}

// Take удаляет снимок из списка и возвращает его вместе с байтами.
func (s *Store) Take(ctx context.Context, deviceID, eventCode string, imageID int64) (models.CapturedImage, error) {
	r, err := s.db.TakeStaged(ctx, deviceID, eventCode, imageID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return models.CapturedImage{}, ErrNotFound
		}
		return models.CapturedImage{}, err
	}
	s.invalidate(deviceID)
	return toImage(*r), nil
}

// Restore возвращает изъятый снимок в конец списка события eventCode. Лимит
// не проверяется: снимок уже занимал место в списке до изъятия.
func (s *Store) Restore(ctx context.Context, deviceID, eventCode string, img models.CapturedImage) error {
	err := s.db.RestoreStaged(ctx, deviceID, database.StagedRow{
		ImageID:   img.ID,
		EventCode: eventCode,
		CreatedAt: img.CreatedAt,
		Data:      img.Data,
	})
	if err != nil {
		return fmt.Errorf("не удалось вернуть снимок %d в список: %w", img.ID, err)
	}
	s.invalidate(deviceID)
	slog.Info("Снимок возвращён в промежуточный список для повторной попытки", "device_id", deviceID, "event", eventCode, "image_id", img.ID)
	return nil
}

// EnterReview вызывается при входе на экран просмотра: список перечитывается
// из базы и возвращается целиком.
func (s *Store) EnterReview(ctx context.Context, deviceID, eventCode string) ([]models.CapturedImage, error) {
	s.invalidate(deviceID)
	return s.List(ctx, deviceID, eventCode)
}

// EnterGallery вызывается при входе в галерею: непросмотренные снимки
// прошлой сессии считаются устаревшими и удаляются во всех событиях устройства.
// Повторный вызов безопасен.
func (s *Store) EnterGallery(ctx context.Context, deviceID string) error {
	n, err := s.db.ClearStaged(ctx, deviceID)
	if err != nil {
		return fmt.Errorf("не удалось очистить промежуточный список: %w", err)
	}
	s.invalidate(deviceID)
	if n > 0 {
		slog.Info("Промежуточный список очищен при входе в галерею", "device_id", deviceID, "removed", n)
	}
	return nil
}
