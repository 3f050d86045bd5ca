package slideshow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"eventphotos/internal/models"
	"eventphotos/internal/storage"
)

// ErrClosed - менеджер презентаций остановлен.
var ErrClosed = errors.New("менеджер презентаций остановлен")

// Source - список фото события, подтверждённых хранилищем.
type Source interface {
	ListPhotos(ctx context.Context, eventCode string) ([]models.Photo, error)
}

// ObjectSource читает фото события прямо из объектного хранилища.
type ObjectSource struct {
	Store storage.ObjectStore
}

func (s ObjectSource) ListPhotos(ctx context.Context, eventCode string) ([]models.Photo, error) {
	keys, err := s.Store.List(ctx, storage.EventPrefix(eventCode))
	if err != nil {
		return nil, fmt.Errorf("не удалось получить список фото события %s: %w", eventCode, err)
	}
	photos := make([]models.Photo, len(keys))
	for i, k := range keys {
		photos[i] = models.Photo{Key: k, URL: s.Store.ReadURL(k)}
	}
	return photos, nil
}

// refresh опрашивает источник. Ошибка опроса записывается в журнал и
// пропускается: на экране остаётся прежний набор.
func refresh(ctx context.Context, r Rotator, src Source, eventCode string, publish func(Snapshot)) {
	photos, err := src.ListPhotos(ctx, eventCode)
	if err != nil {
		if ctx.Err() == nil {
			slog.Warn("Ошибка опроса фото для презентации", "event", eventCode, "error", err)
		}
		return
	}
	now := time.Now()
	if r.Update(photos, now) {
		publish(r.Snapshot(now))
	}
}

// Run опрашивает src и продвигает r до отмены ctx. publish вызывается
// при каждом изменении показанного набора.
func Run(ctx context.Context, r Rotator, src Source, eventCode string, publish func(Snapshot)) {
	poll := time.NewTimer(0)
	defer poll.Stop()
	tick := time.NewTicker(r.TickInterval())
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-poll.C:
			refresh(ctx, r, src, eventCode, publish)
			poll.Reset(r.PollInterval())
		case now := <-tick.C:
			if r.Tick(now) {
				publish(r.Snapshot(now))
			}
		}
	}
}

type showKey struct {
	eventCode string
	layout    Layout
}

type show struct {
	rotator Rotator
	cancel  context.CancelFunc
	viewers int
}

// Manager держит по одной работающей презентации на пару (событие, вариант),
// пока к ней подключён хотя бы один экран.
type Manager struct {
	src        Source
	publish    func(Snapshot)
	newRotator func(eventCode string, layout Layout) (Rotator, error)

	mu     sync.Mutex
	shows  map[showKey]*show
	wg     sync.WaitGroup
	closed bool
}

// NewManager создаёт менеджер. publish получает каждое изменение
// любой работающей презентации.
func NewManager(src Source, publish func(Snapshot)) *Manager {
	return &Manager{
		src:     src,
		publish: publish,
		newRotator: func(eventCode string, layout Layout) (Rotator, error) {
			return NewRotator(eventCode, layout, nil)
		},
		shows: make(map[showKey]*show),
	}
}

// Join подключает экран. Первый экран запускает презентацию.
func (m *Manager) Join(eventCode string, layout Layout) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return Snapshot{}, ErrClosed
	}

	k := showKey{eventCode, layout}
	if sh, ok := m.shows[k]; ok {
		sh.viewers++
		return sh.rotator.Snapshot(time.Now()), nil
	}

	r, err := m.newRotator(eventCode, layout)
	if err != nil {
		return Snapshot{}, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.shows[k] = &show{rotator: r, cancel: cancel, viewers: 1}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		Run(ctx, r, m.src, eventCode, m.publish)
	}()
	slog.Info("Презентация запущена", "event", eventCode, "layout", layout)
	return r.Snapshot(time.Now()), nil
}

// Leave отключает экран. С уходом последнего экрана презентация останавливается.
func (m *Manager) Leave(eventCode string, layout Layout) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := showKey{eventCode, layout}
	sh, ok := m.shows[k]
	if !ok {
		return
	}
	sh.viewers--
	if sh.viewers > 0 {
		return
	}
	sh.cancel()
	delete(m.shows, k)
	slog.Info("Презентация остановлена", "event", eventCode, "layout", layout)
}

// Viewers - число подключённых экранов презентации.
func (m *Manager) Viewers(eventCode string, layout Layout) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sh, ok := m.shows[showKey{eventCode, layout}]; ok {
		return sh.viewers
	}
	return 0
}

// Key передаёт клавишу презентатора работающей презентации.
func (m *Manager) Key(eventCode string, layout Layout, key string) bool {
	m.mu.Lock()
	sh, ok := m.shows[showKey{eventCode, layout}]
	m.mu.Unlock()
	if !ok {
		return false
	}
	now := time.Now()
	if !sh.rotator.Key(key, now) {
		return false
	}
	m.publish(sh.rotator.Snapshot(now))
	return true
}

// Snapshot возвращает текущее состояние презентации. Если экранов нет,
// состояние строится по одному опросу источника.
func (m *Manager) Snapshot(ctx context.Context, eventCode string, layout Layout) (Snapshot, error) {
	m.mu.Lock()
	sh, ok := m.shows[showKey{eventCode, layout}]
	m.mu.Unlock()
	if ok {
		return sh.rotator.Snapshot(time.Now()), nil
	}

	r, err := m.newRotator(eventCode, layout)
	if err != nil {
		return Snapshot{}, err
	}
	photos, err := m.src.ListPhotos(ctx, eventCode)
	if err != nil {
		return Snapshot{}, err
	}
	now := time.Now()
	r.Update(photos, now)
	return r.Snapshot(now), nil
}

// Close останавливает все презентации и дожидается их горутин.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	for k, sh := range m.shows {
		sh.cancel()
		delete(m.shows, k)
	}
	m.mu.Unlock()
	m.wg.Wait()
}
