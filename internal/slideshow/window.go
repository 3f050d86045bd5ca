package slideshow

import (
	"sync"
	"time"

	"eventphotos/internal/models"
)

// WindowConfig - параметры вариантов с движущимся окном.
type WindowConfig struct {
	Size      int
	Advance   time.Duration // 0 - только вручную
	Poll      time.Duration
	TickEvery time.Duration
}

func DefaultWindowConfig(layout Layout) WindowConfig {
	cfg := WindowConfig{Size: 3, Advance: 6 * time.Second, Poll: 3 * time.Second, TickEvery: 250 * time.Millisecond}
	switch layout {
	case LayoutPresenter:
		cfg.Size = 1
		cfg.Advance = 0
	case LayoutMarquee:
		cfg.Advance = 4 * time.Second
	case LayoutGrid:
		cfg.Size = 9
		cfg.Advance = 8 * time.Second
	}
	return cfg
}

// Window показывает cfg.Size подряд идущих фото и сдвигается на одно
// через равные промежутки. Презентатор двигает окно клавишами.
type Window struct {
	eventCode string
	layout    Layout
	cfg       WindowConfig

	mu     sync.Mutex
	photos []models.Photo
	start  int
	last   time.Time
}

func NewWindow(eventCode string, layout Layout, cfg WindowConfig) *Window {
	if cfg.Size < 1 {
		cfg.Size = 1
	}
	return &Window{eventCode: eventCode, layout: layout, cfg: cfg}
}

func (w *Window) PollInterval() time.Duration { return w.cfg.Poll }
func (w *Window) TickInterval() time.Duration { return w.cfg.TickEvery }

func (w *Window) Update(photos []models.Photo, now time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	before := w.visible()
	w.photos = photos
	if len(photos) == 0 {
		w.start = 0
	} else {
		w.start %= len(photos)
	}
	if w.last.IsZero() {
		w.last = now
	}
	return !samePhotos(before, w.visible())
}

func (w *Window) Tick(now time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cfg.Advance <= 0 || now.Sub(w.last) < w.cfg.Advance {
		return false
	}
	w.last = now
	return w.shift(1)
}

// Key двигает окно вперёд ("right") или назад ("left") в варианте presenter.
func (w *Window) Key(key string, now time.Time) bool {
	if w.layout != LayoutPresenter {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	w.last = now
	switch key {
	case "right":
		return w.shift(1)
	case "left":
		return w.shift(-1)
	}
	return false
}

// shift сдвигает окно; окно не двигается, если все фото уже видны.
func (w *Window) shift(by int) bool {
	n := len(w.photos)
	if n <= w.cfg.Size {
		return false
	}
	w.start = ((w.start+by)%n + n) % n
	return true
}

func (w *Window) visible() []models.Photo {
	n := len(w.photos)
	if n == 0 {
		return nil
	}
	size := min(w.cfg.Size, n)
	out := make([]models.Photo, size)
	for i := range out {
		out[i] = w.photos[(w.start+i)%n]
	}
	return out
}

func (w *Window) Snapshot(now time.Time) Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Snapshot{
		EventCode:   w.eventCode,
		Layout:      w.layout,
		Visible:     w.visible(),
		Total:       len(w.photos),
		GeneratedAt: now,
	}
}

func samePhotos(a, b []models.Photo) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Key != b[i].Key {
			return false
		}
	}
	return true
}
