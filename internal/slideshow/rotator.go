// Package slideshow выбирает, какие фото события показывать на экранах
// презентации и когда их менять.
package slideshow

import (
	"fmt"
	"math/rand/v2"
	"time"

	"eventphotos/internal/models"
)

// Layout - вариант отображения презентации.
type Layout string

const (
	LayoutGrid      Layout = "grid"
	LayoutFun       Layout = "fun"
	LayoutPresenter Layout = "presenter"
	LayoutMarquee   Layout = "marquee"
	LayoutVenue     Layout = "venue"
)

// Layouts - все поддерживаемые варианты в порядке показа в меню.
var Layouts = []Layout{LayoutGrid, LayoutFun, LayoutPresenter, LayoutMarquee, LayoutVenue}

// ParseLayout проверяет название варианта.
func ParseLayout(s string) (Layout, error) {
	for _, l := range Layouts {
		if string(l) == s {
			return l, nil
		}
	}
	return "", fmt.Errorf("неизвестный вариант презентации %q", s)
}

// Snapshot - состояние презентации, отправляемое экранам.
type Snapshot struct {
	EventCode   string           `json:"event_code"`
	Layout      Layout           `json:"layout"`
	Items       []DisplayedPhoto `json:"items,omitempty"`   // fun
	Visible     []models.Photo   `json:"visible,omitempty"` // остальные варианты
	Total       int              `json:"total"`
	GeneratedAt time.Time        `json:"generated_at"`
}

// Rotator - логика смены фото одного варианта презентации.
// Реализации безопасны для одновременного использования.
type Rotator interface {
	// Update принимает свежий список фото события. Возвращает true,
	// если показанный набор изменился.
	Update(photos []models.Photo, now time.Time) bool
	// Tick продвигает время. Возвращает true, если набор изменился.
	Tick(now time.Time) bool
	// Key обрабатывает клавишу презентатора ("left", "right").
	Key(key string, now time.Time) bool
	Snapshot(now time.Time) Snapshot
	PollInterval() time.Duration
	TickInterval() time.Duration
}

// NewRotator создаёт логику для варианта layout события eventCode.
func NewRotator(eventCode string, layout Layout, rng *rand.Rand) (Rotator, error) {
	switch layout {
	case LayoutFun:
		return NewScatter(eventCode, DefaultScatterConfig(), rng), nil
	case LayoutGrid, LayoutPresenter, LayoutMarquee, LayoutVenue:
		return NewWindow(eventCode, layout, DefaultWindowConfig(layout)), nil
	default:
		return nil, fmt.Errorf("неизвестный вариант презентации %q", layout)
	}
}

// randDuration - случайная длительность в [min, max].
func randDuration(rng *rand.Rand, min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rng.Int64N(int64(max-min)+1))
}
