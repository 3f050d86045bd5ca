// Package camera управляет поверхностью съёмки гостя: поток камеры, зум,
// вспышка, переворот камеры и превращение текущего кадра в снимок.
package camera

import (
	"context"
	"errors"
	"image"
	"sync"

	"eventphotos/internal/models"
)

var (
	// ErrNoStream - устройство не сообщило о доступном потоке для направления (отказ в доступе к камере).
	ErrNoStream = errors.New("поток камеры недоступен")
	// ErrUnsupported - ограничение (зум, фонарик) не поддерживается дорожкой.
	ErrUnsupported = errors.New("ограничение не поддерживается камерой")
	// ErrNoFrame - кадр для снимка ещё не получен.
	ErrNoFrame = errors.New("нет кадра для снимка")
	// ErrStopped - дорожка уже остановлена.
	ErrStopped = errors.New("дорожка камеры остановлена")
)

// Resolution - подсказка желаемого разрешения потока.
type Resolution struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// DefaultResolution запрашивается при запуске потока.
var DefaultResolution = Resolution{Width: 1920, Height: 1080}

// ZoomRange - нативный диапазон зума камеры.
type ZoomRange struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Step float64 `json:"step,omitempty"`
}

// Capabilities - возможности открытой дорожки.
type Capabilities struct {
	Zoom        *ZoomRange `json:"zoom,omitempty"`
	CurrentZoom float64    `json:"current_zoom,omitempty"` // 0, если камера не сообщила
	Torch       bool       `json:"torch"`
}

// Track - открытая видеодорожка камеры.
type Track interface {
	Facing() models.Facing
	Capabilities() Capabilities
	ApplyZoom(ctx context.Context, value float64) error
	ApplyTorch(ctx context.Context, on bool) error
	// Frame возвращает текущий кадр потока.
	Frame(ctx context.Context) (image.Image, error)
	Stop()
}

// Device открывает дорожки камеры.
type Device interface {
	Open(ctx context.Context, facing models.Facing, hint Resolution) (Track, error)
}

// Constraints - ограничения, которые клиент должен применить к своей дорожке.
type Constraints struct {
	Zoom  float64 `json:"zoom,omitempty"`
	Torch bool    `json:"torch"`
}

// RemoteDevice - камера браузера гостя. Клиент сообщает возможности открытого
// потока и присылает кадры; решения сервера (зум, фонарик) возвращаются
// клиенту через Constraints.
type RemoteDevice struct {
	mu          sync.Mutex
	caps        map[models.Facing]Capabilities
	frame       image.Image
	constraints Constraints
}

// NewRemoteDevice создаёт устройство без доступных потоков.
func NewRemoteDevice() *RemoteDevice {
	return &RemoteDevice{caps: make(map[models.Facing]Capabilities)}
}

// Report сохраняет возможности потока, который клиенту удалось открыть.
func (d *RemoteDevice) Report(facing models.Facing, caps Capabilities) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.caps[facing] = caps
}

// Revoke отмечает, что поток для направления недоступен (например, нет разрешения).
func (d *RemoteDevice) Revoke(facing models.Facing) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.caps, facing)
}

// PushFrame сохраняет кадр, из которого будет сделан следующий снимок.
func (d *RemoteDevice) PushFrame(img image.Image) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.frame = img
}

// Constraints возвращает текущие ограничения для клиента.
func (d *RemoteDevice) Constraints() Constraints {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.constraints
}

func (d *RemoteDevice) Open(_ context.Context, facing models.Facing, _ Resolution) (Track, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	caps, ok := d.caps[facing]
	if !ok {
		return nil, ErrNoStream
	}
	// Новая дорожка стартует без фонарика и с зумом по умолчанию.
	d.constraints = Constraints{Zoom: caps.CurrentZoom}
	d.frame = nil
	return &remoteTrack{device: d, facing: facing, caps: caps}, nil
}

type remoteTrack struct {
	device  *RemoteDevice
	facing  models.Facing
	caps    Capabilities
	stopped bool
}

func (t *remoteTrack) Facing() models.Facing       { return t.facing }
func (t *remoteTrack) Capabilities() Capabilities { return t.caps }

func (t *remoteTrack) ApplyZoom(_ context.Context, value float64) error {
	if t.caps.Zoom == nil {
		return ErrUnsupported
	}
	t.device.mu.Lock()
	defer t.device.mu.Unlock()
	if t.stopped {
		return ErrStopped
	}
	t.device.constraints.Zoom = value
	return nil
}

func (t *remoteTrack) ApplyTorch(_ context.Context, on bool) error {
	if !t.caps.Torch {
		return ErrUnsupported
	}
	t.device.mu.Lock()
	defer t.device.mu.Unlock()
	if t.stopped {
		return ErrStopped
	}
	t.device.constraints.Torch = on
	return nil
}

// Frame забирает присланный кадр: один кадр даёт не больше одного снимка.
func (t *remoteTrack) Frame(_ context.Context) (image.Image, error) {
	t.device.mu.Lock()
	defer t.device.mu.Unlock()
	if t.stopped {
		return nil, ErrStopped
	}
	if t.device.frame == nil {
		return nil, ErrNoFrame
	}
	f := t.device.frame
	t.device.frame = nil
	return f, nil
}

func (t *remoteTrack) Stop() {
	t.device.mu.Lock()
	defer t.device.mu.Unlock()
	t.stopped = true
	t.device.constraints.Torch = false
}
