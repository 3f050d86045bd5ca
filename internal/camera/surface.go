package camera

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"eventphotos/internal/models"
	"eventphotos/internal/services"
	"eventphotos/internal/staging"
)

const (
	// CapturingFlagDuration - сколько держится флаг «идёт съёмка» после снимка.
	CapturingFlagDuration = 150 * time.Millisecond
	// FrontFlashDelay - задержка белой вспышки экрана перед снимком фронтальной камерой.
	FrontFlashDelay = 250 * time.Millisecond
)

var (
	// ErrNotPreviewing - поток не запущен.
	ErrNotPreviewing = errors.New("камера не запущена")
	// ErrZoomLevel - уровень зума недоступен для текущей камеры.
	ErrZoomLevel = errors.New("недопустимый уровень зума")
)

// State - состояние поверхности съёмки.
type State string

const (
	StateIdle       State = "idle"
	StatePreviewing State = "previewing"
)

// Stager - промежуточный список, в который попадают снимки.
type Stager interface {
	Append(ctx context.Context, deviceID, eventCode string, data []byte) (models.CapturedImage, error)
	Len(ctx context.Context, deviceID, eventCode string) (int, error)
	Limit() int
}

// Shot - результат успешного снимка.
type Shot struct {
	Image        models.CapturedImage `json:"image"`
	Haptic       bool                 `json:"haptic"`        // Клиенту стоит коротко завибрировать
	FlashOverlay bool                 `json:"flash_overlay"` // Была имитирована вспышка экраном
}

// Status - снимок состояния поверхности для клиента.
type Status struct {
	State       State         `json:"state"`
	Facing      models.Facing `json:"facing,omitempty"`
	ZoomLevel   float64       `json:"zoom_level"`
	ZoomLevels  []float64     `json:"zoom_levels"`
	Flash       bool          `json:"flash"`
	Capturing   bool          `json:"capturing"`
	Constraints *Constraints  `json:"constraints,omitempty"`
	Staged      int           `json:"staged"`
	StagedLimit int           `json:"staged_limit"`
}

// Surface - поверхность съёмки одного гостевого устройства.
// Все операции сериализуются мьютексом, поэтому при быстрых повторных
// переворотах побеждает последний запрос.
type Surface struct {
	device    Device
	stager    Stager
	deviceID  string
	eventCode string

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	mu             sync.Mutex
	state          State
	track          Track
	facing         models.Facing
	baseline       float64
	zoomLevel      float64
	flash          bool
	capturingUntil time.Time
	taps           TapDetector
}

// NewSurface создаёт поверхность в состоянии Idle.
func NewSurface(device Device, stager Stager, deviceID, eventCode string) *Surface {
	return &Surface{
		device:    device,
		stager:    stager,
		deviceID:  deviceID,
		eventCode: eventCode,
		now:       time.Now,
		sleep:     sleepCtx,
		state:     StateIdle,
		zoomLevel: 1,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// StartFeed запускает поток камеры с направлением facing.
// При ошибке поверхность остаётся в Idle, ошибка логируется и возвращается.
func (s *Surface) StartFeed(ctx context.Context, facing models.Facing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startLocked(ctx, facing)
}

func (s *Surface) startLocked(ctx context.Context, facing models.Facing) error {
	s.stopLocked()

	track, err := s.device.Open(ctx, facing, DefaultResolution)
	if err != nil {
		slog.Warn("Не удалось запустить камеру", "device_id", s.deviceID, "facing", facing, "error", err)
		return fmt.Errorf("не удалось запустить камеру (%s): %w", facing, err)
	}

	s.track = track
	s.facing = facing
	s.state = StatePreviewing
	s.baseline = baselineZoom(track.Capabilities())
	s.zoomLevel = 1
	// Фонарик гаснет вместе со старой дорожкой.
	s.flash = false
	slog.Debug("Камера запущена", "device_id", s.deviceID, "facing", facing, "baseline_zoom", s.baseline)
	return nil
}

func (s *Surface) stopLocked() {
	if s.track != nil {
		s.track.Stop()
		s.track = nil
	}
	s.state = StateIdle
}

// Flip перезапускает поток с противоположным направлением камеры.
func (s *Surface) Flip(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flipLocked(ctx)
}

func (s *Surface) flipLocked(ctx context.Context) error {
	next := models.FacingBack
	if s.facing.Valid() {
		next = s.facing.Opposite()
	}
	return s.startLocked(ctx, next)
}

// Tap обрабатывает касание поверхности; двойной тап вне элементов управления переворачивает камеру.
func (s *Surface) Tap(ctx context.Context, target string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.taps.Tap(s.now(), target) {
		return false, nil
	}
	return true, s.flipLocked(ctx)
}

// SetZoom применяет уровень зума интерфейса и возвращает нативное значение.
// Ошибки применения ограничения к дорожке только логируются.
func (s *Surface) SetZoom(ctx context.Context, level float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StatePreviewing {
		return 0, ErrNotPreviewing
	}
	if !validZoomLevel(s.facing, level) {
		return 0, fmt.Errorf("%w: %.1f для камеры %s", ErrZoomLevel, level, s.facing)
	}
	s.zoomLevel = level

	caps := s.track.Capabilities()
	if caps.Zoom == nil {
		slog.Debug("Камера не поддерживает зум", "device_id", s.deviceID)
		return 0, nil
	}
	native := NativeZoom(level, *caps.Zoom, s.baseline)
	if err := s.track.ApplyZoom(ctx, native); err != nil {
		slog.Warn("Не удалось применить зум", "device_id", s.deviceID, "level", level, "native", native, "error", err)
	}
	return native, nil
}

// ToggleFlash переключает вспышку и возвращает новое состояние.
// Для основной камеры включается фонарик, для фронтальной вспышка имитируется экраном при снимке.
func (s *Surface) ToggleFlash(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StatePreviewing {
		return false, ErrNotPreviewing
	}
	s.flash = !s.flash
	if s.facing == models.FacingBack {
		if err := s.track.ApplyTorch(ctx, s.flash); err != nil {
			slog.Warn("Не удалось переключить фонарик", "device_id", s.deviceID, "on", s.flash, "error", err)
		}
	}
	return s.flash, nil
}

// Capture делает снимок текущего кадра и добавляет его в промежуточный список.
// При заполненном списке возвращает staging.ErrFull и ничего не создаёт.
func (s *Surface) Capture(ctx context.Context) (Shot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StatePreviewing {
		return Shot{}, ErrNotPreviewing
	}
	n, err := s.stager.Len(ctx, s.deviceID, s.eventCode)
	if err != nil {
		return Shot{}, err
	}
	if n >= s.stager.Limit() {
		return Shot{}, staging.ErrFull
	}

	simulated := s.flash && s.facing == models.FacingFront
	if simulated {
		if err := s.sleep(ctx, FrontFlashDelay); err != nil {
			return Shot{}, err
		}
	}

	frame, err := s.track.Frame(ctx)
	if err != nil {
		return Shot{}, fmt.Errorf("не удалось получить кадр: %w", err)
	}
	data, err := services.EncodeStill(frame, s.facing == models.FacingFront)
	if err != nil {
		return Shot{}, err
	}
	img, err := s.stager.Append(ctx, s.deviceID, s.eventCode, data)
	if err != nil {
		return Shot{}, err
	}

	s.capturingUntil = s.now().Add(CapturingFlagDuration)
	slog.Info("Снимок сделан", "device_id", s.deviceID, "image_id", img.ID, "bytes", len(data))
	return Shot{Image: img, Haptic: true, FlashOverlay: simulated}, nil
}

// Status возвращает текущее состояние поверхности.
func (s *Surface) Status(ctx context.Context) Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		State:       s.state,
		Facing:      s.facing,
		ZoomLevel:   s.zoomLevel,
		Flash:       s.flash,
		Capturing:   s.now().Before(s.capturingUntil),
		StagedLimit: s.stager.Limit(),
	}
	if s.facing.Valid() {
		st.ZoomLevels = ZoomLevels(s.facing)
	}
	if rd, ok := s.device.(*RemoteDevice); ok && s.state == StatePreviewing {
		c := rd.Constraints()
		st.Constraints = &c
	}
	if n, err := s.stager.Len(ctx, s.deviceID, s.eventCode); err == nil {
		st.Staged = n
	} else {
		slog.Warn("Не удалось получить длину промежуточного списка", "device_id", s.deviceID, "error", err)
	}
	return st
}

// Close останавливает все дорожки устройства.
func (s *Surface) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}
