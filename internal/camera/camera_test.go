package camera

import (
	"context"
	"errors"
	"image"
	"image/color"
	"math"
	"testing"
	"time"

	"eventphotos/internal/models"
	"eventphotos/internal/staging"
)

// memStager - промежуточный список в памяти для тестов.
type memStager struct {
	limit  int
	images []models.CapturedImage
	nextID int64
}

func (m *memStager) Append(_ context.Context, _, _ string, data []byte) (models.CapturedImage, error) {
	if len(m.images) >= m.limit {
		return models.CapturedImage{}, staging.ErrFull
	}
	m.nextID++
	img := models.CapturedImage{ID: m.nextID, Data: data}
	m.images = append(m.images, img)
	return img, nil
}

func (m *memStager) Len(context.Context, string, string) (int, error) { return len(m.images), nil }
func (m *memStager) Limit() int                                      { return m.limit }

func frame() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 8, 4))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	return img
}

func newTestSurface(t *testing.T) (*Surface, *RemoteDevice, *memStager) {
	t.Helper()
	dev := NewRemoteDevice()
	dev.Report(models.FacingBack, Capabilities{Zoom: &ZoomRange{Min: 0.5, Max: 10}, CurrentZoom: 1, Torch: true})
	dev.Report(models.FacingFront, Capabilities{Zoom: &ZoomRange{Min: 1, Max: 4}})
	st := &memStager{limit: staging.Limit}
	s := NewSurface(dev, st, "dev", "EV")
	s.sleep = func(context.Context, time.Duration) error { return nil }
	return s, dev, st
}

func TestNativeZoom(t *testing.T) {
	tests := []struct {
		name     string
		level    float64
		r        ZoomRange
		baseline float64
		want     float64
	}{
		{"ультраширокий уровень на минимуме", 0.5, ZoomRange{Min: 0.5, Max: 10}, 1, 0.5},
		{"1x равен baseline", 1, ZoomRange{Min: 0.5, Max: 10}, 1, 1},
		{"1.2x масштабирует baseline", 1.2, ZoomRange{Min: 0.5, Max: 10}, 2, 2.4},
		{"ниже минимума ограничивается", 0.5, ZoomRange{Min: 1, Max: 8}, 1, 1},
		{"выше максимума ограничивается", 1.2, ZoomRange{Min: 1, Max: 1.1}, 1, 1.1},
		{"промежуточный уровень интерполируется", 0.75, ZoomRange{Min: 0.5, Max: 10}, 1, 0.75},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NativeZoom(tt.level, tt.r, tt.baseline)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("NativeZoom(%v) = %v, ожидалось %v", tt.level, got, tt.want)
			}
		})
	}
}

func TestStartFeedFailureLeavesIdle(t *testing.T) {
	dev := NewRemoteDevice()
	s := NewSurface(dev, &memStager{limit: 5}, "dev", "EV")
	if err := s.StartFeed(context.Background(), models.FacingBack); !errors.Is(err, ErrNoStream) {
		t.Fatalf("ожидалась ErrNoStream, получено %v", err)
	}
	if st := s.Status(context.Background()); st.State != StateIdle {
		t.Errorf("состояние %s, ожидалось idle", st.State)
	}
	if _, err := s.Capture(context.Background()); !errors.Is(err, ErrNotPreviewing) {
		t.Errorf("снимок без потока: ожидалась ErrNotPreviewing, получено %v", err)
	}
}

func TestSetZoomAppliesNativeValue(t *testing.T) {
	s, dev, _ := newTestSurface(t)
	ctx := context.Background()
	if err := s.StartFeed(ctx, models.FacingBack); err != nil {
		t.Fatalf("StartFeed: %v", err)
	}

	native, err := s.SetZoom(ctx, 0.5)
	if err != nil {
		t.Fatalf("SetZoom: %v", err)
	}
	if native != 0.5 || dev.Constraints().Zoom != 0.5 {
		t.Errorf("native = %v, constraint = %v", native, dev.Constraints().Zoom)
	}

	// 0.5x недоступен для фронтальной камеры.
	if err := s.Flip(ctx); err != nil {
		t.Fatalf("Flip: %v", err)
	}
	if _, err := s.SetZoom(ctx, 0.5); !errors.Is(err, ErrZoomLevel) {
		t.Errorf("ожидалась ErrZoomLevel, получено %v", err)
	}
}

func TestToggleFlash(t *testing.T) {
	s, dev, _ := newTestSurface(t)
	ctx := context.Background()
	s.StartFeed(ctx, models.FacingBack)

	on, err := s.ToggleFlash(ctx)
	if err != nil || !on {
		t.Fatalf("ToggleFlash = %v, %v", on, err)
	}
	if !dev.Constraints().Torch {
		t.Error("фонарик основной камеры должен быть включён")
	}

	// После переворота фонарик гаснет, вспышка фронтальной камеры имитируется.
	s.Flip(ctx)
	if dev.Constraints().Torch {
		t.Error("фонарик должен погаснуть при смене дорожки")
	}
	var slept time.Duration
	s.sleep = func(_ context.Context, d time.Duration) error { slept = d; return nil }
	s.ToggleFlash(ctx)
	dev.PushFrame(frame())
	shot, err := s.Capture(ctx)
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if !shot.FlashOverlay || slept != FrontFlashDelay {
		t.Errorf("FlashOverlay = %v, задержка %v", shot.FlashOverlay, slept)
	}
}

func TestCaptureRefusedAtLimit(t *testing.T) {
	s, dev, st := newTestSurface(t)
	ctx := context.Background()
	s.StartFeed(ctx, models.FacingBack)

	for i := 0; i < staging.Limit; i++ {
		dev.PushFrame(frame())
		shot, err := s.Capture(ctx)
		if err != nil {
			t.Fatalf("Capture #%d: %v", i, err)
		}
		if !shot.Haptic {
			t.Error("ожидалась подсказка вибрации")
		}
	}
	dev.PushFrame(frame())
	if _, err := s.Capture(ctx); !errors.Is(err, staging.ErrFull) {
		t.Fatalf("шестой снимок: ожидалась staging.ErrFull, получено %v", err)
	}
	if len(st.images) != staging.Limit {
		t.Errorf("в списке %d снимков, ожидалось %d", len(st.images), staging.Limit)
	}
}

func TestCapturingFlagIsTransient(t *testing.T) {
	s, dev, _ := newTestSurface(t)
	ctx := context.Background()
	now := time.Unix(1000, 0)
	s.now = func() time.Time { return now }
	s.StartFeed(ctx, models.FacingBack)

	dev.PushFrame(frame())
	if _, err := s.Capture(ctx); err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if !s.Status(ctx).Capturing {
		t.Error("сразу после снимка флаг должен быть установлен")
	}
	now = now.Add(CapturingFlagDuration)
	if s.Status(ctx).Capturing {
		t.Error("флаг должен сброситься через 150 мс")
	}
}

func TestDoubleTapFlips(t *testing.T) {
	s, _, _ := newTestSurface(t)
	ctx := context.Background()
	now := time.Unix(1000, 0)
	s.now = func() time.Time { return now }
	s.StartFeed(ctx, models.FacingBack)

	if flipped, _ := s.Tap(ctx, "surface"); flipped {
		t.Fatal("одиночный тап не должен переворачивать камеру")
	}
	now = now.Add(200 * time.Millisecond)
	flipped, err := s.Tap(ctx, "surface")
	if err != nil || !flipped {
		t.Fatalf("двойной тап: flipped = %v, err = %v", flipped, err)
	}
	if s.Status(ctx).Facing != models.FacingFront {
		t.Errorf("камера не перевернулась")
	}

	// Касание элемента управления сбрасывает двойной тап.
	now = now.Add(time.Second)
	s.Tap(ctx, "surface")
	now = now.Add(100 * time.Millisecond)
	if flipped, _ := s.Tap(ctx, "shutter"); flipped {
		t.Error("тап по кнопке затвора не должен переворачивать камеру")
	}
}

func TestTapDetectorWindow(t *testing.T) {
	var d TapDetector
	t0 := time.Unix(0, 0)
	d.Tap(t0, "surface")
	if d.Tap(t0.Add(DoubleTapWindow+time.Millisecond), "surface") {
		t.Error("касания дальше 300 мс не являются двойным тапом")
	}
}

func TestRegistryReplacesSessionOnEventChange(t *testing.T) {
	r := NewRegistry(&memStager{limit: 5})
	a := r.Get("dev", "EV1")
	if r.Get("dev", "EV1") != a {
		t.Fatal("повторный Get должен вернуть ту же сессию")
	}
	if r.Get("dev", "EV2") == a {
		t.Fatal("смена события должна создать новую сессию")
	}
	r.Remove("dev")
}
