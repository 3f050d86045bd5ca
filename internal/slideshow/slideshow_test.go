package slideshow

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"eventphotos/internal/models"
)

var (
	screen = Size{W: 1920, H: 1080}
	tile   = Size{W: 320, H: 240}
)

func seeded() *rand.Rand { return rand.New(rand.NewPCG(1, 2)) }

func photos(n int) []models.Photo {
	out := make([]models.Photo, n)
	for i := range out {
		key := fmt.Sprintf("events/EV/%d.jpg", i)
		out[i] = models.Photo{Key: key, URL: "https://cdn.test/" + key}
	}
	return out
}

func TestPlaceWithinBounds(t *testing.T) {
	p := Placer{MinDistance: 0, MaxAttempts: 10, Rand: seeded()}
	for i := 0; i < 200; i++ {
		pt := p.Place(nil, screen, tile)
		if pt.X < 0 || pt.Y < 0 || pt.X > screen.W-tile.W || pt.Y > screen.H-tile.H {
			t.Fatalf("позиция %+v вне экрана", pt)
		}
	}
}

func TestPlaceKeepsMinDistance(t *testing.T) {
	existing := []Point{{X: 0, Y: 0}}
	p := Placer{MinDistance: 300, MaxAttempts: 30, Rand: seeded()}
	for i := 0; i < 50; i++ {
		pt := p.Place(existing, screen, tile)
		if d := dist(center(pt, tile), center(existing[0], tile)); d < 300 {
			t.Fatalf("позиция %+v ближе минимального расстояния: %.1f", pt, d)
		}
	}
}

func TestPlaceFallbackIsDeterministic(t *testing.T) {
	existing := []Point{{X: 0, Y: 0}}
	// Недостижимое расстояние: все попытки отклоняются.
	p := Placer{MinDistance: math.Inf(1), MaxAttempts: 5, Rand: seeded()}
	want := Point{X: 1600, Y: 810} // самая дальняя ячейка сетки 6x4
	for i := 0; i < 3; i++ {
		if got := p.Place(existing, screen, tile); got != want {
			t.Fatalf("Place = %+v, ожидалось %+v", got, want)
		}
	}
	if got := (Placer{}).Place(nil, screen, tile); got != (Point{}) {
		t.Errorf("без источника случайности и без фото ожидалась первая ячейка, получено %+v", got)
	}
}

func TestWorkingSetEvictsSoonestExpiry(t *testing.T) {
	t0 := time.Unix(1_700_000_000, 0)
	w := NewWorkingSet(2)
	w.Insert(DisplayedPhoto{Key: "a", TransitionID: "1", ExpiryTime: t0.Add(time.Second)})
	w.Insert(DisplayedPhoto{Key: "b", TransitionID: "2", ExpiryTime: t0.Add(2 * time.Second)})

	evicted, ok := w.Insert(DisplayedPhoto{Key: "c", TransitionID: "3", ExpiryTime: t0.Add(3 * time.Second)})
	if !ok || evicted.Key != "a" {
		t.Fatalf("вытеснено %+v (%v), ожидалось a", evicted, ok)
	}
	if w.Len() != 2 || !w.Contains("b") || !w.Contains("c") {
		t.Errorf("набор = %+v", w.Items())
	}
}

func testScatterConfig(max int) ScatterConfig {
	cfg := DefaultScatterConfig()
	cfg.MaxItems = max
	cfg.DurationMin, cfg.DurationMax = 10*time.Second, 10*time.Second
	cfg.RemovalJitter = 0
	cfg.ReplaceDelayMin, cfg.ReplaceDelayMax = time.Second, time.Second
	return cfg
}

func TestScatterNeverExceedsMax(t *testing.T) {
	s := NewScatter("EV", testScatterConfig(3), seeded())
	now := time.Unix(1_700_000_000, 0)
	all := photos(10)

	for i := 0; i < 20; i++ {
		s.Update(all, now)
		s.Tick(now)
		if n := s.set.Len(); n > 3 {
			t.Fatalf("на экране %d фото при максимуме 3", n)
		}
		now = now.Add(700 * time.Millisecond)
	}
}

func TestScatterRemovesAndReplaces(t *testing.T) {
	s := NewScatter("EV", testScatterConfig(3), seeded())
	t0 := time.Unix(1_700_000_000, 0)

	if !s.Update(photos(3), t0) || s.set.Len() != 3 {
		t.Fatalf("после первого опроса на экране %d фото", s.set.Len())
	}
	if s.Tick(t0.Add(9 * time.Second)) {
		t.Error("до истечения показа набор не должен меняться")
	}
	if !s.Tick(t0.Add(10*time.Second)) || s.set.Len() != 0 {
		t.Fatalf("после истечения показа осталось %d фото", s.set.Len())
	}
	// Новых фото нет, поэтому допускаются повторы.
	if !s.Tick(t0.Add(11*time.Second)) || s.set.Len() != 3 {
		t.Fatalf("после паузы на замену на экране %d фото", s.set.Len())
	}
}

func TestScatterPrefersUnshown(t *testing.T) {
	s := NewScatter("EV", testScatterConfig(1), seeded())
	now := time.Unix(1_700_000_000, 0)
	all := photos(2)
	s.Update(all, now) // оба фото уже показаны

	fresh := models.Photo{Key: "events/EV/new.jpg", URL: "https://cdn.test/events/EV/new.jpg"}
	if !s.Update(append(all, fresh), now) {
		t.Fatal("новое фото должно попасть на экран")
	}
	if !s.set.Contains(fresh.Key) {
		t.Errorf("на экране %+v, ожидалось новое фото", s.set.Items())
	}
}

func TestScatterForgetsDeletedPhotos(t *testing.T) {
	s := NewScatter("EV", testScatterConfig(2), seeded())
	now := time.Unix(1_700_000_000, 0)
	all := photos(4)
	s.Update(all[:2], now)
	if len(s.shown) != 2 {
		t.Fatalf("показано %d фото", len(s.shown))
	}

	// Первые два фото удалены из события.
	s.Update(all[2:], now.Add(time.Second))
	for _, p := range all[:2] {
		if s.shown[p.Key] {
			t.Errorf("удалённое фото %s осталось в списке показанных", p.Key)
		}
	}
	if s.Update(nil, now.Add(2*time.Second)); len(s.shown) != 0 {
		t.Errorf("после удаления всех фото помнится %d показанных", len(s.shown))
	}
}

func TestScatterPollIntervalRange(t *testing.T) {
	for i := uint64(0); i < 20; i++ {
		s := NewScatter("EV", DefaultScatterConfig(), rand.New(rand.NewPCG(i, i)))
		if p := s.PollInterval(); p < 2*time.Second || p > 4*time.Second {
			t.Fatalf("интервал опроса %v вне 2-4 с", p)
		}
	}
}

func TestWindowAdvances(t *testing.T) {
	w := NewWindow("EV", LayoutMarquee, WindowConfig{Size: 3, Advance: 5 * time.Second, TickEvery: time.Second})
	t0 := time.Unix(1_700_000_000, 0)
	all := photos(5)
	w.Update(all, t0)

	if w.Tick(t0.Add(4 * time.Second)) {
		t.Error("окно сдвинулось раньше интервала")
	}
	if !w.Tick(t0.Add(5 * time.Second)) {
		t.Fatal("окно не сдвинулось по интервалу")
	}
	vis := w.Snapshot(t0).Visible
	if len(vis) != 3 || vis[0].Key != all[1].Key || vis[2].Key != all[3].Key {
		t.Errorf("видимые фото %+v", vis)
	}
	if w.Key("right", t0) {
		t.Error("клавиши действуют только в варианте presenter")
	}
}

func TestWindowShortListStays(t *testing.T) {
	w := NewWindow("EV", LayoutVenue, WindowConfig{Size: 3, Advance: time.Second})
	t0 := time.Unix(1_700_000_000, 0)
	w.Update(photos(2), t0)
	if w.Tick(t0.Add(time.Minute)) {
		t.Error("все фото видны, окно не должно двигаться")
	}
}

func TestPresenterKeys(t *testing.T) {
	r, err := NewRotator("EV", LayoutPresenter, nil)
	if err != nil {
		t.Fatalf("NewRotator: %v", err)
	}
	now := time.Unix(1_700_000_000, 0)
	all := photos(5)
	r.Update(all, now)

	r.Key("right", now)
	if got := r.Snapshot(now).Visible[0].Key; got != all[1].Key {
		t.Errorf("после right показано %s", got)
	}
	r.Key("left", now)
	r.Key("left", now)
	if got := r.Snapshot(now).Visible[0].Key; got != all[4].Key {
		t.Errorf("после двух left показано %s, ожидалось последнее фото", got)
	}
}

func TestParseLayout(t *testing.T) {
	for _, l := range Layouts {
		if got, err := ParseLayout(string(l)); err != nil || got != l {
			t.Errorf("ParseLayout(%q) = %q, %v", l, got, err)
		}
	}
	if _, err := ParseLayout("carousel"); err == nil {
		t.Error("ожидалась ошибка для неизвестного варианта")
	}
}

type fakeSource struct {
	mu     sync.Mutex
	photos []models.Photo
	err    error
}

func (f *fakeSource) ListPhotos(context.Context, string) ([]models.Photo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.photos, f.err
}

func TestRefreshFailureKeepsStaleSet(t *testing.T) {
	r := NewWindow("EV", LayoutVenue, DefaultWindowConfig(LayoutVenue))
	r.Update(photos(3), time.Now())

	published := 0
	refresh(context.Background(), r, &fakeSource{err: errors.New("сеть недоступна")}, "EV", func(Snapshot) { published++ })

	if published != 0 {
		t.Errorf("при ошибке опроса публикаций быть не должно: %d", published)
	}
	if n := len(r.Snapshot(time.Now()).Visible); n != 3 {
		t.Errorf("прежний набор потерян: %d фото", n)
	}
}

func TestManagerLifecycle(t *testing.T) {
	src := &fakeSource{photos: photos(4)}
	snaps := make(chan Snapshot, 16)
	m := NewManager(src, func(s Snapshot) {
		select {
		case snaps <- s:
		default:
		}
	})
	defer m.Close()

	if _, err := m.Join("EV", LayoutFun); err != nil {
		t.Fatalf("Join: %v", err)
	}
	select {
	case s := <-snaps:
		if s.EventCode != "EV" || s.Layout != LayoutFun || len(s.Items) != 4 {
			t.Errorf("первая публикация %+v", s)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("презентация не опубликовала состояние")
	}

	m.Join("EV", LayoutFun)
	if n := m.Viewers("EV", LayoutFun); n != 2 {
		t.Errorf("экранов %d, ожидалось 2", n)
	}
	m.Leave("EV", LayoutFun)
	m.Leave("EV", LayoutFun)
	if n := m.Viewers("EV", LayoutFun); n != 0 {
		t.Errorf("после ухода всех экранов осталось %d", n)
	}

	// Без экранов состояние строится одним опросом.
	s, err := m.Snapshot(context.Background(), "EV", LayoutGrid)
	if err != nil || len(s.Visible) != 4 {
		t.Errorf("Snapshot = %+v, %v", s, err)
	}

	m.Close()
	if _, err := m.Join("EV", LayoutFun); !errors.Is(err, ErrClosed) {
		t.Errorf("Join после Close: %v", err)
	}
}
