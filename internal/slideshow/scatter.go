package slideshow

import (
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"eventphotos/internal/models"

	"github.com/google/uuid"
)

// ScatterConfig - параметры варианта fun.
type ScatterConfig struct {
	MaxItems        int
	PollMin         time.Duration
	PollMax         time.Duration
	DurationMin     time.Duration
	DurationMax     time.Duration
	RemovalJitter   time.Duration
	ReplaceDelayMin time.Duration
	ReplaceDelayMax time.Duration
	TickEvery       time.Duration
	Bounds          Size
	PhotoSize       Size
	MinDistance     float64
	MaxAttempts     int
	MaxRotation     float64 // градусы
}

func DefaultScatterConfig() ScatterConfig {
	return ScatterConfig{
		MaxItems:        18,
		PollMin:         2 * time.Second,
		PollMax:         4 * time.Second,
		DurationMin:     7 * time.Second,
		DurationMax:     10 * time.Second,
		RemovalJitter:   time.Second,
		ReplaceDelayMin: 300 * time.Millisecond,
		ReplaceDelayMax: 1500 * time.Millisecond,
		TickEvery:       100 * time.Millisecond,
		Bounds:          Size{W: 1920, H: 1080},
		PhotoSize:       Size{W: 320, H: 240},
		MinDistance:     220,
		MaxAttempts:     30,
		MaxRotation:     12,
	}
}

// Scatter разбрасывает фото по экрану. Каждое фото показывается
// ограниченное время, затем удаляется и после небольшой паузы
// заменяется другим, по возможности ещё не показанным.
type Scatter struct {
	eventCode string
	cfg       ScatterConfig
	poll      time.Duration

	mu      sync.Mutex
	rng     *rand.Rand
	placer  Placer
	set     *WorkingSet
	photos  []models.Photo
	shown   map[string]bool
	pending []time.Time // запланированные замены
}

// NewScatter создаёт логику варианта fun. rng == nil - случайный источник.
func NewScatter(eventCode string, cfg ScatterConfig, rng *rand.Rand) *Scatter {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Scatter{
		eventCode: eventCode,
		cfg:       cfg,
		poll:      randDuration(rng, cfg.PollMin, cfg.PollMax),
		rng:       rng,
		placer:    Placer{MinDistance: cfg.MinDistance, MaxAttempts: cfg.MaxAttempts, Rand: rng},
		set:       NewWorkingSet(cfg.MaxItems),
		shown:     make(map[string]bool),
	}
}

func (s *Scatter) PollInterval() time.Duration { return s.poll }
func (s *Scatter) TickInterval() time.Duration { return s.cfg.TickEvery }

// Key ничего не делает: вариант fun не управляется с клавиатуры.
func (s *Scatter) Key(string, time.Time) bool { return false }

// Update заполняет свободные места свежими фото. Если набор заполнен,
// а есть ещё не показанное фото, оно вытесняет фото с ближайшим концом показа.
func (s *Scatter) Update(photos []models.Photo, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.photos = photos
	// Удалённые фото больше не нужно помнить как показанные.
	current := make(map[string]bool, len(photos))
	for _, p := range photos {
		current[p.Key] = true
	}
	for key := range s.shown {
		if !current[key] {
			delete(s.shown, key)
		}
	}

	changed := false
	for !s.set.Full() {
		p, ok := s.pick(true)
		if !ok {
			break
		}
		s.insert(p, now)
		changed = true
	}
	if s.set.Full() {
		if p, ok := s.pick(true); ok {
			s.insert(p, now)
			changed = true
		}
	}
	return changed
}

// Tick удаляет фото с истёкшим показом и выполняет наступившие замены.
func (s *Scatter) Tick(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	for _, it := range s.set.Due(now) {
		s.set.Remove(it.TransitionID)
		s.pending = append(s.pending, now.Add(randDuration(s.rng, s.cfg.ReplaceDelayMin, s.cfg.ReplaceDelayMax)))
		changed = true
	}

	sort.Slice(s.pending, func(i, j int) bool { return s.pending[i].Before(s.pending[j]) })
	for len(s.pending) > 0 && !s.pending[0].After(now) {
		s.pending = s.pending[1:]
		// Сначала ещё не показанные, иначе допускаются повторы.
		p, ok := s.pick(true)
		if !ok {
			p, ok = s.pick(false)
		}
		if !ok {
			continue
		}
		s.insert(p, now)
		changed = true
	}
	return changed
}

// pick выбирает случайное фото, которого нет на экране.
// fresh ограничивает выбор фото, ещё ни разу не показанными.
func (s *Scatter) pick(fresh bool) (models.Photo, bool) {
	var candidates []models.Photo
	for _, p := range s.photos {
		if s.set.Contains(p.Key) || (fresh && s.shown[p.Key]) {
			continue
		}
		candidates = append(candidates, p)
	}
	if len(candidates) == 0 {
		return models.Photo{}, false
	}
	return candidates[s.rng.IntN(len(candidates))], true
}

func (s *Scatter) insert(p models.Photo, now time.Time) {
	expiry := now.Add(randDuration(s.rng, s.cfg.DurationMin, s.cfg.DurationMax))
	item := DisplayedPhoto{
		Key:          p.Key,
		URL:          p.URL,
		TransitionID: uuid.NewString(),
		ExpiryTime:   expiry,
		RemoveAt:     expiry.Add(randDuration(s.rng, 0, s.cfg.RemovalJitter)),
		Position:     s.placer.Place(s.set.Positions(), s.cfg.Bounds, s.cfg.PhotoSize),
		Size:         s.cfg.PhotoSize,
		Rotation:     (s.rng.Float64()*2 - 1) * s.cfg.MaxRotation,
	}
	s.set.Insert(item)
	s.shown[p.Key] = true
}

func (s *Scatter) Snapshot(now time.Time) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		EventCode:   s.eventCode,
		Layout:      LayoutFun,
		Items:       s.set.Items(),
		Total:       len(s.photos),
		GeneratedAt: now,
	}
}
