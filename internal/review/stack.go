package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"eventphotos/internal/models"
)

// HintDuration - сколько показываются подсказки клавиатуры.
const HintDuration = 3 * time.Second

// ErrUnknownKey - клавиша не участвует в просмотре.
var ErrUnknownKey = errors.New("неизвестная клавиша")

// Exits - выходы с экрана «всё просмотрено».
var Exits = []string{"dashboard", "capture"}

// Stager - промежуточный список снимков устройства.
type Stager interface {
	EnterReview(ctx context.Context, deviceID, eventCode string) ([]models.CapturedImage, error)
	List(ctx context.Context, deviceID, eventCode string) ([]models.CapturedImage, error)
	Take(ctx context.Context, deviceID, eventCode string, imageID int64) (models.CapturedImage, error)
}

// Uploader запускает загрузку снимка; removed сообщает, что снимок изъят из списка.
type Uploader interface {
	Submit(deviceID, eventCode string, img models.CapturedImage, removed bool)
}

// State - состояние стопки для клиента.
type State struct {
	Items        []models.CapturedImage `json:"items"`
	CurrentIndex int                    `json:"current_index"`
	HintsVisible bool                   `json:"hints_visible"`
	AllReviewed  bool                   `json:"all_reviewed"`
	Exits        []string               `json:"exits,omitempty"`
}

// Feedback - визуальное состояние во время перетаскивания.
type Feedback struct {
	Axis Axis `json:"axis"`
	Near bool `json:"near"`
}

// Outcome - результат жеста или клавиши.
type Outcome struct {
	Resolution Resolution `json:"resolution"`
	ImageID    int64      `json:"image_id,omitempty"`
	State      State      `json:"state"`
}

// Stack - стопка просмотра одного устройства.
// Список снимков не хранится: он всегда читается из промежуточного хранилища.
type Stack struct {
	stager    Stager
	uploader  Uploader
	deviceID  string
	eventCode string
	now       func() time.Time

	mu           sync.Mutex
	index        int
	axis         Axis
	touch        bool
	hintsShownAt time.Time
}

// NewStack создаёт стопку для устройства deviceID.
func NewStack(stager Stager, uploader Uploader, deviceID, eventCode string) *Stack {
	return &Stack{
		stager:    stager,
		uploader:  uploader,
		deviceID:  deviceID,
		eventCode: eventCode,
		now:       time.Now,
	}
}

// Enter начинает просмотр с первого снимка. touch - устройство с сенсорным вводом,
// для него клавиатура и подсказки отключены.
func (s *Stack) Enter(ctx context.Context, touch bool) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.stager.EnterReview(ctx, s.deviceID, s.eventCode)
	if err != nil {
		return State{}, err
	}
	s.index = 0
	s.axis = AxisNone
	s.touch = touch
	if !touch {
		s.hintsShownAt = s.now()
	}
	return s.stateFromLocked(list), nil
}

// State возвращает текущее состояние.
func (s *Stack) State(ctx context.Context) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked(ctx)
}

func (s *Stack) stateLocked(ctx context.Context) (State, error) {
	list, err := s.stager.List(ctx, s.deviceID, s.eventCode)
	if err != nil {
		return State{}, err
	}
	return s.stateFromLocked(list), nil
}

func (s *Stack) stateFromLocked(list []models.CapturedImage) State {
	s.clampLocked(len(list))

	st := State{
		Items:        list,
		CurrentIndex: s.index,
		HintsVisible: !s.touch && !s.hintsShownAt.IsZero() && s.now().Sub(s.hintsShownAt) < HintDuration,
	}
	if len(list) == 0 {
		st.AllReviewed = true
		st.Exits = Exits
	}
	return st
}

func (s *Stack) clampLocked(n int) {
	if s.index > n-1 {
		s.index = n - 1
	}
	if s.index < 0 {
		s.index = 0
	}
}

// BeginDrag фиксирует ось жеста по начальному смещению.
func (s *Stack) BeginDrag(dx, dy float64) Axis {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.axis = ClassifyAxis(dx, dy)
	return s.axis
}

// Move возвращает визуальное состояние для текущего смещения.
func (s *Stack) Move(g Gesture, viewportHeight float64) Feedback {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.axis == AxisNone {
		s.axis = ClassifyAxis(g.OffsetX, g.OffsetY)
	}
	fb := Feedback{Axis: s.axis}
	if s.axis == AxisVertical {
		fb.Near = NearThreshold(g.OffsetY, viewportHeight)
	}
	return fb
}

// Release разрешает жест при отпускании и применяет результат.
func (s *Stack) Release(ctx context.Context, g Gesture, viewportHeight float64) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	axis := s.axis
	if axis == AxisNone {
		axis = ClassifyAxis(g.OffsetX, g.OffsetY)
	}
	s.axis = AxisNone
	return s.applyLocked(ctx, Resolve(axis, g, viewportHeight))
}

// Key обрабатывает клавиши стрелок. На сенсорных устройствах клавиатура не действует.
func (s *Stack) Key(ctx context.Context, key string) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res Resolution
	switch key {
	case "ArrowLeft", "Left", "left":
		res = Previous
	case "ArrowRight", "Right", "right":
		res = Next
	case "ArrowUp", "Up", "up":
		res = CommitUp
	case "ArrowDown", "Down", "down":
		res = CommitDown
	default:
		return Outcome{}, fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	if s.touch {
		res = SnapBack
	}
	return s.applyLocked(ctx, res)
}

func (s *Stack) applyLocked(ctx context.Context, res Resolution) (Outcome, error) {
	list, err := s.stager.List(ctx, s.deviceID, s.eventCode)
	if err != nil {
		return Outcome{}, err
	}
	s.clampLocked(len(list))
	out := Outcome{Resolution: res}

	switch res {
	case Previous:
		if s.index > 0 {
			s.index--
		}
	case Next:
		if s.index < len(list)-1 {
			s.index++
		}
	case CommitUp, CommitDown:
		if len(list) == 0 {
			out.Resolution = SnapBack
			break
		}
		focused := list[s.index]
		wasLast := s.index == len(list)-1

		// Снимок изымается из списка сразу, не дожидаясь загрузки.
		img, err := s.stager.Take(ctx, s.deviceID, s.eventCode, focused.ID)
		if err != nil {
			return Outcome{}, fmt.Errorf("не удалось изъять снимок %d: %w", focused.ID, err)
		}
		out.ImageID = img.ID

		if res == CommitUp {
			// Загрузка и возврат при ошибке идут в событие самого снимка.
			s.uploader.Submit(s.deviceID, img.EventCode, img, true)
			slog.Info("Снимок отправлен на загрузку", "device_id", s.deviceID, "image_id", img.ID)
		} else {
			slog.Info("Снимок отброшен", "device_id", s.deviceID, "image_id", img.ID)
		}

		if wasLast && len(list) > 1 {
			s.index--
		}
	}

	st, err := s.stateLocked(ctx)
	if err != nil {
		return Outcome{}, err
	}
	out.State = st
	return out, nil
}

// Registry хранит стопки просмотра по ID устройства.
type Registry struct {
	stager   Stager
	uploader Uploader

	mu     sync.Mutex
	stacks map[string]*Stack
}

// NewRegistry создаёт пустой реестр.
func NewRegistry(stager Stager, uploader Uploader) *Registry {
	return &Registry{stager: stager, uploader: uploader, stacks: make(map[string]*Stack)}
}

// Get возвращает стопку устройства для события eventCode.
func (r *Registry) Get(deviceID, eventCode string) *Stack {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.stacks[deviceID]; ok && s.eventCode == eventCode {
		return s
	}
	s := NewStack(r.stager, r.uploader, deviceID, eventCode)
	r.stacks[deviceID] = s
	return s
}
