package slideshow

import "time"

// DisplayedPhoto - фото, показанное в данный момент. Не сохраняется.
type DisplayedPhoto struct {
	Key          string    `json:"key"`
	URL          string    `json:"url"`
	TransitionID string    `json:"transition_id"`
	ExpiryTime   time.Time `json:"expiry_time"`
	RemoveAt     time.Time `json:"-"` // ExpiryTime плюс случайный сдвиг
	Position     Point     `json:"position"`
	Size         Size      `json:"size"`
	Rotation     float64   `json:"rotation"`
}

// WorkingSet - ограниченный набор одновременно показанных фото.
type WorkingSet struct {
	max   int
	items []DisplayedPhoto
}

// NewWorkingSet создаёт набор на max фото (не меньше одного).
func NewWorkingSet(max int) *WorkingSet {
	if max < 1 {
		max = 1
	}
	return &WorkingSet{max: max}
}

func (w *WorkingSet) Len() int   { return len(w.items) }
func (w *WorkingSet) Max() int   { return w.max }
func (w *WorkingSet) Full() bool { return len(w.items) >= w.max }

// Items возвращает копию набора.
func (w *WorkingSet) Items() []DisplayedPhoto {
	return append([]DisplayedPhoto(nil), w.items...)
}

// Contains сообщает, показано ли фото с ключом key.
func (w *WorkingSet) Contains(key string) bool {
	for _, it := range w.items {
		if it.Key == key {
			return true
		}
	}
	return false
}

// Positions - позиции показанных фото.
func (w *WorkingSet) Positions() []Point {
	ps := make([]Point, len(w.items))
	for i, it := range w.items {
		ps[i] = it.Position
	}
	return ps
}

// Insert добавляет фото. Если набор заполнен, вытесняется фото с самым
// ранним ExpiryTime; оно возвращается вторым значением.
func (w *WorkingSet) Insert(item DisplayedPhoto) (DisplayedPhoto, bool) {
	var evicted DisplayedPhoto
	var didEvict bool
	if w.Full() {
		soonest := 0
		for i, it := range w.items {
			if it.ExpiryTime.Before(w.items[soonest].ExpiryTime) {
				soonest = i
			}
		}
		evicted, didEvict = w.items[soonest], true
		w.items = append(w.items[:soonest], w.items[soonest+1:]...)
	}
	w.items = append(w.items, item)
	return evicted, didEvict
}

// Remove убирает фото с идентификатором перехода transitionID.
func (w *WorkingSet) Remove(transitionID string) bool {
	for i, it := range w.items {
		if it.TransitionID == transitionID {
			w.items = append(w.items[:i], w.items[i+1:]...)
			return true
		}
	}
	return false
}

// Due возвращает фото, время удаления которых наступило.
func (w *WorkingSet) Due(now time.Time) []DisplayedPhoto {
	var due []DisplayedPhoto
	for _, it := range w.items {
		if !it.RemoveAt.After(now) {
			due = append(due, it)
		}
	}
	return due
}
