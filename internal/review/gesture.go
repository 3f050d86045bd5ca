// Package review реализует стопку просмотра снимков: вертикальный жест вверх
// отправляет снимок на загрузку, вниз - отбрасывает, горизонтальный жест
// переключает текущий снимок.
package review

import "math"

// Пороги жестов.
const (
	// VelocityThreshold - скорость (px/s), при которой вертикальный жест срабатывает независимо от смещения.
	VelocityThreshold = 400.0
	// CommitFraction - доля высоты экрана, после которой вертикальный жест срабатывает.
	CommitFraction = 0.25
	// NearFraction - доля высоты экрана для визуального состояния «почти».
	NearFraction = 0.15
	// NavigateThreshold - горизонтальное смещение (px) для перехода к соседнему снимку.
	NavigateThreshold = 100.0
)

// Axis - ось жеста, фиксируется при его начале.
type Axis string

const (
	AxisNone       Axis = ""
	AxisHorizontal Axis = "horizontal"
	AxisVertical   Axis = "vertical"
)

// Resolution - итог жеста или клавиши.
type Resolution string

const (
	SnapBack   Resolution = "snap_back"
	CommitUp   Resolution = "commit_up"   // Сохранить и загрузить
	CommitDown Resolution = "commit_down" // Отбросить
	Previous   Resolution = "previous"
	Next       Resolution = "next"
)

// Gesture - конечное состояние перетаскивания при отпускании.
type Gesture struct {
	OffsetX   float64 `json:"offset_x"`
	OffsetY   float64 `json:"offset_y"`
	VelocityX float64 `json:"velocity_x"`
	VelocityY float64 `json:"velocity_y"`
}

// ClassifyAxis определяет ось по начальному смещению: побеждает ось с большим смещением.
func ClassifyAxis(dx, dy float64) Axis {
	if dx == 0 && dy == 0 {
		return AxisNone
	}
	if math.Abs(dx) > math.Abs(dy) {
		return AxisHorizontal
	}
	return AxisVertical
}

// ResolveVertical - чистая функция от (offsetY, velocityY) и высоты экрана.
// Отрицательное смещение - вверх.
func ResolveVertical(offsetY, velocityY, viewportHeight float64) Resolution {
	if math.Abs(velocityY) > VelocityThreshold || math.Abs(offsetY) > CommitFraction*viewportHeight {
		switch {
		case offsetY < 0:
			return CommitUp
		case offsetY > 0:
			return CommitDown
		case velocityY < 0:
			// Быстрый бросок без смещения: направление берём из скорости.
			return CommitUp
		case velocityY > 0:
			return CommitDown
		}
	}
	return SnapBack
}

// ResolveHorizontal переключает снимок при смещении больше NavigateThreshold.
// Смещение влево показывает следующий снимок.
func ResolveHorizontal(offsetX float64) Resolution {
	switch {
	case offsetX < -NavigateThreshold:
		return Next
	case offsetX > NavigateThreshold:
		return Previous
	}
	return SnapBack
}

// Resolve разрешает жест по зафиксированной оси.
func Resolve(axis Axis, g Gesture, viewportHeight float64) Resolution {
	switch axis {
	case AxisHorizontal:
		return ResolveHorizontal(g.OffsetX)
	case AxisVertical:
		return ResolveVertical(g.OffsetY, g.VelocityY, viewportHeight)
	}
	return SnapBack
}

// NearThreshold сообщает, достиг ли вертикальный жест визуального порога «почти».
func NearThreshold(offsetY, viewportHeight float64) bool {
	return math.Abs(offsetY) > NearFraction*viewportHeight
}
