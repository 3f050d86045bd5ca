package camera

import "eventphotos/internal/models"

// Дискретные уровни зума в интерфейсе.
var (
	rearZoomLevels  = []float64{0.5, 1.0, 1.2}
	frontZoomLevels = []float64{1.0, 1.2}
)

const lowestZoomLevel = 0.5

// ZoomLevels возвращает уровни зума, доступные для направления камеры.
func ZoomLevels(facing models.Facing) []float64 {
	if facing == models.FacingFront {
		return frontZoomLevels
	}
	return rearZoomLevels
}

func validZoomLevel(facing models.Facing, level float64) bool {
	for _, l := range ZoomLevels(facing) {
		if l == level {
			return true
		}
	}
	return false
}

// NativeZoom переводит уровень интерфейса в нативное значение зума камеры.
// Уровни от 1× масштабируют baseline; уровни ниже 1× линейно интерполируются
// между r.Min (на 0.5×) и baseline (на 1×). Результат ограничен диапазоном r.
func NativeZoom(level float64, r ZoomRange, baseline float64) float64 {
	var v float64
	if level >= 1 {
		v = baseline * level
	} else {
		t := (level - lowestZoomLevel) / (1 - lowestZoomLevel)
		if t < 0 {
			t = 0
		}
		v = r.Min + t*(baseline-r.Min)
	}
	return clamp(v, r.Min, r.Max)
}

// baselineZoom - нативное значение, соответствующее 1× в интерфейсе.
func baselineZoom(caps Capabilities) float64 {
	if caps.Zoom == nil {
		return 1
	}
	b := caps.CurrentZoom
	if b <= 0 {
		b = 1
	}
	return clamp(b, caps.Zoom.Min, caps.Zoom.Max)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
