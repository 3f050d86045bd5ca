package camera

import "time"

// DoubleTapWindow - максимальный интервал между касаниями двойного тапа.
const DoubleTapWindow = 300 * time.Millisecond

// Касания по элементам управления не участвуют в двойном тапе.
var controlTargets = map[string]bool{
	"shutter": true,
	"flip":    true,
	"review":  true,
	"zoom":    true,
	"flash":   true,
}

// TapDetector распознаёт двойной тап по поверхности съёмки.
type TapDetector struct {
	last time.Time
}

// Tap регистрирует касание по цели target в момент at и возвращает true,
// если это второе касание двойного тапа.
func (d *TapDetector) Tap(at time.Time, target string) bool {
	if controlTargets[target] {
		d.last = time.Time{}
		return false
	}
	if !d.last.IsZero() && at.Sub(d.last) <= DoubleTapWindow && !at.Before(d.last) {
		d.last = time.Time{}
		return true
	}
	d.last = at
	return false
}
