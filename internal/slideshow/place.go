package slideshow

import (
	"math"
	"math/rand/v2"
)

// Point - левый верхний угол фотографии на экране.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size - размеры экрана или фотографии.
type Size struct {
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Placer выбирает место для новой фотографии: случайная точка в случайной
// ячейке сетки, отклоняемая, если центр ближе MinDistance к уже показанным.
// После MaxAttempts неудач берётся детерминированная ячейка сетки.
type Placer struct {
	MinDistance float64
	MaxAttempts int
	Rand        *rand.Rand
}

type grid struct {
	cols, rows int
	cellW      float64
	cellH      float64
	maxX, maxY float64
}

func newGrid(bounds, size Size) grid {
	g := grid{
		cols: int(math.Max(1, math.Floor(bounds.W/size.W))),
		rows: int(math.Max(1, math.Floor(bounds.H/size.H))),
		maxX: math.Max(0, bounds.W-size.W),
		maxY: math.Max(0, bounds.H-size.H),
	}
	g.cellW = bounds.W / float64(g.cols)
	g.cellH = bounds.H / float64(g.rows)
	return g
}

func (g grid) cells() int { return g.cols * g.rows }

// slot - левый верхний угол ячейки i, ограниченный экраном.
func (g grid) slot(i int) Point {
	col, row := i%g.cols, i/g.cols
	return Point{
		X: math.Min(float64(col)*g.cellW, g.maxX),
		Y: math.Min(float64(row)*g.cellH, g.maxY),
	}
}

func center(p Point, size Size) Point {
	return Point{X: p.X + size.W/2, Y: p.Y + size.H/2}
}

func dist(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// nearest - расстояние от центра c до ближайшего из центров existing.
func nearest(c Point, existing []Point, size Size) float64 {
	best := math.Inf(1)
	for _, e := range existing {
		if d := dist(c, center(e, size)); d < best {
			best = d
		}
	}
	return best
}

// Place возвращает позицию фотографии размера size на экране bounds,
// не пересекающуюся с existing (позиции уже показанных фото того же размера).
func (p Placer) Place(existing []Point, bounds, size Size) Point {
	g := newGrid(bounds, size)

	if p.Rand != nil {
		for attempt := 0; attempt < p.MaxAttempts; attempt++ {
			cell := g.slot(p.Rand.IntN(g.cells()))
			jitterX := math.Max(0, g.cellW-size.W) * p.Rand.Float64()
			jitterY := math.Max(0, g.cellH-size.H) * p.Rand.Float64()
			candidate := Point{
				X: math.Min(cell.X+jitterX, g.maxX),
				Y: math.Min(cell.Y+jitterY, g.maxY),
			}
			if nearest(center(candidate, size), existing, size) >= p.MinDistance {
				return candidate
			}
		}
	}
	return p.Fallback(existing, bounds, size)
}

// Fallback выбирает ячейку сетки, наиболее удалённую от показанных фото;
// при равенстве - ячейку с меньшим номером.
func (p Placer) Fallback(existing []Point, bounds, size Size) Point {
	g := newGrid(bounds, size)
	best, bestDist := 0, -1.0
	for i := 0; i < g.cells(); i++ {
		d := nearest(center(g.slot(i), size), existing, size)
		if d > bestDist {
			best, bestDist = i, d
		}
	}
	return g.slot(best)
}
