package viz

import (
	"math"
	"strings"

	"github.com/san-kum/nrsolve/internal/newton"
)

// Braille cells hold 2x4 dots, offset 0x2800:
// 1 4
// 2 5
// 3 6
// 7 8
var pixelMap = [4][2]int{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const brailleBlank = 0x2800

type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{
		Width:  w,
		Height: h,
		Grid:   make([][]rune, h),
	}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
	}
	c.Clear()
	return c
}

// Set lights the dot at (x, y) in dot coordinates; the canvas is
// (Width*2) x (Height*4) dots. Out-of-range dots are ignored.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return
	}
	c.Grid[row][col] |= rune(pixelMap[y%4][x%2])
}

func (c *Canvas) IsSet(x, y int) bool {
	if x < 0 || y < 0 || x/2 >= c.Width || y/4 >= c.Height {
		return false
	}
	return c.Grid[y/4][x/2]&rune(pixelMap[y%4][x%2]) != 0
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = brailleBlank
		}
	}
}

// DrawLine draws a Bresenham line between two dots.
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx, dy := absInt(x1-x0), absInt(y1-y0)
	sx, sy := -1, -1
	if x0 < x1 {
		sx = 1
	}
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row) + "\n")
	}
	return b.String()
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// PathPlot draws the sequence of iterates on a w x h cell canvas. Two-dimensional
// (or wider) iterates use their first two components; scalar iterates are drawn
// against their index.
func PathPlot(points []newton.Vector, w, h int) string {
	if len(points) == 0 || w < 1 || h < 1 {
		return ""
	}

	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		switch {
		case len(p) >= 2:
			xs[i], ys[i] = p[0], p[1]
		case len(p) == 1:
			xs[i], ys[i] = float64(i), p[0]
		}
	}

	minX, maxX := bounds(xs)
	minY, maxY := bounds(ys)
	dotsW, dotsH := w*2-1, h*4-1
	project := func(x, y float64) (int, int) {
		px := int(math.Round((x - minX) / (maxX - minX) * float64(dotsW)))
		py := int(math.Round((maxY - y) / (maxY - minY) * float64(dotsH)))
		return px, py
	}

	c := NewCanvas(w, h)
	px, py := project(xs[0], ys[0])
	c.Set(px, py)
	for i := 1; i < len(points); i++ {
		nx, ny := project(xs[i], ys[i])
		c.DrawLine(px, py, nx, ny)
		px, py = nx, ny
	}
	return c.String()
}

// bounds returns a non-degenerate [lo, hi] covering vs.
func bounds(vs []float64) (float64, float64) {
	lo, hi := vs[0], vs[0]
	for _, v := range vs {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi-lo < 1e-12 {
		lo, hi = lo-1, hi+1
	}
	return lo, hi
}
