package l3perception

import (
	"image"
	"math"
)

// Contour is the ordered outer boundary of one 8-connected foreground
// region, traced clockwise from its top-most, left-most pixel.
type Contour struct {
	Points []image.Point
	Bounds image.Rectangle
	// Pixels is the number of foreground pixels in the region.
	Pixels int
}

// Area returns the polygon area enclosed by the boundary pixel centres
// (shoelace formula). A filled w x h rectangle has area (w-1)*(h-1); a
// single pixel or a one-pixel-wide line has area 0.
func (c Contour) Area() float64 {
	n := len(c.Points)
	if n < 3 {
		return 0
	}
	var sum int
	for i, p := range c.Points {
		q := c.Points[(i+1)%n]
		sum += p.X*q.Y - q.X*p.Y
	}
	return math.Abs(float64(sum)) / 2
}

// Moore neighbourhood, clockwise on screen (y grows downwards), starting
// west.
var neighbours = [8]image.Point{
	{-1, 0},  // W
	{-1, -1}, // NW
	{0, -1},  // N
	{1, -1},  // NE
	{1, 0},   // E
	{1, 1},   // SE
	{0, 1},   // S
	{-1, 1},  // SW
}

func direction(d image.Point) int {
	for i, n := range neighbours {
		if n == d {
			return i
		}
	}
	return -1
}

type binaryMask struct {
	w, h int
	on   []bool
}

func newBinaryMask(mask *image.Gray) *binaryMask {
	b := mask.Bounds()
	m := &binaryMask{w: b.Dx(), h: b.Dy(), on: make([]bool, b.Dx()*b.Dy())}
	for y := 0; y < m.h; y++ {
		row := mask.Pix[y*mask.Stride:]
		for x := 0; x < m.w; x++ {
			m.on[y*m.w+x] = row[x] != 0
		}
	}
	return m
}

func (m *binaryMask) at(p image.Point) bool {
	if p.X < 0 || p.Y < 0 || p.X >= m.w || p.Y >= m.h {
		return false
	}
	return m.on[p.Y*m.w+p.X]
}

// exterior marks background pixels 4-connected to the image border. With
// 8-connected foreground, background inside a hole is never reached.
func (m *binaryMask) exterior() []bool {
	out := make([]bool, len(m.on))
	var stack []int
	push := func(x, y int) {
		i := y*m.w + x
		if !m.on[i] && !out[i] {
			out[i] = true
			stack = append(stack, i)
		}
	}
	for x := 0; x < m.w; x++ {
		push(x, 0)
		push(x, m.h-1)
	}
	for y := 0; y < m.h; y++ {
		push(0, y)
		push(m.w-1, y)
	}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := i%m.w, i/m.w
		if x > 0 {
			push(x-1, y)
		}
		if x < m.w-1 {
			push(x+1, y)
		}
		if y > 0 {
			push(x, y-1)
		}
		if y < m.h-1 {
			push(x, y+1)
		}
	}
	return out
}

// FindExternalContours returns the outer boundary of every foreground
// region that is not nested inside another region's hole. Any non-zero
// pixel counts as foreground. Contours are ordered by the raster position
// of each region's top-most, left-most pixel.
func FindExternalContours(mask *image.Gray) []Contour {
	m := newBinaryMask(mask)
	if m.w == 0 || m.h == 0 {
		return nil
	}
	outside := m.exterior()
	label := make([]bool, len(m.on))

	var contours []Contour
	var stack []int
	for start := range m.on {
		if !m.on[start] || label[start] {
			continue
		}

		// Flood the 8-connected region, noting whether it touches the
		// exterior.
		external := false
		pixels := 0
		label[start] = true
		stack = append(stack[:0], start)
		for len(stack) > 0 {
			i := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			pixels++
			x, y := i%m.w, i/m.w
			if x == 0 || y == 0 || x == m.w-1 || y == m.h-1 {
				external = true
			}
			for d, n := range neighbours {
				nx, ny := x+n.X, y+n.Y
				if nx < 0 || ny < 0 || nx >= m.w || ny >= m.h {
					continue
				}
				j := ny*m.w + nx
				if m.on[j] {
					if !label[j] {
						label[j] = true
						stack = append(stack, j)
					}
				} else if d%2 == 0 && outside[j] {
					external = true
				}
			}
		}
		if !external {
			continue
		}

		s := image.Pt(start%m.w, start/m.w)
		pts := m.trace(s)
		contours = append(contours, Contour{Points: pts, Bounds: boundsOf(pts), Pixels: pixels})
	}
	return contours
}

// trace follows the outer boundary clockwise from s, which must be the
// region's first pixel in raster order so that its west neighbour is
// background. Tracing stops when the walk is back at s and about to repeat
// its first move.
func (m *binaryMask) trace(s image.Point) []image.Point {
	step := func(c image.Point, back int) (image.Point, int, bool) {
		for i := 1; i <= 8; i++ {
			d := (back + i) % 8
			n := c.Add(neighbours[d])
			if m.at(n) {
				prev := c.Add(neighbours[(d+7)%8])
				return n, direction(prev.Sub(n)), true
			}
		}
		return c, back, false
	}

	var pts []image.Point
	var second image.Point
	c, back := s, 0
	limit := 4*len(m.on) + 8
	for len(pts) < limit {
		next, nb, ok := step(c, back)
		if !ok {
			return []image.Point{s}
		}
		if len(pts) > 0 && c == s && next == second {
			break
		}
		pts = append(pts, c)
		if len(pts) == 1 {
			second = next
		}
		c, back = next, nb
	}
	return pts
}

func boundsOf(pts []image.Point) image.Rectangle {
	if len(pts) == 0 {
		return image.Rectangle{}
	}
	r := image.Rectangle{Min: pts[0], Max: pts[0].Add(image.Pt(1, 1))}
	for _, p := range pts[1:] {
		r = r.Union(image.Rectangle{Min: p, Max: p.Add(image.Pt(1, 1))})
	}
	return r
}
