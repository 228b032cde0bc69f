package grid

import (
	"fmt"
	"math"
)

// Cell is an integer (x, z) coordinate on the island plot grid.
// Allocated, reserved and persisted cells are always aligned to the plot distance.
type Cell struct {
	X int
	Z int
}

// Name returns the identity used to key reservations and registry entries.
func (c Cell) Name() string {
	return fmt.Sprintf("%d,%d", c.X, c.Z)
}

func (c Cell) String() string {
	return "(" + c.Name() + ")"
}

// Position is a raw, unaligned world position. Y is carried along for
// callers but never participates in plot math.
type Position struct {
	X float64
	Y float64
	Z float64
}

// Block returns the block coordinate containing the position.
func (p Position) Block() Cell {
	return Cell{X: int(math.Floor(p.X)), Z: int(math.Floor(p.Z))}
}

// Align rounds a raw position to the nearest multiple of d on both axes.
// Exact half-way values round toward zero.
func Align(p Position, d int) Cell {
	return Cell{X: roundFloat(p.X, d), Z: roundFloat(p.Z, d)}
}

// AlignCell is Align for integer coordinates.
func AlignCell(c Cell, d int) Cell {
	return Cell{X: roundInt(c.X, d), Z: roundInt(c.Z, d)}
}

// IsAligned reports whether both axes are multiples of d.
func IsAligned(c Cell, d int) bool {
	return c.X%d == 0 && c.Z%d == 0
}

func roundFloat(v float64, d int) int {
	q := v / float64(d)
	r := math.Round(q)
	if math.Abs(q-math.Trunc(q)) == 0.5 {
		r = math.Trunc(q)
	}
	return int(r) * d
}

func roundInt(v, d int) int {
	// Go division truncates toward zero, so rem carries the sign of v.
	q, rem := v/d, v%d
	if 2*abs(rem) > d {
		if v < 0 {
			q--
		} else {
			q++
		}
	}
	return q * d
}

// SpiralNext returns the cell following c in the diagonal ring walk.
//
//	                           z
//	  x = -z                   ^                    x = z
//	       \        -x < z     |     x < z         /
//	          \                |                /
//	             \             |             /
//	                \          |          /
//	                   \       |       /          x > z
//	       -x > z         \    |    /
//	                         \ | /
//	    -----------------------+-----------------------------> x
//	                         / | \
//	       -x > -z        /    |    \
//	       (x < z)     /       |       \          x > -z
//	                /          |          \
//	             /             |             \
//	          /     -x < -z    |   x < -z       \
//	      x = z                |                x = -z
//
// The walk depends only on c, so it can resume from any persisted cell.
func SpiralNext(c Cell, d int) Cell {
	c = AlignCell(c, d)
	x, z := c.X, c.Z
	switch {
	case x < z:
		if -x < z {
			x += d
		} else {
			z += d
		}
	case x > z:
		if -x >= z {
			x -= d
		} else {
			z -= d
		}
	default:
		if x <= 0 {
			z += d
		} else {
			z -= d
		}
	}
	return Cell{X: x, Z: z}
}

// Ring returns the Chebyshev ring index of an aligned cell.
func Ring(c Cell, d int) int {
	return max(abs(c.X), abs(c.Z)) / d
}

// Facing returns the horizontal unit vector for a yaw in degrees.
// Yaw 0 faces +z (south), 90 faces -x (west).
func Facing(yaw float64) (dx, dz float64) {
	rad := yaw * math.Pi / 180
	return -math.Sin(rad), math.Cos(rad)
}

// FacingStep returns the aligned cell one plot distance from c in the yaw direction.
func FacingStep(c Cell, yaw float64, d int) Cell {
	dx, dz := Facing(yaw)
	return Align(Position{
		X: float64(c.X) + dx*float64(d),
		Z: float64(c.Z) + dz*float64(d),
	}, d)
}

var cardinals = [...]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

// CardinalDirection maps a yaw in degrees to one of eight compass points.
func CardinalDirection(yaw float64) string {
	rot := math.Mod(yaw-180, 360)
	if rot < 0 {
		rot += 360
	}
	idx := int(math.Floor((rot+22.5)/45)) % len(cardinals)
	return cardinals[idx]
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
