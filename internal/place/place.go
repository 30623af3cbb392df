// Package place finds non-overlapping canvas positions for new nodes.
package place

import (
	"math"

	"github.com/starford/vantage/internal/models"
)

// Placement search constants. The candidate box is the canonical size of
// a freshly created node; Padding keeps a visual gap between nodes.
const (
	NodeWidth  = 300.0
	NodeHeight = 200.0
	Padding    = 20.0

	angleStep    = 0.5 // radians per probe
	radiusBase   = 50.0
	radiusGrowth = 20.0 // radius gained per radian of accumulated angle
	radiusCap    = 2000.0
)

// Box is an axis-aligned bounding box on the canvas.
type Box struct {
	X, Y, W, H float64
}

// Boxes extracts the bounding boxes of a node list.
func Boxes(nodes []models.Node) []Box {
	out := make([]Box, len(nodes))
	for i, n := range nodes {
		out[i] = Box{X: n.X, Y: n.Y, W: n.W, H: n.H}
	}
	return out
}

// Place probes an outward spiral around anchor and returns the first
// position where a canonical new-node box (expanded by Padding) overlaps
// none of the existing boxes. If the spiral exceeds its radius cap the
// anchor itself is returned: a visual overlap is an accepted degradation,
// an unbounded search is not.
func Place(anchor models.Point, existing []Box) models.Point {
	angle, radius := 0.0, 0.0
	for {
		candidate := models.Point{
			X: anchor.X + radius*math.Cos(angle),
			Y: anchor.Y + radius*math.Sin(angle),
		}
		if !overlapsAny(candidate, existing) {
			return candidate
		}
		angle += angleStep
		radius = radiusBase + angle*radiusGrowth
		if radius > radiusCap {
			return anchor
		}
	}
}

func overlapsAny(p models.Point, existing []Box) bool {
	c := Box{
		X: p.X - Padding,
		Y: p.Y - Padding,
		W: NodeWidth + 2*Padding,
		H: NodeHeight + 2*Padding,
	}
	for _, b := range existing {
		if c.X < b.X+b.W && c.X+c.W > b.X && c.Y < b.Y+b.H && c.Y+c.H > b.Y {
			return true
		}
	}
	return false
}
