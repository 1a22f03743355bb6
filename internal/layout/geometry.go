package layout

import "math"

// Anchor captures the pointer position and the panel geometry at gesture
// start. Every move computes its result from the anchor, never from the
// previous move.
type Anchor struct {
	Pointer  Point
	Geometry PanelGeometry
}

// DragGeometry returns the panel geometry for a drag anchored at a when the
// pointer is at p. The result keeps the panel inside the viewport:
// 0 <= left <= viewport.Width-width and 0 <= top <= viewport.Height-height.
// A panel larger than the viewport is pinned to 0 on that axis.
func DragGeometry(a Anchor, p Point, viewport Size) PanelGeometry {
	d := p.Sub(a.Pointer)
	g := a.Geometry
	g.Left = clampOffset(a.Geometry.Left+d.X, viewport.Width-g.Width)
	g.Top = clampOffset(a.Geometry.Top+d.Y, viewport.Height-g.Height)
	return g
}

func clampOffset(v, max float64) float64 {
	return math.Max(0, math.Min(v, max))
}

// ResizeGeometry returns the panel geometry for a resize in direction dir
// anchored at a when the pointer is at p. Width and height are clamped to the
// panel's bounds. When the west or north edge moves, the offset is derived
// from the clamped dimension so that the opposite edge stays put.
func ResizeGeometry(a Anchor, p Point, dir Direction, cfg PanelConfig) PanelGeometry {
	d := p.Sub(a.Pointer)
	start := a.Geometry
	g := start

	switch {
	case dir.has('e'):
		g.Width = cfg.clampWidth(start.Width + d.X)
	case dir.has('w'):
		g.Width = cfg.clampWidth(start.Width - d.X)
		g.Left = start.Right() - g.Width
	default:
		g.Width = cfg.clampWidth(start.Width)
	}

	switch {
	case dir.has('s'):
		g.Height = cfg.clampHeight(start.Height + d.Y)
	case dir.has('n'):
		g.Height = cfg.clampHeight(start.Height - d.Y)
		g.Top = start.Bottom() - g.Height
	default:
		g.Height = cfg.clampHeight(start.Height)
	}
	return g
}

